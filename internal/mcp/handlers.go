package mcp

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog/log"

	"pbloss-mcp/internal/concordia"
	"pbloss-mcp/internal/model"
	"pbloss-mcp/internal/simulation"
	"pbloss-mcp/internal/visuals"
)

// SourceInput names the spots to work on and optional setting overrides.
type SourceInput struct {
	Path     string            `json:"path,omitempty"`
	CSV      string            `json:"csv,omitempty"`
	Samples  []string          `json:"samples,omitempty"`
	Settings map[string]string `json:"settings,omitempty"`
}

type SpotResult struct {
	Index       int      `json:"index"`
	Concordant  bool     `json:"concordant"`
	Discordance *float64 `json:"discordance,omitempty"`
	AgeMa       *float64 `json:"age_ma,omitempty"`
}

type SampleClassification struct {
	Name       string       `json:"name"`
	Concordant int          `json:"concordant"`
	Discordant int          `json:"discordant"`
	Invalid    int          `json:"invalid"`
	Spots      []SpotResult `json:"spots"`
}

type ClassifyOutput struct {
	System  string                 `json:"system"`
	Method  string                 `json:"method"`
	Samples []SampleClassification `json:"samples"`
}

func (s *Server) handleClassifySpots(ctx context.Context, _ *mcp.CallToolRequest, in SourceInput) (*mcp.CallToolResult, ClassifyOutput, error) {
	settings, err := s.resolveSettings(in.Settings)
	if err != nil {
		return nil, ClassifyOutput{}, err
	}
	samples, err := s.loadSamples(in)
	if err != nil {
		return nil, ClassifyOutput{}, err
	}

	out := ClassifyOutput{System: settings.System.String(), Method: settings.ClassificationMethod.String()}
	for _, sample := range samples {
		snap := sample.Snapshot()
		results, err := simulation.Classify(snap.Spots, settings, snap.Name, simulation.CancelFromContext(ctx), nil)
		if err != nil {
			return nil, ClassifyOutput{}, err
		}

		sc := SampleClassification{Name: sample.Name, Invalid: len(sample.InvalidSpots()), Spots: make([]SpotResult, len(results))}
		for i, c := range results {
			if c.Concordant {
				sc.Concordant++
			} else {
				sc.Discordant++
			}
			sc.Spots[i] = SpotResult{Index: snap.Spots[i].Index, Concordant: c.Concordant, Discordance: c.Discordance}
			if c.Age != nil {
				sc.Spots[i].AgeMa = ma(*c.Age)
			}
		}
		out.Samples = append(out.Samples, sc)
	}
	log.Info().Int("samples", len(out.Samples)).Msg("Classified spots")
	return nil, out, nil
}

// EstimateInput is SourceInput plus output options.
type EstimateInput struct {
	Path     string            `json:"path,omitempty"`
	CSV      string            `json:"csv,omitempty"`
	Samples  []string          `json:"samples,omitempty"`
	Settings map[string]string `json:"settings,omitempty"`
	Charts   bool              `json:"charts,omitempty"`
}

func (in EstimateInput) source() SourceInput {
	return SourceInput{Path: in.Path, CSV: in.CSV, Samples: in.Samples, Settings: in.Settings}
}

type SampleEstimate struct {
	SampleID   string   `json:"sample_id"`
	SampleName string   `json:"sample_name"`
	Status     string   `json:"status"`
	Reason     string   `json:"reason,omitempty"`
	Runs       int      `json:"runs"`
	AgeMa      *float64 `json:"age_ma,omitempty"`
	LowerMa    *float64 `json:"lower_ma,omitempty"`
	UpperMa    *float64 `json:"upper_ma,omitempty"`
	MeanD      *float64 `json:"mean_d,omitempty"`
	MeanP      *float64 `json:"mean_p,omitempty"`
	MeanScore  *float64 `json:"mean_score,omitempty"`
	EstimateID string   `json:"estimate_id,omitempty"`
	Charts     []string `json:"charts,omitempty"`
}

type EstimateOutput struct {
	Summary string           `json:"summary"`
	Chart   string           `json:"chart,omitempty"`
	Samples []SampleEstimate `json:"samples"`
}

func (s *Server) handleEstimate(ctx context.Context, req *mcp.CallToolRequest, in EstimateInput) (*mcp.CallToolResult, EstimateOutput, error) {
	settings, err := s.resolveSettings(in.Settings)
	if err != nil {
		return nil, EstimateOutput{}, err
	}
	samples, err := s.loadSamples(in.source())
	if err != nil {
		return nil, EstimateOutput{}, err
	}

	n := newNotifier(ctx, req, len(samples))
	sink := simulation.MultiProgress{simulation.LogProgress{}, s.runs, n}
	outcomes, err := simulation.RunBatch(ctx, samples, settings, s.engineOptions(), sink)
	if err != nil {
		return nil, EstimateOutput{}, err
	}

	out := EstimateOutput{Summary: n.summary}
	if in.Charts {
		out.Chart = visuals.GenerateOutcomePie(outcomes)
	}
	for i, o := range outcomes {
		est := SampleEstimate{
			SampleID:   o.SampleID,
			SampleName: o.SampleName,
			Status:     o.StatusText,
			Reason:     o.Reason,
			Runs:       o.Runs,
		}
		if opt := o.Optimal; opt != nil {
			est.AgeMa, est.LowerMa, est.UpperMa = ma(opt.Age), ma(opt.LowerBound), ma(opt.UpperBound)
			est.MeanD, est.MeanP, est.MeanScore = &opt.MeanDValue, &opt.MeanPValue, &opt.MeanScore
		}
		if in.Charts && len(samples[i].Runs) > 0 {
			est.Charts = sampleCharts(samples[i])
		}
		if s.store != nil {
			id, err := s.store.SaveSample(ctx, samples[i], o.StatusText, o.Reason)
			if err != nil {
				log.Warn().Err(err).Str("sample", o.SampleName).Msg("Failed to store estimate")
			}
			est.EstimateID = id
		}
		if s.cfg.RunLogDir != "" {
			if err := s.runs.Save(s.cfg.RunLogDir, o.SampleID); err != nil {
				log.Warn().Err(err).Str("sample", o.SampleName).Msg("Failed to save run log")
			}
		}
		s.runs.Drop(o.SampleID)
		out.Samples = append(out.Samples, est)
	}
	return nil, out, nil
}

func sampleCharts(sample *model.Sample) []string {
	charts := []string{visuals.GenerateRunAgeHistogram(sample.Runs, 10)}
	if scores, err := simulation.MeanScores(sample.Runs); err == nil {
		charts = append([]string{visuals.GenerateScoreChart(sample.Runs[0].PbLossAges, scores)}, charts...)
	}
	return charts
}

type ConcordiaInput struct {
	AgeMa float64 `json:"age_ma"`
}

type RatioPoint struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	XLabel string  `json:"x_label"`
	YLabel string  `json:"y_label"`
}

type ConcordiaOutput struct {
	AgeMa          float64    `json:"age_ma"`
	TeraWasserburg RatioPoint `json:"tera_wasserburg"`
	Wetherill      RatioPoint `json:"wetherill"`
}

func (s *Server) handleConcordiaPoint(_ context.Context, _ *mcp.CallToolRequest, in ConcordiaInput) (*mcp.CallToolResult, ConcordiaOutput, error) {
	age := in.AgeMa * concordia.Ma
	if !(age >= concordia.LowerAge && age <= concordia.UpperAge) {
		return nil, ConcordiaOutput{}, fmt.Errorf("age must be between %g and %g Ma", concordia.LowerAge/concordia.Ma, concordia.UpperAge/concordia.Ma)
	}
	tx, ty := concordia.TeraWasserburg{}.Point(age)
	wx, wy := concordia.Wetherill{}.Point(age)
	return nil, ConcordiaOutput{
		AgeMa:          in.AgeMa,
		TeraWasserburg: RatioPoint{X: tx, Y: ty, XLabel: "238U/206Pb", YLabel: "207Pb/206Pb"},
		Wetherill:      RatioPoint{X: wx, Y: wy, XLabel: "207Pb/235U", YLabel: "206Pb/238U"},
	}, nil
}

type ListInput struct {
	SampleName string `json:"sample_name,omitempty"`
	Limit      int    `json:"limit,omitempty"`
}

type StoredEstimate struct {
	ID         string   `json:"id"`
	SampleName string   `json:"sample_name"`
	Status     string   `json:"status"`
	Reason     string   `json:"reason,omitempty"`
	Runs       int      `json:"runs"`
	AgeMa      *float64 `json:"age_ma,omitempty"`
	LowerMa    *float64 `json:"lower_ma,omitempty"`
	UpperMa    *float64 `json:"upper_ma,omitempty"`
	CreatedAt  string   `json:"created_at"`
}

type ListOutput struct {
	Estimates []StoredEstimate `json:"estimates"`
}

var errNoStore = errors.New("no result store is configured; set PBLOSS_DB_PATH and restart the server")

func (s *Server) handleListEstimates(ctx context.Context, _ *mcp.CallToolRequest, in ListInput) (*mcp.CallToolResult, ListOutput, error) {
	if s.store == nil {
		return nil, ListOutput{}, errNoStore
	}
	estimates, err := s.store.List(ctx, in.SampleName, in.Limit)
	if err != nil {
		return nil, ListOutput{}, err
	}
	out := ListOutput{Estimates: make([]StoredEstimate, 0, len(estimates))}
	for _, e := range estimates {
		out.Estimates = append(out.Estimates, StoredEstimate{
			ID:         e.ID,
			SampleName: e.SampleName,
			Status:     e.Status,
			Reason:     e.Reason,
			Runs:       e.Runs,
			AgeMa:      e.AgeMa,
			LowerMa:    e.LowerMa,
			UpperMa:    e.UpperMa,
			CreatedAt:  e.CreatedAt.Format(time.RFC3339),
		})
	}
	return nil, out, nil
}
