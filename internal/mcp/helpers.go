package mcp

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog/log"

	"pbloss-mcp/internal/concordia"
	"pbloss-mcp/internal/config"
	"pbloss-mcp/internal/importer"
	"pbloss-mcp/internal/model"
	"pbloss-mcp/internal/simulation"
)

func (s *Server) resolveSettings(overrides map[string]string) (*model.CalculationSettings, error) {
	settings := s.settings.Clone()
	if len(overrides) > 0 {
		cc, err := config.ParseCalculationOverrides(overrides)
		if err != nil {
			return nil, err
		}
		if err := cc.Apply(settings); err != nil {
			return nil, err
		}
	}
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	return settings, nil
}

// loadSamples imports the requested source. Relative paths resolve against
// the data directory.
func (s *Server) loadSamples(in SourceInput) ([]*model.Sample, error) {
	var (
		res importer.Result
		err error
	)
	switch {
	case in.Path != "":
		path := in.Path
		if !filepath.IsAbs(path) {
			path = filepath.Join(s.cfg.DataPath, path)
		}
		res, err = importer.ReadFile(path, s.imports)
	case in.CSV != "":
		res, err = importer.ReadCSV(strings.NewReader(in.CSV), importer.DefaultSampleName, s.imports)
	default:
		return nil, errors.New("either path or csv must be provided")
	}
	if err != nil {
		return nil, err
	}
	if len(res.Samples) == 0 {
		return nil, errors.New("the source contains no spots")
	}
	return selectSamples(res.Samples, in.Samples)
}

func selectSamples(all []*model.Sample, names []string) ([]*model.Sample, error) {
	if len(names) == 0 {
		return all, nil
	}
	byName := make(map[string]*model.Sample, len(all))
	for _, s := range all {
		byName[s.Name] = s
	}
	out := make([]*model.Sample, 0, len(names))
	for _, name := range names {
		s, ok := byName[name]
		if !ok {
			return nil, fmt.Errorf("sample %q not found", name)
		}
		out = append(out, s)
	}
	return out, nil
}

// notifier forwards engine progress to the client when the call carries a
// progress token, and keeps the batch summary.
type notifier struct {
	ctx     context.Context
	session *mcp.ServerSession
	token   any
	total   int
	done    int
	summary string
}

func newNotifier(ctx context.Context, req *mcp.CallToolRequest, total int) *notifier {
	n := &notifier{ctx: ctx, total: total}
	if req != nil && req.Params != nil {
		n.session = req.Session
		n.token = req.Params.GetProgressToken()
	}
	return n
}

func (n *notifier) Report(ev simulation.Event) {
	var fraction float64
	switch {
	case ev.Kind == simulation.BatchCompleted:
		n.summary = ev.Message
		return
	case ev.Kind.Terminal():
		n.done++
	case ev.Kind == simulation.SamplingProgress:
		fraction = ev.Fraction
	case ev.Kind != simulation.NewTask:
		return
	}
	if n.session == nil || n.token == nil {
		return
	}

	msg := ev.Message
	if msg == "" {
		msg = fmt.Sprintf("%s: %s", ev.SampleName, ev.Kind)
	}
	err := n.session.NotifyProgress(n.ctx, &mcp.ProgressNotificationParams{
		ProgressToken: n.token,
		Message:       msg,
		Progress:      float64(n.done) + fraction,
		Total:         float64(n.total),
	})
	if err != nil {
		log.Debug().Err(err).Msg("Failed to send progress notification")
	}
}

func ma(years float64) *float64 {
	v := years / concordia.Ma
	return &v
}
