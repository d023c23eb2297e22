package simulation

import (
	"errors"
	"fmt"
	"time"

	"pbloss-mcp/internal/model"
)

// ErrCancelled is returned when the cancellation predicate fires.
var ErrCancelled = errors.New("processing cancelled")

// SkipError means a sample cannot be processed with its current spots.
// It does not abort the batch.
type SkipError struct {
	Reason string
}

func (e *SkipError) Error() string { return e.Reason }

const minDiscordantSpots = 3

// Status is the terminal state of one sample.
type Status int

const (
	Completed Status = iota
	Skipped
	Cancelled
	Failed
)

func (s Status) String() string {
	switch s {
	case Completed:
		return "completed"
	case Skipped:
		return "skipped"
	case Cancelled:
		return "cancelled"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Outcome summarises one sample after processing.
type Outcome struct {
	SampleID   string            `json:"sample_id"`
	SampleName string            `json:"sample_name"`
	Status     Status            `json:"-"`
	StatusText string            `json:"status"`
	Reason     string            `json:"reason,omitempty"`
	Err        error             `json:"-"`
	Runs       int               `json:"runs"`
	Optimal    *model.OptimalAge `json:"optimal,omitempty"`
}

// Options tune how often the aggregate is refreshed. The final run always
// triggers an aggregation.
type Options struct {
	// AggregateEvery refreshes after this many runs; <= 0 means every run.
	AggregateEvery int
	// AggregateInterval refreshes once this much time has passed since the
	// previous refresh, whatever the run count.
	AggregateInterval time.Duration
	// TaskDelay pauses after each run. Zero in production.
	TaskDelay time.Duration
}

// DefaultOptions refresh the aggregate every five runs or every half second.
func DefaultOptions() Options {
	return Options{AggregateEvery: 5, AggregateInterval: 500 * time.Millisecond}
}

// Processor runs samples one after another on the calling goroutine.
type Processor struct {
	opts     Options
	progress Progress
	cancel   func() bool
}

func NewProcessor(progress Progress, cancel func() bool, opts Options) *Processor {
	if progress == nil {
		progress = NopProgress{}
	}
	if cancel == nil {
		cancel = never
	}
	return &Processor{opts: opts, progress: progress, cancel: cancel}
}

// ProcessBatch validates the settings once, then processes every sample in
// order. Skips and failures do not stop the batch; each sample produces
// exactly one terminal event followed by a single BatchCompleted.
func (p *Processor) ProcessBatch(samples []*model.Sample, settings *model.CalculationSettings) ([]Outcome, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	pinned := settings.Clone()

	outcomes := make([]Outcome, 0, len(samples))
	for i, s := range samples {
		outcomes = append(outcomes, p.processSample(s, pinned, uint64(i)))
	}

	p.progress.Report(Event{Kind: BatchCompleted, Message: batchSummary(outcomes)})
	return outcomes, nil
}

// ProcessSample runs a single sample as a batch of one.
func (p *Processor) ProcessSample(sample *model.Sample, settings *model.CalculationSettings) (Outcome, error) {
	out, err := p.ProcessBatch([]*model.Sample{sample}, settings)
	if err != nil {
		return Outcome{}, err
	}
	return out[0], nil
}

func (p *Processor) processSample(sample *model.Sample, settings *model.CalculationSettings, stream uint64) Outcome {
	err := p.run(sample, settings, stream)

	o := Outcome{SampleID: sample.ID, SampleName: sample.Name, Runs: len(sample.Runs), Optimal: sample.Optimal}
	ev := Event{SampleID: sample.ID, SampleName: sample.Name, Optimal: sample.Optimal}

	var skip *SkipError
	switch {
	case err == nil:
		sample.Processed = true
		o.Status, ev.Kind = Completed, SampleCompleted
	case errors.As(err, &skip):
		sample.SkipReason = skip.Reason
		o.Status, ev.Kind = Skipped, SampleSkipped
		o.Reason, ev.Message = skip.Reason, skip.Reason
	case errors.Is(err, ErrCancelled):
		o.Status, ev.Kind = Cancelled, SampleCancelled
	default:
		o.Status, ev.Kind = Failed, SampleFailed
		o.Err, ev.Err = err, err
		o.Reason, ev.Message = err.Error(), err.Error()
	}
	o.StatusText = o.Status.String()
	p.progress.Report(ev)
	return o
}

func (p *Processor) run(sample *model.Sample, settings *model.CalculationSettings, stream uint64) error {
	sample.StartCalculation(settings)
	if p.cancel() {
		return ErrCancelled
	}

	engine, err := NewEngine(sample.Settings)
	if err != nil {
		return err
	}
	snap := sample.Snapshot()

	// 1. Classification
	p.progress.Report(Event{Kind: NewTask, SampleID: snap.ID, SampleName: snap.Name,
		Message: fmt.Sprintf("Classifying points for '%s'...", snap.Name)})
	results, err := Classify(snap.Spots, engine.Settings(), snap.Name, p.cancel, p.progress)
	if err != nil {
		return err
	}
	sample.UpdateConcordance(results)

	var concordant, discordant []model.Spot
	for i, c := range results {
		if c.Concordant {
			concordant = append(concordant, snap.Spots[i])
		} else {
			discordant = append(discordant, snap.Spots[i])
		}
	}
	if err := checkSampleable(len(concordant), len(discordant)); err != nil {
		return err
	}

	// 2. Sampling
	p.progress.Report(Event{Kind: NewTask, SampleID: snap.ID, SampleName: snap.Name,
		Message: fmt.Sprintf("Sampling Pb-loss ages for '%s'...", snap.Name)})

	runs := engine.Settings().MonteCarloRuns
	src := newSource(engine.Settings().Seed, stream)
	conc := perturb(src, concordant, engine.Settings().System, runs)
	disc := perturb(src, discordant, engine.Settings().System, runs)

	lastAggregate := time.Now()
	sinceAggregate := 0
	aggregate := func(fraction float64) error {
		optimal, err := Aggregate(sample.Runs)
		if err != nil {
			return err
		}
		sample.SetOptimalAge(optimal)
		p.progress.Report(Event{Kind: OptimalAgeProgress, Fraction: fraction, SampleID: snap.ID, SampleName: snap.Name, Optimal: sample.Optimal})
		lastAggregate = time.Now()
		sinceAggregate = 0
		return nil
	}

	for r := 0; r < runs; r++ {
		if p.cancel() {
			// The partial result must cover every committed run.
			if sinceAggregate > 0 {
				if err := aggregate(float64(r) / float64(runs)); err != nil {
					return err
				}
			}
			return ErrCancelled
		}

		run, err := engine.Run(r+1, snap.Name, conc.x[r], conc.y[r], disc.x[r], disc.y[r])
		if err != nil {
			return err
		}
		sample.AddRun(run)
		sinceAggregate++
		fraction := float64(r+1) / float64(runs)
		p.progress.Report(Event{Kind: SamplingProgress, Fraction: fraction, SampleID: snap.ID, SampleName: snap.Name, Run: run})

		if r == runs-1 || p.dueForAggregate(sinceAggregate, lastAggregate) {
			if err := aggregate(fraction); err != nil {
				return err
			}
		}

		if p.opts.TaskDelay > 0 {
			time.Sleep(p.opts.TaskDelay)
		}
	}
	return nil
}

func (p *Processor) dueForAggregate(sinceLast int, lastAt time.Time) bool {
	if p.opts.AggregateEvery <= 0 || sinceLast >= p.opts.AggregateEvery {
		return true
	}
	return p.opts.AggregateInterval > 0 && time.Since(lastAt) >= p.opts.AggregateInterval
}

func checkSampleable(concordant, discordant int) error {
	switch {
	case concordant == 0:
		return &SkipError{Reason: "Sample has no concordant spots"}
	case discordant == 0:
		return &SkipError{Reason: "Sample has no discordant spots"}
	case discordant < minDiscordantSpots:
		return &SkipError{Reason: fmt.Sprintf("Sample has only %d discordant spots; at least %d are needed for a reliable KS test", discordant, minDiscordantSpots)}
	}
	return nil
}

func batchSummary(outcomes []Outcome) string {
	counts := map[Status]int{}
	for _, o := range outcomes {
		counts[o.Status]++
	}
	return fmt.Sprintf("Processed %d samples: %d completed, %d skipped, %d cancelled, %d failed",
		len(outcomes), counts[Completed], counts[Skipped], counts[Cancelled], counts[Failed])
}
