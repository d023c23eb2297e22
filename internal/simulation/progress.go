package simulation

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"pbloss-mcp/internal/concordia"
	"pbloss-mcp/internal/model"
)

// EventKind identifies a progress event.
type EventKind int

const (
	NewTask EventKind = iota
	ClassificationProgress
	SamplingProgress
	OptimalAgeProgress
	SampleCompleted
	SampleSkipped
	SampleCancelled
	SampleFailed
	BatchCompleted
)

func (k EventKind) String() string {
	switch k {
	case NewTask:
		return "new_task"
	case ClassificationProgress:
		return "classification"
	case SamplingProgress:
		return "sampling"
	case OptimalAgeProgress:
		return "optimal_age"
	case SampleCompleted:
		return "completed"
	case SampleSkipped:
		return "skipped"
	case SampleCancelled:
		return "cancelled"
	case SampleFailed:
		return "failed"
	case BatchCompleted:
		return "batch_completed"
	default:
		return "unknown"
	}
}

// Terminal reports whether the event closes a sample.
func (k EventKind) Terminal() bool {
	return k == SampleCompleted || k == SampleSkipped || k == SampleCancelled || k == SampleFailed
}

// Event is one notification from the engine. Only the fields relevant to
// Kind are set.
type Event struct {
	Kind       EventKind
	Message    string
	Fraction   float64
	SampleID   string
	SampleName string

	SpotIndex   int
	Concordance *model.Concordance

	Run     *model.MonteCarloRun
	Optimal *model.OptimalAge
	Err     error
}

// Progress receives engine events. Report is called on the engine's
// goroutine and must not mutate the sample being processed.
type Progress interface {
	Report(Event)
}

// ProgressFunc adapts a function to Progress.
type ProgressFunc func(Event)

func (f ProgressFunc) Report(e Event) { f(e) }

// NopProgress discards every event.
type NopProgress struct{}

func (NopProgress) Report(Event) {}

// LogProgress writes phase transitions and outcomes to the global logger.
// Per-spot and per-run events go to Debug.
type LogProgress struct{}

func (LogProgress) Report(e Event) {
	switch e.Kind {
	case NewTask:
		log.Info().Str("sample", e.SampleName).Msg(e.Message)
	case ClassificationProgress:
		log.Debug().Str("sample", e.SampleName).Int("spot", e.SpotIndex).Float64("fraction", e.Fraction).Msg("Classified spot")
	case SamplingProgress:
		ev := log.Debug().Str("sample", e.SampleName).Float64("fraction", e.Fraction)
		if e.Run != nil {
			ev = ev.Int("run", e.Run.RunNumber).Float64("age_ma", e.Run.OptimalPbLossAge/concordia.Ma)
		}
		ev.Msg("Completed Monte Carlo run")
	case OptimalAgeProgress:
		if e.Optimal != nil {
			log.Debug().Str("sample", e.SampleName).
				Int("runs", e.Optimal.Runs).
				Float64("age_ma", e.Optimal.Age/concordia.Ma).
				Float64("lower_ma", e.Optimal.LowerBound/concordia.Ma).
				Float64("upper_ma", e.Optimal.UpperBound/concordia.Ma).
				Msg("Updated optimal Pb-loss age")
		}
	case SampleCompleted:
		log.Info().Str("sample", e.SampleName).Msg("Processing complete")
	case SampleSkipped:
		log.Warn().Str("sample", e.SampleName).Str("reason", e.Message).Msg("Skipped sample")
	case SampleCancelled:
		log.Warn().Str("sample", e.SampleName).Msg("Cancelled processing of data")
	case SampleFailed:
		log.Error().Err(e.Err).Str("sample", e.SampleName).Msg("Error whilst processing data")
	case BatchCompleted:
		log.Info().Msg(e.Message)
	}
}

// MultiProgress fans an event out to several sinks in order.
type MultiProgress []Progress

func (m MultiProgress) Report(e Event) {
	for _, p := range m {
		p.Report(e)
	}
}

// ChannelProgress forwards events to a channel drained by another goroutine.
// Report blocks while the buffer is full.
type ChannelProgress struct {
	ch   chan Event
	once sync.Once
}

func NewChannelProgress(buffer int) *ChannelProgress {
	return &ChannelProgress{ch: make(chan Event, buffer)}
}

func (c *ChannelProgress) Report(e Event) { c.ch <- e }

// Events is closed by Close.
func (c *ChannelProgress) Events() <-chan Event { return c.ch }

// Close must be called by the producer once the batch returns.
func (c *ChannelProgress) Close() {
	c.once.Do(func() { close(c.ch) })
}

// CancelFromContext turns a context into the polled cancellation predicate.
func CancelFromContext(ctx context.Context) func() bool {
	return func() bool {
		return ctx.Err() != nil
	}
}

func never() bool { return false }
