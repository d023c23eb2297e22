package simulation

import (
	"context"

	"golang.org/x/sync/errgroup"

	"pbloss-mcp/internal/model"
)

// eventBuffer bounds how far the worker can run ahead of the consumer.
const eventBuffer = 64

// RunBatch processes samples on a worker goroutine and hands every event to
// sink on the calling goroutine. Cancelling ctx stops the batch at the next
// poll; the affected sample ends as Cancelled.
func RunBatch(ctx context.Context, samples []*model.Sample, settings *model.CalculationSettings, opts Options, sink Progress) ([]Outcome, error) {
	if sink == nil {
		sink = NopProgress{}
	}
	events := NewChannelProgress(eventBuffer)

	g, gctx := errgroup.WithContext(ctx)
	var outcomes []Outcome
	g.Go(func() error {
		defer events.Close()
		var err error
		outcomes, err = NewProcessor(events, CancelFromContext(gctx), opts).ProcessBatch(samples, settings)
		return err
	})

	for ev := range events.Events() {
		sink.Report(ev)
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return outcomes, nil
}
