package pipeline

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/roach88/ndconvert/internal/record"
)

// windowFactor sets how many events a window holds per worker.
const windowFactor = 4

// runWindows processes events concurrently, one window at a time, and emits
// each window's results in stored order. Every event of a window is
// processed before the first one is emitted, so a fatal error stops the run
// at the same event a sequential run would stop at.
func (c *Controller) runWindows(ctx context.Context, p *processor, events []record.Event, emit func(int, record.Event, result) error) error {
	size := c.cfg.Workers * windowFactor
	for start := 0; start < len(events); start += size {
		window := events[start:min(start+size, len(events))]
		results := make([]result, len(window))

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(c.cfg.Workers)
		for i, ev := range window {
			i, ev := i, ev
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				batches, err := p.event(gctx, ev)
				results[i] = result{batches: batches, err: err}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}

		for i, ev := range window {
			if err := emit(start+i, ev, results[i]); err != nil {
				return err
			}
		}
	}
	return nil
}
