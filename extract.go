package dxa

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// ExtractAll decodes every plan in plans concurrently, bounded to
// concurrency simultaneous in-flight decodes, passing each result to sink.
// On the first error from a decode or sink call, or on ctx cancellation, it
// starts no further decodes, waits for those already running (a decode in
// progress is not interrupted), and returns that error. A nil logger uses
// slog.Default(); ExtractAll emits one Debug record (path, error, archive
// version) per failed plan before returning.
func ExtractAll(ctx context.Context, a *Archive, plans []ExtractPlan, concurrency int, sink func(ExtractPlan, []byte) error, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	if concurrency < 1 {
		concurrency = 1
	}

	sem := semaphore.NewWeighted(int64(concurrency))
	g, gctx := errgroup.WithContext(ctx)

	for _, p := range plans {
		if err := sem.Acquire(gctx, 1); err != nil {
			if werr := g.Wait(); werr != nil {
				return werr
			}
			return err
		}
		g.Go(func() error {
			defer sem.Release(1)

			data, err := a.Extract(p)
			if err != nil {
				logger.Debug("dxa: extract failed", "path", p.Path, "version", int(a.h.ver), "error", err)
				return err
			}
			if err := sink(p, data); err != nil {
				logger.Debug("dxa: sink failed", "path", p.Path, "version", int(a.h.ver), "error", err)
				return err
			}
			return nil
		})
	}

	return g.Wait()
}
