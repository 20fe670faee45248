package pipeline

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"
)

// BatchSummary aggregates the outcome of a batch run.
type BatchSummary struct {
	// Recordings is the number of recordings attempted.
	Recordings int

	// Failed is the number of recordings that errored. Failures do not
	// abort the batch; the remaining recordings still run.
	Failed int

	// CutsDetected, CutsWritten, and CutsSkipped sum the per-recording
	// counts.
	CutsDetected int
	CutsWritten  int
	CutsSkipped  int
}

// ProgressFunc is called after each recording finishes, successfully or
// not. sum is nil when the recording failed before producing a summary.
// Calls may come from concurrent workers; implementations synchronise
// themselves if needed.
type ProgressFunc func(path string, sum *Summary, err error)

// Batch processes every path with up to cfg.Run.Concurrency recordings in
// flight. A failed recording is logged and counted, not fatal; the only
// error returned is context cancellation.
func (p *Pipeline) Batch(ctx context.Context, paths []string, progress ProgressFunc) (*BatchSummary, error) {
	g, ctx := errgroup.WithContext(ctx)
	limit := p.cfg.Run.Concurrency
	if limit < 1 {
		limit = 1
	}
	g.SetLimit(limit)

	var (
		mu sync.Mutex
		bs BatchSummary
	)
	for _, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			sum, err := p.ProcessRecording(ctx, path)
			if err != nil {
				slog.Error("recording failed", "path", path, "error", err)
			}

			mu.Lock()
			bs.Recordings++
			if err != nil {
				bs.Failed++
			} else {
				bs.CutsDetected += sum.CutsDetected
				bs.CutsWritten += sum.CutsWritten
				bs.CutsSkipped += sum.CutsSkipped
			}
			mu.Unlock()

			if progress != nil {
				progress(path, sum, err)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return &bs, err
	}
	return &bs, nil
}
