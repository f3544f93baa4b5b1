package classifier

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// ClassifyBatch classifies rows independently and order-preserving.
// With Workers > 1 rows are fanned out over a worker pool; the shared
// repository is read-only, so no synchronization is needed beyond the
// result slice partitioning.
func (e *Engine) ClassifyBatch(ctx context.Context, rows []Row) []Result {
	results := make([]Result, len(rows))

	if e.cfg.Workers <= 1 || len(rows) < 2 {
		for i, row := range rows {
			results[i] = e.Classify(row.Description, row.Unit)
		}
		return results
	}

	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.Workers)
	for i := range rows {
		g.Go(func() error {
			results[i] = e.Classify(rows[i].Description, rows[i].Unit)
			return nil
		})
	}
	_ = g.Wait() // workers never error

	return results
}
