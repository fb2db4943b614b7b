package ingestion

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// Load fetches all nine resources concurrently and returns once every fetch has
// completed. The first failure cancels the remaining fetches and the load
// returns an error wrapping ErrSourceUnavailable; partial data is never returned.
func Load(ctx context.Context, src Source) (*RawDataset, error) {
	resources := Resources()
	results := make([][]Record, len(resources))

	g, gctx := errgroup.WithContext(ctx)

	for i, resource := range resources {
		g.Go(func() error {
			rows, err := src.Fetch(gctx, resource)
			if err != nil {
				if errors.Is(err, ErrSourceUnavailable) {
					return err
				}

				return fmt.Errorf("%w: %s: %w", ErrSourceUnavailable, resource, err)
			}

			results[i] = rows

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	rows := make(map[Resource][]Record, len(resources))
	for i, resource := range resources {
		rows[resource] = results[i]
	}

	return NewRawDataset(rows), nil
}
