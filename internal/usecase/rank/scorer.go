package rank

import (
	"context"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/citymatch/internal/domain"
	"github.com/kailas-cloud/citymatch/internal/domain/ranking"
	"github.com/kailas-cloud/citymatch/internal/domain/vector"
)

// Weights blends the item signal and the city-context signal.
type Weights struct {
	Alpha float64 // item
	Beta  float64 // city context
}

// DefaultWeights favors the item over its city.
func DefaultWeights() Weights {
	return Weights{Alpha: 0.7, Beta: 0.3}
}

// Score returns Alpha*dot(user, item) + Beta*dot(user, city).
func Score(user, item, city vector.Vector, w Weights) (float64, error) {
	di, err := vector.Dot(user, item)
	if err != nil {
		return 0, fmt.Errorf("item signal: %w", err)
	}
	dc, err := vector.Dot(user, city)
	if err != nil {
		return 0, fmt.Errorf("city signal: %w", err)
	}
	return w.Alpha*di + w.Beta*dc, nil
}

// minChunk keeps tiny catalogs on a single goroutine.
const minChunk = 256

// ScoreAll scores every entry against user. Chunks run concurrently, bounded
// by workers; each goroutine writes a disjoint range of the result.
func ScoreAll(ctx context.Context, user vector.Vector, entries []Entry, w Weights, workers int) ([]float64, error) {
	out := make([]float64, len(entries))
	if len(entries) == 0 {
		return out, nil
	}
	if workers < 1 {
		workers = 1
	}

	chunk := (len(entries) + workers - 1) / workers
	if chunk < minChunk {
		chunk = minChunk
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for start := 0; start < len(entries); start += chunk {
		end := min(start+chunk, len(entries))
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err //nolint:wrapcheck // context error is returned as is
			}
			for i := start; i < end; i++ {
				s, err := Score(user, entries[i].POIVector, entries[i].CityVector, w)
				if err != nil {
					return fmt.Errorf("score item %d: %w", i, err)
				}
				out[i] = s
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err //nolint:wrapcheck // already wrapped inside the group
	}
	return out, nil
}

// TopK returns the k highest scores, ties kept in input order. The input is not modified.
func TopK(items []ranking.Scored, k int) ([]ranking.Scored, error) {
	if k < 0 {
		return nil, fmt.Errorf("%w, got %d", domain.ErrInvalidK, k)
	}
	if k == 0 {
		return []ranking.Scored{}, nil
	}
	sorted := make([]ranking.Scored, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Score > sorted[j].Score })
	if k < len(sorted) {
		sorted = sorted[:k]
	}
	return sorted, nil
}
