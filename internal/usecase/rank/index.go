package rank

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/citymatch/internal/domain/poi"
	"github.com/kailas-cloud/citymatch/internal/domain/vector"
)

// Entry is an item with its precomputed vectors.
type Entry struct {
	Item       *poi.Item
	POIVector  vector.Vector
	CityVector vector.Vector
}

// Index holds the catalog vectors for one encoder. It is read-only after BuildIndex.
type Index struct {
	entries []Entry
	encoder Encoder
}

// BuildIndex encodes every item and its city context once. Identical city tag
// sets share one vector.
func BuildIndex(ctx context.Context, items []poi.Item, enc Encoder, workers int) (*Index, error) {
	owned := make([]poi.Item, len(items))
	copy(owned, items)

	cityKeys := make([]string, len(owned))
	var citySets [][]string
	keyIndex := make(map[string]int)
	for i := range owned {
		if err := owned[i].Validate(); err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
		key := tagSetKey(owned[i].CityTags)
		cityKeys[i] = key
		if _, ok := keyIndex[key]; !ok {
			keyIndex[key] = len(citySets)
			citySets = append(citySets, owned[i].CityTags)
		}
	}

	cityVecs, err := encodeAll(ctx, enc, citySets, workers)
	if err != nil {
		return nil, fmt.Errorf("encode city tags: %w", err)
	}

	poiSets := make([][]string, len(owned))
	for i := range owned {
		poiSets[i] = owned[i].Tags
	}
	poiVecs, err := encodeAll(ctx, enc, poiSets, workers)
	if err != nil {
		return nil, fmt.Errorf("encode item tags: %w", err)
	}

	entries := make([]Entry, len(owned))
	for i := range owned {
		entries[i] = Entry{
			Item:       &owned[i],
			POIVector:  poiVecs[i],
			CityVector: cityVecs[keyIndex[cityKeys[i]]],
		}
	}
	return &Index{entries: entries, encoder: enc}, nil
}

func encodeAll(ctx context.Context, enc Encoder, sets [][]string, workers int) ([]vector.Vector, error) {
	out := make([]vector.Vector, len(sets))
	if workers < 1 {
		workers = 1
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range sets {
		g.Go(func() error {
			v, err := enc.Encode(gctx, sets[i])
			if err != nil {
				return fmt.Errorf("set %d: %w", i, err)
			}
			out[i] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err //nolint:wrapcheck // wrapped inside the group
	}
	return out, nil
}

// tagSetKey is an order-insensitive key for a tag set.
func tagSetKey(tags []string) string {
	s := make([]string, len(tags))
	copy(s, tags)
	sort.Strings(s)
	return strings.Join(s, "\x00")
}

// Entries returns the indexed entries. Callers must not modify them.
func (x *Index) Entries() []Entry { return x.entries }

// Len returns the number of indexed items.
func (x *Index) Len() int { return len(x.entries) }

// Dimensions returns the vector size of the index.
func (x *Index) Dimensions() int { return x.encoder.Dimensions() }

// Encode maps a tag set into the index space.
func (x *Index) Encode(ctx context.Context, tags []string) (vector.Vector, error) {
	v, err := x.encoder.Encode(ctx, tags)
	if err != nil {
		return nil, fmt.Errorf("encode: %w", err)
	}
	return v, nil
}

// Cities returns the distinct city names in catalog order.
func (x *Index) Cities() []string {
	seen := make(map[string]struct{})
	var out []string
	for _, e := range x.entries {
		if _, ok := seen[e.Item.City]; !ok {
			seen[e.Item.City] = struct{}{}
			out = append(out, e.Item.City)
		}
	}
	return out
}
