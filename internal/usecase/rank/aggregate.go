package rank

import (
	"fmt"
	"sort"

	"github.com/kailas-cloud/citymatch/internal/domain"
	"github.com/kailas-cloud/citymatch/internal/domain/geo"
	"github.com/kailas-cloud/citymatch/internal/domain/ranking"
	"github.com/kailas-cloud/citymatch/internal/domain/vocab"
)

// AggregateConfig controls how item scores reduce to a city score.
type AggregateConfig struct {
	TopN            int
	MaxWeight       float64
	MeanWeight      float64
	DiversityWeight float64
	// Vocabulary bounds the diversity ratio: only its tags count, over its size.
	Vocabulary *vocab.Vocabulary
	// MinMaxScore drops cities whose best item scores below it. Zero disables the floor.
	MinMaxScore float64
}

// DefaultAggregateConfig returns the 0.6/0.3/0.1 blend over the top 3 items.
func DefaultAggregateConfig(v *vocab.Vocabulary) AggregateConfig {
	return AggregateConfig{
		TopN:            3,
		MaxWeight:       0.6,
		MeanWeight:      0.3,
		DiversityWeight: 0.1,
		Vocabulary:      v,
	}
}

// Validate rejects configurations that cannot produce a score.
func (c AggregateConfig) Validate() error {
	if c.TopN < 1 {
		return fmt.Errorf("%w: top_n must be >= 1, got %d", domain.ErrInvalidConfig, c.TopN)
	}
	if c.Vocabulary == nil || c.Vocabulary.Len() < 1 {
		return fmt.Errorf("%w: diversity needs a non-empty vocabulary", domain.ErrInvalidConfig)
	}
	return nil
}

type cityGroup struct {
	city    string
	country string
	scores  []float64
	tags    []string
	tagSet  map[string]struct{}
	known   int
	points  []geo.Point
}

// Aggregate groups scored items by exact city name and reduces each group to
// MaxWeight*max + MeanWeight*mean(topN) + DiversityWeight*diversity, where
// diversity is the share of the vocabulary covered by the distinct tags of the
// whole group. Tags outside the vocabulary are kept in Tags but never counted.
// The result is sorted by score, ties kept in group encounter order.
func Aggregate(scored []ranking.Scored, cfg AggregateConfig) ([]ranking.CityAggregate, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var groups []*cityGroup
	byCity := make(map[string]*cityGroup)
	for i := range scored {
		it := scored[i].Item
		if it == nil {
			continue
		}
		g, ok := byCity[it.City]
		if !ok {
			g = &cityGroup{city: it.City, country: it.Country, tagSet: make(map[string]struct{})}
			byCity[it.City] = g
			groups = append(groups, g)
		}
		g.scores = append(g.scores, scored[i].Score)
		for _, t := range it.Tags {
			if _, seen := g.tagSet[t]; !seen {
				g.tagSet[t] = struct{}{}
				g.tags = append(g.tags, t)
				if _, ok := cfg.Vocabulary.IndexOf(t); ok {
					g.known++
				}
			}
		}
		if it.Location != nil {
			g.points = append(g.points, *it.Location)
		}
	}

	out := make([]ranking.CityAggregate, 0, len(groups))
	for _, g := range groups {
		agg := reduce(g, cfg)
		if cfg.MinMaxScore > 0 && agg.MaxScore < cfg.MinMaxScore {
			continue
		}
		out = append(out, agg)
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out, nil
}

func reduce(g *cityGroup, cfg AggregateConfig) ranking.CityAggregate {
	scores := make([]float64, len(g.scores))
	copy(scores, g.scores)
	sort.Sort(sort.Reverse(sort.Float64Slice(scores)))
	top := scores[:min(cfg.TopN, len(scores))]

	var sum float64
	for _, s := range top {
		sum += s
	}
	maxScore := top[0]
	mean := sum / float64(len(top))
	diversity := float64(g.known) / float64(cfg.Vocabulary.Len())

	agg := ranking.CityAggregate{
		City:      g.city,
		Country:   g.country,
		Score:     cfg.MaxWeight*maxScore + cfg.MeanWeight*mean + cfg.DiversityWeight*diversity,
		MaxScore:  maxScore,
		MeanTopN:  mean,
		Diversity: diversity,
		POICount:  len(g.scores),
		Tags:      g.tags,
	}
	if c, ok := geo.Centroid(g.points); ok {
		agg.Centroid = &c
	}
	return agg
}
