package rank

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/citymatch/internal/domain"
	"github.com/kailas-cloud/citymatch/internal/domain/geo"
	"github.com/kailas-cloud/citymatch/internal/domain/ranking"
	"github.com/kailas-cloud/citymatch/internal/domain/vocab"
	"github.com/kailas-cloud/citymatch/internal/logger"
	"github.com/kailas-cloud/citymatch/internal/metrics"
)

// Operation labels.
const (
	opPOIs   = "pois"
	opCities = "cities"
)

// Config holds the ranking pipeline parameters.
type Config struct {
	Weights   Weights
	Aggregate AggregateConfig
	Lambda    float64
	// CandidatePool caps the scored items handed to city aggregation. Zero keeps all.
	CandidatePool int
	DefaultLimit  int
	MaxLimit      int
	Workers       int
}

// DefaultConfig returns the pipeline defaults; city diversity is measured over v.
func DefaultConfig(v *vocab.Vocabulary) Config {
	return Config{
		Weights:       DefaultWeights(),
		Aggregate:     DefaultAggregateConfig(v),
		Lambda:        DefaultLambda,
		CandidatePool: 300,
		DefaultLimit:  10,
		MaxLimit:      100,
		Workers:       1,
	}
}

// Request is a single ranking query.
type Request struct {
	ranking.Preferences

	// Dislikes takes precedence over the stored weights of UserID.
	Dislikes ranking.DislikeWeights
	UserID   string

	Limit     int
	Diversify bool
	// Lambda overrides the configured MMR trade-off when set.
	Lambda *float64

	ExcludeCities []string
	Origin        *geo.Point
	RadiusKm      float64
	MinScore      float64
}

// Service runs the ranking pipeline against a prebuilt index.
type Service struct {
	index    *Index
	profiles ProfileBuilder
	dislikes DislikeReader
	cfg      Config
}

// New creates a ranking service. dislikes may be nil when no preference store is configured.
func New(index *Index, profiles ProfileBuilder, dislikes DislikeReader, cfg Config) *Service {
	return &Service{index: index, profiles: profiles, dislikes: dislikes, cfg: cfg}
}

// RankPOIs returns the best items for the request.
func (s *Service) RankPOIs(ctx context.Context, req *Request) (out []ranking.Scored, err error) {
	defer observe(opPOIs, time.Now(), &err)

	limit, err := s.limit(req.Limit)
	if err != nil {
		return nil, err
	}
	scored, err := s.score(ctx, req)
	if err != nil {
		return nil, err
	}
	if req.MinScore > 0 {
		kept := scored[:0]
		for _, sc := range scored {
			if sc.Score >= req.MinScore {
				kept = append(kept, sc)
			}
		}
		scored = kept
	}
	metrics.RankCandidates.WithLabelValues(opPOIs).Observe(float64(len(scored)))

	return TopK(scored, limit)
}

// RankCities aggregates the best items per city and optionally diversifies the result.
func (s *Service) RankCities(ctx context.Context, req *Request) (out []ranking.CityAggregate, err error) {
	defer observe(opCities, time.Now(), &err)

	limit, err := s.limit(req.Limit)
	if err != nil {
		return nil, err
	}
	lambda := s.cfg.Lambda
	if req.Lambda != nil {
		lambda = *req.Lambda
	}
	if req.Diversify && (lambda < 0 || lambda > 1 || math.IsNaN(lambda)) {
		return nil, fmt.Errorf("%w, got %v", domain.ErrInvalidLambda, lambda)
	}

	scored, err := s.score(ctx, req)
	if err != nil {
		return nil, err
	}
	metrics.RankCandidates.WithLabelValues(opCities).Observe(float64(len(scored)))

	pool := scored
	if s.cfg.CandidatePool > 0 {
		if pool, err = TopK(scored, s.cfg.CandidatePool); err != nil {
			return nil, err
		}
	}

	cities, err := Aggregate(pool, s.cfg.Aggregate)
	if err != nil {
		return nil, fmt.Errorf("aggregate: %w", err)
	}
	if req.MinScore > 0 {
		kept := cities[:0]
		for _, c := range cities {
			if c.Score >= req.MinScore {
				kept = append(kept, c)
			}
		}
		cities = kept
	}

	if req.Diversify && len(cities) > 1 {
		if cities, err = s.diversifyCities(ctx, cities, 2*limit, lambda); err != nil {
			return nil, err
		}
	}

	if len(cities) > limit {
		cities = cities[:limit]
	}
	logger.FromContext(ctx).Debug("Ranked cities",
		zap.Int("candidates", len(pool)),
		zap.Int("cities", len(cities)),
		zap.Bool("diversified", req.Diversify),
	)
	return cities, nil
}

// diversifyCities reorders the first window cities with MMR over their tag vectors.
func (s *Service) diversifyCities(
	ctx context.Context, cities []ranking.CityAggregate, window int, lambda float64,
) ([]ranking.CityAggregate, error) {
	head := cities[:min(window, len(cities))]

	cands := make([]ranking.Candidate[ranking.CityAggregate], len(head))
	for i, c := range head {
		v, err := s.index.Encode(ctx, c.Tags)
		if err != nil {
			return nil, fmt.Errorf("encode city %q: %w", c.City, err)
		}
		cands[i] = ranking.Candidate[ranking.CityAggregate]{Value: c, Score: c.Score, Vector: v}
	}

	reordered, err := Diversify(cands, lambda)
	if err != nil {
		return nil, fmt.Errorf("diversify: %w", err)
	}

	out := make([]ranking.CityAggregate, len(reordered))
	for i, c := range reordered {
		out[i] = c.Value
	}
	return out, nil
}

// score builds the user vector, scores every indexed item and applies filters and penalties.
func (s *Service) score(ctx context.Context, req *Request) ([]ranking.Scored, error) {
	dislikes, err := s.resolveDislikes(ctx, req)
	if err != nil {
		return nil, err
	}

	user, err := s.profiles.Build(ctx, &req.Preferences)
	if err != nil {
		return nil, fmt.Errorf("build profile: %w", err)
	}
	if len(user) != s.index.Dimensions() {
		return nil, fmt.Errorf("%w: user vector %d, index %d",
			domain.ErrVectorDimMismatch, len(user), s.index.Dimensions())
	}

	entries := s.index.Entries()
	raw, err := ScoreAll(ctx, user, entries, s.cfg.Weights, s.cfg.Workers)
	if err != nil {
		return nil, fmt.Errorf("score: %w", err)
	}

	excluded := make(map[string]struct{}, len(req.ExcludeCities))
	for _, c := range req.ExcludeCities {
		excluded[strings.ToLower(c)] = struct{}{}
	}

	out := make([]ranking.Scored, 0, len(entries))
	for i, e := range entries {
		if _, skip := excluded[strings.ToLower(e.Item.City)]; skip {
			continue
		}
		if req.Origin != nil && req.RadiusKm > 0 {
			if e.Item.Location == nil || req.Origin.DistanceKm(*e.Item.Location) > req.RadiusKm {
				continue
			}
		}
		p := penalty(e.Item.PenaltyTags(), dislikes)
		out = append(out, ranking.Scored{Item: e.Item, Raw: raw[i], Penalty: p, Score: raw[i] - p})
	}
	return out, nil
}

func (s *Service) resolveDislikes(ctx context.Context, req *Request) (ranking.DislikeWeights, error) {
	d := req.Dislikes
	if d == nil && req.UserID != "" {
		if s.dislikes == nil {
			return nil, fmt.Errorf("dislikes for user %q: %w", req.UserID, domain.ErrStoreUnavailable)
		}
		var err error
		if d, err = s.dislikes.Get(ctx, req.UserID); err != nil {
			return nil, fmt.Errorf("load dislikes: %w", err)
		}
	}
	if err := d.Validate(); err != nil {
		return nil, err //nolint:wrapcheck // carries the category
	}
	return d, nil
}

func (s *Service) limit(requested int) (int, error) {
	switch {
	case requested < 0:
		return 0, fmt.Errorf("%w, got %d", domain.ErrInvalidK, requested)
	case requested == 0:
		return s.cfg.DefaultLimit, nil
	case s.cfg.MaxLimit > 0 && requested > s.cfg.MaxLimit:
		return s.cfg.MaxLimit, nil
	default:
		return requested, nil
	}
}

func observe(op string, start time.Time, err *error) {
	status := "success"
	if *err != nil {
		status = "error"
	}
	metrics.RankRequestsTotal.WithLabelValues(op, status).Inc()
	metrics.RankDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}
