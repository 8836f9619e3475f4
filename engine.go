// Package citymatch ranks points of interest and cities against a user's
// tag preferences, with per-category dislike penalties and optional MMR
// diversification of the city list.
package citymatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	dbRedis "github.com/kailas-cloud/citymatch/internal/db/redis"
	"github.com/kailas-cloud/citymatch/internal/domain"
	"github.com/kailas-cloud/citymatch/internal/domain/poi"
	"github.com/kailas-cloud/citymatch/internal/domain/ranking"
	"github.com/kailas-cloud/citymatch/internal/domain/vocab"
	"github.com/kailas-cloud/citymatch/internal/repository/dislike"
	"github.com/kailas-cloud/citymatch/internal/repository/seed"
	"github.com/kailas-cloud/citymatch/internal/usecase/profile"
	rankuc "github.com/kailas-cloud/citymatch/internal/usecase/rank"
	"github.com/kailas-cloud/citymatch/internal/usecase/vectorize"
)

const defaultReadinessTimeout = 10 * time.Second

// dislikeStore is the preference store behind the engine's dislike methods.
type dislikeStore interface {
	Get(ctx context.Context, userID string) (ranking.DislikeWeights, error)
	Set(ctx context.Context, userID, category string, weight int) error
	Add(ctx context.Context, userID, category string, points int) (int, error)
	Remove(ctx context.Context, userID, category string) error
	Clear(ctx context.Context, userID string) error
}

// Engine is the citymatch entry point: an immutable index over a catalog plus
// the ranking pipeline. It is safe for concurrent use.
type Engine struct {
	index    *rankuc.Index
	rank     *rankuc.Service
	dislikes dislikeStore
	closers  []func()
}

// New builds the index over items and wires the ranking pipeline.
func New(ctx context.Context, items []Item, opts ...Option) (*Engine, error) {
	return build(ctx, toInternalItems(items), newEngineConfig(opts))
}

// Load reads a JSON, Parquet or SQLite seed (by extension) and builds an Engine over it.
func Load(ctx context.Context, path string, opts ...Option) (*Engine, error) {
	items, err := seed.Load(ctx, seed.Source{Path: path})
	if err != nil {
		return nil, fmt.Errorf("citymatch: load seed: %w", err)
	}
	return build(ctx, items, newEngineConfig(opts))
}

// LoadItems reads a seed file. format may be empty to infer it from the extension.
func LoadItems(ctx context.Context, path, format string) ([]Item, error) {
	items, err := seed.Load(ctx, seed.Source{Path: path, Format: seed.Format(format)})
	if err != nil {
		return nil, fmt.Errorf("citymatch: load seed: %w", err)
	}
	return fromInternalItems(items), nil
}

// ExportParquet writes items as a Parquet seed.
func ExportParquet(path string, items []Item) error {
	if err := seed.WriteParquet(path, toInternalItems(items)); err != nil {
		return fmt.Errorf("citymatch: export parquet: %w", err)
	}
	return nil
}

func build(ctx context.Context, items []poi.Item, cfg *engineConfig) (*Engine, error) {
	raw := vocab.Raw()
	if cfg.rawVocabularyPath != "" {
		v, err := vocab.LoadRawFile(cfg.rawVocabularyPath)
		if err != nil {
			return nil, fmt.Errorf("citymatch: %w", err)
		}
		raw = v
	}

	var (
		enc  rankuc.Encoder
		text profile.TextEncoder
	)
	if cfg.encoding == EncodingEmbedding {
		if cfg.embedder == nil || cfg.dimensions <= 0 {
			return nil, fmt.Errorf("citymatch: %w: embedding encoding needs WithEmbedder", ErrUnsupportedEncoding)
		}
		dense := vectorize.NewEmbedding(&embedderAdapter{inner: cfg.embedder}, cfg.dimensions)
		enc, text = dense, dense
	} else {
		v, err := vectorize.New(vectorize.Encoding(cfg.encoding), vocab.Curated(), raw)
		if err != nil {
			return nil, fmt.Errorf("citymatch: %w", err)
		}
		enc = v
	}

	start := time.Now()
	index, err := rankuc.BuildIndex(ctx, items, enc, cfg.workers)
	if err != nil {
		return nil, fmt.Errorf("citymatch: build index: %w", err)
	}
	cfg.logger.Debug("index built",
		zap.String("encoding", cfg.encoding),
		zap.Int("items", index.Len()),
		zap.Int("dimensions", index.Dimensions()),
		zap.Duration("took", time.Since(start)),
	)

	e := &Engine{index: index}
	if err := e.openDislikes(ctx, cfg); err != nil {
		return nil, err
	}

	// Pass a nil interface, not a typed nil, when no store is configured.
	var reader rankuc.DislikeReader
	if e.dislikes != nil {
		reader = e.dislikes
	}
	e.rank = rankuc.New(index, profile.New(enc, text), reader, pipelineConfig(cfg, raw))
	return e, nil
}

func (e *Engine) openDislikes(ctx context.Context, cfg *engineConfig) error {
	switch cfg.dislikeDriver {
	case "":
		return nil
	case "redis":
		store, err := dbRedis.NewStore(dbRedis.Config{Addrs: cfg.redisAddrs, Password: cfg.redisPassword})
		if err != nil {
			return fmt.Errorf("citymatch: create redis store: %w", err)
		}
		if err := store.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
			store.Close()
			return fmt.Errorf("citymatch: database not ready: %w", err)
		}
		e.dislikes = dislike.NewHashRepo(store)
		e.closers = append(e.closers, store.Close)
	case "sqlite":
		repo, err := dislike.OpenSQLite(ctx, cfg.sqlitePath)
		if err != nil {
			return fmt.Errorf("citymatch: %w", err)
		}
		e.dislikes = repo
		e.closers = append(e.closers, func() { _ = repo.Close() })
	default:
		return fmt.Errorf("citymatch: unknown dislike driver %q", cfg.dislikeDriver)
	}
	return nil
}

func pipelineConfig(cfg *engineConfig, raw *vocab.Vocabulary) rankuc.Config {
	out := rankuc.DefaultConfig(raw)
	out.Workers = cfg.workers
	if cfg.alpha != 0 || cfg.beta != 0 {
		out.Weights = rankuc.Weights{Alpha: cfg.alpha, Beta: cfg.beta}
	}
	if cfg.topN > 0 {
		out.Aggregate.TopN = cfg.topN
		out.Aggregate.MaxWeight = cfg.maxWeight
		out.Aggregate.MeanWeight = cfg.meanWeight
		out.Aggregate.DiversityWeight = cfg.divWeight
	}
	out.Aggregate.MinMaxScore = cfg.minCity
	if cfg.lambda != nil {
		out.Lambda = *cfg.lambda
	}
	if cfg.pool > 0 {
		out.CandidatePool = cfg.pool
	}
	return out
}

// Close releases the preference store, if any.
func (e *Engine) Close() {
	for _, c := range e.closers {
		c()
	}
	e.closers = nil
}

// Len returns the number of indexed items.
func (e *Engine) Len() int { return e.index.Len() }

// Dimensions returns the size of the vector space.
func (e *Engine) Dimensions() int { return e.index.Dimensions() }

// Cities returns the distinct indexed cities in first-seen order.
func (e *Engine) Cities() []string { return e.index.Cities() }

// RankPOIs returns the best items for q, best first.
func (e *Engine) RankPOIs(ctx context.Context, q Query) ([]ScoredPOI, error) {
	scored, err := e.rank.RankPOIs(ctx, q.toInternal())
	if err != nil {
		return nil, fmt.Errorf("citymatch: rank pois: %w", err)
	}
	return fromScored(scored), nil
}

// RankCities returns the best cities for q, best first, diversified when q.Diversify is set.
func (e *Engine) RankCities(ctx context.Context, q Query) ([]City, error) {
	cities, err := e.rank.RankCities(ctx, q.toInternal())
	if err != nil {
		return nil, fmt.Errorf("citymatch: rank cities: %w", err)
	}
	return fromAggregates(cities), nil
}

// Penalty returns 0.05 * weight summed over the disliked categories present
// in an item's tags or its city tags.
func Penalty(tags, cityTags []string, dislikes map[string]int) (float64, error) {
	target := (&poi.Item{Tags: tags, CityTags: cityTags}).PenaltyTags()
	p, err := rankuc.Penalty(target, ranking.DislikeWeights(dislikes))
	if err != nil {
		return 0, fmt.Errorf("citymatch: %w", err)
	}
	return p, nil
}

// Dislikes returns the stored weights of a user.
func (e *Engine) Dislikes(ctx context.Context, userID string) (map[string]int, error) {
	s, err := e.store()
	if err != nil {
		return nil, err
	}
	w, err := s.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("citymatch: %w", err)
	}
	return w, nil
}

// SetDislike stores a weight in [1,5] for a category.
func (e *Engine) SetDislike(ctx context.Context, userID, category string, weight int) error {
	s, err := e.store()
	if err != nil {
		return err
	}
	if err := s.Set(ctx, userID, category, weight); err != nil {
		return fmt.Errorf("citymatch: %w", err)
	}
	return nil
}

// AddDislike adds points to a category, capped at 5, and returns the new weight.
func (e *Engine) AddDislike(ctx context.Context, userID, category string, points int) (int, error) {
	s, err := e.store()
	if err != nil {
		return 0, err
	}
	w, err := s.Add(ctx, userID, category, points)
	if err != nil {
		return 0, fmt.Errorf("citymatch: %w", err)
	}
	return w, nil
}

// RemoveDislike forgets one category of a user.
func (e *Engine) RemoveDislike(ctx context.Context, userID, category string) error {
	s, err := e.store()
	if err != nil {
		return err
	}
	if err := s.Remove(ctx, userID, category); err != nil {
		return fmt.Errorf("citymatch: %w", err)
	}
	return nil
}

// ClearDislikes forgets every category of a user.
func (e *Engine) ClearDislikes(ctx context.Context, userID string) error {
	s, err := e.store()
	if err != nil {
		return err
	}
	if err := s.Clear(ctx, userID); err != nil {
		return fmt.Errorf("citymatch: %w", err)
	}
	return nil
}

func (e *Engine) store() (dislikeStore, error) {
	if e.dislikes == nil {
		return nil, fmt.Errorf("citymatch: %w: no dislike store configured", domain.ErrStoreUnavailable)
	}
	return e.dislikes, nil
}

// IsInvalidInput reports whether err was caused by the caller's input rather than a dependency.
func IsInvalidInput(err error) bool {
	for _, s := range []error{
		ErrVectorDimMismatch, ErrInvalidK, ErrInvalidDislikeWeight, ErrInvalidLambda,
		ErrInvalidConfig, ErrInvalidItem, ErrEmptyProfile, ErrUnsupportedEncoding,
	} {
		if errors.Is(err, s) {
			return true
		}
	}
	return false
}
