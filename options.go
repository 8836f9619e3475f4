package citymatch

import (
	"runtime"

	"go.uber.org/zap"
)

// Option configures an Engine.
type Option interface {
	apply(*engineConfig)
}

type optionFunc func(*engineConfig)

func (f optionFunc) apply(c *engineConfig) { f(c) }

// Encodings accepted by WithEncoding.
const (
	EncodingWeighted  = "weighted"
	EncodingMultiHot  = "multihot"
	EncodingEmbedding = "embedding"
)

type engineConfig struct {
	encoding string
	workers  int

	alpha, beta float64
	topN        int
	maxWeight   float64
	meanWeight  float64
	divWeight   float64
	minCity     float64
	lambda      *float64
	pool        int

	rawVocabularyPath string

	embedder   Embedder
	dimensions int

	dislikeDriver string // "redis" or "sqlite"
	redisAddrs    []string
	redisPassword string
	sqlitePath    string

	logger *zap.Logger
}

func newEngineConfig(opts []Option) *engineConfig {
	cfg := &engineConfig{
		encoding: EncodingWeighted,
		workers:  runtime.GOMAXPROCS(0),
		logger:   zap.NewNop(),
	}
	for _, o := range opts {
		o.apply(cfg)
	}
	if cfg.logger == nil {
		cfg.logger = zap.NewNop()
	}
	return cfg
}

// WithEncoding selects the vector space: weighted (default), multihot or embedding.
// The embedding encoding needs WithEmbedder.
func WithEncoding(encoding string) Option {
	return optionFunc(func(c *engineConfig) { c.encoding = encoding })
}

// WithWorkers bounds the goroutines used to build the index and score items.
func WithWorkers(n int) Option {
	return optionFunc(func(c *engineConfig) { c.workers = n })
}

// WithScoring sets the item and city-context weights of an item score.
func WithScoring(alpha, beta float64) Option {
	return optionFunc(func(c *engineConfig) { c.alpha, c.beta = alpha, beta })
}

// WithAggregation sets how item scores reduce to a city score.
func WithAggregation(topN int, maxWeight, meanWeight, diversityWeight float64) Option {
	return optionFunc(func(c *engineConfig) {
		c.topN = topN
		c.maxWeight, c.meanWeight, c.divWeight = maxWeight, meanWeight, diversityWeight
	})
}

// WithMinCityScore drops cities whose best item scores below floor.
func WithMinCityScore(floor float64) Option {
	return optionFunc(func(c *engineConfig) { c.minCity = floor })
}

// WithLambda sets the default relevance/novelty trade-off of city diversification.
func WithLambda(lambda float64) Option {
	return optionFunc(func(c *engineConfig) { c.lambda = &lambda })
}

// WithCandidatePool caps the scored items handed to city aggregation.
func WithCandidatePool(n int) Option {
	return optionFunc(func(c *engineConfig) { c.pool = n })
}

// WithRawVocabulary loads the raw category list from a YAML file instead of the built-in one.
func WithRawVocabulary(path string) Option {
	return optionFunc(func(c *engineConfig) { c.rawVocabularyPath = path })
}

// WithEmbedder attaches a dense text-embedding provider producing vectors of dims.
// It enables free-text preferences under the embedding encoding.
func WithEmbedder(e Embedder, dims int) Option {
	return optionFunc(func(c *engineConfig) {
		c.embedder = e
		c.dimensions = dims
	})
}

// WithRedisDislikes keeps dislike weights in Redis or Valkey.
func WithRedisDislikes(addr, password string) Option {
	return optionFunc(func(c *engineConfig) {
		c.dislikeDriver = "redis"
		c.redisAddrs = []string{addr}
		c.redisPassword = password
	})
}

// WithSQLiteDislikes keeps dislike weights in a SQLite file.
func WithSQLiteDislikes(path string) Option {
	return optionFunc(func(c *engineConfig) {
		c.dislikeDriver = "sqlite"
		c.sqlitePath = path
	})
}

// WithLogger sets the logger used while building the engine.
func WithLogger(l *zap.Logger) Option {
	return optionFunc(func(c *engineConfig) { c.logger = l })
}
