package embedding

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/citymatch/internal/domain"
	"github.com/kailas-cloud/citymatch/internal/metrics"
)

// InstrumentedEmbedder wraps Embedder with logging and output validation:
// the vector must have the configured size and only finite components.
// Transport metrics (requests, duration, tokens) are recorded in transport/openai.
type InstrumentedEmbedder struct {
	inner      domain.Embedder
	provider   string
	model      string
	dimensions int
	logger     *zap.Logger
}

// NewInstrumentedEmbedder wraps an embedder. dimensions of zero skips the size check.
func NewInstrumentedEmbedder(
	inner domain.Embedder, provider, model string, dimensions int, logger *zap.Logger,
) *InstrumentedEmbedder {
	return &InstrumentedEmbedder{
		inner:      inner,
		provider:   provider,
		model:      model,
		dimensions: dimensions,
		logger:     logger,
	}
}

// Unwrap returns the decorated embedder.
func (p *InstrumentedEmbedder) Unwrap() domain.Embedder { return p.inner }

// Embed delegates to the inner embedder and rejects vectors of the wrong size.
func (p *InstrumentedEmbedder) Embed(
	ctx context.Context, text string,
) (domain.EmbeddingResult, error) {
	start := time.Now()

	result, err := p.inner.Embed(ctx, text)

	duration := time.Since(start)

	if err != nil {
		p.logger.Error("Embedding request failed",
			zap.String("provider", p.provider),
			zap.String("model", p.model),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		return domain.EmbeddingResult{}, fmt.Errorf("embed: %w", err)
	}

	if p.dimensions > 0 && len(result.Embedding) != p.dimensions {
		metrics.EmbeddingErrorsTotal.WithLabelValues(p.provider, p.model, "dimension_mismatch").Inc()
		p.logger.Error("Embedding has unexpected dimensions",
			zap.String("provider", p.provider),
			zap.String("model", p.model),
			zap.Int("expected", p.dimensions),
			zap.Int("got", len(result.Embedding)),
		)
		return domain.EmbeddingResult{}, fmt.Errorf("%w: model %s returned %d dimensions, expected %d",
			domain.ErrVectorDimMismatch, p.model, len(result.Embedding), p.dimensions)
	}

	if i := firstNonFinite(result.Embedding); i >= 0 {
		metrics.EmbeddingErrorsTotal.WithLabelValues(p.provider, p.model, "non_finite").Inc()
		p.logger.Error("Embedding has non-finite components",
			zap.String("provider", p.provider),
			zap.String("model", p.model),
			zap.Int("index", i),
		)
		return domain.EmbeddingResult{}, fmt.Errorf("%w: model %s returned a non-finite value at %d",
			domain.ErrEmbeddingProviderError, p.model, i)
	}

	p.logger.Debug("Embedding request completed",
		zap.String("provider", p.provider),
		zap.String("model", p.model),
		zap.Duration("duration", duration),
		zap.Int("dimensions", len(result.Embedding)),
		zap.Int("prompt_tokens", result.PromptTokens),
		zap.Int("total_tokens", result.TotalTokens),
	)

	return result, nil
}

func firstNonFinite(v []float32) int {
	for i, x := range v {
		if f := float64(x); math.IsNaN(f) || math.IsInf(f, 0) {
			return i
		}
	}
	return -1
}
