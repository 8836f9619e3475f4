package vectorize

import (
	"context"
	"fmt"
	"strings"

	"github.com/kailas-cloud/citymatch/internal/domain"
	"github.com/kailas-cloud/citymatch/internal/domain/vector"
)

// Embedding encodes tags and free text with a dense text-embedding provider.
// Outputs are L2-normalized so dot products equal cosine similarity.
type Embedding struct {
	embedder domain.Embedder
	dims     int
}

// NewEmbedding wraps an embedder. dims is the expected output size.
func NewEmbedding(e domain.Embedder, dims int) *Embedding {
	return &Embedding{embedder: e, dims: dims}
}

// Name returns the encoding name.
func (e *Embedding) Name() string { return string(EncodingEmbedding) }

// Dimensions returns the embedding size.
func (e *Embedding) Dimensions() int { return e.dims }

// Encode embeds the tag set as a short phrase.
func (e *Embedding) Encode(ctx context.Context, tags []string) (vector.Vector, error) {
	return e.EncodeText(ctx, TagPhrase(tags))
}

// EncodeText embeds free text. Blank text yields the zero vector without a provider call.
func (e *Embedding) EncodeText(ctx context.Context, text string) (vector.Vector, error) {
	if strings.TrimSpace(text) == "" {
		return vector.Zeros(e.dims), nil
	}
	res, err := e.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("encode text: %w", err)
	}
	if len(res.Embedding) != e.dims {
		return nil, fmt.Errorf("%w: provider returned %d, expected %d",
			domain.ErrVectorDimMismatch, len(res.Embedding), e.dims)
	}
	return vector.FromFloat32(res.Embedding).Normalize(), nil
}

var phraseReplacer = strings.NewReplacer(".", " ", "_", " ")

// TagPhrase renders tags as text, e.g. "catering.restaurant" -> "catering restaurant".
func TagPhrase(tags []string) string {
	parts := make([]string, 0, len(tags))
	for _, t := range tags {
		if t = strings.TrimSpace(t); t != "" {
			parts = append(parts, phraseReplacer.Replace(t))
		}
	}
	return strings.Join(parts, ", ")
}
