// Package profile builds the user preference vector for a ranking request.
package profile

import (
	"context"
	"fmt"
	"strings"

	"github.com/kailas-cloud/citymatch/internal/domain"
	"github.com/kailas-cloud/citymatch/internal/domain/ranking"
	"github.com/kailas-cloud/citymatch/internal/domain/vector"
)

// TagEncoder encodes a tag set.
type TagEncoder interface {
	Encode(ctx context.Context, tags []string) (vector.Vector, error)
	Dimensions() int
}

// TextEncoder encodes free text. Only dense encoders implement it.
type TextEncoder interface {
	EncodeText(ctx context.Context, text string) (vector.Vector, error)
}

// Builder resolves Preferences into a single vector in the index space.
type Builder struct {
	tags TagEncoder
	text TextEncoder
}

// New creates a Builder. text may be nil when no dense encoder is configured.
func New(tags TagEncoder, text TextEncoder) *Builder {
	return &Builder{tags: tags, text: text}
}

// Build returns the user vector. Likes text is encoded as embed(likes) - embed(dislikes).
func (b *Builder) Build(ctx context.Context, p *ranking.Preferences) (vector.Vector, error) {
	switch {
	case len(p.Vector) > 0:
		if len(p.Vector) != b.tags.Dimensions() {
			return nil, fmt.Errorf("%w: user vector has %d dimensions, index has %d",
				domain.ErrVectorDimMismatch, len(p.Vector), b.tags.Dimensions())
		}
		return p.Vector, nil
	case strings.TrimSpace(p.LikesText) != "":
		return b.fromText(ctx, p.LikesText, p.DislikesText)
	case len(p.Tags) > 0:
		v, err := b.tags.Encode(ctx, p.Tags)
		if err != nil {
			return nil, fmt.Errorf("encode user tags: %w", err)
		}
		return v, nil
	default:
		return nil, domain.ErrEmptyProfile
	}
}

func (b *Builder) fromText(ctx context.Context, likes, dislikes string) (vector.Vector, error) {
	if b.text == nil {
		return nil, fmt.Errorf("%w: free-text preferences need a dense encoder", domain.ErrUnsupportedEncoding)
	}
	liked, err := b.text.EncodeText(ctx, likes)
	if err != nil {
		return nil, fmt.Errorf("encode likes: %w", err)
	}
	if strings.TrimSpace(dislikes) == "" {
		return liked, nil
	}
	disliked, err := b.text.EncodeText(ctx, dislikes)
	if err != nil {
		return nil, fmt.Errorf("encode dislikes: %w", err)
	}
	out, err := vector.Sub(liked, disliked)
	if err != nil {
		return nil, fmt.Errorf("subtract dislikes: %w", err)
	}
	return out, nil
}
