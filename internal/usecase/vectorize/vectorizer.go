// Package vectorize turns tag sets and free text into vectors.
package vectorize

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/citymatch/internal/domain"
	"github.com/kailas-cloud/citymatch/internal/domain/vector"
	"github.com/kailas-cloud/citymatch/internal/domain/vocab"
)

// Encoding names a vectorization strategy.
type Encoding string

// Supported encodings.
const (
	EncodingWeighted  Encoding = "weighted"
	EncodingMultiHot  Encoding = "multihot"
	EncodingEmbedding Encoding = "embedding"
)

// Vectorizer maps a tag set onto a fixed-dimension vector. Unknown tags are ignored.
// Encode is Vectorize behind the context-aware encoder contract of the index.
type Vectorizer interface {
	Vectorize(tags []string) vector.Vector
	Encode(ctx context.Context, tags []string) (vector.Vector, error)
	Dimensions() int
	Name() string
}

// UnmappedFunc observes a tag dropped by a vectorizer.
type UnmappedFunc func(vocabulary, tag string)

// Option configures a tag vectorizer.
type Option func(*base)

// WithUnmappedObserver reports every tag the vocabulary cannot place.
func WithUnmappedObserver(fn UnmappedFunc) Option {
	return func(b *base) { b.onUnmapped = fn }
}

type base struct {
	vocab      *vocab.Vocabulary
	onUnmapped UnmappedFunc
}

func newBase(v *vocab.Vocabulary, opts []Option) base {
	b := base{vocab: v}
	for _, opt := range opts {
		opt(&b)
	}
	return b
}

func (b *base) unmapped(tag string) {
	if b.onUnmapped != nil {
		b.onUnmapped(b.vocab.Name(), tag)
	}
}

// Dimensions returns the vocabulary size.
func (b *base) Dimensions() int { return b.vocab.Len() }

// Weighted is the curated encoding: canonicalized tags set their slot to the
// tag's weight and the result is L2-normalized.
type Weighted struct {
	base
}

// NewWeighted creates a weighted vectorizer over v.
func NewWeighted(v *vocab.Vocabulary, opts ...Option) *Weighted {
	return &Weighted{base: newBase(v, opts)}
}

// Name returns the encoding name.
func (w *Weighted) Name() string { return string(EncodingWeighted) }

// Vectorize returns a unit vector, or the zero vector when no tag is recognized.
func (w *Weighted) Vectorize(tags []string) vector.Vector {
	out := vector.Zeros(w.vocab.Len())
	for _, t := range tags {
		id, ok := w.vocab.Canonicalize(t)
		if !ok {
			w.unmapped(t)
			continue
		}
		out[id] = w.vocab.Weight(id)
	}
	return out.Normalize()
}

// Encode implements the ranking encoder contract. It never fails.
func (w *Weighted) Encode(_ context.Context, tags []string) (vector.Vector, error) {
	return w.Vectorize(tags), nil
}

// MultiHot is the raw encoding: exact category matches set their slot to 1.
type MultiHot struct {
	base
}

// NewMultiHot creates a multi-hot vectorizer over v.
func NewMultiHot(v *vocab.Vocabulary, opts ...Option) *MultiHot {
	return &MultiHot{base: newBase(v, opts)}
}

// Name returns the encoding name.
func (m *MultiHot) Name() string { return string(EncodingMultiHot) }

// Vectorize returns a 0/1 vector, not normalized.
func (m *MultiHot) Vectorize(tags []string) vector.Vector {
	out := vector.Zeros(m.vocab.Len())
	for _, t := range tags {
		id, ok := m.vocab.IndexOf(t)
		if !ok {
			m.unmapped(t)
			continue
		}
		out[id] = 1
	}
	return out
}

// Encode implements the ranking encoder contract. It never fails.
func (m *MultiHot) Encode(_ context.Context, tags []string) (vector.Vector, error) {
	return m.Vectorize(tags), nil
}

// New selects a tag vectorizer by encoding.
func New(enc Encoding, curated, raw *vocab.Vocabulary, opts ...Option) (Vectorizer, error) {
	switch enc {
	case EncodingWeighted, "":
		return NewWeighted(curated, opts...), nil
	case EncodingMultiHot:
		return NewMultiHot(raw, opts...), nil
	default:
		return nil, fmt.Errorf("%w: %q is not a tag encoding", domain.ErrUnsupportedEncoding, enc)
	}
}
