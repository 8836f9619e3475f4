// Package vocab defines the tag vocabularies that give each vector slot its meaning.
//
// A Vocabulary is immutable after construction and safe for concurrent reads.
package vocab

import (
	"errors"
	"fmt"
	"strings"
)

// TagID is the interned index of a canonical tag within one vocabulary.
type TagID int32

// DefaultWeight applies to tags without an explicit weight.
const DefaultWeight = 1.0

var errInvalidVocabulary = errors.New("invalid vocabulary")

// Vocabulary is an ordered list of canonical tags with optional per-tag
// weights and an alias table from source category strings to canonical tags.
type Vocabulary struct {
	name    string
	tags    []string
	index   map[string]TagID
	weights []float64
	aliases map[string]TagID
}

type options struct {
	weights map[string]float64
	aliases map[string]string
}

// Option configures a Vocabulary.
type Option func(*options)

// WithWeights sets per-tag weights. Every key must be a canonical tag.
func WithWeights(w map[string]float64) Option {
	return func(o *options) { o.weights = w }
}

// WithAliases maps source category strings to canonical tags.
func WithAliases(a map[string]string) Option {
	return func(o *options) { o.aliases = a }
}

// New builds a vocabulary. Slot order follows tags.
func New(name string, tags []string, opts ...Option) (*Vocabulary, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if len(tags) == 0 {
		return nil, fmt.Errorf("%w %q: no tags", errInvalidVocabulary, name)
	}

	v := &Vocabulary{
		name:    name,
		tags:    make([]string, len(tags)),
		index:   make(map[string]TagID, len(tags)),
		weights: make([]float64, len(tags)),
		aliases: make(map[string]TagID, len(o.aliases)),
	}
	for i, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			return nil, fmt.Errorf("%w %q: empty tag at position %d", errInvalidVocabulary, name, i)
		}
		if _, dup := v.index[t]; dup {
			return nil, fmt.Errorf("%w %q: duplicate tag %q", errInvalidVocabulary, name, t)
		}
		v.tags[i] = t
		v.index[t] = TagID(i)
		v.weights[i] = DefaultWeight
	}

	for t, w := range o.weights {
		id, ok := v.index[t]
		if !ok {
			return nil, fmt.Errorf("%w %q: weight for unknown tag %q", errInvalidVocabulary, name, t)
		}
		v.weights[id] = w
	}

	for src, target := range o.aliases {
		id, ok := v.index[target]
		if !ok {
			return nil, fmt.Errorf("%w %q: alias %q targets unknown tag %q", errInvalidVocabulary, name, src, target)
		}
		v.aliases[src] = id
	}

	return v, nil
}

// Name returns the vocabulary name.
func (v *Vocabulary) Name() string { return v.name }

// Len returns the number of slots.
func (v *Vocabulary) Len() int { return len(v.tags) }

// Tags returns a copy of the canonical tags in slot order.
func (v *Vocabulary) Tags() []string {
	out := make([]string, len(v.tags))
	copy(out, v.tags)
	return out
}

// Tag returns the canonical tag at id.
func (v *Vocabulary) Tag(id TagID) string { return v.tags[id] }

// Weight returns the weight of the tag at id.
func (v *Vocabulary) Weight(id TagID) float64 { return v.weights[id] }

// IndexOf returns the slot of an exact canonical tag.
func (v *Vocabulary) IndexOf(tag string) (TagID, bool) {
	id, ok := v.index[tag]
	return id, ok
}

// Canonicalize resolves a source category to a canonical slot. A string that is
// already canonical wins over the alias table. Unmapped input returns false.
func (v *Vocabulary) Canonicalize(raw string) (TagID, bool) {
	if id, ok := v.index[raw]; ok {
		return id, true
	}
	id, ok := v.aliases[raw]
	return id, ok
}

// Aliases returns a copy of the alias table as source -> canonical tag.
func (v *Vocabulary) Aliases() map[string]string {
	out := make(map[string]string, len(v.aliases))
	for src, id := range v.aliases {
		out[src] = v.tags[id]
	}
	return out
}
