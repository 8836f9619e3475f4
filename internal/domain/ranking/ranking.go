// Package ranking holds the values produced by one ranking pass.
package ranking

import (
	"fmt"

	"github.com/kailas-cloud/citymatch/internal/domain"
	"github.com/kailas-cloud/citymatch/internal/domain/geo"
	"github.com/kailas-cloud/citymatch/internal/domain/poi"
	"github.com/kailas-cloud/citymatch/internal/domain/vector"
)

// Dislike weight bounds.
const (
	MinDislikeWeight = 1
	MaxDislikeWeight = 5
)

// Scored is an item with its relevance. Score is Raw minus Penalty.
type Scored struct {
	Item    *poi.Item
	Score   float64
	Raw     float64
	Penalty float64
}

// CityAggregate is one city reduced from its scored items.
type CityAggregate struct {
	City      string
	Country   string
	Score     float64
	MaxScore  float64
	MeanTopN  float64
	Diversity float64
	POICount  int
	Tags      []string
	Centroid  *geo.Point
}

// Candidate is an element offered to the diversifier.
type Candidate[T any] struct {
	Value  T
	Score  float64
	Vector vector.Vector
}

// DislikeWeights maps a category to its severity.
type DislikeWeights map[string]int

// Validate checks every weight is within [MinDislikeWeight, MaxDislikeWeight].
func (d DislikeWeights) Validate() error {
	for cat, w := range d {
		if err := ValidateDislikeWeight(w); err != nil {
			return fmt.Errorf("category %q: %w", cat, err)
		}
	}
	return nil
}

// ValidateDislikeWeight checks a single weight.
func ValidateDislikeWeight(w int) error {
	if w < MinDislikeWeight || w > MaxDislikeWeight {
		return fmt.Errorf("%w, got %d", domain.ErrInvalidDislikeWeight, w)
	}
	return nil
}

// Preferences is what a request says about the user. The first usable signal
// wins: an explicit vector, then likes text, then tags.
type Preferences struct {
	Vector       vector.Vector
	LikesText    string
	DislikesText string
	Tags         []string
}
