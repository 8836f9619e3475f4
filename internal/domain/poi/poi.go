// Package poi holds the catalog item read by the ranking pipeline.
package poi

import (
	"fmt"
	"strings"

	"github.com/kailas-cloud/citymatch/internal/domain"
	"github.com/kailas-cloud/citymatch/internal/domain/geo"
)

// Item is a single point of interest together with the context tags of its city.
// Items are read-only once loaded.
type Item struct {
	ID       string     `json:"id,omitempty"`
	Name     string     `json:"name,omitempty"`
	City     string     `json:"city"`
	Country  string     `json:"country"`
	Location *geo.Point `json:"location,omitempty"`
	Tags     []string   `json:"tags"`
	CityTags []string   `json:"city_tags"`
}

// Validate checks the fields the pipeline depends on.
func (it *Item) Validate() error {
	if strings.TrimSpace(it.City) == "" {
		return fmt.Errorf("%w: city is required", domain.ErrInvalidItem)
	}
	if it.Location != nil {
		if _, err := geo.NewPoint(it.Location.Lat, it.Location.Lon); err != nil {
			return fmt.Errorf("%w: %q: %v", domain.ErrInvalidItem, it.City, err)
		}
	}
	return nil
}

// PenaltyTags returns the tag set a dislike penalty is evaluated against:
// the item's own tags followed by its city tags, deduplicated.
func (it *Item) PenaltyTags() []string {
	seen := make(map[string]struct{}, len(it.Tags)+len(it.CityTags))
	out := make([]string, 0, len(it.Tags)+len(it.CityTags))
	for _, group := range [][]string{it.Tags, it.CityTags} {
		for _, t := range group {
			if _, ok := seen[t]; ok {
				continue
			}
			seen[t] = struct{}{}
			out = append(out, t)
		}
	}
	return out
}
