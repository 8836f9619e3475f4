package seed

import (
	"fmt"
	"io"

	"github.com/goccy/go-json"

	"github.com/kailas-cloud/citymatch/internal/domain/geo"
	"github.com/kailas-cloud/citymatch/internal/domain/poi"
)

type cityRecord struct {
	City     string      `json:"city"`
	Country  string      `json:"country"`
	Lat      *float64    `json:"lat"`
	Lon      *float64    `json:"lon"`
	CityTags []string    `json:"city_tags"`
	POIs     []poiRecord `json:"pois"`
}

type poiRecord struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Lat        *float64 `json:"lat"`
	Lon        *float64 `json:"lon"`
	Categories []string `json:"categories"`
}

// LoadJSON decodes an array of city records, each carrying its places.
// A place without coordinates inherits the city's.
func LoadJSON(r io.Reader) ([]poi.Item, error) {
	var cities []cityRecord
	if err := json.NewDecoder(r).Decode(&cities); err != nil {
		return nil, fmt.Errorf("decode seed json: %w", err)
	}

	var items []poi.Item
	for _, c := range cities {
		cityLoc := point(c.Lat, c.Lon)
		for n, p := range c.POIs {
			loc := point(p.Lat, p.Lon)
			if loc == nil {
				loc = cityLoc
			}
			items = append(items, poi.Item{
				ID:       itemID(p.ID, c.City, n),
				Name:     p.Name,
				City:     c.City,
				Country:  c.Country,
				Location: loc,
				Tags:     p.Categories,
				CityTags: c.CityTags,
			})
		}
	}
	return items, nil
}

func point(lat, lon *float64) *geo.Point {
	if lat == nil || lon == nil {
		return nil
	}
	return &geo.Point{Lat: *lat, Lon: *lon}
}
