package seed

import (
	"fmt"
	"path/filepath"

	"github.com/parquet-go/parquet-go"

	"github.com/kailas-cloud/citymatch/internal/domain/geo"
	"github.com/kailas-cloud/citymatch/internal/domain/poi"
)

// Row is the flat Parquet layout: one place per row with its city context.
type Row struct {
	ID         string   `parquet:"id,optional"`
	City       string   `parquet:"city"`
	Country    string   `parquet:"country,optional"`
	Name       string   `parquet:"name,optional"`
	Lat        *float64 `parquet:"lat,optional"`
	Lon        *float64 `parquet:"lon,optional"`
	Categories []string `parquet:"categories,list"`
	CityTags   []string `parquet:"city_tags,list"`
}

// LoadParquet reads every row of a Parquet seed file.
func LoadParquet(path string) ([]poi.Item, error) {
	rows, err := parquet.ReadFile[Row](filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read parquet seed: %w", err)
	}

	items := make([]poi.Item, len(rows))
	perCity := make(map[string]int)
	for i, r := range rows {
		items[i] = poi.Item{
			ID:       itemID(r.ID, r.City, perCity[r.City]),
			Name:     r.Name,
			City:     r.City,
			Country:  r.Country,
			Location: point(r.Lat, r.Lon),
			Tags:     r.Categories,
			CityTags: r.CityTags,
		}
		perCity[r.City]++
	}
	return items, nil
}

// WriteParquet writes items in the layout LoadParquet reads.
func WriteParquet(path string, items []poi.Item) error {
	rows := make([]Row, len(items))
	for i := range items {
		it := &items[i]
		rows[i] = Row{
			ID:         it.ID,
			City:       it.City,
			Country:    it.Country,
			Name:       it.Name,
			Categories: it.Tags,
			CityTags:   it.CityTags,
		}
		if it.Location != nil {
			rows[i].Lat, rows[i].Lon = coords(*it.Location)
		}
	}
	if err := parquet.WriteFile(filepath.Clean(path), rows); err != nil {
		return fmt.Errorf("write parquet seed: %w", err)
	}
	return nil
}

func coords(p geo.Point) (*float64, *float64) {
	lat, lon := p.Lat, p.Lon
	return &lat, &lon
}
