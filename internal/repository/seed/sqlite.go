package seed

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"

	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/kailas-cloud/citymatch/internal/domain/geo"
	"github.com/kailas-cloud/citymatch/internal/domain/poi"
)

// placesQuery yields one row per (place, category); places without a
// category appear once with a NULL category.
const placesQuery = `
SELECT p.id, p.name, p.lat, p.lon, ci.id, ci.name, COALESCE(co.name, ''), c.name
FROM places p
JOIN cities ci ON ci.id = p.city_id
LEFT JOIN countries co ON co.id = ci.country_id
LEFT JOIN place_categories pc ON pc.place_id = p.id
LEFT JOIN categories c ON c.id = pc.category_id
ORDER BY ci.id, p.id, c.name
`

// LoadSQLite reads places from the mobile database schema (countries, cities,
// places, categories, place_categories). A city's context tags are the
// distinct categories of its places.
func LoadSQLite(ctx context.Context, path string) ([]poi.Item, error) {
	conn, err := sql.Open("sqlite", "file:"+path+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("open seed database: %w", err)
	}
	defer func() { _ = conn.Close() }()

	return loadPlaces(ctx, conn)
}

func loadPlaces(ctx context.Context, conn *sql.DB) ([]poi.Item, error) {
	rows, err := conn.QueryContext(ctx, placesQuery)
	if err != nil {
		return nil, fmt.Errorf("query places: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var (
		items    []poi.Item
		cityTags = make(map[int64][]string)
		citySeen = make(map[int64]map[string]struct{})
		itemCity []int64
		lastID   int64 = -1
	)
	for rows.Next() {
		var (
			placeID, cityID  int64
			name, city, ctry string
			lat, lon         float64
			category         sql.NullString
		)
		if err := rows.Scan(&placeID, &name, &lat, &lon, &cityID, &city, &ctry, &category); err != nil {
			return nil, fmt.Errorf("scan place: %w", err)
		}

		if placeID != lastID {
			items = append(items, poi.Item{
				ID:       strconv.FormatInt(placeID, 10),
				Name:     name,
				City:     city,
				Country:  ctry,
				Location: &geo.Point{Lat: lat, Lon: lon},
			})
			itemCity = append(itemCity, cityID)
			lastID = placeID
		}
		if !category.Valid {
			continue
		}

		cur := &items[len(items)-1]
		cur.Tags = append(cur.Tags, category.String)

		seen, ok := citySeen[cityID]
		if !ok {
			seen = make(map[string]struct{})
			citySeen[cityID] = seen
		}
		if _, dup := seen[category.String]; !dup {
			seen[category.String] = struct{}{}
			cityTags[cityID] = append(cityTags[cityID], category.String)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate places: %w", err)
	}

	for i := range items {
		items[i].CityTags = cityTags[itemCity[i]]
	}
	return items, nil
}
