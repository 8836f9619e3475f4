// Package seed loads the POI catalog from JSON, Parquet or SQLite files.
package seed

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/kailas-cloud/citymatch/internal/domain"
	"github.com/kailas-cloud/citymatch/internal/domain/poi"
)

// Format names a seed file encoding.
type Format string

// Supported formats.
const (
	FormatJSON    Format = "json"
	FormatParquet Format = "parquet"
	FormatSQLite  Format = "sqlite"
)

// Source locates a seed file.
type Source struct {
	// Format is inferred from the extension when empty.
	Format Format
	Path   string
}

// Load reads every item of the source and validates it.
func Load(ctx context.Context, src Source) ([]poi.Item, error) {
	format, err := resolveFormat(src)
	if err != nil {
		return nil, err
	}

	var items []poi.Item
	switch format {
	case FormatJSON:
		items, err = loadJSONFile(src.Path)
	case FormatParquet:
		items, err = LoadParquet(src.Path)
	case FormatSQLite:
		items, err = LoadSQLite(ctx, src.Path)
	}
	if err != nil {
		return nil, err
	}

	if err := validate(items); err != nil {
		return nil, fmt.Errorf("%s: %w", src.Path, err)
	}
	return items, nil
}

func resolveFormat(src Source) (Format, error) {
	if src.Format != "" {
		switch src.Format {
		case FormatJSON, FormatParquet, FormatSQLite:
			return src.Format, nil
		}
		return "", fmt.Errorf("%w: unknown seed format %q", domain.ErrInvalidConfig, src.Format)
	}
	switch strings.ToLower(filepath.Ext(src.Path)) {
	case ".json":
		return FormatJSON, nil
	case ".parquet":
		return FormatParquet, nil
	case ".db", ".sqlite", ".sqlite3":
		return FormatSQLite, nil
	}
	return "", fmt.Errorf("%w: cannot infer seed format from %q", domain.ErrInvalidConfig, src.Path)
}

func validate(items []poi.Item) error {
	for i := range items {
		if err := items[i].Validate(); err != nil {
			return fmt.Errorf("item %d (%s): %w", i, items[i].ID, err)
		}
	}
	return nil
}

func loadJSONFile(path string) ([]poi.Item, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("open seed: %w", err)
	}
	defer func() { _ = f.Close() }()
	return LoadJSON(f)
}

// itemID returns id, or a city-scoped positional id when it is empty.
func itemID(id, city string, n int) string {
	if id != "" {
		return id
	}
	return fmt.Sprintf("%s#%d", city, n)
}
