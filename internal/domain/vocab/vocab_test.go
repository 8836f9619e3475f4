package vocab

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
)

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name string
		tags []string
		opts []Option
	}{
		{"empty", nil, nil},
		{"blank tag", []string{"a", " "}, nil},
		{"duplicate", []string{"a", "b", "a"}, nil},
		{"weight for unknown tag", []string{"a"}, []Option{WithWeights(map[string]float64{"b": 2})}},
		{"alias to unknown tag", []string{"a"}, []Option{WithAliases(map[string]string{"x": "b"})}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := New("test", tc.tags, tc.opts...); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestIndexOf(t *testing.T) {
	v, err := New("test", []string{"museum", "beach", "ski"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	id, ok := v.IndexOf("beach")
	if !ok || id != 1 {
		t.Fatalf("expected (1, true), got (%d, %v)", id, ok)
	}
	if _, ok := v.IndexOf("unknown"); ok {
		t.Fatal("expected not found")
	}
	if v.Tag(2) != "ski" {
		t.Errorf("expected ski, got %q", v.Tag(2))
	}
	if v.Weight(0) != DefaultWeight {
		t.Errorf("expected default weight, got %f", v.Weight(0))
	}
}

func TestCanonicalize_CanonicalWinsOverAlias(t *testing.T) {
	v, err := New("test", []string{"park", "lake"},
		WithAliases(map[string]string{"park": "lake", "natural.lake": "lake"}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	id, ok := v.Canonicalize("park")
	if !ok || v.Tag(id) != "park" {
		t.Errorf("expected park to stay canonical, got %q", v.Tag(id))
	}
	id, ok = v.Canonicalize("natural.lake")
	if !ok || v.Tag(id) != "lake" {
		t.Errorf("expected alias to resolve to lake, got %q", v.Tag(id))
	}
	if _, ok := v.Canonicalize("sea"); ok {
		t.Error("expected unmapped tag to return false")
	}
}

func TestTags_ReturnsCopy(t *testing.T) {
	v, _ := New("test", []string{"a", "b"})
	tags := v.Tags()
	tags[0] = "mutated"
	if v.Tag(0) != "a" {
		t.Fatal("vocabulary mutated through Tags()")
	}
}

func TestCurated(t *testing.T) {
	v := Curated()
	if v.Name() != CuratedName {
		t.Errorf("expected name %q, got %q", CuratedName, v.Name())
	}
	if v.Len() != len(curatedTags) {
		t.Fatalf("expected %d tags, got %d", len(curatedTags), v.Len())
	}
	for _, tc := range []struct {
		raw, want string
		weight    float64
	}{
		{"museum", "museum", 1.2},
		{"entertainment.museum", "museum", 1.2},
		{"heritage", "historical", 1.1},
		{"sport.surf", "surfing", 1.4},
		{"catering.fast_food", "restaurant", 1.0},
		{"wheelchair.yes", "accessible", 0.3},
	} {
		id, ok := v.Canonicalize(tc.raw)
		if !ok {
			t.Errorf("%q: expected mapping", tc.raw)
			continue
		}
		if v.Tag(id) != tc.want {
			t.Errorf("%q: expected %q, got %q", tc.raw, tc.want, v.Tag(id))
		}
		if v.Weight(id) != tc.weight {
			t.Errorf("%q: expected weight %f, got %f", tc.raw, tc.weight, v.Weight(id))
		}
	}
	if Curated() != v {
		t.Error("expected Curated to return the same instance")
	}
}

func TestRaw_Embedded(t *testing.T) {
	v := Raw()
	if v.Len() != 287 {
		t.Fatalf("expected 287 categories, got %d", v.Len())
	}
	tags := v.Tags()
	if !sort.StringsAreSorted(tags) {
		t.Error("expected raw categories sorted")
	}
	for _, c := range []string{"adult.nightclub", "heritage.unesco", "catering.restaurant", "wheelchair.yes"} {
		if _, ok := v.IndexOf(c); !ok {
			t.Errorf("expected %q in raw vocabulary", c)
		}
	}
	if len(v.Aliases()) != 0 {
		t.Error("raw vocabulary must not alias")
	}
}

func TestLoadRaw(t *testing.T) {
	v, err := LoadRaw(strings.NewReader("categories:\n  - a.b\n  - c\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.Name() != RawName || v.Len() != 2 {
		t.Fatalf("unexpected vocabulary: name=%q len=%d", v.Name(), v.Len())
	}
}

func TestLoadRaw_Invalid(t *testing.T) {
	if _, err := LoadRaw(strings.NewReader("categories: [a, a]")); err == nil {
		t.Fatal("expected duplicate error")
	}
	if _, err := LoadRaw(strings.NewReader("categories: {")); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestLoadRawFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cats.yaml")
	if err := os.WriteFile(path, []byte("name: custom\ncategories: [x, y, z]\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	v, err := LoadRawFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.Name() != "custom" || v.Len() != 3 {
		t.Fatalf("unexpected vocabulary: name=%q len=%d", v.Name(), v.Len())
	}
	if _, err := LoadRawFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
