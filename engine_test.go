package citymatch

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"strings"
	"testing"
)

// --- Mocks ---

// keywordEmbedder maps text onto three axes by keyword.
type keywordEmbedder struct {
	calls int
}

func (e *keywordEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	e.calls++
	v := make([]float32, 3)
	for i, kw := range []string{"museum", "beach", "mountain"} {
		if strings.Contains(text, kw) {
			v[i] = 1
		}
	}
	return v, nil
}

type failingEmbedder struct{}

func (failingEmbedder) Embed(context.Context, string) ([]float32, error) {
	return nil, errors.New("provider down")
}

// --- Helpers ---

func testItems() []Item {
	return []Item{
		{
			ID: "louvre", Name: "Louvre", City: "Paris", Country: "FR",
			Location: &Point{Lat: 48.8606, Lon: 2.3376},
			Tags:     []string{"entertainment.museum"},
			CityTags: []string{"museum", "art", "historical"},
		},
		{
			ID: "promenade", City: "Nice", Country: "FR",
			Location: &Point{Lat: 43.6950, Lon: 7.2650},
			Tags:     []string{"beach.beach_resort"},
			CityTags: []string{"beach", "warm"},
		},
		{
			ID: "aiguille", City: "Chamonix", Country: "FR",
			Location: &Point{Lat: 45.9237, Lon: 6.8694},
			Tags:     []string{"natural.mountain"},
			CityTags: []string{"mountain", "ski", "cold"},
		},
	}
}

func newTestEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	e, err := New(context.Background(), testItems(), append([]Option{WithWorkers(2)}, opts...)...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(e.Close)
	return e
}

// --- Tests ---

func TestNew_Defaults(t *testing.T) {
	e := newTestEngine(t)
	if e.Len() != 3 {
		t.Errorf("expected 3 items, got %d", e.Len())
	}
	cities := e.Cities()
	if len(cities) != 3 || cities[0] != "Paris" {
		t.Errorf("unexpected cities: %v", cities)
	}
}

func TestNew_Errors(t *testing.T) {
	tests := []struct {
		name string
		opts []Option
		want error
	}{
		{"unknown encoding", []Option{WithEncoding("tfidf")}, ErrUnsupportedEncoding},
		{"embedding without embedder", []Option{WithEncoding(EncodingEmbedding)}, ErrUnsupportedEncoding},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(context.Background(), testItems(), tt.opts...)
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
			if !IsInvalidInput(err) {
				t.Errorf("expected invalid input, got %v", err)
			}
		})
	}
}

func TestEngine_RankPOIs(t *testing.T) {
	e := newTestEngine(t)

	got, err := e.RankPOIs(context.Background(), Query{Tags: []string{"museum", "art"}, Limit: 2})
	if err != nil {
		t.Fatalf("RankPOIs: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 items, got %d", len(got))
	}
	if got[0].Item.ID != "louvre" {
		t.Errorf("expected louvre first, got %s", got[0].Item.ID)
	}
	if got[0].Item.Location == nil {
		t.Error("expected location to survive conversion")
	}
	if got[0].Score < got[1].Score {
		t.Errorf("expected descending scores, got %f then %f", got[0].Score, got[1].Score)
	}
}

func TestEngine_RankCities(t *testing.T) {
	e := newTestEngine(t, WithLambda(0.7))

	got, err := e.RankCities(context.Background(), Query{Tags: []string{"mountain", "ski"}, Diversify: true})
	if err != nil {
		t.Fatalf("RankCities: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 cities, got %d", len(got))
	}
	if got[0].Name != "Chamonix" {
		t.Errorf("expected Chamonix first, got %s", got[0].Name)
	}
	if got[0].POICount != 1 || got[0].Centroid == nil {
		t.Errorf("unexpected aggregate: %+v", got[0])
	}
}

func TestEngine_RankFilters(t *testing.T) {
	e := newTestEngine(t)

	got, err := e.RankPOIs(context.Background(), Query{
		Tags:          []string{"museum"},
		ExcludeCities: []string{"PARIS"},
		Origin:        &Point{Lat: 43.7, Lon: 7.26},
		RadiusKm:      50,
	})
	if err != nil {
		t.Fatalf("RankPOIs: %v", err)
	}
	if len(got) != 1 || got[0].Item.City != "Nice" {
		t.Errorf("expected only Nice, got %+v", got)
	}
}

func TestEngine_RankErrors(t *testing.T) {
	e := newTestEngine(t)
	lambda := 1.5

	tests := []struct {
		name string
		q    Query
		want error
	}{
		{"empty profile", Query{}, ErrEmptyProfile},
		{"bad dimension", Query{Vector: []float64{1, 2}}, ErrVectorDimMismatch},
		{"negative limit", Query{Tags: []string{"museum"}, Limit: -1}, ErrInvalidK},
		{"bad dislike weight", Query{Tags: []string{"museum"}, Dislikes: map[string]int{"museum": 9}}, ErrInvalidDislikeWeight},
		{"user without store", Query{Tags: []string{"museum"}, UserID: "u1"}, ErrStoreUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.RankPOIs(context.Background(), tt.q)
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}

	t.Run("bad lambda", func(t *testing.T) {
		_, err := e.RankCities(context.Background(), Query{Tags: []string{"museum"}, Diversify: true, Lambda: &lambda})
		if !errors.Is(err, ErrInvalidLambda) {
			t.Errorf("expected ErrInvalidLambda, got %v", err)
		}
	})
}

func TestPenalty(t *testing.T) {
	tests := []struct {
		name     string
		tags     []string
		cityTags []string
		dislikes map[string]int
		want     float64
	}{
		{"city tag hit", []string{"entertainment.museum"}, []string{"museum"}, map[string]int{"museum": 5}, 0.25},
		{"hit counted once", []string{"museum"}, []string{"museum"}, map[string]int{"museum": 2}, 0.1},
		{"two categories", []string{"nightclub"}, []string{"beach"}, map[string]int{"nightclub": 1, "beach": 2}, 0.15},
		{"no overlap", []string{"park"}, nil, map[string]int{"museum": 5}, 0},
		{"no dislikes", []string{"park"}, nil, nil, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Penalty(tt.tags, tt.cityTags, tt.dislikes)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("expected %f, got %f", tt.want, got)
			}
		})
	}

	if _, err := Penalty([]string{"park"}, nil, map[string]int{"park": 0}); !errors.Is(err, ErrInvalidDislikeWeight) {
		t.Errorf("expected ErrInvalidDislikeWeight, got %v", err)
	}
}

func TestEngine_NoDislikeStore(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	if _, err := e.Dislikes(ctx, "u1"); !errors.Is(err, ErrStoreUnavailable) {
		t.Errorf("Dislikes: expected ErrStoreUnavailable, got %v", err)
	}
	if err := e.SetDislike(ctx, "u1", "museum", 3); !errors.Is(err, ErrStoreUnavailable) {
		t.Errorf("SetDislike: expected ErrStoreUnavailable, got %v", err)
	}
	if _, err := e.AddDislike(ctx, "u1", "museum", 1); !errors.Is(err, ErrStoreUnavailable) {
		t.Errorf("AddDislike: expected ErrStoreUnavailable, got %v", err)
	}
	if err := e.RemoveDislike(ctx, "u1", "museum"); !errors.Is(err, ErrStoreUnavailable) {
		t.Errorf("RemoveDislike: expected ErrStoreUnavailable, got %v", err)
	}
	if err := e.ClearDislikes(ctx, "u1"); !errors.Is(err, ErrStoreUnavailable) {
		t.Errorf("ClearDislikes: expected ErrStoreUnavailable, got %v", err)
	}
}

func TestEngine_SQLiteDislikes(t *testing.T) {
	e := newTestEngine(t, WithSQLiteDislikes(filepath.Join(t.TempDir(), "prefs.db")))
	ctx := context.Background()

	if err := e.SetDislike(ctx, "u1", "museum", 2); err != nil {
		t.Fatalf("SetDislike: %v", err)
	}
	w, err := e.AddDislike(ctx, "u1", "museum", 10)
	if err != nil {
		t.Fatalf("AddDislike: %v", err)
	}
	if w != 5 {
		t.Errorf("expected weight capped at 5, got %d", w)
	}

	got, err := e.RankPOIs(ctx, Query{Tags: []string{"museum"}, UserID: "u1", Limit: 1})
	if err != nil {
		t.Fatalf("RankPOIs: %v", err)
	}
	if math.Abs(got[0].Penalty-0.25) > 1e-9 {
		t.Errorf("expected stored penalty 0.25, got %f", got[0].Penalty)
	}

	// Inline weights override the stored ones.
	got, err = e.RankPOIs(ctx, Query{Tags: []string{"museum"}, UserID: "u1", Dislikes: map[string]int{}, Limit: 1})
	if err != nil {
		t.Fatalf("RankPOIs: %v", err)
	}
	if got[0].Penalty != 0 {
		t.Errorf("expected inline override to clear the penalty, got %f", got[0].Penalty)
	}

	if err := e.RemoveDislike(ctx, "u1", "museum"); err != nil {
		t.Fatalf("RemoveDislike: %v", err)
	}
	if err := e.RemoveDislike(ctx, "u1", "museum"); err != nil {
		t.Errorf("expected idempotent remove, got %v", err)
	}
	if err := e.SetDislike(ctx, "u1", "beach", 1); err != nil {
		t.Fatalf("SetDislike: %v", err)
	}
	if err := e.ClearDislikes(ctx, "u1"); err != nil {
		t.Fatalf("ClearDislikes: %v", err)
	}
	d, err := e.Dislikes(ctx, "u1")
	if err != nil {
		t.Fatalf("Dislikes: %v", err)
	}
	if len(d) != 0 {
		t.Errorf("expected no dislikes after clear, got %v", d)
	}

	if err := e.SetDislike(ctx, "u1", "museum", 6); !errors.Is(err, ErrInvalidDislikeWeight) {
		t.Errorf("expected ErrInvalidDislikeWeight, got %v", err)
	}
}

func TestEngine_EmbeddingEncoding(t *testing.T) {
	emb := &keywordEmbedder{}
	e := newTestEngine(t, WithEncoding(EncodingEmbedding), WithEmbedder(emb, 3))
	if e.Dimensions() != 3 {
		t.Fatalf("expected 3 dimensions, got %d", e.Dimensions())
	}

	got, err := e.RankCities(context.Background(), Query{LikesText: "a quiet beach town"})
	if err != nil {
		t.Fatalf("RankCities: %v", err)
	}
	if got[0].Name != "Nice" {
		t.Errorf("expected Nice first, got %s", got[0].Name)
	}
	if emb.calls == 0 {
		t.Error("expected the embedder to be called")
	}
}

func TestEngine_EmbeddingProviderError(t *testing.T) {
	_, err := New(context.Background(), testItems(),
		WithEncoding(EncodingEmbedding), WithEmbedder(failingEmbedder{}, 3))
	if !errors.Is(err, ErrEmbeddingProviderError) {
		t.Fatalf("expected ErrEmbeddingProviderError, got %v", err)
	}
	if IsInvalidInput(err) {
		t.Error("provider failure must not be reported as invalid input")
	}
}

func TestExportParquet_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.parquet")
	if err := ExportParquet(path, testItems()); err != nil {
		t.Fatalf("ExportParquet: %v", err)
	}

	items, err := LoadItems(context.Background(), path, "")
	if err != nil {
		t.Fatalf("LoadItems: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("expected 3 items, got %d", len(items))
	}
	if items[2].City != "Chamonix" || items[2].Location == nil {
		t.Errorf("unexpected item: %+v", items[2])
	}

	e, err := Load(context.Background(), path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	defer e.Close()
	if e.Len() != 3 {
		t.Errorf("expected 3 items, got %d", e.Len())
	}
}
