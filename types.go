package citymatch

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/citymatch/internal/domain"
	"github.com/kailas-cloud/citymatch/internal/domain/geo"
	"github.com/kailas-cloud/citymatch/internal/domain/poi"
	"github.com/kailas-cloud/citymatch/internal/domain/ranking"
	"github.com/kailas-cloud/citymatch/internal/domain/vector"
	rankuc "github.com/kailas-cloud/citymatch/internal/usecase/rank"
)

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrNotFound               = domain.ErrNotFound
	ErrVectorDimMismatch      = domain.ErrVectorDimMismatch
	ErrInvalidK               = domain.ErrInvalidK
	ErrInvalidDislikeWeight   = domain.ErrInvalidDislikeWeight
	ErrInvalidLambda          = domain.ErrInvalidLambda
	ErrInvalidConfig          = domain.ErrInvalidConfig
	ErrInvalidItem            = domain.ErrInvalidItem
	ErrEmptyProfile           = domain.ErrEmptyProfile
	ErrUnsupportedEncoding    = domain.ErrUnsupportedEncoding
	ErrEmbeddingProviderError = domain.ErrEmbeddingProviderError
	ErrStoreUnavailable       = domain.ErrStoreUnavailable
)

// Point is a WGS84 coordinate in degrees.
type Point struct {
	Lat float64
	Lon float64
}

// Item is a point of interest with the context tags of its city.
type Item struct {
	ID       string
	Name     string
	City     string
	Country  string
	Location *Point
	Tags     []string
	CityTags []string
}

// Query describes the user. The first usable signal wins: Vector, then
// LikesText, then Tags.
type Query struct {
	Tags         []string
	Vector       []float64
	LikesText    string
	DislikesText string

	// Dislikes overrides the stored weights of UserID.
	Dislikes map[string]int
	UserID   string

	Limit     int
	Diversify bool
	Lambda    *float64

	ExcludeCities []string
	Origin        *Point
	RadiusKm      float64
	MinScore      float64
}

// ScoredPOI is a ranked item. Score is Raw minus Penalty.
type ScoredPOI struct {
	Item    Item
	Score   float64
	Raw     float64
	Penalty float64
}

// City is a ranked city.
type City struct {
	Name      string
	Country   string
	Score     float64
	MaxScore  float64
	MeanTopN  float64
	Diversity float64
	POICount  int
	Tags      []string
	Centroid  *Point
}

// Embedder converts text to vector embeddings.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// embedderAdapter wraps the public Embedder to satisfy domain.Embedder.
type embedderAdapter struct {
	inner Embedder
}

func (a *embedderAdapter) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	v, err := a.inner.Embed(ctx, text)
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("embed: %w: %w", domain.ErrEmbeddingProviderError, err)
	}
	return domain.EmbeddingResult{Embedding: v}, nil
}

func toInternalItems(items []Item) []poi.Item {
	out := make([]poi.Item, len(items))
	for i, it := range items {
		out[i] = poi.Item{
			ID:       it.ID,
			Name:     it.Name,
			City:     it.City,
			Country:  it.Country,
			Tags:     it.Tags,
			CityTags: it.CityTags,
		}
		if it.Location != nil {
			out[i].Location = &geo.Point{Lat: it.Location.Lat, Lon: it.Location.Lon}
		}
	}
	return out
}

func fromInternalItem(it *poi.Item) Item {
	out := Item{
		ID:       it.ID,
		Name:     it.Name,
		City:     it.City,
		Country:  it.Country,
		Tags:     it.Tags,
		CityTags: it.CityTags,
	}
	out.Location = fromGeo(it.Location)
	return out
}

func fromInternalItems(items []poi.Item) []Item {
	out := make([]Item, len(items))
	for i := range items {
		out[i] = fromInternalItem(&items[i])
	}
	return out
}

func fromGeo(p *geo.Point) *Point {
	if p == nil {
		return nil
	}
	return &Point{Lat: p.Lat, Lon: p.Lon}
}

func (q *Query) toInternal() *rankuc.Request {
	req := &rankuc.Request{
		Preferences: ranking.Preferences{
			Vector:       vector.Vector(q.Vector),
			LikesText:    q.LikesText,
			DislikesText: q.DislikesText,
			Tags:         q.Tags,
		},
		UserID:        q.UserID,
		Limit:         q.Limit,
		Diversify:     q.Diversify,
		Lambda:        q.Lambda,
		ExcludeCities: q.ExcludeCities,
		RadiusKm:      q.RadiusKm,
		MinScore:      q.MinScore,
	}
	if q.Dislikes != nil {
		req.Dislikes = ranking.DislikeWeights(q.Dislikes)
	}
	if q.Origin != nil {
		req.Origin = &geo.Point{Lat: q.Origin.Lat, Lon: q.Origin.Lon}
	}
	return req
}

func fromScored(in []ranking.Scored) []ScoredPOI {
	out := make([]ScoredPOI, len(in))
	for i, sc := range in {
		out[i] = ScoredPOI{
			Item:    fromInternalItem(sc.Item),
			Score:   sc.Score,
			Raw:     sc.Raw,
			Penalty: sc.Penalty,
		}
	}
	return out
}

func fromAggregates(in []ranking.CityAggregate) []City {
	out := make([]City, len(in))
	for i, c := range in {
		out[i] = City{
			Name:      c.City,
			Country:   c.Country,
			Score:     c.Score,
			MaxScore:  c.MaxScore,
			MeanTopN:  c.MeanTopN,
			Diversity: c.Diversity,
			POICount:  c.POICount,
			Tags:      c.Tags,
			Centroid:  fromGeo(c.Centroid),
		}
	}
	return out
}
