package chi

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"

	"github.com/kailas-cloud/citymatch/internal/domain/geo"
	"github.com/kailas-cloud/citymatch/internal/domain/ranking"
	"github.com/kailas-cloud/citymatch/internal/domain/vector"
	"github.com/kailas-cloud/citymatch/internal/domain/vocab"
	rankuc "github.com/kailas-cloud/citymatch/internal/usecase/rank"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		// Report JSON names, not Go field names.
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return validate
}

// decodeAndValidate reads a JSON body into dst and validates it. An empty body
// is accepted when allowEmpty is set and leaves dst untouched.
func decodeAndValidate(r *http.Request, dst any, allowEmpty bool) (code, msg string, ok bool) {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		if !(allowEmpty && errors.Is(err, io.EOF)) {
			return codeBadRequest, "invalid request body", false
		}
	}
	if err := getValidator().Struct(dst); err != nil {
		return codeValidationFailed, validationMessage(err), false
	}
	return "", "", true
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return "validation failed"
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		// Drop the struct name.
		_, field, _ := strings.Cut(fe.Namespace(), ".")
		if fe.Param() != "" {
			parts = append(parts, fmt.Sprintf("%s: failed %s=%s", field, fe.Tag(), fe.Param()))
		} else {
			parts = append(parts, fmt.Sprintf("%s: failed %s", field, fe.Tag()))
		}
	}
	return strings.Join(parts, "; ")
}

// --- Requests ---

type pointDTO struct {
	Lat float64 `json:"lat" validate:"gte=-90,lte=90"`
	Lon float64 `json:"lon" validate:"gte=-180,lte=180"`
}

type rankRequest struct {
	Tags          []string       `json:"tags" validate:"omitempty,max=256,dive,required"`
	Vector        []float64      `json:"vector" validate:"omitempty,max=8192"`
	LikesText     string         `json:"likes_text" validate:"max=4000"`
	DislikesText  string         `json:"dislikes_text" validate:"max=4000"`
	Dislikes      map[string]int `json:"dislikes" validate:"omitempty,max=256,dive,keys,required,endkeys"`
	UserID        string         `json:"user_id" validate:"max=128"`
	Limit         int            `json:"limit"`
	Diversify     bool           `json:"diversify"`
	Lambda        *float64       `json:"lambda"`
	ExcludeCities []string       `json:"exclude_cities" validate:"omitempty,dive,required"`
	Origin        *pointDTO      `json:"origin"`
	RadiusKm      float64        `json:"radius_km" validate:"required_with=Origin,gte=0"`
	MinScore      float64        `json:"min_score"`
}

func (r *rankRequest) toDomain() *rankuc.Request {
	req := &rankuc.Request{
		Preferences: ranking.Preferences{
			Vector:       vector.Vector(r.Vector),
			LikesText:    r.LikesText,
			DislikesText: r.DislikesText,
			Tags:         r.Tags,
		},
		UserID:        r.UserID,
		Limit:         r.Limit,
		Diversify:     r.Diversify,
		Lambda:        r.Lambda,
		ExcludeCities: r.ExcludeCities,
		RadiusKm:      r.RadiusKm,
		MinScore:      r.MinScore,
	}
	if r.Dislikes != nil {
		req.Dislikes = ranking.DislikeWeights(r.Dislikes)
	}
	if r.Origin != nil {
		req.Origin = &geo.Point{Lat: r.Origin.Lat, Lon: r.Origin.Lon}
	}
	return req
}

type penaltyRequest struct {
	Tags     []string       `json:"tags" validate:"max=1024"`
	CityTags []string       `json:"city_tags" validate:"max=1024"`
	Dislikes map[string]int `json:"dislikes" validate:"omitempty,dive,keys,required,endkeys"`
}

type setDislikeRequest struct {
	Weight int `json:"weight" validate:"required"`
}

type addDislikeRequest struct {
	Points int `json:"points" validate:"omitempty,min=1"`
}

// --- Responses ---

type scoredResponse struct {
	ID       string     `json:"id,omitempty"`
	Name     string     `json:"name,omitempty"`
	City     string     `json:"city"`
	Country  string     `json:"country,omitempty"`
	Location *geo.Point `json:"location,omitempty"`
	Tags     []string   `json:"tags"`
	Score    float64    `json:"score"`
	Raw      float64    `json:"raw_score"`
	Penalty  float64    `json:"penalty"`
}

type rankPOIsResponse struct {
	Items []scoredResponse `json:"items"`
}

type cityResponse struct {
	City      string     `json:"city"`
	Country   string     `json:"country,omitempty"`
	Score     float64    `json:"score"`
	MaxScore  float64    `json:"max_score"`
	MeanTopN  float64    `json:"mean_top_n"`
	Diversity float64    `json:"diversity"`
	POICount  int        `json:"poi_count"`
	Tags      []string   `json:"tags"`
	Centroid  *geo.Point `json:"centroid,omitempty"`
}

type rankCitiesResponse struct {
	Cities []cityResponse `json:"cities"`
}

type penaltyResponse struct {
	Penalty float64 `json:"penalty"`
}

type vocabularyTag struct {
	Tag    string  `json:"tag"`
	Weight float64 `json:"weight"`
}

type vocabularyResponse struct {
	Name    string            `json:"name"`
	Size    int               `json:"size"`
	Tags    []vocabularyTag   `json:"tags"`
	Aliases map[string]string `json:"aliases,omitempty"`
}

type dislikesResponse struct {
	UserID   string         `json:"user_id"`
	Dislikes map[string]int `json:"dislikes"`
}

type dislikeResponse struct {
	UserID   string `json:"user_id"`
	Category string `json:"category"`
	Weight   int    `json:"weight"`
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

func scoredToResponse(in []ranking.Scored) rankPOIsResponse {
	out := make([]scoredResponse, len(in))
	for i, sc := range in {
		it := sc.Item
		out[i] = scoredResponse{
			ID:       it.ID,
			Name:     it.Name,
			City:     it.City,
			Country:  it.Country,
			Location: it.Location,
			Tags:     it.Tags,
			Score:    sc.Score,
			Raw:      sc.Raw,
			Penalty:  sc.Penalty,
		}
	}
	return rankPOIsResponse{Items: out}
}

func citiesToResponse(in []ranking.CityAggregate) rankCitiesResponse {
	out := make([]cityResponse, len(in))
	for i, c := range in {
		out[i] = cityResponse{
			City:      c.City,
			Country:   c.Country,
			Score:     c.Score,
			MaxScore:  c.MaxScore,
			MeanTopN:  c.MeanTopN,
			Diversity: c.Diversity,
			POICount:  c.POICount,
			Tags:      c.Tags,
			Centroid:  c.Centroid,
		}
	}
	return rankCitiesResponse{Cities: out}
}

func vocabularyToResponse(v *vocab.Vocabulary) vocabularyResponse {
	tags := make([]vocabularyTag, v.Len())
	for i := range v.Len() {
		id := vocab.TagID(i)
		tags[i] = vocabularyTag{Tag: v.Tag(id), Weight: v.Weight(id)}
	}
	return vocabularyResponse{
		Name:    v.Name(),
		Size:    v.Len(),
		Tags:    tags,
		Aliases: v.Aliases(),
	}
}
