// Package geo holds the coordinate helpers used for radius filters and city centroids.
package geo

import (
	"fmt"
	"math"
)

// EarthRadiusKm is the mean radius of Earth used for Haversine distance.
const EarthRadiusKm = 6371.0

// Point is a WGS84 coordinate in degrees.
type Point struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// NewPoint validates and builds a Point.
func NewPoint(lat, lon float64) (Point, error) {
	if !ValidateCoordinates(lat, lon) {
		return Point{}, fmt.Errorf("coordinates out of range: lat=%f lon=%f", lat, lon)
	}
	return Point{Lat: lat, Lon: lon}, nil
}

// ValidateCoordinates checks that latitude is in [-90,90] and longitude in [-180,180].
func ValidateCoordinates(lat, lon float64) bool {
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}

// Haversine returns the great-circle distance in kilometers between two points
// specified by latitude and longitude in degrees.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	lat1r := lat1 * math.Pi / 180
	lat2r := lat2 * math.Pi / 180
	dLat := (lat2 - lat1) * math.Pi / 180
	dLon := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1r)*math.Cos(lat2r)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return EarthRadiusKm * c
}

// DistanceKm is Haversine between two points.
func (p Point) DistanceKm(o Point) float64 {
	return Haversine(p.Lat, p.Lon, o.Lat, o.Lon)
}

// toECEF converts latitude/longitude (degrees) to a unit-sphere ECEF vector.
func toECEF(latDeg, lonDeg float64) [3]float64 {
	lat := latDeg * math.Pi / 180
	lon := lonDeg * math.Pi / 180
	return [3]float64{
		math.Cos(lat) * math.Cos(lon),
		math.Cos(lat) * math.Sin(lon),
		math.Sin(lat),
	}
}

// Centroid returns the spherical mean of the points. Averaging on the unit
// sphere keeps clusters that straddle the antimeridian in place.
// ok is false for an empty input or when the points cancel out.
func Centroid(points []Point) (Point, bool) {
	if len(points) == 0 {
		return Point{}, false
	}
	var sum [3]float64
	for _, p := range points {
		v := toECEF(p.Lat, p.Lon)
		sum[0] += v[0]
		sum[1] += v[1]
		sum[2] += v[2]
	}
	hyp := math.Hypot(sum[0], sum[1])
	if hyp < 1e-12 && math.Abs(sum[2]) < 1e-12 {
		return Point{}, false
	}
	lat := math.Atan2(sum[2], hyp) * 180 / math.Pi
	lon := math.Atan2(sum[1], sum[0]) * 180 / math.Pi
	return Point{Lat: lat, Lon: lon}, true
}
