// Package geo holds the point and radius arithmetic used by the geographic facet.
package geo

import (
	"fmt"
	"math"
)

// EarthRadiusKm is the mean radius of Earth used for Haversine distance.
const EarthRadiusKm = 6371.0

// Point is a WGS84 coordinate in degrees.
type Point struct {
	Lat float64
	Lon float64
}

// Radius is a circle on the Earth's surface.
type Radius struct {
	Center Point
	Km     float64
}

// NewRadius validates the center and radius.
func NewRadius(lat, lon, km float64) (Radius, error) {
	if !ValidateCoordinates(lat, lon) {
		return Radius{}, fmt.Errorf("coordinates out of range: lat=%g lon=%g", lat, lon)
	}
	if km <= 0 || math.IsNaN(km) || math.IsInf(km, 0) {
		return Radius{}, fmt.Errorf("radius must be a positive number of km, got %g", km)
	}
	return Radius{Center: Point{Lat: lat, Lon: lon}, Km: km}, nil
}

// Contains reports whether p lies within the circle (inclusive).
func (r Radius) Contains(p Point) bool {
	return HaversineKm(r.Center, p) <= r.Km
}

// HaversineKm returns the great-circle distance in kilometres between two points.
func HaversineKm(a, b Point) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return EarthRadiusKm * c
}

// ValidateCoordinates checks that latitude is in [-90,90] and longitude in [-180,180].
func ValidateCoordinates(lat, lon float64) bool {
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}
