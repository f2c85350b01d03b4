package geo

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
)

// Coordinate is a WGS84 position. It is a value type; callers replace it
// rather than mutate it.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Valid reports whether both components are inside WGS84 bounds.
func (c Coordinate) Valid() bool {
	return c.Lat >= -90 && c.Lat <= 90 && c.Lng >= -180 && c.Lng <= 180
}

func (c Coordinate) String() string {
	return fmt.Sprintf("%.6f,%.6f", c.Lat, c.Lng)
}

// Point converts to orb's [lng,lat] point order.
func (c Coordinate) Point() orb.Point {
	return orb.Point{c.Lng, c.Lat}
}

// GeoJSON returns the [lng,lat] pair used by GeoJSON geometries and by the
// backend's location payloads. This is the only place the order is flipped
// on the way out.
func (c Coordinate) GeoJSON() []float64 {
	return []float64{c.Lng, c.Lat}
}

// FromGeoJSON converts a [lng,lat] pair from an external payload. Backend
// ambulance lookups and directions geometries use GeoJSON order; this is the
// only place the order is flipped on the way in.
func FromGeoJSON(pair []float64) (Coordinate, error) {
	if len(pair) < 2 {
		return Coordinate{}, fmt.Errorf("geojson position needs 2 values, got %d", len(pair))
	}
	c := Coordinate{Lat: pair[1], Lng: pair[0]}
	if !c.Valid() {
		return Coordinate{}, fmt.Errorf("geojson position out of range: [%g, %g]", pair[0], pair[1])
	}
	return c, nil
}

// FromPoint converts an orb point ([lng,lat]) back to a Coordinate.
func FromPoint(p orb.Point) Coordinate {
	return Coordinate{Lat: p.Lat(), Lng: p.Lon()}
}

const earthRadiusKM = 6371.0

// HaversineKM returns the great-circle distance between two coordinates.
func HaversineKM(a, b Coordinate) float64 {
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180
	la := a.Lat * math.Pi / 180
	lb := b.Lat * math.Pi / 180
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(la)*math.Cos(lb)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusKM * math.Asin(math.Sqrt(h))
}
