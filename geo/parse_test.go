package geo_test

import (
	"errors"
	"math"
	"testing"

	"github.com/rapid8/rescuelink/geo"
)

func TestParseFreeText(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantLat float64
		wantLng float64
	}{
		{
			name:    "comma separated lat first",
			input:   "28.7163, 75.7882",
			wantLat: 28.7163,
			wantLng: 75.7882,
		},
		{
			name:    "comma no space",
			input:   "28.7163,75.7882",
			wantLat: 28.7163,
			wantLng: 75.7882,
		},
		{
			name:    "whitespace separated",
			input:   "28.7163 75.7882",
			wantLat: 28.7163,
			wantLng: 75.7882,
		},
		{
			name:    "lng first resolved by range",
			input:   "75.7882, 28.7163",
			wantLat: 28.7163,
			wantLng: 75.7882,
		},
		{
			name:    "negative western hemisphere lng first",
			input:   "-122.4194, 37.7749",
			wantLat: 37.7749,
			wantLng: -122.4194,
		},
		{
			name:    "ambiguous defaults to lat first",
			input:   "45.0, 60.0",
			wantLat: 45.0,
			wantLng: 60.0,
		},
		{
			name:    "ambiguous both small",
			input:   "10, 20",
			wantLat: 10,
			wantLng: 20,
		},
		{
			name:    "extremes",
			input:   "-90, 180",
			wantLat: -90,
			wantLng: 180,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := geo.ParseFreeText(tt.input)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if math.Abs(got.Lat-tt.wantLat) > 1e-9 || math.Abs(got.Lng-tt.wantLng) > 1e-9 {
				t.Errorf("got %v, want {%g %g}", got, tt.wantLat, tt.wantLng)
			}
		})
	}
}

func TestParseFreeTextRejects(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "empty", input: "   "},
		{name: "one value", input: "28.7163"},
		{name: "three values", input: "28.7, 75.7, 12.0"},
		{name: "non numeric", input: "here, there"},
		{name: "both out of range", input: "200, 300"},
		{name: "latitude out of range", input: "95.0, 200.0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := geo.ParseFreeText(tt.input)
			if err == nil {
				t.Fatalf("expected error for %q", tt.input)
			}
			var pe *geo.ParseError
			if !errors.As(err, &pe) {
				t.Errorf("expected *geo.ParseError, got %T", err)
			}
		})
	}
}

func TestFromGeoJSONSwapsOrder(t *testing.T) {
	// Backend returns location.coordinates as [longitude, latitude].
	c, err := geo.FromGeoJSON([]float64{77.10, 28.70})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Lat != 28.70 || c.Lng != 77.10 {
		t.Errorf("expected lat 28.70 lng 77.10, got %v", c)
	}

	back := c.GeoJSON()
	if back[0] != 77.10 || back[1] != 28.70 {
		t.Errorf("round trip lost order: %v", back)
	}
}

func TestFromGeoJSONRejectsBadPositions(t *testing.T) {
	if _, err := geo.FromGeoJSON([]float64{77.10}); err == nil {
		t.Error("expected error for short position")
	}
	if _, err := geo.FromGeoJSON([]float64{28.70, 200.0}); err == nil {
		t.Error("expected error for out-of-range position")
	}
}

func TestHaversineKM(t *testing.T) {
	delhi := geo.Coordinate{Lat: 28.7041, Lng: 77.1025}
	mumbai := geo.Coordinate{Lat: 19.0760, Lng: 72.8777}

	d := geo.HaversineKM(delhi, mumbai)
	if d < 1100 || d > 1200 {
		t.Errorf("Delhi-Mumbai distance out of expected band: %f km", d)
	}
	if z := geo.HaversineKM(delhi, delhi); z != 0 {
		t.Errorf("distance to self should be 0, got %f", z)
	}
}
