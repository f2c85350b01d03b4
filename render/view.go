package render

import (
	"errors"
	"sort"
	"sync"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/rapid8/rescuelink/geo"
	"github.com/rapid8/rescuelink/route"
)

// Marker kinds used by the live emergency map.
const (
	KindSelf        = "self"
	KindAmbulance   = "ambulance"
	KindHospital    = "hospital"
	KindStart       = "start"
	KindDestination = "end"
)

// Marker is one placed icon. Upserts move the existing marker instead of
// stacking a duplicate.
type Marker struct {
	ID       string
	Kind     string
	Position geo.Coordinate
}

// Viewport is the computed map camera.
type Viewport struct {
	Center geo.Coordinate
	Zoom   float64
}

// Options configure a view.
type Options struct {
	// DefaultCenter is used while no marker is placed.
	DefaultCenter geo.Coordinate
	DefaultZoom   float64
	// MaxZoom caps FitBounds so near-coincident markers don't over-zoom.
	MaxZoom float64
	// PaddingPx is the fixed bounds padding inside the virtual viewport.
	PaddingPx float64
}

// ErrClosed is returned by mutations after Close.
var ErrClosed = errors.New("render: view closed")

// View is a headless map view model: markers, one route line and the
// derived viewport. Exactly one view owns a display slot at a time; Close
// releases everything before a replacement is created.
type View struct {
	opts Options

	mu      sync.Mutex
	markers map[string]*Marker
	line    orb.LineString
	mode    route.TravelMode
	closed  bool
}

// NewView creates an empty view centered on the default region.
func NewView(opts Options) *View {
	if opts.MaxZoom == 0 {
		opts.MaxZoom = 16
	}
	if opts.DefaultZoom == 0 {
		opts.DefaultZoom = 12
	}
	if opts.PaddingPx == 0 {
		opts.PaddingPx = 48
	}
	return &View{opts: opts, markers: map[string]*Marker{}}
}

// UpsertMarker places or moves the marker with the given id.
func (v *View) UpsertMarker(id, kind string, pos geo.Coordinate) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return ErrClosed
	}
	if m, ok := v.markers[id]; ok {
		m.Position = pos
		m.Kind = kind
		return nil
	}
	v.markers[id] = &Marker{ID: id, Kind: kind, Position: pos}
	return nil
}

// RemoveMarker drops a marker if present.
func (v *View) RemoveMarker(id string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	delete(v.markers, id)
}

// Markers returns the placed markers in stable id order.
func (v *View) Markers() []Marker {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([]Marker, 0, len(v.markers))
	for _, m := range v.markers {
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// SetRoute replaces the route line geometry and its styling mode.
func (v *View) SetRoute(res *route.Result) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return ErrClosed
	}
	v.line = res.Polyline
	v.mode = res.Mode
	return nil
}

// ClearRoute removes the line; markers stay on display.
func (v *View) ClearRoute() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.line = nil
}

// Close releases the markers and route. Further mutation fails with
// ErrClosed.
func (v *View) Close() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.closed = true
	v.markers = map[string]*Marker{}
	v.line = nil
}

// lineColor matches the original per-mode route styling.
func lineColor(mode route.TravelMode) string {
	switch mode {
	case route.ModeWalking:
		return "#35D0BA"
	case route.ModeCycling:
		return "#4D96FF"
	default:
		return "#FF6B6B"
	}
}

// Snapshot renders the current markers and route as a GeoJSON
// FeatureCollection any map front end can draw.
func (v *View) Snapshot() *geojson.FeatureCollection {
	v.mu.Lock()
	markers := make([]*Marker, 0, len(v.markers))
	for _, m := range v.markers {
		markers = append(markers, m)
	}
	line := v.line
	mode := v.mode
	v.mu.Unlock()

	sort.Slice(markers, func(i, j int) bool { return markers[i].ID < markers[j].ID })

	fc := geojson.NewFeatureCollection()
	for _, m := range markers {
		f := geojson.NewFeature(m.Position.Point())
		f.Properties["id"] = m.ID
		f.Properties["type"] = m.Kind
		fc.Append(f)
	}
	if len(line) > 0 {
		f := geojson.NewFeature(line.Clone())
		f.Properties["id"] = "route"
		f.Properties["mode"] = string(mode)
		f.Properties["line-color"] = lineColor(mode)
		fc.Append(f)
	}
	return fc
}
