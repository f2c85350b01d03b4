package render

import (
	"math"

	"github.com/paulmach/orb"

	"github.com/rapid8/rescuelink/geo"
)

// Virtual viewport used for zoom fitting. The absolute size only shifts the
// zoom by a constant; what matters is the padding ratio.
const (
	viewportWidthPx  = 1024.0
	viewportHeightPx = 768.0
	tileSizePx       = 256.0
)

// FitBounds computes the viewport that shows every placed marker with the
// configured padding, capped at MaxZoom. With no markers it returns the
// default region.
func (v *View) FitBounds() Viewport {
	v.mu.Lock()
	markers := make([]*Marker, 0, len(v.markers))
	for _, m := range v.markers {
		markers = append(markers, m)
	}
	v.mu.Unlock()

	if len(markers) == 0 {
		return Viewport{Center: v.opts.DefaultCenter, Zoom: v.opts.DefaultZoom}
	}

	bound := markers[0].Position.Point().Bound()
	for _, m := range markers[1:] {
		bound = bound.Union(m.Position.Point().Bound())
	}

	center := geo.FromPoint(bound.Center())
	zoom := v.fitZoom(bound)
	if zoom > v.opts.MaxZoom {
		zoom = v.opts.MaxZoom
	}
	return Viewport{Center: center, Zoom: zoom}
}

// fitZoom picks the largest zoom at which the bound, plus padding, fits the
// virtual viewport in both axes (web mercator).
func (v *View) fitZoom(b orb.Bound) float64 {
	usableW := viewportWidthPx - 2*v.opts.PaddingPx
	usableH := viewportHeightPx - 2*v.opts.PaddingPx
	if usableW <= 0 || usableH <= 0 {
		return v.opts.DefaultZoom
	}

	lngFraction := (b.Max.Lon() - b.Min.Lon()) / 360.0
	latFraction := (mercatorY(b.Max.Lat()) - mercatorY(b.Min.Lat()))
	if latFraction < 0 {
		latFraction = -latFraction
	}

	// Degenerate bound (single marker or identical positions): zoom cap
	// applies, not infinity.
	zoom := v.opts.MaxZoom
	if lngFraction > 0 {
		zoom = math.Min(zoom, math.Log2(usableW/tileSizePx/lngFraction))
	}
	if latFraction > 0 {
		zoom = math.Min(zoom, math.Log2(usableH/tileSizePx/latFraction))
	}
	if zoom < 0 {
		zoom = 0
	}
	return math.Floor(zoom*100) / 100
}

// mercatorY maps latitude to [0,1] in web mercator space.
func mercatorY(lat float64) float64 {
	sin := math.Sin(lat * math.Pi / 180)
	y := 0.5 - math.Log((1+sin)/(1-sin))/(4*math.Pi)
	return y
}
