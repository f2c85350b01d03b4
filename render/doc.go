// Package render is the headless map view model: markers, the route line
// and the fitted viewport, published as GeoJSON for whatever draws the map.
//
// Marker updates are upserts so a moving ambulance slides one icon instead
// of stacking copies, and the route line is always replaced whole. Views
// must be closed before a replacement takes over the same display slot.
package render
