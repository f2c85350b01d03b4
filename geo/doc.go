// Package geo holds the coordinate value type and every ordering conversion
// for external payloads.
//
// The EMS backend and the directions provider speak GeoJSON [lng,lat] while
// all in-process state is {lat,lng}. FromGeoJSON and Coordinate.GeoJSON are
// the single boundary where the order flips; raw provider arrays must not
// flow past them.
package geo
