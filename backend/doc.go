// Package backend is the REST client for the EMS backend API.
//
// All business logic (accounts, dispatch, geospatial matching, persistence)
// lives server-side; this client only shapes requests and unwraps the
// {success, message, data} reply envelope. Ambulance payloads arrive with
// GeoJSON [lng,lat] coordinates and are swapped into geo.Coordinate before
// they leave this package.
package backend
