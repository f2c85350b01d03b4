// Package route asks the directions provider for a drivable path between
// two coordinates and derives the ETA shown next to the live map.
//
// The engine keeps exactly one current result. Changing any of origin,
// destination or travel mode clears it before the replacement request
// resolves, and a response that arrives for superseded inputs is discarded;
// consumers can therefore render Current without staleness checks.
package route
