// Package tracking owns the live position of one tracked ambulance.
//
// A Store turns channel events and REST fallback polls into a stream of
// immutable State snapshots. One goroutine applies all updates, so
// consumers see them in delivery order. If the channel goes quiet past the
// staleness window the store polls the backend instead, degrading to
// slow-but-alive rather than frozen.
package tracking
