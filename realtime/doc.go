// Package realtime maintains the websocket push channel to the backend.
//
// A Channel joins per-entity rooms ("ambulance-<id>") and dispatches inbound
// events to registered handlers on a single goroutine, so consumers see
// updates in delivery order without locking. Dropped sockets are redialed a
// bounded number of times with a fixed delay; the UI only ever sees the
// resulting Connected flag.
package realtime
