package locate

import (
	"context"
	"errors"
	"time"

	"github.com/rapid8/rescuelink/geo"
)

// Position is a single location reading.
type Position struct {
	geo.Coordinate
	AccuracyM float64
	Timestamp time.Time
}

// Source produces position readings. Failures are reported to the caller and
// never retried here; flows decide whether to ask again.
type Source interface {
	// Current returns a one-shot reading.
	Current(ctx context.Context) (Position, error)
	// Watch invokes fn for each new reading until the returned stop
	// function is called or ctx is done.
	Watch(ctx context.Context, fn func(Position)) (stop func(), err error)
}

var (
	// ErrPermissionDenied means the provider refused to share a position.
	ErrPermissionDenied = errors.New("locate: permission denied")
	// ErrUnavailable means no position could be determined.
	ErrUnavailable = errors.New("locate: position unavailable")
	// ErrTimeout means the provider did not answer in time.
	ErrTimeout = errors.New("locate: timed out")
)
