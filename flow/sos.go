package flow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/rapid8/rescuelink/backend"
	"github.com/rapid8/rescuelink/geo"
	"github.com/rapid8/rescuelink/locate"
	"github.com/rapid8/rescuelink/tracking"
)

// SOSState is the SOS trigger lifecycle.
type SOSState int

const (
	SOSIdle SOSState = iota
	SOSLocationRequested
	SOSLocationObtained
	SOSSubmitting
	SOSSucceeded
	SOSFailed
)

func (s SOSState) String() string {
	switch s {
	case SOSLocationRequested:
		return "location_requested"
	case SOSLocationObtained:
		return "location_obtained"
	case SOSSubmitting:
		return "submitting"
	case SOSSucceeded:
		return "succeeded"
	case SOSFailed:
		return "failed"
	default:
		return "idle"
	}
}

// SOSForm is the user-entered emergency form. Location comes either from
// the geolocation step or from free text the user typed.
type SOSForm struct {
	Name         string
	Contact      string
	Condition    string
	LocationText string
	Image        []byte
}

// Dispatch is a successful SOS outcome: what the live map needs to start.
type Dispatch struct {
	AmbulanceID string
	RequestID   string
	ETAMinutes  int
	Room        string
}

// ValidationError lists the form fields that block submission. It is fully
// recoverable by correction and never reaches the network.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return "sos: missing or invalid fields: " + strings.Join(e.Fields, ", ")
}

// Submitter is the one backend call the flow makes.
type Submitter interface {
	SubmitSOS(ctx context.Context, sos backend.SOSRequest) (*backend.SOSResponse, error)
}

// SOSFlow walks Idle -> LocationRequested -> LocationObtained ->
// Submitting -> Succeeded|Failed. One submission per trigger; a failure is
// surfaced for a manual retry, never retried automatically.
type SOSFlow struct {
	locator   locate.Source
	submitter Submitter

	mu       sync.Mutex
	state    SOSState
	position *geo.Coordinate
	lastErr  error
}

// NewSOSFlow wires the flow to a position source and the backend.
func NewSOSFlow(locator locate.Source, submitter Submitter) *SOSFlow {
	return &SOSFlow{locator: locator, submitter: submitter}
}

// State returns the current flow state and the last error, if any.
func (f *SOSFlow) State() (SOSState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state, f.lastErr
}

// RequestLocation performs the geolocation step. A location failure blocks
// coordinate-dependent submission but the form can still carry typed
// coordinates.
func (f *SOSFlow) RequestLocation(ctx context.Context) (geo.Coordinate, error) {
	f.setState(SOSLocationRequested, nil)
	pos, err := f.locator.Current(ctx)
	if err != nil {
		f.setState(SOSFailed, err)
		return geo.Coordinate{}, fmt.Errorf("sos location: %w", err)
	}
	f.mu.Lock()
	c := pos.Coordinate
	f.position = &c
	f.state = SOSLocationObtained
	f.lastErr = nil
	f.mu.Unlock()
	return pos.Coordinate, nil
}

// Submit validates the form and posts it once. Validation failures
// short-circuit before any network call.
func (f *SOSFlow) Submit(ctx context.Context, form SOSForm) (*Dispatch, error) {
	loc, verr := f.resolveLocation(form)
	if verr != nil {
		f.setState(SOSFailed, verr)
		return nil, verr
	}

	f.setState(SOSSubmitting, nil)
	resp, err := f.submitter.SubmitSOS(ctx, backend.SOSRequest{
		Name:      strings.TrimSpace(form.Name),
		Contact:   strings.TrimSpace(form.Contact),
		Condition: strings.TrimSpace(form.Condition),
		Location:  loc,
		Image:     form.Image,
	})
	if err != nil {
		f.setState(SOSFailed, err)
		return nil, err
	}

	f.setState(SOSSucceeded, nil)
	return &Dispatch{
		AmbulanceID: resp.AmbulanceID,
		RequestID:   resp.RequestID,
		ETAMinutes:  resp.EstimatedMinutes,
		Room:        tracking.RoomKey(resp.AmbulanceID),
	}, nil
}

// Reset returns a failed flow to Idle for another attempt.
func (f *SOSFlow) Reset() {
	f.setState(SOSIdle, nil)
}

func (f *SOSFlow) resolveLocation(form SOSForm) (geo.Coordinate, error) {
	missing := []string{}
	if strings.TrimSpace(form.Name) == "" {
		missing = append(missing, "name")
	}
	if strings.TrimSpace(form.Contact) == "" {
		missing = append(missing, "contact")
	}
	if strings.TrimSpace(form.Condition) == "" {
		missing = append(missing, "condition")
	}

	var loc geo.Coordinate
	switch {
	case strings.TrimSpace(form.LocationText) != "":
		parsed, err := geo.ParseFreeText(form.LocationText)
		if err != nil {
			missing = append(missing, "location")
		} else {
			loc = parsed
		}
	default:
		f.mu.Lock()
		if f.position != nil {
			loc = *f.position
		} else {
			missing = append(missing, "location")
		}
		f.mu.Unlock()
	}

	if len(missing) > 0 {
		return geo.Coordinate{}, &ValidationError{Fields: missing}
	}
	return loc, nil
}

func (f *SOSFlow) setState(s SOSState, err error) {
	f.mu.Lock()
	f.state = s
	f.lastErr = err
	f.mu.Unlock()
}

// IsValidationError reports whether err blocks submission as user input.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
