package flow_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/rapid8/rescuelink/backend"
	"github.com/rapid8/rescuelink/flow"
	"github.com/rapid8/rescuelink/geo"
	"github.com/rapid8/rescuelink/locate"
)

type fakeLocator struct {
	pos locate.Position
	err error
}

func (f *fakeLocator) Current(ctx context.Context) (locate.Position, error) {
	return f.pos, f.err
}

func (f *fakeLocator) Watch(ctx context.Context, fn func(locate.Position)) (func(), error) {
	return func() {}, nil
}

type spySubmitter struct {
	calls atomic.Int32
	resp  *backend.SOSResponse
	err   error
}

func (s *spySubmitter) SubmitSOS(ctx context.Context, sos backend.SOSRequest) (*backend.SOSResponse, error) {
	s.calls.Add(1)
	if s.err != nil {
		return nil, s.err
	}
	return s.resp, nil
}

func validForm() flow.SOSForm {
	return flow.SOSForm{
		Name:         "Asha",
		Contact:      "9999999999",
		Condition:    "cardiac arrest",
		LocationText: "28.7163, 75.7882",
	}
}

func TestSubmitHappyPath(t *testing.T) {
	sub := &spySubmitter{resp: &backend.SOSResponse{
		AmbulanceID: "amb1", RequestID: "ER-1", EstimatedMinutes: 8,
	}}
	f := flow.NewSOSFlow(&fakeLocator{}, sub)

	d, err := f.Submit(context.Background(), validForm())
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if d.AmbulanceID != "amb1" || d.ETAMinutes != 8 {
		t.Errorf("dispatch = %+v", d)
	}
	if d.Room != "ambulance-amb1" {
		t.Errorf("room = %s", d.Room)
	}
	if st, _ := f.State(); st != flow.SOSSucceeded {
		t.Errorf("state = %s, want succeeded", st)
	}
	if sub.calls.Load() != 1 {
		t.Errorf("submit calls = %d, want exactly 1", sub.calls.Load())
	}
}

func TestValidationShortCircuitsNetwork(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*flow.SOSForm)
		field  string
	}{
		{name: "missing name", mutate: func(f *flow.SOSForm) { f.Name = "  " }, field: "name"},
		{name: "missing contact", mutate: func(f *flow.SOSForm) { f.Contact = "" }, field: "contact"},
		{name: "missing condition", mutate: func(f *flow.SOSForm) { f.Condition = "" }, field: "condition"},
		{name: "no location at all", mutate: func(f *flow.SOSForm) { f.LocationText = "" }, field: "location"},
		{name: "unparsable location", mutate: func(f *flow.SOSForm) { f.LocationText = "somewhere" }, field: "location"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sub := &spySubmitter{resp: &backend.SOSResponse{}}
			f := flow.NewSOSFlow(&fakeLocator{}, sub)

			form := validForm()
			tt.mutate(&form)

			_, err := f.Submit(context.Background(), form)
			if !flow.IsValidationError(err) {
				t.Fatalf("error = %v, want validation error", err)
			}
			var ve *flow.ValidationError
			errors.As(err, &ve)
			found := false
			for _, field := range ve.Fields {
				if field == tt.field {
					found = true
				}
			}
			if !found {
				t.Errorf("fields = %v, want %s flagged", ve.Fields, tt.field)
			}
			if sub.calls.Load() != 0 {
				t.Error("network call issued despite invalid form")
			}
		})
	}
}

func TestSubmitUsesObtainedLocation(t *testing.T) {
	loc := &fakeLocator{pos: locate.Position{Coordinate: geo.Coordinate{Lat: 28.70, Lng: 77.10}}}
	sub := &spySubmitter{resp: &backend.SOSResponse{AmbulanceID: "amb1"}}
	f := flow.NewSOSFlow(loc, sub)

	got, err := f.RequestLocation(context.Background())
	if err != nil {
		t.Fatalf("RequestLocation: %v", err)
	}
	if got.Lat != 28.70 {
		t.Errorf("location = %v", got)
	}
	if st, _ := f.State(); st != flow.SOSLocationObtained {
		t.Errorf("state = %s, want location_obtained", st)
	}

	form := validForm()
	form.LocationText = "" // rely on the geolocation step
	if _, err := f.Submit(context.Background(), form); err != nil {
		t.Fatalf("Submit: %v", err)
	}
}

func TestLocationFailureBlocksFlow(t *testing.T) {
	loc := &fakeLocator{err: locate.ErrPermissionDenied}
	f := flow.NewSOSFlow(loc, &spySubmitter{})

	if _, err := f.RequestLocation(context.Background()); !errors.Is(err, locate.ErrPermissionDenied) {
		t.Fatalf("error = %v, want permission denied", err)
	}
	if st, lastErr := f.State(); st != flow.SOSFailed || lastErr == nil {
		t.Errorf("state = %s err = %v, want failed with error", st, lastErr)
	}
}

func TestSubmitFailureIsSingleAttempt(t *testing.T) {
	sub := &spySubmitter{err: &backend.APIError{Status: 503, Message: "unavailable"}}
	f := flow.NewSOSFlow(&fakeLocator{}, sub)

	_, err := f.Submit(context.Background(), validForm())
	var apiErr *backend.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %v", err)
	}
	if sub.calls.Load() != 1 {
		t.Errorf("calls = %d, want 1 (no automatic retry)", sub.calls.Load())
	}
	if st, _ := f.State(); st != flow.SOSFailed {
		t.Errorf("state = %s", st)
	}

	f.Reset()
	if st, _ := f.State(); st != flow.SOSIdle {
		t.Errorf("state after reset = %s", st)
	}
}
