package flow

import (
	"context"
	"errors"
	"log"
	"sync"

	"github.com/rapid8/rescuelink/geo"
	"github.com/rapid8/rescuelink/render"
	"github.com/rapid8/rescuelink/route"
	"github.com/rapid8/rescuelink/tracking"
)

// Phase is the live-map lifecycle. It only terminates by navigation away
// (Stop).
type Phase int

const (
	PhaseLoading Phase = iota
	PhaseTracking
	PhaseReconnecting
)

func (p Phase) String() string {
	switch p {
	case PhaseTracking:
		return "tracking"
	case PhaseReconnecting:
		return "reconnecting"
	default:
		return "loading"
	}
}

// Tracker is the tracking surface the live map consumes.
type Tracker interface {
	Start(ctx context.Context, trackedID string, originHint *geo.Coordinate) (<-chan tracking.State, error)
	Reconnect(ctx context.Context) error
	Stop()
}

// Router computes the ambulance-to-patient route.
type Router interface {
	ComputeRoute(ctx context.Context, origin, destination geo.Coordinate, mode route.TravelMode) (*route.Result, error)
}

// rerouteThresholdKM is how far the ambulance drifts from the last routed
// origin before the path is recomputed.
const rerouteThresholdKM = 0.25

// LiveMap drives the emergency map: each ambulance snapshot moves the
// marker, re-routes when the ambulance has drifted, refreshes the ETA and
// refits the viewport.
type LiveMap struct {
	tracker Tracker
	router  Router
	view    *render.View
	mode    route.TravelMode

	mu         sync.Mutex
	phase      Phase
	degraded   bool
	latest     tracking.State
	eta        *route.Countdown
	lastRouted *geo.Coordinate
	cancel     context.CancelFunc
	done       chan struct{}
}

// NewLiveMap composes the tracking store, route engine and view.
func NewLiveMap(tracker Tracker, router Router, view *render.View, mode route.TravelMode) *LiveMap {
	if mode == "" {
		mode = route.ModeDriving
	}
	return &LiveMap{tracker: tracker, router: router, view: view, mode: mode}
}

// Start begins tracking ambulanceID toward the patient position. It returns
// once the subscription is live; updates are applied in the background until
// Stop.
func (m *LiveMap) Start(ctx context.Context, ambulanceID string, patient geo.Coordinate, originHint *geo.Coordinate) error {
	m.mu.Lock()
	if m.done != nil {
		m.mu.Unlock()
		return errors.New("livemap: already started")
	}
	m.phase = PhaseLoading
	m.mu.Unlock()

	if err := m.view.UpsertMarker("patient", render.KindSelf, patient); err != nil {
		return err
	}

	states, err := m.tracker.Start(ctx, ambulanceID, originHint)
	if err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	m.mu.Lock()
	m.cancel = cancel
	m.done = done
	m.phase = PhaseTracking
	m.mu.Unlock()

	go m.run(runCtx, done, states, patient)
	return nil
}

func (m *LiveMap) run(ctx context.Context, done chan struct{}, states <-chan tracking.State, patient geo.Coordinate) {
	defer close(done)
	for {
		select {
		case <-ctx.Done():
			return
		case st, ok := <-states:
			if !ok {
				return
			}
			m.apply(ctx, st, patient)
		}
	}
}

func (m *LiveMap) apply(ctx context.Context, st tracking.State, patient geo.Coordinate) {
	m.mu.Lock()
	m.latest = st
	m.degraded = !st.Connected
	needRoute := st.Position.Valid() &&
		(m.lastRouted == nil || geo.HaversineKM(*m.lastRouted, st.Position) >= rerouteThresholdKM)
	m.mu.Unlock()

	if st.Position.Valid() {
		if err := m.view.UpsertMarker("ambulance", render.KindAmbulance, st.Position); err != nil {
			return
		}
	}

	if needRoute {
		res, err := m.router.ComputeRoute(ctx, st.Position, patient, m.mode)
		switch {
		case err != nil:
			// The map keeps its markers; only the line is missing.
			log.Printf("livemap: route refresh failed: %v", err)
			m.view.ClearRoute()
		case res != nil:
			_ = m.view.SetRoute(res)
			m.mu.Lock()
			pos := st.Position
			m.lastRouted = &pos
			if m.eta == nil {
				m.eta = route.NewCountdown(res, nil)
			} else {
				m.eta.Refresh(res)
			}
			m.mu.Unlock()
		}
	}

	m.view.FitBounds()
}

// Snapshot reports the current phase, degradation flag, latest tracking
// state and displayed ETA minutes (-1 while unknown).
func (m *LiveMap) Snapshot() (Phase, bool, tracking.State, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	minutes := -1
	if m.eta != nil {
		minutes = m.eta.Minutes()
	}
	return m.phase, m.degraded, m.latest, minutes
}

// Reconnect is the user-initiated channel re-establishment.
func (m *LiveMap) Reconnect(ctx context.Context) error {
	m.mu.Lock()
	m.phase = PhaseReconnecting
	m.mu.Unlock()

	err := m.tracker.Reconnect(ctx)

	m.mu.Lock()
	m.phase = PhaseTracking
	m.mu.Unlock()
	return err
}

// Stop tears the view down: tracking subscription, ETA ticker and map
// resources all released.
func (m *LiveMap) Stop() {
	m.mu.Lock()
	cancel := m.cancel
	done := m.done
	eta := m.eta
	m.cancel = nil
	m.done = nil
	m.eta = nil
	m.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	m.tracker.Stop()
	if done != nil {
		<-done
	}
	if eta != nil {
		eta.Stop()
	}
	m.view.Close()
}
