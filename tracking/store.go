package tracking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/rapid8/rescuelink/backend"
	"github.com/rapid8/rescuelink/geo"
	"github.com/rapid8/rescuelink/realtime"
)

// Status is the dispatch stage of a tracked ambulance.
type Status string

const (
	StatusAvailable  Status = "available"
	StatusDispatched Status = "dispatched"
	StatusEnRoute    Status = "en_route"
	StatusArrived    Status = "arrived"
)

// State is one tracking snapshot. Snapshots are replaced wholesale; the
// store is their only writer.
type State struct {
	ID          string
	Position    geo.Coordinate
	Status      Status
	LastUpdated time.Time
	Connected   bool
}

// Channel is the push-channel surface the store needs.
type Channel interface {
	Connect(ctx context.Context) error
	Join(room string)
	Leave(room string)
	On(event string, handler func(json.RawMessage))
	Disconnect()
	Connected() bool
}

// Poller fetches the tracked ambulance over REST when the channel is quiet.
type Poller interface {
	Ambulance(ctx context.Context, id string) (*backend.Ambulance, error)
}

// Options tune the staleness fallback.
type Options struct {
	// StaleAfter is how long the store waits without a channel event
	// before falling back to polling.
	StaleAfter time.Duration
	// PollInterval is the REST fallback cadence.
	PollInterval time.Duration
}

// Store tracks one ambulance at a time. Starting a new id tears down the
// previous subscription first, so a view never leaks channels or timers.
type Store struct {
	channel Channel
	poller  Poller
	opts    Options

	mu     sync.Mutex
	active *subscription
}

type subscription struct {
	id     string
	room   string
	out    chan State
	events chan geo.Coordinate
	cancel context.CancelFunc
	done   chan struct{}
}

// ErrNoTrackedID is returned when Start is called with an empty id.
var ErrNoTrackedID = errors.New("tracking: empty tracked id")

// NewStore wires a store to a channel and a REST poller.
func NewStore(channel Channel, poller Poller, opts Options) *Store {
	if opts.StaleAfter <= 0 {
		opts.StaleAfter = 15 * time.Second
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 10 * time.Second
	}
	s := &Store{channel: channel, poller: poller, opts: opts}
	// One handler for the store's lifetime; it forwards to whichever
	// subscription is active.
	channel.On(realtime.EventLocationUpdate, s.onLocationUpdate)
	return s
}

// Start begins tracking an ambulance and returns its snapshot stream. The
// stream closes when the subscription is stopped or ctx is done.
func (s *Store) Start(ctx context.Context, trackedID string, originHint *geo.Coordinate) (<-chan State, error) {
	if trackedID == "" {
		return nil, ErrNoTrackedID
	}

	s.Stop()

	if err := s.channel.Connect(ctx); err != nil {
		log.Printf("tracking: channel connect failed, polling only: %v", err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	sub := &subscription{
		id:     trackedID,
		room:   RoomKey(trackedID),
		out:    make(chan State, 16),
		events: make(chan geo.Coordinate, 16),
		cancel: cancel,
		done:   make(chan struct{}),
	}

	s.mu.Lock()
	s.active = sub
	s.mu.Unlock()

	s.channel.Join(sub.room)

	initial := State{ID: trackedID, Status: StatusDispatched, Connected: s.channel.Connected()}
	if originHint != nil {
		initial.Position = *originHint
		initial.LastUpdated = time.Now()
	}

	go s.run(runCtx, sub, initial)
	return sub.out, nil
}

// Stop tears down the active subscription: leaves the room, disconnects the
// channel and stops the fallback timer.
func (s *Store) Stop() {
	s.mu.Lock()
	sub := s.active
	s.active = nil
	s.mu.Unlock()
	if sub == nil {
		return
	}
	s.channel.Leave(sub.room)
	s.channel.Disconnect()
	sub.cancel()
	<-sub.done
}

// Reconnect tears down and re-establishes the channel for the active
// subscription. The next emitted snapshot reports the new connection state.
func (s *Store) Reconnect(ctx context.Context) error {
	s.mu.Lock()
	sub := s.active
	s.mu.Unlock()
	if sub == nil {
		return errors.New("tracking: no active subscription")
	}
	s.channel.Disconnect()
	if err := s.channel.Connect(ctx); err != nil {
		return fmt.Errorf("tracking reconnect: %w", err)
	}
	s.channel.Join(sub.room)
	return nil
}

// RoomKey builds the channel room for an ambulance id.
func RoomKey(ambulanceID string) string {
	return "ambulance-" + ambulanceID
}

func (s *Store) onLocationUpdate(data json.RawMessage) {
	s.mu.Lock()
	sub := s.active
	s.mu.Unlock()
	if sub == nil {
		return
	}
	pos, ok := decodePosition(data)
	if !ok {
		log.Printf("tracking: unrecognized location payload: %s", data)
		return
	}
	select {
	case sub.events <- pos:
	default:
		// a full queue means the consumer is behind; newer events win
	}
}

// run owns the subscription state. All mutation happens on this goroutine,
// so snapshots are serialized without extra locking.
func (s *Store) run(ctx context.Context, sub *subscription, current State) {
	defer close(sub.done)
	defer close(sub.out)

	emit := func() {
		current.Connected = s.channel.Connected()
		select {
		case sub.out <- current:
		default:
		}
	}
	emit()

	ticker := time.NewTicker(s.opts.PollInterval)
	defer ticker.Stop()
	lastEvent := time.Now()

	for {
		select {
		case <-ctx.Done():
			return
		case pos := <-sub.events:
			current.Position = pos
			current.Status = StatusEnRoute
			current.LastUpdated = time.Now()
			lastEvent = current.LastUpdated
			emit()
		case <-ticker.C:
			if time.Since(lastEvent) < s.opts.StaleAfter {
				continue
			}
			// Channel has gone quiet; degrade to slow-but-alive REST
			// polling instead of freezing the view.
			amb, err := s.poller.Ambulance(ctx, sub.id)
			if err != nil {
				log.Printf("tracking: fallback poll failed: %v", err)
				emit()
				continue
			}
			current.Position = amb.Position
			current.LastUpdated = time.Now()
			if !amb.Active {
				current.Status = StatusAvailable
			}
			emit()
		}
	}
}

// decodePosition accepts the payload shapes seen from the backend:
// {"lat","lng"}, {"coordinates":[lng,lat]} and
// {"location":{"coordinates":[lng,lat]}}.
func decodePosition(data json.RawMessage) (geo.Coordinate, bool) {
	var flat struct {
		Lat         *float64  `json:"lat"`
		Lng         *float64  `json:"lng"`
		Coordinates []float64 `json:"coordinates"`
		Location    *struct {
			Coordinates []float64 `json:"coordinates"`
		} `json:"location"`
	}
	if err := json.Unmarshal(data, &flat); err != nil {
		return geo.Coordinate{}, false
	}
	if flat.Lat != nil && flat.Lng != nil {
		c := geo.Coordinate{Lat: *flat.Lat, Lng: *flat.Lng}
		return c, c.Valid()
	}
	pair := flat.Coordinates
	if pair == nil && flat.Location != nil {
		pair = flat.Location.Coordinates
	}
	if pair != nil {
		c, err := geo.FromGeoJSON(pair)
		return c, err == nil
	}
	return geo.Coordinate{}, false
}
