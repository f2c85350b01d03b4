package route

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/paulmach/orb"

	"github.com/rapid8/rescuelink/geo"
)

// TravelMode selects the directions profile and the line styling.
type TravelMode string

const (
	ModeDriving TravelMode = "driving"
	ModeWalking TravelMode = "walking"
	ModeCycling TravelMode = "cycling"
)

func (m TravelMode) profile() string {
	switch m {
	case ModeWalking:
		return "mapbox/walking"
	case ModeCycling:
		return "mapbox/cycling"
	default:
		return "mapbox/driving"
	}
}

// Result is one computed route. It is only meaningful for the exact
// (Origin, Destination, Mode) that produced it and is replaced, never
// mutated.
type Result struct {
	Polyline        orb.LineString
	DistanceMeters  float64
	DurationSeconds float64
	Origin          geo.Coordinate
	Destination     geo.Coordinate
	Mode            TravelMode
	ComputedAt      time.Time
}

// ETAMinutes derives the displayed arrival estimate.
func (r *Result) ETAMinutes() int {
	return int(math.Ceil(r.DurationSeconds / 60))
}

// ErrNoRoute means the provider found no path between the endpoints.
var ErrNoRoute = errors.New("route: no route found")

// ProviderError is a directions API failure other than "no route".
type ProviderError struct {
	Status  int
	Message string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("route provider: HTTP %d: %s", e.Status, e.Message)
}

// historySize bounds the recent-routes ring.
const historySize = 5

// Engine computes routes against a Mapbox-style directions API and keeps
// the single current result. Any change of origin, destination or mode
// invalidates the current result before the replacement request resolves,
// so a stale route is never left on display.
type Engine struct {
	baseURL    string
	token      string
	httpClient *http.Client

	mu      sync.Mutex
	gen     uint64
	current *Result
	history []*Result
}

// NewEngine creates an engine. baseURL is the directions root, e.g.
// "https://api.mapbox.com/directions/v5".
func NewEngine(baseURL, accessToken string, timeout time.Duration) *Engine {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Engine{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      accessToken,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Current returns the route on display, or nil while none is valid.
func (e *Engine) Current() *Result {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.current
}

// History returns the most recent computed routes, newest first.
func (e *Engine) History() []*Result {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]*Result, len(e.history))
	copy(out, e.history)
	return out
}

// ComputeRoute fetches a route for the given endpoints and mode. The
// previous result is cleared immediately; if the inputs change again before
// this request resolves, its response is discarded rather than displayed.
func (e *Engine) ComputeRoute(ctx context.Context, origin, destination geo.Coordinate, mode TravelMode) (*Result, error) {
	if !origin.Valid() || !destination.Valid() {
		return nil, fmt.Errorf("route: invalid endpoints %v -> %v", origin, destination)
	}

	e.mu.Lock()
	e.gen++
	myGen := e.gen
	e.current = nil
	e.mu.Unlock()

	res, err := e.fetch(ctx, origin, destination, mode)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.gen != myGen {
		// superseded while in flight
		return nil, nil
	}
	e.current = res
	e.history = append([]*Result{res}, e.history...)
	if len(e.history) > historySize {
		e.history = e.history[:historySize]
	}
	return res, nil
}

// Invalidate clears the current result without starting a new request, for
// when an endpoint changed but the replacement compute has not fired yet.
func (e *Engine) Invalidate() {
	e.mu.Lock()
	e.gen++
	e.current = nil
	e.mu.Unlock()
}

type directionsResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Routes  []struct {
		Geometry struct {
			Coordinates [][]float64 `json:"coordinates"`
			Type        string      `json:"type"`
		} `json:"geometry"`
		Distance float64 `json:"distance"`
		Duration float64 `json:"duration"`
	} `json:"routes"`
}

func (e *Engine) fetch(ctx context.Context, origin, destination geo.Coordinate, mode TravelMode) (*Result, error) {
	// The directions API takes lng,lat pairs.
	url := fmt.Sprintf("%s/%s/%.6f,%.6f;%.6f,%.6f?steps=true&geometries=geojson&access_token=%s",
		e.baseURL, mode.profile(),
		origin.Lng, origin.Lat, destination.Lng, destination.Lat,
		e.token)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("route fetch: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("route read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &ProviderError{Status: resp.StatusCode, Message: strings.TrimSpace(string(body))}
	}

	var dr directionsResponse
	if err := json.Unmarshal(body, &dr); err != nil {
		return nil, fmt.Errorf("route decode: %w", err)
	}
	if dr.Code != "Ok" || len(dr.Routes) == 0 {
		if dr.Code == "NoRoute" || dr.Code == "NoSegment" || len(dr.Routes) == 0 {
			return nil, ErrNoRoute
		}
		return nil, &ProviderError{Status: resp.StatusCode, Message: dr.Message}
	}

	best := dr.Routes[0]
	line := make(orb.LineString, 0, len(best.Geometry.Coordinates))
	for _, pair := range best.Geometry.Coordinates {
		c, err := geo.FromGeoJSON(pair)
		if err != nil {
			return nil, fmt.Errorf("route geometry: %w", err)
		}
		line = append(line, c.Point())
	}

	return &Result{
		Polyline:        line,
		DistanceMeters:  best.Distance,
		DurationSeconds: best.Duration,
		Origin:          origin,
		Destination:     destination,
		Mode:            mode,
		ComputedAt:      time.Now(),
	}, nil
}
