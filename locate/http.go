package locate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rapid8/rescuelink/geo"
)

// HTTPSource reads positions from a locator endpoint returning
// {"lat": ..., "lng": ..., "accuracy": ...}. Used where no device GPS feed
// is attached (the coarse, IP-based fallback of the original flows).
type HTTPSource struct {
	URL          string
	PollInterval time.Duration
	httpClient   *http.Client
}

// NewHTTPSource creates a source against the given locator endpoint.
func NewHTTPSource(url string, timeout time.Duration) *HTTPSource {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPSource{
		URL:          url,
		PollInterval: 5 * time.Second,
		httpClient:   &http.Client{Timeout: timeout},
	}
}

func (s *HTTPSource) Current(ctx context.Context) (Position, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
	if err != nil {
		return Position{}, fmt.Errorf("locator request: %w", err)
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return Position{}, ErrTimeout
		}
		return Position{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return Position{}, ErrPermissionDenied
	case resp.StatusCode != http.StatusOK:
		return Position{}, fmt.Errorf("%w: HTTP %d from %s", ErrUnavailable, resp.StatusCode, s.URL)
	}

	var body struct {
		Lat      float64 `json:"lat"`
		Lng      float64 `json:"lng"`
		Accuracy float64 `json:"accuracy"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Position{}, fmt.Errorf("%w: decode: %v", ErrUnavailable, err)
	}
	c := geo.Coordinate{Lat: body.Lat, Lng: body.Lng}
	if !c.Valid() {
		return Position{}, fmt.Errorf("%w: out-of-range position %v", ErrUnavailable, c)
	}
	return Position{Coordinate: c, AccuracyM: body.Accuracy, Timestamp: time.Now()}, nil
}

// Watch polls Current on the configured interval. Readings that fail are
// skipped; the watch stays alive until stopped.
func (s *HTTPSource) Watch(ctx context.Context, fn func(Position)) (func(), error) {
	first, err := s.Current(ctx)
	if err != nil {
		return nil, err
	}
	fn(first)

	ctx, cancel := context.WithCancel(ctx)
	go func() {
		ticker := time.NewTicker(s.PollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if p, err := s.Current(ctx); err == nil {
					fn(p)
				}
			}
		}
	}()
	return cancel, nil
}
