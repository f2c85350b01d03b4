package locate

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/rapid8/rescuelink/geo"
)

// FeedSource reads positions from a line-delimited JSON stream, one reading
// per line: {"lat": ..., "lng": ..., "accuracy": ..., "ts": "RFC3339"}.
// This is how an ambulance-side process attaches a real GPS device feed.
type FeedSource struct {
	r *bufio.Scanner
}

// NewFeedSource wraps a reader producing one JSON reading per line.
func NewFeedSource(r io.Reader) *FeedSource {
	return &FeedSource{r: bufio.NewScanner(r)}
}

type feedLine struct {
	Lat      float64 `json:"lat"`
	Lng      float64 `json:"lng"`
	Accuracy float64 `json:"accuracy"`
	TS       string  `json:"ts"`
}

func (s *FeedSource) next() (Position, error) {
	for s.r.Scan() {
		line := s.r.Bytes()
		if len(line) == 0 {
			continue
		}
		var fl feedLine
		if err := json.Unmarshal(line, &fl); err != nil {
			return Position{}, fmt.Errorf("%w: bad feed line: %v", ErrUnavailable, err)
		}
		c := geo.Coordinate{Lat: fl.Lat, Lng: fl.Lng}
		if !c.Valid() {
			return Position{}, fmt.Errorf("%w: out-of-range feed position %v", ErrUnavailable, c)
		}
		ts := time.Now()
		if fl.TS != "" {
			if parsed, err := time.Parse(time.RFC3339, fl.TS); err == nil {
				ts = parsed
			}
		}
		return Position{Coordinate: c, AccuracyM: fl.Accuracy, Timestamp: ts}, nil
	}
	if err := s.r.Err(); err != nil {
		return Position{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return Position{}, io.EOF
}

func (s *FeedSource) Current(ctx context.Context) (Position, error) {
	if err := ctx.Err(); err != nil {
		return Position{}, err
	}
	p, err := s.next()
	if err == io.EOF {
		return Position{}, ErrUnavailable
	}
	return p, err
}

// Watch drains the feed, invoking fn per reading, until EOF, a malformed
// line, ctx cancellation, or the stop function.
func (s *FeedSource) Watch(ctx context.Context, fn func(Position)) (func(), error) {
	ctx, cancel := context.WithCancel(ctx)
	go func() {
		for {
			if ctx.Err() != nil {
				return
			}
			p, err := s.next()
			if err != nil {
				return
			}
			select {
			case <-ctx.Done():
				return
			default:
				fn(p)
			}
		}
	}()
	return cancel, nil
}
