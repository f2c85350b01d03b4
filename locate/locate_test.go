package locate_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rapid8/rescuelink/locate"
)

func TestHTTPSourceCurrent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"lat": 28.7041, "lng": 77.1025, "accuracy": 120}`))
	}))
	defer srv.Close()

	src := locate.NewHTTPSource(srv.URL, time.Second)
	p, err := src.Current(context.Background())
	if err != nil {
		t.Fatalf("Current: %v", err)
	}
	if p.Lat != 28.7041 || p.Lng != 77.1025 {
		t.Errorf("position = %v", p.Coordinate)
	}
	if p.AccuracyM != 120 {
		t.Errorf("accuracy = %f, want 120", p.AccuracyM)
	}
	if p.Timestamp.IsZero() {
		t.Error("timestamp not set")
	}
}

func TestHTTPSourceFailureKinds(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   error
	}{
		{name: "forbidden maps to permission denied", status: http.StatusForbidden, want: locate.ErrPermissionDenied},
		{name: "unauthorized maps to permission denied", status: http.StatusUnauthorized, want: locate.ErrPermissionDenied},
		{name: "server error maps to unavailable", status: http.StatusInternalServerError, want: locate.ErrUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			_, err := locate.NewHTTPSource(srv.URL, time.Second).Current(context.Background())
			if !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestHTTPSourceRejectsOutOfRange(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"lat": 120.0, "lng": 77.0}`))
	}))
	defer srv.Close()

	_, err := locate.NewHTTPSource(srv.URL, time.Second).Current(context.Background())
	if !errors.Is(err, locate.ErrUnavailable) {
		t.Errorf("error = %v, want ErrUnavailable", err)
	}
}

func TestFeedSourceWatch(t *testing.T) {
	feed := strings.Join([]string{
		`{"lat": 28.70, "lng": 77.10}`,
		`{"lat": 28.71, "lng": 77.11}`,
		`{"lat": 28.72, "lng": 77.12}`,
	}, "\n")

	src := locate.NewFeedSource(strings.NewReader(feed))
	var count atomic.Int32
	done := make(chan struct{})

	stop, err := src.Watch(context.Background(), func(p locate.Position) {
		if n := count.Add(1); n == 3 {
			close(done)
		}
	})
	if err != nil {
		t.Fatalf("Watch: %v", err)
	}
	defer stop()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("watched %d readings, want 3", count.Load())
	}
}

func TestFeedSourceCurrentEOF(t *testing.T) {
	src := locate.NewFeedSource(strings.NewReader(""))
	if _, err := src.Current(context.Background()); !errors.Is(err, locate.ErrUnavailable) {
		t.Errorf("error = %v, want ErrUnavailable at EOF", err)
	}
}
