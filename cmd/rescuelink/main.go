package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"time"

	"github.com/joho/godotenv"

	lib "github.com/rapid8/rescuelink"
	"github.com/rapid8/rescuelink/backend"
	"github.com/rapid8/rescuelink/config"
	"github.com/rapid8/rescuelink/flow"
	"github.com/rapid8/rescuelink/geo"
	"github.com/rapid8/rescuelink/realtime"
	"github.com/rapid8/rescuelink/route"
	"github.com/rapid8/rescuelink/tracking"
)

func main() {
	mode := flag.String("mode", "serve", "serve|route|track|sos")
	origin := flag.String("origin", "", `origin "lat,lng" (route mode)`)
	destination := flag.String("destination", "", `destination "lat,lng" (route mode)`)
	travel := flag.String("travel", "driving", "driving|walking|cycling")
	ambulanceID := flag.String("ambulance", "", "ambulance id (track mode)")
	watch := flag.Duration("watch", 0, "follow live updates for this long (track mode)")
	name := flag.String("name", "", "patient name (sos mode)")
	contact := flag.String("contact", "", "contact number (sos mode)")
	condition := flag.String("condition", "", "patient condition (sos mode)")
	location := flag.String("location", "", `patient location "lat,lng" (sos mode)`)
	flag.Parse()

	_ = godotenv.Load()
	lib.InitLogging()
	if err := lib.LoadAppConfig(); err != nil {
		panic(err)
	}
	cfg := config.Config

	switch *mode {
	case "serve":
		lib.StartServer()
		lib.HandleGracefulShutdown()
	case "route":
		from, err := geo.ParseFreeText(*origin)
		if err != nil {
			panic(err)
		}
		to, err := geo.ParseFreeText(*destination)
		if err != nil {
			panic(err)
		}
		engine := route.NewEngine(cfg.Directions.BaseURL, cfg.Directions.AccessToken,
			time.Duration(cfg.Backend.TimeoutMS)*time.Millisecond)
		res, err := engine.ComputeRoute(context.Background(), from, to, route.TravelMode(*travel))
		if err != nil {
			panic(err)
		}
		printJSON(map[string]any{
			"distanceMeters":  res.DistanceMeters,
			"durationSeconds": res.DurationSeconds,
			"etaMinutes":      res.ETAMinutes(),
			"points":          len(res.Polyline),
		})
	case "track":
		if *ambulanceID == "" {
			panic("track mode requires -ambulance")
		}
		client := newBackendClient(cfg)
		if *watch <= 0 || cfg.Realtime.URL == "" {
			amb, err := client.Ambulance(context.Background(), *ambulanceID)
			if err != nil {
				panic(err)
			}
			printJSON(map[string]any{
				"id": amb.ID, "lat": amb.Position.Lat, "lng": amb.Position.Lng,
				"available": amb.Available, "active": amb.Active,
			})
			return
		}
		channel := realtime.NewChannel(cfg.Realtime.URL, realtime.Options{
			ReconnectAttempts: cfg.Realtime.ReconnectAttempts,
			ReconnectDelay:    time.Duration(cfg.Realtime.ReconnectDelayMS) * time.Millisecond,
		})
		store := tracking.NewStore(channel, client, tracking.Options{
			StaleAfter:   time.Duration(cfg.Tracking.StaleAfterMS) * time.Millisecond,
			PollInterval: time.Duration(cfg.Tracking.PollIntervalMS) * time.Millisecond,
		})
		ctx, cancel := context.WithTimeout(context.Background(), *watch)
		defer cancel()
		states, err := store.Start(ctx, *ambulanceID, nil)
		if err != nil {
			panic(err)
		}
		for st := range states {
			printJSON(map[string]any{
				"id": st.ID, "lat": st.Position.Lat, "lng": st.Position.Lng,
				"status": st.Status, "connected": st.Connected,
			})
		}
		store.Stop()
	case "sos":
		// Location comes from the -location flag, so no position source.
		f := flow.NewSOSFlow(nil, newBackendClient(cfg))
		d, err := f.Submit(context.Background(), flow.SOSForm{
			Name:         *name,
			Contact:      *contact,
			Condition:    *condition,
			LocationText: *location,
		})
		if err != nil {
			panic(err)
		}
		printJSON(map[string]any{
			"ambulanceId": d.AmbulanceID,
			"requestId":   d.RequestID,
			"etaMinutes":  d.ETAMinutes,
			"room":        d.Room,
		})
	default:
		panic("unknown mode")
	}
}

func newBackendClient(cfg config.AppConfig) *backend.Client {
	return backend.NewClient(cfg.Backend.BaseURL,
		time.Duration(cfg.Backend.TimeoutMS)*time.Millisecond)
}

func printJSON(v any) {
	buf, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		panic(err)
	}
	fmt.Println(string(buf))
}
