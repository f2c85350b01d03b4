package rescuelink

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/paulmach/orb/geojson"

	"github.com/rapid8/rescuelink/backend"
	"github.com/rapid8/rescuelink/config"
	"github.com/rapid8/rescuelink/flow"
	"github.com/rapid8/rescuelink/geo"
	"github.com/rapid8/rescuelink/route"
)

// emergencyRecord is one accepted SOS, kept in memory for the dashboards.
type emergencyRecord struct {
	RequestID   string         `json:"requestId"`
	AmbulanceID string         `json:"ambulanceId"`
	Name        string         `json:"name"`
	Condition   string         `json:"condition"`
	Location    geo.Coordinate `json:"location"`
	ETAMinutes  int            `json:"etaMinutes"`
	CreatedAt   time.Time      `json:"createdAt"`
}

var (
	emergenciesMu sync.Mutex
	emergencies   []emergencyRecord
)

func backendClient(r *http.Request) *backend.Client {
	c := backend.NewClient(config.Config.Backend.BaseURL,
		time.Duration(config.Config.Backend.TimeoutMS)*time.Millisecond)
	if tok, err := r.Cookie(authTokenCookie); err == nil {
		c.SetToken(tok.Value)
	}
	return c
}

func routeEngine() *route.Engine {
	d := config.Config.Directions
	return route.NewEngine(d.BaseURL, d.AccessToken,
		time.Duration(config.Config.Backend.TimeoutMS)*time.Millisecond)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"success": false, "message": msg})
}

// backendStatus maps a backend or provider failure onto the gateway reply.
func backendStatus(err error) int {
	var apiErr *backend.APIError
	if errors.As(err, &apiErr) && apiErr.Status >= 400 {
		return apiErr.Status
	}
	return http.StatusBadGateway
}

type healthResponse struct {
	Status            string `json:"status"`
	ActiveEmergencies int    `json:"active_emergencies"`
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	emergenciesMu.Lock()
	n := len(emergencies)
	emergenciesMu.Unlock()
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok", ActiveEmergencies: n})
}

type sosBody struct {
	Name      string `json:"name"`
	Contact   string `json:"contact"`
	Condition string `json:"condition"`
	Location  string `json:"location"`
}

func handleSOS(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST required")
		return
	}
	var body sosBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	// Location always arrives as form text here; the geolocation step runs
	// on the caller's side, so the flow gets no position source.
	f := flow.NewSOSFlow(nil, backendClient(r))
	d, err := f.Submit(r.Context(), flow.SOSForm{
		Name:         body.Name,
		Contact:      body.Contact,
		Condition:    body.Condition,
		LocationText: body.Location,
	})
	if err != nil {
		if flow.IsValidationError(err) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, backendStatus(err), err.Error())
		return
	}

	loc, _ := geo.ParseFreeText(body.Location)
	emergenciesMu.Lock()
	emergencies = append([]emergencyRecord{{
		RequestID:   d.RequestID,
		AmbulanceID: d.AmbulanceID,
		Name:        body.Name,
		Condition:   body.Condition,
		Location:    loc,
		ETAMinutes:  d.ETAMinutes,
		CreatedAt:   time.Now(),
	}}, emergencies...)
	emergenciesMu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{
		"success":     true,
		"ambulanceId": d.AmbulanceID,
		"requestId":   d.RequestID,
		"etaMinutes":  d.ETAMinutes,
		"room":        d.Room,
	})
}

func handleTrack(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "id query parameter required")
		return
	}
	amb, err := backendClient(r).Ambulance(r.Context(), id)
	if err != nil {
		writeError(w, backendStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"id":            amb.ID,
		"vehicleNumber": amb.VehicleNumber,
		"vehicleType":   amb.VehicleType,
		"lat":           amb.Position.Lat,
		"lng":           amb.Position.Lng,
		"available":     amb.Available,
		"active":        amb.Active,
		"lastUpdated":   amb.LastUpdatedAt,
	})
}

func handleRoute(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	origin, err := geo.ParseFreeText(q.Get("origin"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "origin: "+err.Error())
		return
	}
	destination, err := geo.ParseFreeText(q.Get("destination"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "destination: "+err.Error())
		return
	}
	mode := route.TravelMode(q.Get("mode"))
	if mode == "" {
		mode = route.ModeDriving
	}

	res, err := routeEngine().ComputeRoute(r.Context(), origin, destination, mode)
	if err != nil {
		if errors.Is(err, route.ErrNoRoute) {
			writeError(w, http.StatusNotFound, "no route between endpoints")
			return
		}
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"distanceMeters":  res.DistanceMeters,
		"durationSeconds": res.DurationSeconds,
		"etaMinutes":      res.ETAMinutes(),
		"mode":            res.Mode,
		"geometry":        geojson.NewGeometry(res.Polyline),
	})
}

func handleHospitalDashboard(w http.ResponseWriter, r *http.Request) {
	emergenciesMu.Lock()
	out := make([]emergencyRecord, len(emergencies))
	copy(out, emergencies)
	emergenciesMu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"emergencies": out})
}

func handleAmbulanceDashboard(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	emergenciesMu.Lock()
	out := []emergencyRecord{}
	for _, e := range emergencies {
		if id == "" || e.AmbulanceID == id {
			out = append(out, e)
		}
	}
	emergenciesMu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"assignments": out})
}
