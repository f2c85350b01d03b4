package backend

import (
	"fmt"
	"time"

	"github.com/rapid8/rescuelink/geo"
)

// Session is the auth payload returned by login/signup.
type Session struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
	Name   string `json:"name"`
	Role   string `json:"role"`
	Token  string `json:"token"`
}

// SignupRequest is the registration form.
type SignupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Phone    string `json:"phone"`
	Role     string `json:"role"`
}

// SOSRequest is the emergency submission. Image is optional.
type SOSRequest struct {
	Name      string
	Contact   string
	Condition string
	Location  geo.Coordinate
	Image     []byte
	ImageName string
}

// SOSResponse is the dispatch result for an accepted SOS.
type SOSResponse struct {
	AmbulanceID      string `json:"ambulanceId"`
	RequestID        string `json:"requestId"`
	EstimatedMinutes int    `json:"estimatedTime"`
	Message          string `json:"message"`
}

// Ambulance is a backend ambulance record with the GeoJSON coordinate order
// already swapped into {lat,lng}.
type Ambulance struct {
	ID            string
	VehicleNumber string
	VehicleType   string
	Available     bool
	Active        bool
	Position      geo.Coordinate
	LastUpdatedAt time.Time
}

// APIError is a non-2xx or success=false backend reply.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("backend: HTTP %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("backend: HTTP %d", e.Status)
}

// ambulanceRecord mirrors the backend's wire shape, location.coordinates in
// [longitude, latitude] order.
type ambulanceRecord struct {
	ID            string `json:"_id"`
	VehicleNumber string `json:"vehicle_number"`
	VehicleType   string `json:"vehicle_type"`
	IsAvailable   bool   `json:"is_available"`
	IsActive      bool   `json:"is_active"`
	LastUpdatedAt string `json:"last_updated_at"`
	Location      struct {
		Type        string    `json:"type"`
		Coordinates []float64 `json:"coordinates"`
	} `json:"location"`
}

func (r *ambulanceRecord) toAmbulance() (*Ambulance, error) {
	pos, err := geo.FromGeoJSON(r.Location.Coordinates)
	if err != nil {
		return nil, fmt.Errorf("ambulance %s location: %w", r.ID, err)
	}
	a := &Ambulance{
		ID:            r.ID,
		VehicleNumber: r.VehicleNumber,
		VehicleType:   r.VehicleType,
		Available:     r.IsAvailable,
		Active:        r.IsActive,
		Position:      pos,
	}
	if r.LastUpdatedAt != "" {
		if ts, err := time.Parse(time.RFC3339, r.LastUpdatedAt); err == nil {
			a.LastUpdatedAt = ts
		}
	}
	return a, nil
}
