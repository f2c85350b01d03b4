package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rapid8/rescuelink/geo"
)

// Client is the HTTP client for the EMS backend REST API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	token      string
}

// NewClient creates a backend client. timeout bounds every request.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// SetToken attaches a bearer token to subsequent requests.
func (c *Client) SetToken(token string) { c.token = token }

// apiEnvelope is the backend's common reply wrapper.
type apiEnvelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (c *Client) do(req *http.Request) (*apiEnvelope, error) {
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("backend %s %s: %w", req.Method, req.URL.Path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("backend read body: %w", err)
	}
	var env apiEnvelope
	if len(body) > 0 {
		// tolerate non-JSON error bodies
		_ = json.Unmarshal(body, &env)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 || !env.Success {
		msg := env.Message
		if msg == "" {
			msg = strings.TrimSpace(string(body))
		}
		return nil, &APIError{Status: resp.StatusCode, Message: msg}
	}
	return &env, nil
}

func (c *Client) postJSON(ctx context.Context, path string, payload any) (*apiEnvelope, error) {
	buf, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("backend encode %s: %w", path, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(buf))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req)
}

// Login authenticates and returns the session payload.
func (c *Client) Login(ctx context.Context, email, password string) (*Session, error) {
	env, err := c.postJSON(ctx, "/api/auth/login", map[string]string{
		"email":    email,
		"password": password,
	})
	if err != nil {
		return nil, err
	}
	var s Session
	if err := json.Unmarshal(env.Data, &s); err != nil {
		return nil, fmt.Errorf("backend login payload: %w", err)
	}
	c.token = s.Token
	return &s, nil
}

// Signup registers a new account.
func (c *Client) Signup(ctx context.Context, reg SignupRequest) (*Session, error) {
	env, err := c.postJSON(ctx, "/api/auth/signup", reg)
	if err != nil {
		return nil, err
	}
	var s Session
	if err := json.Unmarshal(env.Data, &s); err != nil {
		return nil, fmt.Errorf("backend signup payload: %w", err)
	}
	return &s, nil
}

// SubmitSOS posts the emergency form as multipart/form-data and returns the
// dispatch result. Validation happens in the flow layer; by the time this
// runs the request is complete.
func (c *Client) SubmitSOS(ctx context.Context, sos SOSRequest) (*SOSResponse, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fields := map[string]string{
		"name":      sos.Name,
		"contact":   sos.Contact,
		"condition": sos.Condition,
		"latitude":  strconv.FormatFloat(sos.Location.Lat, 'f', -1, 64),
		"longitude": strconv.FormatFloat(sos.Location.Lng, 'f', -1, 64),
	}
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			return nil, fmt.Errorf("backend sos field %s: %w", k, err)
		}
	}
	if len(sos.Image) > 0 {
		name := sos.ImageName
		if name == "" {
			name = "photo.jpg"
		}
		fw, err := mw.CreateFormFile("image", name)
		if err != nil {
			return nil, fmt.Errorf("backend sos image: %w", err)
		}
		if _, err := fw.Write(sos.Image); err != nil {
			return nil, fmt.Errorf("backend sos image: %w", err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/sos", &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	// SOS replies put the dispatch fields at the top level, not under data.
	req.Header.Set("Accept", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("backend POST /api/sos: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("backend read body: %w", err)
	}
	var out struct {
		Success bool `json:"success"`
		SOSResponse
	}
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &out)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 || !out.Success {
		msg := out.Message
		if msg == "" {
			msg = strings.TrimSpace(string(raw))
		}
		return nil, &APIError{Status: resp.StatusCode, Message: msg}
	}
	return &out.SOSResponse, nil
}

// Ambulance fetches one ambulance by id.
func (c *Client) Ambulance(ctx context.Context, id string) (*Ambulance, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/ambulance/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, err
	}
	env, err := c.do(req)
	if err != nil {
		return nil, err
	}
	var rec ambulanceRecord
	if err := json.Unmarshal(env.Data, &rec); err != nil {
		return nil, fmt.Errorf("backend ambulance payload: %w", err)
	}
	return rec.toAmbulance()
}

// NearestAmbulance asks the backend's geospatial index for the closest
// available ambulance to the given position.
func (c *Client) NearestAmbulance(ctx context.Context, at geo.Coordinate) (*Ambulance, error) {
	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(at.Lat, 'f', -1, 64))
	q.Set("lng", strconv.FormatFloat(at.Lng, 'f', -1, 64))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/ambulance/nearest?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	env, err := c.do(req)
	if err != nil {
		return nil, err
	}
	var rec ambulanceRecord
	if err := json.Unmarshal(env.Data, &rec); err != nil {
		return nil, fmt.Errorf("backend nearest payload: %w", err)
	}
	return rec.toAmbulance()
}

// UpdateLocation pushes an ambulance position. The body carries a GeoJSON
// Point, so the coordinate order flips here at the boundary.
func (c *Client) UpdateLocation(ctx context.Context, ambulanceID string, at geo.Coordinate) error {
	payload := map[string]any{
		"ambulanceId": ambulanceID,
		"location": map[string]any{
			"type":        "Point",
			"coordinates": at.GeoJSON(),
		},
	}
	buf, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, c.baseURL+"/api/ambulance/update-location", bytes.NewReader(buf))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	_, err = c.do(req)
	return err
}
