package config

// ServerConfig contains gateway server configuration
type ServerConfig struct {
	Port int `yaml:"port" validate:"gt=0"`
}

// BackendConfig points at the EMS backend REST API
type BackendConfig struct {
	BaseURL   string `yaml:"baseURL" validate:"required,url"`
	TimeoutMS int    `yaml:"timeoutMS" validate:"gte=0"`
}

// RealtimeConfig configures the push channel to the backend
type RealtimeConfig struct {
	URL               string `yaml:"url" validate:"omitempty,url"`
	ReconnectAttempts int    `yaml:"reconnectAttempts" validate:"gte=0"`
	ReconnectDelayMS  int    `yaml:"reconnectDelayMS" validate:"gte=0"`
}

// DirectionsConfig configures the third-party directions provider
type DirectionsConfig struct {
	BaseURL     string `yaml:"baseURL" validate:"omitempty,url"`
	AccessToken string `yaml:"accessToken"`
}

// TrackingConfig tunes the live-tracking store
type TrackingConfig struct {
	StaleAfterMS   int `yaml:"staleAfterMS" validate:"gte=0"`
	PollIntervalMS int `yaml:"pollIntervalMS" validate:"gte=0"`
}

// GuardConfig lists path prefixes enforced by the route guard.
// RoleRoutes maps a prefix to the roles allowed through it.
type GuardConfig struct {
	Protected  []string            `yaml:"protected"`
	RoleRoutes map[string][]string `yaml:"roleRoutes"`
}

// MapConfig sets the fallback viewport when no origin is known
type MapConfig struct {
	DefaultLat  float64 `yaml:"defaultLat" validate:"gte=-90,lte=90"`
	DefaultLng  float64 `yaml:"defaultLng" validate:"gte=-180,lte=180"`
	DefaultZoom float64 `yaml:"defaultZoom" validate:"gte=0"`
}

// AppConfig is the root configuration structure
type AppConfig struct {
	Server     ServerConfig     `yaml:"server" validate:"required"`
	Backend    BackendConfig    `yaml:"backend" validate:"required"`
	Realtime   RealtimeConfig   `yaml:"realtime"`
	Directions DirectionsConfig `yaml:"directions"`
	Tracking   TrackingConfig   `yaml:"tracking"`
	Guard      GuardConfig      `yaml:"guard"`
	Map        MapConfig        `yaml:"map"`
}
