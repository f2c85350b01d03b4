package config

import (
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config is the global application configuration
var Config AppConfig

// LoadAppConfig loads and validates the application configuration from config.yml
func LoadAppConfig() error {
	paths := []string{"config.yml", "./rescuelink/config.yml"}
	var data []byte
	var err error
	for _, p := range paths {
		data, err = os.ReadFile(p)
		if err == nil {
			break
		}
	}
	if err != nil {
		return err
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return err
	}
	applyEnvOverrides(&cfg)
	v := validator.New()
	if err := v.Struct(cfg.Server); err != nil {
		return err
	}
	if err := v.Struct(cfg.Backend); err != nil {
		return err
	}
	if err := v.Struct(cfg.Realtime); err != nil {
		return err
	}
	Config = cfg
	applyDefaults(&Config)
	return nil
}

// applyEnvOverrides maps the two public environment variables onto the
// loaded config: the map access token and an optional realtime server URL.
func applyEnvOverrides(cfg *AppConfig) {
	if tok := os.Getenv("MAPBOX_ACCESS_TOKEN"); tok != "" {
		cfg.Directions.AccessToken = tok
	}
	if url := os.Getenv("REALTIME_URL"); url != "" {
		cfg.Realtime.URL = url
	}
}

func applyDefaults(cfg *AppConfig) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 16180
	}
	if cfg.Backend.TimeoutMS == 0 {
		cfg.Backend.TimeoutMS = 15000
	}
	if cfg.Realtime.ReconnectAttempts == 0 {
		cfg.Realtime.ReconnectAttempts = 5
	}
	if cfg.Realtime.ReconnectDelayMS == 0 {
		cfg.Realtime.ReconnectDelayMS = 1000
	}
	if cfg.Directions.BaseURL == "" {
		cfg.Directions.BaseURL = "https://api.mapbox.com/directions/v5"
	}
	if cfg.Tracking.StaleAfterMS == 0 {
		cfg.Tracking.StaleAfterMS = 15000
	}
	if cfg.Tracking.PollIntervalMS == 0 {
		cfg.Tracking.PollIntervalMS = 10000
	}
	if cfg.Map.DefaultLat == 0 && cfg.Map.DefaultLng == 0 {
		// Fallback region centered on India, matching the backend's
		// deployment area.
		cfg.Map.DefaultLat = 20.5937
		cfg.Map.DefaultLng = 78.9629
	}
	if cfg.Map.DefaultZoom == 0 {
		cfg.Map.DefaultZoom = 12
	}
}
