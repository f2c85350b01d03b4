package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rapid8/rescuelink/config"
)

func writeConfig(t *testing.T, body string) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func TestLoadAppConfigDefaults(t *testing.T) {
	writeConfig(t, `
server:
  port: 8080
backend:
  baseURL: https://rapid8-backend.onrender.com
`)
	if err := config.LoadAppConfig(); err != nil {
		t.Fatalf("LoadAppConfig: %v", err)
	}

	cfg := config.Config
	if cfg.Server.Port != 8080 {
		t.Errorf("port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Backend.TimeoutMS != 15000 {
		t.Errorf("backend timeout default = %d, want 15000", cfg.Backend.TimeoutMS)
	}
	if cfg.Realtime.ReconnectAttempts != 5 || cfg.Realtime.ReconnectDelayMS != 1000 {
		t.Errorf("reconnect defaults = %d/%d, want 5/1000",
			cfg.Realtime.ReconnectAttempts, cfg.Realtime.ReconnectDelayMS)
	}
	if cfg.Tracking.StaleAfterMS != 15000 || cfg.Tracking.PollIntervalMS != 10000 {
		t.Errorf("tracking defaults = %d/%d", cfg.Tracking.StaleAfterMS, cfg.Tracking.PollIntervalMS)
	}
	if cfg.Map.DefaultLat != 20.5937 || cfg.Map.DefaultLng != 78.9629 {
		t.Errorf("default region = %g,%g", cfg.Map.DefaultLat, cfg.Map.DefaultLng)
	}
}

func TestLoadAppConfigEnvOverrides(t *testing.T) {
	writeConfig(t, `
server:
  port: 8080
backend:
  baseURL: https://rapid8-backend.onrender.com
directions:
  accessToken: from-file
realtime:
  url: https://file.example.com
`)
	t.Setenv("MAPBOX_ACCESS_TOKEN", "from-env")
	t.Setenv("REALTIME_URL", "https://env.example.com")

	if err := config.LoadAppConfig(); err != nil {
		t.Fatalf("LoadAppConfig: %v", err)
	}
	if got := config.Config.Directions.AccessToken; got != "from-env" {
		t.Errorf("access token = %q, want env override", got)
	}
	if got := config.Config.Realtime.URL; got != "https://env.example.com" {
		t.Errorf("realtime url = %q, want env override", got)
	}
}

func TestLoadAppConfigRejectsInvalid(t *testing.T) {
	writeConfig(t, `
server:
  port: -1
backend:
  baseURL: https://rapid8-backend.onrender.com
`)
	if err := config.LoadAppConfig(); err == nil {
		t.Fatal("expected validation error for negative port")
	}

	writeConfig(t, `
server:
  port: 8080
backend:
  baseURL: not-a-url
`)
	if err := config.LoadAppConfig(); err == nil {
		t.Fatal("expected validation error for bad backend URL")
	}
}
