// Package config handles application configuration loading and validation.
//
// Configuration is loaded from config.yml and validated using struct tags.
// MAPBOX_ACCESS_TOKEN and REALTIME_URL environment variables override the
// corresponding file values.
package config
