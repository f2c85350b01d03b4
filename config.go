package rescuelink

import "github.com/rapid8/rescuelink/config"

// AppConfig re-exports the configuration root so cmd wiring reads like a
// single library surface.
type AppConfig = config.AppConfig

// LoadAppConfig loads and validates config.yml into the package-global
// configuration.
func LoadAppConfig() error { return config.LoadAppConfig() }
