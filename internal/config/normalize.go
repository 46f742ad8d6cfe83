// internal/config/normalize.go
package config

import "strings"

// Normalize applies post-load normalization.
// It is allowed to mutate configuration.
// It MUST be called before Validate().
func Normalize(cfg *Config) {
	if cfg == nil {
		return
	}

	cfg.Serial.Port = strings.TrimSpace(cfg.Serial.Port)

	// Endpoints are dialed as plain host:port.
	ep := strings.TrimSpace(cfg.Modbus.Endpoint)
	ep = strings.TrimPrefix(ep, "tcp://")
	cfg.Modbus.Endpoint = strings.TrimSuffix(ep, "/")

	cfg.Logging.Level = strings.ToLower(strings.TrimSpace(cfg.Logging.Level))
	cfg.Logging.Format = strings.ToLower(strings.TrimSpace(cfg.Logging.Format))
}
