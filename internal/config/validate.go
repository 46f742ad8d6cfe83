// internal/config/validate.go
package config

import (
	"errors"
	"fmt"
	"net"
	"strconv"
)

// Validate checks configuration correctness.
// It performs declarative validation only.
// It MUST NOT mutate configuration.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("config: nil")
	}

	// ------------------------------------------------------------
	// SERIAL
	// ------------------------------------------------------------

	if cfg.Serial.Port == "" {
		return errors.New("serial.port is required")
	}
	if cfg.Serial.BaudRate <= 0 {
		return fmt.Errorf("serial.baud_rate must be > 0, got %d", cfg.Serial.BaudRate)
	}
	if cfg.Serial.ReadTimeoutMs <= 0 {
		return fmt.Errorf("serial.read_timeout_ms must be > 0, got %d", cfg.Serial.ReadTimeoutMs)
	}
	if cfg.Serial.SettleMs < 0 {
		return fmt.Errorf("serial.settle_ms must be >= 0, got %d", cfg.Serial.SettleMs)
	}

	// ------------------------------------------------------------
	// MODBUS
	// ------------------------------------------------------------

	host, port, err := net.SplitHostPort(cfg.Modbus.Endpoint)
	if err != nil {
		return fmt.Errorf("modbus.endpoint %q: %w", cfg.Modbus.Endpoint, err)
	}
	if host == "" {
		return fmt.Errorf("modbus.endpoint %q: host required", cfg.Modbus.Endpoint)
	}
	if p, err := strconv.Atoi(port); err != nil || p <= 0 || p > 65535 {
		return fmt.Errorf("modbus.endpoint %q: invalid port", cfg.Modbus.Endpoint)
	}
	if cfg.Modbus.TimeoutMs <= 0 {
		return fmt.Errorf("modbus.timeout_ms must be > 0, got %d", cfg.Modbus.TimeoutMs)
	}
	if cfg.Modbus.SettleMs < 0 {
		return fmt.Errorf("modbus.settle_ms must be >= 0, got %d", cfg.Modbus.SettleMs)
	}
	if cfg.Modbus.RetryMs <= 0 {
		return fmt.Errorf("modbus.retry_ms must be > 0, got %d", cfg.Modbus.RetryMs)
	}

	// ------------------------------------------------------------
	// ADDRESSES
	// ------------------------------------------------------------

	if err := validateAddresses(cfg.Addresses); err != nil {
		return err
	}

	// ------------------------------------------------------------
	// LOOP
	// ------------------------------------------------------------

	if cfg.Loop.IntervalMs <= 0 {
		return fmt.Errorf("loop.interval_ms must be > 0, got %d", cfg.Loop.IntervalMs)
	}
	if cfg.Loop.FaultBackoffMs <= 0 {
		return fmt.Errorf("loop.fault_backoff_ms must be > 0, got %d", cfg.Loop.FaultBackoffMs)
	}
	if cfg.Loop.FaultThreshold < 1 {
		return fmt.Errorf("loop.fault_threshold must be >= 1, got %d", cfg.Loop.FaultThreshold)
	}

	// ------------------------------------------------------------
	// LOGGING
	// ------------------------------------------------------------

	return validateLogging(cfg.Logging)
}

// ValidateSimulator checks the parts of cfg the plant simulator reads.
// The serial, modbus and loop sections are ignored.
func ValidateSimulator(cfg *Config) error {
	if cfg == nil {
		return errors.New("config: nil")
	}
	if err := validateAddresses(cfg.Addresses); err != nil {
		return err
	}
	return validateLogging(cfg.Logging)
}

func validateAddresses(a AddressConfig) error {
	// Two commands writing one coil would fight each other.
	if a.MotorCoil == a.LightCoil {
		return fmt.Errorf("addresses: motor_coil and light_coil both use coil %d", a.MotorCoil)
	}
	return nil
}

func validateLogging(l LoggingConfig) error {
	switch l.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level %q: want debug|info|warn|error", l.Level)
	}
	switch l.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format %q: want console|json", l.Format)
	}
	return nil
}
