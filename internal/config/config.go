// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Serial    SerialConfig  `yaml:"serial"`
	Modbus    ModbusConfig  `yaml:"modbus"`
	Addresses AddressConfig `yaml:"addresses"`
	Loop      LoopConfig    `yaml:"loop"`
	Logging   LoggingConfig `yaml:"logging"`
}

// ---- SERIAL (controller side) ----

type SerialConfig struct {
	Port          string `yaml:"port"`
	BaudRate      int    `yaml:"baud_rate"`
	ReadTimeoutMs int    `yaml:"read_timeout_ms"`

	// Controller resets on open; inbound flush waits this long.
	SettleMs int `yaml:"settle_ms"`
}

// ---- MODBUS (plant side) ----

type ModbusConfig struct {
	Endpoint  string `yaml:"endpoint"`
	UnitID    uint8  `yaml:"unit_id"`
	TimeoutMs int    `yaml:"timeout_ms"`
	SettleMs  int    `yaml:"settle_ms"`
	RetryMs   int    `yaml:"retry_ms"`
}

// ---- ADDRESSES ----

type AddressConfig struct {
	MotorCoil   uint16 `yaml:"motor_coil"`
	LightCoil   uint16 `yaml:"light_coil"`
	SensorInput uint16 `yaml:"sensor_input"`
}

// ---- LOOP ----

type LoopConfig struct {
	IntervalMs     int `yaml:"interval_ms"`
	FaultBackoffMs int `yaml:"fault_backoff_ms"`
	FaultThreshold int `yaml:"fault_threshold"`
}

// ---- LOGGING ----

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the configuration used when a key is absent.
func Default() Config {
	return Config{
		Serial: SerialConfig{
			BaudRate:      9600,
			ReadTimeoutMs: 100,
			SettleMs:      2000,
		},
		Modbus: ModbusConfig{
			Endpoint:  "localhost:502",
			UnitID:    1,
			TimeoutMs: 1000,
			SettleMs:  2000,
			RetryMs:   1000,
		},
		Addresses: AddressConfig{
			MotorCoil:   0,
			LightCoil:   1,
			SensorInput: 0,
		},
		Loop: LoopConfig{
			IntervalMs:     10,
			FaultBackoffMs: 5000,
			FaultThreshold: 5,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load reads a YAML file on top of Default.
// An empty path returns the defaults unchanged.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return &cfg, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	return &cfg, nil
}

func ms(v int) time.Duration { return time.Duration(v) * time.Millisecond }

func (s SerialConfig) ReadTimeout() time.Duration { return ms(s.ReadTimeoutMs) }
func (s SerialConfig) Settle() time.Duration { return ms(s.SettleMs) }

func (m ModbusConfig) Timeout() time.Duration { return ms(m.TimeoutMs) }
func (m ModbusConfig) Settle() time.Duration { return ms(m.SettleMs) }
func (m ModbusConfig) Retry() time.Duration { return ms(m.RetryMs) }

func (l LoopConfig) Interval() time.Duration { return ms(l.IntervalMs) }
func (l LoopConfig) FaultBackoff() time.Duration { return ms(l.FaultBackoffMs) }
