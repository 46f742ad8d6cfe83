// cmd/bridge/main.go
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/pablodeleon092/CintaTransportadora/internal/bridge"
	"github.com/pablodeleon092/CintaTransportadora/internal/config"
	"github.com/pablodeleon092/CintaTransportadora/internal/logging"
	"github.com/pablodeleon092/CintaTransportadora/internal/modbus"
	"github.com/pablodeleon092/CintaTransportadora/internal/serial"
	"github.com/pablodeleon092/CintaTransportadora/internal/timing"
)

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		cfgPath  string
		port     string
		baud     int
		endpoint string
		unitID   uint8
		logLevel string
	)

	cmd := &cobra.Command{
		Use:   "bridge",
		Short: "Bridge a serial controller to a Modbus/TCP conveyor plant",
		Long: `bridge relays the end-of-line sensor from the plant simulator to the
controller as SENSOR:<0|1> lines, and applies the controller's MOTOR and
LIGHT lines to the plant's coils.`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return err
			}

			// Flags win over the file, but only when given.
			flags := cmd.Flags()
			if flags.Changed("port") {
				cfg.Serial.Port = port
			}
			if flags.Changed("baud") {
				cfg.Serial.BaudRate = baud
			}
			if flags.Changed("modbus") {
				cfg.Modbus.Endpoint = endpoint
			}
			if flags.Changed("unit-id") {
				cfg.Modbus.UnitID = unitID
			}
			if flags.Changed("log-level") {
				cfg.Logging.Level = logLevel
			}

			config.Normalize(cfg)
			if err := config.Validate(cfg); err != nil {
				return fmt.Errorf("config validation failed: %w", err)
			}

			return run(cmd.Context(), cfg)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&cfgPath, "config", "c", "", "YAML config file")
	f.StringVarP(&port, "port", "p", "", "serial port of the controller (e.g. COM3, /dev/ttyACM0)")
	f.IntVarP(&baud, "baud", "b", 9600, "serial baud rate")
	f.StringVarP(&endpoint, "modbus", "m", "localhost:502", "plant simulator Modbus/TCP host:port")
	f.Uint8Var(&unitID, "unit-id", 1, "Modbus unit id")
	f.StringVar(&logLevel, "log-level", "info", "debug|info|warn|error")

	return cmd
}

// run owns both links for the life of the process.
// Only a serial open failure returns an error.
func run(parent context.Context, cfg *config.Config) error {
	log := logging.New(cfg.Logging, os.Stderr)

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --------------------
	// Controller link (fatal on failure)
	// --------------------

	ser, err := serial.Open(serial.Config{
		Port:        cfg.Serial.Port,
		BaudRate:    cfg.Serial.BaudRate,
		ReadTimeout: cfg.Serial.ReadTimeout(),
	}, log)
	if err != nil {
		log.Error().Err(err).Msg("cannot open controller port; check the port name and permissions")
		return err
	}
	defer closeLink(log, "serial", ser.Close)

	// Controller resets on open; drop its boot output.
	log.Info().Dur("settle", cfg.Serial.Settle()).Msg("waiting for controller")
	if err := timing.Sleep(ctx, cfg.Serial.Settle()); err != nil {
		log.Info().Msg("interrupted during startup")
		return nil
	}
	if err := ser.FlushInboundBuffer(); err != nil {
		log.Warn().Err(err).Msg("inbound flush failed")
	}

	// --------------------
	// Plant link (lazy, retried by the loop)
	// --------------------

	plant, err := modbus.New(modbus.Config{
		Endpoint: cfg.Modbus.Endpoint,
		UnitID:   cfg.Modbus.UnitID,
		Timeout:  cfg.Modbus.Timeout(),
		Settle:   cfg.Modbus.Settle(),
	}, log)
	if err != nil {
		return err
	}
	defer closeLink(log, "modbus", plant.Close)

	loop, err := bridge.New(bridge.Config{
		Addresses: bridge.Addresses{
			MotorCoil:   cfg.Addresses.MotorCoil,
			LightCoil:   cfg.Addresses.LightCoil,
			SensorInput: cfg.Addresses.SensorInput,
		},
		Interval:       cfg.Loop.Interval(),
		RetryBackoff:   cfg.Modbus.Retry(),
		FaultBackoff:   cfg.Loop.FaultBackoff(),
		FaultThreshold: cfg.Loop.FaultThreshold,
	}, ser, plant, log)
	if err != nil {
		return err
	}

	log.Info().Msg("bridge running, press Ctrl+C to stop")
	loop.Run(ctx)

	log.Info().Msg("shutting down")
	return nil
}

func closeLink(log zerolog.Logger, name string, closeFn func() error) {
	if err := closeFn(); err != nil {
		log.Warn().Err(err).Str("link", name).Msg("close failed")
	}
}
