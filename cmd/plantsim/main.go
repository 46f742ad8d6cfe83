// cmd/plantsim/main.go
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/tbrandon/mbserver"

	"github.com/pablodeleon092/CintaTransportadora/internal/config"
	"github.com/pablodeleon092/CintaTransportadora/internal/logging"
	"github.com/pablodeleon092/CintaTransportadora/internal/plant"
)

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		cfgPath  string
		listen   string
		travel   time.Duration
		dwell    time.Duration
		logLevel string
	)

	cmd := &cobra.Command{
		Use:          "plantsim",
		Short:        "Serve a simulated conveyor line over Modbus/TCP",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			// Addresses and logging come from the bridge's config file.
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("log-level") {
				cfg.Logging.Level = logLevel
			}
			config.Normalize(cfg)
			if err := config.ValidateSimulator(cfg); err != nil {
				return fmt.Errorf("config validation failed: %w", err)
			}

			log := logging.New(cfg.Logging, os.Stderr)

			srv := mbserver.NewServer()
			plant.Attach(srv, plant.NewConveyor(travel, dwell), cfg.Addresses, log, time.Now)

			if err := srv.ListenTCP(listen); err != nil {
				return fmt.Errorf("listen %s: %w", listen, err)
			}
			defer srv.Close()

			log.Info().
				Str("listen", listen).
				Dur("travel", travel).
				Dur("dwell", dwell).
				Uint16("motor_coil", cfg.Addresses.MotorCoil).
				Uint16("light_coil", cfg.Addresses.LightCoil).
				Uint16("sensor_input", cfg.Addresses.SensorInput).
				Msg("plant simulator serving")

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			<-ctx.Done()

			log.Info().Msg("plant simulator stopped")
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVarP(&cfgPath, "config", "c", "", "bridge YAML config (for addresses)")
	f.StringVarP(&listen, "listen", "l", "0.0.0.0:502", "Modbus/TCP listen address")
	f.DurationVar(&travel, "travel", 5*time.Second, "time for an item to reach the sensor")
	f.DurationVar(&dwell, "dwell", 2*time.Second, "time an item holds the sensor while the belt runs")
	f.StringVar(&logLevel, "log-level", "info", "debug|info|warn|error")

	return cmd
}
