// Package bridge translates between the controller's serial command set and
// the plant simulator's Modbus coils and discrete inputs.
//
// One Loop drives everything from a single goroutine. Each cycle, in order:
//
//  1. make sure Modbus is connected; if not, skip the rest and retry later
//  2. read the sensor discrete input and send "SENSOR:<0|1>" on a change
//  3. take at most one inbound serial line and apply MOTOR/LIGHT to a coil
//
// Typed link errors are logged and contained within their step. Anything
// else is an unclassified fault: the cycle ends and the loop backs off.
package bridge

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/pablodeleon092/CintaTransportadora/internal/errors"
	"github.com/pablodeleon092/CintaTransportadora/internal/status"
	"github.com/pablodeleon092/CintaTransportadora/internal/timing"
)

// SerialLink is the controller side of the bridge.
type SerialLink interface {
	TryReadLine() (line string, ok bool, err error)
	WriteLine(text string) error
}

// PlantLink is the plant simulator side of the bridge.
type PlantLink interface {
	EnsureConnected(ctx context.Context) error
	ReadDiscreteInputs(addr, qty uint16) ([]bool, error)
	WriteCoil(addr uint16, value bool) error
}

// Addresses are the fixed Modbus points the bridge uses.
type Addresses struct {
	MotorCoil   uint16
	LightCoil   uint16
	SensorInput uint16
}

// Config is the minimal runtime config the loop needs.
type Config struct {
	Addresses Addresses

	Interval       time.Duration // between cycles
	RetryBackoff   time.Duration // after a failed Modbus connect
	FaultBackoff   time.Duration // after an unclassified fault
	FaultThreshold int           // consecutive faults before persistent failure
}

// Loop owns the sensor latch and both links for the lifetime of a run.
type Loop struct {
	cfg    Config
	serial SerialLink
	plant  PlantLink
	log    zerolog.Logger

	snap  status.Snapshot
	sleep func(ctx context.Context, d time.Duration) error
}

// New creates a loop with immutable config.
func New(cfg Config, serial SerialLink, plant PlantLink, log zerolog.Logger) (*Loop, error) {
	if serial == nil || plant == nil {
		return nil, errors.New("bridge: serial and plant links required")
	}
	if cfg.Interval <= 0 {
		return nil, errors.New("bridge: interval must be > 0")
	}
	if cfg.RetryBackoff <= 0 || cfg.FaultBackoff <= 0 {
		return nil, errors.New("bridge: backoff durations must be > 0")
	}
	if cfg.FaultThreshold < 1 {
		return nil, errors.New("bridge: fault threshold must be >= 1")
	}
	if cfg.Addresses.MotorCoil == cfg.Addresses.LightCoil {
		return nil, fmt.Errorf("bridge: motor and light share coil %d", cfg.Addresses.MotorCoil)
	}

	return &Loop{
		cfg:    cfg,
		serial: serial,
		plant:  plant,
		log:    log,
		snap: status.Snapshot{
			State:  status.StateConnecting,
			Health: status.HealthUnknown,
		},
		sleep: timing.Sleep,
	}, nil
}

// Snapshot returns the loop state after the most recent cycle.
func (l *Loop) Snapshot() status.Snapshot {
	return l.snap
}

// Run executes cycles until ctx is cancelled.
func (l *Loop) Run(ctx context.Context) {
	l.log.Info().
		Dur("interval", l.cfg.Interval).
		Uint16("sensor_input", l.cfg.Addresses.SensorInput).
		Uint16("motor_coil", l.cfg.Addresses.MotorCoil).
		Uint16("light_coil", l.cfg.Addresses.LightCoil).
		Msg("bridge loop started")

	for ctx.Err() == nil {
		wait := l.Cycle(ctx)
		if err := l.sleep(ctx, wait); err != nil {
			break
		}
	}

	l.snap.State = status.StateStopped
	l.log.Info().Uint64("cycles", l.snap.Cycles).Msg("bridge loop stopped")
}

// Cycle performs exactly one bridge cycle and returns how long to wait
// before the next one. It never panics.
func (l *Loop) Cycle(ctx context.Context) (wait time.Duration) {
	l.snap.Cycles++

	defer func() {
		if r := recover(); r != nil {
			wait = l.fault(fmt.Errorf("panic: %v", r))
		}
	}()

	err := l.step(ctx)
	switch errors.Classify(err) {
	case errors.KindNone:
		l.recovered()
		return l.cfg.Interval
	case errors.KindConnect:
		return l.cfg.RetryBackoff
	default:
		return l.fault(err)
	}
}

// step runs the fixed-order cycle body. It returns a ConnectError when
// Modbus is not ready, or an unclassified error that escaped a step.
func (l *Loop) step(ctx context.Context) error {
	if err := l.plant.EnsureConnected(ctx); err != nil {
		if errors.Classify(err) != errors.KindConnect {
			return err
		}
		l.setState(status.StateConnecting)
		if l.snap.Health != status.HealthError {
			l.snap.Health = status.HealthStale
		}
		l.log.Warn().
			Err(err).
			Dur("retry_in", l.cfg.RetryBackoff).
			Msg("modbus not ready, retrying next cycle")
		return err
	}
	l.setState(status.StatePolling)

	if err := l.sensorToSerial(); err != nil {
		return err
	}
	return l.serialToActuators()
}

// sensorToSerial announces sensor transitions. The latch only moves after
// the controller was told, so a failed read or write records no edge.
func (l *Loop) sensorToSerial() error {
	addr := l.cfg.Addresses.SensorInput

	bits, err := l.plant.ReadDiscreteInputs(addr, 1)
	if err != nil {
		if errors.Classify(err) != errors.KindRead {
			return err
		}
		l.log.Warn().Err(err).Uint16("input", addr).Msg("sensor read failed")
		return nil
	}
	if len(bits) == 0 {
		l.log.Warn().Uint16("input", addr).Msg("sensor read returned no data")
		return nil
	}

	current := bits[0]
	if current == l.snap.SensorLatch {
		return nil
	}

	cmd := Command{Tag: TagSensor, Value: current}
	if err := l.serial.WriteLine(cmd.String()); err != nil {
		if errors.Classify(err) != errors.KindWrite {
			return err
		}
		l.log.Error().Err(err).Str("line", cmd.String()).Msg("sensor notification failed")
		return nil
	}

	l.log.Info().
		Uint16("input", addr).
		Bool("value", current).
		Str("sent", cmd.String()).
		Msg("sensor changed")
	l.snap.SensorLatch = current
	return nil
}

// serialToActuators applies at most one inbound line per cycle.
func (l *Loop) serialToActuators() error {
	line, ok, err := l.serial.TryReadLine()
	if err != nil {
		switch errors.Classify(err) {
		case errors.KindRead:
			l.log.Warn().Err(err).Msg("serial read failed")
			return nil
		case errors.KindParse:
			l.log.Warn().Err(err).Msg("inbound data discarded")
			return nil
		default:
			return err
		}
	}
	if !ok {
		return nil
	}

	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}
	l.log.Info().Str("line", line).Msg("line received")

	cmd, err := ParseCommand(line)
	if err != nil {
		if errors.Is(err, errors.ErrUnrecognized) {
			l.log.Warn().Str("line", line).Msg("unrecognized line ignored")
		} else {
			l.log.Warn().Err(err).Msg("malformed command discarded")
		}
		return nil
	}

	var coil uint16
	switch cmd.Tag {
	case TagMotor:
		coil = l.cfg.Addresses.MotorCoil
	case TagLight:
		coil = l.cfg.Addresses.LightCoil
	default:
		// SENSOR is outbound only.
		l.log.Warn().Str("line", line).Msg("unrecognized line ignored")
		return nil
	}

	if err := l.plant.WriteCoil(coil, cmd.Value); err != nil {
		if errors.Classify(err) != errors.KindWrite {
			return err
		}
		l.log.Error().Err(err).Str("tag", string(cmd.Tag)).Uint16("coil", coil).Msg("coil write failed")
		return nil
	}

	l.log.Info().
		Str("tag", string(cmd.Tag)).
		Uint16("coil", coil).
		Bool("value", cmd.Value).
		Msg("coil written")
	return nil
}

func (l *Loop) setState(s status.State) {
	if l.snap.State == s {
		return
	}
	l.log.Info().Str("from", l.snap.State.String()).Str("to", s.String()).Msg("bridge state")
	l.snap.State = s
}

// fault records an unclassified failure and returns the long backoff.
func (l *Loop) fault(err error) time.Duration {
	l.snap.FaultStreak++

	l.log.Error().
		Err(err).
		Stringer("kind", errors.Classify(err)).
		Int("streak", l.snap.FaultStreak).
		Dur("backoff", l.cfg.FaultBackoff).
		Msg("unexpected error in bridge cycle")

	if l.snap.FaultStreak == l.cfg.FaultThreshold {
		l.snap.Health = status.HealthError
		l.log.Error().
			Int("consecutive_faults", l.snap.FaultStreak).
			Msg("persistent failure: check addresses and plant configuration")
	}
	return l.cfg.FaultBackoff
}

// recovered marks a clean cycle.
func (l *Loop) recovered() {
	if l.snap.FaultStreak >= l.cfg.FaultThreshold {
		l.log.Info().Int("after_faults", l.snap.FaultStreak).Msg("bridge recovered")
	}
	l.snap.FaultStreak = 0
	l.snap.Health = status.HealthOK
}
