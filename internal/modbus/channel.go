package modbus

import (
	"context"
	stdlog "log"
	"time"

	"github.com/goburrow/modbus"
	"github.com/rs/zerolog"

	"github.com/pablodeleon092/CintaTransportadora/internal/errors"
	"github.com/pablodeleon092/CintaTransportadora/internal/timing"
)

// Channel is a single TCP connection to the plant simulator.
// The connection may drop and be reopened any number of times; every I/O
// call fails fast while disconnected instead of dialing on demand.
// Not safe for concurrent use; the bridge loop is its only caller.
type Channel struct {
	cfg     Config
	handler *modbus.TCPClientHandler
	client  modbus.Client
	log     zerolog.Logger

	connected bool
	closed    bool
}

type Config struct {
	Endpoint string
	UnitID   uint8
	Timeout  time.Duration

	// Settle is the pause after a successful connect before I/O starts.
	Settle time.Duration
}

// New builds a disconnected channel. Nothing is dialed until EnsureConnected.
func New(cfg Config, logger zerolog.Logger) (*Channel, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("modbus channel: endpoint required")
	}

	log := logger.With().
		Str("link", string(errors.LinkModbus)).
		Str("endpoint", cfg.Endpoint).
		Logger()

	h := modbus.NewTCPClientHandler(cfg.Endpoint)
	h.Timeout = cfg.Timeout
	h.SlaveId = cfg.UnitID
	if log.GetLevel() <= zerolog.DebugLevel {
		h.Logger = stdlog.New(log.With().Str("component", "goburrow").Logger(), "", 0)
	}

	return &Channel{
		cfg:     cfg,
		handler: h,
		client:  modbus.NewClient(h),
		log:     log,
	}, nil
}

// Connected reports whether the last connect succeeded and no transport
// failure has been seen since.
func (c *Channel) Connected() bool {
	return c.connected
}

// EnsureConnected opens the connection if needed. On success it waits the
// settle delay before returning nil. Failure is a *errors.ConnectError and
// leaves the channel disconnected; the caller retries on a later cycle.
func (c *Channel) EnsureConnected(ctx context.Context) error {
	if c.closed {
		return &errors.ConnectError{Link: errors.LinkModbus, Target: c.cfg.Endpoint, Err: errors.ErrClosed}
	}
	if c.connected {
		return nil
	}

	c.log.Info().Msg("connecting")

	if err := c.handler.Connect(); err != nil {
		return &errors.ConnectError{Link: errors.LinkModbus, Target: c.cfg.Endpoint, Err: err}
	}

	if c.cfg.Settle > 0 {
		c.log.Debug().Dur("settle", c.cfg.Settle).Msg("connected, settling")
		if err := timing.Sleep(ctx, c.cfg.Settle); err != nil {
			_ = c.handler.Close()
			return &errors.ConnectError{Link: errors.LinkModbus, Target: c.cfg.Endpoint, Err: err}
		}
	}

	c.connected = true
	c.log.Info().Uint8("unit_id", c.cfg.UnitID).Msg("connected")
	return nil
}

// ReadDiscreteInputs reads qty discrete inputs starting at addr (FC 2).
func (c *Channel) ReadDiscreteInputs(addr, qty uint16) ([]bool, error) {
	const op = "read discrete inputs"

	if !c.connected {
		return nil, &errors.ReadError{Link: errors.LinkModbus, Op: op, Err: errors.ErrNotConnected}
	}

	raw, err := c.client.ReadDiscreteInputs(addr, qty)
	if err != nil {
		c.fail(op, err)
		return nil, &errors.ReadError{Link: errors.LinkModbus, Op: op, Err: err}
	}

	// payload = packed bits, LSB first
	if len(raw) < (int(qty)+7)/8 {
		return nil, &errors.ReadError{Link: errors.LinkModbus, Op: op, Err: errors.New("short payload")}
	}

	return unpackBits(raw, int(qty)), nil
}

// WriteCoil writes a single coil (FC 5).
func (c *Channel) WriteCoil(addr uint16, value bool) error {
	const op = "write coil"

	if !c.connected {
		return &errors.WriteError{Link: errors.LinkModbus, Op: op, Err: errors.ErrNotConnected}
	}

	// FC 5 encodes ON as 0xFF00 and OFF as 0x0000.
	var v uint16
	if value {
		v = 0xFF00
	}

	if _, err := c.client.WriteSingleCoil(addr, v); err != nil {
		c.fail(op, err)
		return &errors.WriteError{Link: errors.LinkModbus, Op: op, Err: err}
	}
	return nil
}

// Close closes the TCP connection. Safe to call more than once.
func (c *Channel) Close() error {
	if c == nil || c.closed {
		return nil
	}
	c.closed = true
	c.connected = false

	if err := c.handler.Close(); err != nil {
		return err
	}
	c.log.Info().Msg("closed")
	return nil
}

// fail drops the connection unless the server answered with an exception,
// which proves the transport is still healthy.
func (c *Channel) fail(op string, err error) {
	var mbErr *modbus.ModbusError
	if errors.As(err, &mbErr) {
		c.log.Warn().Err(err).Str("op", op).Msg("modbus exception")
		return
	}

	c.connected = false
	_ = c.handler.Close()
	c.log.Warn().Err(err).Str("op", op).Msg("connection lost")
}

// ---- helpers ----

func unpackBits(data []byte, count int) []bool {
	out := make([]bool, count)
	for i := 0; i < count; i++ {
		byteIdx := i / 8
		bitIdx := i % 8
		if byteIdx >= len(data) {
			out[i] = false
			continue
		}
		out[i] = (data[byteIdx]&(1<<bitIdx) != 0)
	}
	return out
}
