// Package serial is the line-framed link to the controller.
//
// The wire carries newline-delimited UTF-8 text. The channel never blocks
// longer than the port's read timeout: TryReadLine performs at most one
// port read per call and returns a line only when one is fully buffered.
package serial

import (
	"bytes"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"go.bug.st/serial"

	"github.com/pablodeleon092/CintaTransportadora/internal/errors"
)

// MaxLineLength bounds an unterminated inbound line. Longer input is dropped.
const MaxLineLength = 256

const delimiter = '\n'

// Port is the subset of serial.Port the channel uses.
type Port interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	ResetInputBuffer() error
	Close() error
}

// Config is minimal transport config.
type Config struct {
	Port        string
	BaudRate    int
	ReadTimeout time.Duration
}

// Channel owns the controller link for the process lifetime.
// Not safe for concurrent use; the bridge loop is its only caller.
type Channel struct {
	port  Port
	name  string
	buf   []byte
	chunk []byte
	log   zerolog.Logger

	closed bool

	// discarding is set while the tail of an overlong line is still arriving.
	discarding bool
}

// Open opens the port 8N1 with the configured read timeout.
func Open(cfg Config, log zerolog.Logger) (*Channel, error) {
	mode := &serial.Mode{
		BaudRate: cfg.BaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	p, err := serial.Open(cfg.Port, mode)
	if err != nil {
		return nil, &errors.ConnectError{Link: errors.LinkSerial, Target: cfg.Port, Err: err}
	}

	if err := p.SetReadTimeout(cfg.ReadTimeout); err != nil {
		_ = p.Close()
		return nil, &errors.ConnectError{Link: errors.LinkSerial, Target: cfg.Port, Err: err}
	}

	c := New(p, cfg.Port, log)
	c.log.Info().
		Int("baud", cfg.BaudRate).
		Dur("read_timeout", cfg.ReadTimeout).
		Msg("serial link open")
	return c, nil
}

// New wraps an already-open port.
func New(port Port, name string, log zerolog.Logger) *Channel {
	return &Channel{
		port:  port,
		name:  name,
		chunk: make([]byte, 64),
		log:   log.With().Str("link", string(errors.LinkSerial)).Str("port", name).Logger(),
	}
}

// FlushInboundBuffer discards everything received so far, both in the
// driver and in the channel's own line buffer.
func (c *Channel) FlushInboundBuffer() error {
	if c.closed {
		return &errors.ReadError{Link: errors.LinkSerial, Op: "flush", Err: errors.ErrClosed}
	}

	dropped := len(c.buf)
	c.buf = c.buf[:0]
	c.discarding = false

	if err := c.port.ResetInputBuffer(); err != nil {
		return &errors.ReadError{Link: errors.LinkSerial, Op: "flush", Err: err}
	}

	c.log.Debug().Int("buffered_bytes", dropped).Msg("inbound buffer flushed")
	return nil
}

// TryReadLine returns the next complete line without its delimiter.
// ok is false when no complete line is available yet.
func (c *Channel) TryReadLine() (line string, ok bool, err error) {
	if c.closed {
		return "", false, &errors.ReadError{Link: errors.LinkSerial, Op: "read line", Err: errors.ErrClosed}
	}

	// Backlog first: one line per call, arrival order.
	if line, ok, err := c.nextLine(); ok || err != nil {
		return line, ok, err
	}

	// go.bug.st/serial returns n=0, err=nil on timeout.
	n, rerr := c.port.Read(c.chunk)
	if n > 0 {
		c.buf = append(c.buf, c.chunk[:n]...)
	}
	if rerr != nil {
		return "", false, &errors.ReadError{Link: errors.LinkSerial, Op: "read line", Err: rerr}
	}

	if line, ok, err := c.nextLine(); ok || err != nil {
		return line, ok, err
	}

	if len(c.buf) > MaxLineLength {
		dropped := string(c.buf)
		c.buf = c.buf[:0]
		c.discarding = true
		return "", false, &errors.ParseError{
			Line: dropped,
			Err:  fmt.Errorf("no delimiter within %d bytes", MaxLineLength),
		}
	}

	return "", false, nil
}

// nextLine pops one delimited line from the buffer, first skipping the
// remainder of a line already rejected as overlong.
func (c *Channel) nextLine() (string, bool, error) {
	idx := bytes.IndexByte(c.buf, delimiter)
	if c.discarding {
		if idx < 0 {
			c.buf = c.buf[:0]
			return "", false, nil
		}
		n := copy(c.buf, c.buf[idx+1:])
		c.buf = c.buf[:n]
		c.discarding = false
		c.log.Debug().Msg("overlong line tail discarded")
		idx = bytes.IndexByte(c.buf, delimiter)
	}
	if idx < 0 {
		return "", false, nil
	}

	raw := c.buf[:idx]
	line := strings.TrimRight(string(raw), "\r")

	n := copy(c.buf, c.buf[idx+1:])
	c.buf = c.buf[:n]

	if !utf8.ValidString(line) {
		return "", false, &errors.ParseError{Line: line, Err: errors.New("invalid utf-8")}
	}
	return line, true, nil
}

// WriteLine writes text followed by the delimiter.
func (c *Channel) WriteLine(text string) error {
	if c.closed {
		return &errors.WriteError{Link: errors.LinkSerial, Op: "write line", Err: errors.ErrClosed}
	}

	data := make([]byte, 0, len(text)+1)
	data = append(data, text...)
	data = append(data, delimiter)

	for len(data) > 0 {
		n, err := c.port.Write(data)
		if err != nil {
			return &errors.WriteError{Link: errors.LinkSerial, Op: "write line", Err: err}
		}
		if n == 0 {
			return &errors.WriteError{Link: errors.LinkSerial, Op: "write line", Err: errors.New("short write")}
		}
		data = data[n:]
	}
	return nil
}

// Close releases the port. Safe to call more than once.
func (c *Channel) Close() error {
	if c == nil || c.closed {
		return nil
	}
	c.closed = true
	c.buf = nil

	if err := c.port.Close(); err != nil {
		return fmt.Errorf("serial: close %s: %w", c.name, err)
	}
	c.log.Info().Msg("serial link closed")
	return nil
}
