package serial

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/pablodeleon092/CintaTransportadora/internal/errors"
)

// ---- fake port ----

type fakePort struct {
	chunks    [][]byte // one chunk per Read; empty queue behaves like a timeout
	readErr   error
	written   bytes.Buffer
	resets    int
	closes    int
	readCalls int
}

func (f *fakePort) Read(p []byte) (int, error) {
	f.readCalls++
	if f.readErr != nil {
		return 0, f.readErr
	}
	if len(f.chunks) == 0 {
		return 0, nil
	}
	n := copy(p, f.chunks[0])
	if n < len(f.chunks[0]) {
		f.chunks[0] = f.chunks[0][n:]
	} else {
		f.chunks = f.chunks[1:]
	}
	return n, nil
}

func (f *fakePort) Write(p []byte) (int, error) { return f.written.Write(p) }

func (f *fakePort) ResetInputBuffer() error {
	f.resets++
	f.chunks = nil
	return nil
}

func (f *fakePort) Close() error {
	f.closes++
	return nil
}

func newChannel(chunks ...string) (*Channel, *fakePort) {
	p := &fakePort{}
	for _, c := range chunks {
		p.chunks = append(p.chunks, []byte(c))
	}
	return New(p, "fake0", zerolog.Nop()), p
}

// ---- tests ----

func TestTryReadLine_NoData(t *testing.T) {
	c, _ := newChannel()

	line, ok, err := c.TryReadLine()
	if err != nil || ok || line != "" {
		t.Fatalf("got (%q,%v,%v), want no data", line, ok, err)
	}
}

func TestTryReadLine_LineSplitAcrossReads(t *testing.T) {
	c, p := newChannel("MOT", "OR:1\nLIG")

	if _, ok, _ := c.TryReadLine(); ok {
		t.Fatalf("partial line must not be returned")
	}

	line, ok, err := c.TryReadLine()
	if err != nil || !ok || line != "MOTOR:1" {
		t.Fatalf("got (%q,%v,%v), want MOTOR:1", line, ok, err)
	}

	if _, ok, _ := c.TryReadLine(); ok {
		t.Fatalf("LIG is incomplete")
	}

	p.chunks = append(p.chunks, []byte("HT:0\n"))
	line, ok, err = c.TryReadLine()
	if err != nil || !ok || line != "LIGHT:0" {
		t.Fatalf("got (%q,%v,%v), want LIGHT:0", line, ok, err)
	}
}

func TestTryReadLine_BacklogOneLinePerCall(t *testing.T) {
	c, p := newChannel("MOTOR:1\nLIGHT:1\nMOTOR:0\n")

	want := []string{"MOTOR:1", "LIGHT:1", "MOTOR:0"}
	for i, w := range want {
		line, ok, err := c.TryReadLine()
		if err != nil || !ok || line != w {
			t.Fatalf("call %d: got (%q,%v,%v), want %q", i, line, ok, err, w)
		}
	}

	if p.readCalls != 1 {
		t.Fatalf("buffered lines should not trigger port reads: readCalls=%d", p.readCalls)
	}
}

func TestTryReadLine_StripsCarriageReturn(t *testing.T) {
	c, _ := newChannel("LIGHT:1\r\n")

	line, ok, _ := c.TryReadLine()
	if !ok || line != "LIGHT:1" {
		t.Fatalf("got %q, want LIGHT:1", line)
	}
}

// drain calls TryReadLine until the port runs dry and returns every line
// and error seen.
func drain(t *testing.T, c *Channel, p *fakePort) (lines []string, errs []error) {
	t.Helper()
	for i := 0; i < 64; i++ {
		line, ok, err := c.TryReadLine()
		if ok {
			lines = append(lines, line)
		}
		if err != nil {
			errs = append(errs, err)
		}
		if !ok && err == nil && len(p.chunks) == 0 {
			return lines, errs
		}
	}
	t.Fatalf("channel never went idle")
	return nil, nil
}

func TestTryReadLine_OverlongLineDropped(t *testing.T) {
	c, p := newChannel()
	long := strings.Repeat("x", 40)
	for i := 0; i < 8; i++ {
		p.chunks = append(p.chunks, []byte(long))
	}
	p.chunks = append(p.chunks, []byte("tail\n"), []byte("MOTOR:1\n"))

	lines, errs := drain(t, c, p)

	if len(errs) != 1 || errors.Classify(errs[0]) != errors.KindParse {
		t.Fatalf("expected exactly one parse error, got %v", errs)
	}
	if len(lines) != 1 || lines[0] != "MOTOR:1" {
		t.Fatalf("only the next terminated line should survive, got %q", lines)
	}
}

func TestTryReadLine_OverlongLineTailIsNotACommand(t *testing.T) {
	c, p := newChannel(strings.Repeat("x", 320) + "MOTOR:1\n")

	lines, errs := drain(t, c, p)

	if len(lines) != 0 {
		t.Fatalf("tail of an overlong line must not be framed as a line, got %q", lines)
	}
	if len(errs) != 1 || errors.Classify(errs[0]) != errors.KindParse {
		t.Fatalf("expected exactly one parse error, got %v", errs)
	}

	p.chunks = append(p.chunks, []byte("LIGHT:1\n"))
	line, ok, err := c.TryReadLine()
	if err != nil || !ok || line != "LIGHT:1" {
		t.Fatalf("channel should recover after the overlong line: (%q,%v,%v)", line, ok, err)
	}
}

func TestFlushInboundBuffer_EndsDiscard(t *testing.T) {
	c, p := newChannel(strings.Repeat("x", 320))

	if _, errs := drain(t, c, p); len(errs) != 1 {
		t.Fatalf("expected overflow, got %v", errs)
	}
	if err := c.FlushInboundBuffer(); err != nil {
		t.Fatalf("flush: %v", err)
	}

	p.chunks = append(p.chunks, []byte("MOTOR:0\n"))
	line, ok, err := c.TryReadLine()
	if err != nil || !ok || line != "MOTOR:0" {
		t.Fatalf("flush should end the discard: (%q,%v,%v)", line, ok, err)
	}
}

func TestTryReadLine_InvalidUTF8(t *testing.T) {
	c, _ := newChannel("MOTOR:\xff\nLIGHT:1\n")

	_, ok, err := c.TryReadLine()
	if ok || errors.Classify(err) != errors.KindParse {
		t.Fatalf("expected parse error, got ok=%v err=%v", ok, err)
	}

	line, ok, err := c.TryReadLine()
	if err != nil || !ok || line != "LIGHT:1" {
		t.Fatalf("next line should survive: (%q,%v,%v)", line, ok, err)
	}
}

func TestTryReadLine_PortError(t *testing.T) {
	c, p := newChannel()
	p.readErr = io.ErrUnexpectedEOF

	_, _, err := c.TryReadLine()
	if errors.Classify(err) != errors.KindRead {
		t.Fatalf("expected ReadError, got %v", err)
	}
}

func TestFlushInboundBuffer(t *testing.T) {
	c, p := newChannel("boot diagnostics v1.2\nready")

	// Pull the noise into the channel buffer.
	if _, _, err := c.TryReadLine(); err != nil {
		t.Fatalf("read: %v", err)
	}

	if err := c.FlushInboundBuffer(); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if p.resets != 1 {
		t.Fatalf("expected driver reset, got %d", p.resets)
	}

	if _, ok, _ := c.TryReadLine(); ok {
		t.Fatalf("buffered data should be gone after flush")
	}
}

func TestWriteLine_AppendsDelimiter(t *testing.T) {
	c, p := newChannel()

	if err := c.WriteLine("SENSOR:1"); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := c.WriteLine("SENSOR:0"); err != nil {
		t.Fatalf("write: %v", err)
	}

	if got := p.written.String(); got != "SENSOR:1\nSENSOR:0\n" {
		t.Fatalf("wire=%q", got)
	}
}

func TestClose_Idempotent(t *testing.T) {
	c, p := newChannel()

	if err := c.Close(); err != nil {
		t.Fatalf("first close: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
	if p.closes != 1 {
		t.Fatalf("port closed %d times, want 1", p.closes)
	}

	if err := c.WriteLine("SENSOR:1"); !errors.Is(err, errors.ErrClosed) {
		t.Fatalf("write after close: %v", err)
	}
	if _, _, err := c.TryReadLine(); !errors.Is(err, errors.ErrClosed) {
		t.Fatalf("read after close: %v", err)
	}
}
