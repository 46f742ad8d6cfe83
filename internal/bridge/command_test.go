package bridge

import (
	"testing"

	"github.com/pablodeleon092/CintaTransportadora/internal/errors"
)

func TestParseCommand(t *testing.T) {
	cases := []struct {
		line string
		want Command
	}{
		{"MOTOR:1", Command{Tag: TagMotor, Value: true}},
		{"MOTOR:0", Command{Tag: TagMotor, Value: false}},
		{"LIGHT:1", Command{Tag: TagLight, Value: true}},
		{"LIGHT:0\r", Command{Tag: TagLight, Value: false}},
		{"  SENSOR:1  ", Command{Tag: TagSensor, Value: true}},
		{"MOTOR:2", Command{Tag: TagMotor, Value: true}},
		{"MOTOR:1:extra", Command{Tag: TagMotor, Value: true}},
	}

	for _, tc := range cases {
		got, err := ParseCommand(tc.line)
		if err != nil {
			t.Fatalf("ParseCommand(%q) err=%v", tc.line, err)
		}
		if got != tc.want {
			t.Fatalf("ParseCommand(%q)=%+v want=%+v", tc.line, got, tc.want)
		}
	}
}

func TestParseCommand_Unrecognized(t *testing.T) {
	for _, line := range []string{"GARBAGE", "", "motor:1", "PUMP:1"} {
		_, err := ParseCommand(line)
		if !errors.Is(err, errors.ErrUnrecognized) {
			t.Fatalf("ParseCommand(%q) err=%v, want ErrUnrecognized", line, err)
		}
		if errors.Classify(err) != errors.KindParse {
			t.Fatalf("ParseCommand(%q) should be a ParseError", line)
		}
	}
}

func TestParseCommand_BadValue(t *testing.T) {
	for _, line := range []string{"MOTOR:xyz", "LIGHT:", "MOTOR:1.0"} {
		_, err := ParseCommand(line)
		if err == nil {
			t.Fatalf("ParseCommand(%q) expected error", line)
		}
		if errors.Is(err, errors.ErrUnrecognized) {
			t.Fatalf("ParseCommand(%q) is malformed, not unrecognized", line)
		}
		if errors.Classify(err) != errors.KindParse {
			t.Fatalf("ParseCommand(%q) should be a ParseError", line)
		}
	}
}

func TestCommandString(t *testing.T) {
	if got := (Command{Tag: TagSensor, Value: true}).String(); got != "SENSOR:1" {
		t.Fatalf("got %q", got)
	}
	if got := (Command{Tag: TagSensor}).String(); got != "SENSOR:0" {
		t.Fatalf("got %q", got)
	}
}
