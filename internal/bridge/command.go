package bridge

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pablodeleon092/CintaTransportadora/internal/errors"
)

// Tag identifies a serial command.
type Tag string

const (
	// TagSensor is sent to the controller when the end-of-line sensor changes.
	TagSensor Tag = "SENSOR"
	// TagMotor is received from the controller to drive the conveyor.
	TagMotor Tag = "MOTOR"
	// TagLight is received from the controller to drive the auto-stop light.
	TagLight Tag = "LIGHT"
)

// Command is one line of the serial protocol: "<TAG>:<0|1>".
type Command struct {
	Tag   Tag
	Value bool
}

// String encodes the command without the line delimiter.
func (c Command) String() string {
	v := "0"
	if c.Value {
		v = "1"
	}
	return string(c.Tag) + ":" + v
}

// ParseCommand decodes one inbound line.
//
// The value is the text between the tag's colon and the next colon (if
// any), read as an integer: zero is false, anything else true. Unknown
// tags wrap errors.ErrUnrecognized; both failures are *errors.ParseError.
func ParseCommand(line string) (Command, error) {
	line = strings.TrimSpace(line)

	tag, rest, found := strings.Cut(line, ":")
	if !found {
		return Command{}, &errors.ParseError{Line: line, Err: errors.ErrUnrecognized}
	}

	switch Tag(tag) {
	case TagSensor, TagMotor, TagLight:
	default:
		return Command{}, &errors.ParseError{Line: line, Err: errors.ErrUnrecognized}
	}

	field, _, _ := strings.Cut(rest, ":")
	n, err := strconv.Atoi(strings.TrimSpace(field))
	if err != nil {
		return Command{}, &errors.ParseError{Line: line, Err: fmt.Errorf("value %q is not an integer", field)}
	}

	return Command{Tag: Tag(tag), Value: n != 0}, nil
}
