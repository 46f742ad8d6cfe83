// Package plant is a minimal conveyor line served over Modbus/TCP, standing
// in for the plant simulator during development.
package plant

import "time"

// Conveyor moves one item at a time toward an end-of-line sensor.
//
// While the motor runs, an item needs travel time to reach the sensor and
// then holds it for dwell time before the next item is placed. With the
// motor off everything freezes, including the sensor.
type Conveyor struct {
	travel time.Duration
	dwell  time.Duration

	motor    bool
	progress time.Duration
	last     time.Time
}

// NewConveyor builds a stopped conveyor with an item at the start of the belt.
func NewConveyor(travel, dwell time.Duration) *Conveyor {
	if travel <= 0 {
		travel = 5 * time.Second
	}
	if dwell <= 0 {
		dwell = 2 * time.Second
	}
	return &Conveyor{travel: travel, dwell: dwell}
}

// SetMotor switches the belt at time now.
func (c *Conveyor) SetMotor(on bool, now time.Time) {
	c.advance(now)
	c.motor = on
}

// Motor reports whether the belt is running.
func (c *Conveyor) Motor() bool {
	return c.motor
}

// Sensor reports whether an item sits in front of the sensor at time now.
func (c *Conveyor) Sensor(now time.Time) bool {
	c.advance(now)
	return c.progress >= c.travel
}

func (c *Conveyor) advance(now time.Time) {
	if c.motor && !c.last.IsZero() && now.After(c.last) {
		c.progress = (c.progress + now.Sub(c.last)) % (c.travel + c.dwell)
	}
	c.last = now
}
