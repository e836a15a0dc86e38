package logic

import (
	"errors"
	"fmt"
)

// ErrInvalidHysteresis is returned for a hysteresis half-band <= 0.
var ErrInvalidHysteresis = errors.New("logic: hysteresis must be > 0")

// Controller is the two-state hysteresis controller deciding whether the
// compressor runs. It starts Idle.
type Controller struct {
	hysteresis int
	cooling    bool
}

// NewController creates a controller with half-band h in milli-degrees.
func NewController(h int) (*Controller, error) {
	if h <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidHysteresis, h)
	}
	return &Controller{hysteresis: h}, nil
}

// Step evaluates one tick. It returns the compressor command and the
// transition type if the state changed, nil otherwise.
//
// Cooling starts once current >= setpoint+h and stops once
// current <= setpoint-h. Inside the band the previous state is kept.
func (c *Controller) Step(setpointMdeg, currentMdeg int) (bool, *EventType) {
	was := c.cooling

	if currentMdeg >= setpointMdeg+c.hysteresis {
		c.cooling = true
	} else if currentMdeg <= setpointMdeg-c.hysteresis {
		c.cooling = false
	}

	return c.cooling, transition(was, c.cooling)
}

// ForceIdle drops to Idle regardless of the inputs. It returns the
// transition type if the controller was cooling.
func (c *Controller) ForceIdle() *EventType {
	was := c.cooling
	c.cooling = false
	return transition(was, false)
}

// Cooling reports the current control state.
func (c *Controller) Cooling() bool {
	return c.cooling
}

// Hysteresis returns the configured half-band.
func (c *Controller) Hysteresis() int {
	return c.hysteresis
}

func transition(from, to bool) *EventType {
	if from == to {
		return nil
	}
	event := EventCoolingOff
	if to {
		event = EventCoolingOn
	}
	return &event
}
