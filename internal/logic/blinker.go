package logic

import (
	"errors"
	"fmt"
)

// ErrInvalidDivisor is returned for an LED divisor below 1.
var ErrInvalidDivisor = errors.New("logic: LED divisor must be >= 1")

// Blinker derives the status LED phase. While cooling the LED toggles every
// tick; while idle it toggles every divisor ticks.
type Blinker struct {
	divisor int
	counter int // wraps at divisor
	on      bool
}

// NewBlinker creates a blinker with the given idle divisor.
func NewBlinker(divisor int) (*Blinker, error) {
	if divisor < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidDivisor, divisor)
	}
	return &Blinker{divisor: divisor}, nil
}

// Step advances one tick and returns the LED phase to drive.
func (b *Blinker) Step(cooling bool) bool {
	b.counter = (b.counter + 1) % b.divisor
	if cooling || b.counter == 0 {
		b.on = !b.on
	}
	return b.on
}

// On returns the current LED phase.
func (b *Blinker) On() bool {
	return b.on
}
