package filter

import "fmt"

// PlausibleState is the state of an outlier-rejecting filter.
//
// A sample further than Diff from the last accepted value is rejected and the
// last accepted value is echoed instead. After more than NumFails consecutive
// rejections the new sample is force-accepted, so a sustained real change
// cannot wedge the filter.
type PlausibleState struct {
	Diff     int
	NumFails int

	valid bool
	last  int
	fails int
}

// NewPlausibleState returns an empty state.
func NewPlausibleState(numFails, diff int) (PlausibleState, error) {
	if diff < 0 {
		return PlausibleState{}, fmt.Errorf("%w: got %d", ErrInvalidDiff, diff)
	}
	if numFails < 0 {
		return PlausibleState{}, fmt.Errorf("%w: got %d", ErrInvalidFails, numFails)
	}
	return PlausibleState{Diff: diff, NumFails: numFails}, nil
}

// Next feeds value into the filter and returns the new state and the
// accepted value.
func (s PlausibleState) Next(value int) (PlausibleState, int) {
	if !s.valid {
		s.valid = true
		s.last = value
		return s, value
	}

	if abs(s.last-value) <= s.Diff {
		s.fails = 0
		s.last = value
		return s, value
	}

	s.fails++
	if s.fails > s.NumFails {
		s.fails = 0
		s.last = value
		return s, value
	}
	return s, s.last
}

// Fails returns the current run of consecutive rejections.
func (s PlausibleState) Fails() int {
	return s.fails
}

// Last returns the last accepted value and whether one exists.
func (s PlausibleState) Last() (int, bool) {
	return s.last, s.valid
}

// Plausible is a mutable wrapper around PlausibleState.
type Plausible struct {
	state PlausibleState
}

// NewPlausible creates a plausibility filter that tolerates numFails
// consecutive jumps larger than diff.
func NewPlausible(numFails, diff int) (*Plausible, error) {
	s, err := NewPlausibleState(numFails, diff)
	if err != nil {
		return nil, err
	}
	return &Plausible{state: s}, nil
}

// Filter implements Filter.
func (p *Plausible) Filter(value int) int {
	var out int
	p.state, out = p.state.Next(value)
	return out
}

// State returns a copy of the current state.
func (p *Plausible) State() PlausibleState {
	return p.state
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
