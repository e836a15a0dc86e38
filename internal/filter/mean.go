package filter

import "fmt"

// MeanState is the state of a recursive mean filter with window N.
// The output is an exponentially weighted running average, not the
// arithmetic mean of the last N samples.
type MeanState struct {
	N      int
	Domain Domain

	valid bool
	last  int
	lastF float32
}

// NewMeanState returns an empty state for window n.
func NewMeanState(n int, domain Domain) (MeanState, error) {
	if n < 1 || n > MaxWindow {
		return MeanState{}, fmt.Errorf("%w: got %d, want 1..%d", ErrInvalidWindow, n, MaxWindow)
	}
	if _, err := ParseDomain(string(domain)); err != nil {
		return MeanState{}, err
	}
	return MeanState{N: n, Domain: domain}, nil
}

// Next feeds value into the filter and returns the new state and output.
// The first value passes through unchanged.
func (s MeanState) Next(value int) (MeanState, int) {
	if s.Domain == DomainFloat {
		if !s.valid {
			s.lastF = float32(value)
		} else {
			n := float32(s.N)
			s.lastF = (s.lastF*(n-1) + float32(value)) / n
		}
		s.valid = true
		return s, int(s.lastF)
	}

	if !s.valid {
		s.last = value
	} else {
		s.last = (s.last*(s.N-1) + value) / s.N
	}
	s.valid = true
	return s, s.last
}

// Last returns the last output and whether the filter has seen a sample.
func (s MeanState) Last() (int, bool) {
	if s.Domain == DomainFloat {
		return int(s.lastF), s.valid
	}
	return s.last, s.valid
}

// Mean is a mutable wrapper around MeanState.
type Mean struct {
	state MeanState
}

// NewMean creates a mean filter with window n in [1, MaxWindow].
func NewMean(n int, domain Domain) (*Mean, error) {
	s, err := NewMeanState(n, domain)
	if err != nil {
		return nil, err
	}
	return &Mean{state: s}, nil
}

// Filter implements Filter.
func (m *Mean) Filter(value int) int {
	var out int
	m.state, out = m.state.Next(value)
	return out
}

// State returns a copy of the current state.
func (m *Mean) State() MeanState {
	return m.state
}
