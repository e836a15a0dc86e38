package adc

import "math/rand"

// Simulator models a fridge for running without hardware. The sensor reading
// drifts up while the compressor is off and down while it runs. Both
// channels occasionally return a random glitch value, like the LPC17xx ADC
// the plausibility filter was written for.
type Simulator struct {
	compressor func() bool
	rng        *rand.Rand

	setpoint int
	current  int

	// GlitchOneIn sets the glitch rate of the sensor channel (0 disables).
	GlitchOneIn int
	// SetpointGlitchOneIn sets the glitch rate of the setpoint channel (0 disables).
	SetpointGlitchOneIn int
}

// NewSimulator creates a simulator starting at the given raw readings.
// compressor reports whether the compressor output is currently driven.
func NewSimulator(setpoint, current int, compressor func() bool, seed int64) *Simulator {
	return &Simulator{
		compressor:          compressor,
		rng:                 rand.New(rand.NewSource(seed)),
		setpoint:            setpoint,
		current:             current,
		GlitchOneIn:         50,
		SetpointGlitchOneIn: 100,
	}
}

// Read implements Reader.
func (s *Simulator) Read() (int, int, error) {
	setpoint := s.setpoint
	if s.SetpointGlitchOneIn > 0 && s.rng.Intn(s.SetpointGlitchOneIn) == 0 {
		setpoint = s.rng.Intn(0xFFF)
	}

	if s.GlitchOneIn > 0 && s.rng.Intn(s.GlitchOneIn) == 0 {
		return setpoint, s.rng.Intn(0xFFF), nil
	}

	step := s.rng.Intn(2)
	if s.compressor != nil && s.compressor() {
		s.current -= step
	} else {
		s.current += step
	}
	if s.current < 0 {
		s.current = 0
	} else if s.current > FullScale {
		s.current = FullScale
	}
	return setpoint, s.current, nil
}

// SetSetpoint changes the simulated dial position.
func (s *Simulator) SetSetpoint(v int) {
	s.setpoint = v
}

// Close implements Reader.
func (s *Simulator) Close() error {
	return nil
}
