package adc

import "errors"

// FakeReader is a test double that returns scripted ADC values.
type FakeReader struct {
	// Samples contains scripted readings to return.
	// Each call to Read() consumes the next sample.
	Samples []Sample

	// index tracks current position in Samples
	index int

	// Closed tracks if Close was called
	Closed bool

	// ReadError, if set, will be returned by Read()
	ReadError error

	// Reads counts calls to Read.
	Reads int
}

// Sample represents a single pair of raw ADC readings.
type Sample struct {
	Setpoint int
	Current  int
}

// NewFakeReader creates a FakeReader with the given samples.
func NewFakeReader(samples []Sample) *FakeReader {
	return &FakeReader{Samples: samples}
}

// Read returns the next scripted sample.
// If samples are exhausted, returns the last sample repeatedly.
func (f *FakeReader) Read() (int, int, error) {
	f.Reads++
	if f.ReadError != nil {
		return 0, 0, f.ReadError
	}

	if len(f.Samples) == 0 {
		return 0, 0, errors.New("no samples configured")
	}

	sample := f.Samples[f.index]
	if f.index < len(f.Samples)-1 {
		f.index++
	}

	return sample.Setpoint, sample.Current, nil
}

// Close marks the reader as closed.
func (f *FakeReader) Close() error {
	f.Closed = true
	return nil
}

// Reset resets the reader to the beginning of samples.
func (f *FakeReader) Reset() {
	f.index = 0
	f.Closed = false
	f.Reads = 0
}

// Ramp builds samples with a constant setpoint and a current reading that
// moves by one count per sample from start to end inclusive.
func Ramp(setpoint, start, end int) []Sample {
	step := 1
	if end < start {
		step = -1
	}
	var samples []Sample
	for v := start; ; v += step {
		samples = append(samples, Sample{Setpoint: setpoint, Current: v})
		if v == end {
			break
		}
	}
	return samples
}
