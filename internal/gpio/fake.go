package gpio

// FakeOutput is a test double that records driven levels.
type FakeOutput struct {
	// Name identifies the line in test failures.
	Name string

	// High is the currently driven level.
	High bool

	// History contains every level written, in order.
	History []bool

	// WriteError, if set, will be returned by SetHigh and SetLow.
	WriteError error

	// Closed tracks if Close was called
	Closed bool
}

// NewFakeOutput creates a FakeOutput driven low.
func NewFakeOutput(name string) *FakeOutput {
	return &FakeOutput{Name: name}
}

// SetHigh records a high level.
func (f *FakeOutput) SetHigh() error {
	return f.set(true)
}

// SetLow records a low level.
func (f *FakeOutput) SetLow() error {
	return f.set(false)
}

func (f *FakeOutput) set(high bool) error {
	if f.WriteError != nil {
		return f.WriteError
	}
	f.High = high
	f.History = append(f.History, high)
	return nil
}

// Level reports the currently driven level.
func (f *FakeOutput) Level() bool {
	return f.High
}

// Toggles counts level changes in History.
func (f *FakeOutput) Toggles() int {
	n := 0
	prev := false
	for _, h := range f.History {
		if h != prev {
			n++
		}
		prev = h
	}
	return n
}

// Close marks the output as closed.
func (f *FakeOutput) Close() error {
	f.Closed = true
	return nil
}

// Reset clears recorded writes.
func (f *FakeOutput) Reset() {
	f.High = false
	f.History = nil
	f.WriteError = nil
	f.Closed = false
}
