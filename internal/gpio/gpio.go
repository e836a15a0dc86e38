// Package gpio provides GPIO output driving with hardware abstraction.
// The real implementation uses Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

// Output drives a single digital output line.
type Output interface {
	// SetHigh drives the line active.
	SetHigh() error

	// SetLow drives the line inactive.
	SetLow() error

	// Close releases GPIO resources.
	Close() error
}

// Pin definitions (BCM numbering)
const (
	DefaultPinCompressor = 17 // Compressor relay
	DefaultPinLED        = 27 // Status LED
)

// DefaultChip is the GPIO character device of the Raspberry Pi header.
const DefaultChip = "gpiochip0"

// Set drives out high or low.
func Set(out Output, high bool) error {
	if high {
		return out.SetHigh()
	}
	return out.SetLow()
}
