//go:build linux

package gpio

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// consumer labels the requested lines in gpioinfo.
const consumer = "fridge-thermostat"

// RealOutput drives a GPIO line using Linux GPIO character device.
type RealOutput struct {
	chip *gpiocdev.Chip
	line *gpiocdev.Line
}

// NewRealOutput requests pin on the named chip as an output driven low.
func NewRealOutput(chipName string, pin int) (*RealOutput, error) {
	chip, err := gpiocdev.NewChip(chipName)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	line, err := chip.RequestLine(pin, gpiocdev.AsOutput(0), gpiocdev.WithConsumer(consumer))
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("request pin %d: %w", pin, err)
	}

	return &RealOutput{
		chip: chip,
		line: line,
	}, nil
}

// SetHigh drives the line active.
func (o *RealOutput) SetHigh() error {
	if err := o.line.SetValue(1); err != nil {
		return fmt.Errorf("set pin high: %w", err)
	}
	return nil
}

// SetLow drives the line inactive.
func (o *RealOutput) SetLow() error {
	if err := o.line.SetValue(0); err != nil {
		return fmt.Errorf("set pin low: %w", err)
	}
	return nil
}

// Close releases GPIO resources.
// The line is driven low and reconfigured as an input with pull-down
// (matching Pi boot defaults) before closing, so the compressor relay is
// released when the daemon exits.
func (o *RealOutput) Close() error {
	var errs []error

	if o.line != nil {
		if err := o.line.SetValue(0); err != nil {
			errs = append(errs, fmt.Errorf("drive low: %w", err))
		}
		if err := o.line.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure pin: %w", err))
		}
		if err := o.line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close pin: %w", err))
		}
	}
	if o.chip != nil {
		if err := o.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
