// Package adc provides analog input reading with hardware abstraction.
// The serial implementation talks to an ADC bridge MCU over a UART.
// The fake implementation allows testing without hardware.
package adc

// Reader reads the two analog channels of the thermostat.
type Reader interface {
	// Read returns the raw setpoint dial and temperature sensor samples.
	// Values are nominally in [0, 4096] but may be out of range or noisy.
	// Returns (setpoint, current, error).
	Read() (int, int, error)

	// Close releases ADC resources.
	Close() error
}

// FullScale is the nominal full-scale reading of the ADC.
const FullScale = 4096
