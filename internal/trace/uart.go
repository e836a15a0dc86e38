package trace

import (
	"fmt"

	"go.bug.st/serial"
)

// DefaultUARTBaud is the baud rate of the diagnostic UART.
const DefaultUARTBaud = 115200

// OpenUART opens a serial port as a trace sink.
func OpenUART(name string, baudRate int) (serial.Port, error) {
	if baudRate == 0 {
		baudRate = DefaultUARTBaud
	}
	p, err := serial.Open(name, &serial.Mode{BaudRate: baudRate})
	if err != nil {
		return nil, fmt.Errorf("open trace port %s: %w", name, err)
	}
	return p, nil
}
