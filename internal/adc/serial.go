package adc

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"go.bug.st/serial"
)

const (
	// DefaultBaudRate is the baud rate of the ADC bridge firmware.
	DefaultBaudRate = 115200
	// DefaultTimeout bounds a single request/response exchange.
	DefaultTimeout = 50 * time.Millisecond

	maxLineLength = 64
)

// requestCmd asks the bridge to sample both channels once.
var requestCmd = []byte("r\n")

// ErrTimeout is returned when the bridge does not answer in time.
var ErrTimeout = errors.New("adc: bridge response timeout")

// port is the subset of serial.Port used by SerialReader.
type port interface {
	io.ReadWriteCloser
	ResetInputBuffer() error
}

// SerialReader reads both channels from an ADC bridge MCU. Each Read sends
// "r\n" and waits for one "<setpoint>,<current>\n" line.
type SerialReader struct {
	port    port
	timeout time.Duration
	now     func() time.Time
}

// NewSerialReader opens the bridge on the given serial port.
func NewSerialReader(name string, baudRate int) (*SerialReader, error) {
	if baudRate == 0 {
		baudRate = DefaultBaudRate
	}

	p, err := serial.Open(name, &serial.Mode{BaudRate: baudRate})
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", name, err)
	}
	// A short read timeout lets readLine enforce the exchange deadline.
	if err := p.SetReadTimeout(5 * time.Millisecond); err != nil {
		p.Close()
		return nil, fmt.Errorf("set read timeout: %w", err)
	}

	return newSerialReader(p, DefaultTimeout), nil
}

func newSerialReader(p port, timeout time.Duration) *SerialReader {
	return &SerialReader{port: p, timeout: timeout, now: time.Now}
}

// Read requests one sample pair from the bridge.
func (r *SerialReader) Read() (int, int, error) {
	// Drop stale bytes from an earlier timed-out exchange.
	if err := r.port.ResetInputBuffer(); err != nil {
		return 0, 0, fmt.Errorf("reset input: %w", err)
	}
	if _, err := r.port.Write(requestCmd); err != nil {
		return 0, 0, fmt.Errorf("write request: %w", err)
	}

	line, err := r.readLine()
	if err != nil {
		return 0, 0, err
	}
	return ParseLine(line)
}

func (r *SerialReader) readLine() (string, error) {
	deadline := r.now().Add(r.timeout)
	var buf bytes.Buffer
	b := make([]byte, 1)

	for {
		n, err := r.port.Read(b)
		if err != nil {
			return "", fmt.Errorf("read response: %w", err)
		}
		if n == 0 {
			if r.now().After(deadline) {
				return "", ErrTimeout
			}
			continue
		}
		if b[0] == '\n' {
			return buf.String(), nil
		}
		if buf.Len() >= maxLineLength {
			return "", fmt.Errorf("adc: response line exceeds %d bytes", maxLineLength)
		}
		buf.WriteByte(b[0])
	}
}

// Close closes the serial port.
func (r *SerialReader) Close() error {
	return r.port.Close()
}

// ParseLine parses a bridge response of the form "<setpoint>,<current>".
func ParseLine(line string) (int, int, error) {
	line = strings.TrimSpace(line)
	parts := strings.Split(line, ",")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("adc: malformed line %q", line)
	}

	setpoint, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, 0, fmt.Errorf("adc: parse setpoint %q: %w", parts[0], err)
	}
	current, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return 0, 0, fmt.Errorf("adc: parse current %q: %w", parts[1], err)
	}
	return setpoint, current, nil
}
