// Package filter contains the signal-conditioning filters applied to raw ADC
// samples: a recursive mean filter and a plausibility (outlier) filter.
//
// Each filter is a plain state value with a pure Next transition. The Mean and
// Plausible types wrap that state for callers that prefer a mutable filter.
package filter

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidWindow is returned for a mean filter window outside [1, MaxWindow].
	ErrInvalidWindow = errors.New("filter: window out of range")
	// ErrInvalidDiff is returned for a negative plausibility jump.
	ErrInvalidDiff = errors.New("filter: max jump must be >= 0")
	// ErrInvalidFails is returned for a negative fail tolerance.
	ErrInvalidFails = errors.New("filter: fail tolerance must be >= 0")
)

// MaxWindow bounds the mean filter window. It keeps last*(N-1) far from
// overflow for ADC-range samples and N-1 distinct from N in float32.
const MaxWindow = 1 << 16

// Filter transforms one sample into its filtered value.
type Filter interface {
	Filter(value int) int
}

// Domain selects the arithmetic used by the mean filter.
type Domain string

const (
	// DomainInt keeps the running value as an integer (truncating division).
	DomainInt Domain = "int"
	// DomainFloat keeps the running value as float32; output is truncated toward zero.
	DomainFloat Domain = "float"
)

// ParseDomain validates a domain name.
func ParseDomain(s string) (Domain, error) {
	switch Domain(s) {
	case DomainInt, DomainFloat:
		return Domain(s), nil
	}
	return "", fmt.Errorf("filter: unknown numeric domain %q", s)
}
