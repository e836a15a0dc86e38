package filter

import "fmt"

// Order selects which filter of a Chain runs first.
type Order string

const (
	// PlausibleFirst rejects glitches before they reach the mean filter.
	PlausibleFirst Order = "plausible-first"
	// MeanFirst smooths first and checks plausibility of the smoothed value.
	MeanFirst Order = "mean-first"
)

// ParseOrder validates a filter order name.
func ParseOrder(s string) (Order, error) {
	switch Order(s) {
	case PlausibleFirst, MeanFirst:
		return Order(s), nil
	}
	return "", fmt.Errorf("filter: unknown filter order %q", s)
}

// Chain cascades a plausibility filter and a mean filter for one channel.
// A nil plausibility filter disables that step.
type Chain struct {
	order     Order
	plausible *Plausible
	mean      *Mean
}

// NewChain builds a chain. mean must not be nil.
func NewChain(order Order, plausible *Plausible, mean *Mean) (*Chain, error) {
	if _, err := ParseOrder(string(order)); err != nil {
		return nil, err
	}
	if mean == nil {
		return nil, fmt.Errorf("filter: chain requires a mean filter")
	}
	return &Chain{order: order, plausible: plausible, mean: mean}, nil
}

// Filter implements Filter.
func (c *Chain) Filter(value int) int {
	if c.plausible == nil {
		return c.mean.Filter(value)
	}
	if c.order == MeanFirst {
		return c.plausible.Filter(c.mean.Filter(value))
	}
	return c.mean.Filter(c.plausible.Filter(value))
}
