// Package trace renders the per-tick diagnostic line of the thermostat.
// Trace output is presentation only; it never feeds back into control.
package trace

import (
	"strconv"
	"strings"

	"github.com/sweeney/fridge-thermostat/internal/logic"
)

// Tags written at the start of each trace line.
const (
	TagCooling = "[cooling]"
	TagStopped = "[stopped]"
	TagFault   = "[fault]"
)

// Format renders rec as a single trace line, for example
//
//	[cooling]: setpoint: 10.000 deg	current: 11.100 deg
func Format(rec logic.Record) string {
	var b strings.Builder
	switch {
	case rec.Fault:
		b.WriteString(TagFault)
	case rec.Compressor:
		b.WriteString(TagCooling)
	default:
		b.WriteString(TagStopped)
	}
	b.WriteString(": setpoint: ")
	b.WriteString(FormatMdeg(rec.SetpointMdeg))
	b.WriteString(" deg\tcurrent: ")
	b.WriteString(FormatMdeg(rec.CurrentMdeg))
	b.WriteString(" deg\n")
	return b.String()
}

// FormatMdeg renders milli-degrees as sign, whole degrees and a three digit
// fraction: -1500 -> "-1.500".
func FormatMdeg(mdeg int) string {
	v := int64(mdeg)
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	frac := strconv.FormatInt(v%1000, 10)
	return sign + strconv.FormatInt(v/1000, 10) + "." + strings.Repeat("0", 3-len(frac)) + frac
}
