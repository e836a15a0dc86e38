package logic

// ADC full-scale range used for clipping raw readings.
const (
	ADCMin = 0
	ADCMax = 4096
)

// Calibration of the logarithmic setpoint potentiometer.
const (
	setpointBandLow  = 180
	setpointBandHigh = 660

	SetpointLowMdeg  = 5000
	SetpointMidMdeg  = 10000
	SetpointHighMdeg = 15000
)

// Calibration of the temperature sensor.
const (
	currentScale = 100
	// currentOffsetMdeg compensates a fixed 4 degree sensor error.
	currentOffsetMdeg = 4000
)

// Clip saturates value to [min, max].
func Clip(value, min, max int) int {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}

// SetpointMdeg maps the filtered setpoint dial reading to a setpoint in
// milli-degrees: [0,180] -> 5000, [181,660] -> 10000, else 15000.
func SetpointMdeg(adc int) int {
	switch {
	case adc >= 0 && adc <= setpointBandLow:
		return SetpointLowMdeg
	case adc > setpointBandLow && adc <= setpointBandHigh:
		return SetpointMidMdeg
	default:
		return SetpointHighMdeg
	}
}

// CurrentMdeg maps the filtered sensor reading to milli-degrees.
func CurrentMdeg(adc int) int {
	return adc*currentScale - currentOffsetMdeg
}
