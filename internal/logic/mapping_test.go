package logic

import "testing"

func TestClip(t *testing.T) {
	tests := []struct {
		value, min, max, want int
	}{
		{0, -100, 100, 0},
		{-200, -100, 100, -100},
		{200, -100, 100, 100},
		{-1, ADCMin, ADCMax, 0},
		{5000, ADCMin, ADCMax, 4096},
		{4096, ADCMin, ADCMax, 4096},
	}
	for _, tt := range tests {
		if got := Clip(tt.value, tt.min, tt.max); got != tt.want {
			t.Errorf("Clip(%d, %d, %d): got %d, want %d", tt.value, tt.min, tt.max, got, tt.want)
		}
	}
}

func TestSetpointMdegBands(t *testing.T) {
	tests := []struct {
		adc  int
		want int
	}{
		{0, 5000},
		{180, 5000},
		{181, 10000},
		{400, 10000},
		{660, 10000},
		{661, 15000},
		{4096, 15000},
	}
	for _, tt := range tests {
		if got := SetpointMdeg(tt.adc); got != tt.want {
			t.Errorf("SetpointMdeg(%d): got %d, want %d", tt.adc, got, tt.want)
		}
	}
}

func TestCurrentMdeg(t *testing.T) {
	tests := []struct {
		adc  int
		want int
	}{
		{0, -4000},
		{40, 0},
		{50, 1000},
		{150, 11000},
		{200, 16000},
	}
	for _, tt := range tests {
		if got := CurrentMdeg(tt.adc); got != tt.want {
			t.Errorf("CurrentMdeg(%d): got %d, want %d", tt.adc, got, tt.want)
		}
	}
}
