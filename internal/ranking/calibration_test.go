package ranking

import (
	"math"
	"testing"
)

func TestCalibrateMidpoint(t *testing.T) {
	for _, temp := range []float64{1, 25, 100} {
		if got := Calibrate(0, temp); math.Abs(got-0.5) > 1e-12 {
			t.Errorf("Calibrate(0, %v) = %v, want 0.5", temp, got)
		}
	}
}

func TestCalibrateMonotonic(t *testing.T) {
	prev := -1.0
	for raw := -1.0; raw <= 1.0; raw += 0.05 {
		got := Calibrate(raw, DefaultTemperature)
		if got <= prev {
			t.Fatalf("Calibrate not strictly increasing at raw=%v: %v <= %v", raw, got, prev)
		}
		prev = got
	}
}

func TestCalibrateBounds(t *testing.T) {
	tests := []struct {
		raw float64
	}{
		{-1}, {-0.5}, {0}, {0.5}, {1},
		// Out-of-domain inputs are clamped before calibration.
		{-3}, {3},
	}
	for _, tt := range tests {
		got := Calibrate(tt.raw, DefaultTemperature)
		if got < 0 || got > 1 {
			t.Errorf("Calibrate(%v) = %v out of [0,1]", tt.raw, got)
		}
	}
	if Calibrate(3, DefaultTemperature) != Calibrate(1, DefaultTemperature) {
		t.Error("Values above 1 should clamp to 1")
	}
}
