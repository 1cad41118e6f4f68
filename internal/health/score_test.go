package health

import (
	"math"
	"testing"
)

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestCompute_OptimalReadings(t *testing.T) {
	out := Compute(Input{SoilMoisture: 550, Temperature: 25, Humidity: 60, LightIntensity: 550})
	if !approx(out.Score, 100) {
		t.Errorf("Score = %v, want 100", out.Score)
	}
	if out.State != StateHealthy {
		t.Errorf("State = %q, want %q", out.State, StateHealthy)
	}
}

func TestCompute_SyntheticDefaults(t *testing.T) {
	// soil 520 → 85, temp 24.5 → 97.5, humidity 62 → 96, light 450 → 66.67
	out := Compute(Input{SoilMoisture: 520, Temperature: 24.5, Humidity: 62, LightIntensity: 450})
	want := (85 + 97.5 + 96 + (100 - 100.0/3)) / 4
	if !approx(out.Score, want) {
		t.Errorf("Score = %v, want %v", out.Score, want)
	}
	if !approx(out.SoilFactor, 85) {
		t.Errorf("SoilFactor = %v, want 85", out.SoilFactor)
	}
}

func TestCompute_FactorsFloorAtZero(t *testing.T) {
	out := Compute(Input{SoilMoisture: 5000, Temperature: 80, Humidity: 0, LightIntensity: 0})
	if out.SoilFactor != 0 || out.TemperatureFactor != 0 {
		t.Errorf("factors = soil %v temp %v, want 0", out.SoilFactor, out.TemperatureFactor)
	}
	if out.Score < 0 {
		t.Errorf("Score = %v, must not be negative", out.Score)
	}
	if out.State != StateCritical {
		t.Errorf("State = %q, want critical", out.State)
	}
}

func TestStateOf_Boundaries(t *testing.T) {
	tests := []struct {
		score float64
		want  string
	}{
		{100, StateHealthy},
		{85, StateHealthy},
		{84.9, StateDegraded},
		{60, StateDegraded},
		{59.9, StateCritical},
		{0, StateCritical},
	}
	for _, tc := range tests {
		if got := StateOf(tc.score); got != tc.want {
			t.Errorf("StateOf(%v) = %q, want %q", tc.score, got, tc.want)
		}
	}
}
