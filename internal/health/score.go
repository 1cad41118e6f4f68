package health

import "math"

// Optimal readings the factor curves are centred on.
const (
	optimumSoil        = 550.0
	optimumTemperature = 25.0
	optimumHumidity    = 60.0
	optimumLight       = 550.0
)

// State constants returned by StateOf.
const (
	StateHealthy  = "healthy"
	StateDegraded = "degraded"
	StateCritical = "critical"
)

// Thresholds that map a score to a health state.
const (
	ThresholdHealthy  = 85.0
	ThresholdDegraded = 60.0
)

// Input holds the raw readings fed into the score formula.
type Input struct {
	SoilMoisture   float64
	Temperature    float64
	Humidity       float64
	LightIntensity float64
}

// Output is the result of the score calculation.
type Output struct {
	// Score is the composite health score in the range 0–100.
	Score float64

	// State is derived from Score.
	State string

	// Per-metric factor values (each 0–100).
	SoilFactor        float64
	TemperatureFactor float64
	HumidityFactor    float64
	LightFactor       float64
}

// Compute calculates the plant health score from in.
func Compute(in Input) Output {
	soil := falloff(in.SoilMoisture, optimumSoil, 0.5)
	temp := falloff(in.Temperature, optimumTemperature, 5)
	hum := falloff(in.Humidity, optimumHumidity, 2)
	light := falloff(in.LightIntensity, optimumLight, 1.0/3)

	score := clamp(0, 100, (soil+temp+hum+light)/4)
	return Output{
		Score:             score,
		State:             StateOf(score),
		SoilFactor:        soil,
		TemperatureFactor: temp,
		HumidityFactor:    hum,
		LightFactor:       light,
	}
}

// Score is shorthand for Compute(in).Score.
func Score(in Input) float64 {
	return Compute(in).Score
}

// StateOf maps a numeric score to a named health state.
func StateOf(score float64) string {
	switch {
	case score >= ThresholdHealthy:
		return StateHealthy
	case score >= ThresholdDegraded:
		return StateDegraded
	default:
		return StateCritical
	}
}

// falloff returns 100 minus slope points per unit of distance from optimum,
// floored at 0.
func falloff(v, optimum, slope float64) float64 {
	return math.Max(0, 100-math.Abs(v-optimum)*slope)
}

func clamp(lo, hi, v float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
