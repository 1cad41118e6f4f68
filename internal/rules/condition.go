package rules

import "github.com/plantwatch/plantwatch/pkg/types"

// metric extracts one numeric reading from a snapshot.
type metric func(types.Snapshot) float64

func soil(s types.Snapshot) float64        { return s.SoilMoisture }
func temperature(s types.Snapshot) float64 { return s.Temperature }
func humidity(s types.Snapshot) float64    { return s.Humidity }
func light(s types.Snapshot) float64       { return s.LightIntensity }
func healthScore(s types.Snapshot) float64 { return s.HealthScore }

// below fires when m < threshold.
func below(m metric, threshold float64) func(types.Snapshot) bool {
	return func(s types.Snapshot) bool { return m(s) < threshold }
}

// above fires when m > threshold.
func above(m metric, threshold float64) func(types.Snapshot) bool {
	return func(s types.Snapshot) bool { return m(s) > threshold }
}

// atLeast fires when m >= threshold.
func atLeast(m metric, threshold float64) func(types.Snapshot) bool {
	return func(s types.Snapshot) bool { return m(s) >= threshold }
}

// halfOpen fires when lo <= m < hi.
func halfOpen(m metric, lo, hi float64) func(types.Snapshot) bool {
	return func(s types.Snapshot) bool {
		v := m(s)
		return v >= lo && v < hi
	}
}

// openClosed fires when lo < m <= hi.
func openClosed(m metric, lo, hi float64) func(types.Snapshot) bool {
	return func(s types.Snapshot) bool {
		v := m(s)
		return v > lo && v <= hi
	}
}
