// Package health computes the plant health score (0–100) from raw sensor
// readings and maps a score to a named state.
//
// Score averages four per-metric factors, each 100 at the optimum and falling
// off linearly with distance from it:
//
//	soil moisture   optimum 550, −1 point per 2 units
//	temperature     optimum 25 °C, −5 points per degree
//	humidity        optimum 60 %, −2 points per percent
//	light intensity optimum 550, −1 point per 3 units
//
// State thresholds: Healthy ≥85, Degraded 60–84, Critical <60.
package health
