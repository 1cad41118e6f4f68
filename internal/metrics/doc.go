// Package metrics exposes PlantWatch's own Prometheus metrics: telemetry
// polling, actuation outcomes, the alert view and the latest plant readings.
package metrics
