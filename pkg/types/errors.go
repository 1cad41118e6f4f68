package types

import "errors"

var (
	// ErrMalformedInput marks a raw telemetry payload that is not a mapping.
	ErrMalformedInput = errors.New("malformed telemetry input")

	// ErrTransport marks a network or timeout failure talking to the
	// telemetry provider or the actuator.
	ErrTransport = errors.New("transport failure")

	// ErrAlreadyInFlight is returned when an actuation of the same kind is
	// still pending. Nothing is sent downstream.
	ErrAlreadyInFlight = errors.New("actuation already in flight")

	// ErrActuation marks a command the actuator rejected or failed to run.
	ErrActuation = errors.New("actuation failed")
)
