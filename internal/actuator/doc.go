// Package actuator sends watering and grow-light commands to the plant's
// actuator service.
//
// Dispatcher allows at most one in-flight command per action kind. A second
// command of the same kind fails fast with types.ErrAlreadyInFlight instead
// of queueing. Each command is bounded by a timeout. Failures are classified
// as types.ErrTransport (the actuator could not be reached) or
// types.ErrActuation (the actuator refused).
package actuator
