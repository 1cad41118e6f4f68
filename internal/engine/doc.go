// Package engine is PlantWatch's caller surface. It subscribes to the
// telemetry source, evaluates every published snapshot against the alert
// rules, reconciles the result into the displayed alert set, and turns alert
// actions and manual controls into actuator commands.
//
// Evaluation is serialized: one snapshot is evaluated and reconciled to
// completion before the next is accepted.
package engine
