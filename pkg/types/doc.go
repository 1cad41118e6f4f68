// Package types defines the canonical in-memory values shared by every
// PlantWatch component: the normalized telemetry Snapshot, the Alert derived
// from it, the View handed to callers, and the actuation Command/Ack pair.
//
// The sentinel errors in errors.go form the error taxonomy; callers match them
// with errors.Is.
package types
