// Package rules implements the alert rule table and the pure evaluation
// function that maps a telemetry Snapshot to candidate alerts.
//
// Rules are declared once in Default as plain records. Evaluate tests every
// predicate, renders matching rules into alerts and sorts them by priority,
// keeping declaration order for ties. Bands for the same metric and tier are
// mutually exclusive, so at most one alert per metric per tier can fire.
package rules
