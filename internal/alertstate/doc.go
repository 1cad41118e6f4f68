// Package alertstate owns the alert lifecycle for one session: dismissal,
// the priority-capped display view, auto-hide timers and the grace-period
// dismissal that follows a successful action.
//
// Manager is the only writer of that state. Reconcile is called once per
// telemetry cycle with the candidates produced by the rule engine; timer
// callbacks mutate the same state under the same lock, so a cycle and a
// timer never interleave.
package alertstate
