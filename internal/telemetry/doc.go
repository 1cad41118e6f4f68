// Package telemetry turns whatever the plant's telemetry provider returns
// into a canonical types.Snapshot and keeps one flowing on a fixed interval.
//
// normalize.go accepts snake_case or camelCase field names, flat or nested
// under current_readings, numbers or numeric strings, and second- or
// millisecond-epoch timestamps. A malformed field degrades to its zero value;
// only a payload that is not a mapping is rejected.
//
// Providers (provider.go, prometheus.go) fetch one raw payload. Source
// (source.go) polls a Provider, normalizes, and publishes. When a fetch fails
// it republishes the last good snapshot, or Synthetic if there is none, so the
// evaluation pipeline always has a snapshot.
package telemetry
