// Package history keeps the most recent published snapshots in memory for the
// dashboard's recent-readings view. The window is bounded both by count and by
// age. A background goroutine (Run) evicts entries older than the retention.
package history
