// Package notify fans out newly surfaced alerts to external channels: Slack,
// Microsoft Teams and plain HTTP webhooks, and optionally a NATS subject.
//
// Delivery is asynchronous and best effort. Failures are logged and never
// reach the alert pipeline.
package notify
