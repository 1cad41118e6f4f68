// Package ws streams live plant state to browser dashboards over WebSocket.
//
// Every frame carries the full state: the displayed alert view, the latest
// snapshot and the last known light state. Frames go out on connect, on a
// fixed period, and whenever the engine reports an alert change through
// Hub.Notify.
//
//	{"event": "state", "data": {"alerts": {...}, "snapshot": {...}, "light_on": true, "generated_at": "..."}}
//
// A subscriber whose outbox fills up is disconnected rather than allowed to
// slow the others down.
package ws
