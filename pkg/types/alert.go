package types

import "time"

// Severity is the display tier of an alert.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityWarning  Severity = "warning"
	SeverityInfo     Severity = "info"
	SeveritySuccess  Severity = "success"
)

// ActionKind names the physical actuation an alert can trigger.
type ActionKind string

const (
	ActionNone  ActionKind = ""
	ActionWater ActionKind = "water"
	ActionLight ActionKind = "light"
)

// Actionable reports whether k can be dispatched to the actuator.
func (k ActionKind) Actionable() bool {
	return k == ActionWater || k == ActionLight
}

// Alert is a rule instantiated against one Snapshot.
// ID is the rule ID, so re-firing the same rule yields the same ID.
type Alert struct {
	ID             string        `json:"id"`
	Severity       Severity      `json:"severity"`
	Priority       int           `json:"priority"` // 1 = highest
	Persistent     bool          `json:"persistent"`
	AutoHideAfter  time.Duration `json:"auto_hide_after,omitempty"`
	Action         ActionKind    `json:"action,omitempty"`
	ActionLabel    string        `json:"action_label,omitempty"`
	Title          string        `json:"title"`
	Message        string        `json:"message"`
	Recommendation string        `json:"recommendation,omitempty"`
	CreatedAt      time.Time     `json:"created_at"`
}

// View is the display-ready alert set: at most the configured number of
// alerts in priority order, plus a count of the ones that did not fit.
type View struct {
	Alerts   []Alert `json:"alerts"`
	Overflow int     `json:"overflow"`
}
