package api

import (
	"time"

	"github.com/plantwatch/plantwatch/pkg/types"
)

// AlertsResponse is the payload for GET /api/v1/alerts and the alert
// mutation endpoints.
type AlertsResponse struct {
	Alerts   []types.Alert `json:"alerts"`
	Overflow int           `json:"overflow"`
}

// SnapshotResponse is the payload for GET /api/v1/snapshot.
type SnapshotResponse struct {
	Snapshot types.Snapshot `json:"snapshot"`
	// LightOn is the last acknowledged grow light state, absent until the
	// first light command succeeds.
	LightOn *bool `json:"light_on,omitempty"`
}

// RecentResponse is the payload for GET /api/v1/snapshots/recent.
type RecentResponse struct {
	Snapshots []types.Snapshot `json:"snapshots"`
}

// HealthResponse is the payload for GET /api/v1/health.
type HealthResponse struct {
	// Score is the health score reported with the latest snapshot.
	Score float64 `json:"score"`
	State string  `json:"state"`

	// DerivedScore is recomputed locally from the raw readings.
	DerivedScore float64        `json:"derived_score"`
	Factors      HealthFactors  `json:"factors"`
	Alerts       map[string]int `json:"alerts"` // active alerts by severity
	AlertCount   int            `json:"alert_count"`
	CapturedAt   string         `json:"captured_at,omitempty"` // RFC3339
}

// HealthFactors are the per-reading components of DerivedScore.
type HealthFactors struct {
	Soil        float64 `json:"soil"`
	Temperature float64 `json:"temperature"`
	Humidity    float64 `json:"humidity"`
	Light       float64 `json:"light"`
}

// AckResponse wraps an actuator acknowledgement.
type AckResponse struct {
	Ack types.Ack `json:"ack"`
}

// LightRequest is the body for POST /api/v1/actuate/light.
type LightRequest struct {
	State *bool `json:"state"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
