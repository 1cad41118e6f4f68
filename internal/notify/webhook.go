package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/plantwatch/plantwatch/pkg/types"
)

// Webhook posts alerts to a Slack, Teams or generic HTTP endpoint.
type Webhook struct {
	kind        string
	url         string
	minSeverity types.Severity
	client      *http.Client
}

// NewWebhook returns a webhook sink. kind is slack, teams or http. Alerts less
// severe than minSev are skipped; an empty minSev delivers everything.
func NewWebhook(kind, url string, minSev types.Severity, client *http.Client) *Webhook {
	if client == nil {
		client = &http.Client{Timeout: deliveryTimeout}
	}
	return &Webhook{kind: kind, url: url, minSeverity: minSev, client: client}
}

func (w *Webhook) Name() string { return "webhook:" + w.kind }

func (w *Webhook) Notify(ctx context.Context, a types.Alert) error {
	if !atLeast(a.Severity, w.minSeverity) {
		return nil
	}

	var payload any
	switch w.kind {
	case "slack":
		payload = map[string]string{
			"text": fmt.Sprintf("*%s* %s: %s", severityLabel(a.Severity), a.Title, a.Message),
		}
	case "teams":
		payload = map[string]any{
			"@type":      "MessageCard",
			"@context":   "http://schema.org/extensions",
			"themeColor": severityColor(a.Severity),
			"summary":    a.ID,
			"title":      fmt.Sprintf("PlantWatch Alert: %s", a.Title),
			"text":       a.Message + recommendationSuffix(a),
		}
	case "http":
		payload = map[string]any{"alert": a}
	default:
		return fmt.Errorf("unknown webhook type %q", w.kind)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	return w.post(ctx, body)
}

func (w *Webhook) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("http post: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook returned HTTP %d", resp.StatusCode)
	}
	return nil
}

func recommendationSuffix(a types.Alert) string {
	if a.Recommendation == "" {
		return ""
	}
	return "\n\n" + a.Recommendation
}

func severityLabel(s types.Severity) string {
	switch s {
	case types.SeverityCritical:
		return "[CRITICAL]"
	case types.SeverityWarning:
		return "[WARNING]"
	case types.SeveritySuccess:
		return "[OK]"
	default:
		return "[INFO]"
	}
}

func severityColor(s types.Severity) string {
	switch s {
	case types.SeverityCritical:
		return "FF4F6A"
	case types.SeverityWarning:
		return "FFAB40"
	case types.SeveritySuccess:
		return "2ECC71"
	default:
		return "00D4FF"
	}
}
