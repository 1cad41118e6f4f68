package actuator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/plantwatch/plantwatch/internal/clock"
	"github.com/plantwatch/plantwatch/internal/config"
	"github.com/plantwatch/plantwatch/internal/transport"
	"github.com/plantwatch/plantwatch/pkg/types"
)

// statusExecuted is the status the actuator service reports for a command it
// carried out.
const statusExecuted = "executed"

// Actuator executes one command against the physical device.
type Actuator interface {
	Actuate(ctx context.Context, cmd types.Command) (types.Ack, error)
}

// HTTPActuator POSTs commands as JSON to the actuator service.
type HTTPActuator struct {
	endpoint string
	client   *http.Client
	clock    clock.Clock
}

// NewHTTPActuator returns an actuator that POSTs to endpoint with client. A nil
// client uses http.DefaultClient.
func NewHTTPActuator(endpoint string, client *http.Client) *HTTPActuator {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPActuator{endpoint: endpoint, client: client, clock: clock.Real{}}
}

// NewFromConfig builds an HTTPActuator using the configured auth and TLS.
func NewFromConfig(cfg config.ActuatorConfig) (*HTTPActuator, error) {
	client, err := transport.NewHTTPClient(cfg.Auth, cfg.TLS, 0)
	if err != nil {
		return nil, fmt.Errorf("actuator: build client: %w", err)
	}
	return NewHTTPActuator(cfg.Endpoint, client), nil
}

// response is the actuator service's reply. Failures carry only Error.
type response struct {
	Action    string   `json:"action"`
	Status    string   `json:"status"`
	Message   string   `json:"message"`
	State     *bool    `json:"state"`
	Timestamp *float64 `json:"timestamp"`
	Error     string   `json:"error"`
}

func (a *HTTPActuator) Actuate(ctx context.Context, cmd types.Command) (types.Ack, error) {
	body, err := json.Marshal(cmd)
	if err != nil {
		return types.Ack{}, fmt.Errorf("actuator: marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.endpoint, bytes.NewReader(body))
	if err != nil {
		return types.Ack{}, fmt.Errorf("actuator: build request: %w", err)
	}
	requestID := uuid.NewString()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", requestID)

	resp, err := a.client.Do(req)
	if err != nil {
		return types.Ack{}, fmt.Errorf("actuator: post %s: %v: %w", cmd.Kind, err, types.ErrTransport)
	}
	defer resp.Body.Close()

	var r response
	decodeErr := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&r)

	switch {
	case resp.StatusCode >= 500:
		return types.Ack{}, fmt.Errorf("actuator: post %s: status %d: %w", cmd.Kind, resp.StatusCode, types.ErrTransport)
	case resp.StatusCode >= 400:
		reason := r.Error
		if reason == "" {
			reason = http.StatusText(resp.StatusCode)
		}
		return types.Ack{}, fmt.Errorf("actuator: %s rejected: %s: %w", cmd.Kind, reason, types.ErrActuation)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return types.Ack{}, fmt.Errorf("actuator: post %s: unexpected status %d: %w", cmd.Kind, resp.StatusCode, types.ErrTransport)
	case decodeErr != nil:
		return types.Ack{}, fmt.Errorf("actuator: decode %s ack: %v: %w", cmd.Kind, decodeErr, types.ErrTransport)
	case r.Status != statusExecuted:
		return types.Ack{}, fmt.Errorf("actuator: %s not executed (status %q): %w", cmd.Kind, r.Status, types.ErrActuation)
	}

	ack := types.Ack{
		RequestID: requestID,
		Kind:      cmd.Kind,
		Status:    r.Status,
		Message:   r.Message,
		State:     r.State,
		At:        a.clock.Now(),
	}
	if r.Timestamp != nil && *r.Timestamp > 0 {
		sec := *r.Timestamp
		ack.At = time.Unix(0, int64(sec*float64(time.Second))).UTC()
	}
	if cmd.Kind == types.ActionLight && ack.State == nil {
		ack.State = cmd.State
	}
	return ack, nil
}
