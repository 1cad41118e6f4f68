package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/plantwatch/plantwatch/internal/config"
	"github.com/plantwatch/plantwatch/internal/transport"
	"github.com/plantwatch/plantwatch/pkg/types"
)

// maxPayloadBytes caps how much of a provider response is read.
const maxPayloadBytes = 4 << 20

// Provider fetches one raw telemetry payload.
//
// Errors wrap types.ErrTransport when the provider could not be reached or
// answered with a failure status, and types.ErrMalformedInput when the
// response could not be decoded.
type Provider interface {
	Fetch(ctx context.Context) (map[string]any, error)
}

// New builds the Provider selected by cfg.Type.
func New(cfg config.TelemetryConfig) (Provider, error) {
	client, err := transport.NewHTTPClient(cfg.Auth, cfg.TLS, 0)
	if err != nil {
		return nil, fmt.Errorf("telemetry: build client: %w", err)
	}
	switch cfg.Type {
	case "", "http":
		return NewHTTPProvider(cfg.Endpoint, client), nil
	case "prometheus":
		return NewPrometheusProvider(cfg.Endpoint, client), nil
	default:
		return nil, fmt.Errorf("telemetry: unknown provider type %q", cfg.Type)
	}
}

// HTTPProvider reads the backend's JSON dashboard payload.
type HTTPProvider struct {
	endpoint string
	client   *http.Client
}

// NewHTTPProvider returns a provider that GETs endpoint with client. A nil
// client uses http.DefaultClient.
func NewHTTPProvider(endpoint string, client *http.Client) *HTTPProvider {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPProvider{endpoint: endpoint, client: client}
}

func (p *HTTPProvider) Fetch(ctx context.Context) (map[string]any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("telemetry: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("telemetry: get %s: %v: %w", p.endpoint, err, types.ErrTransport)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxPayloadBytes))
		return nil, fmt.Errorf("telemetry: get %s: unexpected status %d: %w", p.endpoint, resp.StatusCode, types.ErrTransport)
	}

	dec := json.NewDecoder(io.LimitReader(resp.Body, maxPayloadBytes))
	dec.UseNumber()
	var payload any
	if err := dec.Decode(&payload); err != nil {
		return nil, fmt.Errorf("telemetry: decode %s: %v: %w", p.endpoint, err, types.ErrMalformedInput)
	}
	m, ok := payload.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("telemetry: decode %s: payload is %T: %w", p.endpoint, payload, types.ErrMalformedInput)
	}
	return m, nil
}
