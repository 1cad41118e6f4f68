package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const minimal = `
telemetry:
  endpoint: "http://localhost:5000/dashboard_data"
actuator:
  endpoint: "http://localhost:5000/actuate"
`

func TestLoad_Valid(t *testing.T) {
	yaml := `
telemetry:
  type: prometheus
  endpoint: "http://esp32.local/metrics"
  poll_interval: 15s
  timeout: 2s
  history_size: 20
  auth:
    mode: bearer
    token_env: PLANT_TOKEN
actuator:
  endpoint: "http://localhost:5000/actuate"
  timeout: 3s
alerts:
  max_visible: 5
  action_grace: 500ms
  webhooks:
    - type: slack
      url_env: SLACK_URL
      min_severity: warning
  nats:
    url: nats://localhost:4222
    subject: plant.alerts
server:
  http_port: 9090
  stream_interval: 2s
  auth:
    mode: apikey
    key_env: PLANT_API_KEY
log:
  level: debug
  format: text
`
	cfg := loadFromString(t, "config.yaml", yaml)

	if cfg.Telemetry.Type != "prometheus" {
		t.Errorf("telemetry.type: got %q", cfg.Telemetry.Type)
	}
	if cfg.Telemetry.PollInterval.Std() != 15*time.Second {
		t.Errorf("poll_interval: got %v", cfg.Telemetry.PollInterval)
	}
	if cfg.Telemetry.Timeout.Std() != 2*time.Second {
		t.Errorf("timeout: got %v", cfg.Telemetry.Timeout)
	}
	if cfg.Telemetry.HistorySize != 20 {
		t.Errorf("history_size: got %d", cfg.Telemetry.HistorySize)
	}
	if cfg.Actuator.Timeout.Std() != 3*time.Second {
		t.Errorf("actuator.timeout: got %v", cfg.Actuator.Timeout)
	}
	if cfg.Alerts.MaxVisible != 5 {
		t.Errorf("max_visible: got %d", cfg.Alerts.MaxVisible)
	}
	if cfg.Alerts.ActionGrace.Std() != 500*time.Millisecond {
		t.Errorf("action_grace: got %v", cfg.Alerts.ActionGrace)
	}
	if len(cfg.Alerts.Webhooks) != 1 || cfg.Alerts.Webhooks[0].MinSeverity != "warning" {
		t.Errorf("webhooks: got %+v", cfg.Alerts.Webhooks)
	}
	if !cfg.Alerts.NATS.Enabled() || cfg.Alerts.NATS.Subject != "plant.alerts" {
		t.Errorf("nats: got %+v", cfg.Alerts.NATS)
	}
	if cfg.Server.HTTPPort != 9090 {
		t.Errorf("http_port: got %d", cfg.Server.HTTPPort)
	}
	if cfg.Server.Auth.EffectiveHeader() != DefaultAPIKeyHeader {
		t.Errorf("effective header: got %q", cfg.Server.Auth.EffectiveHeader())
	}
	if cfg.Log.Level != "debug" || cfg.Log.Format != "text" {
		t.Errorf("log: got %+v", cfg.Log)
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg := loadFromString(t, "config.yaml", minimal)

	if cfg.Telemetry.Type != "http" {
		t.Errorf("default type: got %q, want http", cfg.Telemetry.Type)
	}
	if cfg.Telemetry.PollInterval.Std() != DefaultPollInterval {
		t.Errorf("default poll_interval: got %v, want %v", cfg.Telemetry.PollInterval, DefaultPollInterval)
	}
	if cfg.Telemetry.Timeout.Std() != DefaultFetchTimeout {
		t.Errorf("default timeout: got %v, want %v", cfg.Telemetry.Timeout, DefaultFetchTimeout)
	}
	if cfg.Actuator.Timeout.Std() != DefaultActuateTimeout {
		t.Errorf("default actuator timeout: got %v", cfg.Actuator.Timeout)
	}
	if cfg.Alerts.MaxVisible != DefaultMaxVisible {
		t.Errorf("default max_visible: got %d", cfg.Alerts.MaxVisible)
	}
	if cfg.Alerts.ActionGrace.Std() != DefaultActionGrace {
		t.Errorf("default action_grace: got %v", cfg.Alerts.ActionGrace)
	}
	if cfg.Server.HTTPPort != DefaultHTTPPort {
		t.Errorf("default http_port: got %d", cfg.Server.HTTPPort)
	}
	if cfg.Alerts.NATS.Enabled() {
		t.Error("nats enabled without url")
	}
}

func TestLoad_TOML(t *testing.T) {
	doc := `
[telemetry]
type = "http"
endpoint = "http://localhost:5000/dashboard_data"
poll_interval = "20s"

[actuator]
endpoint = "http://localhost:5000/actuate"
timeout = "1s"

[[alerts.webhooks]]
type = "teams"
url_env = "TEAMS_URL"

[server]
http_port = 8181
`
	cfg := loadFromString(t, "config.toml", doc)

	if cfg.Telemetry.PollInterval.Std() != 20*time.Second {
		t.Errorf("poll_interval: got %v", cfg.Telemetry.PollInterval)
	}
	if cfg.Actuator.Timeout.Std() != time.Second {
		t.Errorf("actuator.timeout: got %v", cfg.Actuator.Timeout)
	}
	if len(cfg.Alerts.Webhooks) != 1 || cfg.Alerts.Webhooks[0].Type != "teams" {
		t.Errorf("webhooks: got %+v", cfg.Alerts.Webhooks)
	}
	if cfg.Server.HTTPPort != 8181 {
		t.Errorf("http_port: got %d", cfg.Server.HTTPPort)
	}
	// Untouched sections keep their defaults.
	if cfg.Telemetry.Timeout.Std() != DefaultFetchTimeout {
		t.Errorf("timeout: got %v, want default", cfg.Telemetry.Timeout)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"missing telemetry endpoint", `
actuator:
  endpoint: "http://x/actuate"
`, "telemetry.endpoint"},
		{"missing actuator endpoint", `
telemetry:
  endpoint: "http://x/data"
`, "actuator.endpoint"},
		{"unknown telemetry type", `
telemetry:
  type: mqtt
  endpoint: "http://x/data"
actuator:
  endpoint: "http://x/actuate"
`, "telemetry.type"},
		{"bad duration", `
telemetry:
  endpoint: "http://x/data"
  poll_interval: soon
actuator:
  endpoint: "http://x/actuate"
`, "parse yaml"},
		{"unknown auth mode", minimal + `
server:
  auth:
    mode: oauth
`, "server.auth"},
		{"unknown webhook type", minimal + `
alerts:
  webhooks:
    - type: pager
`, "webhooks[0]"},
		{"nats without subject", minimal + `
alerts:
  nats:
    url: nats://localhost:4222
`, "alerts.nats.subject"},
		{"apikey without header", `
telemetry:
  endpoint: "http://x/data"
  auth:
    mode: apikey
actuator:
  endpoint: "http://x/actuate"
`, "header is required"},
		{"bad log level", minimal + `
log:
  level: loud
`, "log.level"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := loadStringErr(t, "config.yaml", tc.content)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if tc.wantErr != "" && !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("error %q does not mention %q", err, tc.wantErr)
			}
		})
	}
}

func TestLoad_FileNotFound(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	if err == nil {
		t.Fatal("expected error for missing file, got nil")
	}
}

func TestAuthConfig_EnvResolution(t *testing.T) {
	t.Setenv("TEST_PLANT_KEY", "secret-key")
	t.Setenv("TEST_PLANT_TOKEN", "tok")
	t.Setenv("TEST_PLANT_PASS", "pw")

	a := AuthConfig{KeyEnv: "TEST_PLANT_KEY", TokenEnv: "TEST_PLANT_TOKEN", PasswordEnv: "TEST_PLANT_PASS"}
	if a.Key() != "secret-key" {
		t.Errorf("Key(): got %q", a.Key())
	}
	if a.Token() != "tok" {
		t.Errorf("Token(): got %q", a.Token())
	}
	if a.Password() != "pw" {
		t.Errorf("Password(): got %q", a.Password())
	}
	if (AuthConfig{}).Key() != "" {
		t.Error("Key() with empty KeyEnv should be empty")
	}
}

func TestWatch_CallsOnChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(minimal), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changed := make(chan *Config, 4)
	go Watch(ctx, path, func(c *Config) { changed <- c }) //nolint:errcheck

	// Give the watcher time to register before writing.
	time.Sleep(100 * time.Millisecond)
	updated := minimal + `
log:
  level: debug
`
	if err := os.WriteFile(path, []byte(updated), 0o600); err != nil {
		t.Fatalf("rewrite config: %v", err)
	}

	select {
	case c := <-changed:
		if c.Log.Level != "debug" {
			t.Errorf("reloaded level: got %q, want debug", c.Log.Level)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("onChange not called after write")
	}
}

// loadFromString writes content to a temp file and calls Load, failing on error.
func loadFromString(t *testing.T, name, content string) *Config {
	t.Helper()
	cfg, err := loadStringErr(t, name, content)
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}
	return cfg
}

// loadStringErr writes content to a temp file and calls Load, returning any error.
func loadStringErr(t *testing.T, name, content string) (*Config, error) {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	return Load(path)
}
