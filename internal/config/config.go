package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Default values applied when fields are absent from the config file.
const (
	DefaultPollInterval     = 10 * time.Second
	DefaultFetchTimeout     = 5 * time.Second
	DefaultActuateTimeout   = 5 * time.Second
	DefaultMaxVisible       = 3
	DefaultActionGrace      = time.Second
	DefaultHistorySize      = 10
	DefaultHistoryRetention = time.Hour
	DefaultHTTPPort         = 8080
	DefaultStreamInterval   = 5 * time.Second
	DefaultAPIKeyHeader     = "X-API-Key"
)

// Config is the top-level PlantWatch configuration.
type Config struct {
	Telemetry TelemetryConfig `yaml:"telemetry" toml:"telemetry"`
	Actuator  ActuatorConfig  `yaml:"actuator" toml:"actuator"`
	Alerts    AlertsConfig    `yaml:"alerts" toml:"alerts"`
	Server    ServerConfig    `yaml:"server" toml:"server"`
	Log       LogConfig       `yaml:"log" toml:"log"`
}

// TelemetryConfig describes the telemetry provider and the poll loop.
type TelemetryConfig struct {
	// Type is the provider kind: http (JSON dashboard payload) | prometheus
	// (sensor exporter text exposition).
	Type string `yaml:"type" toml:"type"`

	// Endpoint is the full URL polled each cycle.
	Endpoint string `yaml:"endpoint" toml:"endpoint"`

	// PollInterval controls how often the provider is polled.
	PollInterval Duration `yaml:"poll_interval" toml:"poll_interval"`

	// Timeout bounds a single fetch.
	Timeout Duration `yaml:"timeout" toml:"timeout"`

	Auth AuthConfig `yaml:"auth" toml:"auth"`
	TLS  TLSConfig  `yaml:"tls" toml:"tls"`

	// HistorySize is the number of recent snapshots kept in memory.
	HistorySize int `yaml:"history_size" toml:"history_size"`

	// HistoryRetention drops recent snapshots older than this.
	HistoryRetention Duration `yaml:"history_retention" toml:"history_retention"`
}

// ActuatorConfig describes the actuator service.
type ActuatorConfig struct {
	// Endpoint is the URL commands are POSTed to.
	Endpoint string `yaml:"endpoint" toml:"endpoint"`

	// Timeout bounds a single actuation request.
	Timeout Duration `yaml:"timeout" toml:"timeout"`

	Auth AuthConfig `yaml:"auth" toml:"auth"`
	TLS  TLSConfig  `yaml:"tls" toml:"tls"`
}

// AuthConfig specifies how PlantWatch authenticates to a remote endpoint.
type AuthConfig struct {
	// Mode is one of: mtls | apikey | bearer | basic | none.
	Mode string `yaml:"mode" toml:"mode"`

	// mTLS fields, used when Mode == "mtls".
	CertFile string `yaml:"cert_file" toml:"cert_file"`
	KeyFile  string `yaml:"key_file" toml:"key_file"`
	CAFile   string `yaml:"ca_file" toml:"ca_file"`

	// Header is the HTTP header carrying the API key when Mode == "apikey".
	Header string `yaml:"header" toml:"header"`
	// KeyEnv is the name of the environment variable that holds the key value.
	KeyEnv string `yaml:"key_env" toml:"key_env"`

	// TokenEnv holds the bearer token when Mode == "bearer".
	TokenEnv string `yaml:"token_env" toml:"token_env"`

	// Username and PasswordEnv are used when Mode == "basic".
	Username    string `yaml:"username" toml:"username"`
	PasswordEnv string `yaml:"password_env" toml:"password_env"`
}

// Key returns the API key value resolved from the environment.
// Returns empty string if KeyEnv is unset or the variable is not found.
func (a AuthConfig) Key() string {
	return lookupEnv(a.KeyEnv)
}

// Token returns the bearer token value resolved from the environment.
func (a AuthConfig) Token() string {
	return lookupEnv(a.TokenEnv)
}

// Password returns the basic-auth password resolved from the environment.
func (a AuthConfig) Password() string {
	return lookupEnv(a.PasswordEnv)
}

// TLSConfig holds TLS dial options.
type TLSConfig struct {
	// InsecureSkipVerify disables TLS certificate verification.
	// Only use this for internal CAs in development environments.
	InsecureSkipVerify bool `yaml:"insecure_skip_verify" toml:"insecure_skip_verify"`
}

// AlertsConfig holds display and delivery settings for alerts.
type AlertsConfig struct {
	// MaxVisible caps the number of alerts returned to callers.
	MaxVisible int `yaml:"max_visible" toml:"max_visible"`

	// ActionGrace delays dismissal of an alert after its action succeeded.
	ActionGrace Duration `yaml:"action_grace" toml:"action_grace"`

	Webhooks []WebhookConfig `yaml:"webhooks" toml:"webhooks"`
	NATS     NATSConfig      `yaml:"nats" toml:"nats"`
}

// WebhookConfig defines one webhook delivery target.
type WebhookConfig struct {
	// Type is one of: teams | slack | http.
	Type string `yaml:"type" toml:"type"`

	// URLEnv is the name of the environment variable holding the webhook URL.
	URLEnv string `yaml:"url_env" toml:"url_env"`

	// MinSeverity filters deliveries: critical | warning | info | success.
	// Empty delivers everything.
	MinSeverity string `yaml:"min_severity" toml:"min_severity"`
}

// URL returns the webhook URL resolved from the environment.
func (w WebhookConfig) URL() string {
	return lookupEnv(w.URLEnv)
}

// NATSConfig enables publishing surfaced alerts to a NATS subject.
type NATSConfig struct {
	URL     string `yaml:"url" toml:"url"`
	Subject string `yaml:"subject" toml:"subject"`
}

// Enabled reports whether a NATS sink is configured.
func (n NATSConfig) Enabled() bool { return n.URL != "" }

// ServerConfig holds HTTP API settings.
type ServerConfig struct {
	// HTTPPort is the port the REST API, WebSocket stream and /metrics share.
	HTTPPort int `yaml:"http_port" toml:"http_port"`

	// StreamInterval controls how often the WebSocket hub pushes state.
	StreamInterval Duration `yaml:"stream_interval" toml:"stream_interval"`

	Auth ServerAuthConfig `yaml:"auth" toml:"auth"`
}

// ServerAuthConfig configures REST API authentication.
type ServerAuthConfig struct {
	// Mode is one of: apikey | none.
	Mode string `yaml:"mode" toml:"mode"`

	// Header is the request header carrying the key. Defaults to X-API-Key.
	Header string `yaml:"header" toml:"header"`

	// KeyEnv is the name of the environment variable holding the expected API key.
	KeyEnv string `yaml:"key_env" toml:"key_env"`
}

// Key returns the server API key resolved from the environment.
func (a ServerAuthConfig) Key() string {
	return lookupEnv(a.KeyEnv)
}

// EffectiveHeader returns Header or the default API key header.
func (a ServerAuthConfig) EffectiveHeader() string {
	if a.Header == "" {
		return DefaultAPIKeyHeader
	}
	return a.Header
}

// LogConfig configures the slog handler.
type LogConfig struct {
	// Level is one of: debug | info | warn | error.
	Level string `yaml:"level" toml:"level"`

	// Format is one of: json | text.
	Format string `yaml:"format" toml:"format"`
}

// Load reads and parses the config file at path. Files ending in ".toml" are
// decoded as TOML, everything else as YAML. Missing optional fields are
// filled with defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read file: %w", err)
	}

	cfg := defaults()
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse toml: %w", err)
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse yaml: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	return cfg, nil
}

// defaults returns a Config pre-populated with default values.
func defaults() *Config {
	return &Config{
		Telemetry: TelemetryConfig{
			Type:             "http",
			PollInterval:     Duration(DefaultPollInterval),
			Timeout:          Duration(DefaultFetchTimeout),
			HistorySize:      DefaultHistorySize,
			HistoryRetention: Duration(DefaultHistoryRetention),
		},
		Actuator: ActuatorConfig{
			Timeout: Duration(DefaultActuateTimeout),
		},
		Alerts: AlertsConfig{
			MaxVisible:  DefaultMaxVisible,
			ActionGrace: Duration(DefaultActionGrace),
		},
		Server: ServerConfig{
			HTTPPort:       DefaultHTTPPort,
			StreamInterval: Duration(DefaultStreamInterval),
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// validate checks required fields and structural constraints.
func validate(cfg *Config) error {
	t := cfg.Telemetry
	if t.Endpoint == "" {
		return fmt.Errorf("telemetry.endpoint is required")
	}
	switch t.Type {
	case "http", "prometheus":
	default:
		return fmt.Errorf("telemetry.type: unknown type %q", t.Type)
	}
	if t.PollInterval <= 0 {
		return fmt.Errorf("telemetry.poll_interval must be positive")
	}
	if t.Timeout <= 0 {
		return fmt.Errorf("telemetry.timeout must be positive")
	}
	if t.HistorySize <= 0 {
		return fmt.Errorf("telemetry.history_size must be positive")
	}
	if err := validateAuth("telemetry.auth", t.Auth); err != nil {
		return err
	}

	if cfg.Actuator.Endpoint == "" {
		return fmt.Errorf("actuator.endpoint is required")
	}
	if cfg.Actuator.Timeout <= 0 {
		return fmt.Errorf("actuator.timeout must be positive")
	}
	if err := validateAuth("actuator.auth", cfg.Actuator.Auth); err != nil {
		return err
	}

	if cfg.Alerts.MaxVisible <= 0 {
		return fmt.Errorf("alerts.max_visible must be positive")
	}
	if cfg.Alerts.ActionGrace < 0 {
		return fmt.Errorf("alerts.action_grace must not be negative")
	}
	for i, wh := range cfg.Alerts.Webhooks {
		switch wh.Type {
		case "slack", "teams", "http":
		default:
			return fmt.Errorf("alerts.webhooks[%d]: unknown type %q", i, wh.Type)
		}
		switch wh.MinSeverity {
		case "", "critical", "warning", "info", "success":
		default:
			return fmt.Errorf("alerts.webhooks[%d]: unknown min_severity %q", i, wh.MinSeverity)
		}
	}
	if cfg.Alerts.NATS.Enabled() && cfg.Alerts.NATS.Subject == "" {
		return fmt.Errorf("alerts.nats.subject is required when alerts.nats.url is set")
	}

	if cfg.Server.HTTPPort <= 0 || cfg.Server.HTTPPort > 65535 {
		return fmt.Errorf("server.http_port %d out of range", cfg.Server.HTTPPort)
	}
	if cfg.Server.StreamInterval <= 0 {
		return fmt.Errorf("server.stream_interval must be positive")
	}
	switch cfg.Server.Auth.Mode {
	case "apikey", "none", "":
	default:
		return fmt.Errorf("server.auth: unknown mode %q", cfg.Server.Auth.Mode)
	}

	switch strings.ToLower(cfg.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level: unknown level %q", cfg.Log.Level)
	}
	switch cfg.Log.Format {
	case "json", "text":
	default:
		return fmt.Errorf("log.format: unknown format %q", cfg.Log.Format)
	}
	return nil
}

func validateAuth(field string, a AuthConfig) error {
	switch a.Mode {
	case "mtls", "apikey", "bearer", "basic", "none", "":
	default:
		return fmt.Errorf("%s: unknown mode %q", field, a.Mode)
	}
	if a.Mode == "mtls" && (a.CertFile == "" || a.KeyFile == "") {
		return fmt.Errorf("%s: cert_file and key_file are required for mtls", field)
	}
	if a.Mode == "apikey" && a.Header == "" {
		return fmt.Errorf("%s: header is required for apikey", field)
	}
	return nil
}

func lookupEnv(name string) string {
	if name == "" {
		return ""
	}
	return os.Getenv(name)
}
