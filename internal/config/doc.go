// Package config loads and watches the PlantWatch configuration file.
//
// Top-level types:
//   - Config{Telemetry, Actuator, Alerts, Server, Log}: full config tree
//   - TelemetryConfig: provider type (http|prometheus), endpoint, poll
//     interval, fetch timeout, auth, tls, recent-history window
//   - ActuatorConfig: actuate endpoint, timeout, auth, tls
//   - AuthConfig: mode (mtls|apikey|bearer|basic|none); secrets are resolved
//     from environment variables by Key(), Token() and Password()
//   - AlertsConfig: display cap, action grace delay, webhooks, NATS sink
//   - ServerConfig: HTTP port, websocket push interval, API key auth
//   - LogConfig: level and format of the slog handler
//
// Load(path) reads YAML, or TOML when path ends in ".toml", applies defaults
// (10s poll, 5s timeouts, 3 visible alerts, 1s grace, port 8080), then
// validates required fields and enums.
//
// Watch(ctx, path, onChange) uses fsnotify to detect file changes and calls
// onChange with the newly parsed Config.
package config
