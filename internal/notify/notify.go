package notify

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/plantwatch/plantwatch/internal/config"
	"github.com/plantwatch/plantwatch/pkg/types"
)

// deliveryTimeout bounds one delivery to one sink.
const deliveryTimeout = 10 * time.Second

// Sink delivers one alert to one external channel.
type Sink interface {
	Name() string
	Notify(ctx context.Context, a types.Alert) error
}

// Notifier delivers surfaced alerts to every sink.
//
// Notifier is safe for concurrent use.
type Notifier struct {
	sinks   []Sink
	closers []func()
	wg      sync.WaitGroup
}

// NewNotifier returns a Notifier for the given sinks.
func NewNotifier(sinks ...Sink) *Notifier {
	return &Notifier{sinks: sinks}
}

// New builds a Notifier from the alert configuration. Webhooks without a
// resolvable URL are skipped with a warning.
func New(cfg config.AlertsConfig) (*Notifier, error) {
	client := &http.Client{Timeout: deliveryTimeout}
	n := &Notifier{}
	for _, wh := range cfg.Webhooks {
		url := wh.URL()
		if url == "" {
			slog.Warn("notify: webhook url not set, skipping", "type", wh.Type, "url_env", wh.URLEnv)
			continue
		}
		n.sinks = append(n.sinks, NewWebhook(wh.Type, url, types.Severity(wh.MinSeverity), client))
	}
	if cfg.NATS.Enabled() {
		pub, err := DialNATS(cfg.NATS.URL, cfg.NATS.Subject)
		if err != nil {
			return nil, fmt.Errorf("notify: %w", err)
		}
		n.sinks = append(n.sinks, pub)
		n.closers = append(n.closers, pub.Close)
	}
	return n, nil
}

// Len returns the number of configured sinks.
func (n *Notifier) Len() int { return len(n.sinks) }

// Surface delivers each alert to every sink in the background. It has the
// signature of the alert manager's OnSurface hook.
func (n *Notifier) Surface(alerts []types.Alert) {
	for _, a := range alerts {
		for _, s := range n.sinks {
			n.wg.Add(1)
			go func(s Sink, a types.Alert) {
				defer n.wg.Done()
				n.deliver(s, a)
			}(s, a)
		}
	}
}

// Wait blocks until every in-progress delivery has finished.
func (n *Notifier) Wait() { n.wg.Wait() }

// Close waits for pending deliveries and releases sink connections.
func (n *Notifier) Close() {
	n.wg.Wait()
	for _, c := range n.closers {
		c()
	}
}

func (n *Notifier) deliver(s Sink, a types.Alert) {
	ctx, cancel := context.WithTimeout(context.Background(), deliveryTimeout)
	defer cancel()

	if err := s.Notify(ctx, a); err != nil {
		slog.Error("notify: delivery failed",
			"sink", s.Name(),
			"alert", a.ID,
			"err", err,
		)
		return
	}
	slog.Debug("notify: delivered", "sink", s.Name(), "alert", a.ID)
}

// severityRank orders severities for MinSeverity filtering.
func severityRank(s types.Severity) int {
	switch s {
	case types.SeverityCritical:
		return 3
	case types.SeverityWarning:
		return 2
	case types.SeverityInfo:
		return 1
	default:
		return 0
	}
}

// atLeast reports whether s passes a min filter. An empty minimum passes all.
func atLeast(s, minSev types.Severity) bool {
	if minSev == "" {
		return true
	}
	return severityRank(s) >= severityRank(minSev)
}
