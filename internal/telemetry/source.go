package telemetry

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/plantwatch/plantwatch/internal/clock"
	"github.com/plantwatch/plantwatch/pkg/types"
)

// Defaults applied when no option overrides them.
const (
	DefaultInterval = 10 * time.Second
	DefaultTimeout  = 5 * time.Second
)

// uptimeWindow is the number of recent poll outcomes tracked for uptime %.
const uptimeWindow = 20

// State is the Source's lifecycle state.
type State string

const (
	StateIdle              State = "idle"
	StateFetching          State = "fetching"
	StatePublished         State = "published"
	StateFallbackPublished State = "fallback_published"
)

// Status is a point-in-time view of the Source's health.
type Status struct {
	State               State     `json:"state"`
	LastSuccess         time.Time `json:"last_success,omitempty"`
	LastError           string    `json:"last_error,omitempty"`
	ConsecutiveFailures int       `json:"consecutive_failures"`
	UptimePct           float64   `json:"uptime_pct"`
	Polls               int       `json:"polls"`
}

// Outcome describes one completed poll. It is handed to the observer
// registered with WithObserver.
type Outcome struct {
	Err      error
	Fallback bool
	Duration time.Duration
}

// Option configures a Source.
type Option func(*Source)

// WithInterval sets the poll interval. Non-positive values are ignored.
func WithInterval(d time.Duration) Option {
	return func(s *Source) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithTimeout bounds each fetch. Non-positive values are ignored.
func WithTimeout(d time.Duration) Option {
	return func(s *Source) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithClock replaces the wall clock used for capture times.
func WithClock(c clock.Clock) Option {
	return func(s *Source) { s.clock = c }
}

// WithPublisher registers the callback every published snapshot is handed to.
func WithPublisher(fn func(types.Snapshot)) Option {
	return func(s *Source) { s.publish = fn }
}

// WithObserver registers a callback invoked after every poll.
func WithObserver(fn func(Outcome)) Option {
	return func(s *Source) { s.observe = fn }
}

// Source polls a Provider on a fixed interval and publishes one Snapshot per
// cycle. A failed fetch never stops the loop: the previous snapshot is
// republished, or Synthetic when nothing has been fetched yet.
type Source struct {
	provider Provider
	interval time.Duration
	timeout  time.Duration
	clock    clock.Clock
	publish  func(types.Snapshot)
	observe  func(Outcome)

	pollMu sync.Mutex // serializes Poll

	mu       sync.Mutex
	state    State
	last     types.Snapshot
	hasLast  bool
	lastOK   time.Time
	lastErr  string
	failures int
	polls    int
	history  []bool
}

// NewSource returns a Source reading from p.
func NewSource(p Provider, opts ...Option) *Source {
	s := &Source{
		provider: p,
		interval: DefaultInterval,
		timeout:  DefaultTimeout,
		clock:    clock.Real{},
		state:    StateIdle,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Interval returns the configured poll interval.
func (s *Source) Interval() time.Duration { return s.interval }

// Run polls immediately and then every interval until ctx is cancelled.
func (s *Source) Run(ctx context.Context) {
	s.Poll(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Poll(ctx)
		}
	}
}

// Poll runs one fetch → normalize → publish cycle and returns the published
// snapshot. Fetch and normalization failures are logged and counted, never
// returned.
func (s *Source) Poll(ctx context.Context) types.Snapshot {
	s.pollMu.Lock()
	defer s.pollMu.Unlock()

	s.setState(StateFetching)
	start := time.Now()

	snap, err := s.fetch(ctx)
	fallback := err != nil

	s.mu.Lock()
	s.polls++
	if len(s.history) >= uptimeWindow {
		s.history = s.history[1:]
	}
	s.history = append(s.history, !fallback)
	if fallback {
		s.failures++
		s.lastErr = err.Error()
		if s.hasLast {
			snap = s.last
		} else {
			snap = Synthetic(s.clock.Now())
		}
		s.state = StateFallbackPublished
	} else {
		s.failures = 0
		s.lastErr = ""
		s.lastOK = snap.CapturedAt
		s.last = snap
		s.hasLast = true
		s.state = StatePublished
	}
	failures := s.failures
	publish := s.publish
	s.mu.Unlock()

	if fallback {
		slog.Warn("telemetry: fetch failed, publishing fallback",
			"err", err,
			"consecutive_failures", failures,
		)
	} else {
		slog.Debug("telemetry: snapshot published",
			"soil_moisture", snap.SoilMoisture,
			"health_score", snap.HealthScore,
		)
	}

	if s.observe != nil {
		s.observe(Outcome{Err: err, Fallback: fallback, Duration: time.Since(start)})
	}
	if publish != nil {
		publish(snap)
	}
	return snap
}

func (s *Source) fetch(ctx context.Context) (types.Snapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	raw, err := s.provider.Fetch(ctx)
	if err != nil {
		return types.Snapshot{}, err
	}
	return Normalize(raw, s.clock.Now())
}

// OnPublish replaces the publish callback registered with WithPublisher.
func (s *Source) OnPublish(fn func(types.Snapshot)) {
	s.mu.Lock()
	s.publish = fn
	s.mu.Unlock()
}

func (s *Source) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

// Latest returns the last successfully fetched snapshot, if any.
func (s *Source) Latest() (types.Snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last, s.hasLast
}

// Status returns the Source's current health.
func (s *Source) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Status{
		State:               s.state,
		LastSuccess:         s.lastOK,
		LastError:           s.lastErr,
		ConsecutiveFailures: s.failures,
		UptimePct:           s.uptimePct(),
		Polls:               s.polls,
	}
}

func (s *Source) uptimePct() float64 {
	if len(s.history) == 0 {
		return 100 // assume up before first observation
	}
	var ok int
	for _, up := range s.history {
		if up {
			ok++
		}
	}
	return float64(ok) / float64(len(s.history)) * 100
}
