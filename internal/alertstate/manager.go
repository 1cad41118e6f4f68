package alertstate

import (
	"log/slog"
	"sync"
	"time"

	"github.com/plantwatch/plantwatch/internal/clock"
	"github.com/plantwatch/plantwatch/pkg/types"
)

// Defaults applied when Options fields are zero.
const (
	DefaultMaxVisible  = 3
	DefaultActionGrace = time.Second
)

// Options configures a Manager.
type Options struct {
	// MaxVisible caps the number of alerts in a View.
	MaxVisible int

	// ActionGrace is the delay between a successful action and the dismissal
	// of the alert that triggered it.
	ActionGrace time.Duration

	Clock clock.Clock

	// OnSurface, if set, receives alerts that became visible. It is called
	// without the Manager lock held.
	OnSurface func([]types.Alert)
}

// Manager reconciles candidate alerts into the displayed set.
//
// All exported methods are safe for concurrent use.
type Manager struct {
	maxVisible int
	grace      time.Duration
	clock      clock.Clock
	onSurface  func([]types.Alert)

	mu          sync.Mutex
	candidates  []types.Alert // last Reconcile input, priority ordered
	dismissed   map[string]struct{}
	hideTimers  map[string]clock.Timer
	graceTimers map[string]clock.Timer
	visible     map[string]struct{}
	view        types.View
	stopped     bool
}

// New returns a Manager with no alerts.
func New(opts Options) *Manager {
	if opts.MaxVisible <= 0 {
		opts.MaxVisible = DefaultMaxVisible
	}
	if opts.ActionGrace <= 0 {
		opts.ActionGrace = DefaultActionGrace
	}
	if opts.Clock == nil {
		opts.Clock = clock.Real{}
	}
	return &Manager{
		maxVisible:  opts.MaxVisible,
		grace:       opts.ActionGrace,
		clock:       opts.Clock,
		onSurface:   opts.OnSurface,
		dismissed:   make(map[string]struct{}),
		hideTimers:  make(map[string]clock.Timer),
		graceTimers: make(map[string]clock.Timer),
		visible:     make(map[string]struct{}),
		view:        types.View{Alerts: []types.Alert{}},
	}
}

// Reconcile replaces the candidate set and returns the new View.
//
// candidates must already be in priority order. Ids that were dismissed but
// are no longer candidates have their dismissal cleared, so the alert can
// fire fresh in a later episode. Newly surfacing candidates with an
// auto-hide delay get a timer.
func (m *Manager) Reconcile(candidates []types.Alert) types.View {
	m.mu.Lock()

	present := make(map[string]struct{}, len(candidates))
	for _, a := range candidates {
		present[a.ID] = struct{}{}
	}
	previous := make(map[string]struct{}, len(m.candidates))
	for _, a := range m.candidates {
		previous[a.ID] = struct{}{}
	}

	// The episode ended for anything that stopped firing.
	for id := range m.dismissed {
		if _, ok := present[id]; !ok {
			delete(m.dismissed, id)
		}
	}
	for id, t := range m.hideTimers {
		if _, ok := present[id]; !ok {
			t.Stop()
			delete(m.hideTimers, id)
		}
	}
	for id, t := range m.graceTimers {
		if _, ok := present[id]; !ok {
			t.Stop()
			delete(m.graceTimers, id)
		}
	}

	m.candidates = append(m.candidates[:0:0], candidates...)

	if !m.stopped {
		for _, a := range candidates {
			if a.AutoHideAfter <= 0 {
				continue
			}
			if _, gone := m.dismissed[a.ID]; gone {
				continue
			}
			_, wasCandidate := previous[a.ID]
			_, armed := m.hideTimers[a.ID]
			if wasCandidate && armed {
				continue
			}
			m.armHide(a.ID, a.AutoHideAfter)
		}
	}

	surfaced := m.rebuildLocked()
	view := m.copyView()
	m.mu.Unlock()

	m.notify(surfaced)
	return view
}

// Current returns the View produced by the latest reconciliation or timer.
func (m *Manager) Current() types.View {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.copyView()
}

// Active returns the non-dismissed candidates, uncapped.
func (m *Manager) Active() []types.Alert {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]types.Alert, 0, len(m.candidates))
	for _, a := range m.candidates {
		if _, gone := m.dismissed[a.ID]; !gone {
			out = append(out, a)
		}
	}
	return out
}

// Lookup returns the active (non-dismissed) candidate with the given id.
func (m *Manager) Lookup(id string) (types.Alert, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, gone := m.dismissed[id]; gone {
		return types.Alert{}, false
	}
	return m.findLocked(id)
}

// Dismiss hides a non-persistent alert until its condition clears.
// It reports whether id is now dismissed; persistent and unknown ids are a
// no-op and return false. Calling Dismiss twice is the same as once.
func (m *Manager) Dismiss(id string) bool {
	m.mu.Lock()
	a, ok := m.findLocked(id)
	if !ok || a.Persistent {
		m.mu.Unlock()
		return false
	}
	surfaced := m.dismissLocked(id)
	m.mu.Unlock()

	m.notify(surfaced)
	return true
}

// RecordAction schedules the dismissal of a non-persistent alert after the
// grace delay, once its action has been acknowledged.
func (m *Manager) RecordAction(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.findLocked(id)
	if !ok || a.Persistent || m.stopped {
		return
	}
	if t, ok := m.graceTimers[id]; ok {
		t.Stop()
	}
	var t clock.Timer
	t = m.clock.AfterFunc(m.grace, func() {
		m.fire(id, m.graceTimers, &t, "action grace elapsed")
	})
	m.graceTimers[id] = t
}

// Stop cancels every pending timer. Callbacks that race with Stop are ignored.
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopped = true
	for id, t := range m.hideTimers {
		t.Stop()
		delete(m.hideTimers, id)
	}
	for id, t := range m.graceTimers {
		t.Stop()
		delete(m.graceTimers, id)
	}
}

// PendingTimers returns the number of armed auto-hide and grace timers.
func (m *Manager) PendingTimers() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.hideTimers) + len(m.graceTimers)
}

// --- internal ---------------------------------------------------------------

func (m *Manager) armHide(id string, after time.Duration) {
	if t, ok := m.hideTimers[id]; ok {
		t.Stop()
	}
	var t clock.Timer
	t = m.clock.AfterFunc(after, func() {
		m.fire(id, m.hideTimers, &t, "auto-hide elapsed")
	})
	m.hideTimers[id] = t
}

// fire dismisses id on behalf of a timer. A timer that was replaced, stopped
// or outlived its episode finds a different entry in timers and does nothing.
// self is read under the lock because the callback can run before
// AfterFunc's result has been stored.
func (m *Manager) fire(id string, timers map[string]clock.Timer, self *clock.Timer, reason string) {
	m.mu.Lock()
	if m.stopped || timers[id] != *self {
		m.mu.Unlock()
		return
	}
	delete(timers, id)
	if _, ok := m.findLocked(id); !ok {
		m.mu.Unlock()
		return
	}
	surfaced := m.dismissLocked(id)
	m.mu.Unlock()

	slog.Debug("alertstate: alert dismissed", "id", id, "reason", reason)
	m.notify(surfaced)
}

func (m *Manager) dismissLocked(id string) []types.Alert {
	m.dismissed[id] = struct{}{}
	return m.rebuildLocked()
}

// rebuildLocked recomputes the view and returns alerts that became visible.
func (m *Manager) rebuildLocked() []types.Alert {
	shown := make([]types.Alert, 0, m.maxVisible)
	overflow := 0
	for _, a := range m.candidates {
		if _, gone := m.dismissed[a.ID]; gone {
			continue
		}
		if len(shown) < m.maxVisible {
			shown = append(shown, a)
		} else {
			overflow++
		}
	}

	var surfaced []types.Alert
	nowVisible := make(map[string]struct{}, len(shown))
	for _, a := range shown {
		nowVisible[a.ID] = struct{}{}
		if _, was := m.visible[a.ID]; !was {
			surfaced = append(surfaced, a)
		}
	}
	m.visible = nowVisible
	m.view = types.View{Alerts: shown, Overflow: overflow}
	return surfaced
}

func (m *Manager) findLocked(id string) (types.Alert, bool) {
	for _, a := range m.candidates {
		if a.ID == id {
			return a, true
		}
	}
	return types.Alert{}, false
}

func (m *Manager) copyView() types.View {
	alerts := make([]types.Alert, len(m.view.Alerts))
	copy(alerts, m.view.Alerts)
	return types.View{Alerts: alerts, Overflow: m.view.Overflow}
}

func (m *Manager) notify(surfaced []types.Alert) {
	if m.onSurface != nil && len(surfaced) > 0 {
		m.onSurface(surfaced)
	}
}
