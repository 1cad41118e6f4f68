package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/plantwatch/plantwatch/internal/alertstate"
	"github.com/plantwatch/plantwatch/internal/clock"
	"github.com/plantwatch/plantwatch/internal/history"
	"github.com/plantwatch/plantwatch/internal/rules"
	"github.com/plantwatch/plantwatch/pkg/types"
)

var (
	// ErrUnknownAlert is returned for an id that is not an active alert.
	ErrUnknownAlert = errors.New("unknown alert")

	// ErrNotActionable is returned when triggering an alert without an action.
	ErrNotActionable = errors.New("alert has no action")

	// ErrStopped is returned when an actuation completes after Stop. The
	// command reached the actuator but its result is not recorded.
	ErrStopped = errors.New("engine stopped")
)

// Source publishes snapshots. *telemetry.Source satisfies it.
type Source interface {
	Run(ctx context.Context)
	OnPublish(fn func(types.Snapshot))
}

// Dispatcher sends actuator commands. *actuator.Dispatcher satisfies it.
type Dispatcher interface {
	Dispatch(ctx context.Context, cmd types.Command) (types.Ack, error)
}

// Option configures an Engine.
type Option func(*Engine)

// WithRules replaces the default rule table.
func WithRules(table []rules.Rule) Option {
	return func(e *Engine) { e.table = table }
}

// WithClock sets the clock used to stamp alerts.
func WithClock(c clock.Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// WithHistory records every evaluated snapshot in h.
func WithHistory(h *history.Store) Option {
	return func(e *Engine) { e.history = h }
}

// OnChange registers a callback invoked, outside the engine lock, whenever
// the alert view may have changed.
func OnChange(fn func(types.View)) Option {
	return func(e *Engine) { e.onChange = append(e.onChange, fn) }
}

// OnSnapshot registers a callback invoked with every evaluated snapshot.
func OnSnapshot(fn func(types.Snapshot)) Option {
	return func(e *Engine) { e.onSnapshot = append(e.onSnapshot, fn) }
}

// Engine ties the telemetry source to the alert set and the actuator.
type Engine struct {
	src        Source
	disp       Dispatcher
	alerts     *alertstate.Manager
	table      []rules.Rule
	clock      clock.Clock
	history    *history.Store
	onChange   []func(types.View)
	onSnapshot []func(types.Snapshot)

	evalMu sync.Mutex // one snapshot evaluated at a time

	mu         sync.RWMutex
	latest     types.Snapshot
	hasLatest  bool
	lightOn    bool
	lightKnown bool
	stopped    bool
}

// New returns an Engine evaluating snapshots from src. It registers itself as
// src's publish callback.
func New(src Source, disp Dispatcher, alerts *alertstate.Manager, opts ...Option) *Engine {
	e := &Engine{
		src:    src,
		disp:   disp,
		alerts: alerts,
		table:  rules.Default,
		clock:  clock.Real{},
	}
	for _, o := range opts {
		o(e)
	}
	src.OnPublish(e.Ingest)
	return e
}

// Run drives the telemetry source until ctx is cancelled, then stops the
// engine.
func (e *Engine) Run(ctx context.Context) {
	if e.history != nil {
		go e.history.Run(ctx)
	}
	e.src.Run(ctx)
	e.Stop()
}

// Stop cancels pending alert timers. Snapshots and actuation results that
// arrive afterwards are discarded.
func (e *Engine) Stop() {
	e.mu.Lock()
	e.stopped = true
	e.mu.Unlock()
	e.alerts.Stop()
}

// Ingest evaluates one snapshot and reconciles the alert set. It is the
// source's publish callback and is exported for tests and replay.
func (e *Engine) Ingest(s types.Snapshot) {
	e.evalMu.Lock()
	if e.isStopped() {
		e.evalMu.Unlock()
		return
	}

	e.mu.Lock()
	e.latest = s
	e.hasLatest = true
	e.mu.Unlock()
	if e.history != nil {
		e.history.Put(s)
	}

	candidates := rules.EvaluateWith(e.table, s, e.clock.Now())
	view := e.alerts.Reconcile(candidates)
	e.evalMu.Unlock()

	for _, fn := range e.onSnapshot {
		fn(s)
	}
	slog.Debug("engine: snapshot evaluated",
		"candidates", len(candidates),
		"visible", len(view.Alerts),
		"overflow", view.Overflow,
	)
	e.changed(view)
}

// CurrentAlerts returns the alerts to display, in priority order.
func (e *Engine) CurrentAlerts() types.View {
	return e.alerts.Current()
}

// ActiveAlerts returns every non-dismissed alert, including overflow.
func (e *Engine) ActiveAlerts() []types.Alert {
	return e.alerts.Active()
}

// Dismiss hides the alert with the given id until its condition clears.
// Dismissing a persistent alert is a no-op.
func (e *Engine) Dismiss(id string) error {
	if _, ok := e.alerts.Lookup(id); !ok {
		return fmt.Errorf("engine: dismiss %q: %w", id, ErrUnknownAlert)
	}
	if e.alerts.Dismiss(id) {
		slog.Info("engine: alert dismissed", "id", id)
		e.changed(e.alerts.Current())
	}
	return nil
}

// TriggerAction runs the action attached to the alert with the given id.
// The light action toggles the grow light relative to the last acknowledged
// state. On success every active alert with the same action is dismissed
// after the grace delay.
func (e *Engine) TriggerAction(ctx context.Context, id string) (types.Ack, error) {
	a, ok := e.alerts.Lookup(id)
	if !ok {
		return types.Ack{}, fmt.Errorf("engine: action %q: %w", id, ErrUnknownAlert)
	}
	if !a.Action.Actionable() {
		return types.Ack{}, fmt.Errorf("engine: action %q: %w", id, ErrNotActionable)
	}

	var cmd types.Command
	switch a.Action {
	case types.ActionWater:
		cmd = types.WaterCommand()
	case types.ActionLight:
		on, _ := e.LightState()
		cmd = types.LightCommand(!on)
	}
	return e.dispatch(ctx, cmd)
}

// Water forces a watering cycle.
func (e *Engine) Water(ctx context.Context) (types.Ack, error) {
	return e.dispatch(ctx, types.WaterCommand())
}

// SetLight switches the grow light to on.
func (e *Engine) SetLight(ctx context.Context, on bool) (types.Ack, error) {
	return e.dispatch(ctx, types.LightCommand(on))
}

// LightState returns the last acknowledged grow light state and whether any
// light command has been acknowledged yet.
func (e *Engine) LightState() (on, known bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.lightOn, e.lightKnown
}

// LatestSnapshot returns the most recently evaluated snapshot, or the zero
// Snapshot before the first one.
func (e *Engine) LatestSnapshot() types.Snapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.latest
}

// HasSnapshot reports whether any snapshot has been evaluated.
func (e *Engine) HasSnapshot() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.hasLatest
}

// Recent returns the recent snapshot window, oldest first.
func (e *Engine) Recent() []types.Snapshot {
	if e.history == nil {
		return []types.Snapshot{}
	}
	return e.history.Snapshots()
}

func (e *Engine) dispatch(ctx context.Context, cmd types.Command) (types.Ack, error) {
	ack, err := e.disp.Dispatch(ctx, cmd)
	if err != nil {
		return types.Ack{}, err
	}

	e.mu.Lock()
	if e.stopped {
		e.mu.Unlock()
		slog.Debug("engine: actuation result discarded after stop", "action", cmd.Kind)
		return ack, fmt.Errorf("engine: %s: %w", cmd.Kind, ErrStopped)
	}
	if cmd.Kind == types.ActionLight {
		state := cmd.State
		if ack.State != nil {
			state = ack.State
		}
		e.lightOn = *state
		e.lightKnown = true
	}
	e.mu.Unlock()

	for _, a := range e.alerts.Active() {
		if a.Action == cmd.Kind {
			e.alerts.RecordAction(a.ID)
		}
	}
	return ack, nil
}

func (e *Engine) isStopped() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.stopped
}

func (e *Engine) changed(v types.View) {
	for _, fn := range e.onChange {
		fn(v)
	}
}
