package actuator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/plantwatch/plantwatch/pkg/types"
)

// DefaultTimeout bounds a single command when no option overrides it.
const DefaultTimeout = 5 * time.Second

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithTimeout bounds each command. Non-positive values are ignored.
func WithTimeout(d time.Duration) Option {
	return func(disp *Dispatcher) {
		if d > 0 {
			disp.timeout = d
		}
	}
}

// WithObserver registers a callback invoked after every dispatch that reached
// the actuator.
func WithObserver(fn func(kind types.ActionKind, err error, took time.Duration)) Option {
	return func(d *Dispatcher) { d.observe = fn }
}

// Dispatcher guards an Actuator so only one command per kind is in flight.
type Dispatcher struct {
	actuator Actuator
	timeout  time.Duration
	observe  func(types.ActionKind, error, time.Duration)

	mu       sync.Mutex
	inFlight map[types.ActionKind]bool
}

// NewDispatcher returns a Dispatcher in front of a.
func NewDispatcher(a Actuator, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		actuator: a,
		timeout:  DefaultTimeout,
		inFlight: make(map[types.ActionKind]bool),
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

// Dispatch sends cmd and waits for the acknowledgement.
//
// It returns types.ErrAlreadyInFlight without contacting the actuator when a
// command of the same kind is still pending. Errors from the actuator are
// wrapped so that errors.Is matches types.ErrTransport or types.ErrActuation.
func (d *Dispatcher) Dispatch(ctx context.Context, cmd types.Command) (types.Ack, error) {
	if !cmd.Kind.Actionable() {
		return types.Ack{}, fmt.Errorf("actuator: unsupported action %q: %w", cmd.Kind, types.ErrActuation)
	}
	if cmd.Kind == types.ActionWater {
		cmd.Force = true
	}
	if cmd.Kind == types.ActionLight && cmd.State == nil {
		return types.Ack{}, fmt.Errorf("actuator: light command without target state: %w", types.ErrActuation)
	}

	if !d.acquire(cmd.Kind) {
		return types.Ack{}, fmt.Errorf("actuator: %s: %w", cmd.Kind, types.ErrAlreadyInFlight)
	}
	defer d.release(cmd.Kind)

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	start := time.Now()
	ack, err := d.actuator.Actuate(ctx, cmd)
	err = classify(cmd.Kind, err)
	if d.observe != nil {
		d.observe(cmd.Kind, err, time.Since(start))
	}
	if err != nil {
		slog.Warn("actuator: command failed", "action", cmd.Kind, "err", err)
		return types.Ack{}, err
	}

	slog.Info("actuator: command acknowledged",
		"action", cmd.Kind,
		"request_id", ack.RequestID,
		"status", ack.Status,
	)
	return ack, nil
}

// InFlight reports whether a command of kind is pending.
func (d *Dispatcher) InFlight(kind types.ActionKind) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.inFlight[kind]
}

func (d *Dispatcher) acquire(kind types.ActionKind) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.inFlight[kind] {
		return false
	}
	d.inFlight[kind] = true
	return true
}

func (d *Dispatcher) release(kind types.ActionKind) {
	d.mu.Lock()
	delete(d.inFlight, kind)
	d.mu.Unlock()
}

// classify makes sure every failure matches one of the actuation sentinels.
// Anything unclassified, timeouts included, counts as a transport failure.
func classify(kind types.ActionKind, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, types.ErrTransport) || errors.Is(err, types.ErrActuation) {
		return err
	}
	return fmt.Errorf("actuator: %s: %v: %w", kind, err, types.ErrTransport)
}
