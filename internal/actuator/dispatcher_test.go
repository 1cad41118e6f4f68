package actuator

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/plantwatch/plantwatch/pkg/types"
)

// gatedActuator blocks every call until release is closed.
type gatedActuator struct {
	mu      sync.Mutex
	calls   []types.Command
	started chan struct{}
	release chan struct{}
	err     error
}

func newGated() *gatedActuator {
	return &gatedActuator{started: make(chan struct{}, 8), release: make(chan struct{})}
}

func (a *gatedActuator) Actuate(ctx context.Context, cmd types.Command) (types.Ack, error) {
	a.mu.Lock()
	a.calls = append(a.calls, cmd)
	a.mu.Unlock()
	a.started <- struct{}{}
	select {
	case <-a.release:
	case <-ctx.Done():
		return types.Ack{}, ctx.Err()
	}
	if a.err != nil {
		return types.Ack{}, a.err
	}
	return types.Ack{Kind: cmd.Kind, Status: "executed", State: cmd.State}, nil
}

func (a *gatedActuator) callCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.calls)
}

func TestDispatch_SecondWaterWhileInFlight(t *testing.T) {
	act := newGated()
	d := NewDispatcher(act)

	type result struct {
		ack types.Ack
		err error
	}
	first := make(chan result, 1)
	go func() {
		ack, err := d.Dispatch(context.Background(), types.WaterCommand())
		first <- result{ack, err}
	}()
	<-act.started

	start := time.Now()
	_, err := d.Dispatch(context.Background(), types.WaterCommand())
	if !errors.Is(err, types.ErrAlreadyInFlight) {
		t.Fatalf("second Dispatch error = %v, want ErrAlreadyInFlight", err)
	}
	if took := time.Since(start); took > time.Second {
		t.Errorf("second Dispatch took %v, want immediate", took)
	}
	if !d.InFlight(types.ActionWater) {
		t.Error("InFlight(water) = false while first command pending")
	}

	close(act.release)
	r := <-first
	if r.err != nil {
		t.Fatalf("first Dispatch error = %v", r.err)
	}
	if r.ack.Kind != types.ActionWater {
		t.Errorf("ack.Kind = %q, want water", r.ack.Kind)
	}
	if n := act.callCount(); n != 1 {
		t.Errorf("actuator called %d times, want 1", n)
	}
	if d.InFlight(types.ActionWater) {
		t.Error("InFlight(water) = true after completion")
	}
}

func TestDispatch_GuardIsPerKind(t *testing.T) {
	act := newGated()
	d := NewDispatcher(act)

	done := make(chan error, 2)
	go func() {
		_, err := d.Dispatch(context.Background(), types.WaterCommand())
		done <- err
	}()
	<-act.started
	go func() {
		_, err := d.Dispatch(context.Background(), types.LightCommand(true))
		done <- err
	}()
	<-act.started

	close(act.release)
	for i := 0; i < 2; i++ {
		if err := <-done; err != nil {
			t.Errorf("Dispatch error = %v", err)
		}
	}
	if n := act.callCount(); n != 2 {
		t.Errorf("actuator called %d times, want 2", n)
	}
}

func TestDispatch_Timeout(t *testing.T) {
	act := newGated()
	d := NewDispatcher(act, WithTimeout(20*time.Millisecond))

	_, err := d.Dispatch(context.Background(), types.WaterCommand())
	if !errors.Is(err, types.ErrTransport) {
		t.Errorf("error = %v, want ErrTransport", err)
	}
	if d.InFlight(types.ActionWater) {
		t.Error("guard still held after timeout")
	}
}

func TestDispatch_ActuationErrorKept(t *testing.T) {
	act := newGated()
	act.err = errors.Join(errors.New("pump jammed"), types.ErrActuation)
	close(act.release)

	var observed error
	d := NewDispatcher(act, WithObserver(func(_ types.ActionKind, err error, _ time.Duration) { observed = err }))
	_, err := d.Dispatch(context.Background(), types.WaterCommand())
	if !errors.Is(err, types.ErrActuation) {
		t.Errorf("error = %v, want ErrActuation", err)
	}
	if errors.Is(err, types.ErrTransport) {
		t.Errorf("error = %v also matches ErrTransport", err)
	}
	if observed == nil {
		t.Error("observer not told about the failure")
	}
}

func TestDispatch_WaterAlwaysForced(t *testing.T) {
	act := newGated()
	close(act.release)
	d := NewDispatcher(act)

	if _, err := d.Dispatch(context.Background(), types.Command{Kind: types.ActionWater}); err != nil {
		t.Fatalf("Dispatch error = %v", err)
	}
	<-act.started
	if !act.calls[0].Force {
		t.Error("water command sent without force")
	}
}

func TestDispatch_InvalidCommands(t *testing.T) {
	act := newGated()
	d := NewDispatcher(act)

	for _, cmd := range []types.Command{
		{Kind: types.ActionNone},
		{Kind: "mist"},
		{Kind: types.ActionLight},
	} {
		if _, err := d.Dispatch(context.Background(), cmd); !errors.Is(err, types.ErrActuation) {
			t.Errorf("Dispatch(%+v) error = %v, want ErrActuation", cmd, err)
		}
	}
	if n := act.callCount(); n != 0 {
		t.Errorf("actuator called %d times for invalid commands", n)
	}
}
