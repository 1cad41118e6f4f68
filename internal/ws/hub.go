package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/plantwatch/plantwatch/pkg/types"
)

// EventState is the only event the hub emits.
const EventState = "state"

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// Origin checks belong to the reverse proxy in front of the server.
	CheckOrigin: func(*http.Request) bool { return true },
}

// Feed is the plant state the hub pushes. *engine.Engine satisfies it.
type Feed interface {
	CurrentAlerts() types.View
	LatestSnapshot() types.Snapshot
	HasSnapshot() bool
	LightState() (on, known bool)
}

// State is the payload of every message.
type State struct {
	Alerts      types.View      `json:"alerts"`
	Snapshot    *types.Snapshot `json:"snapshot,omitempty"`
	LightOn     *bool           `json:"light_on,omitempty"`
	GeneratedAt string          `json:"generated_at"` // RFC3339
}

// Message is the JSON envelope written to subscribers.
type Message struct {
	Event string `json:"event"`
	Data  State  `json:"data"`
}

// Hub fans the plant state out to WebSocket subscribers.
type Hub struct {
	feed   Feed
	period time.Duration

	mu   sync.Mutex
	subs map[*subscriber]struct{}
}

// New returns a Hub reading from feed and pushing every period.
func New(feed Feed, period time.Duration) *Hub {
	return &Hub{
		feed:   feed,
		period: period,
		subs:   make(map[*subscriber]struct{}),
	}
}

// Run pushes the state every period until ctx is cancelled, then
// disconnects every subscriber.
func (h *Hub) Run(ctx context.Context) {
	tick := time.NewTicker(h.period)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			h.disconnectAll()
			return
		case <-tick.C:
			h.publish()
		}
	}
}

// Notify pushes the state now. The view argument is unused; the signature
// matches the engine's change hook so Notify can be registered directly.
func (h *Hub) Notify(types.View) {
	h.publish()
}

// ServeHTTP upgrades the request and streams state until the peer goes away.
// The first frame is the state at connect time.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return // Upgrade wrote the HTTP error
	}

	s := newSubscriber(conn)
	if frame, err := h.frame(); err == nil {
		s.outbox <- frame
	}

	h.mu.Lock()
	h.subs[s] = struct{}{}
	h.mu.Unlock()
	defer h.drop(s)

	go s.pushLoop()
	s.drainLoop()
}

// Count returns the number of connected subscribers.
func (h *Hub) Count() int {
	h.mu.Lock()
	n := len(h.subs)
	h.mu.Unlock()
	return n
}

// publish holds mu while queueing so a frame is never sent on an outbox that
// drop has already closed.
func (h *Hub) publish() {
	frame, err := h.frame()
	if err != nil {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for s := range h.subs {
		if !s.offer(frame) {
			h.dropLocked(s) // too slow to keep up
		}
	}
}

func (h *Hub) frame() ([]byte, error) {
	st := State{
		Alerts:      h.feed.CurrentAlerts(),
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
	}
	if st.Alerts.Alerts == nil {
		st.Alerts.Alerts = []types.Alert{}
	}
	if h.feed.HasSnapshot() {
		snap := h.feed.LatestSnapshot()
		st.Snapshot = &snap
	}
	if on, known := h.feed.LightState(); known {
		st.LightOn = &on
	}
	return json.Marshal(Message{Event: EventState, Data: st})
}

func (h *Hub) drop(s *subscriber) {
	h.mu.Lock()
	h.dropLocked(s)
	h.mu.Unlock()
}

func (h *Hub) dropLocked(s *subscriber) {
	if _, ok := h.subs[s]; !ok {
		return
	}
	delete(h.subs, s)
	close(s.outbox)
}

func (h *Hub) disconnectAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for s := range h.subs {
		h.dropLocked(s)
	}
}
