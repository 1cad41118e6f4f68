package ws

import (
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait    = 10 * time.Second
	peerTimeout  = 60 * time.Second
	pingInterval = peerTimeout * 9 / 10 // must stay below peerTimeout
	outboxDepth  = 16
	maxInbound   = 512 // clients only send control frames
)

// subscriber is one WebSocket peer. outbox is owned by the Hub: only the Hub
// sends on it or closes it, always under Hub.mu.
type subscriber struct {
	conn   *websocket.Conn
	outbox chan []byte
}

func newSubscriber(conn *websocket.Conn) *subscriber {
	return &subscriber{conn: conn, outbox: make(chan []byte, outboxDepth)}
}

// offer queues frame without blocking and reports whether it fit.
func (s *subscriber) offer(frame []byte) bool {
	select {
	case s.outbox <- frame:
		return true
	default:
		return false
	}
}

// pushLoop writes queued frames and keepalive pings. A closed outbox means
// the Hub dropped this peer, so a close frame is sent before hanging up.
func (s *subscriber) pushLoop() {
	ping := time.NewTicker(pingInterval)
	defer func() {
		ping.Stop()
		s.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-s.outbox:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait)) //nolint:errcheck
			if !ok {
				s.conn.WriteMessage(websocket.CloseMessage, nil) //nolint:errcheck
				return
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ping.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait)) //nolint:errcheck
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// drainLoop discards inbound frames so pongs and close frames get processed.
// It returns once the peer disconnects or stops answering pings.
func (s *subscriber) drainLoop() {
	defer s.conn.Close()
	s.conn.SetReadLimit(maxInbound)
	s.conn.SetReadDeadline(time.Now().Add(peerTimeout)) //nolint:errcheck
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(peerTimeout))
	})
	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			return
		}
	}
}
