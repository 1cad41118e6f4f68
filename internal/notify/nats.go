package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/nats-io/nats.go"

	"github.com/plantwatch/plantwatch/pkg/types"
)

// msgPublisher is the part of *nats.Conn the publisher uses.
type msgPublisher interface {
	PublishMsg(m *nats.Msg) error
	Close()
}

// NATSPublisher publishes surfaced alerts as JSON to a NATS subject.
type NATSPublisher struct {
	conn    msgPublisher
	subject string
}

// DialNATS connects to url and returns a publisher for subject.
func DialNATS(url, subject string) (*NATSPublisher, error) {
	nc, err := nats.Connect(url, nats.Name("plantwatch"))
	if err != nil {
		return nil, fmt.Errorf("connect nats %s: %w", url, err)
	}
	return &NATSPublisher{conn: nc, subject: subject}, nil
}

func (p *NATSPublisher) Name() string { return "nats:" + p.subject }

// Notify publishes a. The message id lets JetStream-backed subjects drop
// redeliveries of the same alert episode.
func (p *NATSPublisher) Notify(_ context.Context, a types.Alert) error {
	body, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("marshal alert: %w", err)
	}
	msg := nats.NewMsg(p.subject)
	msg.Data = body
	msg.Header.Set("Nats-Msg-Id", a.ID+"-"+strconv.FormatInt(a.CreatedAt.UnixMilli(), 10))
	msg.Header.Set("Plantwatch-Severity", string(a.Severity))
	if err := p.conn.PublishMsg(msg); err != nil {
		return fmt.Errorf("publish alert: %w", err)
	}
	return nil
}

// Close closes the NATS connection.
func (p *NATSPublisher) Close() {
	if p == nil || p.conn == nil {
		return
	}
	p.conn.Close()
}
