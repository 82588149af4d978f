package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"

	"github.com/paddymap/paddymap/internal/core/domain"
)

// Subscriber consumes JetStream subjects with durable, manually acked consumers.
type Subscriber struct {
	conn *nats.Conn
	js   nats.JetStreamContext
}

// NewSubscriber creates a subscriber with its own NATS connection.
func NewSubscriber(url string) (*Subscriber, error) {
	conn, err := RawConn(url)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	js, err := conn.JetStream()
	if err != nil {
		return nil, fmt.Errorf("jetstream: %w", err)
	}
	return &Subscriber{conn: conn, js: js}, nil
}

// SubscribeDetections delivers every published detection to handler.
// A handler error naks the message so it is redelivered, up to three times.
func (s *Subscriber) SubscribeDetections(ctx context.Context, durable string, handler func(ctx context.Context, d *domain.Detection) error) error {
	_, err := s.js.Subscribe(DetectionSubjects, func(msg *nats.Msg) {
		var d domain.Detection
		if err := json.Unmarshal(msg.Data, &d); err != nil {
			_ = msg.Term()
			return
		}
		if err := handler(ctx, &d); err != nil {
			_ = msg.Nak()
			return
		}
		_ = msg.Ack()
	},
		nats.Durable(durable),
		nats.ManualAck(),
		nats.MaxDeliver(3),
		nats.DeliverNew(),
	)
	return err
}

// Close drains the connection. Durable consumers are kept on the server
// (Unsubscribe would delete them) so a restart resumes where it stopped.
func (s *Subscriber) Close() {
	_ = s.conn.Drain()
}
