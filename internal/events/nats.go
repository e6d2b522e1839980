package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

// Publisher sends raw messages to a subject.
type Publisher interface {
	Publish(ctx context.Context, subject string, msg []byte) error
}

// HandlerFunc processes a raw message received on a subject.
type HandlerFunc func(ctx context.Context, msg []byte) error

type NATSPublisher struct {
	conn *nats.Conn
}

func NewNATSPublisher(url string) (*NATSPublisher, error) {
	conn, err := nats.Connect(url, nats.Name("tablebook-publisher"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return &NATSPublisher{conn: conn}, nil
}

func (p *NATSPublisher) Publish(ctx context.Context, subject string, msg []byte) error {
	return p.conn.Publish(subject, msg)
}

func (p *NATSPublisher) Close() error {
	p.conn.Close()
	return nil
}

type NATSSubscriber struct {
	conn   *nats.Conn
	logger *zerolog.Logger
}

func NewNATSSubscriber(url string, logger *zerolog.Logger) (*NATSSubscriber, error) {
	conn, err := nats.Connect(url, nats.Name("tablebook-subscriber"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return &NATSSubscriber{conn: conn, logger: logger}, nil
}

func (s *NATSSubscriber) Subscribe(ctx context.Context, subject string, handler HandlerFunc) error {
	_, err := s.conn.Subscribe(subject, func(msg *nats.Msg) {
		if err := handler(ctx, msg.Data); err != nil {
			s.logger.Warn().Err(err).Str("subject", subject).Msg("message handling failed")
		}
	})
	return err
}

func (s *NATSSubscriber) Close() error {
	s.conn.Close()
	return nil
}

// Forward republishes every reservation lifecycle event on "<prefix>.<eventName>".
func Forward(bus *EventBus, pub Publisher, prefix string) {
	for _, name := range ReservationEvents {
		subject := prefix + "." + name
		bus.On(name, func(event Event) error {
			data, err := json.Marshal(event)
			if err != nil {
				return fmt.Errorf("marshal %s: %w", event.Type, err)
			}
			return pub.Publish(context.Background(), subject, data)
		})
	}
}
