package pkg

import (
	"context"
	"fmt"
	"sync"

	"github.com/aquamarinepk/aqm/events"
	"github.com/nats-io/nats.go"
)

type NATSPublisher struct {
	conn *nats.Conn
}

func NewNATSPublisher(url string) (*NATSPublisher, error) {
	conn, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return &NATSPublisher{conn: conn}, nil
}

func (p *NATSPublisher) Publish(ctx context.Context, topic string, msg []byte) error {
	return p.conn.Publish(topic, msg)
}

func (p *NATSPublisher) Close() error {
	if err := p.conn.Flush(); err != nil {
		p.conn.Close()
		return fmt.Errorf("failed to flush NATS connection: %w", err)
	}
	p.conn.Close()
	return nil
}

// NATSSubscriber keeps one reconnecting connection and fans its connection
// transitions out to registered listeners.
type NATSSubscriber struct {
	conn *nats.Conn

	mu        sync.Mutex
	listeners map[int]func(connected bool)
	nextID    int
}

func NewNATSSubscriber(url string, opts ...nats.Option) (*NATSSubscriber, error) {
	s := &NATSSubscriber{listeners: make(map[int]func(bool))}

	opts = append(opts,
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, _ error) { s.notify(false) }),
		nats.ReconnectHandler(func(_ *nats.Conn) { s.notify(true) }),
		nats.ClosedHandler(func(_ *nats.Conn) { s.notify(false) }),
	)

	conn, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	s.conn = conn
	return s, nil
}

// Subscribe registers handler on topic until ctx is done. Handler errors are
// swallowed so a bad message never drops the subscription.
func (s *NATSSubscriber) Subscribe(ctx context.Context, topic string, handler events.HandlerFunc) error {
	sub, err := s.conn.Subscribe(topic, func(msg *nats.Msg) {
		_ = handler(ctx, msg.Data)
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", topic, err)
	}

	go func() {
		<-ctx.Done()
		_ = sub.Unsubscribe()
	}()

	return nil
}

func (s *NATSSubscriber) Connected() bool {
	return s.conn != nil && s.conn.IsConnected()
}

// OnStatusChange registers fn for connection transitions and returns a func
// that removes it.
func (s *NATSSubscriber) OnStatusChange(fn func(connected bool)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	s.listeners[id] = fn

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, id)
	}
}

func (s *NATSSubscriber) notify(connected bool) {
	s.mu.Lock()
	fns := make([]func(bool), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(connected)
	}
}

func (s *NATSSubscriber) Close() error {
	s.conn.Close()
	return nil
}
