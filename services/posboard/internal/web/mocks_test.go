package web

import (
	"context"
	"sync"
	"time"

	"github.com/appetiteclub/posboard/services/posboard/internal/board"
	"github.com/appetiteclub/posboard/services/posboard/internal/push"
	"github.com/appetiteclub/posboard/services/posboard/internal/session"
	"github.com/aquamarinepk/aqm/events"
)

type mockOrderService struct {
	FetchOrdersFunc   func(ctx context.Context, locationID string) ([]board.Order, error)
	AdvanceStatusFunc func(ctx context.Context, locationID string, orderID board.Ref, status string) error
	RegisterFunc      func(ctx context.Context, locationID string, sub push.Subscription, deviceLabel string) error
}

func (m *mockOrderService) FetchOrders(ctx context.Context, locationID string) ([]board.Order, error) {
	if m.FetchOrdersFunc != nil {
		return m.FetchOrdersFunc(ctx, locationID)
	}
	return nil, nil
}

func (m *mockOrderService) AdvanceStatus(ctx context.Context, locationID string, orderID board.Ref, status string) error {
	if m.AdvanceStatusFunc != nil {
		return m.AdvanceStatusFunc(ctx, locationID, orderID, status)
	}
	return nil
}

func (m *mockOrderService) RegisterPushSubscription(ctx context.Context, locationID string, sub push.Subscription, deviceLabel string) error {
	if m.RegisterFunc != nil {
		return m.RegisterFunc(ctx, locationID, sub, deviceLabel)
	}
	return nil
}

type mockSubscriber struct {
	mu       sync.Mutex
	handlers []events.HandlerFunc
}

func (m *mockSubscriber) Subscribe(ctx context.Context, topic string, handler events.HandlerFunc) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers = append(m.handlers, handler)
	return nil
}

func (m *mockSubscriber) deliver(msg string) {
	m.mu.Lock()
	handlers := append([]events.HandlerFunc(nil), m.handlers...)
	m.mu.Unlock()
	for _, h := range handlers {
		_ = h(context.Background(), []byte(msg))
	}
}

type stoppedClock struct{}

func (stoppedClock) Every(time.Duration, func()) func() { return func() {} }

type mockHistory struct {
	ListFunc  func(ctx context.Context, locationID string, limit int64) ([]session.Acknowledgment, error)
	lastLimit int64
}

func (m *mockHistory) ListByLocation(ctx context.Context, locationID string, limit int64) ([]session.Acknowledgment, error) {
	m.lastLimit = limit
	if m.ListFunc != nil {
		return m.ListFunc(ctx, locationID, limit)
	}
	return nil, nil
}
