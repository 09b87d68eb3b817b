package session

import (
	"context"
	"sync"
	"time"

	"github.com/appetiteclub/posboard/services/posboard/internal/board"
	"github.com/appetiteclub/posboard/services/posboard/internal/push"
	"github.com/aquamarinepk/aqm"
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
	handler events.HandlerFunc
}

func (m *mockSubscriber) Subscribe(ctx context.Context, topic string, handler events.HandlerFunc) error {
	m.handler = handler
	return nil
}

func (m *mockSubscriber) deliver(msg string) {
	_ = m.handler(context.Background(), []byte(msg))
}

type recordingDisplay struct {
	mu            sync.Mutex
	views         []View
	notifications []Notification
}

func (d *recordingDisplay) Render(v View) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.views = append(d.views, v)
}

func (d *recordingDisplay) Notify(n Notification) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.notifications = append(d.notifications, n)
}

func (d *recordingDisplay) last() View {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.views[len(d.views)-1]
}

type mockMedia struct {
	mu     sync.Mutex
	plays  int
	pauses int
}

func (m *mockMedia) PlayLoop(string, float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.plays++
	return nil
}

func (m *mockMedia) Pause() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pauses++
}

type nopTones struct{}

func (nopTones) Open(int) error        { return nil }
func (nopTones) Write([]float32) error { return nil }
func (nopTones) Close() error          { return nil }

type manualClock struct{}

func (manualClock) Every(time.Duration, func()) func() { return func() {} }

type mockJournal struct {
	mu      sync.Mutex
	entries []Acknowledgment
}

func (j *mockJournal) Record(_ context.Context, ack Acknowledgment) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries = append(j.entries, ack)
	return nil
}

type fixture struct {
	session *Session
	orders  *mockOrderService
	sub     *mockSubscriber
	display *recordingDisplay
	media   *mockMedia
	journal *mockJournal
}

func newFixture(orders *mockOrderService, permission push.Permission) *fixture {
	if orders == nil {
		orders = &mockOrderService{}
	}
	f := &fixture{
		orders:  orders,
		sub:     &mockSubscriber{},
		display: &recordingDisplay{},
		media:   &mockMedia{},
		journal: &mockJournal{},
	}
	deps := Deps{
		Orders:     orders,
		Subscriber: f.sub,
		Journal:    f.journal,
		Clock:      manualClock{},
		Logger:     aqm.NewNoopLogger(),
	}
	cfg := Config{LocationID: "loc-1", DeviceKey: "pass", Currency: "USD", Permission: permission}
	f.session = New(cfg, deps, f.media, nopTones{}, f.display)
	return f
}

func placed(id string) string {
	return `{"event":"order.placed","order":{"id":"` + id + `","order_number":"T` + id + `","status":"pending","items":[{"name":"Taco","quantity":2,"unit_price":"3.50"}],"total":"7.00"}}`
}
