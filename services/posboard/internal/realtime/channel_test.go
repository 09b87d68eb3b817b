package realtime

import (
	"context"
	"errors"
	"testing"

	"github.com/appetiteclub/posboard/services/posboard/internal/board"
	"github.com/aquamarinepk/aqm"
	"github.com/aquamarinepk/aqm/events"
)

type mockSubscriber struct {
	SubscribeFunc func(ctx context.Context, topic string, handler events.HandlerFunc) error
	topic         string
	handler       events.HandlerFunc
	ctx           context.Context
}

func (m *mockSubscriber) Subscribe(ctx context.Context, topic string, handler events.HandlerFunc) error {
	if m.SubscribeFunc != nil {
		return m.SubscribeFunc(ctx, topic, handler)
	}
	m.ctx, m.topic, m.handler = ctx, topic, handler
	return nil
}

type mockStatus struct {
	connected bool
	listener  func(bool)
	removed   bool
}

func (m *mockStatus) Connected() bool { return m.connected }

func (m *mockStatus) OnStatusChange(fn func(bool)) func() {
	m.listener = fn
	return func() { m.removed = true }
}

type recordingHandler struct {
	placed      []board.Order
	changed     []board.Ref
	fields      []board.Fields
	connections []bool
	panicOn     board.Ref
}

func (h *recordingHandler) OrderPlaced(o board.Order) {
	if o.ID == h.panicOn {
		panic("boom")
	}
	h.placed = append(h.placed, o)
}

func (h *recordingHandler) OrderStatusChanged(id board.Ref, f board.Fields) {
	h.changed = append(h.changed, id)
	h.fields = append(h.fields, f)
}

func (h *recordingHandler) ConnectionChanged(connected bool) {
	h.connections = append(h.connections, connected)
}

type countingDrops map[string]int

func (c countingDrops) EventDropped(reason string) { c[reason]++ }

func startChannel(t *testing.T) (*Channel, *mockSubscriber, *mockStatus, *recordingHandler) {
	t.Helper()
	sub := &mockSubscriber{}
	st := &mockStatus{connected: true}
	h := &recordingHandler{}
	c := NewChannel("loc-1", sub, st, h, aqm.NewNoopLogger())
	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	return c, sub, st, h
}

func TestChannelSubscribesToLocationTopic(t *testing.T) {
	_, sub, _, h := startChannel(t)

	if sub.topic != "pos.locations.loc-1.orders" {
		t.Errorf("topic = %q", sub.topic)
	}
	if len(h.connections) != 1 || !h.connections[0] {
		t.Errorf("connections = %v, want [true]", h.connections)
	}
}

func TestChannelDispatchesEvents(t *testing.T) {
	_, sub, _, h := startChannel(t)
	ctx := context.Background()

	msgs := []string{
		`{"event":"order.placed","order":{"id":2,"order_number":"102","status":"pending","total":"9.00"}}`,
		`{"event":"order.status_changed","order":{"id":1,"status":"ready"}}`,
	}
	for _, m := range msgs {
		if err := sub.handler(ctx, []byte(m)); err != nil {
			t.Fatalf("handler error = %v", err)
		}
	}

	if len(h.placed) != 1 || h.placed[0].ID != "2" {
		t.Errorf("placed = %+v", h.placed)
	}
	if len(h.changed) != 1 || h.changed[0] != "1" {
		t.Errorf("changed = %v", h.changed)
	}
	if _, ok := h.fields[0]["items"]; ok {
		t.Error("absent field reported in partial update")
	}
}

func TestChannelDropsBadInput(t *testing.T) {
	sub := &mockSubscriber{}
	h := &recordingHandler{panicOn: "13"}
	drops := countingDrops{}
	c := NewChannel("loc-1", sub, nil, h, aqm.NewNoopLogger()).WithDropCounter(drops)
	if err := c.Start(context.Background()); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name   string
		msg    string
		reason string
	}{
		{name: "notJSON", msg: `{{{`, reason: "malformed"},
		{name: "missingOrder", msg: `{"event":"order.placed"}`, reason: "malformed"},
		{name: "unknownEvent", msg: `{"event":"order.deleted","order":{"id":1}}`, reason: "unknown_event"},
		{name: "invalidOrder", msg: `{"event":"order.placed","order":{"id":1,"status":"lost"}}`, reason: "invalid"},
		{name: "statusChangeWithoutID", msg: `{"event":"order.status_changed","order":{"status":"ready"}}`, reason: "malformed"},
		{name: "handlerPanic", msg: `{"event":"order.placed","order":{"id":13,"status":"pending"}}`, reason: "panic"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := drops[tt.reason]
			if err := sub.handler(context.Background(), []byte(tt.msg)); err != nil {
				t.Fatalf("handler returned error %v", err)
			}
			if drops[tt.reason] != before+1 {
				t.Errorf("drops[%s] = %d, want %d", tt.reason, drops[tt.reason], before+1)
			}
		})
	}

	if len(h.placed) != 0 || len(h.changed) != 0 {
		t.Error("bad input reached the handler")
	}
}

func TestChannelConnectionTransitions(t *testing.T) {
	c, sub, st, h := startChannel(t)

	st.listener(false)
	st.listener(true)

	want := []bool{true, false, true}
	if len(h.connections) != len(want) {
		t.Fatalf("connections = %v, want %v", h.connections, want)
	}
	for i := range want {
		if h.connections[i] != want[i] {
			t.Fatalf("connections = %v, want %v", h.connections, want)
		}
	}

	if err := c.Stop(context.Background()); err != nil {
		t.Fatal(err)
	}
	if !st.removed {
		t.Error("status listener not removed on Stop")
	}
	if sub.ctx.Err() == nil {
		t.Error("subscription context not cancelled on Stop")
	}
	if err := c.Stop(context.Background()); err != nil {
		t.Error("second Stop() failed")
	}
}

func TestChannelSubscribeFailure(t *testing.T) {
	sub := &mockSubscriber{
		SubscribeFunc: func(context.Context, string, events.HandlerFunc) error {
			return errors.New("nats: connection closed")
		},
	}
	h := &recordingHandler{}
	c := NewChannel("loc-1", sub, nil, h, aqm.NewNoopLogger())

	if err := c.Start(context.Background()); err == nil {
		t.Fatal("Start() error = nil")
	}
	if len(h.connections) != 1 || h.connections[0] {
		t.Errorf("connections = %v, want [false]", h.connections)
	}
}
