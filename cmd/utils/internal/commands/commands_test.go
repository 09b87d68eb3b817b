package commands

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/appetiteclub/posboard/pkg/event"
)

type mockPublisher struct {
	PublishFunc func(ctx context.Context, topic string, msg []byte) error
	topics      []string
	messages    [][]byte
}

func (m *mockPublisher) Publish(ctx context.Context, topic string, msg []byte) error {
	m.topics = append(m.topics, topic)
	m.messages = append(m.messages, msg)
	if m.PublishFunc != nil {
		return m.PublishFunc(ctx, topic, msg)
	}
	return nil
}

func TestEncodeEvent(t *testing.T) {
	msg, err := encodeEvent(event.EventOrderStatusChanged, statusChange{ID: "o-1", Status: "ready"})
	if err != nil {
		t.Fatal(err)
	}

	var env event.OrderEvent
	if err := json.Unmarshal(msg, &env); err != nil {
		t.Fatal(err)
	}
	if env.Event != event.EventOrderStatusChanged {
		t.Errorf("event = %s, want %s", env.Event, event.EventOrderStatusChanged)
	}

	var change statusChange
	if err := json.Unmarshal(env.Order, &change); err != nil {
		t.Fatal(err)
	}
	if change.ID != "o-1" || change.Status != "ready" {
		t.Errorf("order = %+v", change)
	}
}

func TestPublishOrder(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		wantErr bool
	}{
		{name: "published"},
		{name: "publishFails", err: errors.New("no connection"), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pub := &mockPublisher{
				PublishFunc: func(context.Context, string, []byte) error { return tt.err },
			}
			topic := event.LocationOrdersTopic("loc-1")

			err := publishOrder(context.Background(), pub, topic, event.EventOrderPlaced, statusChange{ID: "o-1"})
			if (err != nil) != tt.wantErr {
				t.Fatalf("publishOrder() error = %v, wantErr %v", err, tt.wantErr)
			}
			if len(pub.topics) != 1 || pub.topics[0] != "pos.locations.loc-1.orders" {
				t.Errorf("topics = %v", pub.topics)
			}
		})
	}
}

func TestLocationFilter(t *testing.T) {
	if len(locationFilter("")) != 0 {
		t.Error("empty location should match every acknowledgment")
	}
	if got := locationFilter("loc-1")["location_id"]; got != "loc-1" {
		t.Errorf("location_id = %v, want loc-1", got)
	}
}
