package event

import (
	"encoding/json"
	"fmt"
)

const (
	// LocationOrdersTopicPrefix scopes order events to a single location channel.
	LocationOrdersTopicPrefix = "pos.locations"

	EventOrderPlaced        = "order.placed"
	EventOrderStatusChanged = "order.status_changed"
)

// LocationOrdersTopic returns the subject a location's board subscribes to.
func LocationOrdersTopic(locationID string) string {
	return fmt.Sprintf("%s.%s.orders", LocationOrdersTopicPrefix, locationID)
}

// OrderEvent is the envelope carried on a location channel. Order stays raw so
// status changes can be applied as partial overwrites.
type OrderEvent struct {
	Event string          `json:"event"`
	Order json.RawMessage `json:"order"`
}
