package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/appetiteclub/posboard/cmd/utils/internal/seeding"
	"github.com/appetiteclub/posboard/pkg"
	"github.com/appetiteclub/posboard/pkg/enums/orderstatus"
	"github.com/appetiteclub/posboard/pkg/event"
	"github.com/aquamarinepk/aqm"
	"github.com/aquamarinepk/aqm/events"
)

const defaultLocationID = "demo"

// PublishDemo sends a batch of placed orders to a location channel.
func PublishDemo(ctx context.Context, config *aqm.Config, logger aqm.Logger) error {
	locationID := stringOrDef(config, "location.id", defaultLocationID)
	currency := stringOrDef(config, "board.currency", "USD")

	publisher, err := pkg.NewNATSPublisher(stringOrDef(config, "nats.url", "nats://localhost:4222"))
	if err != nil {
		return err
	}
	defer publisher.Close()

	topic := event.LocationOrdersTopic(locationID)
	for _, o := range seeding.DemoOrders(currency, time.Now().UTC()) {
		if err := publishOrder(ctx, publisher, topic, event.EventOrderPlaced, o); err != nil {
			return err
		}
		logger.Info("Published placed order", "location", locationID, "order", o.ID, "number", o.OrderNumber)
	}
	return nil
}

type statusChange struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// PublishStatus sends a status change for one order.
func PublishStatus(ctx context.Context, config *aqm.Config, logger aqm.Logger) error {
	locationID := stringOrDef(config, "location.id", defaultLocationID)

	orderID, _ := config.GetString("order.id")
	if orderID == "" {
		return fmt.Errorf("order.id is required")
	}
	statusName, _ := config.GetString("order.status")
	if orderstatus.ByName(statusName) == nil {
		return fmt.Errorf("unknown order.status %q", statusName)
	}

	publisher, err := pkg.NewNATSPublisher(stringOrDef(config, "nats.url", "nats://localhost:4222"))
	if err != nil {
		return err
	}
	defer publisher.Close()

	change := statusChange{ID: orderID, Status: statusName}
	if err := publishOrder(ctx, publisher, event.LocationOrdersTopic(locationID), event.EventOrderStatusChanged, change); err != nil {
		return err
	}
	logger.Info("Published status change", "location", locationID, "order", orderID, "status", statusName)
	return nil
}

func publishOrder(ctx context.Context, publisher events.Publisher, topic, name string, order interface{}) error {
	msg, err := encodeEvent(name, order)
	if err != nil {
		return err
	}
	if err := publisher.Publish(ctx, topic, msg); err != nil {
		return fmt.Errorf("publish %s: %w", name, err)
	}
	return nil
}

func encodeEvent(name string, order interface{}) ([]byte, error) {
	raw, err := json.Marshal(order)
	if err != nil {
		return nil, fmt.Errorf("encode order: %w", err)
	}
	return json.Marshal(event.OrderEvent{Event: name, Order: raw})
}

func stringOrDef(config *aqm.Config, key, def string) string {
	if v, ok := config.GetString(key); ok && v != "" {
		return v
	}
	return def
}
