package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/appetiteclub/posboard/pkg/event"
	"github.com/appetiteclub/posboard/services/posboard/internal/board"
	"github.com/aquamarinepk/aqm"
	"github.com/aquamarinepk/aqm/events"
)

// StatusNotifier reports transport connection transitions.
type StatusNotifier interface {
	Connected() bool
	OnStatusChange(fn func(connected bool)) (remove func())
}

// Handler receives decoded location events.
type Handler interface {
	OrderPlaced(o board.Order)
	OrderStatusChanged(id board.Ref, fields board.Fields)
	ConnectionChanged(connected bool)
}

// DropCounter is told about every inbound message that was discarded.
type DropCounter interface {
	EventDropped(reason string)
}

// Channel is a board's subscription to its location's order events.
type Channel struct {
	locationID string
	subscriber events.Subscriber
	status     StatusNotifier
	handler    Handler
	drops      DropCounter
	logger     aqm.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	remove func()
}

func NewChannel(locationID string, sub events.Subscriber, status StatusNotifier, handler Handler, logger aqm.Logger) *Channel {
	if logger == nil {
		logger = aqm.NewNoopLogger()
	}
	return &Channel{
		locationID: locationID,
		subscriber: sub,
		status:     status,
		handler:    handler,
		logger:     logger.With("location", locationID),
	}
}

// WithDropCounter sets where discarded messages are counted.
func (c *Channel) WithDropCounter(d DropCounter) *Channel {
	c.drops = d
	return c
}

func (c *Channel) Topic() string {
	return event.LocationOrdersTopic(c.locationID)
}

// Start subscribes to the location topic and reports the current connection
// state to the handler.
func (c *Channel) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cancel != nil {
		return nil
	}

	subCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	if err := c.subscriber.Subscribe(subCtx, c.Topic(), c.handleMessage); err != nil {
		cancel()
		c.handler.ConnectionChanged(false)
		return fmt.Errorf("subscribe %s: %w", c.Topic(), err)
	}
	c.cancel = cancel

	if c.status != nil {
		c.remove = c.status.OnStatusChange(c.connectionChanged)
		c.connectionChanged(c.status.Connected())
	} else {
		c.connectionChanged(true)
	}
	return nil
}

// Stop unsubscribes. It is safe to call more than once.
func (c *Channel) Stop(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.remove != nil {
		c.remove()
		c.remove = nil
	}
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	return nil
}

func (c *Channel) connectionChanged(connected bool) {
	if connected {
		c.logger.Info("realtime channel connected")
	} else {
		c.logger.Info("realtime channel disconnected")
	}
	c.handler.ConnectionChanged(connected)
}

// handleMessage never returns an error; bad input is logged and dropped.
func (c *Channel) handleMessage(_ context.Context, msg []byte) (err error) {
	defer func() {
		if r := recover(); r != nil {
			c.drop("panic", fmt.Errorf("handler panic: %v", r))
		}
	}()

	var evt event.OrderEvent
	if err := json.Unmarshal(msg, &evt); err != nil {
		c.drop("malformed", err)
		return nil
	}
	if len(evt.Order) == 0 {
		c.drop("malformed", fmt.Errorf("event %q without order", evt.Event))
		return nil
	}

	switch evt.Event {
	case event.EventOrderPlaced:
		var o board.Order
		if err := json.Unmarshal(evt.Order, &o); err != nil {
			c.drop("malformed", err)
			return nil
		}
		if err := o.Validate(); err != nil {
			c.drop("invalid", err)
			return nil
		}
		c.handler.OrderPlaced(o)

	case event.EventOrderStatusChanged:
		id, fields, err := board.DecodeFields(evt.Order)
		if err != nil {
			c.drop("malformed", err)
			return nil
		}
		c.handler.OrderStatusChanged(id, fields)

	default:
		c.drop("unknown_event", fmt.Errorf("unknown event %q", evt.Event))
	}
	return nil
}

func (c *Channel) drop(reason string, err error) {
	c.logger.Info("dropping realtime message", "reason", reason, "error", err)
	if c.drops != nil {
		c.drops.EventDropped(reason)
	}
}
