package status

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/appetiteclub/posboard/services/posboard/internal/board"
	"golang.org/x/sync/singleflight"
)

var ErrTerminal = errors.New("order status is terminal")

// Commander sends a status update to the backend.
type Commander interface {
	AdvanceStatus(ctx context.Context, locationID string, orderID board.Ref, status string) error
}

// Controller advances orders one step along the forward path. At most one
// command per order is on the wire at a time.
type Controller struct {
	locationID string
	commander  Commander
	store      *board.Store
	group      singleflight.Group

	mu       sync.Mutex
	inFlight map[board.Ref]struct{}
	onChange func(id board.Ref, inFlight bool)
}

func NewController(locationID string, commander Commander, store *board.Store) *Controller {
	return &Controller{
		locationID: locationID,
		commander:  commander,
		store:      store,
		inFlight:   make(map[board.Ref]struct{}),
	}
}

// OnInFlightChange registers fn to run whenever an order's guard is set or
// cleared. fn runs without the controller lock held.
func (c *Controller) OnInFlightChange(fn func(id board.Ref, inFlight bool)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onChange = fn
}

// InFlight reports whether an advance for id is awaiting the backend.
func (c *Controller) InFlight(id board.Ref) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.inFlight[id]
	return ok
}

// Advance moves o to its next status. Concurrent calls for the same order share
// one command. A call made against a status the order has since left sends
// nothing and returns the current order. On failure the store is left
// untouched.
func (c *Controller) Advance(ctx context.Context, o board.Order) (board.Order, error) {
	if _, ok := o.StatusValue().Next(); !ok {
		return o, fmt.Errorf("order %s: %w", o.ID, ErrTerminal)
	}

	v, err, _ := c.group.Do(o.ID.String(), func() (interface{}, error) {
		current, ok := c.store.Snapshot().Get(o.ID)
		if !ok {
			current = o
		}
		if current.StatusValue() != o.StatusValue() {
			return current, nil
		}
		next, _ := current.StatusValue().Next()

		c.setInFlight(o.ID, true)
		defer c.setInFlight(o.ID, false)

		// Once dispatched the command runs to completion.
		cmdCtx := context.WithoutCancel(ctx)
		if err := c.commander.AdvanceStatus(cmdCtx, c.locationID, o.ID, next.Code()); err != nil {
			return nil, fmt.Errorf("advance order %s to %s: %w", o.ID, next.Code(), err)
		}

		updated, applied := c.store.SetStatus(o.ID, next)
		if !applied {
			// A realtime update got there first or the order is gone.
			if latest, ok := c.store.Snapshot().Get(o.ID); ok {
				return latest, nil
			}
			return current, nil
		}
		return updated, nil
	})
	if err != nil {
		return o, err
	}
	return v.(board.Order), nil
}

func (c *Controller) setInFlight(id board.Ref, on bool) {
	c.mu.Lock()
	if on {
		c.inFlight[id] = struct{}{}
	} else {
		delete(c.inFlight, id)
	}
	fn := c.onChange
	c.mu.Unlock()

	if fn != nil {
		fn(id, on)
	}
}
