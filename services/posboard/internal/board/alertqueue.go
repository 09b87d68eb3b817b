package board

import "sync"

// AlertQueue holds placed orders staff have not acknowledged yet. It only
// grows until Acknowledge empties it in one step.
type AlertQueue struct {
	mu     sync.Mutex
	orders []Order
	ids    map[Ref]struct{}
}

func NewAlertQueue() *AlertQueue {
	return &AlertQueue{ids: make(map[Ref]struct{})}
}

// Push appends o if it is not queued already.
func (q *AlertQueue) Push(o Order) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, ok := q.ids[o.ID]; ok {
		return false
	}
	q.ids[o.ID] = struct{}{}
	q.orders = append(q.orders, o.clone())
	return true
}

// Acknowledge empties the queue and returns what it held.
func (q *AlertQueue) Acknowledge() []Order {
	q.mu.Lock()
	defer q.mu.Unlock()

	cleared := q.orders
	q.orders = nil
	q.ids = make(map[Ref]struct{})
	return cleared
}

func (q *AlertQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.orders)
}

func (q *AlertQueue) IDs() []Ref {
	q.mu.Lock()
	defer q.mu.Unlock()

	ids := make([]Ref, len(q.orders))
	for i, o := range q.orders {
		ids[i] = o.ID
	}
	return ids
}

// Orders returns the queued orders, refreshed from snap where the store has a
// newer copy.
func (q *AlertQueue) Orders(snap *Snapshot) []Order {
	q.mu.Lock()
	defer q.mu.Unlock()

	result := make([]Order, len(q.orders))
	for i, o := range q.orders {
		if snap != nil {
			if current, ok := snap.Get(o.ID); ok {
				result[i] = current
				continue
			}
		}
		result[i] = o.clone()
	}
	return result
}
