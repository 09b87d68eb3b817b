package board

import (
	"sync"
	"sync/atomic"

	"github.com/appetiteclub/posboard/pkg/enums/orderstatus"
)

// Snapshot is an immutable view of the store. Mutations build a new snapshot
// and swap it in, so readers never see a half-applied change.
type Snapshot struct {
	orders []Order
	index  map[Ref]int
}

func newSnapshot(orders []Order) *Snapshot {
	index := make(map[Ref]int, len(orders))
	for i, o := range orders {
		index[o.ID] = i
	}
	return &Snapshot{orders: orders, index: index}
}

// Get returns a copy of the order with id.
func (s *Snapshot) Get(id Ref) (Order, bool) {
	i, ok := s.index[id]
	if !ok {
		return Order{}, false
	}
	return s.orders[i].clone(), true
}

func (s *Snapshot) Len() int {
	return len(s.orders)
}

// Orders returns copies of all orders in arrival order.
func (s *Snapshot) Orders() []Order {
	return s.filter(func(Order) bool { return true })
}

func (s *Snapshot) Active() []Order {
	return s.filter(func(o Order) bool { return o.IsActive })
}

func (s *Snapshot) Done() []Order {
	return s.filter(func(o Order) bool { return !o.IsActive })
}

func (s *Snapshot) filter(keep func(Order) bool) []Order {
	result := make([]Order, 0, len(s.orders))
	for _, o := range s.orders {
		if keep(o) {
			result = append(result, o.clone())
		}
	}
	return result
}

// Store is the client-authoritative order list for one board session.
type Store struct {
	mu              sync.Mutex
	snap            atomic.Pointer[Snapshot]
	defaultCurrency string
}

func NewStore(defaultCurrency string) *Store {
	s := &Store{defaultCurrency: defaultCurrency}
	s.snap.Store(newSnapshot(nil))
	return s
}

func (s *Store) Snapshot() *Snapshot {
	return s.snap.Load()
}

// Load seeds the store from a full fetch. Orders already present that the
// fetch did not return (they arrived over realtime while the fetch was in
// flight) are kept after the fetched ones.
func (s *Store) Load(fetched []Order) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current := s.snap.Load()
	orders := make([]Order, 0, len(fetched)+current.Len())
	seen := make(map[Ref]bool, len(fetched))

	for _, o := range fetched {
		if seen[o.ID] || o.Validate() != nil {
			continue
		}
		seen[o.ID] = true
		orders = append(orders, o.normalized(s.defaultCurrency))
	}
	for _, o := range current.orders {
		if !seen[o.ID] {
			orders = append(orders, o)
		}
	}

	s.snap.Store(newSnapshot(orders))
}

// Insert adds o unless an order with the same id is already present.
func (s *Store) Insert(o Order) (bool, error) {
	if err := o.Validate(); err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current := s.snap.Load()
	if _, exists := current.index[o.ID]; exists {
		return false, nil
	}

	orders := make([]Order, len(current.orders), len(current.orders)+1)
	copy(orders, current.orders)
	orders = append(orders, o.normalized(s.defaultCurrency))

	s.snap.Store(newSnapshot(orders))
	return true, nil
}

// Merge overwrites the fields present in f on the order with id. It is a no-op
// for unknown ids. A status that ranks before the local one is treated as a
// stale broadcast and left out; cancellation always applies.
func (s *Store) Merge(id Ref, f Fields) (Order, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current := s.snap.Load()
	i, ok := current.index[id]
	if !ok {
		return Order{}, false, nil
	}

	local := current.orders[i]
	merged, err := local.apply(f)
	if err != nil {
		return local.clone(), false, err
	}
	if isStale(local.StatusValue(), merged.StatusValue()) {
		merged.Status = local.Status
	}
	merged.ID = local.ID
	merged.OrderNumber = local.OrderNumber
	merged = merged.normalized(s.defaultCurrency)

	s.replaceAt(current, i, merged)
	return merged.clone(), true, nil
}

// SetStatus applies a confirmed transition for id.
func (s *Store) SetStatus(id Ref, st orderstatus.Status) (Order, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current := s.snap.Load()
	i, ok := current.index[id]
	if !ok {
		return Order{}, false
	}

	updated := current.orders[i].clone()
	if isStale(updated.StatusValue(), st) {
		return updated, false
	}
	updated.Status = st.Code()
	updated = updated.normalized(s.defaultCurrency)

	s.replaceAt(current, i, updated)
	return updated.clone(), true
}

func (s *Store) replaceAt(current *Snapshot, i int, o Order) {
	orders := make([]Order, len(current.orders))
	copy(orders, current.orders)
	orders[i] = o
	s.snap.Store(newSnapshot(orders))
}

func isStale(local, incoming orderstatus.Status) bool {
	if incoming == orderstatus.Statuses.Cancelled {
		return false
	}
	return incoming.Rank() < local.Rank()
}
