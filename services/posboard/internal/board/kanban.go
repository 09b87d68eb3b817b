package board

import "github.com/appetiteclub/posboard/pkg/enums/orderstatus"

// Card is one ticket as rendered on the board.
type Card struct {
	Order
	StatusLabel string `json:"status_label"`
	ActionLabel string `json:"action_label,omitempty"`
	CanAdvance  bool   `json:"can_advance"`
	InFlight    bool   `json:"in_flight"`
}

type Column struct {
	Status string `json:"status"`
	Label  string `json:"label"`
	Cards  []Card `json:"cards"`
}

// Kanban is the derived board view: status columns on the Live tab and the
// inactive orders on the Done tab.
type Kanban struct {
	Live []Column `json:"live"`
	Done []Card   `json:"done"`
}

var liveColumns = []orderstatus.Status{
	orderstatus.Statuses.Pending,
	orderstatus.Statuses.Preparing,
	orderstatus.Statuses.Ready,
}

// Project derives the kanban from a snapshot. inFlight may be nil.
func Project(snap *Snapshot, inFlight func(Ref) bool) Kanban {
	k := Kanban{
		Live: make([]Column, len(liveColumns)),
		Done: []Card{},
	}
	pos := make(map[string]int, len(liveColumns))
	for i, st := range liveColumns {
		k.Live[i] = Column{Status: st.Code(), Label: st.Label(), Cards: []Card{}}
		pos[st.Code()] = i
	}

	for _, o := range snap.Orders() {
		card := newCard(o, inFlight)
		if !o.IsActive {
			k.Done = append(k.Done, card)
			continue
		}
		i, ok := pos[o.Status]
		if !ok {
			continue
		}
		k.Live[i].Cards = append(k.Live[i].Cards, card)
	}
	return k
}

func newCard(o Order, inFlight func(Ref) bool) Card {
	st := o.StatusValue()
	busy := inFlight != nil && inFlight(o.ID)
	return Card{
		Order:       o,
		StatusLabel: st.Label(),
		ActionLabel: st.ActionLabel(),
		CanAdvance:  !st.IsTerminal() && !busy,
		InFlight:    busy,
	}
}

// Column returns the live column for status, if any.
func (k Kanban) Column(status string) (Column, bool) {
	for _, c := range k.Live {
		if c.Status == status {
			return c, true
		}
	}
	return Column{}, false
}
