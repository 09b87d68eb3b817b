package orderstatus

type Status struct {
	Name string
}

func (s Status) Code() string {
	return s.Name
}

// Label is the column/badge text shown on the board.
func (s Status) Label() string {
	if l, ok := labels[s.Name]; ok {
		return l
	}
	return s.Name
}

// ActionLabel is the text of the control that advances an order out of this
// status. Terminal statuses have none.
func (s Status) ActionLabel() string {
	return actionLabels[s.Name]
}

// Next returns the single status an order in s may be advanced to.
func (s Status) Next() (Status, bool) {
	next, ok := transitions[s.Name]
	return next, ok
}

// IsActive reports whether orders in s belong on the live board.
func (s Status) IsActive() bool {
	switch s {
	case Statuses.Pending, Statuses.Preparing, Statuses.Ready:
		return true
	}
	return false
}

func (s Status) IsTerminal() bool {
	_, ok := transitions[s.Name]
	return !ok
}

// Rank orders statuses along the forward path. Cancelled sits outside the path
// and ranks after everything.
func (s Status) Rank() int {
	for i, st := range All {
		if st == s {
			return i
		}
	}
	return -1
}

type Enum struct {
	Pending   Status
	Preparing Status
	Ready     Status
	Delivered Status
	Completed Status
	Cancelled Status
}

var Statuses = Enum{
	Pending:   Status{Name: "pending"},
	Preparing: Status{Name: "preparing"},
	Ready:     Status{Name: "ready"},
	Delivered: Status{Name: "delivered"},
	Completed: Status{Name: "completed"},
	Cancelled: Status{Name: "cancelled"},
}

var All = []Status{
	Statuses.Pending,
	Statuses.Preparing,
	Statuses.Ready,
	Statuses.Delivered,
	Statuses.Completed,
	Statuses.Cancelled,
}

var transitions = map[string]Status{
	"pending":   Statuses.Preparing,
	"preparing": Statuses.Ready,
	"ready":     Statuses.Delivered,
	"delivered": Statuses.Completed,
}

var labels = map[string]string{
	"pending":   "New",
	"preparing": "Preparing",
	"ready":     "Ready",
	"delivered": "Delivered",
	"completed": "Completed",
	"cancelled": "Cancelled",
}

var actionLabels = map[string]string{
	"pending":   "Start preparing",
	"preparing": "Mark ready",
	"ready":     "Mark delivered",
	"delivered": "Complete",
}

// ByName returns the status for a given name, or nil if not found
func ByName(name string) *Status {
	for _, s := range All {
		if s.Name == name {
			return &s
		}
	}
	return nil
}
