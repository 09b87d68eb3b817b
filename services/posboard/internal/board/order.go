package board

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/appetiteclub/posboard/pkg/enums/orderstatus"
	"github.com/shopspring/decimal"
)

var (
	ErrMissingID     = errors.New("order id is required")
	ErrUnknownStatus = errors.New("unknown order status")
	ErrInvalidItem   = errors.New("invalid order item")
)

// Ref is an opaque identifier that may travel as a JSON string or number.
type Ref string

func (r *Ref) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*r = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*r = Ref(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("ref must be a string or number: %w", err)
	}
	*r = Ref(n.String())
	return nil
}

func (r Ref) String() string {
	return string(r)
}

type Variation struct {
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}

type Item struct {
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Variation *Variation      `json:"selected_variation,omitempty"`
}

// Order is one kitchen ticket.
type Order struct {
	ID              Ref             `json:"id"`
	OrderNumber     Ref             `json:"order_number"`
	Status          string          `json:"status"`
	Items           []Item          `json:"items"`
	Total           decimal.Decimal `json:"total"`
	Currency        string          `json:"currency,omitempty"`
	TableIdentifier string          `json:"table_identifier,omitempty"`
	Notes           string          `json:"notes,omitempty"`
	IsActive        bool            `json:"is_active"`

	CreatedAt   time.Time  `json:"created_at"`
	ConfirmedAt *time.Time `json:"confirmed_at,omitempty"`
	PreparingAt *time.Time `json:"preparing_at,omitempty"`
	ReadyAt     *time.Time `json:"ready_at,omitempty"`
	DeliveredAt *time.Time `json:"delivered_at,omitempty"`
}

// Validate checks the invariants an order must hold before it enters the store.
func (o Order) Validate() error {
	if o.ID == "" {
		return ErrMissingID
	}
	if orderstatus.ByName(o.Status) == nil {
		return fmt.Errorf("%w: %q", ErrUnknownStatus, o.Status)
	}
	for i, item := range o.Items {
		if item.Quantity < 1 {
			return fmt.Errorf("%w: item %d quantity %d", ErrInvalidItem, i, item.Quantity)
		}
		if item.UnitPrice.IsNegative() {
			return fmt.Errorf("%w: item %d negative unit price", ErrInvalidItem, i)
		}
	}
	return nil
}

// StatusValue returns the typed status. Callers validate first.
func (o Order) StatusValue() orderstatus.Status {
	if st := orderstatus.ByName(o.Status); st != nil {
		return *st
	}
	return orderstatus.Status{Name: o.Status}
}

// normalized returns a deep copy with derived fields recomputed.
func (o Order) normalized(defaultCurrency string) Order {
	c := o.clone()
	c.IsActive = c.StatusValue().IsActive()
	if c.Currency == "" {
		c.Currency = defaultCurrency
	}
	return c
}

func (o Order) clone() Order {
	c := o
	if o.Items != nil {
		c.Items = make([]Item, len(o.Items))
		for i, item := range o.Items {
			c.Items[i] = item
			if item.Variation != nil {
				v := *item.Variation
				c.Items[i].Variation = &v
			}
		}
	}
	c.ConfirmedAt = cloneTime(o.ConfirmedAt)
	c.PreparingAt = cloneTime(o.PreparingAt)
	c.ReadyAt = cloneTime(o.ReadyAt)
	c.DeliveredAt = cloneTime(o.DeliveredAt)
	return c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

// Fields is a partially decoded order: only keys present on the wire.
type Fields map[string]json.RawMessage

// DecodeFields splits a raw order payload and extracts its id.
func DecodeFields(raw []byte) (Ref, Fields, error) {
	var fields Fields
	if err := json.Unmarshal(raw, &fields); err != nil {
		return "", nil, fmt.Errorf("cannot decode order fields: %w", err)
	}

	var id Ref
	if v, ok := fields["id"]; ok {
		if err := json.Unmarshal(v, &id); err != nil {
			return "", nil, fmt.Errorf("cannot decode order id: %w", err)
		}
	}
	if id == "" {
		return "", nil, ErrMissingID
	}
	return id, fields, nil
}

// apply overwrites the fields present in f. Identity fields and the derived
// is_active flag are never taken from the wire.
func (o Order) apply(f Fields) (Order, error) {
	c := o.clone()
	for key, raw := range f {
		var err error
		switch key {
		case "status":
			var st string
			if err = json.Unmarshal(raw, &st); err == nil {
				if orderstatus.ByName(st) == nil {
					err = fmt.Errorf("%w: %q", ErrUnknownStatus, st)
				} else {
					c.Status = st
				}
			}
		case "items":
			var items []Item
			if err = json.Unmarshal(raw, &items); err == nil && items != nil {
				c.Items = items
			}
		case "total":
			err = decodeUnlessNull(raw, &c.Total)
		case "currency":
			err = decodeUnlessNull(raw, &c.Currency)
		case "table_identifier":
			err = decodeUnlessNull(raw, &c.TableIdentifier)
		case "notes":
			err = decodeUnlessNull(raw, &c.Notes)
		case "created_at":
			err = decodeUnlessNull(raw, &c.CreatedAt)
		case "confirmed_at":
			err = json.Unmarshal(raw, &c.ConfirmedAt)
		case "preparing_at":
			err = json.Unmarshal(raw, &c.PreparingAt)
		case "ready_at":
			err = json.Unmarshal(raw, &c.ReadyAt)
		case "delivered_at":
			err = json.Unmarshal(raw, &c.DeliveredAt)
		}
		if err != nil {
			return o, fmt.Errorf("field %s: %w", key, err)
		}
	}
	return c, c.Validate()
}

func decodeUnlessNull(raw json.RawMessage, dest interface{}) error {
	if bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return nil
	}
	return json.Unmarshal(raw, dest)
}
