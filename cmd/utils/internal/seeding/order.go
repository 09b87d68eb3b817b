package seeding

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Variation struct {
	Name string `json:"name"`
}

type Item struct {
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Variation *Variation      `json:"selected_variation,omitempty"`
}

// Order mirrors the order payload a board receives on its location channel.
type Order struct {
	ID              string          `json:"id"`
	OrderNumber     string          `json:"order_number"`
	Status          string          `json:"status"`
	Items           []Item          `json:"items"`
	Total           decimal.Decimal `json:"total"`
	Currency        string          `json:"currency,omitempty"`
	TableIdentifier string          `json:"table_identifier,omitempty"`
	Notes           string          `json:"notes,omitempty"`
	IsActive        bool            `json:"is_active"`
	CreatedAt       time.Time       `json:"created_at"`
}

type demoOrder struct {
	table string
	notes string
	items []Item
}

var demoOrders = []demoOrder{
	{
		table: "4",
		notes: "No onions on the second burger",
		items: []Item{
			{Name: "Classic Burger", Quantity: 2, UnitPrice: decimal.RequireFromString("9.50")},
			{Name: "Fries", Quantity: 1, UnitPrice: decimal.RequireFromString("3.75"), Variation: &Variation{Name: "Large"}},
		},
	},
	{
		table: "11",
		items: []Item{
			{Name: "Margherita Pizza", Quantity: 1, UnitPrice: decimal.RequireFromString("12.00")},
			{Name: "Lemonade", Quantity: 2, UnitPrice: decimal.RequireFromString("2.80")},
		},
	},
	{
		notes: "Takeaway, call when ready",
		items: []Item{
			{Name: "Chicken Tacos", Quantity: 3, UnitPrice: decimal.RequireFromString("4.20"), Variation: &Variation{Name: "Spicy"}},
		},
	},
}

// DemoOrders returns a fresh batch of pending orders with new ids.
func DemoOrders(currency string, now time.Time) []Order {
	orders := make([]Order, 0, len(demoOrders))
	for i, d := range demoOrders {
		total := decimal.Zero
		for _, item := range d.items {
			total = total.Add(item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))))
		}
		orders = append(orders, Order{
			ID:              uuid.NewString(),
			OrderNumber:     fmt.Sprintf("D-%03d", now.Unix()%1000+int64(i)),
			Status:          "pending",
			Items:           d.items,
			Total:           total,
			Currency:        currency,
			TableIdentifier: d.table,
			Notes:           d.notes,
			IsActive:        true,
			CreatedAt:       now.Add(-time.Duration(len(demoOrders)-i) * time.Minute),
		})
	}
	return orders
}
