package order

import (
	"time"

	"github.com/shopspring/decimal"
)

// Item is an order line. Price is the kit price at purchase time.
type Item struct {
	ID       int64           `json:"orderItemId"`
	KitID    int64           `json:"kitId"`
	Quantity int             `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
}

type Order struct {
	ID              int64           `json:"orderId"`
	UserID          int64           `json:"userId"`
	CreatedAt       time.Time       `json:"createdAt"`
	TotalAmount     decimal.Decimal `json:"totalAmount"`
	Status          Status          `json:"status"`
	ShippingAddress string          `json:"shippingAddress"`
	Items           []Item          `json:"items"`
}

// Total sums price times quantity over the given items.
func Total(items []Item) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.Price.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	return total
}
