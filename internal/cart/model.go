package cart

import (
	"time"

	"github.com/shopspring/decimal"
)

type Item struct {
	KitID    int64           `json:"kitId"`
	KitName  string          `json:"kitName"`
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"quantity"`
	AddedAt  time.Time       `json:"addedAt"`
}

type Cart struct {
	ID        int64           `json:"cartId"`
	UserID    int64           `json:"userId"`
	Items     []Item          `json:"items"`
	Total     decimal.Decimal `json:"totalAmount"`
	CreatedAt time.Time       `json:"createdAt"`
}

// Empty reports whether there is nothing to buy.
func (c *Cart) Empty() bool {
	return c == nil || len(c.Items) == 0
}

func (c *Cart) recalculate() {
	total := decimal.Zero
	for _, it := range c.Items {
		total = total.Add(it.Price.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	c.Total = total
}
