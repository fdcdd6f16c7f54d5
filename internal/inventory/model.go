package inventory

import "github.com/shopspring/decimal"

// Kit is a purchasable item. CourseID is set when buying the kit grants
// access to a course.
type Kit struct {
	ID            int64           `json:"kitId"`
	Name          string          `json:"name"`
	Price         decimal.Decimal `json:"price"`
	StockQuantity int             `json:"stockQuantity"`
	CourseID      *int64          `json:"courseId,omitempty"`
}

type StockItem struct {
	KitID         int64 `json:"kitId"`
	StockQuantity int   `json:"stockQuantity"`
}

type Line struct {
	KitID    int64
	Quantity int
}

type DepletedLine struct {
	KitID     int64
	Name      string
	Requested int
	Available int
}

// Shortages compares requested lines against locked kit rows. Unknown kits
// count as zero available.
func Shortages(lines []Line, kits map[int64]Kit) []DepletedLine {
	var out []DepletedLine
	for _, line := range lines {
		kit, ok := kits[line.KitID]
		if !ok {
			out = append(out, DepletedLine{KitID: line.KitID, Requested: line.Quantity})
			continue
		}
		if kit.StockQuantity < line.Quantity {
			out = append(out, DepletedLine{
				KitID:     kit.ID,
				Name:      kit.Name,
				Requested: line.Quantity,
				Available: kit.StockQuantity,
			})
		}
	}
	return out
}
