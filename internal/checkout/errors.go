package checkout

import (
	"errors"
	"fmt"
	"strings"

	"github.com/andreasstove999/ecommerce-system/educomm-service-go/internal/inventory"
)

var (
	ErrEmptyCart               = errors.New("cart is empty")
	ErrMissingUserID           = errors.New("userId not found in metadata")
	ErrMissingSessionID        = errors.New("session id is required")
	ErrShippingAddressRequired = errors.New("shipping address is required")
	ErrInsufficientStock       = errors.New("insufficient stock")
)

// InsufficientStockError lists every kit that could not be supplied. Lines is
// empty when a concurrent checkout took the stock between the check and the
// decrement.
type InsufficientStockError struct {
	Lines []inventory.DepletedLine
}

func (e *InsufficientStockError) Error() string {
	if len(e.Lines) == 0 {
		return "Not enough stock for one or more kits. Please try again."
	}
	msgs := make([]string, 0, len(e.Lines))
	for _, ln := range e.Lines {
		name := ln.Name
		if name == "" {
			name = fmt.Sprintf("kit %d", ln.KitID)
		}
		msgs = append(msgs, fmt.Sprintf("Not enough stock for %s. Available: %d, requested: %d.", name, ln.Available, ln.Requested))
	}
	return strings.Join(msgs, " ")
}

func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}
