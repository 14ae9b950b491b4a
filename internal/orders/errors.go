package orders

import (
	"errors"
	"fmt"
)

var (
	ErrOrderNotFound   = errors.New("order not found")
	ErrProductNotFound = errors.New("product not found")
	ErrInvalidStatus   = errors.New("invalid order status")
	ErrEmptyOrder      = errors.New("order has no items")
	ErrInvalidQty      = errors.New("quantity must be at least 1")
)

// InsufficientStockError surfaces to the admin as-is, so it carries the
// product name and what was left at reservation time.
type InsufficientStockError struct {
	Product   string
	Requested int
	Remaining int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %q: requested %d, %d left", e.Product, e.Requested, e.Remaining)
}

type ProductUnavailableError struct {
	Product string
}

func (e *ProductUnavailableError) Error() string {
	return fmt.Sprintf("product %q is not available", e.Product)
}
