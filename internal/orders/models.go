package orders

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderType string

const (
	TypeDineIn   OrderType = "dine_in"
	TypeTakeaway OrderType = "takeaway"
)

type PaymentStatus string

const (
	PaymentUnpaid PaymentStatus = "unpaid"
	PaymentPaid   PaymentStatus = "paid"
	PaymentFailed PaymentStatus = "failed"
)

// Product: Stock == nil means the product is never inventory-constrained.
type Product struct {
	ID           string
	RestaurantID string
	Name         string
	Price        decimal.Decimal
	Stock        *int
	IsAvailable  bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type Order struct {
	ID            string
	Number        string // human-facing, unique, for the tracking page
	RestaurantID  string
	RequestKey    string // client idempotency key, empty when unused
	Status        Status
	Type          OrderType
	TableNumber   *int
	CustomerName  string
	CustomerPhone string
	CouponCode    string
	Subtotal      decimal.Decimal
	Discount      decimal.Decimal
	Total         decimal.Decimal
	PaymentStatus PaymentStatus
	PaymentMethod string
	Items         []OrderItem
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// OrderItem snapshots the unit price at order time; the set of items is
// immutable after checkout.
type OrderItem struct {
	ID        string
	OrderID   string
	ProductID string
	Name      string
	Qty       int
	UnitPrice decimal.Decimal
	Note      string
}

// Contact carries the optional customer fields an admin may correct while
// changing status.
type Contact struct {
	Name  string
	Phone string
}
