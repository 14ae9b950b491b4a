package campaigns

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type DiscountType string

const (
	DiscountPercentage DiscountType = "percentage"
	DiscountFixed      DiscountType = "fixed"
)

var ErrCouponNotFound = errors.New("coupon not found")

// CouponError is a rejection the customer can act on (wrong code, expired,
// below minimum, exhausted).
type CouponError struct {
	Code   string
	Reason string
}

func (e *CouponError) Error() string {
	return fmt.Sprintf("coupon %s rejected: %s", e.Code, e.Reason)
}

// Campaign is a discount rule scoped to one restaurant, applied by code at
// checkout. Codes are stored upper-cased.
type Campaign struct {
	ID           string
	RestaurantID string
	Code         string
	Type         DiscountType
	Value        decimal.Decimal
	MinAmount    *decimal.Decimal
	MaxDiscount  *decimal.Decimal
	StartDate    time.Time
	EndDate      time.Time
	UsageLimit   *int
	UsageCount   int
	IsActive     bool
}

// NormalizeCode maps user input to the stored code form.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Evaluate checks eligibility against the candidate subtotal and returns the
// discount amount. It never mutates the campaign; usage is incremented by the
// caller once the order is actually placed.
func Evaluate(c *Campaign, subtotal decimal.Decimal, now time.Time) (decimal.Decimal, error) {
	if !c.IsActive {
		return decimal.Zero, &CouponError{Code: c.Code, Reason: "coupon is not active"}
	}
	if now.Before(c.StartDate) {
		return decimal.Zero, &CouponError{Code: c.Code, Reason: "coupon is not valid yet"}
	}
	if now.After(c.EndDate) {
		return decimal.Zero, &CouponError{Code: c.Code, Reason: "coupon has expired"}
	}
	if c.MinAmount != nil && subtotal.LessThan(*c.MinAmount) {
		return decimal.Zero, &CouponError{
			Code:   c.Code,
			Reason: fmt.Sprintf("order total must be at least %s", c.MinAmount.StringFixed(2)),
		}
	}
	if c.UsageLimit != nil && c.UsageCount >= *c.UsageLimit {
		return decimal.Zero, &CouponError{Code: c.Code, Reason: "coupon usage limit reached"}
	}

	var discount decimal.Decimal
	switch c.Type {
	case DiscountPercentage:
		discount = subtotal.Mul(c.Value).Div(decimal.NewFromInt(100))
		// MaxDiscount caps percentage coupons only; fixed coupons are
		// already bounded by their value.
		if c.MaxDiscount != nil && discount.GreaterThan(*c.MaxDiscount) {
			discount = *c.MaxDiscount
		}
	case DiscountFixed:
		discount = c.Value
	default:
		return decimal.Zero, &CouponError{Code: c.Code, Reason: "unknown discount type"}
	}

	// A discount can never push the order negative.
	if discount.GreaterThan(subtotal) {
		discount = subtotal
	}
	return discount, nil
}
