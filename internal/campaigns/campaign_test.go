package campaigns

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 8, 31, 15, 0, 0, 0, time.UTC)

func dec(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func decPtr(v int64) *decimal.Decimal {
	d := decimal.NewFromInt(v)
	return &d
}

func base(typ DiscountType, value int64) *Campaign {
	return &Campaign{
		ID:           "c1",
		RestaurantID: "resto-1",
		Code:         "TEST",
		Type:         typ,
		Value:        dec(value),
		StartDate:    now.Add(-24 * time.Hour),
		EndDate:      now.Add(24 * time.Hour),
		IsActive:     true,
	}
}

func TestNormalizeCode(t *testing.T) {
	assert.Equal(t, "SAVE10", NormalizeCode("  save10 "))
	assert.Equal(t, "SAVE10", NormalizeCode("Save10"))
}

func TestEvaluate_PercentageCappedByMaxDiscount(t *testing.T) {
	c := base(DiscountPercentage, 20)
	c.MaxDiscount = decPtr(50)

	d, err := Evaluate(c, dec(1000), now)
	require.NoError(t, err)
	assert.True(t, d.Equal(dec(50)), "got %s", d) // 200 uncapped, 50 capped

	c.MaxDiscount = nil
	d, err = Evaluate(c, dec(1000), now)
	require.NoError(t, err)
	assert.True(t, d.Equal(dec(200)))
}

func TestEvaluate_FixedIgnoresMaxDiscount(t *testing.T) {
	c := base(DiscountFixed, 80)
	c.MaxDiscount = decPtr(50) // only applies to percentage coupons

	d, err := Evaluate(c, dec(1000), now)
	require.NoError(t, err)
	assert.True(t, d.Equal(dec(80)))
}

func TestEvaluate_DiscountNeverExceedsSubtotal(t *testing.T) {
	c := base(DiscountFixed, 80)

	d, err := Evaluate(c, dec(30), now)
	require.NoError(t, err)
	assert.True(t, d.Equal(dec(30)))
}

func TestEvaluate_MinAmountBoundary(t *testing.T) {
	c := base(DiscountFixed, 10)
	c.MinAmount = decPtr(100)

	_, err := Evaluate(c, dec(99), now)
	var cerr *CouponError
	require.ErrorAs(t, err, &cerr)

	d, err := Evaluate(c, dec(100), now) // inclusive floor
	require.NoError(t, err)
	assert.True(t, d.Equal(dec(10)))
}

func TestEvaluate_ValidityWindow(t *testing.T) {
	c := base(DiscountFixed, 10)

	_, err := Evaluate(c, dec(500), c.StartDate.Add(-time.Minute))
	assert.Error(t, err)

	_, err = Evaluate(c, dec(500), c.EndDate.Add(time.Minute))
	assert.Error(t, err)

	d, err := Evaluate(c, dec(500), c.StartDate)
	require.NoError(t, err)
	assert.True(t, d.Equal(dec(10)))

	d, err = Evaluate(c, dec(500), c.EndDate)
	require.NoError(t, err)
	assert.True(t, d.Equal(dec(10)))
}

func TestEvaluate_InactiveAndExhausted(t *testing.T) {
	c := base(DiscountFixed, 10)
	c.IsActive = false
	_, err := Evaluate(c, dec(500), now)
	assert.Error(t, err)

	c = base(DiscountFixed, 10)
	limit := 3
	c.UsageLimit = &limit
	c.UsageCount = 3
	_, err = Evaluate(c, dec(500), now)
	assert.Error(t, err)

	c.UsageCount = 2
	d, err := Evaluate(c, dec(500), now)
	require.NoError(t, err)
	assert.True(t, d.Equal(dec(10)))
}

func TestEvaluate_PercentageRounding(t *testing.T) {
	c := base(DiscountPercentage, 15)

	d, err := Evaluate(c, decimal.RequireFromString("99.90"), now)
	require.NoError(t, err)
	assert.True(t, d.Equal(decimal.RequireFromString("14.985")), "got %s", d)
}

func TestEvaluate_UnknownTypeRejected(t *testing.T) {
	c := base(DiscountType("bogo"), 10)
	_, err := Evaluate(c, dec(500), now)
	var cerr *CouponError
	assert.ErrorAs(t, err, &cerr)
}
