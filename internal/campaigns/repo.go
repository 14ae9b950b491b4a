package campaigns

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repo struct{ DB *pgxpool.Pool }

// FindByCode looks a campaign up within one restaurant; the code is
// normalized before the query.
func (r *Repo) FindByCode(ctx context.Context, restaurantID, code string) (*Campaign, error) {
	var c Campaign
	err := r.DB.QueryRow(ctx, `
		SELECT id, restaurant_id, code, discount_type, value, min_amount, max_discount,
		       start_date, end_date, usage_limit, usage_count, is_active
		FROM campaigns
		WHERE restaurant_id = $1 AND code = $2`,
		restaurantID, NormalizeCode(code),
	).Scan(
		&c.ID, &c.RestaurantID, &c.Code, &c.Type, &c.Value, &c.MinAmount, &c.MaxDiscount,
		&c.StartDate, &c.EndDate, &c.UsageLimit, &c.UsageCount, &c.IsActive,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCouponNotFound
		}
		return nil, err
	}
	return &c, nil
}

// IncrementUsage bumps the usage counter after a successful checkout. It sits
// outside the order transaction on purpose: a lost increment is acceptable, a
// lost order is not.
func (r *Repo) IncrementUsage(ctx context.Context, campaignID string) error {
	_, err := r.DB.Exec(ctx, `UPDATE campaigns SET usage_count = usage_count + 1 WHERE id = $1`, campaignID)
	return err
}
