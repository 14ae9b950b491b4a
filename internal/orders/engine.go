package orders

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/menuqr/qrmenu-orders/internal/campaigns"
	"github.com/shopspring/decimal"
)

// PricedProduct is the slice of a product the checkout needs: the snapshot
// price and whether it can be sold at all.
type PricedProduct struct {
	ID          string
	Name        string
	Price       decimal.Decimal
	IsAvailable bool
}

// Tx is the set of operations available inside one scoped transaction. Stock
// is mutated exclusively through TryReserve/Release so the no-negative
// invariant is enforced in one place.
type Tx interface {
	OrderForUpdate(ctx context.Context, restaurantID, orderID string) (*Order, error)
	TryReserve(ctx context.Context, productID string, qty int) error
	Release(ctx context.Context, productID string, qty int) error
	SetStatus(ctx context.Context, orderID string, st Status, contact *Contact) error
	SetPayment(ctx context.Context, orderID string, st PaymentStatus, method string) error
	PriceProducts(ctx context.Context, restaurantID string, ids []string) (map[string]PricedProduct, error)
	InsertOrder(ctx context.Context, o *Order) error
	DeleteOrder(ctx context.Context, orderID string) error
	FindByRequestKey(ctx context.Context, restaurantID, key string) (*Order, error)
}

// Store runs fn inside a transaction: commit when fn returns nil, roll back
// everything otherwise. Partial state never survives.
type Store interface {
	InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

type CouponSource interface {
	FindByCode(ctx context.Context, restaurantID, code string) (*campaigns.Campaign, error)
	IncrementUsage(ctx context.Context, campaignID string) error
}

type Engine struct {
	store   Store
	coupons CouponSource
	now     func() time.Time
}

func NewEngine(store Store, coupons CouponSource) *Engine {
	return &Engine{store: store, coupons: coupons, now: time.Now}
}

type CheckoutItem struct {
	ProductID string
	Qty       int
	Note      string
}

type CheckoutInput struct {
	RestaurantID  string
	RequestKey    string // client idempotency key; empty disables the check
	Type          OrderType
	TableNumber   *int
	CustomerName  string
	CustomerPhone string
	CouponCode    string
	Items         []CheckoutItem
}

// Checkout creates an order in pending status. No stock is committed here;
// reservation happens when an admin moves the order into fulfillment. Prices
// are snapshotted from the products table, never taken from the client.
func (e *Engine) Checkout(ctx context.Context, in CheckoutInput) (*Order, error) {
	if len(in.Items) == 0 {
		return nil, ErrEmptyOrder
	}
	for _, it := range in.Items {
		if it.Qty < 1 {
			return nil, ErrInvalidQty
		}
	}

	var camp *campaigns.Campaign
	if in.CouponCode != "" {
		c, err := e.coupons.FindByCode(ctx, in.RestaurantID, in.CouponCode)
		if err != nil {
			return nil, err
		}
		camp = c
	}

	var out *Order
	created := false
	err := e.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		if in.RequestKey != "" {
			existing, err := tx.FindByRequestKey(ctx, in.RestaurantID, in.RequestKey)
			if err != nil && !errors.Is(err, ErrOrderNotFound) {
				return err
			}
			if existing != nil {
				out = existing
				return nil
			}
		}

		ids := make([]string, 0, len(in.Items))
		for _, it := range in.Items {
			ids = append(ids, it.ProductID)
		}
		prices, err := tx.PriceProducts(ctx, in.RestaurantID, ids)
		if err != nil {
			return err
		}

		now := e.now().UTC()
		o := &Order{
			ID:            uuid.NewString(),
			Number:        GenerateNumber(now),
			RestaurantID:  in.RestaurantID,
			RequestKey:    in.RequestKey,
			Status:        StatusPending,
			Type:          in.Type,
			TableNumber:   in.TableNumber,
			CustomerName:  in.CustomerName,
			CustomerPhone: in.CustomerPhone,
			PaymentStatus: PaymentUnpaid,
			CreatedAt:     now,
			UpdatedAt:     now,
		}

		subtotal := decimal.Zero
		for _, it := range in.Items {
			p, ok := prices[it.ProductID]
			if !ok {
				return ErrProductNotFound
			}
			if !p.IsAvailable {
				return &ProductUnavailableError{Product: p.Name}
			}
			o.Items = append(o.Items, OrderItem{
				ID:        uuid.NewString(),
				OrderID:   o.ID,
				ProductID: p.ID,
				Name:      p.Name,
				Qty:       it.Qty,
				UnitPrice: p.Price,
				Note:      it.Note,
			})
			subtotal = subtotal.Add(p.Price.Mul(decimal.NewFromInt(int64(it.Qty))))
		}

		discount := decimal.Zero
		if camp != nil {
			discount, err = campaigns.Evaluate(camp, subtotal, now)
			if err != nil {
				return err
			}
			o.CouponCode = camp.Code
		}
		o.Subtotal = subtotal
		o.Discount = discount
		o.Total = subtotal.Sub(discount)

		if err := tx.InsertOrder(ctx, o); err != nil {
			return err
		}
		out = o
		created = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	// Usage tracking is best-effort and deliberately outside the order
	// transaction; an idempotent replay must not count twice.
	if camp != nil && created {
		_ = e.coupons.IncrementUsage(ctx, camp.ID)
	}
	return out, nil
}

// RequestTransition moves an order to target and keeps stock consistent with
// the status classification, all in one transaction. Entering fulfillment
// reserves every line item and aborts on the first shortfall; leaving it
// returns the stock.
func (e *Engine) RequestTransition(ctx context.Context, restaurantID, orderID string, target Status, contact *Contact) (*Order, Status, error) {
	var out *Order
	var from Status
	err := e.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		o, err := tx.OrderForUpdate(ctx, restaurantID, orderID)
		if err != nil {
			return err
		}
		from = o.Status

		switch planStock(o.Status, target) {
		case stockReserve:
			for _, it := range o.Items {
				if err := tx.TryReserve(ctx, it.ProductID, it.Qty); err != nil {
					return err
				}
			}
		case stockRelease:
			for _, it := range o.Items {
				if err := tx.Release(ctx, it.ProductID, it.Qty); err != nil {
					return err
				}
			}
		}

		if err := tx.SetStatus(ctx, o.ID, target, contact); err != nil {
			return err
		}
		o.Status = target
		if contact != nil {
			o.CustomerName = contact.Name
			o.CustomerPhone = contact.Phone
		}
		o.UpdatedAt = e.now().UTC()
		out = o
		return nil
	})
	if err != nil {
		return nil, "", err
	}
	return out, from, nil
}

// Delete removes an order and its items. If the order currently holds stock
// it is returned first, in the same transaction.
func (e *Engine) Delete(ctx context.Context, restaurantID, orderID string) error {
	return e.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		o, err := tx.OrderForUpdate(ctx, restaurantID, orderID)
		if err != nil {
			return err
		}
		if IsStockDeducted(o.Status) {
			for _, it := range o.Items {
				if err := tx.Release(ctx, it.ProductID, it.Qty); err != nil {
					return err
				}
			}
		}
		return tx.DeleteOrder(ctx, o.ID)
	})
}

// ApplyPayment records a gateway's terminal verdict on the order. Payment
// state is orthogonal to fulfillment: this never drives the status machine.
func (e *Engine) ApplyPayment(ctx context.Context, restaurantID, orderID string, st PaymentStatus, method string) error {
	return e.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		o, err := tx.OrderForUpdate(ctx, restaurantID, orderID)
		if err != nil {
			return err
		}
		return tx.SetPayment(ctx, o.ID, st, method)
	})
}
