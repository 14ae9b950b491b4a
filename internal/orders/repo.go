package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repo struct{ DB *pgxpool.Pool }

// InTx is the scoped-transaction boundary: fn sees the database through the
// Tx interface, a non-nil error rolls everything back.
func (r *Repo) InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(ctx, &pgTx{tx: tx}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const orderColumns = `id, number, restaurant_id, status, order_type, table_number,
	customer_name, customer_phone, coupon_code, subtotal, discount, total,
	payment_status, payment_method, created_at, updated_at`

func scanOrder(row pgx.Row) (*Order, error) {
	var o Order
	err := row.Scan(
		&o.ID, &o.Number, &o.RestaurantID, &o.Status, &o.Type, &o.TableNumber,
		&o.CustomerName, &o.CustomerPhone, &o.CouponCode, &o.Subtotal, &o.Discount, &o.Total,
		&o.PaymentStatus, &o.PaymentMethod, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return &o, nil
}

func loadItems(ctx context.Context, q querier, orderID string) ([]OrderItem, error) {
	rows, err := q.Query(ctx, `
		SELECT id, order_id, product_id, name, qty, unit_price, note
		FROM order_items WHERE order_id = $1 ORDER BY id`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []OrderItem
	for rows.Next() {
		var it OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.Name, &it.Qty, &it.UnitPrice, &it.Note); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// GetByID loads one order with items, scoped to the restaurant.
func (r *Repo) GetByID(ctx context.Context, restaurantID, orderID string) (*Order, error) {
	o, err := scanOrder(r.DB.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = $1 AND restaurant_id = $2`,
		orderID, restaurantID))
	if err != nil {
		return nil, err
	}
	o.Items, err = loadItems(ctx, r.DB, o.ID)
	return o, err
}

// GetByNumber serves the customer tracking page; order numbers are globally
// unique so no restaurant scope applies.
func (r *Repo) GetByNumber(ctx context.Context, number string) (*Order, error) {
	o, err := scanOrder(r.DB.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE number = $1`, number))
	if err != nil {
		return nil, err
	}
	o.Items, err = loadItems(ctx, r.DB, o.ID)
	return o, err
}

// ListByRestaurant returns the admin order board, newest first, optionally
// filtered by status.
func (r *Repo) ListByRestaurant(ctx context.Context, restaurantID string, status *Status, limit int) ([]Order, error) {
	if limit <= 0 || limit > 200 {
		limit = 100
	}
	q := `SELECT ` + orderColumns + ` FROM orders WHERE restaurant_id = $1`
	args := []any{restaurantID}
	if status != nil {
		q += ` AND status = $2`
		args = append(args, *status)
	}
	q += fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d`, len(args)+1)
	args = append(args, limit)

	rows, err := r.DB.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Order
	for rows.Next() {
		var o Order
		if err := rows.Scan(
			&o.ID, &o.Number, &o.RestaurantID, &o.Status, &o.Type, &o.TableNumber,
			&o.CustomerName, &o.CustomerPhone, &o.CouponCode, &o.Subtotal, &o.Discount, &o.Total,
			&o.PaymentStatus, &o.PaymentMethod, &o.CreatedAt, &o.UpdatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

type pgTx struct{ tx pgx.Tx }

func (t *pgTx) OrderForUpdate(ctx context.Context, restaurantID, orderID string) (*Order, error) {
	o, err := scanOrder(t.tx.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = $1 AND restaurant_id = $2 FOR UPDATE`,
		orderID, restaurantID))
	if err != nil {
		return nil, err
	}
	o.Items, err = loadItems(ctx, t.tx, o.ID)
	return o, err
}

// TryReserve is a single conditional update so two concurrent reservations
// can never both pass a stale read. NULL stock (unlimited) matches the guard
// and NULL - qty stays NULL, so unlimited rows are never mutated.
func (t *pgTx) TryReserve(ctx context.Context, productID string, qty int) error {
	ct, err := t.tx.Exec(ctx, `
		UPDATE products SET stock = stock - $2, updated_at = now()
		WHERE id = $1 AND is_available AND (stock IS NULL OR stock >= $2)`,
		productID, qty)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 1 {
		return nil
	}

	// Diagnose why the guard failed; the row lock keeps the answer stable
	// until this transaction ends.
	var name string
	var stock *int
	var available bool
	err = t.tx.QueryRow(ctx,
		`SELECT name, stock, is_available FROM products WHERE id = $1 FOR UPDATE`,
		productID).Scan(&name, &stock, &available)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrProductNotFound
		}
		return err
	}
	if !available {
		return &ProductUnavailableError{Product: name}
	}
	remaining := 0
	if stock != nil {
		remaining = *stock
	}
	return &InsufficientStockError{Product: name, Requested: qty, Remaining: remaining}
}

// Release returns stock unconditionally; a product marked unavailable in the
// meantime still gets its units back. Unlimited rows are left untouched.
func (t *pgTx) Release(ctx context.Context, productID string, qty int) error {
	_, err := t.tx.Exec(ctx, `
		UPDATE products SET stock = stock + $2, updated_at = now()
		WHERE id = $1 AND stock IS NOT NULL`,
		productID, qty)
	return err
}

func (t *pgTx) SetStatus(ctx context.Context, orderID string, st Status, contact *Contact) error {
	if contact != nil {
		_, err := t.tx.Exec(ctx, `
			UPDATE orders SET status = $2, customer_name = $3, customer_phone = $4, updated_at = now()
			WHERE id = $1`,
			orderID, st, contact.Name, contact.Phone)
		return err
	}
	_, err := t.tx.Exec(ctx, `UPDATE orders SET status = $2, updated_at = now() WHERE id = $1`, orderID, st)
	return err
}

func (t *pgTx) SetPayment(ctx context.Context, orderID string, st PaymentStatus, method string) error {
	_, err := t.tx.Exec(ctx, `
		UPDATE orders SET payment_status = $2, payment_method = $3, updated_at = now()
		WHERE id = $1`,
		orderID, st, method)
	return err
}

func (t *pgTx) PriceProducts(ctx context.Context, restaurantID string, ids []string) (map[string]PricedProduct, error) {
	rows, err := t.tx.Query(ctx, `
		SELECT id, name, price, is_available FROM products
		WHERE restaurant_id = $1 AND id = ANY($2)`,
		restaurantID, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string]PricedProduct{}
	for rows.Next() {
		var p PricedProduct
		if err := rows.Scan(&p.ID, &p.Name, &p.Price, &p.IsAvailable); err != nil {
			return nil, err
		}
		out[p.ID] = p
	}
	return out, rows.Err()
}

func (t *pgTx) InsertOrder(ctx context.Context, o *Order) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO orders (id, number, restaurant_id, request_key, status, order_type, table_number,
			customer_name, customer_phone, coupon_code, subtotal, discount, total,
			payment_status, payment_method, created_at, updated_at)
		VALUES ($1,$2,$3,NULLIF($4,''),$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)`,
		o.ID, o.Number, o.RestaurantID, o.RequestKey, o.Status, o.Type, o.TableNumber,
		o.CustomerName, o.CustomerPhone, o.CouponCode, o.Subtotal, o.Discount, o.Total,
		o.PaymentStatus, o.PaymentMethod, o.CreatedAt, o.UpdatedAt)
	if err != nil {
		return err
	}
	for _, it := range o.Items {
		if _, err := t.tx.Exec(ctx, `
			INSERT INTO order_items (id, order_id, product_id, name, qty, unit_price, note)
			VALUES ($1,$2,$3,$4,$5,$6,$7)`,
			it.ID, it.OrderID, it.ProductID, it.Name, it.Qty, it.UnitPrice, it.Note); err != nil {
			return err
		}
	}
	return nil
}

func (t *pgTx) DeleteOrder(ctx context.Context, orderID string) error {
	if _, err := t.tx.Exec(ctx, `DELETE FROM order_items WHERE order_id = $1`, orderID); err != nil {
		return err
	}
	_, err := t.tx.Exec(ctx, `DELETE FROM orders WHERE id = $1`, orderID)
	return err
}

func (t *pgTx) FindByRequestKey(ctx context.Context, restaurantID, key string) (*Order, error) {
	o, err := scanOrder(t.tx.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE restaurant_id = $1 AND request_key = $2`,
		restaurantID, key))
	if err != nil {
		return nil, err
	}
	o.Items, err = loadItems(ctx, t.tx, o.ID)
	return o, err
}
