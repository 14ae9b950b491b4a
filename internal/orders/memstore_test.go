package orders

import (
	"context"
	"sync"

	"github.com/menuqr/qrmenu-orders/internal/campaigns"
	"github.com/shopspring/decimal"
)

// memStore is an in-memory Store used by the engine tests. Transactions are
// serialized by a mutex and rolled back by restoring a snapshot, mirroring
// what the database gives the pgx implementation.
type memProduct struct {
	ID           string
	RestaurantID string
	Name         string
	Price        decimal.Decimal
	Stock        *int // nil = unlimited
	Available    bool
}

type memStore struct {
	mu       sync.Mutex
	products map[string]*memProduct
	orders   map[string]*Order
	byKey    map[string]string // restaurantID|requestKey -> orderID
}

func newMemStore() *memStore {
	return &memStore{
		products: map[string]*memProduct{},
		orders:   map[string]*Order{},
		byKey:    map[string]string{},
	}
}

func intPtr(v int) *int { return &v }

func (s *memStore) addProduct(p memProduct) {
	cp := p
	if p.Stock != nil {
		cp.Stock = intPtr(*p.Stock)
	}
	s.products[p.ID] = &cp
}

func (s *memStore) stockOf(id string) *int {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.products[id].Stock
	if st == nil {
		return nil
	}
	return intPtr(*st)
}

func (s *memStore) orderByID(id string) *Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return nil
	}
	return copyOrder(o)
}

func copyOrder(o *Order) *Order {
	cp := *o
	cp.Items = append([]OrderItem(nil), o.Items...)
	if o.TableNumber != nil {
		cp.TableNumber = intPtr(*o.TableNumber)
	}
	return &cp
}

type snapshot struct {
	products map[string]*memProduct
	orders   map[string]*Order
	byKey    map[string]string
}

func (s *memStore) snapshot() snapshot {
	snap := snapshot{
		products: map[string]*memProduct{},
		orders:   map[string]*Order{},
		byKey:    map[string]string{},
	}
	for id, p := range s.products {
		cp := *p
		if p.Stock != nil {
			cp.Stock = intPtr(*p.Stock)
		}
		snap.products[id] = &cp
	}
	for id, o := range s.orders {
		snap.orders[id] = copyOrder(o)
	}
	for k, v := range s.byKey {
		snap.byKey[k] = v
	}
	return snap
}

func (s *memStore) restore(snap snapshot) {
	s.products = snap.products
	s.orders = snap.orders
	s.byKey = snap.byKey
}

func (s *memStore) InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := s.snapshot()
	if err := fn(ctx, &memTx{s: s}); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

type memTx struct{ s *memStore }

func (t *memTx) OrderForUpdate(ctx context.Context, restaurantID, orderID string) (*Order, error) {
	o, ok := t.s.orders[orderID]
	if !ok || o.RestaurantID != restaurantID {
		return nil, ErrOrderNotFound
	}
	return copyOrder(o), nil
}

func (t *memTx) TryReserve(ctx context.Context, productID string, qty int) error {
	p, ok := t.s.products[productID]
	if !ok {
		return ErrProductNotFound
	}
	if !p.Available {
		return &ProductUnavailableError{Product: p.Name}
	}
	if p.Stock == nil {
		return nil
	}
	if *p.Stock < qty {
		return &InsufficientStockError{Product: p.Name, Requested: qty, Remaining: *p.Stock}
	}
	*p.Stock -= qty
	return nil
}

func (t *memTx) Release(ctx context.Context, productID string, qty int) error {
	p, ok := t.s.products[productID]
	if !ok || p.Stock == nil {
		return nil
	}
	*p.Stock += qty
	return nil
}

func (t *memTx) SetStatus(ctx context.Context, orderID string, st Status, contact *Contact) error {
	o, ok := t.s.orders[orderID]
	if !ok {
		return ErrOrderNotFound
	}
	o.Status = st
	if contact != nil {
		o.CustomerName = contact.Name
		o.CustomerPhone = contact.Phone
	}
	return nil
}

func (t *memTx) SetPayment(ctx context.Context, orderID string, st PaymentStatus, method string) error {
	o, ok := t.s.orders[orderID]
	if !ok {
		return ErrOrderNotFound
	}
	o.PaymentStatus = st
	o.PaymentMethod = method
	return nil
}

func (t *memTx) PriceProducts(ctx context.Context, restaurantID string, ids []string) (map[string]PricedProduct, error) {
	out := map[string]PricedProduct{}
	for _, id := range ids {
		p, ok := t.s.products[id]
		if !ok || p.RestaurantID != restaurantID {
			continue
		}
		out[id] = PricedProduct{ID: p.ID, Name: p.Name, Price: p.Price, IsAvailable: p.Available}
	}
	return out, nil
}

func (t *memTx) InsertOrder(ctx context.Context, o *Order) error {
	t.s.orders[o.ID] = copyOrder(o)
	if o.RequestKey != "" {
		t.s.byKey[o.RestaurantID+"|"+o.RequestKey] = o.ID
	}
	return nil
}

func (t *memTx) DeleteOrder(ctx context.Context, orderID string) error {
	o, ok := t.s.orders[orderID]
	if !ok {
		return ErrOrderNotFound
	}
	if o.RequestKey != "" {
		delete(t.s.byKey, o.RestaurantID+"|"+o.RequestKey)
	}
	delete(t.s.orders, orderID)
	return nil
}

func (t *memTx) FindByRequestKey(ctx context.Context, restaurantID, key string) (*Order, error) {
	id, ok := t.s.byKey[restaurantID+"|"+key]
	if !ok {
		return nil, ErrOrderNotFound
	}
	return copyOrder(t.s.orders[id]), nil
}

// memCoupons is a CouponSource backed by a map, for checkout tests.
type memCoupons struct {
	mu         sync.Mutex
	byCode     map[string]*campaigns.Campaign // restaurantID|CODE
	increments map[string]int
}

func newMemCoupons() *memCoupons {
	return &memCoupons{byCode: map[string]*campaigns.Campaign{}, increments: map[string]int{}}
}

func (m *memCoupons) add(c campaigns.Campaign) {
	m.byCode[c.RestaurantID+"|"+c.Code] = &c
}

func (m *memCoupons) FindByCode(ctx context.Context, restaurantID, code string) (*campaigns.Campaign, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.byCode[restaurantID+"|"+campaigns.NormalizeCode(code)]
	if !ok {
		return nil, campaigns.ErrCouponNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *memCoupons) IncrementUsage(ctx context.Context, campaignID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.increments[campaignID]++
	return nil
}
