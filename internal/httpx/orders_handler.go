package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/menuqr/qrmenu-orders/internal/campaigns"
	kafkax "github.com/menuqr/qrmenu-orders/internal/kafka"
	"github.com/menuqr/qrmenu-orders/internal/orders"
	"github.com/menuqr/qrmenu-orders/internal/redisx"
)

type OrdersHandler struct {
	Engine         *orders.Engine
	Repo           *orders.Repo
	Coupons        *campaigns.Repo
	ProducerNew    *kafkax.Producer // order.created
	ProducerStatus *kafkax.Producer // order.status.changed
	ProducerDel    *kafkax.Producer // order.deleted
	Redis          *redis.Client
	Service        string
	Log            *zap.Logger
}

func (h *OrdersHandler) Register(r *chi.Mux) {
	r.Post("/restaurants/{rid}/checkout", h.checkout)
	r.Post("/restaurants/{rid}/coupons/validate", h.validateCoupon)
	r.Get("/track/{number}", h.track)

	r.Route("/admin/restaurants/{rid}/orders", func(r chi.Router) {
		r.Get("/", h.listOrders)
		r.Get("/{id}", h.getOrder)
		r.Patch("/{id}/status", h.updateStatus)
		r.Delete("/{id}", h.deleteOrder)
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeErr maps domain errors onto HTTP codes; the message is shown to the
// admin or customer as-is.
func writeErr(w http.ResponseWriter, err error) {
	var insufficient *orders.InsufficientStockError
	var unavailable *orders.ProductUnavailableError
	var coupon *campaigns.CouponError
	switch {
	case errors.Is(err, orders.ErrOrderNotFound),
		errors.Is(err, orders.ErrProductNotFound),
		errors.Is(err, campaigns.ErrCouponNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.As(err, &insufficient), errors.As(err, &unavailable):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	case errors.As(err, &coupon),
		errors.Is(err, orders.ErrInvalidStatus),
		errors.Is(err, orders.ErrEmptyOrder),
		errors.Is(err, orders.ErrInvalidQty):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
	default:
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
}

type checkoutItemReq struct {
	ProductID string `json:"product_id"`
	Qty       int    `json:"qty"`
	Note      string `json:"note,omitempty"`
}

type checkoutReq struct {
	RequestKey    string            `json:"request_key,omitempty"`
	OrderType     string            `json:"order_type"`
	TableNumber   *int              `json:"table_number,omitempty"`
	CustomerName  string            `json:"customer_name"`
	CustomerPhone string            `json:"customer_phone"`
	CouponCode    string            `json:"coupon_code,omitempty"`
	Items         []checkoutItemReq `json:"items"`
}

type orderItemResp struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	Qty       int    `json:"qty"`
	UnitPrice string `json:"unit_price"`
	Note      string `json:"note,omitempty"`
}

type orderResp struct {
	OrderID       string          `json:"order_id"`
	Number        string          `json:"number"`
	Status        string          `json:"status"`
	OrderType     string          `json:"order_type"`
	TableNumber   *int            `json:"table_number,omitempty"`
	CustomerName  string          `json:"customer_name"`
	CustomerPhone string          `json:"customer_phone"`
	CouponCode    string          `json:"coupon_code,omitempty"`
	Subtotal      string          `json:"subtotal"`
	Discount      string          `json:"discount"`
	Total         string          `json:"total"`
	PaymentStatus string          `json:"payment_status"`
	PaymentMethod string          `json:"payment_method,omitempty"`
	Items         []orderItemResp `json:"items,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

func toOrderResp(o *orders.Order) orderResp {
	resp := orderResp{
		OrderID:       o.ID,
		Number:        o.Number,
		Status:        string(o.Status),
		OrderType:     string(o.Type),
		TableNumber:   o.TableNumber,
		CustomerName:  o.CustomerName,
		CustomerPhone: o.CustomerPhone,
		CouponCode:    o.CouponCode,
		Subtotal:      o.Subtotal.StringFixed(2),
		Discount:      o.Discount.StringFixed(2),
		Total:         o.Total.StringFixed(2),
		PaymentStatus: string(o.PaymentStatus),
		PaymentMethod: o.PaymentMethod,
		CreatedAt:     o.CreatedAt,
	}
	for _, it := range o.Items {
		resp.Items = append(resp.Items, orderItemResp{
			ProductID: it.ProductID,
			Name:      it.Name,
			Qty:       it.Qty,
			UnitPrice: it.UnitPrice.StringFixed(2),
			Note:      it.Note,
		})
	}
	return resp
}

func (h *OrdersHandler) checkout(w http.ResponseWriter, r *http.Request) {
	var req checkoutReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	rid := chi.URLParam(r, "rid")
	if rid == "" || len(req.Items) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing fields"})
		return
	}
	orderType := orders.TypeDineIn
	if req.OrderType == string(orders.TypeTakeaway) {
		orderType = orders.TypeTakeaway
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	in := orders.CheckoutInput{
		RestaurantID:  rid,
		RequestKey:    req.RequestKey,
		Type:          orderType,
		TableNumber:   req.TableNumber,
		CustomerName:  req.CustomerName,
		CustomerPhone: req.CustomerPhone,
		CouponCode:    req.CouponCode,
	}
	for _, it := range req.Items {
		in.Items = append(in.Items, orders.CheckoutItem{ProductID: it.ProductID, Qty: it.Qty, Note: it.Note})
	}

	o, err := h.Engine.Checkout(ctx, in)
	if err != nil {
		writeErr(w, err)
		return
	}

	h.cacheTracking(ctx, o)
	h.publishCreated(o, r.Header.Get("X-Request-Id"))
	h.Log.Info("order created",
		zap.String("order_id", o.ID), zap.String("number", o.Number),
		zap.String("restaurant_id", o.RestaurantID), zap.String("total", o.Total.StringFixed(2)))
	writeJSON(w, http.StatusCreated, toOrderResp(o))
}

type validateCouponReq struct {
	Code     string `json:"code"`
	Subtotal string `json:"subtotal"`
}

func (h *OrdersHandler) validateCoupon(w http.ResponseWriter, r *http.Request) {
	var req validateCouponReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	subtotal, err := decimal.NewFromString(req.Subtotal)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid subtotal"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	c, err := h.Coupons.FindByCode(ctx, chi.URLParam(r, "rid"), req.Code)
	if err != nil {
		writeErr(w, err)
		return
	}
	discount, err := campaigns.Evaluate(c, subtotal, time.Now().UTC())
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"code":     c.Code,
		"discount": discount.StringFixed(2),
		"total":    subtotal.Sub(discount).StringFixed(2),
	})
}

func (h *OrdersHandler) track(w http.ResponseWriter, r *http.Request) {
	number := chi.URLParam(r, "number")
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	key := fmt.Sprintf(redisx.KeyTrack, number)
	if s, err := h.Redis.Get(ctx, key).Result(); err == nil && s != "" {
		writeJSON(w, http.StatusOK, json.RawMessage(s))
		return
	}

	o, err := h.Repo.GetByNumber(ctx, number)
	if err != nil {
		writeErr(w, err)
		return
	}
	h.cacheTracking(ctx, o)
	writeJSON(w, http.StatusOK, map[string]any{
		"status":         o.Status,
		"payment_status": o.PaymentStatus,
	})
}

func (h *OrdersHandler) listOrders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	var status *orders.Status
	if s := r.URL.Query().Get("status"); s != "" {
		st, err := orders.ParseStatus(s)
		if err != nil {
			writeErr(w, err)
			return
		}
		status = &st
	}
	list, err := h.Repo.ListByRestaurant(ctx, chi.URLParam(r, "rid"), status, 100)
	if err != nil {
		writeErr(w, err)
		return
	}
	out := make([]orderResp, 0, len(list))
	for i := range list {
		out = append(out, toOrderResp(&list[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *OrdersHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	o, err := h.Repo.GetByID(ctx, chi.URLParam(r, "rid"), chi.URLParam(r, "id"))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResp(o))
}

type updateStatusReq struct {
	Status        string  `json:"status"`
	CustomerName  *string `json:"customer_name,omitempty"`
	CustomerPhone *string `json:"customer_phone,omitempty"`
}

func (h *OrdersHandler) updateStatus(w http.ResponseWriter, r *http.Request) {
	var req updateStatusReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	target, err := orders.ParseStatus(req.Status)
	if err != nil {
		writeErr(w, err)
		return
	}
	var contact *orders.Contact
	if req.CustomerName != nil || req.CustomerPhone != nil {
		contact = &orders.Contact{}
		if req.CustomerName != nil {
			contact.Name = *req.CustomerName
		}
		if req.CustomerPhone != nil {
			contact.Phone = *req.CustomerPhone
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	rid, id := chi.URLParam(r, "rid"), chi.URLParam(r, "id")
	o, from, err := h.Engine.RequestTransition(ctx, rid, id, target, contact)
	if err != nil {
		writeErr(w, err)
		return
	}

	h.cacheTracking(ctx, o)
	h.publishStatusChanged(o, from, r.Header.Get("X-Request-Id"))
	h.Log.Info("order status changed",
		zap.String("order_id", o.ID), zap.String("from", string(from)), zap.String("to", string(o.Status)))
	writeJSON(w, http.StatusOK, toOrderResp(o))
}

func (h *OrdersHandler) deleteOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	rid, id := chi.URLParam(r, "rid"), chi.URLParam(r, "id")
	if err := h.Engine.Delete(ctx, rid, id); err != nil {
		writeErr(w, err)
		return
	}

	ev := h.envelope(orders.EventOrderDeleted, id, r.Header.Get("X-Request-Id"))
	ev.Payload = kafkax.MustMarshal(orders.OrderDeletedPayload{OrderID: id, RestaurantID: rid})
	h.ProducerDel.Publish(orders.PartitionKey(id), kafkax.MustMarshal(ev), eventHeaders(ev)...)

	h.Log.Info("order deleted", zap.String("order_id", id), zap.String("restaurant_id", rid))
	w.WriteHeader(http.StatusNoContent)
}

func (h *OrdersHandler) cacheTracking(ctx context.Context, o *orders.Order) {
	body, _ := json.Marshal(map[string]any{
		"status":         o.Status,
		"payment_status": o.PaymentStatus,
	})
	_ = h.Redis.Set(ctx, fmt.Sprintf(redisx.KeyTrack, o.Number), body, redisx.TTLTrack).Err()
}

func (h *OrdersHandler) envelope(eventType, orderID, trace string) orders.Envelope {
	return orders.Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      h.Service,
		TraceID:       trace,
		CorrelationID: orderID,
	}
}

func eventHeaders(ev orders.Envelope) []kafkago.Header {
	return []kafkago.Header{
		{Key: "x-event-type", Value: []byte(ev.EventType)},
		{Key: "x-event-version", Value: []byte("1")},
	}
}

func (h *OrdersHandler) publishCreated(o *orders.Order, trace string) {
	ev := h.envelope(orders.EventOrderCreated, o.ID, trace)
	items := make([]orders.EventItem, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, orders.EventItem{ProductID: it.ProductID, Name: it.Name, Qty: it.Qty})
	}
	ev.Payload = kafkax.MustMarshal(orders.OrderCreatedPayload{
		OrderID:      o.ID,
		Number:       o.Number,
		RestaurantID: o.RestaurantID,
		Items:        items,
		Total:        o.Total.StringFixed(2),
		CouponCode:   o.CouponCode,
	})
	h.ProducerNew.Publish(orders.PartitionKey(o.ID), kafkax.MustMarshal(ev), eventHeaders(ev)...)
}

func (h *OrdersHandler) publishStatusChanged(o *orders.Order, from orders.Status, trace string) {
	ev := h.envelope(orders.EventStatusChanged, o.ID, trace)
	ev.Payload = kafkax.MustMarshal(orders.StatusChangedPayload{
		OrderID:      o.ID,
		Number:       o.Number,
		RestaurantID: o.RestaurantID,
		From:         from,
		To:           o.Status,
	})
	h.ProducerStatus.Publish(orders.PartitionKey(o.ID), kafkax.MustMarshal(ev), eventHeaders(ev)...)
}
