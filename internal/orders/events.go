package orders

import (
	"encoding/json"
	"time"
)

const (
	EventOrderCreated  = "OrderCreated"
	EventStatusChanged = "OrderStatusChanged"
	EventOrderDeleted  = "OrderDeleted"
	EventPaymentResult = "PaymentResult"
)

type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"` // order_id
	Payload       json.RawMessage `json:"payload"`
}

type EventItem struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	Qty       int    `json:"qty"`
}

type OrderCreatedPayload struct {
	OrderID      string      `json:"order_id"`
	Number       string      `json:"number"`
	RestaurantID string      `json:"restaurant_id"`
	Items        []EventItem `json:"items"`
	Total        string      `json:"total"`
	CouponCode   string      `json:"coupon_code,omitempty"`
}

type StatusChangedPayload struct {
	OrderID      string `json:"order_id"`
	Number       string `json:"number"`
	RestaurantID string `json:"restaurant_id"`
	From         Status `json:"from"`
	To           Status `json:"to"`
}

type OrderDeletedPayload struct {
	OrderID      string `json:"order_id"`
	RestaurantID string `json:"restaurant_id"`
}

// PaymentResultPayload is produced by the gateway bridge and consumed by
// cmd/payments. Status is a terminal verdict: paid or failed.
type PaymentResultPayload struct {
	OrderID      string `json:"order_id"`
	RestaurantID string `json:"restaurant_id"`
	Status       string `json:"status"`
	Method       string `json:"method"`
	ProviderRef  string `json:"provider_ref,omitempty"`
}
