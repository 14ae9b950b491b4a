package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	kafkax "github.com/menuqr/qrmenu-orders/internal/kafka"
	"github.com/menuqr/qrmenu-orders/internal/orders"
	"github.com/menuqr/qrmenu-orders/internal/redisx"
)

// Service applies gateway verdicts to orders. Payment state never drives the
// fulfillment status machine; it only flips payment_status/payment_method.
type Service struct {
	Engine      *orders.Engine
	Repo        *orders.Repo
	Redis       *redis.Client
	ServiceName string
	Log         *zap.Logger
}

// HandlePaymentResult is wired as the consumer handler for payment.result.
func (s *Service) HandlePaymentResult(ctx context.Context, m kafkago.Message) error {
	var env orders.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		return err
	}
	if env.EventType != orders.EventPaymentResult {
		return nil
	}

	// dedup by event_id; gateways retry webhooks aggressively
	dkey := fmt.Sprintf(redisx.KeyDedup, "payments", env.EventID)
	if seen, _ := redisx.Exists(ctx, s.Redis, dkey); seen {
		return nil
	}
	_ = s.Redis.Set(ctx, dkey, "1", redisx.TTLDedup).Err()

	p, err := kafkax.UnwrapPayload[orders.PaymentResultPayload](env.Payload)
	if err != nil {
		return err
	}

	var st orders.PaymentStatus
	switch p.Status {
	case "paid":
		st = orders.PaymentPaid
	case "failed":
		st = orders.PaymentFailed
	default:
		s.Log.Warn("ignoring non-terminal payment status",
			zap.String("order_id", p.OrderID), zap.String("status", p.Status))
		return nil
	}

	if err := s.Engine.ApplyPayment(ctx, p.RestaurantID, p.OrderID, st, p.Method); err != nil {
		if errors.Is(err, orders.ErrOrderNotFound) {
			// order deleted before the webhook landed; nothing to apply
			s.Log.Warn("payment result for missing order", zap.String("order_id", p.OrderID))
			return nil
		}
		return err
	}

	s.refreshTracking(ctx, p.RestaurantID, p.OrderID)
	s.Log.Info("payment applied",
		zap.String("order_id", p.OrderID), zap.String("status", string(st)), zap.String("method", p.Method))
	return nil
}

func (s *Service) refreshTracking(ctx context.Context, restaurantID, orderID string) {
	o, err := s.Repo.GetByID(ctx, restaurantID, orderID)
	if err != nil {
		return
	}
	body, _ := json.Marshal(map[string]any{
		"status":         o.Status,
		"payment_status": o.PaymentStatus,
	})
	_ = s.Redis.Set(ctx, fmt.Sprintf(redisx.KeyTrack, o.Number), body, redisx.TTLTrack).Err()
}
