package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/menuqr/qrmenu-orders/internal/campaigns"
	"github.com/menuqr/qrmenu-orders/internal/config"
	kafkax "github.com/menuqr/qrmenu-orders/internal/kafka"
	"github.com/menuqr/qrmenu-orders/internal/logging"
	"github.com/menuqr/qrmenu-orders/internal/orders"
	"github.com/menuqr/qrmenu-orders/internal/payments"
	"github.com/menuqr/qrmenu-orders/internal/postgres"
	"github.com/menuqr/qrmenu-orders/internal/redisx"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	log := logging.New(cfg.AppEnv, cfg.ServiceName+"-payments")
	defer func() { _ = log.Sync() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatal("db connect", zap.Error(err))
	}
	defer db.Close()

	rdb := redisx.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	defer rdb.Close()

	repo := &orders.Repo{DB: db}
	svc := &payments.Service{
		Engine:      orders.NewEngine(repo, &campaigns.Repo{DB: db}),
		Repo:        repo,
		Redis:       rdb,
		ServiceName: cfg.ServiceName + "-payments",
		Log:         log,
	}

	cons := kafkax.NewConsumer(cfg.KafkaBrokers, cfg.PaymentGroup, orders.TopicPaymentResult, cfg.PaymentWorkers, log)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("payment consumer started",
			zap.String("group", cfg.PaymentGroup),
			zap.String("topic", orders.TopicPaymentResult),
			zap.Int("workers", cfg.PaymentWorkers))
		return cons.Start(gctx, svc.HandlePaymentResult)
	})
	g.Go(func() error {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		select {
		case <-sig:
			log.Info("shutting down consumer")
			cancel()
		case <-gctx.Done():
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Error("consumer exit", zap.Error(err))
	}
}
