package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/menuqr/qrmenu-orders/internal/campaigns"
	"github.com/menuqr/qrmenu-orders/internal/config"
	"github.com/menuqr/qrmenu-orders/internal/httpx"
	kafkax "github.com/menuqr/qrmenu-orders/internal/kafka"
	"github.com/menuqr/qrmenu-orders/internal/logging"
	"github.com/menuqr/qrmenu-orders/internal/orders"
	"github.com/menuqr/qrmenu-orders/internal/postgres"
	"github.com/menuqr/qrmenu-orders/internal/redisx"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	log := logging.New(cfg.AppEnv, cfg.ServiceName)
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

	prodNew := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderCreated, 1024, log)
	prodNew.Start(ctx)
	prodStatus := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicStatusChanged, 1024, log)
	prodStatus.Start(ctx)
	prodDel := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderDeleted, 256, log)
	prodDel.Start(ctx)

	repo := &orders.Repo{DB: db}
	coupons := &campaigns.Repo{DB: db}
	engine := orders.NewEngine(repo, coupons)

	router := httpx.NewRouter()
	oh := &httpx.OrdersHandler{
		Engine:         engine,
		Repo:           repo,
		Coupons:        coupons,
		ProducerNew:    prodNew,
		ProducerStatus: prodStatus,
		ProducerDel:    prodDel,
		Redis:          rdb,
		Service:        cfg.ServiceName,
		Log:            log,
	}
	oh.Register(router)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	go func() {
		log.Info("HTTP listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("listen", zap.Error(err))
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info("shutting down")

	shutCtx, shutCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutCancel()
	_ = srv.Shutdown(shutCtx)

	prodNew.Close()
	prodStatus.Close()
	prodDel.Close()
	prodNew.WaitClosed()
	prodStatus.WaitClosed()
	prodDel.WaitClosed()
}
