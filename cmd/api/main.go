package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/ibex-commerce/storefront/internal/cart"
	"github.com/ibex-commerce/storefront/internal/catalog"
	"github.com/ibex-commerce/storefront/internal/checkout"
	"github.com/ibex-commerce/storefront/internal/config"
	"github.com/ibex-commerce/storefront/internal/httpx"
	kafkax "github.com/ibex-commerce/storefront/internal/kafka"
	"github.com/ibex-commerce/storefront/internal/ledger"
	"github.com/ibex-commerce/storefront/internal/logging"
	"github.com/ibex-commerce/storefront/internal/postgres"
	"github.com/ibex-commerce/storefront/internal/redisx"
	"github.com/ibex-commerce/storefront/internal/reports"
	"github.com/ibex-commerce/storefront/internal/shop"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	log := logging.Init(cfg.ServiceName, cfg.LogFile)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Error("db connect", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Kafka producer for finalized orders
	prod := kafkax.NewProducer(cfg.KafkaBrokers, shop.TopicOrderFinalized, 1024, logging.New("kafka-producer"))
	prod.Start(ctx)

	// Repos & services
	catalogRepo := &catalog.Repo{DB: db}
	cartSvc := cart.NewService(catalogRepo, &cart.PGStore{DB: db}, logging.New("cart"))
	finalizer := checkout.NewFinalizer(&checkout.PGStore{DB: db}, logging.New("checkout"))
	ledgerRepo := &ledger.Repo{DB: db}
	reportsRepo := &reports.Repo{DB: db}

	router := httpx.NewRouter()
	(&httpx.CatalogHandler{Repo: catalogRepo}).Register(router)
	(&httpx.CartHandler{Cart: cartSvc}).Register(router)
	(&httpx.CheckoutHandler{
		Finalizer: finalizer,
		Redis:     rdb,
		Producer:  prod,
		Service:   cfg.ServiceName,
	}).Register(router)
	(&httpx.OrdersHandler{Ledger: ledgerRepo}).Register(router)
	(&httpx.ReportsHandler{Reports: reportsRepo, Redis: rdb}).Register(router)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	go func() {
		log.Info("HTTP listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("listen", "err", err)
			os.Exit(1)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info("shutting down")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)
	prod.Close()
	cancel()
	prod.WaitClosed()
}
