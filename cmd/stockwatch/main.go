package main

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/ibex-commerce/storefront/internal/catalog"
	"github.com/ibex-commerce/storefront/internal/config"
	kafkax "github.com/ibex-commerce/storefront/internal/kafka"
	"github.com/ibex-commerce/storefront/internal/logging"
	"github.com/ibex-commerce/storefront/internal/postgres"
	"github.com/ibex-commerce/storefront/internal/redisx"
	"github.com/ibex-commerce/storefront/internal/shop"
	"github.com/ibex-commerce/storefront/internal/stockwatch"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	log := logging.Init(cfg.ServiceName+"-stockwatch", cfg.LogFile)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Error("db connect", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	svc := &stockwatch.Service{
		Catalog:     &catalog.Repo{DB: db},
		Redis:       rdb,
		Log:         logging.New("stockwatch"),
		ServiceName: cfg.ServiceName + "-stockwatch",
		Threshold:   cfg.LowStockThreshold,
	}

	group := getenv("STOCKWATCH_GROUP", "stockwatch-svc")
	workers := mustAtoi(os.Getenv("STOCKWATCH_WORKERS"), "4")
	cons := kafkax.NewConsumer(cfg.KafkaBrokers, group, shop.TopicOrderFinalized, workers, logging.New("kafka-consumer"))

	go func() {
		log.Info("consumer started", "group", group, "topic", shop.TopicOrderFinalized, "workers", workers)
		if err := cons.Start(ctx, svc.HandleOrderFinalized); err != nil {
			log.Error("consumer exit", "err", err)
			cancel()
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info("shutting down consumer")
	cancel()
	time.Sleep(500 * time.Millisecond)
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func mustAtoi(s, def string) int {
	if s == "" {
		s = def
	}
	i, err := strconv.Atoi(s)
	if err != nil {
		return 1
	}
	return i
}
