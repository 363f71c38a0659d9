package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/ariefcatur/shop-checkout/internal/config"
	kafkax "github.com/ariefcatur/shop-checkout/internal/kafka"
	"github.com/ariefcatur/shop-checkout/internal/logging"
	"github.com/ariefcatur/shop-checkout/internal/postgres"
	"github.com/ariefcatur/shop-checkout/internal/redisx"
	"github.com/ariefcatur/shop-checkout/internal/sessions"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	log, err := logging.New(cfg.LogLevel, cfg.ServiceName+"-sessions")
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatal("db connect", zap.Error(err))
	}
	defer db.Close()
	store := postgres.New(db)
	if err := store.Migrate(ctx); err != nil {
		log.Fatal("db migrate", zap.Error(err))
	}

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	rec := &sessions.Recorder{Store: store, Redis: rdb, Logger: log}
	cons := kafkax.NewConsumer(cfg.KafkaBrokers, cfg.SessionsGroup, sessions.Topic, cfg.SessionsWorkers, log)

	done := make(chan struct{})
	go func() {
		defer close(done)
		log.Info("sessions consumer started",
			zap.String("group", cfg.SessionsGroup),
			zap.String("topic", sessions.Topic),
			zap.Int("workers", cfg.SessionsWorkers),
		)
		if err := cons.Start(ctx, rec.HandleMessage); err != nil {
			log.Error("consumer exit", zap.Error(err))
			cancel()
		}
	}()

	// graceful shutdown
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sig:
		log.Info("shutting down consumer")
	case <-ctx.Done():
	}
	cancel()
	<-done
}
