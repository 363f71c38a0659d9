package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ariefcatur/shop-checkout/internal/auth"
	"github.com/ariefcatur/shop-checkout/internal/config"
	"github.com/ariefcatur/shop-checkout/internal/httpx"
	kafkax "github.com/ariefcatur/shop-checkout/internal/kafka"
	"github.com/ariefcatur/shop-checkout/internal/logging"
	"github.com/ariefcatur/shop-checkout/internal/memstore"
	"github.com/ariefcatur/shop-checkout/internal/metrics"
	"github.com/ariefcatur/shop-checkout/internal/orders"
	"github.com/ariefcatur/shop-checkout/internal/postgres"
	"github.com/ariefcatur/shop-checkout/internal/redisx"
	"github.com/ariefcatur/shop-checkout/internal/sessions"
	"github.com/ariefcatur/shop-checkout/internal/tracing"
)

type backend interface {
	orders.Store
	auth.UserStore
	sessions.Store
}

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	log, err := logging.New(cfg.LogLevel, cfg.ServiceName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()
	if err := cfg.Validate(); err != nil {
		log.Fatal("invalid config", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTracing, err := tracing.Init(ctx, cfg.OTLPEndpoint, cfg.ServiceName)
	if err != nil {
		log.Fatal("tracing", zap.Error(err))
	}

	// Store
	var store backend
	switch cfg.Store {
	case "memory":
		ms := memstore.New()
		ms.Seed(time.Now().UTC())
		store = ms
		log.Info("using in-memory store with demo products")
	default:
		db, err := postgres.Connect(ctx, cfg.PostgresDSN)
		if err != nil {
			log.Fatal("db connect", zap.Error(err))
		}
		defer db.Close()
		pg := postgres.New(db)
		if err := pg.Migrate(ctx); err != nil {
			log.Fatal("db migrate", zap.Error(err))
		}
		if cfg.SeedDemo {
			if err := pg.SeedProducts(ctx, memstore.DemoProducts(time.Now().UTC())); err != nil {
				log.Fatal("db seed", zap.Error(err))
			}
		}
		store = pg
	}

	// Redis is a shortcut layer; the service keeps working without it.
	var (
		cache       *redisx.Cache
		revocations auth.Revocations
	)
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()
	if err := pingRedis(ctx, rdb); err != nil {
		log.Warn("redis unavailable, running without cache and token revocation", zap.Error(err))
	} else {
		cache = &redisx.Cache{RDB: rdb}
		revocations = &redisx.TokenRevocations{RDB: rdb}
	}

	// Kafka producers, one per topic
	pCreated := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderCreated, 1024, log)
	pSucceeded := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicPaymentSucceeded, 1024, log)
	pFailed := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicPaymentFailed, 1024, log)
	pSessions := kafkax.NewProducer(cfg.KafkaBrokers, sessions.Topic, 1024, log)
	producers := []*kafkax.Producer{pCreated, pSucceeded, pFailed, pSessions}
	for _, p := range producers {
		p.Start()
	}

	svc := orders.NewService(store, orders.Options{
		TaxRate:    orders.TaxRate(cfg.TaxRateBPS),
		Currencies: orders.Currencies{Base: cfg.BaseCurrency, Allowed: cfg.AllowedCurrencies},
		Outcomes:   orders.NewRandomOutcome(cfg.PaymentSuccessRate, time.Now().UnixNano()),
		Events: &orders.Notifier{
			Created:   pCreated,
			Succeeded: pSucceeded,
			Failed:    pFailed,
			Service:   cfg.ServiceName,
		},
		Logger: log,
	})
	// Without Postgres there is no cmd/sessions consumer to share the store
	// with, so login sessions are recorded in-process.
	var sessionEvents auth.SessionEvents = &sessions.Emitter{Producer: pSessions, Service: cfg.ServiceName}
	if cfg.Store == "memory" {
		sessionEvents = &sessions.Inline{Recorder: &sessions.Recorder{Store: store, Logger: log}}
	}
	authSvc := &auth.Service{
		Users:       store,
		Revocations: revocations,
		Sessions:    sessionEvents,
		Secret:      []byte(cfg.JWTSecret),
		TTL:         cfg.TokenTTL,
		Logger:      log,
	}

	m := metrics.New("shop")
	router := httpx.NewRouter(log, m)
	api := &httpx.API{
		Products:      &httpx.ProductsHandler{Service: svc, Cache: cache, Log: log},
		Auth:          &httpx.AuthHandler{Auth: authSvc, Log: log},
		Orders:        &httpx.OrdersHandler{Service: svc, Cache: cache, Metrics: m, Log: log},
		LoginDuration: &httpx.LoginDurationHandler{Durations: &sessions.Durations{Store: store}, Log: log},
	}
	api.Mount(router, log)

	// HTTP server
	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		log.Info("http listening", zap.String("addr", cfg.HTTPAddr), zap.String("store", cfg.Store))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("listen", zap.Error(err))
		}
	}()

	// wait signal
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info("shutting down")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	if err := srv.Shutdown(ctx2); err != nil {
		log.Warn("http shutdown", zap.Error(err))
	}
	for _, p := range producers {
		p.Close()
	}
	for _, p := range producers {
		p.WaitClosed()
	}
	if err := shutdownTracing(ctx2); err != nil {
		log.Warn("tracing shutdown", zap.Error(err))
	}
}

func pingRedis(ctx context.Context, rdb *redis.Client) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return rdb.Ping(ctx).Err()
}
