// Command cartd runs the cart engine: the event store, the Decision
// Maker behind the HTTP command surface, the listener runtime's read
// models and automations, the durable retry queue, and the Kafka
// ingress/egress bridge — all sharing one process lifecycle managed
// by internal/supervisor. Grounded on bootstrap/bootstrap.go's
// wiring order and app/builder.go's functional-option composition.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/wyfcoding/cartd/internal/config"
	"github.com/wyfcoding/cartd/internal/database"
	"github.com/wyfcoding/cartd/internal/decision"
	"github.com/wyfcoding/cartd/internal/eventstore"
	"github.com/wyfcoding/cartd/internal/httpapi"
	"github.com/wyfcoding/cartd/internal/kafkabridge"
	"github.com/wyfcoding/cartd/internal/listener"
	"github.com/wyfcoding/cartd/internal/logging"
	"github.com/wyfcoding/cartd/internal/metrics"
	"github.com/wyfcoding/cartd/internal/queue"
	"github.com/wyfcoding/cartd/internal/retry"
	"github.com/wyfcoding/cartd/internal/supervisor"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML config file")
	resetCartItems := flag.Bool("reset-cart-items", false, "truncate and rebuild the cart_items projection before starting")
	flag.Parse()

	if err := run(*configPath, *resetCartItems); err != nil {
		fmt.Fprintln(os.Stderr, "cartd:", err)
		os.Exit(1)
	}
}

func run(configPath string, resetCartItems bool) error {
	var cfg config.Config
	if err := config.Load(configPath, &cfg); err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := logging.New(logging.Config{
		Service:    "cartd",
		Level:      cfg.Log.Level,
		File:       cfg.Log.File,
		MaxSize:    cfg.Log.MaxSize,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAge:     cfg.Log.MaxAge,
		Compress:   cfg.Log.Compress,
	})

	m := metrics.New()

	ctx := context.Background()

	store, err := eventstore.NewStore(ctx, cfg.Database.DSN, cfg.Database.MaxOpenConns, cfg.Database.MaxIdleConns, log)
	if err != nil {
		return fmt.Errorf("open event store: %w", err)
	}
	defer store.Close()

	db, err := database.Open(cfg.Database.DSN, log)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}

	retryCfg := retry.DefaultConflictRetryConfig()
	retryCfg.MaxRetries = cfg.Listener.MaxConflictRetries
	mk := decision.New(store, log, m, retryCfg)

	q := queue.New(db, store, log, m, queue.Config{
		PollInterval:   cfg.Queue.PollInterval,
		ClaimBatchSize: 16,
		WorkerCount:    cfg.Queue.Workers,
		WorkerQueue:    cfg.Queue.Workers * 8,
		MaxAttempts:    cfg.Queue.MaxAttempts,
		LeaseThreshold: cfg.Queue.LeaseDuration,
		InitialBackoff: cfg.Queue.InitialBackoff,
		MaxBackoff:     cfg.Queue.MaxBackoff,
		Multiplier:     2,
	})
	if err := q.AutoMigrate(); err != nil {
		return fmt.Errorf("migrate queue table: %w", err)
	}

	producer := kafkabridge.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.PublishedTopic, log, m)
	q.RegisterHandler("archive_item", queue.NewArchiveItemHandler(mk))
	q.RegisterHandler("publish_cart", queue.NewPublishCartHandler(store, producer))

	runtime := listener.New(store, db, log, m, cfg.Listener.PollInterval)
	cartItems := listener.NewCartItemsListener(db)
	runtime.Register(cartItems)
	runtime.Register(listener.NewInventoriesListener(db))
	runtime.Register(listener.NewCartSubmittedListener(q))
	runtime.Register(listener.NewCartsWithProductsListener(db, q))

	if resetCartItems {
		if err := runtime.Reset(ctx, cartItems.ID(), cartItems.Truncate); err != nil {
			return fmt.Errorf("reset cart_items projection: %w", err)
		}
		log.Info("cart_items projection reset, rebuilding from the event log")
	}

	bridge := kafkabridge.NewBridge(cfg.Kafka.Brokers, db, log, m)
	if err := bridge.AutoMigrate(); err != nil {
		return fmt.Errorf("migrate kafka_topic table: %w", err)
	}
	bridge.RegisterTopic(cfg.Kafka.InventoryTopic, kafkabridge.NewInventoryTranslator(mk))
	bridge.RegisterTopic(cfg.Kafka.PriceTopic, kafkabridge.NewPriceChangeTranslator(mk))

	httpServer := httpapi.New(cfg.Server.Addr, mk, db, log)

	sup := supervisor.New(log, 15*time.Second)

	sup.Register(supervisor.Hook{
		Name:    "listener-runtime",
		OnStart: runtime.Run,
	})
	sup.Register(supervisor.Hook{
		Name: "retry-queue",
		OnStart: func(ctx context.Context) error {
			q.Run(ctx)
			return nil
		},
	})
	sup.Register(supervisor.Hook{
		Name: "kafka-bridge",
		OnStart: func(ctx context.Context) error {
			bridge.Run(ctx)
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return producer.Close()
		},
	})
	sup.Register(supervisor.Hook{
		Name:    "http-api",
		OnStart: httpServer.Start,
		OnStop:  httpServer.Stop,
	})
	if cfg.Metrics.Enabled {
		stopMetrics := m.Serve(cfg.Metrics.Addr)
		sup.Register(supervisor.Hook{
			Name:    "metrics",
			OnStart: func(ctx context.Context) error { <-ctx.Done(); return nil },
			OnStop:  stopMetrics,
		})
	}

	log.Info("cartd starting", "http_addr", cfg.Server.Addr, "metrics_addr", cfg.Metrics.Addr)
	return sup.Run(ctx)
}
