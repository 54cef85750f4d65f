package main

import (
	"context"
	"fmt"
	"os/signal"
	"sync"
	"syscall"

	"github.com/shoplite/order-saga/internal/config"
	"github.com/shoplite/order-saga/internal/consumer"
	"github.com/shoplite/order-saga/internal/inbox"
	"github.com/shoplite/order-saga/internal/logger"
	"github.com/shoplite/order-saga/internal/message"
	"github.com/shoplite/order-saga/internal/outbox"
	"github.com/shoplite/order-saga/internal/saga"

	"github.com/segmentio/kafka-go"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	// 1. load config
	cfg, err := config.Load("internal/config/config.yaml")
	if err != nil {
		panic(fmt.Errorf("load config: %w", err))
	}

	// 2. init logger
	log, err := logger.NewLogger()
	if err != nil {
		panic(fmt.Errorf("init logger: %w", err))
	}
	defer log.Sync()

	// 3. postgres. TranslateError is required for duplicate detection.
	gdb, err := gorm.Open(postgres.Open(cfg.Postgres.DSN), &gorm.Config{PrepareStmt: true, TranslateError: true})
	if err != nil {
		log.Fatalf("open postgres: %v", err)
	}
	if err := gdb.AutoMigrate(&saga.State{}, &saga.History{}, &outbox.Record{}, &inbox.ConsumedMessage{}); err != nil {
		log.Fatalf("auto-migrate: %v", err)
	}

	// 4. kafka writer. No fixed topic; every message carries its own.
	kw := &kafka.Writer{
		Addr:     kafka.TCP(cfg.Kafka.Brokers...),
		Balancer: &kafka.Hash{},
	}
	defer kw.Close()

	// 5. wiring
	ob := outbox.NewStore(gdb, log)
	guard := inbox.NewGuard(log)
	orch := saga.NewOrchestrator(gdb, saga.NewStore(log), ob, guard, log)

	groupID := cfg.Kafka.GroupID
	if groupID == "" {
		groupID = "order-saga-orchestrator"
	}
	policy := consumer.RetryPolicy{Attempts: cfg.Retry.Attempts, Delay: cfg.Retry.Delay.Std()}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup
	for _, topic := range []string{
		message.OrderEventsTopic,
		message.PaymentEventsTopic,
		message.ProductEventsTopic,
		message.ShipmentEventsTopic,
	} {
		g := consumer.NewGroup(cfg.Kafka.Brokers, groupID, topic, cfg.Kafka.Workers, kw, orch.Handle, policy, log)
		wg.Add(1)
		go func() {
			defer wg.Done()
			g.Run(ctx)
		}()
	}

	poller := outbox.NewPoller(ob, kw, cfg.Outbox.PollInterval.Std(), cfg.Outbox.Batch, log)
	sweeper := outbox.NewSweeper(ob, cfg.Outbox.SweepInterval.Std(), log)
	cleaner := inbox.NewCleaner(gdb, cfg.Dedup.CleanupInterval.Std(), cfg.Dedup.Retention.Std(), log)
	watchdog := saga.NewWatchdog(gdb, cfg.Watchdog.Interval.Std(), cfg.Watchdog.Horizon.Std(), log)
	for _, run := range []func(context.Context){poller.Run, sweeper.Run, cleaner.Run, watchdog.Run} {
		run := run
		wg.Add(1)
		go func() {
			defer wg.Done()
			run(ctx)
		}()
	}

	log.Info("orchestrator started")
	wg.Wait()
	log.Info("orchestrator stopped")
}
