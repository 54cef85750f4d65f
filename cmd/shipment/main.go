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
	"github.com/shoplite/order-saga/internal/shipmentsvc"

	"github.com/segmentio/kafka-go"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	cfg, err := config.Load("internal/config/config.yaml")
	if err != nil {
		panic(fmt.Errorf("load config: %w", err))
	}

	log, err := logger.NewLogger()
	if err != nil {
		panic(fmt.Errorf("init logger: %w", err))
	}
	defer log.Sync()

	gdb, err := gorm.Open(postgres.Open(cfg.Postgres.DSN), &gorm.Config{PrepareStmt: true, TranslateError: true})
	if err != nil {
		log.Fatalf("open postgres: %v", err)
	}
	if err := gdb.AutoMigrate(&shipmentsvc.Shipment{}, &outbox.Record{}, &inbox.ConsumedMessage{}); err != nil {
		log.Fatalf("auto-migrate: %v", err)
	}

	kw := &kafka.Writer{
		Addr:     kafka.TCP(cfg.Kafka.Brokers...),
		Balancer: &kafka.Hash{},
	}
	defer kw.Close()

	ob := outbox.NewStore(gdb, log)
	guard := inbox.NewGuard(log)
	svc := shipmentsvc.NewService(gdb, ob, guard, nil, log)

	groupID := cfg.Kafka.GroupID
	if groupID == "" {
		groupID = "shipment-service"
	}
	policy := consumer.RetryPolicy{Attempts: cfg.Retry.Attempts, Delay: cfg.Retry.Delay.Std()}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup
	group := consumer.NewGroup(cfg.Kafka.Brokers, groupID, message.ShipmentCommandsTopic, cfg.Kafka.Workers, kw, svc.Handle, policy, log)
	poller := outbox.NewPoller(ob, kw, cfg.Outbox.PollInterval.Std(), cfg.Outbox.Batch, log)
	sweeper := outbox.NewSweeper(ob, cfg.Outbox.SweepInterval.Std(), log)
	cleaner := inbox.NewCleaner(gdb, cfg.Dedup.CleanupInterval.Std(), cfg.Dedup.Retention.Std(), log)
	for _, run := range []func(context.Context){group.Run, poller.Run, sweeper.Run, cleaner.Run} {
		run := run
		wg.Add(1)
		go func() {
			defer wg.Done()
			run(ctx)
		}()
	}

	log.Info("shipment-service started")
	wg.Wait()
	log.Info("shipment-service stopped")
}
