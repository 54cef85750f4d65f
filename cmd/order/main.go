package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"sync"
	"syscall"

	"github.com/shoplite/order-saga/internal/config"
	"github.com/shoplite/order-saga/internal/consumer"
	"github.com/shoplite/order-saga/internal/inbox"
	"github.com/shoplite/order-saga/internal/logger"
	"github.com/shoplite/order-saga/internal/message"
	"github.com/shoplite/order-saga/internal/ordersvc"
	"github.com/shoplite/order-saga/internal/outbox"

	"github.com/go-redis/redis/v8"
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

	// 3. postgres
	gdb, err := gorm.Open(postgres.Open(cfg.Postgres.DSN), &gorm.Config{PrepareStmt: true, TranslateError: true})
	if err != nil {
		log.Fatalf("open postgres: %v", err)
	}
	if err := gdb.AutoMigrate(&ordersvc.Order{}, &ordersvc.OrderItem{}, &outbox.Record{}, &inbox.ConsumedMessage{}); err != nil {
		log.Fatalf("auto-migrate: %v", err)
	}

	// 4. redis
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		log.Fatalf("redis ping: %v", err)
	}

	// 5. kafka writer
	kw := &kafka.Writer{
		Addr:     kafka.TCP(cfg.Kafka.Brokers...),
		Balancer: &kafka.Hash{},
	}
	defer kw.Close()

	// 6. wiring
	ob := outbox.NewStore(gdb, log)
	guard := inbox.NewGuard(log)
	svc := ordersvc.NewService(gdb, ob, rdb, log)
	handler := ordersvc.NewHandler(svc, guard)

	groupID := cfg.Kafka.GroupID
	if groupID == "" {
		groupID = "order-service"
	}
	policy := consumer.RetryPolicy{Attempts: cfg.Retry.Attempts, Delay: cfg.Retry.Delay.Std()}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup
	group := consumer.NewGroup(cfg.Kafka.Brokers, groupID, message.OrderCommandsTopic, cfg.Kafka.Workers, kw, handler.Handle, policy, log)
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

	// 7. gin router
	router := ordersvc.NewRouter(svc, cfg.RateLimit, log)
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	log.Infof("order-service listening on %s", addr)
	if err := http.ListenAndServe(addr, router); err != nil {
		log.Fatalf("listen: %v", err)
	}
	wg.Wait()
}
