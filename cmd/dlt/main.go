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
	"github.com/shoplite/order-saga/internal/dltsvc"
	"github.com/shoplite/order-saga/internal/logger"
	"github.com/shoplite/order-saga/internal/message"

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
	if err := gdb.AutoMigrate(&dltsvc.Record{}); err != nil {
		log.Fatalf("auto-migrate: %v", err)
	}

	kw := &kafka.Writer{
		Addr:     kafka.TCP(cfg.Kafka.Brokers...),
		Balancer: &kafka.Hash{},
	}
	defer kw.Close()

	svc := dltsvc.NewService(gdb, log)

	groupID := cfg.Kafka.GroupID
	if groupID == "" {
		groupID = "dlt-service"
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
		message.OrderCommandsTopic,
		message.PaymentCommandsTopic,
		message.ProductCommandsTopic,
		message.ShipmentCommandsTopic,
	} {
		g := consumer.NewGroup(cfg.Kafka.Brokers, groupID, message.DLTFor(topic), cfg.Kafka.Workers, kw, svc.Handle, policy, log)
		wg.Add(1)
		go func() {
			defer wg.Done()
			g.Run(ctx)
		}()
	}

	router := dltsvc.NewRouter(svc, log)
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	log.Infof("dlt-service listening on %s", addr)
	if err := http.ListenAndServe(addr, router); err != nil {
		log.Fatalf("listen: %v", err)
	}
	wg.Wait()
}
