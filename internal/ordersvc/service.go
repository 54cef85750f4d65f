package ordersvc

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/shoplite/order-saga/internal/message"
	"github.com/shoplite/order-saga/internal/outbox"
)

// CreateOrderRequest is the API payload for placing an order.
type CreateOrderRequest struct {
	CustomerID      uuid.UUID              `json:"customerId" binding:"required"`
	Products        []message.OrderProduct `json:"products" binding:"required"`
	ShippingAddress message.Address        `json:"shippingAddress" binding:"required"`
	TotalAmount     decimal.Decimal        `json:"totalAmount" binding:"required"`
	Currency        string                 `json:"currency" binding:"required"`
	PaymentMethodID string                 `json:"paymentMethodId" binding:"required"`
	Carrier         string                 `json:"carrier" binding:"required"`
}

// OrderCreatedResponse echoes the accepted order back to the client.
type OrderCreatedResponse struct {
	OrderID uuid.UUID `json:"orderId"`
	Status  Status    `json:"status"`
}

// Service owns the order aggregate: it creates orders from API
// requests and applies the saga's terminal commands. Every state
// change and its announcing event share one transaction through the
// outbox store.
type Service struct {
	db     *gorm.DB
	outbox *outbox.Store
	cache  *redis.Client
	log    *zap.SugaredLogger
}

// NewService wires the order service.
func NewService(db *gorm.DB, ob *outbox.Store, cache *redis.Client, log *zap.SugaredLogger) *Service {
	return &Service{db: db, outbox: ob, cache: cache, log: log}
}

// Create persists the order in PLACED and enqueues the ORDER_CREATED
// event that starts the saga.
func (s *Service) Create(ctx context.Context, req CreateOrderRequest) (*OrderCreatedResponse, error) {
	order := Order{
		ID:              uuid.New(),
		CustomerID:      req.CustomerID,
		Status:          StatusPlaced,
		TotalAmount:     req.TotalAmount,
		Currency:        req.Currency,
		PaymentMethodID: req.PaymentMethodID,
		Carrier:         req.Carrier,
		Address:         req.ShippingAddress.Address,
		PostalCode:      req.ShippingAddress.PostalCode,
		City:            req.ShippingAddress.City,
		Country:         req.ShippingAddress.Country,
		CreatedAt:       time.Now().UTC(),
		UpdatedAt:       time.Now().UTC(),
	}
	for _, p := range req.Products {
		order.Items = append(order.Items, OrderItem{
			OrderID:      order.ID,
			ProductID:    p.ProductID,
			Quantity:     p.Quantity,
			PricePerUnit: p.PricePerUnit,
		})
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&order).Error; err != nil {
			return err
		}
		return s.outbox.Enqueue(ctx, tx, orderCreatedEvent(&order, req))
	})
	if err != nil {
		return nil, err
	}
	s.cacheStatus(ctx, order.ID, order.Status)
	return &OrderCreatedResponse{OrderID: order.ID, Status: order.Status}, nil
}

// Retrieve loads one order.
func (s *Service) Retrieve(ctx context.Context, orderID uuid.UUID) (*Order, error) {
	var order Order
	err := s.db.WithContext(ctx).Where("id = ?", orderID).First(&order).Error
	if err != nil {
		return nil, fmt.Errorf("retrieve order %s: %w", orderID, err)
	}
	return &order, nil
}

// StatusOf answers the status endpoint, preferring the redis cache.
func (s *Service) StatusOf(ctx context.Context, orderID uuid.UUID) (Status, string, error) {
	if s.cache != nil {
		// Cancelled orders carry a reason only the database has.
		if cached, err := s.cache.Get(ctx, statusKey(orderID)).Result(); err == nil && Status(cached) != StatusCancelled {
			return Status(cached), "", nil
		}
	}
	order, err := s.Retrieve(ctx, orderID)
	if err != nil {
		return "", "", err
	}
	s.cacheStatus(ctx, orderID, order.Status)
	reason := ""
	if order.CancellationReason != nil {
		reason = *order.CancellationReason
	}
	return order.Status, reason, nil
}

// complete applies COMPLETE_ORDER inside tx.
func (s *Service) complete(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) error {
	if err := s.setStatus(ctx, tx, orderID, StatusCompleted); err != nil {
		return err
	}
	s.invalidateStatus(ctx, orderID)
	return nil
}

// cancel applies CANCEL_ORDER with its reason inside tx.
func (s *Service) cancel(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, reason string) error {
	res := tx.WithContext(ctx).
		Model(&Order{}).
		Where("id = ?", orderID).
		Updates(map[string]interface{}{
			"status":              StatusCancelled,
			"cancellation_reason": reason,
			"updated_at":          time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("cancel order %s: %w", orderID, gorm.ErrRecordNotFound)
	}
	s.invalidateStatus(ctx, orderID)
	return nil
}

func (s *Service) setStatus(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, status Status) error {
	res := tx.WithContext(ctx).
		Model(&Order{}).
		Where("id = ?", orderID).
		Updates(map[string]interface{}{"status": status, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("update order %s: %w", orderID, gorm.ErrRecordNotFound)
	}
	return nil
}

func (s *Service) cacheStatus(ctx context.Context, orderID uuid.UUID, status Status) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, statusKey(orderID), string(status), 5*time.Minute).Err(); err != nil {
		s.log.Warnf("cache order status: %v", err)
	}
}

func (s *Service) invalidateStatus(ctx context.Context, orderID uuid.UUID) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, statusKey(orderID)).Err(); err != nil {
		s.log.Warnf("drop cached order status: %v", err)
	}
}

func statusKey(orderID uuid.UUID) string {
	return fmt.Sprintf("order-status:%s", orderID)
}
