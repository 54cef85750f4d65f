package productsvc

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/shoplite/order-saga/internal/message"
	"github.com/shoplite/order-saga/internal/outbox"
)

// Direction of a stock adjustment.
type Direction int

const (
	// Decrement commits stock after a successful payment.
	Decrement Direction = iota
	// Restore returns stock during compensation.
	Restore
)

// Service owns the product stock ledger.
type Service struct {
	db     *gorm.DB
	outbox *outbox.Store
	log    *zap.SugaredLogger
}

// NewService wires the product service.
func NewService(db *gorm.DB, ob *outbox.Store, log *zap.SugaredLogger) *Service {
	return &Service{db: db, outbox: ob, log: log}
}

// ConfirmAvailability checks requested quantities against stock and
// returns the shortfall detail, empty when everything is available.
func (s *Service) ConfirmAvailability(ctx context.Context, tx *gorm.DB, toCheck []message.ProductQuantity) ([]message.InsufficientProduct, error) {
	requested := make(map[uuid.UUID]int, len(toCheck))
	ids := make([]uuid.UUID, 0, len(toCheck))
	for _, q := range toCheck {
		requested[q.ProductID] = q.Quantity
		ids = append(ids, q.ProductID)
	}
	var products []Product
	if err := tx.WithContext(ctx).Where("id IN ?", ids).Find(&products).Error; err != nil {
		return nil, err
	}
	var insufficient []message.InsufficientProduct
	for _, p := range products {
		if p.StockQuantity < requested[p.ID] {
			insufficient = append(insufficient, message.InsufficientProduct{
				ProductID:         p.ID,
				RequestedQuantity: requested[p.ID],
				AvailableQuantity: p.StockQuantity,
			})
		}
	}
	return insufficient, nil
}

// AdjustStock applies the quantities in the given direction. A missing
// product is an error: the availability check saw it earlier, so its
// absence means the catalogue changed under the saga.
func (s *Service) AdjustStock(ctx context.Context, tx *gorm.DB, quantities []message.ProductQuantity, dir Direction) error {
	for _, q := range quantities {
		var product Product
		if err := tx.WithContext(ctx).Where("id = ?", q.ProductID).First(&product).Error; err != nil {
			return fmt.Errorf("adjust stock of %s: %w", q.ProductID, err)
		}
		if dir == Decrement {
			product.StockQuantity -= q.Quantity
		} else {
			product.StockQuantity += q.Quantity
		}
		product.UpdatedAt = time.Now().UTC()
		if err := tx.WithContext(ctx).Save(&product).Error; err != nil {
			return err
		}
	}
	return nil
}

// ShortageReason renders the human-readable failure reason carried by
// the PRODUCTS_SHORTAGE event and, eventually, shown to the customer.
func ShortageReason(insufficient []message.InsufficientProduct) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "The requested quantity exceeds the available quantity for %d products.\n", len(insufficient))
	for i, p := range insufficient {
		fmt.Fprintf(&sb, "%d. %s (requested: %d, available: %d)\n",
			i+1, p.ProductID, p.RequestedQuantity, p.AvailableQuantity)
	}
	return sb.String()
}

// Seed loads a demo catalogue when the table is empty.
func (s *Service) Seed(ctx context.Context) error {
	var count int64
	if err := s.db.WithContext(ctx).Model(&Product{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	now := time.Now().UTC()
	catalogue := []Product{
		{ID: uuid.New(), Name: "Smart TV 4K", Description: "55-inch 4K UHD Smart TV with HDR support.", Price: decimal.RequireFromString("899.99"), Currency: "USD", StockQuantity: 50, CreatedAt: now, UpdatedAt: now},
		{ID: uuid.New(), Name: "The Hitchhiker's Guide to the Galaxy", Description: "Comedy science fiction by Douglas Adams.", Price: decimal.RequireFromString("15.50"), Currency: "USD", StockQuantity: 200, CreatedAt: now, UpdatedAt: now},
		{ID: uuid.New(), Name: "Wireless Noise-Cancelling Headphones", Description: "Over-ear, 30-hour battery life.", Price: decimal.RequireFromString("249.00"), Currency: "USD", StockQuantity: 120, CreatedAt: now, UpdatedAt: now},
		{ID: uuid.New(), Name: "Espresso Machine", Description: "Semi-automatic espresso machine.", Price: decimal.RequireFromString("475.95"), Currency: "USD", StockQuantity: 35, CreatedAt: now, UpdatedAt: now},
		{ID: uuid.New(), Name: "Smart Home Hub", Description: "Central hub for smart home devices.", Price: decimal.RequireFromString("99.99"), Currency: "USD", StockQuantity: 80, CreatedAt: now, UpdatedAt: now},
	}
	return s.db.WithContext(ctx).Create(&catalogue).Error
}
