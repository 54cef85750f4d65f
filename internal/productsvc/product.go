package productsvc

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product is one catalogue entry with its stock counter. The saga only
// cares about StockQuantity; the rest exists for the catalogue.
type Product struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey"`
	Name          string          `gorm:"size:128;not null"`
	Description   string          `gorm:"size:512"`
	Price         decimal.Decimal `gorm:"type:numeric(12,2);not null"`
	Currency      string          `gorm:"size:8;not null"`
	StockQuantity int             `gorm:"not null"`
	CreatedAt     time.Time       `gorm:"not null"`
	UpdatedAt     time.Time       `gorm:"not null"`
}

func (Product) TableName() string { return "products" }
