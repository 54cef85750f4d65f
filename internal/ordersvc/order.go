package ordersvc

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Status of the order aggregate as the customer sees it.
type Status string

const (
	StatusPlaced    Status = "PLACED"
	StatusCompleted Status = "COMPLETED"
	StatusCancelled Status = "CANCELLED"
)

// Order is the aggregate owned by this service. The saga only ever
// touches it through commands; the id doubles as the correlation id.
type Order struct {
	ID                 uuid.UUID       `gorm:"type:uuid;primaryKey"`
	CustomerID         uuid.UUID       `gorm:"type:uuid;not null"`
	Status             Status          `gorm:"size:32;not null"`
	CancellationReason *string
	TotalAmount        decimal.Decimal `gorm:"type:numeric(12,2);not null"`
	Currency           string          `gorm:"size:8;not null"`
	PaymentMethodID    string          `gorm:"size:64;not null"`
	Carrier            string          `gorm:"size:32;not null"`
	Address            string          `gorm:"size:255;not null"`
	PostalCode         string          `gorm:"size:16;not null"`
	City               string          `gorm:"size:64;not null"`
	Country            string          `gorm:"size:64;not null"`
	Items              []OrderItem     `gorm:"foreignKey:OrderID"`
	CreatedAt          time.Time       `gorm:"not null"`
	UpdatedAt          time.Time       `gorm:"not null"`
}

func (Order) TableName() string { return "orders" }

// OrderItem is one line of the order.
type OrderItem struct {
	ID           uint            `gorm:"primaryKey"`
	OrderID      uuid.UUID       `gorm:"type:uuid;not null;index"`
	ProductID    uuid.UUID       `gorm:"type:uuid;not null"`
	Quantity     int             `gorm:"not null"`
	PricePerUnit decimal.Decimal `gorm:"type:numeric(12,2);not null"`
}

func (OrderItem) TableName() string { return "order_items" }
