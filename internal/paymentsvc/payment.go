package paymentsvc

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Status of one payment attempt.
type Status string

const (
	StatusSucceeded Status = "PAYMENT_SUCCEEDED"
	StatusFailed    Status = "PAYMENT_FAILED"
)

// Payment is one charge attempt against an order.
type Payment struct {
	ID              uuid.UUID       `gorm:"type:uuid;primaryKey"`
	OrderID         uuid.UUID       `gorm:"type:uuid;not null;index"`
	Amount          decimal.Decimal `gorm:"type:numeric(12,2);not null"`
	Currency        string          `gorm:"size:8;not null"`
	Status          Status          `gorm:"size:32;not null"`
	PaymentMethodID string          `gorm:"size:64;not null"`
	TransactionID   *string         `gorm:"size:64"`
	FailureReason   *string
	CreatedAt       time.Time       `gorm:"not null"`
	UpdatedAt       time.Time       `gorm:"not null"`
}

func (Payment) TableName() string { return "payments" }
