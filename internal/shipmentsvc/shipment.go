package shipmentsvc

import (
	"time"

	"github.com/google/uuid"
)

// Status of one shipment booking.
type Status string

const (
	StatusArranged  Status = "ARRANGED"
	StatusFailed    Status = "FAILED"
	StatusCancelled Status = "CANCELLED"
)

// Shipment is one carrier booking for an order, with the shipping
// address denormalized onto the row.
type Shipment struct {
	ID                 uuid.UUID `gorm:"type:uuid;primaryKey"`
	OrderID            uuid.UUID `gorm:"type:uuid;not null;index"`
	Status             Status    `gorm:"size:32;not null"`
	Carrier            string    `gorm:"size:32"`
	TrackingNumber     string    `gorm:"size:64"`
	FailureReason      *string
	CancellationReason *string
	Address            string    `gorm:"size:255;not null"`
	PostalCode         string    `gorm:"size:16;not null"`
	City               string    `gorm:"size:64;not null"`
	Country            string    `gorm:"size:64;not null"`
	CreatedAt          time.Time `gorm:"not null"`
	UpdatedAt          time.Time `gorm:"not null"`
}

func (Shipment) TableName() string { return "shipments" }
