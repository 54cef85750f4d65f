package message

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Payload is the closed union of every command and event body in the
// saga. The unexported method keeps the set fixed to this package, so
// the codec switches below stay exhaustive.
type Payload interface {
	payloadType() string
}

// Shared DTOs.

type Address struct {
	Address    string `json:"address"`
	PostalCode string `json:"postalCode"`
	City       string `json:"city"`
	Country    string `json:"country"`
}

type OrderProduct struct {
	ProductID    uuid.UUID       `json:"productId"`
	Quantity     int             `json:"quantity"`
	PricePerUnit decimal.Decimal `json:"pricePerUnit"`
}

type ProductQuantity struct {
	ProductID uuid.UUID `json:"productId"`
	Quantity  int       `json:"quantity"`
}

type InsufficientProduct struct {
	ProductID         uuid.UUID `json:"productId"`
	RequestedQuantity int       `json:"requestedQuantity"`
	AvailableQuantity int       `json:"availableQuantity"`
}

// Order payloads.

type OrderCreatedPayload struct {
	OrderID         uuid.UUID       `json:"orderId"`
	CustomerID      uuid.UUID       `json:"customerId"`
	Products        []OrderProduct  `json:"products"`
	ShippingAddress Address         `json:"shippingAddress"`
	TotalAmount     decimal.Decimal `json:"totalAmount"`
	Currency        string          `json:"currency"`
	PaymentMethodID string          `json:"paymentMethodId"`
	Carrier         string          `json:"carrier"`
}

type OrderCompletedPayload struct {
	OrderID     uuid.UUID `json:"orderId"`
	FinalStatus string    `json:"finalStatus"`
}

type OrderCancelledPayload struct {
	OrderID     uuid.UUID `json:"orderId"`
	FinalStatus string    `json:"finalStatus"`
	Reason      string    `json:"reason"`
}

type CompleteOrderPayload struct {
	OrderID uuid.UUID `json:"orderId"`
}

type CancelOrderPayload struct {
	OrderID uuid.UUID `json:"orderId"`
	Reason  string    `json:"reason"`
}

// Payment payloads.

type ProcessPaymentPayload struct {
	OrderID         uuid.UUID       `json:"orderId"`
	TotalAmount     decimal.Decimal `json:"totalAmount"`
	Currency        string          `json:"currency"`
	PaymentMethodID string          `json:"paymentMethodId"`
}

type PaymentSucceededPayload struct {
	OrderID       uuid.UUID `json:"orderId"`
	TransactionID string    `json:"transactionId"`
}

type PaymentFailedPayload struct {
	OrderID     uuid.UUID `json:"orderId"`
	Reason      string    `json:"reason"`
	ProcessedAt time.Time `json:"processedAt"`
}

// Product payloads.

type ConfirmAvailabilityPayload struct {
	OrderID         uuid.UUID         `json:"orderId"`
	ProductsToCheck []ProductQuantity `json:"productsToCheck"`
}

type AvailabilityConfirmedPayload struct {
	OrderID uuid.UUID `json:"orderId"`
}

type ProductsShortagePayload struct {
	OrderID            uuid.UUID             `json:"orderId"`
	Reason             string                `json:"reason"`
	OutOfStockProducts []InsufficientProduct `json:"outOfStockProducts"`
}

type UpdateProductsPayload struct {
	OrderID             uuid.UUID         `json:"orderId"`
	ProductsToDecrement []ProductQuantity `json:"productsToDecrement"`
}

type ProductsUpdatedPayload struct {
	OrderID uuid.UUID `json:"orderId"`
}

// Shipment payloads.

type ArrangeShipmentPayload struct {
	OrderID         uuid.UUID         `json:"orderId"`
	CustomerID      uuid.UUID         `json:"customerId"`
	Products        []ProductQuantity `json:"products"`
	ShippingAddress Address           `json:"shippingAddress"`
}

type ShipmentArrangedPayload struct {
	OrderID        uuid.UUID `json:"orderId"`
	ShipmentID     uuid.UUID `json:"shipmentId"`
	TrackingNumber string    `json:"trackingNumber"`
	Carrier        string    `json:"carrier"`
}

type ArrangementFailedPayload struct {
	OrderID  uuid.UUID `json:"orderId"`
	Reason   string    `json:"reason"`
	FailedAt time.Time `json:"failedAt"`
}

type CancelShipmentPayload struct {
	OrderID    uuid.UUID `json:"orderId"`
	ShipmentID uuid.UUID `json:"shipmentId"`
	Reason     string    `json:"reason"`
}

type ShipmentCancelledPayload struct {
	OrderID    uuid.UUID `json:"orderId"`
	ShipmentID uuid.UUID `json:"shipmentId"`
}

func (OrderCreatedPayload) payloadType() string          { return "orderCreatedPayload" }
func (OrderCompletedPayload) payloadType() string        { return "orderCompletedPayload" }
func (OrderCancelledPayload) payloadType() string        { return "orderCancelledPayload" }
func (CompleteOrderPayload) payloadType() string         { return "completeOrderPayload" }
func (CancelOrderPayload) payloadType() string           { return "cancelOrderPayload" }
func (ProcessPaymentPayload) payloadType() string        { return "processPaymentPayload" }
func (PaymentSucceededPayload) payloadType() string      { return "paymentSucceededPayload" }
func (PaymentFailedPayload) payloadType() string         { return "paymentFailedPayload" }
func (ConfirmAvailabilityPayload) payloadType() string   { return "confirmAvailabilityPayload" }
func (AvailabilityConfirmedPayload) payloadType() string { return "availabilityConfirmedPayload" }
func (ProductsShortagePayload) payloadType() string      { return "productsShortagePayload" }
func (UpdateProductsPayload) payloadType() string        { return "updateProductsPayload" }
func (ProductsUpdatedPayload) payloadType() string       { return "productsUpdatedPayload" }
func (ArrangeShipmentPayload) payloadType() string       { return "arrangeShipmentPayload" }
func (ShipmentArrangedPayload) payloadType() string      { return "shipmentArrangedPayload" }
func (ArrangementFailedPayload) payloadType() string     { return "arrangementFailedPayload" }
func (CancelShipmentPayload) payloadType() string        { return "cancelShipmentPayload" }
func (ShipmentCancelledPayload) payloadType() string     { return "shipmentCancelledPayload" }

// typeProbe pulls just the discriminator out of a raw payload object.
type typeProbe struct {
	Type string `json:"@type"`
}

// MarshalPayload encodes p as a JSON object carrying its "@type"
// discriminator alongside the payload fields.
func MarshalPayload(p Payload) (json.RawMessage, error) {
	if p == nil {
		return json.RawMessage("null"), nil
	}
	body, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	tag, err := json.Marshal(typeProbe{Type: p.payloadType()})
	if err != nil {
		return nil, err
	}
	if len(body) == 2 { // "{}"
		return tag, nil
	}
	// splice: {"@type":"..."} + {fields...} -> {"@type":"...",fields...}
	out := make([]byte, 0, len(tag)+len(body))
	out = append(out, tag[:len(tag)-1]...)
	out = append(out, ',')
	out = append(out, body[1:]...)
	return out, nil
}

// UnmarshalPayload resolves a raw payload object to its concrete type
// via the "@type" discriminator.
func UnmarshalPayload(raw json.RawMessage) (Payload, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var probe typeProbe
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, err
	}
	var p Payload
	switch probe.Type {
	case "orderCreatedPayload":
		p = &OrderCreatedPayload{}
	case "orderCompletedPayload":
		p = &OrderCompletedPayload{}
	case "orderCancelledPayload":
		p = &OrderCancelledPayload{}
	case "completeOrderPayload":
		p = &CompleteOrderPayload{}
	case "cancelOrderPayload":
		p = &CancelOrderPayload{}
	case "processPaymentPayload":
		p = &ProcessPaymentPayload{}
	case "paymentSucceededPayload":
		p = &PaymentSucceededPayload{}
	case "paymentFailedPayload":
		p = &PaymentFailedPayload{}
	case "confirmAvailabilityPayload":
		p = &ConfirmAvailabilityPayload{}
	case "availabilityConfirmedPayload":
		p = &AvailabilityConfirmedPayload{}
	case "productsShortagePayload":
		p = &ProductsShortagePayload{}
	case "updateProductsPayload":
		p = &UpdateProductsPayload{}
	case "productsUpdatedPayload":
		p = &ProductsUpdatedPayload{}
	case "arrangeShipmentPayload":
		p = &ArrangeShipmentPayload{}
	case "shipmentArrangedPayload":
		p = &ShipmentArrangedPayload{}
	case "arrangementFailedPayload":
		p = &ArrangementFailedPayload{}
	case "cancelShipmentPayload":
		p = &CancelShipmentPayload{}
	case "shipmentCancelledPayload":
		p = &ShipmentCancelledPayload{}
	default:
		return nil, fmt.Errorf("unknown payload type %q", probe.Type)
	}
	if err := json.Unmarshal(raw, p); err != nil {
		return nil, err
	}
	return p, nil
}
