package message

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestEnvelopeRoundTrip(t *testing.T) {
	orderID := uuid.New()
	msg := NewEvent(OrderCreated, orderID, &OrderCreatedPayload{
		OrderID:    orderID,
		CustomerID: uuid.New(),
		Products: []OrderProduct{
			{ProductID: uuid.New(), Quantity: 2, PricePerUnit: decimal.RequireFromString("15.50")},
		},
		ShippingAddress: Address{Address: "1 Main St", PostalCode: "12345", City: "Springfield", Country: "US"},
		TotalAmount:     decimal.RequireFromString("31.00"),
		Currency:        "USD",
		PaymentMethodID: "pm-1",
		Carrier:         "UPS",
	})

	data, err := json.Marshal(msg)
	assert.NoError(t, err)
	assert.Contains(t, string(data), `"@type":"orderCreatedPayload"`)
	assert.Contains(t, string(data), `"correlationId"`)
	assert.Contains(t, string(data), `"shippingAddress"`)

	var decoded Message
	assert.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, msg.ID, decoded.ID)
	assert.Equal(t, TypeEvent, decoded.Type)
	assert.Equal(t, orderID, decoded.CorrelationID)

	payload, ok := decoded.Payload.(*OrderCreatedPayload)
	assert.True(t, ok)
	assert.Equal(t, "USD", payload.Currency)
	assert.Len(t, payload.Products, 1)
	assert.True(t, payload.TotalAmount.Equal(decimal.RequireFromString("31.00")))
}

func TestUnmarshalPayloadUnknownType(t *testing.T) {
	_, err := UnmarshalPayload(json.RawMessage(`{"@type":"mysteryPayload"}`))
	assert.Error(t, err)
}

func TestUnmarshalPayloadNull(t *testing.T) {
	p, err := UnmarshalPayload(json.RawMessage("null"))
	assert.NoError(t, err)
	assert.Nil(t, p)
}

func TestTopicRouting(t *testing.T) {
	topic, err := TopicFor(ProcessPayment)
	assert.NoError(t, err)
	assert.Equal(t, PaymentCommandsTopic, topic)

	topic, err = TopicFor(ShipmentArranged)
	assert.NoError(t, err)
	assert.Equal(t, ShipmentEventsTopic, topic)

	_, err = TopicFor("NOT_A_MESSAGE")
	assert.Error(t, err)

	assert.Equal(t, "order-events-topic-dlt", DLTFor(OrderEventsTopic))
}

func TestConsumerOf(t *testing.T) {
	svc, err := ConsumerOf(ConfirmAvailability)
	assert.NoError(t, err)
	assert.Equal(t, "product-service", svc)

	svc, err = ConsumerOf(PaymentSucceeded)
	assert.NoError(t, err)
	assert.Equal(t, "order-saga-orchestrator", svc)

	_, err = ConsumerOf("NOT_A_MESSAGE")
	assert.Error(t, err)
}
