package message

import "fmt"

// Logical channels. Commands flow orchestrator -> participant, events
// flow participant -> orchestrator. Partition key is always the
// correlation id, so one saga's messages stay ordered on one partition.
const (
	OrderEventsTopic    = "order-events-topic"
	PaymentEventsTopic  = "payment-events-topic"
	ProductEventsTopic  = "product-events-topic"
	ShipmentEventsTopic = "shipment-events-topic"

	OrderCommandsTopic    = "order-commands-topic"
	PaymentCommandsTopic  = "payment-commands-topic"
	ProductCommandsTopic  = "product-commands-topic"
	ShipmentCommandsTopic = "shipment-commands-topic"
)

// DLTFor derives the dead-letter counterpart of a source topic.
func DLTFor(topic string) string {
	return topic + "-dlt"
}

// topicByName is the static routing table: message kind -> destination
// topic. The outbox store consults it at enqueue time.
var topicByName = map[string]string{
	OrderCreated:   OrderEventsTopic,
	OrderCompleted: OrderEventsTopic,
	OrderCancelled: OrderEventsTopic,

	PaymentSucceeded: PaymentEventsTopic,
	PaymentFailed:    PaymentEventsTopic,

	AvailabilityConfirmed: ProductEventsTopic,
	ProductsShortage:      ProductEventsTopic,
	ProductsUpdated:       ProductEventsTopic,

	ShipmentArranged:  ShipmentEventsTopic,
	ArrangementFailed: ShipmentEventsTopic,
	ShipmentCancelled: ShipmentEventsTopic,

	CompleteOrder: OrderCommandsTopic,
	CancelOrder:   OrderCommandsTopic,

	ProcessPayment: PaymentCommandsTopic,

	ConfirmAvailability: ProductCommandsTopic,
	UpdateProducts:      ProductCommandsTopic,

	ArrangeShipment: ShipmentCommandsTopic,
	CancelShipment:  ShipmentCommandsTopic,
}

// TopicFor resolves the destination topic of a message kind.
func TopicFor(name string) (string, error) {
	topic, ok := topicByName[name]
	if !ok {
		return "", fmt.Errorf("no topic routed for message %q", name)
	}
	return topic, nil
}

// consumerByName maps a message kind to the service expected to consume
// it. The dead-letter report uses it to describe what failed where.
var consumerByName = map[string]string{
	OrderCreated:   "order-saga-orchestrator",
	OrderCompleted: "order-saga-orchestrator",
	OrderCancelled: "order-saga-orchestrator",

	PaymentSucceeded: "order-saga-orchestrator",
	PaymentFailed:    "order-saga-orchestrator",

	AvailabilityConfirmed: "order-saga-orchestrator",
	ProductsShortage:      "order-saga-orchestrator",
	ProductsUpdated:       "order-saga-orchestrator",

	ShipmentArranged:  "order-saga-orchestrator",
	ArrangementFailed: "order-saga-orchestrator",
	ShipmentCancelled: "order-saga-orchestrator",

	CompleteOrder: "order-service",
	CancelOrder:   "order-service",

	ProcessPayment: "payment-service",

	ConfirmAvailability: "product-service",
	UpdateProducts:      "product-service",

	ArrangeShipment: "shipment-service",
	CancelShipment:  "shipment-service",
}

// ConsumerOf reports which service consumes a message kind.
func ConsumerOf(name string) (string, error) {
	svc, ok := consumerByName[name]
	if !ok {
		return "", fmt.Errorf("unknown message %q", name)
	}
	return svc, nil
}
