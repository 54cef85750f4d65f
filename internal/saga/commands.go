package saga

import (
	"github.com/google/uuid"

	"github.com/shoplite/order-saga/internal/message"
)

// Command builders. Each assembles the payload for the next saga step
// from the data the state machine has accumulated so far.

func confirmAvailabilityCommand(correlationID uuid.UUID, snapshot *message.OrderCreatedPayload) message.Message {
	return message.NewCommand(message.ConfirmAvailability, correlationID, &message.ConfirmAvailabilityPayload{
		OrderID:         correlationID,
		ProductsToCheck: toQuantities(snapshot.Products),
	})
}

func arrangeShipmentCommand(correlationID uuid.UUID, snapshot *message.OrderCreatedPayload) message.Message {
	return message.NewCommand(message.ArrangeShipment, correlationID, &message.ArrangeShipmentPayload{
		OrderID:         correlationID,
		CustomerID:      snapshot.CustomerID,
		Products:        toQuantities(snapshot.Products),
		ShippingAddress: snapshot.ShippingAddress,
	})
}

func processPaymentCommand(correlationID uuid.UUID, snapshot *message.OrderCreatedPayload) message.Message {
	return message.NewCommand(message.ProcessPayment, correlationID, &message.ProcessPaymentPayload{
		OrderID:         correlationID,
		TotalAmount:     snapshot.TotalAmount,
		Currency:        snapshot.Currency,
		PaymentMethodID: snapshot.PaymentMethodID,
	})
}

func updateProductsCommand(correlationID uuid.UUID, snapshot *message.OrderCreatedPayload) message.Message {
	return message.NewCommand(message.UpdateProducts, correlationID, &message.UpdateProductsPayload{
		OrderID:             correlationID,
		ProductsToDecrement: toQuantities(snapshot.Products),
	})
}

func cancelShipmentCommand(correlationID, shipmentID uuid.UUID, reason string) message.Message {
	return message.NewCommand(message.CancelShipment, correlationID, &message.CancelShipmentPayload{
		OrderID:    correlationID,
		ShipmentID: shipmentID,
		Reason:     reason,
	})
}

func completeOrderCommand(correlationID uuid.UUID) message.Message {
	return message.NewCommand(message.CompleteOrder, correlationID, &message.CompleteOrderPayload{
		OrderID: correlationID,
	})
}

func cancelOrderCommand(correlationID uuid.UUID, reason string) message.Message {
	return message.NewCommand(message.CancelOrder, correlationID, &message.CancelOrderPayload{
		OrderID: correlationID,
		Reason:  reason,
	})
}

func toQuantities(products []message.OrderProduct) []message.ProductQuantity {
	quantities := make([]message.ProductQuantity, 0, len(products))
	for _, p := range products {
		quantities = append(quantities, message.ProductQuantity{ProductID: p.ProductID, Quantity: p.Quantity})
	}
	return quantities
}
