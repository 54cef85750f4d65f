package ordersvc

import (
	"github.com/google/uuid"

	"github.com/shoplite/order-saga/internal/message"
)

func orderCreatedEvent(order *Order, req CreateOrderRequest) message.Message {
	return message.NewEvent(message.OrderCreated, order.ID, &message.OrderCreatedPayload{
		OrderID:         order.ID,
		CustomerID:      order.CustomerID,
		Products:        req.Products,
		ShippingAddress: req.ShippingAddress,
		TotalAmount:     order.TotalAmount,
		Currency:        order.Currency,
		PaymentMethodID: order.PaymentMethodID,
		Carrier:         order.Carrier,
	})
}

func orderCompletedEvent(correlationID uuid.UUID) message.Message {
	return message.NewEvent(message.OrderCompleted, correlationID, &message.OrderCompletedPayload{
		OrderID:     correlationID,
		FinalStatus: string(StatusCompleted),
	})
}

func orderCancelledEvent(correlationID uuid.UUID, reason string) message.Message {
	return message.NewEvent(message.OrderCancelled, correlationID, &message.OrderCancelledPayload{
		OrderID:     correlationID,
		FinalStatus: string(StatusCancelled),
		Reason:      reason,
	})
}
