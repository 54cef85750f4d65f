package message

// Event names.
const (
	OrderCreated   = "ORDER_CREATED"
	OrderCompleted = "ORDER_COMPLETED"
	OrderCancelled = "ORDER_CANCELLED"

	PaymentSucceeded = "PAYMENT_SUCCEEDED"
	PaymentFailed    = "PAYMENT_FAILED"

	AvailabilityConfirmed = "AVAILABILITY_CONFIRMED"
	ProductsShortage      = "PRODUCTS_SHORTAGE"
	ProductsUpdated       = "PRODUCTS_UPDATED"

	ShipmentArranged  = "SHIPMENT_ARRANGED"
	ArrangementFailed = "ARRANGEMENT_FAILED"
	ShipmentCancelled = "SHIPMENT_CANCELLED"
)

// Command names.
const (
	ConfirmAvailability = "CONFIRM_AVAILABILITY"
	UpdateProducts      = "UPDATE_PRODUCTS"

	ArrangeShipment = "ARRANGE_SHIPMENT"
	CancelShipment  = "CANCEL_SHIPMENT"

	ProcessPayment = "PROCESS_PAYMENT"

	CompleteOrder = "COMPLETE_ORDER"
	CancelOrder   = "CANCEL_ORDER"
)
