package saga

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/shoplite/order-saga/internal/inbox"
	"github.com/shoplite/order-saga/internal/message"
	"github.com/shoplite/order-saga/internal/outbox"
)

// Orchestrator consumes participant events, decides the next command or
// compensation from the transition graph, and writes the new state,
// the history row and the outbound command through one transaction.
//
// Compensation is command-driven, not rollback-driven: a failure event
// does not undo prior side effects, it emits explicit compensating
// commands the target participant must handle idempotently.
type Orchestrator struct {
	db     *gorm.DB
	states *Store
	outbox *outbox.Store
	guard  *inbox.Guard
	log    *zap.SugaredLogger
}

// NewOrchestrator wires the state machine to its stores.
func NewOrchestrator(db *gorm.DB, states *Store, ob *outbox.Store, guard *inbox.Guard, log *zap.SugaredLogger) *Orchestrator {
	return &Orchestrator{db: db, states: states, outbox: ob, guard: guard, log: log}
}

// Handle processes one inbound event as a single atomic unit: dedup
// insert, state mutation, history append and outbox enqueue all commit
// or roll back together.
func (o *Orchestrator) Handle(ctx context.Context, msg message.Message) error {
	return o.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dup, err := o.guard.IsDuplicate(ctx, tx, msg.ID)
		if err != nil {
			return err
		}
		if dup {
			return nil
		}
		o.log.Infow("event received", "name", msg.Name, "correlationId", msg.CorrelationID)

		switch msg.Name {
		case message.OrderCreated:
			return o.onOrderCreated(ctx, tx, msg)
		case message.AvailabilityConfirmed:
			return o.onAvailabilityConfirmed(ctx, tx, msg)
		case message.ProductsShortage:
			return o.onProductsShortage(ctx, tx, msg)
		case message.ProductsUpdated:
			return o.onProductsUpdated(ctx, tx, msg)
		case message.ShipmentArranged:
			return o.onShipmentArranged(ctx, tx, msg)
		case message.ArrangementFailed:
			return o.onArrangementFailed(ctx, tx, msg)
		case message.ShipmentCancelled:
			return o.onShipmentCancelled(ctx, tx, msg)
		case message.PaymentSucceeded, message.PaymentFailed:
			return o.onPaymentResult(ctx, tx, msg)
		case message.OrderCompleted:
			_, err := o.states.UpdateStatus(ctx, tx, msg.CorrelationID, StatusCompleted)
			return err
		case message.OrderCancelled:
			_, err := o.states.UpdateStatus(ctx, tx, msg.CorrelationID, StatusCancelled)
			return err
		default:
			return fmt.Errorf("unexpected event %q", msg.Name)
		}
	})
}

// onOrderCreated starts the saga and asks the product service to
// confirm availability.
func (o *Orchestrator) onOrderCreated(ctx context.Context, tx *gorm.DB, msg message.Message) error {
	snapshot, ok := msg.Payload.(*message.OrderCreatedPayload)
	if !ok {
		return fmt.Errorf("%s carries no order payload", msg.Name)
	}
	if _, err := o.states.Create(ctx, tx, msg.CorrelationID, snapshot); err != nil {
		return err
	}
	if _, err := o.states.UpdateStatus(ctx, tx, msg.CorrelationID, StatusPendingAvailabilityConfirmation); err != nil {
		return err
	}
	return o.outbox.Enqueue(ctx, tx, confirmAvailabilityCommand(msg.CorrelationID, snapshot))
}

// onAvailabilityConfirmed moves on to shipment arrangement.
func (o *Orchestrator) onAvailabilityConfirmed(ctx context.Context, tx *gorm.DB, msg message.Message) error {
	if _, err := o.states.UpdateStatus(ctx, tx, msg.CorrelationID, StatusAvailabilityConfirmed); err != nil {
		return err
	}
	state, err := o.states.UpdateStatus(ctx, tx, msg.CorrelationID, StatusPendingShipmentArrangement)
	if err != nil {
		return err
	}
	snapshot, err := state.OrderCreated()
	if err != nil {
		return err
	}
	return o.outbox.Enqueue(ctx, tx, arrangeShipmentCommand(msg.CorrelationID, snapshot))
}

// onProductsShortage starts compensation: the order is cancelled with
// the shortage detail as the reason.
func (o *Orchestrator) onProductsShortage(ctx context.Context, tx *gorm.DB, msg message.Message) error {
	shortage, ok := msg.Payload.(*message.ProductsShortagePayload)
	if !ok {
		return fmt.Errorf("%s carries no shortage payload", msg.Name)
	}
	state, err := o.states.ReflectProductsUnavailability(ctx, tx, msg.CorrelationID, shortage)
	if err != nil {
		return err
	}
	if _, err := o.states.UpdateStatus(ctx, tx, msg.CorrelationID, StatusPendingCancellation); err != nil {
		return err
	}
	return o.outbox.Enqueue(ctx, tx, cancelOrderCommand(msg.CorrelationID, reasonOf(state)))
}

// onShipmentArranged records the shipment and moves on to payment.
func (o *Orchestrator) onShipmentArranged(ctx context.Context, tx *gorm.DB, msg message.Message) error {
	arranged, ok := msg.Payload.(*message.ShipmentArrangedPayload)
	if !ok {
		return fmt.Errorf("%s carries no shipment payload", msg.Name)
	}
	if _, err := o.states.ReflectShipmentArrangement(ctx, tx, msg.CorrelationID, arranged); err != nil {
		return err
	}
	state, err := o.states.UpdateStatus(ctx, tx, msg.CorrelationID, StatusPendingPayment)
	if err != nil {
		return err
	}
	snapshot, err := state.OrderCreated()
	if err != nil {
		return err
	}
	return o.outbox.Enqueue(ctx, tx, processPaymentCommand(msg.CorrelationID, snapshot))
}

// onArrangementFailed starts compensation for a shipment failure.
func (o *Orchestrator) onArrangementFailed(ctx context.Context, tx *gorm.DB, msg message.Message) error {
	failed, ok := msg.Payload.(*message.ArrangementFailedPayload)
	if !ok {
		return fmt.Errorf("%s carries no failure payload", msg.Name)
	}
	if _, err := o.states.ReflectShipmentArrangementFailure(ctx, tx, msg.CorrelationID, failed); err != nil {
		return err
	}
	state, err := o.states.UpdateStatus(ctx, tx, msg.CorrelationID, StatusPendingCancellation)
	if err != nil {
		return err
	}
	return o.outbox.Enqueue(ctx, tx, cancelOrderCommand(msg.CorrelationID, reasonOf(state)))
}

// onPaymentResult handles both payment outcomes: success proceeds to
// stock decrement, failure compensates the already-arranged shipment.
func (o *Orchestrator) onPaymentResult(ctx context.Context, tx *gorm.DB, msg message.Message) error {
	state, err := o.states.ReflectPayment(ctx, tx, msg.CorrelationID, msg.Payload)
	if err != nil {
		return err
	}
	if failed, ok := msg.Payload.(*message.PaymentFailedPayload); ok {
		state, err = o.states.UpdateStatus(ctx, tx, msg.CorrelationID, StatusPendingShipmentCancellation)
		if err != nil {
			return err
		}
		arranged, err := state.ShipmentArranged()
		if err != nil {
			return err
		}
		return o.outbox.Enqueue(ctx, tx, cancelShipmentCommand(msg.CorrelationID, arranged.ShipmentID, failed.Reason))
	}
	snapshot, err := state.OrderCreated()
	if err != nil {
		return err
	}
	return o.outbox.Enqueue(ctx, tx, updateProductsCommand(msg.CorrelationID, snapshot))
}

// onShipmentCancelled acknowledges the compensated shipment and issues
// the final cancel-order command.
func (o *Orchestrator) onShipmentCancelled(ctx context.Context, tx *gorm.DB, msg message.Message) error {
	state, err := o.states.UpdateStatus(ctx, tx, msg.CorrelationID, StatusPendingCancellation)
	if err != nil {
		return err
	}
	return o.outbox.Enqueue(ctx, tx, cancelOrderCommand(msg.CorrelationID, reasonOf(state)))
}

// onProductsUpdated issues the final complete-order command.
func (o *Orchestrator) onProductsUpdated(ctx context.Context, tx *gorm.DB, msg message.Message) error {
	if _, err := o.states.UpdateStatus(ctx, tx, msg.CorrelationID, StatusPendingCompletion); err != nil {
		return err
	}
	return o.outbox.Enqueue(ctx, tx, completeOrderCommand(msg.CorrelationID))
}

func reasonOf(state *State) string {
	if state.FailureReason == nil {
		return ""
	}
	return *state.FailureReason
}
