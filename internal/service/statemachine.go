package service

import (
	"tablepay/internal/errors"
	"tablepay/internal/model"
)

// orderTransitions is the authoritative set of legal order-lifecycle edges.
// Illegal transitions are rejected, not silently ignored.
var orderTransitions = map[model.OrderStatus][]model.OrderStatus{
	model.OrderStatusCreated:        {model.OrderStatusPaymentPending, model.OrderStatusPaid, model.OrderStatusCancelled},
	model.OrderStatusPaymentPending: {model.OrderStatusPaid, model.OrderStatusCancelled},
	model.OrderStatusPaid:           {model.OrderStatusAccepted, model.OrderStatusCancelled},
	model.OrderStatusAccepted:       {model.OrderStatusPreparing, model.OrderStatusCancelled},
	model.OrderStatusPreparing:      {model.OrderStatusReady, model.OrderStatusCancelled},
	model.OrderStatusReady:          {model.OrderStatusCompleted, model.OrderStatusCancelled},
	model.OrderStatusCompleted:      {},
	model.OrderStatusCancelled:      {},
}

// orderStatusRank orders the forward lifecycle so that out-of-order deliveries
// can be told apart from genuinely illegal edges. CANCELLED sits outside the
// forward ranking.
var orderStatusRank = map[model.OrderStatus]int{
	model.OrderStatusCreated:        0,
	model.OrderStatusPaymentPending: 1,
	model.OrderStatusPaid:           2,
	model.OrderStatusAccepted:       3,
	model.OrderStatusPreparing:      4,
	model.OrderStatusReady:          5,
	model.OrderStatusCompleted:      6,
}

// StateMachine validates order status transitions.
type StateMachine struct{}

// NewStateMachine creates a new order state machine.
func NewStateMachine() *StateMachine {
	return &StateMachine{}
}

// CanTransition reports whether from -> to is a legal edge. It distinguishes
// two rejections: ErrStaleTransition when the order is already at or past the
// target (safe to treat as a no-op for same-outcome deliveries), and
// ErrTransitionNotAllowed when the edge simply does not exist.
func (m *StateMachine) CanTransition(from, to model.OrderStatus) error {
	if from == to {
		return errors.ErrStaleTransition
	}
	if from == model.OrderStatusCancelled {
		return errors.ErrTransitionNotAllowed
	}
	if to != model.OrderStatusCancelled {
		fromRank, fromOK := orderStatusRank[from]
		toRank, toOK := orderStatusRank[to]
		if fromOK && toOK && fromRank >= toRank {
			return errors.ErrStaleTransition
		}
	}
	for _, allowed := range orderTransitions[from] {
		if allowed == to {
			return nil
		}
	}
	return errors.ErrTransitionNotAllowed
}
