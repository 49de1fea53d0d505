package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"tablepay/internal/errors"
	"tablepay/internal/model"
)

func TestApplyTransition_ConditionalWrite(t *testing.T) {
	orderRepo := new(MockOrderRepository)
	svc := NewOrderStatusService(orderRepo, nil, zap.NewNop())
	orderID := uuid.New()

	orderRepo.On("FindByID", mock.Anything, orderID).Return(&model.Order{
		ID: orderID, Status: model.OrderStatusPaymentPending,
	}, nil)
	orderRepo.On("UpdateStatusIf", mock.Anything, orderID, model.OrderStatusPaymentPending, model.OrderStatusPaid).Return(true, nil)

	order, err := svc.ApplyTransition(context.Background(), orderID, model.OrderStatusPaid)
	assert.NoError(t, err)
	assert.Equal(t, model.OrderStatusPaid, order.Status)
	orderRepo.AssertExpectations(t)
}

func TestApplyTransition_SameTargetIsIdempotent(t *testing.T) {
	orderRepo := new(MockOrderRepository)
	svc := NewOrderStatusService(orderRepo, nil, zap.NewNop())
	orderID := uuid.New()

	orderRepo.On("FindByID", mock.Anything, orderID).Return(&model.Order{
		ID: orderID, Status: model.OrderStatusPaid,
	}, nil)

	order, err := svc.ApplyTransition(context.Background(), orderID, model.OrderStatusPaid)
	assert.NoError(t, err)
	assert.Equal(t, model.OrderStatusPaid, order.Status)
	orderRepo.AssertNotCalled(t, "UpdateStatusIf", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestApplyTransition_LostRaceToSameTargetSucceeds(t *testing.T) {
	orderRepo := new(MockOrderRepository)
	svc := NewOrderStatusService(orderRepo, nil, zap.NewNop())
	orderID := uuid.New()

	// Webhook and poll race: the conditional write loses but the winner wrote
	// the same target, so both callers converge.
	orderRepo.On("FindByID", mock.Anything, orderID).Return(&model.Order{
		ID: orderID, Status: model.OrderStatusPaymentPending,
	}, nil).Once()
	orderRepo.On("UpdateStatusIf", mock.Anything, orderID, model.OrderStatusPaymentPending, model.OrderStatusPaid).Return(false, nil)
	orderRepo.On("FindByID", mock.Anything, orderID).Return(&model.Order{
		ID: orderID, Status: model.OrderStatusPaid,
	}, nil).Once()

	order, err := svc.ApplyTransition(context.Background(), orderID, model.OrderStatusPaid)
	assert.NoError(t, err)
	assert.Equal(t, model.OrderStatusPaid, order.Status)
}

func TestApplyTransition_LostRaceToDifferentTargetIsStale(t *testing.T) {
	orderRepo := new(MockOrderRepository)
	svc := NewOrderStatusService(orderRepo, nil, zap.NewNop())
	orderID := uuid.New()

	orderRepo.On("FindByID", mock.Anything, orderID).Return(&model.Order{
		ID: orderID, Status: model.OrderStatusPaymentPending,
	}, nil).Once()
	orderRepo.On("UpdateStatusIf", mock.Anything, orderID, model.OrderStatusPaymentPending, model.OrderStatusPaid).Return(false, nil)
	orderRepo.On("FindByID", mock.Anything, orderID).Return(&model.Order{
		ID: orderID, Status: model.OrderStatusCancelled,
	}, nil).Once()

	_, err := svc.ApplyTransition(context.Background(), orderID, model.OrderStatusPaid)
	assert.ErrorIs(t, err, errors.ErrStaleTransition)
}

func TestApplyTransition_IllegalEdgeRejected(t *testing.T) {
	orderRepo := new(MockOrderRepository)
	svc := NewOrderStatusService(orderRepo, nil, zap.NewNop())
	orderID := uuid.New()

	orderRepo.On("FindByID", mock.Anything, orderID).Return(&model.Order{
		ID: orderID, Status: model.OrderStatusCreated,
	}, nil)

	_, err := svc.ApplyTransition(context.Background(), orderID, model.OrderStatusReady)
	assert.ErrorIs(t, err, errors.ErrTransitionNotAllowed)
	orderRepo.AssertNotCalled(t, "UpdateStatusIf", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}
