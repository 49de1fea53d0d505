package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"tablepay/internal/errors"
	"tablepay/internal/model"
	"tablepay/internal/repository"
)

// StatusUpdater is the one idempotent routine both webhook ingestion and the
// reconciliation poller funnel through. A payment outcome is applied at most
// once: repeat deliveries of the same outcome are no-ops, and a payment that
// already reached a terminal state never moves again except COMPLETED ->
// REFUNDED.
type StatusUpdater interface {
	ApplyOutcome(ctx context.Context, payment *model.Payment, status model.PaymentStatus, detail string) error
	Close()
}

type statusUpdater struct {
	paymentRepo    repository.PaymentRepository
	paymentLogRepo repository.PaymentLogRepository
	orderStatus    OrderStatusService
	logger         *zap.Logger
	// Channel for async payment audit logging. logMu serializes sends
	// against Close so an in-flight request cannot hit a closed channel.
	logChannel chan model.PaymentLog
	logMu      sync.RWMutex
	closed     bool
}

// NewStatusUpdater creates a new status updater and starts its async audit
// log worker.
func NewStatusUpdater(
	paymentRepo repository.PaymentRepository,
	paymentLogRepo repository.PaymentLogRepository,
	orderStatus OrderStatusService,
	logger *zap.Logger,
) StatusUpdater {
	updater := &statusUpdater{
		paymentRepo:    paymentRepo,
		paymentLogRepo: paymentLogRepo,
		orderStatus:    orderStatus,
		logger:         logger,
		logChannel:     make(chan model.PaymentLog, 100),
	}

	// Start async log worker
	go updater.logWorker(context.Background())

	return updater
}

// ApplyOutcome updates the payment row and pushes the mapped effect through
// the order state machine.
func (u *statusUpdater) ApplyOutcome(ctx context.Context, payment *model.Payment, status model.PaymentStatus, detail string) error {
	if status == "" || status == model.PaymentStatusPending {
		// The provider has not settled yet; nothing to converge on.
		return nil
	}
	if payment.Status == status {
		// Same outcome delivered twice (webhook replay, webhook/poll race).
		return nil
	}
	if payment.Status.IsTerminal() {
		u.logger.Warn("outcome for terminal payment ignored",
			zap.String("payment_id", payment.ID.String()),
			zap.String("current", string(payment.Status)),
			zap.String("requested", string(status)),
		)
		return nil
	}
	if payment.Status == model.PaymentStatusCompleted && status != model.PaymentStatusRefunded {
		// COMPLETED only ever moves to REFUNDED.
		return nil
	}

	payment.Status = status
	if status == model.PaymentStatusFailed {
		payment.FailureReason = detail
	}
	if err := u.paymentRepo.Update(ctx, payment); err != nil {
		return fmt.Errorf("update payment: %w", err)
	}
	u.logPayment(ctx, payment.ID, status, detail)

	target, ok := orderEffect(status)
	if !ok {
		return nil
	}
	if _, err := u.orderStatus.ApplyTransition(ctx, payment.OrderID, target); err != nil {
		if errors.Is(err, errors.ErrStaleTransition) {
			// Another path already converged the order; the payment row is
			// consistent either way.
			return nil
		}
		return fmt.Errorf("apply order transition: %w", err)
	}
	return nil
}

// Close flushes the audit log worker. Safe to call more than once; later
// status changes fall back to synchronous audit writes.
func (u *statusUpdater) Close() {
	u.logMu.Lock()
	defer u.logMu.Unlock()
	if u.closed {
		return
	}
	u.closed = true
	close(u.logChannel)
}

// orderEffect maps an internal payment status to its order transition.
func orderEffect(status model.PaymentStatus) (model.OrderStatus, bool) {
	switch status {
	case model.PaymentStatusCompleted:
		return model.OrderStatusPaid, true
	case model.PaymentStatusFailed, model.PaymentStatusRefunded:
		return model.OrderStatusCancelled, true
	default:
		return "", false
	}
}

// logWorker processes payment audit logs asynchronously in small batches.
func (u *statusUpdater) logWorker(ctx context.Context) {
	batch := make([]model.PaymentLog, 0, 10)
	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case log, ok := <-u.logChannel:
			if !ok {
				// Channel closed, flush remaining logs
				if len(batch) > 0 {
					_ = u.paymentLogRepo.CreateBatch(ctx, batch)
				}
				return
			}
			batch = append(batch, log)
			if len(batch) >= 10 {
				_ = u.paymentLogRepo.CreateBatch(ctx, batch)
				batch = batch[:0]
			}
		case <-ticker.C:
			// Flush batch periodically
			if len(batch) > 0 {
				_ = u.paymentLogRepo.CreateBatch(ctx, batch)
				batch = batch[:0]
			}
		case <-ctx.Done():
			return
		}
	}
}

// logPayment records a payment status change asynchronously.
func (u *statusUpdater) logPayment(ctx context.Context, paymentID uuid.UUID, status model.PaymentStatus, detail string) {
	log := model.PaymentLog{
		PaymentID: paymentID,
		Status:    status,
		Detail:    detail,
	}

	// The read lock is held across the send; Close waits it out before
	// closing the channel.
	u.logMu.RLock()
	defer u.logMu.RUnlock()
	if u.closed {
		_ = u.paymentLogRepo.Create(ctx, &log)
		return
	}

	// Send to async log channel (non-blocking)
	select {
	case u.logChannel <- log:
	default:
		// Channel full, log synchronously as fallback
		_ = u.paymentLogRepo.Create(ctx, &log)
	}
}
