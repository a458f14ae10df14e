package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"moonbounce/internal/domain"
	"moonbounce/internal/esign"
)

// AgreementStore is the persistence surface the synchronizer needs. Saves are
// conditional on the version read; a lost race comes back as ConflictError.
type AgreementStore interface {
	SaveAgreement(ctx context.Context, orderID uint, agr domain.Agreement) error
	InsertEvent(ctx context.Context, ev domain.AgreementEvent) error
}

// ConfirmationNotifier sends the signed-confirmation email. Only the
// reconciliation that wins the conditional update triggers it.
type ConfirmationNotifier interface {
	SendSignedConfirmation(ctx context.Context, order *domain.Order) error
}

// SyncService reconciles the local agreement record against a remote
// submission snapshot. Safe to invoke redundantly and out of order: applying
// the same or a stale snapshot to correct state is a no-op.
type SyncService struct {
	store             AgreementStore
	notifier          ConfirmationNotifier
	logger            *zap.Logger
	recreateOnDecline bool
	now               func() time.Time
}

func NewSyncService(store AgreementStore, notifier ConfirmationNotifier, logger *zap.Logger, recreateOnDecline bool) *SyncService {
	return &SyncService{
		store:             store,
		notifier:          notifier,
		logger:            logger,
		recreateOnDecline: recreateOnDecline,
		now:               time.Now,
	}
}

type ReconcileResult struct {
	Changed   bool
	NewStatus domain.AgreementStatus
}

// Reconcile computes the correct local state from the submission snapshot and
// applies it atomically. Priority order encodes monotonic terminal precedence:
// a completed signature always wins, a viewed event never regresses one.
func (s *SyncService) Reconcile(ctx context.Context, order *domain.Order, sub *esign.Submission) (*ReconcileResult, error) {
	current := order.Agreement
	target := current

	switch {
	case sub.AllCompleted() && current.Status != domain.AgreementSigned:
		target.Status = domain.AgreementSigned
		if target.SignedAt == nil {
			signedAt := sub.EarliestCompletedAt(s.now())
			target.SignedAt = &signedAt
		}
		target.DeliveryBlocked = false
		target.Override = nil

	case sub.AnyDeclined() && current.Status != domain.AgreementSigned:
		// A decline restarts the ask rather than terminating it, and always
		// re-blocks delivery, override or not.
		target.Status = domain.AgreementPending
		target.DeliveryBlocked = true
		target.Override = nil
		if s.recreateOnDecline {
			target.SubmissionID = nil
		}

	case sub.AnyOpened() &&
		(current.Status == domain.AgreementNotSent || current.Status == domain.AgreementPending):
		target.Status = domain.AgreementViewed
		if target.ViewedAt == nil {
			viewedAt := s.now()
			target.ViewedAt = &viewedAt
		}
	}

	if target.Equal(&current) {
		return &ReconcileResult{Changed: false, NewStatus: current.Status}, nil
	}

	if err := s.store.SaveAgreement(ctx, order.ID, target); err != nil {
		return nil, err
	}
	target.Version = current.Version + 1
	order.Agreement = target

	if err := s.store.InsertEvent(ctx, domain.AgreementEvent{
		OrderID: order.ID,
		Type:    domain.EventStatusChanged,
		Detail: fmt.Sprintf(`{"from":%q,"to":%q,"submissionId":%q}`,
			current.Status, target.Status, sub.ID),
	}); err != nil {
		s.logger.Warn("recording status change event failed",
			zap.Uint("orderId", order.ID), zap.Error(err))
	}

	s.logger.Info("agreement reconciled",
		zap.Uint("orderId", order.ID),
		zap.String("from", string(current.Status)),
		zap.String("to", string(target.Status)),
		zap.Bool("deliveryBlocked", target.DeliveryBlocked))

	if target.Status == domain.AgreementSigned && current.Status != domain.AgreementSigned {
		// Notification failure never unwinds a reconciliation; the reminder
		// pass retries the confirmation on its next tick.
		if err := s.notifier.SendSignedConfirmation(ctx, order); err != nil {
			s.logger.Warn("signed confirmation send failed",
				zap.Uint("orderId", order.ID), zap.Error(err))
		}
	}

	return &ReconcileResult{Changed: true, NewStatus: target.Status}, nil
}
