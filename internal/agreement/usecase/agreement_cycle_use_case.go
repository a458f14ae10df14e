package usecase

import (
	"context"

	"go.uber.org/zap"

	"moonbounce/internal/agreement/service"
	"moonbounce/internal/domain"
	"moonbounce/internal/errors"
	"moonbounce/internal/esign"
)

type OrderRepository interface {
	FindByID(ctx context.Context, id uint) (*domain.Order, error)
	FindBySubmissionID(ctx context.Context, submissionID string) (*domain.Order, error)
	ListOpenSubmissions(ctx context.Context) ([]domain.Order, error)
	ListNeedingReminder(ctx context.Context) ([]domain.Order, error)
}

type Synchronizer interface {
	Reconcile(ctx context.Context, order *domain.Order, sub *esign.Submission) (*service.ReconcileResult, error)
}

type Notifier interface {
	ProcessOrder(ctx context.Context, order *domain.Order) error
	ResendCurrent(ctx context.Context, order *domain.Order) error
	FlagStale(ctx context.Context, order *domain.Order) error
}

type SubmissionManager interface {
	FetchStatus(ctx context.Context, submissionID string) (*esign.Submission, error)
	Void(ctx context.Context, submissionID string) error
	SigningURL(sub *esign.Submission, recipientEmail string) (string, error)
}

// AgreementCycleUseCase orchestrates the agreement lifecycle across the
// submission manager, synchronizer and notifier: webhook ingestion, the
// periodic pull sweep, the reminder pass, and operator actions.
type AgreementCycleUseCase struct {
	orders      OrderRepository
	sync        Synchronizer
	reminders   Notifier
	submissions SubmissionManager
	logger      *zap.Logger
}

func NewAgreementCycleUseCase(
	orders OrderRepository,
	sync Synchronizer,
	reminders Notifier,
	submissions SubmissionManager,
	logger *zap.Logger,
) *AgreementCycleUseCase {
	return &AgreementCycleUseCase{
		orders:      orders,
		sync:        sync,
		reminders:   reminders,
		submissions: submissions,
		logger:      logger,
	}
}

// StartAgreement ensures an order has a live signing cycle and returns the
// customer's signing link. Creating the submission and sending the initial
// notice happen through the notifier so tier bookkeeping stays in one place.
func (uc *AgreementCycleUseCase) StartAgreement(ctx context.Context, orderID uint) (string, error) {
	order, err := uc.orders.FindByID(ctx, orderID)
	if err != nil {
		return "", err
	}
	if order.Status == domain.OrderStatusCanceled {
		return "", errors.NewConflictError("order is canceled")
	}
	if order.Agreement.Status == domain.AgreementSigned {
		return "", errors.NewConflictError("agreement is already signed")
	}

	if order.Agreement.SubmissionID == nil {
		if err := uc.reminders.ProcessOrder(ctx, order); err != nil {
			return "", err
		}
	}
	if order.Agreement.SubmissionID == nil {
		return "", errors.NewInternalError("submission was not created", nil)
	}

	sub, err := uc.submissions.FetchStatus(ctx, *order.Agreement.SubmissionID)
	if err != nil {
		return "", err
	}
	return uc.submissions.SigningURL(sub, order.CustomerEmail)
}

// HandleWebhook reconciles an order against a provider-pushed submission
// snapshot. Unknown submission ids are ignorable: the sweep self-heals any
// order the webhook cannot be matched to.
func (uc *AgreementCycleUseCase) HandleWebhook(ctx context.Context, eventType string, sub *esign.Submission) error {
	order, err := uc.orders.FindBySubmissionID(ctx, sub.ID)
	if err != nil {
		if _, ok := errors.IsNotFoundError(err); ok {
			uc.logger.Info("webhook for unknown submission ignored",
				zap.String("submissionId", sub.ID),
				zap.String("eventType", eventType))
			return nil
		}
		return err
	}

	_, err = uc.reconcileWithRetry(ctx, order, sub)
	return err
}

// RunSweep is the pull path: re-fetch every open submission and reconcile.
// Per-order failures are logged and never abort the sweep.
func (uc *AgreementCycleUseCase) RunSweep(ctx context.Context) error {
	orders, err := uc.orders.ListOpenSubmissions(ctx)
	if err != nil {
		return err
	}

	for i := range orders {
		order := &orders[i]
		if ctx.Err() != nil {
			return ctx.Err()
		}

		sub, err := uc.submissions.FetchStatus(ctx, *order.Agreement.SubmissionID)
		if err != nil {
			if _, gone := errors.IsNotFoundError(err); gone {
				if err := uc.reminders.FlagStale(ctx, order); err != nil {
					uc.logger.Error("flagging stale submission failed",
						zap.Uint("orderId", order.ID), zap.Error(err))
				}
				continue
			}
			uc.logger.Error("sweep fetch failed",
				zap.Uint("orderId", order.ID), zap.Error(err))
			continue
		}

		if _, err := uc.reconcileWithRetry(ctx, order, sub); err != nil {
			uc.logger.Error("sweep reconcile failed",
				zap.Uint("orderId", order.ID), zap.Error(err))
		}
	}

	return nil
}

// RunReminders runs one escalation tick across all orders still owing a
// signature or a confirmation.
func (uc *AgreementCycleUseCase) RunReminders(ctx context.Context) error {
	orders, err := uc.orders.ListNeedingReminder(ctx)
	if err != nil {
		return err
	}

	for i := range orders {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := uc.reminders.ProcessOrder(ctx, &orders[i]); err != nil {
			uc.logger.Error("reminder tick failed",
				zap.Uint("orderId", orders[i].ID), zap.Error(err))
		}
	}

	return nil
}

// CancelAgreement voids the remote submission when an order is cancelled
// before signing. Best-effort: a void failure never blocks the cancellation.
func (uc *AgreementCycleUseCase) CancelAgreement(ctx context.Context, orderID uint) error {
	order, err := uc.orders.FindByID(ctx, orderID)
	if err != nil {
		return err
	}
	if order.Agreement.SubmissionID == nil || order.Agreement.Status == domain.AgreementSigned {
		return nil
	}

	if err := uc.submissions.Void(ctx, *order.Agreement.SubmissionID); err != nil {
		uc.logger.Warn("voiding submission failed",
			zap.Uint("orderId", orderID),
			zap.String("submissionId", *order.Agreement.SubmissionID),
			zap.Error(err))
	}
	return nil
}

// Resend re-dispatches the current tier's email. Operator nudge for lost mail.
func (uc *AgreementCycleUseCase) Resend(ctx context.Context, orderID uint) error {
	order, err := uc.orders.FindByID(ctx, orderID)
	if err != nil {
		return err
	}
	return uc.reminders.ResendCurrent(ctx, order)
}

// reconcileWithRetry retries exactly once after a lost concurrent update,
// against a freshly read order. Applying an already-applied snapshot to the
// fresh read is a no-op.
func (uc *AgreementCycleUseCase) reconcileWithRetry(ctx context.Context, order *domain.Order, sub *esign.Submission) (*service.ReconcileResult, error) {
	result, err := uc.sync.Reconcile(ctx, order, sub)
	if err == nil {
		return result, nil
	}
	if _, ok := errors.IsConflictError(err); !ok {
		return nil, err
	}

	fresh, err := uc.orders.FindByID(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	return uc.sync.Reconcile(ctx, fresh, sub)
}
