package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"moonbounce/internal/domain"
	"moonbounce/internal/errors"
)

type GateStore interface {
	FindByID(ctx context.Context, id uint) (*domain.Order, error)
	SaveAgreement(ctx context.Context, orderID uint, agr domain.Agreement) error
	InsertEvent(ctx context.Context, ev domain.AgreementEvent) error
}

// GateService exposes the delivery gate: a read for dispatch and an audited
// manual override. Automatic gate changes belong to the synchronizer alone.
type GateService struct {
	store  GateStore
	logger *zap.Logger
	now    func() time.Time
}

func NewGateService(store GateStore, logger *zap.Logger) *GateService {
	return &GateService{
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

func (s *GateService) CanDeliver(ctx context.Context, orderID uint) (bool, error) {
	order, err := s.store.FindByID(ctx, orderID)
	if err != nil {
		return false, err
	}
	return order.CanDeliver(), nil
}

// OverrideBlock lifts the delivery block without touching the agreement
// status. Reason and actor are mandatory; the override is cleared again the
// moment the agreement is actually signed or the customer declines.
func (s *GateService) OverrideBlock(ctx context.Context, orderID uint, reason, actor string) error {
	var details []errors.ValidationDetail
	if reason == "" {
		details = append(details, errors.ValidationDetail{
			Field:   "reason",
			Message: "reason is required",
		})
	}
	if actor == "" {
		details = append(details, errors.ValidationDetail{
			Field:   "actor",
			Message: "actor is required",
		})
	}
	if len(details) > 0 {
		return errors.NewValidationError("override requires a reason and an actor", details...)
	}

	order, err := s.store.FindByID(ctx, orderID)
	if err != nil {
		return err
	}
	if order.Status == domain.OrderStatusCanceled {
		return errors.NewConflictError("order is canceled")
	}
	if order.CanDeliver() {
		return nil
	}

	agr := order.Agreement
	agr.Override = &domain.Override{
		Reason: reason,
		By:     actor,
		At:     s.now(),
	}
	agr.DeliveryBlocked = false

	if err := s.store.SaveAgreement(ctx, orderID, agr); err != nil {
		return err
	}

	if err := s.store.InsertEvent(ctx, domain.AgreementEvent{
		OrderID: orderID,
		Type:    domain.EventOverrideSet,
		Actor:   &actor,
		Detail:  fmt.Sprintf(`{"reason":%q}`, reason),
	}); err != nil {
		s.logger.Warn("recording override event failed",
			zap.Uint("orderId", orderID), zap.Error(err))
	}

	s.logger.Info("delivery block overridden",
		zap.Uint("orderId", orderID),
		zap.String("actor", actor),
		zap.String("reason", reason))
	return nil
}
