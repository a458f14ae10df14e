package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"moonbounce/internal/config"
	"moonbounce/internal/domain"
	"moonbounce/internal/errors"
	"moonbounce/internal/esign"
	"moonbounce/internal/mailer"
)

// SubmissionSource is the slice of the submission manager the notifier needs.
type SubmissionSource interface {
	CreateOrReuse(ctx context.Context, order *domain.Order, existingID string) (*esign.Submission, error)
	FetchStatus(ctx context.Context, submissionID string) (*esign.Submission, error)
	SigningURL(sub *esign.Submission, recipientEmail string) (string, error)
}

// ReminderService drives the escalating notification campaign. Each order
// advances at most one tier per invocation, and a tier is never repeated
// within the same submission cycle. Send failures do not advance the tier, so
// the next scheduler tick retries the same one.
type ReminderService struct {
	store       AgreementStore
	submissions SubmissionSource
	sender      mailer.Sender
	logger      *zap.Logger
	mailCfg     config.MailConfig
	thresholds  config.ReminderConfig
	now         func() time.Time
}

func NewReminderService(
	store AgreementStore,
	submissions SubmissionSource,
	sender mailer.Sender,
	logger *zap.Logger,
	mailCfg config.MailConfig,
	thresholds config.ReminderConfig,
) *ReminderService {
	return &ReminderService{
		store:       store,
		submissions: submissions,
		sender:      sender,
		logger:      logger,
		mailCfg:     mailCfg,
		thresholds:  thresholds,
		now:         time.Now,
	}
}

// ProcessOrder runs one escalation tick for one order: opens a submission when
// none exists, otherwise dispatches the next applicable tier.
func (s *ReminderService) ProcessOrder(ctx context.Context, order *domain.Order) error {
	if order.Status == domain.OrderStatusCanceled {
		return nil
	}

	if order.Agreement.Status == domain.AgreementSigned {
		if order.Agreement.LastReminderTier != domain.TierSignedConfirmed {
			return s.SendSignedConfirmation(ctx, order)
		}
		return nil
	}

	if order.Agreement.SubmissionID == nil {
		return s.startCycle(ctx, order)
	}

	tier, ok := s.nextTier(order)
	if !ok {
		return nil
	}

	sub, err := s.submissions.FetchStatus(ctx, *order.Agreement.SubmissionID)
	if err != nil {
		if _, gone := errors.IsNotFoundError(err); gone {
			return s.FlagStale(ctx, order)
		}
		return err
	}

	url, err := s.submissions.SigningURL(sub, order.CustomerEmail)
	if err != nil {
		return err
	}

	return s.dispatch(ctx, order, tier, url)
}

// ResendCurrent re-dispatches the last tier's message without advancing it.
// Operator remediation for customers who lost the email.
func (s *ReminderService) ResendCurrent(ctx context.Context, order *domain.Order) error {
	if order.Status == domain.OrderStatusCanceled {
		return errors.NewConflictError("order is canceled")
	}
	if order.Agreement.Status == domain.AgreementSigned {
		return errors.NewConflictError("agreement is already signed")
	}
	if order.Agreement.SubmissionID == nil {
		return s.startCycle(ctx, order)
	}

	sub, err := s.submissions.FetchStatus(ctx, *order.Agreement.SubmissionID)
	if err != nil {
		return err
	}
	url, err := s.submissions.SigningURL(sub, order.CustomerEmail)
	if err != nil {
		return err
	}

	tier := order.Agreement.LastReminderTier
	if tier == domain.TierNone {
		tier = domain.TierInitial
	}

	msg := s.buildMessage(order, tier, url)
	if err := s.sender.Send(ctx, msg); err != nil {
		return err
	}

	s.recordEvent(ctx, order.ID, domain.EventReminderSent,
		fmt.Sprintf(`{"tier":%q,"resend":true}`, tier))
	return nil
}

// SendSignedConfirmation dispatches the confirmation exactly once per
// agreement: the tier advance to signed_confirmed is version-guarded, so a
// racing duplicate loses the write and the winner's send stands.
func (s *ReminderService) SendSignedConfirmation(ctx context.Context, order *domain.Order) error {
	if order.Agreement.LastReminderTier == domain.TierSignedConfirmed {
		return nil
	}

	msg := s.confirmationMessage(order)
	if err := s.sender.Send(ctx, msg); err != nil {
		return err
	}

	return s.advanceTier(ctx, order, domain.TierSignedConfirmed)
}

// startCycle opens a brand-new submission, resets the tier ladder, and sends
// the initial notice with the signing link.
func (s *ReminderService) startCycle(ctx context.Context, order *domain.Order) error {
	sub, err := s.submissions.CreateOrReuse(ctx, order, "")
	if err != nil {
		return err
	}

	agr := order.Agreement
	agr.SubmissionID = &sub.ID
	agr.LastReminderTier = domain.TierNone
	agr.LastReminderSentAt = nil
	if err := s.store.SaveAgreement(ctx, order.ID, agr); err != nil {
		return err
	}
	agr.Version = order.Agreement.Version + 1
	order.Agreement = agr

	s.recordEvent(ctx, order.ID, domain.EventSubmissionCreated,
		fmt.Sprintf(`{"submissionId":%q}`, sub.ID))
	if order.DeliveryDate == nil {
		s.recordEvent(ctx, order.ID, domain.EventMissingDeliveryDate, `{}`)
		s.logger.Warn("order has no structured delivery date, escalation capped at initial",
			zap.Uint("orderId", order.ID))
	}

	url, err := s.submissions.SigningURL(sub, order.CustomerEmail)
	if err != nil {
		return err
	}

	return s.dispatch(ctx, order, domain.TierInitial, url)
}

// nextTier selects the single next applicable tier from time-to-delivery.
// Pure over (order, now): no side effects.
func (s *ReminderService) nextTier(order *domain.Order) (domain.ReminderTier, bool) {
	current := order.Agreement.LastReminderTier

	if current == domain.TierNone {
		return domain.TierInitial, true
	}
	if !current.Before(domain.TierCritical) {
		return "", false
	}

	hours, ok := order.HoursUntilDelivery(s.now())
	if !ok {
		return "", false
	}

	candidate := current.Next()
	if hours <= s.thresholdHours(candidate) {
		return candidate, true
	}
	return "", false
}

func (s *ReminderService) thresholdHours(tier domain.ReminderTier) float64 {
	switch tier {
	case domain.TierNormal:
		return s.thresholds.NormalHours
	case domain.TierUrgent:
		return s.thresholds.UrgentHours
	case domain.TierCritical:
		return s.thresholds.CriticalHours
	default:
		return 0
	}
}

func (s *ReminderService) dispatch(ctx context.Context, order *domain.Order, tier domain.ReminderTier, signingURL string) error {
	msg := s.buildMessage(order, tier, signingURL)
	if err := s.sender.Send(ctx, msg); err != nil {
		s.logger.Warn("reminder send failed, tier not advanced",
			zap.Uint("orderId", order.ID),
			zap.String("tier", string(tier)),
			zap.Error(err))
		return err
	}

	return s.advanceTier(ctx, order, tier)
}

func (s *ReminderService) advanceTier(ctx context.Context, order *domain.Order, tier domain.ReminderTier) error {
	agr := order.Agreement
	agr.LastReminderTier = tier
	sentAt := s.now()
	agr.LastReminderSentAt = &sentAt

	if err := s.store.SaveAgreement(ctx, order.ID, agr); err != nil {
		return err
	}
	agr.Version = order.Agreement.Version + 1
	order.Agreement = agr

	s.recordEvent(ctx, order.ID, domain.EventReminderSent, fmt.Sprintf(`{"tier":%q}`, tier))
	s.logger.Info("reminder dispatched",
		zap.Uint("orderId", order.ID),
		zap.String("tier", string(tier)))
	return nil
}

// FlagStale clears a 404'd submission id so the next tick opens a
// fresh cycle.
func (s *ReminderService) FlagStale(ctx context.Context, order *domain.Order) error {
	agr := order.Agreement
	agr.SubmissionID = nil

	if err := s.store.SaveAgreement(ctx, order.ID, agr); err != nil {
		return err
	}
	agr.Version = order.Agreement.Version + 1
	order.Agreement = agr

	s.recordEvent(ctx, order.ID, domain.EventSubmissionStale, `{}`)
	s.logger.Info("stale submission cleared, will recreate on next cycle",
		zap.Uint("orderId", order.ID))
	return nil
}

func (s *ReminderService) recordEvent(ctx context.Context, orderID uint, eventType, detail string) {
	if err := s.store.InsertEvent(ctx, domain.AgreementEvent{
		OrderID: orderID,
		Type:    eventType,
		Detail:  detail,
	}); err != nil {
		s.logger.Warn("recording agreement event failed",
			zap.Uint("orderId", orderID),
			zap.String("type", eventType),
			zap.Error(err))
	}
}
