package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"moonbounce/internal/config"
	"moonbounce/internal/domain"
	apperrors "moonbounce/internal/errors"
	"moonbounce/internal/esign"
	"moonbounce/internal/mailer"
)

type mockSubmissions struct {
	CreateOrReuseFunc func(ctx context.Context, order *domain.Order, existingID string) (*esign.Submission, error)
	FetchStatusFunc   func(ctx context.Context, submissionID string) (*esign.Submission, error)
}

func (m *mockSubmissions) CreateOrReuse(ctx context.Context, order *domain.Order, existingID string) (*esign.Submission, error) {
	return m.CreateOrReuseFunc(ctx, order, existingID)
}

func (m *mockSubmissions) FetchStatus(ctx context.Context, submissionID string) (*esign.Submission, error) {
	return m.FetchStatusFunc(ctx, submissionID)
}

func (m *mockSubmissions) SigningURL(sub *esign.Submission, recipientEmail string) (string, error) {
	for _, s := range sub.Submitters {
		if s.Email == recipientEmail {
			return s.SigningURL, nil
		}
	}
	return "", apperrors.NewValidationError("no recipient")
}

type mockSender struct {
	sent []mailer.Message
	err  error
}

func (m *mockSender) Send(ctx context.Context, msg mailer.Message) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestReminderService(store *mockStore, subs *mockSubmissions, sender *mockSender) *ReminderService {
	svc := NewReminderService(store, subs, sender, zap.NewNop(),
		config.MailConfig{From: "bookings@moonbounce.example"},
		config.ReminderConfig{NormalHours: 48, UrgentHours: 24, CriticalHours: 8},
	)
	svc.now = func() time.Time { return testNow }
	return svc
}

func liveSubmission(id string) *esign.Submission {
	return &esign.Submission{
		ID: id,
		Submitters: []esign.Submitter{
			{Email: "dana@example.com", Status: esign.SubmitterSent, SigningURL: "https://sign.example/s/" + id},
		},
	}
}

func orderDueIn(hours float64, tier domain.ReminderTier) *domain.Order {
	due := testNow.Add(time.Duration(hours * float64(time.Hour)))
	subID := "41"
	return &domain.Order{
		ID:            7,
		CustomerName:  "Dana Castillo",
		CustomerEmail: "dana@example.com",
		Status:        domain.OrderStatusPending,
		DeliveryDate:  &due,
		Items: []domain.OrderItem{
			{Name: "Castle Bounce House", Quantity: 1, Price: 189},
		},
		TotalAmount: 189,
		Agreement: domain.Agreement{
			Status:           domain.AgreementPending,
			SubmissionID:     &subID,
			DeliveryBlocked:  true,
			LastReminderTier: tier,
		},
	}
}

func TestProcessOrder_NewOrder_SendsInitial(t *testing.T) {
	// Scenario: fresh order, delivery in 72h, no submission yet.
	store := &mockStore{}
	sender := &mockSender{}
	subs := &mockSubmissions{
		CreateOrReuseFunc: func(ctx context.Context, order *domain.Order, existingID string) (*esign.Submission, error) {
			assert.Empty(t, existingID)
			return liveSubmission("88"), nil
		},
	}
	svc := newTestReminderService(store, subs, sender)

	order := orderDueIn(72, domain.TierNone)
	order.Agreement.SubmissionID = nil
	order.Agreement.Status = domain.AgreementNotSent

	require.NoError(t, svc.ProcessOrder(context.Background(), order))

	require.Len(t, sender.sent, 1)
	assert.Contains(t, sender.sent[0].Text, "https://sign.example/s/88")
	assert.Equal(t, "dana@example.com", sender.sent[0].To)
	assert.Equal(t, domain.TierInitial, order.Agreement.LastReminderTier)
	require.NotNil(t, order.Agreement.SubmissionID)
	assert.Equal(t, "88", *order.Agreement.SubmissionID)
	assert.True(t, order.Agreement.DeliveryBlocked)
}

func TestProcessOrder_FarFromDelivery_NoEscalation(t *testing.T) {
	store := &mockStore{}
	sender := &mockSender{}
	svc := newTestReminderService(store, &mockSubmissions{}, sender)

	order := orderDueIn(72, domain.TierInitial)
	require.NoError(t, svc.ProcessOrder(context.Background(), order))

	assert.Empty(t, sender.sent)
	assert.Equal(t, domain.TierInitial, order.Agreement.LastReminderTier)
}

func TestProcessOrder_AdvancesOneTierPerTick(t *testing.T) {
	// Scenario: delivery in 4h, still unsigned. The ladder is climbed one
	// step per tick until the final warning goes out.
	store := &mockStore{}
	sender := &mockSender{}
	subs := &mockSubmissions{
		FetchStatusFunc: func(ctx context.Context, submissionID string) (*esign.Submission, error) {
			return liveSubmission(submissionID), nil
		},
	}
	svc := newTestReminderService(store, subs, sender)

	order := orderDueIn(4, domain.TierInitial)

	require.NoError(t, svc.ProcessOrder(context.Background(), order))
	assert.Equal(t, domain.TierNormal, order.Agreement.LastReminderTier)

	require.NoError(t, svc.ProcessOrder(context.Background(), order))
	assert.Equal(t, domain.TierUrgent, order.Agreement.LastReminderTier)

	require.NoError(t, svc.ProcessOrder(context.Background(), order))
	assert.Equal(t, domain.TierCritical, order.Agreement.LastReminderTier)

	require.Len(t, sender.sent, 3)
	final := sender.sent[2]
	assert.Contains(t, final.Subject, "FINAL NOTICE")
	assert.Contains(t, strings.ToLower(final.Text), "call us")

	// Critical is the top of the ladder: nothing more goes out.
	require.NoError(t, svc.ProcessOrder(context.Background(), order))
	assert.Len(t, sender.sent, 3)
}

func TestProcessOrder_TierNotRepeatedWithinCycle(t *testing.T) {
	store := &mockStore{}
	sender := &mockSender{}
	subs := &mockSubmissions{
		FetchStatusFunc: func(ctx context.Context, submissionID string) (*esign.Submission, error) {
			return liveSubmission(submissionID), nil
		},
	}
	svc := newTestReminderService(store, subs, sender)

	order := orderDueIn(30, domain.TierNormal)

	// 30h out: normal already sent, urgent threshold (24h) not reached.
	require.NoError(t, svc.ProcessOrder(context.Background(), order))
	assert.Empty(t, sender.sent)
	assert.Equal(t, domain.TierNormal, order.Agreement.LastReminderTier)
}

func TestProcessOrder_SendFailure_DoesNotAdvanceTier(t *testing.T) {
	store := &mockStore{}
	sender := &mockSender{err: apperrors.NewTransportError("smtp down", nil)}
	subs := &mockSubmissions{
		FetchStatusFunc: func(ctx context.Context, submissionID string) (*esign.Submission, error) {
			return liveSubmission(submissionID), nil
		},
	}
	svc := newTestReminderService(store, subs, sender)

	order := orderDueIn(20, domain.TierNormal)
	err := svc.ProcessOrder(context.Background(), order)

	require.Error(t, err)
	assert.Equal(t, domain.TierNormal, order.Agreement.LastReminderTier)
	assert.Empty(t, store.saved)
}

func TestProcessOrder_CanceledOrder_Skipped(t *testing.T) {
	store := &mockStore{}
	sender := &mockSender{}
	svc := newTestReminderService(store, &mockSubmissions{}, sender)

	order := orderDueIn(4, domain.TierInitial)
	order.Status = domain.OrderStatusCanceled

	require.NoError(t, svc.ProcessOrder(context.Background(), order))
	assert.Empty(t, sender.sent)
}

func TestProcessOrder_MissingDeliveryDate_NeverEscalates(t *testing.T) {
	store := &mockStore{}
	sender := &mockSender{}
	svc := newTestReminderService(store, &mockSubmissions{}, sender)

	order := orderDueIn(4, domain.TierInitial)
	order.DeliveryDate = nil

	require.NoError(t, svc.ProcessOrder(context.Background(), order))
	assert.Empty(t, sender.sent)
	assert.Equal(t, domain.TierInitial, order.Agreement.LastReminderTier)
}

func TestProcessOrder_SignedOrder_SendsConfirmationOnce(t *testing.T) {
	store := &mockStore{}
	sender := &mockSender{}
	svc := newTestReminderService(store, &mockSubmissions{}, sender)

	order := orderDueIn(20, domain.TierUrgent)
	order.Agreement.Status = domain.AgreementSigned
	order.Agreement.DeliveryBlocked = false

	require.NoError(t, svc.ProcessOrder(context.Background(), order))
	require.Len(t, sender.sent, 1)
	assert.Contains(t, sender.sent[0].Subject, "confirmed")
	assert.Equal(t, domain.TierSignedConfirmed, order.Agreement.LastReminderTier)

	require.NoError(t, svc.ProcessOrder(context.Background(), order))
	assert.Len(t, sender.sent, 1)
}

func TestProcessOrder_StaleSubmission_FlaggedForRecreation(t *testing.T) {
	store := &mockStore{}
	sender := &mockSender{}
	subs := &mockSubmissions{
		FetchStatusFunc: func(ctx context.Context, submissionID string) (*esign.Submission, error) {
			return nil, apperrors.NewNotFoundError("submission not found")
		},
	}
	svc := newTestReminderService(store, subs, sender)

	order := orderDueIn(20, domain.TierNormal)
	require.NoError(t, svc.ProcessOrder(context.Background(), order))

	assert.Nil(t, order.Agreement.SubmissionID)
	assert.Empty(t, sender.sent)
}

func TestProcessOrder_DeclineCycle_ResetsTierOnNewSubmission(t *testing.T) {
	// Scenario: after a decline the submission id is gone and the tier had
	// climbed to urgent. The next tick opens a fresh cycle from the bottom.
	store := &mockStore{}
	sender := &mockSender{}
	subs := &mockSubmissions{
		CreateOrReuseFunc: func(ctx context.Context, order *domain.Order, existingID string) (*esign.Submission, error) {
			return liveSubmission("99"), nil
		},
	}
	svc := newTestReminderService(store, subs, sender)

	order := orderDueIn(20, domain.TierUrgent)
	order.Agreement.SubmissionID = nil

	require.NoError(t, svc.ProcessOrder(context.Background(), order))

	assert.Equal(t, domain.TierInitial, order.Agreement.LastReminderTier)
	require.Len(t, sender.sent, 1)
	assert.Contains(t, sender.sent[0].Text, "https://sign.example/s/99")
}

func TestResendCurrent_RepeatsTierWithoutAdvancing(t *testing.T) {
	store := &mockStore{}
	sender := &mockSender{}
	subs := &mockSubmissions{
		FetchStatusFunc: func(ctx context.Context, submissionID string) (*esign.Submission, error) {
			return liveSubmission(submissionID), nil
		},
	}
	svc := newTestReminderService(store, subs, sender)

	order := orderDueIn(20, domain.TierUrgent)
	require.NoError(t, svc.ResendCurrent(context.Background(), order))

	require.Len(t, sender.sent, 1)
	assert.Contains(t, sender.sent[0].Subject, "Urgent")
	assert.Equal(t, domain.TierUrgent, order.Agreement.LastReminderTier)
	assert.Empty(t, store.saved)
}

func TestResendCurrent_SignedAgreement_Conflicts(t *testing.T) {
	svc := newTestReminderService(&mockStore{}, &mockSubmissions{}, &mockSender{})

	order := orderDueIn(20, domain.TierUrgent)
	order.Agreement.Status = domain.AgreementSigned

	err := svc.ResendCurrent(context.Background(), order)
	require.Error(t, err)
	_, ok := apperrors.IsConflictError(err)
	assert.True(t, ok)
}
