package esign

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"moonbounce/internal/config"
	"moonbounce/internal/domain"
	"moonbounce/internal/errors"
)

type mockAPI struct {
	CreateSubmissionFunc func(ctx context.Context, req CreateSubmissionRequest) (*Submission, error)
	GetSubmissionFunc    func(ctx context.Context, id string) (*Submission, error)
	VoidSubmissionFunc   func(ctx context.Context, id string) error

	creates int
}

func (m *mockAPI) CreateSubmission(ctx context.Context, req CreateSubmissionRequest) (*Submission, error) {
	m.creates++
	return m.CreateSubmissionFunc(ctx, req)
}

func (m *mockAPI) GetSubmission(ctx context.Context, id string) (*Submission, error) {
	return m.GetSubmissionFunc(ctx, id)
}

func (m *mockAPI) VoidSubmission(ctx context.Context, id string) error {
	return m.VoidSubmissionFunc(ctx, id)
}

func newTestManager(api *mockAPI) *Manager {
	return NewManager(api, config.EsignConfig{TemplateID: 12}, zap.NewNop())
}

func testOrder() *domain.Order {
	phone := "555-0100"
	due := time.Date(2025, 6, 7, 9, 0, 0, 0, time.UTC)
	return &domain.Order{
		ID:            7,
		CustomerName:  "Dana Castillo",
		CustomerEmail: "dana@example.com",
		Phone:         &phone,
		DeliveryDate:  &due,
		TotalAmount:   238.50,
		Items: []domain.OrderItem{
			{Name: "Castle Bounce House", Quantity: 1, Price: 189},
			{Name: "Folding Table", Quantity: 3, Price: 16.50},
		},
	}
}

func TestCreateOrReuse_ReusesLiveSubmission(t *testing.T) {
	api := &mockAPI{
		GetSubmissionFunc: func(ctx context.Context, id string) (*Submission, error) {
			return &Submission{ID: id}, nil
		},
	}
	mgr := newTestManager(api)

	sub, err := mgr.CreateOrReuse(context.Background(), testOrder(), "41")
	require.NoError(t, err)
	assert.Equal(t, "41", sub.ID)
	assert.Zero(t, api.creates)
}

func TestCreateOrReuse_StaleIDCreatesFresh(t *testing.T) {
	api := &mockAPI{
		GetSubmissionFunc: func(ctx context.Context, id string) (*Submission, error) {
			return nil, errors.NewNotFoundError("gone")
		},
		CreateSubmissionFunc: func(ctx context.Context, req CreateSubmissionRequest) (*Submission, error) {
			return &Submission{ID: "99"}, nil
		},
	}
	mgr := newTestManager(api)

	sub, err := mgr.CreateOrReuse(context.Background(), testOrder(), "41")
	require.NoError(t, err)
	assert.Equal(t, "99", sub.ID)
	assert.Equal(t, 1, api.creates)
}

func TestCreateOrReuse_AmbiguousFetchErrorDoesNotCreate(t *testing.T) {
	api := &mockAPI{
		GetSubmissionFunc: func(ctx context.Context, id string) (*Submission, error) {
			return nil, errors.NewTransportError("provider timeout", nil)
		},
	}
	mgr := newTestManager(api)

	_, err := mgr.CreateOrReuse(context.Background(), testOrder(), "41")
	require.Error(t, err)
	_, ok := errors.IsTransportError(err)
	assert.True(t, ok)
	assert.Zero(t, api.creates)
}

func TestCreateOrReuse_SnapshotsOrderFields(t *testing.T) {
	var captured CreateSubmissionRequest
	api := &mockAPI{
		CreateSubmissionFunc: func(ctx context.Context, req CreateSubmissionRequest) (*Submission, error) {
			captured = req
			return &Submission{ID: "99"}, nil
		},
	}
	mgr := newTestManager(api)

	_, err := mgr.CreateOrReuse(context.Background(), testOrder(), "")
	require.NoError(t, err)

	assert.Equal(t, 12, captured.TemplateID)
	assert.False(t, captured.SendEmail)
	require.Len(t, captured.Submitters, 1)

	values := captured.Submitters[0].Values
	assert.Equal(t, "7", values["order_number"])
	assert.Equal(t, "238.50", values["total_amount"])
	assert.Equal(t, "555-0100", values["customer_phone"])
	assert.Contains(t, values["delivery_date"], "June 7, 2025")
	assert.Contains(t, values["rental_items"], "1x Castle Bounce House @ $189.00")
	assert.Contains(t, values["rental_items"], "3x Folding Table @ $16.50")
}

func TestVoid_GoneIsNotAnError(t *testing.T) {
	api := &mockAPI{
		VoidSubmissionFunc: func(ctx context.Context, id string) error {
			return errors.NewNotFoundError("gone")
		},
	}
	mgr := newTestManager(api)

	assert.NoError(t, mgr.Void(context.Background(), "41"))
}

func TestVoid_TransportErrorPropagates(t *testing.T) {
	api := &mockAPI{
		VoidSubmissionFunc: func(ctx context.Context, id string) error {
			return errors.NewTransportError("down", nil)
		},
	}
	mgr := newTestManager(api)

	err := mgr.Void(context.Background(), "41")
	require.Error(t, err)
	_, ok := errors.IsTransportError(err)
	assert.True(t, ok)
}

func TestSigningURL(t *testing.T) {
	mgr := newTestManager(&mockAPI{})
	sub := &Submission{
		ID: "41",
		Submitters: []Submitter{
			{Email: "Dana@Example.com", SigningURL: "https://sign.example/s/abc"},
		},
	}

	url, err := mgr.SigningURL(sub, "dana@example.com")
	require.NoError(t, err)
	assert.Equal(t, "https://sign.example/s/abc", url)

	_, err = mgr.SigningURL(sub, "other@example.com")
	require.Error(t, err)
	_, ok := errors.IsValidationError(err)
	assert.True(t, ok)

	sub.Submitters[0].SigningURL = ""
	_, err = mgr.SigningURL(sub, "dana@example.com")
	assert.Error(t, err)
}
