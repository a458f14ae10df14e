package esign

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"moonbounce/internal/config"
	"moonbounce/internal/domain"
	"moonbounce/internal/errors"
)

type submissionAPI interface {
	CreateSubmission(ctx context.Context, req CreateSubmissionRequest) (*Submission, error)
	GetSubmission(ctx context.Context, id string) (*Submission, error)
	VoidSubmission(ctx context.Context, id string) error
}

// Manager owns the lifecycle of remote signing submissions for orders:
// idempotent create-or-reuse, status fetches with a typed not-found, and
// best-effort voiding on cancellation.
type Manager struct {
	api        submissionAPI
	logger     *zap.Logger
	templateID int
}

func NewManager(api submissionAPI, cfg config.EsignConfig, logger *zap.Logger) *Manager {
	return &Manager{
		api:        api,
		logger:     logger,
		templateID: cfg.TemplateID,
	}
}

// CreateOrReuse returns the existing remote submission when the stored id is
// still live, and creates a fresh one when there is no id or the id 404s.
// Any other fetch failure propagates unchanged: creating a duplicate under an
// ambiguous error is worse than surfacing the ambiguity.
func (m *Manager) CreateOrReuse(ctx context.Context, order *domain.Order, existingID string) (*Submission, error) {
	if existingID != "" {
		sub, err := m.api.GetSubmission(ctx, existingID)
		if err == nil {
			return sub, nil
		}
		if _, ok := errors.IsNotFoundError(err); !ok {
			return nil, err
		}
		m.logger.Info("stored submission id is stale, creating a new one",
			zap.Uint("orderId", order.ID),
			zap.String("submissionId", existingID))
	}

	sub, err := m.api.CreateSubmission(ctx, CreateSubmissionRequest{
		TemplateID: m.templateID,
		SendEmail:  false,
		Order:      fmt.Sprintf("%d", order.ID),
		Submitters: []SubmitterRequest{
			{
				Email:  order.CustomerEmail,
				Name:   order.CustomerName,
				Values: snapshotFields(order),
			},
		},
	})
	if err != nil {
		return nil, err
	}

	m.logger.Info("submission created",
		zap.Uint("orderId", order.ID),
		zap.String("submissionId", sub.ID))
	return sub, nil
}

// FetchStatus reads the current remote state. NotFoundError passes through so
// the sweep can flag the order for recreation.
func (m *Manager) FetchStatus(ctx context.Context, submissionID string) (*Submission, error) {
	return m.api.GetSubmission(ctx, submissionID)
}

// Void cancels the remote submission. Best-effort: failures are reported to
// the caller for logging but must not block order cancellation.
func (m *Manager) Void(ctx context.Context, submissionID string) error {
	err := m.api.VoidSubmission(ctx, submissionID)
	if err != nil {
		if _, ok := errors.IsNotFoundError(err); ok {
			return nil
		}
	}
	return err
}

// SigningURL resolves the signing link for a named recipient. Recipients are
// matched by email, not position, since submitter order is provider-defined.
func (m *Manager) SigningURL(sub *Submission, recipientEmail string) (string, error) {
	for _, s := range sub.Submitters {
		if strings.EqualFold(s.Email, recipientEmail) {
			if s.SigningURL == "" {
				return "", errors.NewValidationError(
					fmt.Sprintf("submission %s has no signing url for %s", sub.ID, recipientEmail))
			}
			return s.SigningURL, nil
		}
	}
	return "", errors.NewValidationError(
		fmt.Sprintf("submission %s has no recipient %s", sub.ID, recipientEmail))
}

// snapshotFields builds the point-in-time field map embedded in the agreement
// document. Later order edits do not alter an already-created submission.
func snapshotFields(order *domain.Order) map[string]string {
	fields := map[string]string{
		"order_number":   fmt.Sprintf("%d", order.ID),
		"customer_name":  order.CustomerName,
		"customer_email": order.CustomerEmail,
		"total_amount":   fmt.Sprintf("%.2f", order.TotalAmount),
	}
	if order.Phone != nil {
		fields["customer_phone"] = *order.Phone
	}
	if order.Address != nil {
		fields["event_address"] = *order.Address
	}
	if order.DeliveryDate != nil {
		fields["delivery_date"] = order.DeliveryDate.Format("Monday, January 2, 2006 3:04 PM")
	}

	var items []string
	for _, item := range order.Items {
		items = append(items, fmt.Sprintf("%dx %s @ $%.2f", item.Quantity, item.Name, item.Price))
	}
	fields["rental_items"] = strings.Join(items, "\n")

	return fields
}
