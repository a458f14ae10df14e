package repository

import (
	"context"
	"database/sql"
	"fmt"

	"moonbounce/internal/domain"
	"moonbounce/internal/errors"
)

type MySQLAgreementRepository struct {
	db *sql.DB
}

func NewMySQLAgreementRepository(db *sql.DB) *MySQLAgreementRepository {
	return &MySQLAgreementRepository{db: db}
}

const orderColumns = `
	id, customerName, customerEmail, phone, address, status, totalAmount,
	deliveryDate, agreementStatus, agreementSubmissionId, agreementSignedAt,
	agreementViewedAt, deliveryBlocked, overrideReason, overrideBy, overrideAt,
	lastReminderTier, lastReminderSentAt, agreementVersion, createdAt, updatedAt
`

func (r *MySQLAgreementRepository) FindByID(ctx context.Context, id uint) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM Orders WHERE id = ?`

	order, err := r.scanOrder(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, err
	}

	if err := r.loadItems(ctx, order); err != nil {
		return nil, err
	}
	return order, nil
}

func (r *MySQLAgreementRepository) FindBySubmissionID(ctx context.Context, submissionID string) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM Orders WHERE agreementSubmissionId = ?`

	order, err := r.scanOrder(r.db.QueryRowContext(ctx, query, submissionID))
	if err != nil {
		return nil, err
	}

	if err := r.loadItems(ctx, order); err != nil {
		return nil, err
	}
	return order, nil
}

// ListOpenSubmissions returns orders the pull sweep must reconcile: a live
// submission id and no confirmed signature yet.
func (r *MySQLAgreementRepository) ListOpenSubmissions(ctx context.Context) ([]domain.Order, error) {
	query := `SELECT ` + orderColumns + `
		FROM Orders
		WHERE agreementStatus != ?
		  AND agreementSubmissionId IS NOT NULL
		  AND status != ?`

	return r.queryOrders(ctx, query, string(domain.AgreementSigned), domain.OrderStatusCanceled)
}

// ListNeedingReminder returns orders the escalation pass must look at:
// unsigned ones, plus signed ones whose confirmation has not gone out yet.
func (r *MySQLAgreementRepository) ListNeedingReminder(ctx context.Context) ([]domain.Order, error) {
	query := `SELECT ` + orderColumns + `
		FROM Orders
		WHERE status != ?
		  AND (agreementStatus != ? OR lastReminderTier != ?)`

	return r.queryOrders(ctx, query, domain.OrderStatusCanceled,
		string(domain.AgreementSigned), string(domain.TierSignedConfirmed))
}

// SaveAgreement writes the whole agreement sub-record in one conditional
// update keyed on the version read. Losing the race surfaces as ConflictError
// so a stale reconciliation can never clobber a signed state.
func (r *MySQLAgreementRepository) SaveAgreement(ctx context.Context, orderID uint, agr domain.Agreement) error {
	query := `
		UPDATE Orders
		SET agreementStatus = ?,
		    agreementSubmissionId = ?,
		    agreementSignedAt = ?,
		    agreementViewedAt = ?,
		    deliveryBlocked = ?,
		    overrideReason = ?,
		    overrideBy = ?,
		    overrideAt = ?,
		    lastReminderTier = ?,
		    lastReminderSentAt = ?,
		    agreementVersion = agreementVersion + 1
		WHERE id = ? AND agreementVersion = ?
	`

	var overrideReason, overrideBy interface{}
	var overrideAt interface{}
	if agr.Override != nil {
		overrideReason = agr.Override.Reason
		overrideBy = agr.Override.By
		overrideAt = agr.Override.At
	}

	result, err := r.db.ExecContext(ctx, query,
		string(agr.Status), agr.SubmissionID, agr.SignedAt, agr.ViewedAt,
		agr.DeliveryBlocked, overrideReason, overrideBy, overrideAt,
		string(agr.LastReminderTier), agr.LastReminderSentAt,
		orderID, agr.Version,
	)
	if err != nil {
		return fmt.Errorf("updating agreement: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}

	if rowsAffected == 0 {
		var exists bool
		if err := r.db.QueryRowContext(ctx,
			`SELECT EXISTS(SELECT 1 FROM Orders WHERE id = ?)`, orderID).Scan(&exists); err != nil {
			return fmt.Errorf("checking order existence: %w", err)
		}
		if !exists {
			return errors.NewNotFoundError(fmt.Sprintf("order with id %d not found", orderID))
		}
		return errors.NewConflictError(fmt.Sprintf("agreement for order %d changed concurrently", orderID))
	}

	return nil
}

func (r *MySQLAgreementRepository) InsertEvent(ctx context.Context, ev domain.AgreementEvent) error {
	query := `
		INSERT INTO AgreementEvents (orderId, type, actor, detail)
		VALUES (?, ?, ?, ?)
	`

	if _, err := r.db.ExecContext(ctx, query, ev.OrderID, ev.Type, ev.Actor, ev.Detail); err != nil {
		return fmt.Errorf("inserting agreement event: %w", err)
	}
	return nil
}

func (r *MySQLAgreementRepository) queryOrders(ctx context.Context, query string, args ...interface{}) ([]domain.Order, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying orders: %w", err)
	}
	defer rows.Close()

	var orders []domain.Order
	for rows.Next() {
		order, err := r.scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *order)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating orders: %w", err)
	}

	return orders, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (r *MySQLAgreementRepository) scanOrder(row rowScanner) (*domain.Order, error) {
	var order domain.Order
	var agreementStatus, reminderTier string
	var overrideReason, overrideBy sql.NullString
	var overrideAt sql.NullTime

	err := row.Scan(
		&order.ID, &order.CustomerName, &order.CustomerEmail, &order.Phone,
		&order.Address, &order.Status, &order.TotalAmount, &order.DeliveryDate,
		&agreementStatus, &order.Agreement.SubmissionID,
		&order.Agreement.SignedAt, &order.Agreement.ViewedAt,
		&order.Agreement.DeliveryBlocked,
		&overrideReason, &overrideBy, &overrideAt,
		&reminderTier, &order.Agreement.LastReminderSentAt,
		&order.Agreement.Version,
		&order.CreatedAt, &order.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, errors.NewNotFoundError("order not found")
	}
	if err != nil {
		return nil, fmt.Errorf("scanning order: %w", err)
	}

	order.Agreement.Status = domain.AgreementStatus(agreementStatus)
	order.Agreement.LastReminderTier = domain.ReminderTier(reminderTier)
	if overrideReason.Valid {
		order.Agreement.Override = &domain.Override{
			Reason: overrideReason.String,
			By:     overrideBy.String,
			At:     overrideAt.Time,
		}
	}

	return &order, nil
}

func (r *MySQLAgreementRepository) loadItems(ctx context.Context, order *domain.Order) error {
	query := `
		SELECT id, orderId, productName, quantity, price
		FROM OrderItems
		WHERE orderId = ?
	`

	rows, err := r.db.QueryContext(ctx, query, order.ID)
	if err != nil {
		return fmt.Errorf("querying order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var item domain.OrderItem
		if err := rows.Scan(&item.ID, &item.OrderID, &item.Name, &item.Quantity, &item.Price); err != nil {
			return fmt.Errorf("scanning order item: %w", err)
		}
		order.Items = append(order.Items, item)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterating order items: %w", err)
	}

	return nil
}
