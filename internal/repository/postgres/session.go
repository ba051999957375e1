package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/ByteBenders-compScientists/smart-retail-checkout/internal/domain"
	"github.com/ByteBenders-compScientists/smart-retail-checkout/pkg/database"
	apperrors "github.com/ByteBenders-compScientists/smart-retail-checkout/pkg/errors"
)

// SessionRepository implements repository.SessionRepository using PostgreSQL.
type SessionRepository struct {
	pool database.DBTX
}

// NewSessionRepository creates a PostgreSQL-backed checkout session repository.
func NewSessionRepository(pool database.DBTX) *SessionRepository {
	return &SessionRepository{pool: pool}
}

// Create inserts a new checkout session.
func (r *SessionRepository) Create(ctx context.Context, session *domain.CheckoutSession) error {
	query := `
		INSERT INTO checkout_sessions (
			id, owner_id, branch_id, phone, amount, delivery_method, state,
			order_id, checkout_request_id, transaction_id, failure_reason,
			created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7,
			$8, $9, $10, $11,
			$12, $13
		)`

	_, err := r.pool.Exec(ctx, query,
		session.ID,
		session.OwnerID,
		session.BranchID,
		session.Phone,
		session.Amount,
		string(session.DeliveryMethod),
		string(session.State),
		nullableString(session.OrderID),
		nullableString(session.CheckoutRequestID),
		nullableString(session.TransactionID),
		nullableString(session.FailureReason),
		session.CreatedAt,
		session.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert checkout session: %w", err)
	}

	return nil
}

// Get retrieves a checkout session by ID.
func (r *SessionRepository) Get(ctx context.Context, id string) (*domain.CheckoutSession, error) {
	query := `
		SELECT id, owner_id, branch_id, phone, amount, delivery_method, state,
			order_id, checkout_request_id, transaction_id, failure_reason,
			created_at, updated_at
		FROM checkout_sessions
		WHERE id = $1`

	var (
		session           domain.CheckoutSession
		orderID           *string
		checkoutRequestID *string
		transactionID     *string
		failureReason     *string
	)

	err := r.pool.QueryRow(ctx, query, id).Scan(
		&session.ID,
		&session.OwnerID,
		&session.BranchID,
		&session.Phone,
		&session.Amount,
		&session.DeliveryMethod,
		&session.State,
		&orderID,
		&checkoutRequestID,
		&transactionID,
		&failureReason,
		&session.CreatedAt,
		&session.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("checkout session", id)
		}
		return nil, fmt.Errorf("scan checkout session: %w", err)
	}

	if orderID != nil {
		session.OrderID = *orderID
	}
	if checkoutRequestID != nil {
		session.CheckoutRequestID = *checkoutRequestID
	}
	if transactionID != nil {
		session.TransactionID = *transactionID
	}
	if failureReason != nil {
		session.FailureReason = *failureReason
	}

	return &session, nil
}

// Update writes the session's mutable fields.
func (r *SessionRepository) Update(ctx context.Context, session *domain.CheckoutSession) error {
	session.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE checkout_sessions
		SET phone = $1, state = $2,
			order_id = $3, checkout_request_id = $4,
			transaction_id = $5, failure_reason = $6,
			updated_at = $7
		WHERE id = $8`

	ct, err := r.pool.Exec(ctx, query,
		session.Phone,
		string(session.State),
		nullableString(session.OrderID),
		nullableString(session.CheckoutRequestID),
		nullableString(session.TransactionID),
		nullableString(session.FailureReason),
		session.UpdatedAt,
		session.ID,
	)
	if err != nil {
		return fmt.Errorf("update checkout session: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("checkout session", session.ID)
	}

	return nil
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
