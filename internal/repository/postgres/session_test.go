package postgres

import (
	"context"
	"testing"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ByteBenders-compScientists/smart-retail-checkout/internal/domain"
	"github.com/ByteBenders-compScientists/smart-retail-checkout/pkg/database"
	apperrors "github.com/ByteBenders-compScientists/smart-retail-checkout/pkg/errors"
)

func newMockRepo(t *testing.T) (*SessionRepository, pgxmock.PgxPoolIface) {
	t.Helper()

	mock, err := database.NewMockPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	return NewSessionRepository(mock), mock
}

func sessionColumns() []string {
	return []string{
		"id", "owner_id", "branch_id", "phone", "amount", "delivery_method", "state",
		"order_id", "checkout_request_id", "transaction_id", "failure_reason",
		"created_at", "updated_at",
	}
}

func TestSessionCreate(t *testing.T) {
	repo, mock := newMockRepo(t)

	session := domain.NewCheckoutSession("user-1", "branch-1", "0712345678", 290, domain.DeliveryPickup)

	mock.ExpectExec("INSERT INTO checkout_sessions").
		WithArgs(
			session.ID, "user-1", "branch-1", "254712345678", int64(290),
			"pickup", "submitting_order",
			(*string)(nil), (*string)(nil), (*string)(nil), (*string)(nil),
			pgxmock.AnyArg(), pgxmock.AnyArg(),
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, repo.Create(context.Background(), session))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionGet(t *testing.T) {
	repo, mock := newMockRepo(t)

	now := time.Now().UTC()
	orderID := "ORD1"
	checkoutRequestID := "CR1"

	mock.ExpectQuery("SELECT (.+) FROM checkout_sessions").
		WithArgs("sess-1").
		WillReturnRows(pgxmock.NewRows(sessionColumns()).AddRow(
			"sess-1", "user-1", "branch-1", "254712345678", int64(290), "pickup", "awaiting_payment",
			&orderID, &checkoutRequestID, (*string)(nil), (*string)(nil),
			now, now,
		))

	session, err := repo.Get(context.Background(), "sess-1")
	require.NoError(t, err)

	assert.Equal(t, "sess-1", session.ID)
	assert.Equal(t, domain.StateAwaitingPayment, session.State)
	assert.Equal(t, "ORD1", session.OrderID)
	assert.Equal(t, "CR1", session.CheckoutRequestID)
	assert.Empty(t, session.TransactionID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionGetNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery("SELECT (.+) FROM checkout_sessions").
		WithArgs("missing").
		WillReturnRows(pgxmock.NewRows(sessionColumns()))

	_, err := repo.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionUpdate(t *testing.T) {
	repo, mock := newMockRepo(t)

	session := domain.NewCheckoutSession("user-1", "branch-1", "0712345678", 290, domain.DeliveryPickup)
	require.NoError(t, session.MarkInitiatingPayment("ORD1"))

	orderID := "ORD1"
	mock.ExpectExec("UPDATE checkout_sessions").
		WithArgs(
			"254712345678", "initiating_payment",
			&orderID, (*string)(nil), (*string)(nil), (*string)(nil),
			pgxmock.AnyArg(), session.ID,
		).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	before := session.UpdatedAt
	require.NoError(t, repo.Update(context.Background(), session))
	assert.True(t, session.UpdatedAt.After(before) || session.UpdatedAt.Equal(before))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionUpdateNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)

	session := domain.NewCheckoutSession("user-1", "branch-1", "0712345678", 290, domain.DeliveryPickup)

	mock.ExpectExec("UPDATE checkout_sessions").
		WithArgs(
			"254712345678", "submitting_order",
			(*string)(nil), (*string)(nil), (*string)(nil), (*string)(nil),
			pgxmock.AnyArg(), session.ID,
		).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := repo.Update(context.Background(), session)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
