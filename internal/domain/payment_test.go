package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/ByteBenders-compScientists/smart-retail-checkout/pkg/errors"
)

func TestCheckoutSessionLifecycle(t *testing.T) {
	s := NewCheckoutSession("user-1", "branch-1", "0712345678", 290, DeliveryPickup)

	assert.Equal(t, StateSubmittingOrder, s.State)
	assert.Equal(t, "254712345678", s.Phone)
	assert.NotEmpty(t, s.ID)

	require.NoError(t, s.MarkInitiatingPayment("ORD1"))
	assert.Equal(t, StateInitiatingPayment, s.State)
	assert.Equal(t, "ORD1", s.OrderID)

	require.NoError(t, s.MarkAwaitingPayment("CR1"))
	assert.Equal(t, StateAwaitingPayment, s.State)
	assert.Equal(t, "CR1", s.CheckoutRequestID)

	require.NoError(t, s.MarkSucceeded("TXN1"))
	assert.Equal(t, StateSucceeded, s.State)
	assert.Equal(t, "TXN1", s.TransactionID)
	assert.True(t, s.State.Terminal())
}

func TestCheckoutSessionTerminalIsSticky(t *testing.T) {
	t.Run("succeeded rejects further transitions", func(t *testing.T) {
		s := NewCheckoutSession("user-1", "branch-1", "0712345678", 290, DeliveryPickup)
		require.NoError(t, s.MarkInitiatingPayment("ORD1"))
		require.NoError(t, s.MarkAwaitingPayment("CR1"))
		require.NoError(t, s.MarkSucceeded("TXN1"))

		assert.ErrorIs(t, s.MarkFailed("late failure"), apperrors.ErrConflict)
		assert.ErrorIs(t, s.MarkSucceeded("TXN2"), apperrors.ErrConflict)
		assert.Equal(t, "TXN1", s.TransactionID)
		assert.Equal(t, StateSucceeded, s.State)
	})

	t.Run("failed rejects everything except reopen", func(t *testing.T) {
		s := NewCheckoutSession("user-1", "branch-1", "0712345678", 290, DeliveryPickup)
		require.NoError(t, s.MarkInitiatingPayment("ORD1"))
		require.NoError(t, s.MarkFailed("payment failed, please try again"))

		assert.ErrorIs(t, s.MarkSucceeded("TXN1"), apperrors.ErrConflict)
		assert.ErrorIs(t, s.MarkAwaitingPayment("CR2"), apperrors.ErrConflict)
	})
}

func TestCheckoutSessionReopen(t *testing.T) {
	newFailed := func(t *testing.T) *CheckoutSession {
		t.Helper()
		s := NewCheckoutSession("user-1", "branch-1", "0712345678", 290, DeliveryPickup)
		require.NoError(t, s.MarkInitiatingPayment("ORD1"))
		require.NoError(t, s.MarkFailed("payment failed, please try again"))
		return s
	}

	t.Run("resets to initiating payment", func(t *testing.T) {
		s := newFailed(t)
		require.NoError(t, s.Reopen(""))

		assert.Equal(t, StateInitiatingPayment, s.State)
		assert.Empty(t, s.FailureReason)
		assert.Equal(t, "254712345678", s.Phone)
		assert.Equal(t, "ORD1", s.OrderID)
	})

	t.Run("accepts a corrected phone", func(t *testing.T) {
		s := newFailed(t)
		require.NoError(t, s.Reopen("0722000111"))
		assert.Equal(t, "254722000111", s.Phone)
	})

	t.Run("rejects a bad corrected phone", func(t *testing.T) {
		s := newFailed(t)
		err := s.Reopen("12345")
		assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
		assert.Equal(t, StateFailed, s.State)
	})

	t.Run("only failed sessions reopen", func(t *testing.T) {
		s := NewCheckoutSession("user-1", "branch-1", "0712345678", 290, DeliveryPickup)
		assert.ErrorIs(t, s.Reopen(""), apperrors.ErrConflict)
	})

	t.Run("requires an existing order", func(t *testing.T) {
		s := NewCheckoutSession("user-1", "branch-1", "0712345678", 290, DeliveryPickup)
		require.NoError(t, s.MarkFailed("failed to place order"))
		assert.ErrorIs(t, s.Reopen(""), apperrors.ErrConflict)
	})
}

func TestPaymentStatusTerminal(t *testing.T) {
	assert.False(t, PaymentPending.Terminal())
	assert.True(t, PaymentCompleted.Terminal())
	assert.True(t, PaymentFailed.Terminal())
	assert.True(t, PaymentTimedOut.Terminal())
}
