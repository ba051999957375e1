package service

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ByteBenders-compScientists/smart-retail-checkout/internal/domain"
	apperrors "github.com/ByteBenders-compScientists/smart-retail-checkout/pkg/errors"
)

func newCartService() (*CartService, *memCarts) {
	carts := newMemCarts()
	return NewCartService(carts, slog.New(slog.NewTextHandler(io.Discard, nil))), carts
}

func TestCartServiceAddAndGet(t *testing.T) {
	svc, _ := newCartService()
	ctx := context.Background()

	cart, err := svc.AddItem(ctx, "user-1", domain.CartLine{
		ProductID: "prod-1", Name: "Soda 500ml", UnitType: domain.UnitBottle,
		BranchID: "branch-1", UnitPrice: 50, Quantity: 2,
	})
	require.NoError(t, err)
	require.Len(t, cart.Lines, 1)

	got, err := svc.Get(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, cart.Lines, got.Lines)

	// An unknown owner gets an empty cart, not an error.
	empty, err := svc.Get(ctx, "stranger")
	require.NoError(t, err)
	assert.True(t, empty.IsEmpty())
}

func TestCartServiceRejectedMutationIsNotPersisted(t *testing.T) {
	svc, _ := newCartService()
	ctx := context.Background()

	_, err := svc.AddItem(ctx, "user-1", domain.CartLine{
		ProductID: "prod-1", Name: "Soda", UnitType: domain.UnitBottle,
		BranchID: "branch-1", UnitPrice: 50, Quantity: 48,
	})
	require.NoError(t, err)

	_, err = svc.AddItem(ctx, "user-1", domain.CartLine{
		ProductID: "prod-1", Name: "Soda", UnitType: domain.UnitBottle,
		BranchID: "branch-1", UnitPrice: 50, Quantity: 5,
	})
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)

	got, err := svc.Get(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 48, got.Lines[0].Quantity)
}

func TestCartServiceUpdateRemoveClear(t *testing.T) {
	svc, carts := newCartService()
	ctx := context.Background()

	cart, err := svc.AddItem(ctx, "user-1", domain.CartLine{
		ProductID: "prod-1", Name: "Soda", UnitType: domain.UnitBottle,
		BranchID: "branch-1", UnitPrice: 50, Quantity: 2,
	})
	require.NoError(t, err)
	lineID := cart.Lines[0].ID

	cart, err = svc.UpdateQuantity(ctx, "user-1", lineID, 7)
	require.NoError(t, err)
	assert.Equal(t, 7, cart.Lines[0].Quantity)

	_, err = svc.UpdateQuantity(ctx, "user-1", "missing", 3)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	cart, err = svc.RemoveItem(ctx, "user-1", lineID)
	require.NoError(t, err)
	assert.True(t, cart.IsEmpty())

	require.NoError(t, svc.Clear(ctx, "user-1"))
	assert.False(t, carts.has("user-1"))
}

func TestCartServiceTotals(t *testing.T) {
	svc, _ := newCartService()
	ctx := context.Background()

	_, err := svc.AddItem(ctx, "user-1", domain.CartLine{
		ProductID: "prod-1", Name: "Soda", UnitType: domain.UnitBottle,
		BranchID: "branch-1", UnitPrice: 50, Quantity: 3,
	})
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, "user-1", domain.CartLine{
		ProductID: "prod-2", Name: "Water", UnitType: domain.UnitBottle,
		BranchID: "branch-1", UnitPrice: 100, Quantity: 1,
	})
	require.NoError(t, err)

	totals, err := svc.Totals(ctx, "user-1", domain.DeliveryStandard)
	require.NoError(t, err)
	assert.Equal(t, int64(250), totals.Subtotal)
	assert.Equal(t, int64(40), totals.VAT)
	assert.Equal(t, int64(200), totals.DeliveryFee)
	assert.Equal(t, int64(490), totals.Total)
}
