package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ByteBenders-compScientists/smart-retail-checkout/internal/domain"
)

func newTestRepo(t *testing.T, ttl time.Duration) (*CartRepository, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewCartRepository(client, ttl), mr
}

func testCart(t *testing.T, ownerID string) *domain.Cart {
	t.Helper()
	cart := domain.NewCart(ownerID)
	require.NoError(t, cart.AddItem(domain.CartLine{
		ProductID: "prod-1",
		Name:      "Soda 500ml",
		UnitType:  domain.UnitBottle,
		BranchID:  "branch-1",
		UnitPrice: 50,
		Quantity:  3,
	}))
	return cart
}

func TestCartRoundtrip(t *testing.T) {
	repo, _ := newTestRepo(t, time.Hour)
	ctx := context.Background()

	cart := testCart(t, "user-1")
	require.NoError(t, repo.Save(ctx, cart))

	got, err := repo.Get(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, cart.OwnerID, got.OwnerID)
	require.Len(t, got.Lines, 1)
	assert.Equal(t, cart.Lines[0], got.Lines[0])
}

func TestCartGetMissingReturnsEmptyCart(t *testing.T) {
	repo, _ := newTestRepo(t, time.Hour)

	got, err := repo.Get(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Equal(t, "nobody", got.OwnerID)
	assert.True(t, got.IsEmpty())
}

func TestCartDelete(t *testing.T) {
	repo, mr := newTestRepo(t, time.Hour)
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, testCart(t, "user-1")))
	require.True(t, mr.Exists("cart:user-1"))

	require.NoError(t, repo.Delete(ctx, "user-1"))
	assert.False(t, mr.Exists("cart:user-1"))

	// Deleting again is fine.
	assert.NoError(t, repo.Delete(ctx, "user-1"))
}

func TestCartSaveSetsTTL(t *testing.T) {
	repo, mr := newTestRepo(t, 2*time.Hour)
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, testCart(t, "user-1")))
	assert.Equal(t, 2*time.Hour, mr.TTL("cart:user-1"))

	// Expiry drops the cart; the shopper starts fresh.
	mr.FastForward(3 * time.Hour)
	got, err := repo.Get(ctx, "user-1")
	require.NoError(t, err)
	assert.True(t, got.IsEmpty())
}

func TestCartTTLDefaultApplied(t *testing.T) {
	repo, mr := newTestRepo(t, 0)

	require.NoError(t, repo.Save(context.Background(), testCart(t, "user-1")))
	assert.Equal(t, 7*24*time.Hour, mr.TTL("cart:user-1"))
}

func TestCartGetCorruptPayload(t *testing.T) {
	repo, mr := newTestRepo(t, time.Hour)
	require.NoError(t, mr.Set("cart:user-1", "not json"))

	_, err := repo.Get(context.Background(), "user-1")
	assert.Error(t, err)
}
