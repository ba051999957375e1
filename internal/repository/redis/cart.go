package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ByteBenders-compScientists/smart-retail-checkout/internal/domain"
)

const cartKeyPrefix = "cart:"

// CartRepository stores carts as JSON blobs in Redis with a sliding TTL, so
// abandoned carts expire on their own.
type CartRepository struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCartRepository creates a Redis-backed cart repository.
func NewCartRepository(client *redis.Client, ttl time.Duration) *CartRepository {
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &CartRepository{client: client, ttl: ttl}
}

func cartKey(ownerID string) string {
	return cartKeyPrefix + ownerID
}

// Get loads the owner's cart, returning a fresh empty cart when none exists.
func (r *CartRepository) Get(ctx context.Context, ownerID string) (*domain.Cart, error) {
	data, err := r.client.Get(ctx, cartKey(ownerID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.NewCart(ownerID), nil
		}
		return nil, fmt.Errorf("get cart: %w", err)
	}

	var cart domain.Cart
	if err := json.Unmarshal(data, &cart); err != nil {
		return nil, fmt.Errorf("decode cart: %w", err)
	}
	return &cart, nil
}

// Save writes the cart and refreshes its TTL.
func (r *CartRepository) Save(ctx context.Context, cart *domain.Cart) error {
	data, err := json.Marshal(cart)
	if err != nil {
		return fmt.Errorf("encode cart: %w", err)
	}
	if err := r.client.Set(ctx, cartKey(cart.OwnerID), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("save cart: %w", err)
	}
	return nil
}

// Delete removes the owner's cart. Deleting a missing cart is not an error.
func (r *CartRepository) Delete(ctx context.Context, ownerID string) error {
	if err := r.client.Del(ctx, cartKey(ownerID)).Err(); err != nil {
		return fmt.Errorf("delete cart: %w", err)
	}
	return nil
}
