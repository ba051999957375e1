package repository

import (
	"context"

	"github.com/ByteBenders-compScientists/smart-retail-checkout/internal/domain"
)

// CartRepository persists shopper carts. A missing cart is not an error;
// Get returns a fresh empty cart for the owner.
type CartRepository interface {
	Get(ctx context.Context, ownerID string) (*domain.Cart, error)
	Save(ctx context.Context, cart *domain.Cart) error
	Delete(ctx context.Context, ownerID string) error
}

// SessionRepository persists checkout sessions.
type SessionRepository interface {
	Create(ctx context.Context, session *domain.CheckoutSession) error
	Get(ctx context.Context, id string) (*domain.CheckoutSession, error)
	Update(ctx context.Context, session *domain.CheckoutSession) error
}
