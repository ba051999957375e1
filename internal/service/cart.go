package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ByteBenders-compScientists/smart-retail-checkout/internal/domain"
	"github.com/ByteBenders-compScientists/smart-retail-checkout/internal/repository"
)

// CartService manages shopper carts. Every mutation loads the cart, applies
// the change through the aggregate's own rules, and persists the result.
type CartService struct {
	carts  repository.CartRepository
	logger *slog.Logger
}

// NewCartService creates a cart service.
func NewCartService(carts repository.CartRepository, logger *slog.Logger) *CartService {
	return &CartService{carts: carts, logger: logger}
}

// Get returns the owner's cart, empty if they have none.
func (s *CartService) Get(ctx context.Context, ownerID string) (*domain.Cart, error) {
	return s.carts.Get(ctx, ownerID)
}

// AddItem puts a product in the cart, merging with an existing line where the
// cart's merge rules allow it.
func (s *CartService) AddItem(ctx context.Context, ownerID string, line domain.CartLine) (*domain.Cart, error) {
	cart, err := s.carts.Get(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if err := cart.AddItem(line); err != nil {
		return nil, err
	}
	if err := s.carts.Save(ctx, cart); err != nil {
		return nil, fmt.Errorf("persist cart: %w", err)
	}

	s.logger.InfoContext(ctx, "cart item added",
		slog.String("owner_id", ownerID),
		slog.String("product_id", line.ProductID),
		slog.Int("quantity", line.Quantity),
	)
	return cart, nil
}

// UpdateQuantity changes a line's quantity.
func (s *CartService) UpdateQuantity(ctx context.Context, ownerID, lineID string, quantity int) (*domain.Cart, error) {
	cart, err := s.carts.Get(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if err := cart.UpdateQuantity(lineID, quantity); err != nil {
		return nil, err
	}
	if err := s.carts.Save(ctx, cart); err != nil {
		return nil, fmt.Errorf("persist cart: %w", err)
	}
	return cart, nil
}

// RemoveItem deletes a line from the cart.
func (s *CartService) RemoveItem(ctx context.Context, ownerID, lineID string) (*domain.Cart, error) {
	cart, err := s.carts.Get(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if err := cart.RemoveItem(lineID); err != nil {
		return nil, err
	}
	if err := s.carts.Save(ctx, cart); err != nil {
		return nil, fmt.Errorf("persist cart: %w", err)
	}
	return cart, nil
}

// Clear empties the owner's cart.
func (s *CartService) Clear(ctx context.Context, ownerID string) error {
	if err := s.carts.Delete(ctx, ownerID); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "cart cleared", slog.String("owner_id", ownerID))
	return nil
}

// Totals prices the owner's cart for a delivery method.
func (s *CartService) Totals(ctx context.Context, ownerID string, method domain.DeliveryMethod) (domain.Totals, error) {
	cart, err := s.carts.Get(ctx, ownerID)
	if err != nil {
		return domain.Totals{}, err
	}
	return cart.ComputeTotals(method), nil
}
