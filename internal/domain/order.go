package domain

import (
	"errors"

	apperrors "github.com/ByteBenders-compScientists/smart-retail-checkout/pkg/errors"
)

// OrderLine is one priced line of an order as submitted to the storefront
// backend.
type OrderLine struct {
	ProductID string `json:"productId"`
	Brand     string `json:"brand,omitempty"`
	Quantity  int    `json:"quantity"`
	UnitPrice int64  `json:"unitPrice"`
	Subtotal  int64  `json:"subtotal"`
}

// CheckoutOrder is the order payload built from a cart at checkout time.
// Amount carries the full total including VAT and delivery fee.
type CheckoutOrder struct {
	BranchID string
	Phone    string
	Amount   int64
	Lines    []OrderLine
}

// BuildOrder assembles an order from the cart. Preconditions are checked in a
// fixed sequence so the shopper always sees the most actionable problem first:
// phone, then branch, then cart contents.
func BuildOrder(cart *Cart, branchID, phone string, totals Totals) (*CheckoutOrder, error) {
	if !IsValidPhone(phone) {
		return nil, apperrors.InvalidInput("enter a valid M-Pesa phone number")
	}
	if branchID == "" {
		return nil, apperrors.InvalidInput("select a branch before checking out")
	}
	if cart.IsEmpty() {
		return nil, apperrors.InvalidInput("your cart is empty")
	}

	lines := make([]OrderLine, 0, len(cart.Lines))
	var linesTotal int64
	for _, l := range cart.Lines {
		lines = append(lines, OrderLine{
			ProductID: l.ProductID,
			Brand:     l.Brand,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice,
			Subtotal:  l.LineTotal(),
		})
		linesTotal += l.LineTotal()
	}

	if linesTotal != totals.Subtotal {
		return nil, apperrors.Internal(errors.New("cart totals out of sync"))
	}

	return &CheckoutOrder{
		BranchID: branchID,
		Phone:    NormalizePhone(phone),
		Amount:   totals.Total,
		Lines:    lines,
	}, nil
}
