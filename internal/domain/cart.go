package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/ByteBenders-compScientists/smart-retail-checkout/pkg/errors"
)

// MaxLineQuantity caps how many units of one product a single cart line may
// hold.
const MaxLineQuantity = 50

// UnitType says how a beverage is sold.
type UnitType string

const (
	UnitBottle UnitType = "bottle"
	UnitCrate  UnitType = "crate"
)

// ParseUnitType validates a unit type string.
func ParseUnitType(s string) (UnitType, error) {
	switch UnitType(s) {
	case UnitBottle, UnitCrate:
		return UnitType(s), nil
	default:
		return "", fmt.Errorf("unknown unit type %q", s)
	}
}

// VAT rate applied on top of the goods subtotal, in percent.
const vatRatePercent = 16

// CartLine is one product entry in a cart. Prices are whole Kenyan shillings.
type CartLine struct {
	ID            string   `json:"id"`
	ProductID     string   `json:"product_id"`
	Name          string   `json:"name"`
	Brand         string   `json:"brand,omitempty"`
	UnitType      UnitType `json:"unit_type"`
	BranchID      string   `json:"branch_id"`
	UnitPrice     int64    `json:"unit_price"`
	OriginalPrice int64    `json:"original_price,omitempty"`
	Quantity      int      `json:"quantity"`
}

// LineTotal is the line's price contribution.
func (l CartLine) LineTotal() int64 {
	return l.UnitPrice * int64(l.Quantity)
}

// Cart is a shopper's cart. Lines are merged by product, unit type, and
// branch, so the same product sold per piece and per crate occupies two lines.
type Cart struct {
	OwnerID   string     `json:"owner_id"`
	Lines     []CartLine `json:"lines"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// NewCart creates an empty cart for the given owner.
func NewCart(ownerID string) *Cart {
	return &Cart{
		OwnerID:   ownerID,
		Lines:     []CartLine{},
		UpdatedAt: time.Now().UTC(),
	}
}

// IsEmpty reports whether the cart has no lines.
func (c *Cart) IsEmpty() bool {
	return len(c.Lines) == 0
}

// TotalQuantity sums the quantities of all lines.
func (c *Cart) TotalQuantity() int {
	total := 0
	for _, l := range c.Lines {
		total += l.Quantity
	}
	return total
}

// AddItem adds a product to the cart. When a line for the same product, unit
// type, and branch already exists, the quantities merge instead of creating a
// duplicate line. A merge that would push the line past MaxLineQuantity is
// rejected.
func (c *Cart) AddItem(line CartLine) error {
	if line.ProductID == "" {
		return apperrors.InvalidInput("product id is required")
	}
	if line.Quantity < 1 {
		return apperrors.InvalidInput("quantity must be at least 1")
	}
	if line.Quantity > MaxLineQuantity {
		return apperrors.InvalidInput(fmt.Sprintf("quantity cannot exceed %d", MaxLineQuantity))
	}
	if line.UnitPrice < 0 {
		return apperrors.InvalidInput("unit price cannot be negative")
	}
	if _, err := ParseUnitType(string(line.UnitType)); err != nil {
		return apperrors.InvalidInput("unit type must be bottle or crate")
	}

	for i := range c.Lines {
		existing := &c.Lines[i]
		if existing.ProductID == line.ProductID &&
			existing.UnitType == line.UnitType &&
			existing.BranchID == line.BranchID {
			if existing.Quantity+line.Quantity > MaxLineQuantity {
				return apperrors.InvalidInput(fmt.Sprintf("quantity cannot exceed %d", MaxLineQuantity))
			}
			existing.Quantity += line.Quantity
			c.UpdatedAt = time.Now().UTC()
			return nil
		}
	}

	if line.ID == "" {
		line.ID = uuid.New().String()
	}
	c.Lines = append(c.Lines, line)
	c.UpdatedAt = time.Now().UTC()
	return nil
}

// UpdateQuantity sets the quantity of an existing line. Quantities below 1
// leave the line unchanged; use RemoveItem to take a line out of the cart.
func (c *Cart) UpdateQuantity(lineID string, quantity int) error {
	for i := range c.Lines {
		if c.Lines[i].ID != lineID {
			continue
		}
		if quantity < 1 {
			return nil
		}
		if quantity > MaxLineQuantity {
			quantity = MaxLineQuantity
		}
		c.Lines[i].Quantity = quantity
		c.UpdatedAt = time.Now().UTC()
		return nil
	}
	return apperrors.NotFound("cart item", lineID)
}

// RemoveItem deletes a line from the cart.
func (c *Cart) RemoveItem(lineID string) error {
	for i := range c.Lines {
		if c.Lines[i].ID != lineID {
			continue
		}
		c.Lines = append(c.Lines[:i], c.Lines[i+1:]...)
		c.UpdatedAt = time.Now().UTC()
		return nil
	}
	return apperrors.NotFound("cart item", lineID)
}

// Clear removes every line from the cart.
func (c *Cart) Clear() {
	c.Lines = []CartLine{}
	c.UpdatedAt = time.Now().UTC()
}

// Totals is the cart's price breakdown in whole Kenyan shillings.
type Totals struct {
	Subtotal    int64          `json:"subtotal"`
	VAT         int64          `json:"vat"`
	DeliveryFee int64          `json:"delivery_fee"`
	Savings     int64          `json:"savings"`
	Total       int64          `json:"total"`
	Delivery    DeliveryMethod `json:"delivery_method"`
	ItemCount   int            `json:"item_count"`
}

// ComputeTotals prices the cart for the given delivery method. VAT is 16% of
// the goods subtotal, rounded half up to the nearest shilling. Savings reports
// how far current prices sit below original prices for discounted lines.
func (c *Cart) ComputeTotals(method DeliveryMethod) Totals {
	var subtotal, savings int64
	for _, l := range c.Lines {
		subtotal += l.LineTotal()
		if l.OriginalPrice > l.UnitPrice {
			savings += (l.OriginalPrice - l.UnitPrice) * int64(l.Quantity)
		}
	}

	vat := (subtotal*vatRatePercent + 50) / 100
	fee := method.Fee()

	return Totals{
		Subtotal:    subtotal,
		VAT:         vat,
		DeliveryFee: fee,
		Savings:     savings,
		Total:       subtotal + vat + fee,
		Delivery:    method,
		ItemCount:   c.TotalQuantity(),
	}
}
