package domain

import "fmt"

// DeliveryMethod is one of the fixed fulfilment options offered at checkout.
type DeliveryMethod string

const (
	DeliveryPickup   DeliveryMethod = "pickup"
	DeliveryStandard DeliveryMethod = "standard"
	DeliveryExpress  DeliveryMethod = "express"
)

// Flat delivery fees in whole Kenyan shillings.
const (
	feePickup   int64 = 0
	feeStandard int64 = 200
	feeExpress  int64 = 500
)

// ParseDeliveryMethod validates a delivery method string. The empty string
// defaults to pickup.
func ParseDeliveryMethod(s string) (DeliveryMethod, error) {
	switch DeliveryMethod(s) {
	case DeliveryPickup, DeliveryStandard, DeliveryExpress:
		return DeliveryMethod(s), nil
	case "":
		return DeliveryPickup, nil
	default:
		return "", fmt.Errorf("unknown delivery method %q", s)
	}
}

// Fee returns the flat delivery fee for the method.
func (m DeliveryMethod) Fee() int64 {
	switch m {
	case DeliveryStandard:
		return feeStandard
	case DeliveryExpress:
		return feeExpress
	default:
		return feePickup
	}
}
