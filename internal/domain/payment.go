package domain

import (
	"time"

	"github.com/google/uuid"

	apperrors "github.com/ByteBenders-compScientists/smart-retail-checkout/pkg/errors"
)

// PaymentStatus is the backend's view of an M-Pesa payment.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
	PaymentTimedOut  PaymentStatus = "timed_out"
)

// Terminal reports whether the payment has reached a final status.
func (s PaymentStatus) Terminal() bool {
	return s == PaymentCompleted || s == PaymentFailed || s == PaymentTimedOut
}

// PaymentState is a point-in-time answer from the payment provider.
type PaymentState struct {
	Status        PaymentStatus `json:"status"`
	TransactionID string        `json:"transaction_id,omitempty"`
}

// CheckoutState tracks a checkout session through order submission, payment
// initiation, and payment confirmation.
type CheckoutState string

const (
	StateSubmittingOrder   CheckoutState = "submitting_order"
	StateInitiatingPayment CheckoutState = "initiating_payment"
	StateAwaitingPayment   CheckoutState = "awaiting_payment"
	StateSucceeded         CheckoutState = "succeeded"
	StateFailed            CheckoutState = "failed"
)

// Terminal reports whether the checkout can no longer change state.
func (s CheckoutState) Terminal() bool {
	return s == StateSucceeded || s == StateFailed
}

// CheckoutSession is one attempt to pay for a cart. It survives restarts in
// Postgres; the in-memory poller references it by ID.
type CheckoutSession struct {
	ID                string         `json:"id"`
	OwnerID           string         `json:"owner_id"`
	BranchID          string         `json:"branch_id"`
	Phone             string         `json:"phone"`
	Amount            int64          `json:"amount"`
	DeliveryMethod    DeliveryMethod `json:"delivery_method"`
	State             CheckoutState  `json:"state"`
	OrderID           string         `json:"order_id,omitempty"`
	CheckoutRequestID string         `json:"checkout_request_id,omitempty"`
	TransactionID     string         `json:"transaction_id,omitempty"`
	FailureReason     string         `json:"failure_reason,omitempty"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
}

// NewCheckoutSession starts a session in the submitting_order state.
func NewCheckoutSession(ownerID, branchID, phone string, amount int64, method DeliveryMethod) *CheckoutSession {
	now := time.Now().UTC()
	return &CheckoutSession{
		ID:             uuid.New().String(),
		OwnerID:        ownerID,
		BranchID:       branchID,
		Phone:          NormalizePhone(phone),
		Amount:         amount,
		DeliveryMethod: method,
		State:          StateSubmittingOrder,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// Transitions are forward-only. A session that has succeeded or failed
// rejects every further mutation so stale poller responses cannot overwrite
// a settled outcome.

// MarkInitiatingPayment records the backend order and advances to payment
// initiation.
func (s *CheckoutSession) MarkInitiatingPayment(orderID string) error {
	if err := s.guard(); err != nil {
		return err
	}
	s.OrderID = orderID
	s.State = StateInitiatingPayment
	s.touch()
	return nil
}

// MarkAwaitingPayment records the STK push reference and advances to waiting
// for payment confirmation.
func (s *CheckoutSession) MarkAwaitingPayment(checkoutRequestID string) error {
	if err := s.guard(); err != nil {
		return err
	}
	s.CheckoutRequestID = checkoutRequestID
	s.State = StateAwaitingPayment
	s.touch()
	return nil
}

// MarkSucceeded settles the session with the confirmed M-Pesa transaction.
func (s *CheckoutSession) MarkSucceeded(transactionID string) error {
	if err := s.guard(); err != nil {
		return err
	}
	s.TransactionID = transactionID
	s.State = StateSucceeded
	s.FailureReason = ""
	s.touch()
	return nil
}

// MarkFailed settles the session with a shopper-facing failure reason.
func (s *CheckoutSession) MarkFailed(reason string) error {
	if err := s.guard(); err != nil {
		return err
	}
	s.State = StateFailed
	s.FailureReason = reason
	s.touch()
	return nil
}

// Reopen moves a failed session back to initiating_payment for a retry. An
// optional corrected phone number replaces the stored one.
func (s *CheckoutSession) Reopen(phone string) error {
	if s.State != StateFailed {
		return apperrors.Conflict("only a failed checkout can be retried")
	}
	if s.OrderID == "" {
		return apperrors.Conflict("checkout has no order to retry payment for")
	}
	if phone != "" {
		if !IsValidPhone(phone) {
			return apperrors.InvalidInput("enter a valid M-Pesa phone number")
		}
		s.Phone = NormalizePhone(phone)
	}
	s.State = StateInitiatingPayment
	s.FailureReason = ""
	s.TransactionID = ""
	s.touch()
	return nil
}

func (s *CheckoutSession) guard() error {
	if s.State.Terminal() {
		return apperrors.Conflict("checkout already settled")
	}
	return nil
}

func (s *CheckoutSession) touch() {
	s.UpdatedAt = time.Now().UTC()
}
