// Package event publishes checkout lifecycle events to Kafka.
package event

import (
	"context"
	"fmt"

	"github.com/ByteBenders-compScientists/smart-retail-checkout/internal/domain"
	"github.com/ByteBenders-compScientists/smart-retail-checkout/pkg/kafka"
	"github.com/ByteBenders-compScientists/smart-retail-checkout/pkg/logger"
)

// Kafka topics for checkout lifecycle events.
const (
	TopicCheckoutCompleted = "retail.checkout.completed"
	TopicCheckoutFailed    = "retail.checkout.failed"
)

const source = "checkout-service"

// Event type names carried in the envelope.
const (
	TypeCheckoutCompleted = "checkout.completed"
	TypeCheckoutFailed    = "checkout.failed"
)

type checkoutPayload struct {
	CheckoutID    string `json:"checkout_id"`
	OwnerID       string `json:"owner_id"`
	BranchID      string `json:"branch_id"`
	OrderID       string `json:"order_id,omitempty"`
	TransactionID string `json:"transaction_id,omitempty"`
	Amount        int64  `json:"amount"`
	FailureReason string `json:"failure_reason,omitempty"`
}

// Publisher emits checkout events through the shared Kafka producer.
type Publisher struct {
	producer *kafka.Producer
}

// NewPublisher creates a checkout event publisher.
func NewPublisher(producer *kafka.Producer) *Publisher {
	return &Publisher{producer: producer}
}

// CheckoutCompleted announces a successfully paid checkout.
func (p *Publisher) CheckoutCompleted(ctx context.Context, s *domain.CheckoutSession) error {
	return p.publish(ctx, TopicCheckoutCompleted, TypeCheckoutCompleted, s)
}

// CheckoutFailed announces a checkout that ended in failure or timeout.
func (p *Publisher) CheckoutFailed(ctx context.Context, s *domain.CheckoutSession) error {
	return p.publish(ctx, TopicCheckoutFailed, TypeCheckoutFailed, s)
}

func (p *Publisher) publish(ctx context.Context, topic, eventType string, s *domain.CheckoutSession) error {
	evt, err := kafka.NewEvent(eventType, s.ID, source, checkoutPayload{
		CheckoutID:    s.ID,
		OwnerID:       s.OwnerID,
		BranchID:      s.BranchID,
		OrderID:       s.OrderID,
		TransactionID: s.TransactionID,
		Amount:        s.Amount,
		FailureReason: s.FailureReason,
	})
	if err != nil {
		return fmt.Errorf("build %s event: %w", eventType, err)
	}

	if cid := logger.CorrelationIDFromContext(ctx); cid != "" {
		evt.WithCorrelationID(cid)
	}

	return p.producer.Publish(ctx, topic, evt)
}
