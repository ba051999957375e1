package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/ByteBenders-compScientists/smart-retail-checkout/internal/domain"
	"github.com/ByteBenders-compScientists/smart-retail-checkout/internal/gateway"
	"github.com/ByteBenders-compScientists/smart-retail-checkout/internal/poller"
	"github.com/ByteBenders-compScientists/smart-retail-checkout/internal/repository"
	apperrors "github.com/ByteBenders-compScientists/smart-retail-checkout/pkg/errors"
)

// Shopper-facing message when the backend fails in a way we cannot explain.
const msgOrderFailed = "failed to place order"

const msgDismissed = "checkout dismissed"

// Per-call budget for one backend request made outside an HTTP handler.
const backendCallTimeout = 10 * time.Second

// Gateway is the slice of the storefront backend the checkout flow needs.
type Gateway interface {
	CreateOrder(ctx context.Context, token string, order *domain.CheckoutOrder) (string, error)
	InitiatePayment(ctx context.Context, token, orderID, phone string, amount int64) (*gateway.STKPush, error)
	PaymentStatus(ctx context.Context, token, orderID string) (*domain.PaymentState, error)
}

// EventPublisher announces checkout outcomes.
type EventPublisher interface {
	CheckoutCompleted(ctx context.Context, s *domain.CheckoutSession) error
	CheckoutFailed(ctx context.Context, s *domain.CheckoutSession) error
}

// PlaceOrderInput is what a shopper submits to start a checkout.
type PlaceOrderInput struct {
	BranchID string
	Phone    string
	Delivery domain.DeliveryMethod
}

// CheckoutService drives a checkout from order submission through payment
// confirmation. One poller goroutine runs per awaiting-payment session; the
// registry tracks them so dismissal and shutdown can stop them.
type CheckoutService struct {
	carts    repository.CartRepository
	sessions repository.SessionRepository
	gw       Gateway
	events   EventPublisher
	logger   *slog.Logger
	pollCfg  poller.Config

	rootCtx    context.Context
	rootCancel context.CancelFunc

	mu      sync.Mutex
	pollers map[string]*poller.Poller
}

// NewCheckoutService creates the checkout orchestrator.
func NewCheckoutService(
	carts repository.CartRepository,
	sessions repository.SessionRepository,
	gw Gateway,
	events EventPublisher,
	pollCfg poller.Config,
	logger *slog.Logger,
) *CheckoutService {
	rootCtx, rootCancel := context.WithCancel(context.Background())
	return &CheckoutService{
		carts:      carts,
		sessions:   sessions,
		gw:         gw,
		events:     events,
		logger:     logger,
		pollCfg:    pollCfg,
		rootCtx:    rootCtx,
		rootCancel: rootCancel,
		pollers:    make(map[string]*poller.Poller),
	}
}

// PlaceOrder validates the cart, submits the order, fires the M-Pesa STK
// push, and starts polling for confirmation. Validation problems return an
// error and create no session. Backend failures settle the session as failed
// with the backend's message when one is available; the cart is preserved so
// the shopper can try again.
func (s *CheckoutService) PlaceOrder(ctx context.Context, ownerID, token string, in PlaceOrderInput) (*domain.CheckoutSession, error) {
	cart, err := s.carts.Get(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	totals := cart.ComputeTotals(in.Delivery)
	order, err := domain.BuildOrder(cart, in.BranchID, in.Phone, totals)
	if err != nil {
		return nil, err
	}

	session := domain.NewCheckoutSession(ownerID, in.BranchID, in.Phone, totals.Total, in.Delivery)
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "checkout started",
		slog.String("checkout_id", session.ID),
		slog.String("owner_id", ownerID),
		slog.Int64("amount", session.Amount),
	)

	orderID, err := s.gw.CreateOrder(ctx, token, order)
	if err != nil {
		return s.settleFailed(ctx, session, failureMessage(err)), nil
	}
	if err := session.MarkInitiatingPayment(orderID); err != nil {
		return nil, err
	}
	if err := s.sessions.Update(ctx, session); err != nil {
		return nil, err
	}

	return s.initiateAndPoll(ctx, session, token)
}

// RetryPayment re-initiates payment for a failed checkout against the same
// order. A corrected phone number may be supplied; the attempt budget starts
// over with a fresh poller.
func (s *CheckoutService) RetryPayment(ctx context.Context, ownerID, id, phone, token string) (*domain.CheckoutSession, error) {
	session, err := s.getOwned(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	if err := session.Reopen(phone); err != nil {
		return nil, err
	}
	if err := s.sessions.Update(ctx, session); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "checkout payment retry",
		slog.String("checkout_id", session.ID),
		slog.String("order_id", session.OrderID),
	)

	return s.initiateAndPoll(ctx, session, token)
}

// GetSession returns a checkout session belonging to the owner.
func (s *CheckoutService) GetSession(ctx context.Context, ownerID, id string) (*domain.CheckoutSession, error) {
	return s.getOwned(ctx, ownerID, id)
}

// Refresh performs one out-of-band payment status check. The running poller
// handles it without spending an attempt; if no poller exists (say after a
// restart) the check runs directly against the backend.
func (s *CheckoutService) Refresh(ctx context.Context, ownerID, id, token string) (*domain.CheckoutSession, error) {
	session, err := s.getOwned(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	p := s.pollers[id]
	s.mu.Unlock()

	if p != nil {
		p.Refresh(ctx)
		return s.getOwned(ctx, ownerID, id)
	}

	if session.State != domain.StateAwaitingPayment {
		return session, nil
	}

	state, err := s.gw.PaymentStatus(ctx, token, session.OrderID)
	if err != nil {
		// The session stays awaiting; the shopper can refresh again.
		s.logger.WarnContext(ctx, "manual status check failed",
			slog.String("checkout_id", id),
			slog.String("error", err.Error()),
		)
		return session, nil
	}

	switch state.Status {
	case domain.PaymentCompleted:
		s.applyOutcome(session.ID, poller.Outcome{
			Status:        domain.PaymentCompleted,
			TransactionID: state.TransactionID,
		})
	case domain.PaymentFailed:
		s.applyOutcome(session.ID, poller.Outcome{
			Status:  domain.PaymentFailed,
			Message: "payment failed, please try again",
		})
	}
	return s.getOwned(ctx, ownerID, id)
}

// Dismiss stops the poller and settles a non-terminal session as failed. The
// cart is untouched.
func (s *CheckoutService) Dismiss(ctx context.Context, ownerID, id string) (*domain.CheckoutSession, error) {
	session, err := s.getOwned(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}

	s.removePoller(id)

	if session.State.Terminal() {
		return session, nil
	}
	return s.settleFailed(ctx, session, msgDismissed), nil
}

// StopAll cancels every running poller. Called during shutdown; sessions left
// awaiting payment can be refreshed manually after restart.
func (s *CheckoutService) StopAll() {
	s.rootCancel()

	s.mu.Lock()
	defer s.mu.Unlock()
	for id, p := range s.pollers {
		p.Stop()
		delete(s.pollers, id)
	}
}

// initiateAndPoll fires the STK push and, on success, moves the session to
// awaiting_payment and starts its poller.
func (s *CheckoutService) initiateAndPoll(ctx context.Context, session *domain.CheckoutSession, token string) (*domain.CheckoutSession, error) {
	stk, err := s.gw.InitiatePayment(ctx, token, session.OrderID, session.Phone, session.Amount)
	if err != nil {
		return s.settleFailed(ctx, session, failureMessage(err)), nil
	}

	if err := session.MarkAwaitingPayment(stk.CheckoutRequestID); err != nil {
		return nil, err
	}
	if err := s.sessions.Update(ctx, session); err != nil {
		return nil, err
	}

	s.startPoller(session, token)
	return session, nil
}

// startPoller registers and launches a poller for the session. An existing
// poller for the same session (a retry racing an old one) is stopped first.
func (s *CheckoutService) startPoller(session *domain.CheckoutSession, token string) {
	id := session.ID
	orderID := session.OrderID

	query := func(ctx context.Context) (*domain.PaymentState, error) {
		callCtx, cancel := context.WithTimeout(ctx, backendCallTimeout)
		defer cancel()
		return s.gw.PaymentStatus(callCtx, token, orderID)
	}

	resolve := func(outcome poller.Outcome) {
		s.removePoller(id)
		s.applyOutcome(id, outcome)
	}

	p := poller.New(s.pollCfg, query, resolve, s.logger)

	s.mu.Lock()
	if old, ok := s.pollers[id]; ok {
		old.Stop()
	}
	s.pollers[id] = p
	s.mu.Unlock()

	p.Start(s.rootCtx)
}

// applyOutcome settles the session per the poller's verdict. It reloads the
// session so a concurrent dismissal is respected; the domain's forward-only
// guard drops outcomes for already-settled sessions.
func (s *CheckoutService) applyOutcome(id string, outcome poller.Outcome) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	session, err := s.sessions.Get(ctx, id)
	if err != nil {
		s.logger.Error("load session for payment outcome",
			slog.String("checkout_id", id),
			slog.String("error", err.Error()),
		)
		return
	}

	switch outcome.Status {
	case domain.PaymentCompleted:
		if err := session.MarkSucceeded(outcome.TransactionID); err != nil {
			s.logger.Warn("stale payment outcome dropped",
				slog.String("checkout_id", id),
				slog.String("state", string(session.State)),
			)
			return
		}
		if err := s.sessions.Update(ctx, session); err != nil {
			s.logger.Error("persist succeeded checkout",
				slog.String("checkout_id", id),
				slog.String("error", err.Error()),
			)
			return
		}
		if err := s.carts.Delete(ctx, session.OwnerID); err != nil {
			s.logger.Error("clear cart after payment",
				slog.String("checkout_id", id),
				slog.String("error", err.Error()),
			)
		}
		s.publishCompleted(ctx, session)
		s.logger.Info("checkout succeeded",
			slog.String("checkout_id", id),
			slog.String("order_id", session.OrderID),
			slog.String("transaction_id", session.TransactionID),
		)

	case domain.PaymentFailed, domain.PaymentTimedOut:
		if err := session.MarkFailed(outcome.Message); err != nil {
			return
		}
		if err := s.sessions.Update(ctx, session); err != nil {
			s.logger.Error("persist failed checkout",
				slog.String("checkout_id", id),
				slog.String("error", err.Error()),
			)
			return
		}
		s.publishFailed(ctx, session)
		s.logger.Info("checkout failed",
			slog.String("checkout_id", id),
			slog.String("status", string(outcome.Status)),
			slog.String("reason", outcome.Message),
		)
	}
}

// settleFailed marks the session failed, persists it, and announces the
// failure. The returned session carries the shopper-facing reason.
func (s *CheckoutService) settleFailed(ctx context.Context, session *domain.CheckoutSession, reason string) *domain.CheckoutSession {
	if err := session.MarkFailed(reason); err != nil {
		return session
	}
	if err := s.sessions.Update(ctx, session); err != nil {
		s.logger.ErrorContext(ctx, "persist failed checkout",
			slog.String("checkout_id", session.ID),
			slog.String("error", err.Error()),
		)
	}
	s.publishFailed(ctx, session)
	return session
}

func (s *CheckoutService) getOwned(ctx context.Context, ownerID, id string) (*domain.CheckoutSession, error) {
	session, err := s.sessions.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if session.OwnerID != ownerID {
		return nil, apperrors.NotFound("checkout session", id)
	}
	return session, nil
}

// Event publishing is best effort: a Kafka outage must not fail a checkout.

func (s *CheckoutService) publishCompleted(ctx context.Context, session *domain.CheckoutSession) {
	if err := s.events.CheckoutCompleted(ctx, session); err != nil {
		s.logger.ErrorContext(ctx, "publish checkout completed event",
			slog.String("checkout_id", session.ID),
			slog.String("error", err.Error()),
		)
	}
}

func (s *CheckoutService) publishFailed(ctx context.Context, session *domain.CheckoutSession) {
	if err := s.events.CheckoutFailed(ctx, session); err != nil {
		s.logger.ErrorContext(ctx, "publish checkout failed event",
			slog.String("checkout_id", session.ID),
			slog.String("error", err.Error()),
		)
	}
}

func (s *CheckoutService) removePoller(id string) {
	s.mu.Lock()
	p, ok := s.pollers[id]
	if ok {
		delete(s.pollers, id)
	}
	s.mu.Unlock()
	if ok {
		p.Stop()
	}
}

// failureMessage surfaces the backend's own message when the error carries
// one, falling back to the generic order failure text.
func failureMessage(err error) string {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) && appErr.Message != "" {
		return appErr.Message
	}
	return msgOrderFailed
}
