// Package poller confirms M-Pesa payments by querying the storefront backend
// until the payment settles or the verification budget runs out.
package poller

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ByteBenders-compScientists/smart-retail-checkout/internal/domain"
)

var (
	pollsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_polls_total",
			Help: "Payment status queries by observed result",
		},
		[]string{"result"},
	)

	activePollers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "payment_pollers_active",
			Help: "Pollers currently waiting for payment confirmation",
		},
	)
)

// Shopper-facing resolution messages.
const (
	msgPaymentFailed = "payment failed, please try again"
	msgTimeout       = "payment verification timed out. The payment may still have gone through; check your M-Pesa messages or contact support"
	msgUnverifiable  = "could not verify payment"
)

// QueryFunc asks the backend for the current payment state.
type QueryFunc func(ctx context.Context) (*domain.PaymentState, error)

// ResolveFunc receives the poller's final outcome, exactly once.
type ResolveFunc func(outcome Outcome)

// Outcome is the poller's terminal result.
type Outcome struct {
	Status        domain.PaymentStatus
	TransactionID string
	Message       string
}

// Config couples the polling cadence to the verification budget: Interval
// times MaxAttempts is the total time a shopper is kept waiting.
type Config struct {
	Interval    time.Duration
	MaxAttempts int
	GraceDelay  time.Duration
}

// DefaultConfig polls every 3 seconds for up to 60 attempts, a three minute
// verification window, and holds a successful result for 2 seconds before
// resolving so the backend's own bookkeeping can settle.
func DefaultConfig() Config {
	return Config{
		Interval:    3 * time.Second,
		MaxAttempts: 60,
		GraceDelay:  2 * time.Second,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Interval <= 0 {
		c.Interval = d.Interval
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = d.MaxAttempts
	}
	if c.GraceDelay < 0 {
		c.GraceDelay = d.GraceDelay
	}
	return c
}

// Poller watches a single payment. It issues an immediate query on Start,
// then one per interval until a terminal status arrives or the attempt budget
// is spent. Once resolved it ignores every further response, so a stale
// pending answer can never reopen a settled payment.
type Poller struct {
	cfg     Config
	query   QueryFunc
	resolve ResolveFunc
	logger  *slog.Logger

	mu       sync.Mutex
	attempts int
	done     bool
	lastErr  error
	cancel   context.CancelFunc
}

// New creates a poller for one payment. Zero-valued config fields take
// defaults.
func New(cfg Config, query QueryFunc, resolve ResolveFunc, logger *slog.Logger) *Poller {
	return &Poller{
		cfg:     cfg.withDefaults(),
		query:   query,
		resolve: resolve,
		logger:  logger,
	}
}

// Start launches the polling goroutine. Cancelling ctx stops the poller
// without resolving; Stop does the same.
func (p *Poller) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)

	p.mu.Lock()
	p.cancel = cancel
	p.mu.Unlock()

	activePollers.Inc()

	go func() {
		defer activePollers.Dec()

		// First query fires immediately; M-Pesa confirmations often land
		// within a second or two of the STK push.
		p.tick(ctx, true)

		ticker := time.NewTicker(p.cfg.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				p.tick(ctx, true)
				if p.isDone() {
					return
				}
			}
		}
	}()
}

// Stop cancels the polling goroutine. A poller that already resolved is
// unaffected.
func (p *Poller) Stop() {
	p.mu.Lock()
	cancel := p.cancel
	p.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Refresh issues one out-of-band status query, applying the same transition
// rules as a scheduled poll but without consuming an attempt. It reports
// whether the poller is still waiting afterwards.
func (p *Poller) Refresh(ctx context.Context) bool {
	p.tick(ctx, false)
	return !p.isDone()
}

// Attempts returns how many scheduled queries have run.
func (p *Poller) Attempts() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.attempts
}

func (p *Poller) isDone() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.done
}

// tick runs one status query and applies its result. countAttempt is false
// for manual refreshes.
func (p *Poller) tick(ctx context.Context, countAttempt bool) {
	if p.isDone() {
		return
	}

	state, err := p.query(ctx)

	p.mu.Lock()
	if p.done {
		// Resolved while the query was in flight; discard.
		p.mu.Unlock()
		return
	}
	if countAttempt {
		p.attempts++
	}
	attempts := p.attempts
	exhausted := attempts >= p.cfg.MaxAttempts

	if err != nil {
		p.lastErr = err
		if ctx.Err() != nil {
			p.mu.Unlock()
			return
		}
		pollsTotal.WithLabelValues("error").Inc()
		p.logger.WarnContext(ctx, "payment status query failed",
			slog.Int("attempt", attempts),
			slog.String("error", err.Error()),
		)
		if exhausted {
			p.finalize(ctx, Outcome{Status: domain.PaymentTimedOut, Message: msgUnverifiable})
			return
		}
		p.mu.Unlock()
		return
	}
	p.lastErr = nil
	pollsTotal.WithLabelValues(string(state.Status)).Inc()

	switch state.Status {
	case domain.PaymentCompleted:
		p.finalize(ctx, Outcome{
			Status:        domain.PaymentCompleted,
			TransactionID: state.TransactionID,
		})
	case domain.PaymentFailed:
		p.finalize(ctx, Outcome{Status: domain.PaymentFailed, Message: msgPaymentFailed})
	default:
		if exhausted {
			p.finalize(ctx, Outcome{Status: domain.PaymentTimedOut, Message: msgTimeout})
			return
		}
		p.mu.Unlock()
	}
}

// finalize marks the poller done and delivers the outcome. Called with p.mu
// held; releases it. A completed payment is held for the grace delay before
// the callback fires.
func (p *Poller) finalize(ctx context.Context, outcome Outcome) {
	p.done = true
	cancel := p.cancel
	p.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	p.logger.InfoContext(ctx, "payment poller resolved",
		slog.String("status", string(outcome.Status)),
		slog.Int("attempts", p.Attempts()),
	)

	go func() {
		if outcome.Status == domain.PaymentCompleted && p.cfg.GraceDelay > 0 {
			time.Sleep(p.cfg.GraceDelay)
		}
		p.resolve(outcome)
	}()
}
