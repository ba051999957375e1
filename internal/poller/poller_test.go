package poller

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ByteBenders-compScientists/smart-retail-checkout/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// outcomeRecorder captures the resolution exactly once.
type outcomeRecorder struct {
	mu      sync.Mutex
	ch      chan Outcome
	count   int32
	outcome Outcome
}

func newRecorder() *outcomeRecorder {
	return &outcomeRecorder{ch: make(chan Outcome, 1)}
}

func (r *outcomeRecorder) resolve(o Outcome) {
	atomic.AddInt32(&r.count, 1)
	r.mu.Lock()
	r.outcome = o
	r.mu.Unlock()
	select {
	case r.ch <- o:
	default:
	}
}

func (r *outcomeRecorder) wait(t *testing.T, timeout time.Duration) Outcome {
	t.Helper()
	select {
	case o := <-r.ch:
		return o
	case <-time.After(timeout):
		t.Fatal("poller did not resolve in time")
		return Outcome{}
	}
}

func fastConfig(maxAttempts int) Config {
	return Config{
		Interval:    time.Millisecond,
		MaxAttempts: maxAttempts,
		GraceDelay:  0,
	}
}

func TestPollerStopsAfterExactlyMaxAttempts(t *testing.T) {
	var queries int64
	query := func(ctx context.Context) (*domain.PaymentState, error) {
		atomic.AddInt64(&queries, 1)
		return &domain.PaymentState{Status: domain.PaymentPending}, nil
	}

	rec := newRecorder()
	p := New(fastConfig(60), query, rec.resolve, testLogger())
	p.Start(context.Background())

	outcome := rec.wait(t, 5*time.Second)
	assert.Equal(t, domain.PaymentTimedOut, outcome.Status)
	assert.Contains(t, outcome.Message, "may still have gone through")
	assert.Equal(t, int64(60), atomic.LoadInt64(&queries))
	assert.Equal(t, 60, p.Attempts())

	// No further automatic queries after resolution.
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int64(60), atomic.LoadInt64(&queries))
}

func TestPollerResolvesCompleted(t *testing.T) {
	query := func(ctx context.Context) (*domain.PaymentState, error) {
		return &domain.PaymentState{Status: domain.PaymentCompleted, TransactionID: "TXN1"}, nil
	}

	rec := newRecorder()
	cfg := fastConfig(60)
	cfg.GraceDelay = 20 * time.Millisecond

	start := time.Now()
	p := New(cfg, query, rec.resolve, testLogger())
	p.Start(context.Background())

	outcome := rec.wait(t, time.Second)
	assert.Equal(t, domain.PaymentCompleted, outcome.Status)
	assert.Equal(t, "TXN1", outcome.TransactionID)
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond,
		"completed outcome must be held for the grace delay")
	assert.Equal(t, 1, p.Attempts())
}

func TestPollerResolvesFailedImmediately(t *testing.T) {
	query := func(ctx context.Context) (*domain.PaymentState, error) {
		return &domain.PaymentState{Status: domain.PaymentFailed}, nil
	}

	rec := newRecorder()
	cfg := fastConfig(60)
	cfg.GraceDelay = time.Hour // must not apply to failures

	p := New(cfg, query, rec.resolve, testLogger())
	p.Start(context.Background())

	outcome := rec.wait(t, time.Second)
	assert.Equal(t, domain.PaymentFailed, outcome.Status)
	assert.Equal(t, "payment failed, please try again", outcome.Message)
}

func TestPollerToleratesQueryErrorsUntilExhaustion(t *testing.T) {
	var queries int64
	query := func(ctx context.Context) (*domain.PaymentState, error) {
		atomic.AddInt64(&queries, 1)
		return nil, errors.New("backend unreachable")
	}

	rec := newRecorder()
	p := New(fastConfig(5), query, rec.resolve, testLogger())
	p.Start(context.Background())

	outcome := rec.wait(t, time.Second)
	assert.Equal(t, domain.PaymentTimedOut, outcome.Status)
	assert.Equal(t, "could not verify payment", outcome.Message)
	assert.Equal(t, int64(5), atomic.LoadInt64(&queries))
}

func TestPollerErrorThenSuccess(t *testing.T) {
	var queries int64
	query := func(ctx context.Context) (*domain.PaymentState, error) {
		n := atomic.AddInt64(&queries, 1)
		if n < 3 {
			return nil, errors.New("flaky")
		}
		return &domain.PaymentState{Status: domain.PaymentCompleted, TransactionID: "TXN2"}, nil
	}

	rec := newRecorder()
	p := New(fastConfig(10), query, rec.resolve, testLogger())
	p.Start(context.Background())

	outcome := rec.wait(t, time.Second)
	assert.Equal(t, domain.PaymentCompleted, outcome.Status)
	assert.Equal(t, "TXN2", outcome.TransactionID)
}

func TestPollerRefreshDoesNotConsumeAttempt(t *testing.T) {
	var queries int64
	query := func(ctx context.Context) (*domain.PaymentState, error) {
		atomic.AddInt64(&queries, 1)
		return &domain.PaymentState{Status: domain.PaymentPending}, nil
	}

	rec := newRecorder()
	cfg := Config{Interval: time.Hour, MaxAttempts: 60}
	p := New(cfg, query, rec.resolve, testLogger())
	p.Start(context.Background())

	// Only the immediate first query runs with an hour-long interval.
	require.Eventually(t, func() bool {
		return atomic.LoadInt64(&queries) == 1
	}, time.Second, time.Millisecond)
	require.Equal(t, 1, p.Attempts())

	for range 3 {
		assert.True(t, p.Refresh(context.Background()))
	}

	assert.Equal(t, int64(4), atomic.LoadInt64(&queries))
	assert.Equal(t, 1, p.Attempts(), "manual refreshes must not spend attempts")
	p.Stop()
}

func TestPollerRefreshCanResolve(t *testing.T) {
	var completed atomic.Bool
	query := func(ctx context.Context) (*domain.PaymentState, error) {
		if completed.Load() {
			return &domain.PaymentState{Status: domain.PaymentCompleted, TransactionID: "TXN3"}, nil
		}
		return &domain.PaymentState{Status: domain.PaymentPending}, nil
	}

	rec := newRecorder()
	p := New(Config{Interval: time.Hour, MaxAttempts: 60}, query, rec.resolve, testLogger())
	p.Start(context.Background())

	require.Eventually(t, func() bool { return p.Attempts() == 1 }, time.Second, time.Millisecond)

	completed.Store(true)
	assert.False(t, p.Refresh(context.Background()), "refresh should observe the terminal status")

	outcome := rec.wait(t, time.Second)
	assert.Equal(t, domain.PaymentCompleted, outcome.Status)
	assert.Equal(t, "TXN3", outcome.TransactionID)
}

func TestPollerResolvesOnlyOnce(t *testing.T) {
	query := func(ctx context.Context) (*domain.PaymentState, error) {
		return &domain.PaymentState{Status: domain.PaymentCompleted, TransactionID: "TXN1"}, nil
	}

	rec := newRecorder()
	p := New(fastConfig(60), query, rec.resolve, testLogger())
	p.Start(context.Background())
	rec.wait(t, time.Second)

	// Refreshes against a resolved poller are discarded.
	p.Refresh(context.Background())
	p.Refresh(context.Background())
	time.Sleep(10 * time.Millisecond)

	assert.Equal(t, int32(1), atomic.LoadInt32(&rec.count))
}

func TestPollerCancellation(t *testing.T) {
	var queries int64
	query := func(ctx context.Context) (*domain.PaymentState, error) {
		atomic.AddInt64(&queries, 1)
		return &domain.PaymentState{Status: domain.PaymentPending}, nil
	}

	rec := newRecorder()
	ctx, cancel := context.WithCancel(context.Background())
	p := New(Config{Interval: 5 * time.Millisecond, MaxAttempts: 1000}, query, rec.resolve, testLogger())
	p.Start(ctx)

	time.Sleep(20 * time.Millisecond)
	cancel()
	time.Sleep(10 * time.Millisecond)

	after := atomic.LoadInt64(&queries)
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, after, atomic.LoadInt64(&queries), "no queries after cancellation")
	assert.Equal(t, int32(0), atomic.LoadInt32(&rec.count), "cancellation must not resolve")
}

func TestPollerStop(t *testing.T) {
	query := func(ctx context.Context) (*domain.PaymentState, error) {
		return &domain.PaymentState{Status: domain.PaymentPending}, nil
	}

	rec := newRecorder()
	p := New(Config{Interval: 5 * time.Millisecond, MaxAttempts: 1000}, query, rec.resolve, testLogger())
	p.Start(context.Background())
	p.Stop()

	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, int32(0), atomic.LoadInt32(&rec.count))
}
