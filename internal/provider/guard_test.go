package provider

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	apperrors "signal-engine/internal/errors"
	"signal-engine/internal/models"
	"signal-engine/internal/resilience"
	"signal-engine/pkg/utils"
)

// flakyProvider fails the first `failures` calls with err.
type flakyProvider struct {
	failures int32
	err      error
	calls    atomic.Int32
	delay    time.Duration
}

func (p *flakyProvider) Name() string { return "flaky" }

func (p *flakyProvider) FetchBars(ctx context.Context, symbol string, from, to time.Time) ([]models.Bar, error) {
	n := p.calls.Add(1)
	if p.delay > 0 {
		select {
		case <-time.After(p.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if n <= p.failures {
		return nil, p.err
	}
	return []models.Bar{{Close: 10}}, nil
}

func (p *flakyProvider) FetchFundamentals(ctx context.Context, symbol string) (*models.Fundamentals, error) {
	if _, err := p.FetchBars(ctx, symbol, time.Time{}, time.Time{}); err != nil {
		return nil, err
	}
	return &models.Fundamentals{Symbol: symbol, PE: models.Some(12)}, nil
}

func testGuard(attempts int) *Guard {
	return NewGuard(GuardConfig{
		Timeout: time.Second,
		Retry: utils.RetryConfig{
			MaxAttempts:   attempts,
			InitialDelay:  time.Millisecond,
			MaxDelay:      5 * time.Millisecond,
			BackoffFactor: 2,
		},
		Breaker: resilience.CircuitBreakerConfig{FailureThreshold: 10, SuccessThreshold: 1, Cooldown: time.Minute},
	}, nil)
}

func TestGuardRetriesTransientFailures(t *testing.T) {
	p := &flakyProvider{failures: 2, err: errors.New("connection reset")}
	bars, err := testGuard(3).Bars(context.Background(), p, "ACME", time.Time{}, time.Time{})
	if err != nil {
		t.Fatalf("Bars: %v", err)
	}
	if len(bars) != 1 || p.calls.Load() != 3 {
		t.Errorf("bars = %d, calls = %d", len(bars), p.calls.Load())
	}
}

func TestGuardExhaustedRetriesYieldFetchError(t *testing.T) {
	p := &flakyProvider{failures: 100, err: errors.New("503")}
	_, err := testGuard(3).Bars(context.Background(), p, "ACME", time.Time{}, time.Time{})

	var fetchErr *apperrors.FetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("expected FetchError, got %v", err)
	}
	if fetchErr.Symbol != "ACME" || fetchErr.Provider != "flaky" || fetchErr.Attempts != 3 {
		t.Errorf("FetchError = %+v", fetchErr)
	}
	if !errors.Is(err, apperrors.ErrUpstreamFetch) {
		t.Error("FetchError should match ErrUpstreamFetch")
	}
}

func TestGuardDataNotFoundIsNotRetried(t *testing.T) {
	p := &flakyProvider{failures: 100, err: apperrors.NewDataError("bars", "ACME", "none", apperrors.ErrDataNotFound)}
	_, err := testGuard(3).Bars(context.Background(), p, "ACME", time.Time{}, time.Time{})
	if !errors.Is(err, apperrors.ErrDataNotFound) {
		t.Fatalf("expected ErrDataNotFound, got %v", err)
	}
	if errors.Is(err, apperrors.ErrUpstreamFetch) {
		t.Error("missing data should not be reported as a fetch failure")
	}
	if p.calls.Load() != 1 {
		t.Errorf("calls = %d, want 1", p.calls.Load())
	}
}

func TestGuardTimeout(t *testing.T) {
	g := testGuard(1)
	g.cfg.Timeout = 10 * time.Millisecond
	p := &flakyProvider{delay: time.Second}

	_, err := g.Bars(context.Background(), p, "ACME", time.Time{}, time.Time{})
	if !errors.Is(err, apperrors.ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
	if !errors.Is(err, apperrors.ErrUpstreamFetch) {
		t.Error("timeout should surface as a fetch failure")
	}
}

func TestGuardBreakerOpensPerProvider(t *testing.T) {
	g := testGuard(1)
	g.breakers = resilience.NewCircuitBreakerRegistry(resilience.CircuitBreakerConfig{
		FailureThreshold: 2, SuccessThreshold: 1, Cooldown: time.Hour,
	})
	p := &flakyProvider{failures: 100, err: errors.New("down")}
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, _ = g.Bars(ctx, p, "ACME", time.Time{}, time.Time{})
	}
	if g.Breakers().Get("flaky").State() != resilience.CircuitOpen {
		t.Fatal("breaker should be open after consecutive failures")
	}

	_, err := g.Bars(ctx, p, "BETA", time.Time{}, time.Time{})
	if !errors.Is(err, resilience.ErrCircuitOpen) {
		t.Errorf("expected ErrCircuitOpen, got %v", err)
	}
	if p.calls.Load() != 2 {
		t.Errorf("open breaker should short-circuit, calls = %d", p.calls.Load())
	}
}

func TestGuardFundamentals(t *testing.T) {
	p := &flakyProvider{failures: 1, err: errors.New("blip")}
	f, err := testGuard(2).Fundamentals(context.Background(), p, "ACME")
	if err != nil {
		t.Fatalf("Fundamentals: %v", err)
	}
	if v, _ := f.PE.Get(); v != 12 {
		t.Errorf("PE = %v", f.PE)
	}
}

func TestGuardRateLimitsPerProvider(t *testing.T) {
	g := testGuard(1)
	g.cfg.RateLimit = 20
	g.cfg.RateBurst = 1
	p := &flakyProvider{}

	start := time.Now()
	for i := 0; i < 3; i++ {
		if _, err := g.Bars(context.Background(), p, "ACME", time.Time{}, time.Time{}); err != nil {
			t.Fatalf("Bars: %v", err)
		}
	}
	// burst of 1 at 20/s: the second and third calls each wait ~50ms
	if elapsed := time.Since(start); elapsed < 80*time.Millisecond {
		t.Errorf("three calls took %s, expected rate limiting", elapsed)
	}
}

func TestGuardRateLimitRespectsCancel(t *testing.T) {
	g := testGuard(3)
	g.cfg.RateLimit = 0.1
	p := &flakyProvider{}

	if _, err := g.Bars(context.Background(), p, "ACME", time.Time{}, time.Time{}); err != nil {
		t.Fatalf("first call: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := g.Bars(ctx, p, "ACME", time.Time{}, time.Time{})
	if err == nil {
		t.Fatal("expected the limited call to fail once the context ends")
	}
	if p.calls.Load() != 1 {
		t.Errorf("provider called %d times, want 1", p.calls.Load())
	}
}
