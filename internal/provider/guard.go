package provider

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	apperrors "signal-engine/internal/errors"
	"signal-engine/internal/metrics"
	"signal-engine/internal/models"
	"signal-engine/internal/resilience"
	"signal-engine/pkg/utils"
)

// GuardConfig bounds every provider call. RateLimit is calls per second per
// provider; zero or less means unlimited.
type GuardConfig struct {
	Timeout   time.Duration
	Retry     utils.RetryConfig
	Breaker   resilience.CircuitBreakerConfig
	RateLimit float64
	RateBurst int
}

// DefaultGuardConfig returns a 10s timeout, three attempts and the default breaker.
func DefaultGuardConfig() GuardConfig {
	return GuardConfig{
		Timeout:   10 * time.Second,
		Retry:     utils.DefaultRetryConfig(),
		Breaker:   resilience.DefaultCircuitBreakerConfig(),
		RateBurst: 1,
	}
}

// Guard runs provider calls under a per-call timeout, retries transient
// failures with backoff and trips a circuit breaker per provider. Exhausted
// calls surface as a FetchError for that symbol only.
type Guard struct {
	cfg      GuardConfig
	breakers *resilience.CircuitBreakerRegistry
	metrics  *metrics.Metrics

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewGuard creates a guard. m may be nil.
func NewGuard(cfg GuardConfig, m *metrics.Metrics) *Guard {
	breakers := resilience.NewCircuitBreakerRegistry(cfg.Breaker)
	breakers.OnStateChange(func(name string, _, to resilience.CircuitState) {
		if to == resilience.CircuitOpen {
			m.BreakerOpened(name)
		}
	})
	return &Guard{cfg: cfg, breakers: breakers, metrics: m, limiters: make(map[string]*rate.Limiter)}
}

func (g *Guard) limiter(provider string) *rate.Limiter {
	g.mu.Lock()
	defer g.mu.Unlock()
	l, ok := g.limiters[provider]
	if !ok {
		limit := rate.Inf
		if g.cfg.RateLimit > 0 {
			limit = rate.Limit(g.cfg.RateLimit)
		}
		burst := g.cfg.RateBurst
		if burst < 1 {
			burst = 1
		}
		l = rate.NewLimiter(limit, burst)
		g.limiters[provider] = l
	}
	return l
}

// Breakers exposes the per-provider breaker registry.
func (g *Guard) Breakers() *resilience.CircuitBreakerRegistry {
	return g.breakers
}

// Bars fetches bars through the guard.
func (g *Guard) Bars(ctx context.Context, p BarProvider, symbol string, from, to time.Time) ([]models.Bar, error) {
	return guarded(ctx, g, p.Name(), symbol, func(ctx context.Context) ([]models.Bar, error) {
		return p.FetchBars(ctx, symbol, from, to)
	})
}

// Fundamentals fetches ratios through the guard. Missing ratios are returned
// as ErrDataNotFound rather than a fetch failure.
func (g *Guard) Fundamentals(ctx context.Context, p FundamentalsProvider, symbol string) (*models.Fundamentals, error) {
	return guarded(ctx, g, p.Name(), symbol, func(ctx context.Context) (*models.Fundamentals, error) {
		return p.FetchFundamentals(ctx, symbol)
	})
}

// permanent errors are not retried and do not count against the breaker.
func permanent(err error) bool {
	return errors.Is(err, apperrors.ErrDataNotFound) ||
		errors.Is(err, resilience.ErrCircuitOpen) ||
		errors.Is(err, context.Canceled)
}

func guarded[T any](ctx context.Context, g *Guard, provider, symbol string, fetch func(context.Context) (T, error)) (T, error) {
	breaker := g.breakers.Get(provider)
	limiter := g.limiter(provider)

	retry := g.cfg.Retry
	retry.Permanent = permanent
	retry.OnRetry = func(int, error) { g.metrics.FetchRetried(provider) }

	v, attempts, err := utils.RetryWithResult(ctx, retry, func() (T, error) {
		if err := limiter.Wait(ctx); err != nil {
			var zero T
			if ctx.Err() != nil {
				return zero, ctx.Err()
			}
			return zero, err
		}
		callCtx := ctx
		if g.cfg.Timeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(ctx, g.cfg.Timeout)
			defer cancel()
		}
		v, err := resilience.Execute(callCtx, breaker, func(err error) bool { return !permanent(err) }, fetch)
		if err != nil && errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return v, fmt.Errorf("%w after %s: %w", apperrors.ErrTimeout, g.cfg.Timeout, err)
		}
		return v, err
	})
	if err == nil {
		return v, nil
	}
	if errors.Is(err, apperrors.ErrDataNotFound) {
		return v, err
	}
	return v, apperrors.NewFetchError(provider, symbol, attempts, err)
}
