package shortener

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

// ResilienceConfig tunes the retry, rate limit and circuit breaker around a
// shortener.
type ResilienceConfig struct {
	// RequestsPerSecond is the sustained request rate towards the provider
	RequestsPerSecond float64
	Burst             int

	MaxRetries     uint64
	InitialBackoff time.Duration
	MaxBackoff     time.Duration

	// FailureThreshold is the failure ratio that opens the circuit once
	// MinRequests were made
	FailureThreshold float64
	MinRequests      uint32
	OpenTimeout      time.Duration
}

// DefaultResilienceConfig is tuned for a free public shortener.
func DefaultResilienceConfig() ResilienceConfig {
	return ResilienceConfig{
		RequestsPerSecond: 5,
		Burst:             5,
		MaxRetries:        2,
		InitialBackoff:    250 * time.Millisecond,
		MaxBackoff:        2 * time.Second,
		FailureThreshold:  0.6,
		MinRequests:       5,
		OpenTimeout:       time.Minute,
	}
}

// Resilient rate limits calls to the wrapped shortener, retries temporary
// failures and stops calling it altogether once it keeps failing.
type Resilient struct {
	next    Shortener
	cfg     ResilienceConfig
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
	logger  *slog.Logger
}

// WithResilience wraps next with retry, rate limit and circuit breaker
func WithResilience(next Shortener, cfg ResilienceConfig, logger *slog.Logger) *Resilient {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}

	settings := gobreaker.Settings{
		Name:        next.Name(),
		MaxRequests: 1,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= cfg.FailureThreshold
		},
		// Errors tied to a single link say nothing about the provider's health
		IsSuccessful: func(err error) bool {
			return err == nil || !isTemporary(err)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("shortener circuit breaker state changed",
				"shortener", name,
				"from", from.String(),
				"to", to.String())
		},
	}

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}

	return &Resilient{
		next:    next,
		cfg:     cfg,
		limiter: rate.NewLimiter(limit, cfg.Burst),
		breaker: gobreaker.NewCircuitBreaker(settings),
		logger:  logger,
	}
}

func (r *Resilient) Name() string {
	return r.next.Name()
}

func (r *Resilient) Shorten(ctx context.Context, longURL string) (string, error) {
	result, err := r.breaker.Execute(func() (interface{}, error) {
		return r.shortenWithRetry(ctx, longURL)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return "", fmt.Errorf("shortener %s unavailable: %w", r.next.Name(), err)
		}
		return "", err
	}
	return result.(string), nil
}

func (r *Resilient) shortenWithRetry(ctx context.Context, longURL string) (string, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.cfg.InitialBackoff
	b.MaxInterval = r.cfg.MaxBackoff
	b.MaxElapsedTime = 0

	var short string
	attempt := 0
	operation := func() error {
		attempt++
		if err := r.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(err)
		}

		var err error
		short, err = r.next.Shorten(ctx, longURL)
		if err == nil {
			return nil
		}
		if !isTemporary(err) {
			return backoff.Permanent(err)
		}
		r.logger.Debug("shortening failed, retrying", "url", longURL, "attempt", attempt, "error", err)
		return err
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(b, r.cfg.MaxRetries), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		return "", err
	}
	return short, nil
}

func isTemporary(err error) bool {
	if errors.Is(err, ErrEmptyURL) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Temporary()
	}
	// Transport level failures are worth another try
	return true
}
