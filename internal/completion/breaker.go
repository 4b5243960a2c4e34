package completion

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sony/gobreaker/v2"
)

// BreakerConfig configures the circuit breaker around a Completer.
type BreakerConfig struct {
	MinRequests      uint32
	FailureRatio     float64
	OpenTimeout      time.Duration
	HalfOpenMaxCalls uint32
}

func (c BreakerConfig) normalize() BreakerConfig {
	out := c
	if out.MinRequests == 0 {
		out.MinRequests = 5
	}
	if out.FailureRatio <= 0 || out.FailureRatio > 1 {
		out.FailureRatio = 0.6
	}
	if out.OpenTimeout <= 0 {
		out.OpenTimeout = 30 * time.Second
	}
	if out.HalfOpenMaxCalls == 0 {
		out.HalfOpenMaxCalls = 1
	}
	return out
}

// Breaker fails calls fast while the completion service keeps failing.
// An open circuit is reported as a ServiceError; nothing is retried.
type Breaker struct {
	next    Completer
	breaker *gobreaker.CircuitBreaker[string]
}

func NewBreaker(next Completer, cfg BreakerConfig, log *slog.Logger) *Breaker {
	cfg = cfg.normalize()
	settings := gobreaker.Settings{
		Name:        "completion",
		MaxRequests: cfg.HalfOpenMaxCalls,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= cfg.FailureRatio
		},
		IsSuccessful: func(err error) bool {
			// Caller cancellation says nothing about service health.
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			log.Warn("circuit breaker state change", "name", name, "from", from.String(), "to", to.String())
		},
	}
	return &Breaker{
		next:    next,
		breaker: gobreaker.NewCircuitBreaker[string](settings),
	}
}

func (b *Breaker) Complete(ctx context.Context, req Request) (string, error) {
	text, err := b.breaker.Execute(func() (string, error) {
		return b.next.Complete(ctx, req)
	})
	if IsCircuitOpen(err) {
		return "", &ServiceError{Provider: "completion", Message: "circuit open", Err: err}
	}
	return text, err
}

// IsCircuitOpen reports whether err came from a tripped breaker.
func IsCircuitOpen(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}
