package ai

import (
	"fmt"

	"resumatch/internal/config"
	"resumatch/internal/errors"

	"github.com/sony/gobreaker/v2"
	"google.golang.org/genai"
)

// CircuitBreaker guards calls returning T. A nil breaker passes calls
// straight through.
type CircuitBreaker[T any] struct {
	cb *gobreaker.CircuitBreaker[T]
}

// NewGenerateBreaker builds the breaker around content generation for an
// operation. It returns nil when the breaker is disabled.
func NewGenerateBreaker(operation string, cfg *config.OperationAIConfig, logger *errors.Logger) *CircuitBreaker[*genai.GenerateContentResponse] {
	if !cfg.CircuitBreaker.Enabled {
		return nil
	}
	settings := cfg.CircuitBreaker
	return newCircuitBreaker[*genai.GenerateContentResponse](fmt.Sprintf("AI-%s", operation), operation, settings,
		func(counts gobreaker.Counts) bool {
			return counts.Requests >= settings.MinRequests &&
				failureRatio(counts) >= settings.FailureThreshold
		}, logger)
}

// NewModelBreaker builds the breaker around model lookups used by health
// checks. Lookups are less critical so it trips later.
func NewModelBreaker(operation string, cfg *config.OperationAIConfig, logger *errors.Logger) *CircuitBreaker[*genai.Model] {
	if !cfg.CircuitBreaker.Enabled {
		return nil
	}
	return newCircuitBreaker[*genai.Model](fmt.Sprintf("AI-Model-%s", operation), operation, cfg.CircuitBreaker,
		func(counts gobreaker.Counts) bool {
			return counts.Requests >= 5 && failureRatio(counts) >= 0.8
		}, logger)
}

func newCircuitBreaker[T any](name, operation string, settings config.CircuitBreakerConfig, readyToTrip func(gobreaker.Counts) bool, logger *errors.Logger) *CircuitBreaker[T] {
	return &CircuitBreaker[T]{
		cb: gobreaker.NewCircuitBreaker[T](gobreaker.Settings{
			Name:        name,
			MaxRequests: settings.MaxRequests,
			Interval:    settings.Interval,
			Timeout:     settings.Timeout,
			ReadyToTrip: readyToTrip,
			OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
				logger.Info("Circuit breaker state changed",
					"name", name,
					"operation_type", operation,
					"from", from.String(),
					"to", to.String(),
					"max_requests", settings.MaxRequests,
					"failure_threshold", settings.FailureThreshold)
			},
		}),
	}
}

func failureRatio(counts gobreaker.Counts) float64 {
	if counts.Requests == 0 {
		return 0
	}
	return float64(counts.TotalFailures) / float64(counts.Requests)
}

// Execute runs fn under the breaker
func (b *CircuitBreaker[T]) Execute(fn func() (T, error)) (T, error) {
	if b == nil || b.cb == nil {
		return fn()
	}
	return b.cb.Execute(fn)
}

// Stats reports the breaker name, state and counts
func (b *CircuitBreaker[T]) Stats() map[string]any {
	if b == nil || b.cb == nil {
		return map[string]any{"enabled": false}
	}
	return map[string]any{
		"name":    b.cb.Name(),
		"state":   b.cb.State().String(),
		"counts":  b.cb.Counts(),
		"enabled": true,
	}
}

// IsHealthy reports whether the breaker is closed
func (b *CircuitBreaker[T]) IsHealthy() bool {
	if b == nil || b.cb == nil {
		return true
	}
	return b.cb.State() == gobreaker.StateClosed
}
