package embedding

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrUnavailable marks an embedding failure the evaluators may degrade on
// instead of failing the turn.
var ErrUnavailable = errors.New("embedding provider unavailable")

// Provider maps text to a fixed-dimension vector.
type Provider interface {
	// Embed returns the vector for text. Implementations must respect ctx
	// cancellation and return an error wrapping ErrUnavailable when the
	// backing model is unreachable or times out.
	Embed(ctx context.Context, text string) ([]float32, error)
	// Dimensions is the fixed output dimension of this provider.
	Dimensions() int
}

// IsUnavailable reports whether err means the provider could not be reached
// in time. Callers fall back to rule-based scoring on it.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrUnavailable) || errors.Is(err, context.DeadlineExceeded)
}

// bounded wraps a provider with a per-call timeout.
type bounded struct {
	inner   Provider
	timeout time.Duration
}

// WithTimeout bounds every Embed call on inner to the given timeout.
// A zero or negative timeout returns inner unchanged.
func WithTimeout(inner Provider, timeout time.Duration) Provider {
	if timeout <= 0 {
		return inner
	}
	return &bounded{inner: inner, timeout: timeout}
}

func (b *bounded) Embed(ctx context.Context, text string) ([]float32, error) {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()
	vec, err := b.inner.Embed(ctx, text)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: timed out after %v", ErrUnavailable, b.timeout)
		}
		return nil, err
	}
	return vec, nil
}

func (b *bounded) Dimensions() int { return b.inner.Dimensions() }
