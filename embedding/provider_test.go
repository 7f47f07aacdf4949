package embedding

import (
	"context"
	"errors"
	"testing"
	"time"
)

// countingProvider records calls and can simulate a slow backend.
type countingProvider struct {
	calls int
	delay time.Duration
	err   error
}

func (p *countingProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	p.calls++
	if p.err != nil {
		return nil, p.err
	}
	if p.delay > 0 {
		select {
		case <-time.After(p.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return []float32{float32(len(text)), 1}, nil
}

func (p *countingProvider) Dimensions() int { return 2 }

func TestWithTimeout_ConvertsDeadlineToUnavailable(t *testing.T) {
	slow := &countingProvider{delay: 200 * time.Millisecond}
	p := WithTimeout(slow, 10*time.Millisecond)

	_, err := p.Embed(context.Background(), "hello")
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if !IsUnavailable(err) {
		t.Fatalf("timeout should be unavailable, got %v", err)
	}
}

func TestWithTimeout_FastCallPassesThrough(t *testing.T) {
	p := WithTimeout(&countingProvider{}, time.Second)
	vec, err := p.Embed(context.Background(), "hello")
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	if len(vec) != 2 {
		t.Fatalf("unexpected vector: %v", vec)
	}
}

func TestWithTimeout_ZeroTimeoutIsNoop(t *testing.T) {
	inner := &countingProvider{}
	if WithTimeout(inner, 0) != Provider(inner) {
		t.Fatal("zero timeout should return inner unchanged")
	}
}

func TestWithCache_EmbedsEachTextOnce(t *testing.T) {
	inner := &countingProvider{}
	p := WithCache(inner, nil, 16, time.Minute)

	for i := 0; i < 3; i++ {
		if _, err := p.Embed(context.Background(), "repeated text"); err != nil {
			t.Fatalf("embed: %v", err)
		}
	}
	if _, err := p.Embed(context.Background(), "different"); err != nil {
		t.Fatalf("embed: %v", err)
	}
	if inner.calls != 2 {
		t.Fatalf("inner called %d times, want 2", inner.calls)
	}
}

func TestWithCache_ErrorsAreNotCached(t *testing.T) {
	inner := &countingProvider{err: errors.New("down")}
	p := WithCache(inner, nil, 16, time.Minute)

	for i := 0; i < 2; i++ {
		if _, err := p.Embed(context.Background(), "text"); err == nil {
			t.Fatal("expected error")
		}
	}
	if inner.calls != 2 {
		t.Fatalf("failed calls must not be cached, inner called %d times", inner.calls)
	}
}

func TestIsUnavailable(t *testing.T) {
	if !IsUnavailable(ErrUnavailable) {
		t.Fatal("sentinel should be unavailable")
	}
	if !IsUnavailable(context.DeadlineExceeded) {
		t.Fatal("deadline should be unavailable")
	}
	if IsUnavailable(errors.New("other")) {
		t.Fatal("arbitrary errors are not unavailable")
	}
}
