package render

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

type limitedBackend struct {
	limiter *rate.Limiter
	backend Backend
}

// Limit throttles renders of b through l. A nil limiter disables throttling.
func Limit(l *rate.Limiter, b Backend) Backend {
	if l == nil {
		return b
	}

	return &limitedBackend{
		limiter: l,
		backend: b,
	}
}

func (b *limitedBackend) Name() string {
	return b.backend.Name()
}

func (b *limitedBackend) Render(ctx context.Context, req *Request) (*Result, error) {
	if err := b.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit: %w", err)
	}

	return b.backend.Render(ctx, req)
}
