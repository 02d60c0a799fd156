package port

import (
	"context"
	"time"

	"github.com/rl1809/procurement/internal/core/domain"
)

type CacheRepository interface {
	// GetOffers returns cached discovery results; ok is false on a miss
	GetOffers(ctx context.Context, key string) (offers []domain.VendorOffer, ok bool, err error)

	// SetOffers caches discovery results for ttl
	SetOffers(ctx context.Context, key string, offers []domain.VendorOffer, ttl time.Duration) error

	// SetIdempotency claims key with token, returns false if already claimed
	SetIdempotency(ctx context.Context, key, token string) (bool, error)

	// ReleaseIdempotency drops the claim if it is still held by token (rollback on failure)
	ReleaseIdempotency(ctx context.Context, key, token string) error
}
