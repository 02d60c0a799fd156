package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rl1809/procurement/internal/core/domain"
	"github.com/rl1809/procurement/internal/port"
)

const (
	offersKeyPrefix   = "offers:"
	idempotencyKeyTTL = 24 * time.Hour
)

var releaseClaimScript = redis.NewScript(`
local key = KEYS[1]
local token = ARGV[1]

if redis.call('GET', key) == token then
	return redis.call('DEL', key)
end

return 0
`)

type RedisAdapter struct {
	client *redis.Client
}

var _ port.CacheRepository = (*RedisAdapter)(nil)

func NewRedisAdapter(client *redis.Client) *RedisAdapter {
	return &RedisAdapter{client: client}
}

func (r *RedisAdapter) GetOffers(ctx context.Context, key string) ([]domain.VendorOffer, bool, error) {
	raw, err := r.client.Get(ctx, offersKeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var records []offerRecord
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, false, fmt.Errorf("decode cached offers: %w", err)
	}
	offers := make([]domain.VendorOffer, 0, len(records))
	for _, rec := range records {
		o, err := rec.toDomain()
		if err != nil {
			// A bad entry is treated as a miss so the caller refetches
			log.Printf("redis: cached offers %s: %v", key, err)
			return nil, false, nil
		}
		offers = append(offers, o)
	}
	return offers, true, nil
}

func (r *RedisAdapter) SetOffers(ctx context.Context, key string, offers []domain.VendorOffer, ttl time.Duration) error {
	records := make([]offerRecord, 0, len(offers))
	for _, o := range offers {
		records = append(records, toOfferRecord(o))
	}
	raw, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("encode offers: %w", err)
	}
	return r.client.Set(ctx, offersKeyPrefix+key, raw, ttl).Err()
}

func (r *RedisAdapter) SetIdempotency(ctx context.Context, key, token string) (bool, error) {
	ok, err := r.client.SetNX(ctx, key, token, idempotencyKeyTTL).Result()
	if err != nil {
		return false, err
	}

	return ok, nil
}

func (r *RedisAdapter) ReleaseIdempotency(ctx context.Context, key, token string) error {
	return releaseClaimScript.Run(ctx, r.client, []string{key}, token).Err()
}
