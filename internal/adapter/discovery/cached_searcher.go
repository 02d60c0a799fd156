package discovery

import (
	"context"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/rl1809/procurement/internal/core/domain"
	"github.com/rl1809/procurement/internal/port"
)

const DefaultOfferCacheTTL = 10 * time.Minute

// CachedSearcher serves repeated queries from the cache. Cache failures fall
// through to the wrapped searcher.
type CachedSearcher struct {
	next  port.VendorSearcher
	cache port.CacheRepository
	ttl   time.Duration
}

var _ port.VendorSearcher = (*CachedSearcher)(nil)

func NewCachedSearcher(next port.VendorSearcher, cache port.CacheRepository, ttl time.Duration) *CachedSearcher {
	if ttl <= 0 {
		ttl = DefaultOfferCacheTTL
	}
	return &CachedSearcher{next: next, cache: cache, ttl: ttl}
}

func (c *CachedSearcher) Search(ctx context.Context, query string, hintWebsites []string) ([]domain.VendorOffer, error) {
	key := cacheKey(query, hintWebsites)

	offers, ok, err := c.cache.GetOffers(ctx, key)
	if err != nil {
		log.Printf("discovery cache: get %q: %v", key, err)
	} else if ok {
		return offers, nil
	}

	offers, err = c.next.Search(ctx, query, hintWebsites)
	if err != nil {
		return nil, err
	}

	if err := c.cache.SetOffers(ctx, key, offers, c.ttl); err != nil {
		log.Printf("discovery cache: set %q: %v", key, err)
	}
	return offers, nil
}

// cacheKey ignores case and hint order, but hints still change ranking so
// they are part of the key.
func cacheKey(query string, hints []string) string {
	norm := make([]string, 0, len(hints))
	for _, h := range hints {
		if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
			norm = append(norm, h)
		}
	}
	sort.Strings(norm)
	return strings.ToLower(strings.TrimSpace(query)) + "|" + strings.Join(norm, ",")
}
