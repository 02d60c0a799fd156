package discovery

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/rl1809/procurement/internal/core/domain"
	"github.com/rl1809/procurement/internal/port"
)

// SimulatedSearcher answers discovery queries from a fixed market of offers
// after an artificial delay. Offers are found through the catalog item they
// belong to or through their own product name.
type SimulatedSearcher struct {
	items   []domain.CatalogItem
	market  map[string][]domain.VendorOffer
	latency time.Duration
}

var _ port.VendorSearcher = (*SimulatedSearcher)(nil)

func NewSimulatedSearcher(items []domain.CatalogItem, market map[string][]domain.VendorOffer, latency time.Duration) *SimulatedSearcher {
	return &SimulatedSearcher{
		items:   items,
		market:  market,
		latency: latency,
	}
}

func (s *SimulatedSearcher) Search(ctx context.Context, query string, hintWebsites []string) ([]domain.VendorOffer, error) {
	if s.latency > 0 {
		timer := time.NewTimer(s.latency)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	q := strings.ToLower(strings.TrimSpace(query))
	seen := make(map[string]struct{})
	var out []domain.VendorOffer
	add := func(o domain.VendorOffer) {
		if _, dup := seen[o.ID]; dup {
			return
		}
		seen[o.ID] = struct{}{}
		out = append(out, o)
	}

	for _, item := range s.items {
		offers := s.market[item.ID]
		if item.Matches(q) {
			for _, o := range offers {
				add(o)
			}
			continue
		}
		for _, o := range offers {
			if q != "" && strings.Contains(strings.ToLower(o.ProductName), q) {
				add(o)
			}
		}
	}

	rankByHints(out, hintWebsites)
	return out, nil
}

// rankByHints moves offers from hinted websites to the front, keeping the
// relative order within each group.
func rankByHints(offers []domain.VendorOffer, hints []string) {
	if len(hints) == 0 {
		return
	}
	hinted := func(o domain.VendorOffer) bool {
		site := strings.ToLower(o.Website)
		if site == "" {
			return false
		}
		for _, h := range hints {
			h = strings.ToLower(strings.TrimSpace(h))
			if h != "" && strings.Contains(site, h) {
				return true
			}
		}
		return false
	}
	sort.SliceStable(offers, func(i, j int) bool {
		return hinted(offers[i]) && !hinted(offers[j])
	})
}
