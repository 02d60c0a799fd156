package port

import (
	"context"

	"github.com/rl1809/procurement/internal/core/domain"
)

type VendorSearcher interface {
	// Search looks for alternative offers matching query, preferring hintWebsites
	Search(ctx context.Context, query string, hintWebsites []string) ([]domain.VendorOffer, error)
}
