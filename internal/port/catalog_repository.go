package port

import (
	"context"

	"github.com/rl1809/procurement/internal/core/domain"
)

type CatalogRepository interface {
	// GetCatalogItem returns the item with its known vendor offers, or domain.ErrItemNotFound
	GetCatalogItem(ctx context.Context, id string) (domain.CatalogItem, error)

	// ListCatalogItems matches query case-insensitively against name, SKU and category
	ListCatalogItems(ctx context.Context, query string) ([]domain.CatalogItem, error)
}

type RFQSink interface {
	// Dispatch hands a Ready document to the outside world
	Dispatch(ctx context.Context, doc domain.RFQDocument) (domain.DispatchReceipt, error)
}
