package domain

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// CatalogItem is a read-only snapshot owned by the catalog.
type CatalogItem struct {
	ID            string
	Name          string
	SKU           string
	Category      string
	BaselinePrice decimal.Decimal
	Stock         StockCounts
	Manufacturer  string
	Offers        []VendorOffer
}

// NewCatalogItem validates required fields and the incumbent invariant of the
// item's known offers.
func NewCatalogItem(id, name, sku, category string, baselinePrice decimal.Decimal, stock StockCounts, manufacturer string, offers []VendorOffer) (CatalogItem, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return CatalogItem{}, fmt.Errorf("%w: id cannot be empty", ErrInvalidCatalogItem)
	}
	if strings.TrimSpace(name) == "" {
		return CatalogItem{}, fmt.Errorf("%w: item %s: name cannot be empty", ErrInvalidCatalogItem, id)
	}
	if baselinePrice.IsNegative() {
		return CatalogItem{}, fmt.Errorf("%w: item %s: baseline price must not be negative, got %s", ErrInvalidCatalogItem, id, baselinePrice)
	}
	if stock.OnHand < 0 || stock.Reserved < 0 || stock.OnOrder < 0 {
		return CatalogItem{}, fmt.Errorf("%w: item %s: stock counts must not be negative", ErrInvalidCatalogItem, id)
	}

	if len(offers) > 0 {
		seen := make(map[string]struct{}, len(offers))
		incumbents := 0
		for _, o := range offers {
			if _, dup := seen[o.ID]; dup {
				return CatalogItem{}, fmt.Errorf("%w: item %s: duplicate offer id %s", ErrInvalidCatalogItem, id, o.ID)
			}
			seen[o.ID] = struct{}{}
			if o.IsCurrentVendor {
				incumbents++
			}
		}
		if incumbents != 1 {
			return CatalogItem{}, fmt.Errorf("%w: item %s: expected exactly one current vendor, got %d", ErrInvalidCatalogItem, id, incumbents)
		}
	}

	return CatalogItem{
		ID:            id,
		Name:          strings.TrimSpace(name),
		SKU:           strings.TrimSpace(sku),
		Category:      strings.TrimSpace(category),
		BaselinePrice: baselinePrice,
		Stock:         stock,
		Manufacturer:  strings.TrimSpace(manufacturer),
		Offers:        append([]VendorOffer(nil), offers...),
	}, nil
}

// Matches reports a case-insensitive substring match over name, SKU and category.
func (c CatalogItem) Matches(query string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return true
	}
	return strings.Contains(strings.ToLower(c.Name), q) ||
		strings.Contains(strings.ToLower(c.SKU), q) ||
		strings.Contains(strings.ToLower(c.Category), q)
}

// initialOffers returns the offers a new line item starts with. An item the
// catalog knows no vendors for is bought from its manufacturer at baseline.
func (c CatalogItem) initialOffers() []VendorOffer {
	if len(c.Offers) > 0 {
		return append([]VendorOffer(nil), c.Offers...)
	}
	vendor := c.Manufacturer
	if vendor == "" {
		vendor = "Unknown vendor"
	}
	return []VendorOffer{{
		ID:              c.ID + "-baseline",
		VendorName:      vendor,
		ProductName:     c.Name,
		PricePerUnit:    c.BaselinePrice,
		Manufacturer:    c.Manufacturer,
		IsCurrentVendor: true,
	}}
}
