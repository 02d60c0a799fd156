package storage

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/rl1809/procurement/internal/core/domain"
	"github.com/rl1809/procurement/internal/port"
)

// Seed is the static catalog plus the market offers that alternative vendor
// discovery can find for each item.
type Seed struct {
	Budget decimal.Decimal
	Items  []domain.CatalogItem
	// Market maps an item id to offers not yet known to the catalog.
	Market map[string][]domain.VendorOffer
}

type seedFile struct {
	Budget string           `yaml:"budget"`
	Items  []seedItemRecord `yaml:"items"`
}

type seedItemRecord struct {
	ID            string        `yaml:"id"`
	Name          string        `yaml:"name"`
	SKU           string        `yaml:"sku"`
	Category      string        `yaml:"category"`
	BaselinePrice string        `yaml:"baseline_price"`
	Manufacturer  string        `yaml:"manufacturer"`
	Stock         stockRecord   `yaml:"stock"`
	Offers        []offerRecord `yaml:"offers"`
	Alternatives  []offerRecord `yaml:"alternatives"`
}

type stockRecord struct {
	OnHand   int `yaml:"on_hand"`
	Reserved int `yaml:"reserved"`
	OnOrder  int `yaml:"on_order"`
}

func LoadSeedFile(path string) (*Seed, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed: %w", err)
	}
	return ParseSeed(raw)
}

// ParseSeed decodes a YAML seed and validates every item and offer.
func ParseSeed(raw []byte) (*Seed, error) {
	var f seedFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("decode seed: %w", err)
	}

	seed := &Seed{Market: make(map[string][]domain.VendorOffer)}
	if f.Budget != "" {
		budget, err := decimal.NewFromString(f.Budget)
		if err != nil {
			return nil, fmt.Errorf("seed budget %q: %w", f.Budget, err)
		}
		seed.Budget = budget
	}

	for _, rec := range f.Items {
		item, err := rec.toDomain()
		if err != nil {
			return nil, err
		}
		seed.Items = append(seed.Items, item)

		for _, alt := range rec.Alternatives {
			o, err := alt.toDomain()
			if err != nil {
				return nil, fmt.Errorf("item %s alternatives: %w", rec.ID, err)
			}
			seed.Market[item.ID] = append(seed.Market[item.ID], o)
		}
	}
	return seed, nil
}

func (rec seedItemRecord) toDomain() (domain.CatalogItem, error) {
	baseline := decimal.Zero
	if rec.BaselinePrice != "" {
		var err error
		baseline, err = decimal.NewFromString(rec.BaselinePrice)
		if err != nil {
			return domain.CatalogItem{}, fmt.Errorf("%w: item %s: baseline price %q: %v", domain.ErrInvalidCatalogItem, rec.ID, rec.BaselinePrice, err)
		}
	}

	offers := make([]domain.VendorOffer, 0, len(rec.Offers))
	for _, o := range rec.Offers {
		offer, err := o.toDomain()
		if err != nil {
			return domain.CatalogItem{}, fmt.Errorf("item %s: %w", rec.ID, err)
		}
		offers = append(offers, offer)
	}

	stock := domain.StockCounts{OnHand: rec.Stock.OnHand, Reserved: rec.Stock.Reserved, OnOrder: rec.Stock.OnOrder}
	return domain.NewCatalogItem(rec.ID, rec.Name, rec.SKU, rec.Category, baseline, stock, rec.Manufacturer, offers)
}

// MemoryCatalog serves a fixed set of catalog items.
type MemoryCatalog struct {
	mu    sync.RWMutex
	items []domain.CatalogItem
	index map[string]int
}

var _ port.CatalogRepository = (*MemoryCatalog)(nil)

func NewMemoryCatalog(items []domain.CatalogItem) *MemoryCatalog {
	c := &MemoryCatalog{index: make(map[string]int, len(items))}
	for _, it := range items {
		if _, dup := c.index[it.ID]; dup {
			continue
		}
		c.index[it.ID] = len(c.items)
		c.items = append(c.items, it)
	}
	return c
}

func (c *MemoryCatalog) GetCatalogItem(ctx context.Context, id string) (domain.CatalogItem, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	i, ok := c.index[strings.TrimSpace(id)]
	if !ok {
		return domain.CatalogItem{}, fmt.Errorf("%w: %s", domain.ErrItemNotFound, id)
	}
	return c.items[i], nil
}

func (c *MemoryCatalog) ListCatalogItems(ctx context.Context, query string) ([]domain.CatalogItem, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := []domain.CatalogItem{}
	for _, it := range c.items {
		if it.Matches(query) {
			out = append(out, it)
		}
	}
	return out, nil
}
