package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rl1809/procurement/internal/core/domain"
	"github.com/rl1809/procurement/internal/port"
)

// OrderService owns one Order and serializes every mutation of it. Reads go
// through the same lock, so they never observe a half-applied change.
type OrderService struct {
	mu          sync.RWMutex
	order       *domain.Order
	catalog     port.CatalogRepository
	notifier    port.Notifier
	removeHooks []func(itemID string)
	now         func() time.Time

	// lineGen changes every time an item is added, so work started against
	// a removed line never lands on a re-added one.
	lineGen map[string]uint64
	genSeq  uint64
}

func NewOrderService(order *domain.Order, catalog port.CatalogRepository, notifier port.Notifier) *OrderService {
	return &OrderService{
		order:    order,
		catalog:  catalog,
		notifier: notifier,
		now:      time.Now,
		lineGen:  make(map[string]uint64),
	}
}

// OnRemove registers fn to run before an item is removed from the order.
func (s *OrderService) OnRemove(fn func(itemID string)) {
	s.mu.Lock()
	s.removeHooks = append(s.removeHooks, fn)
	s.mu.Unlock()
}

func (s *OrderService) report(itemID string, err error) {
	if s.notifier == nil || err == nil {
		return
	}
	s.notifier.Notify(domain.NotificationFor(itemID, err, s.now()))
}

func (s *OrderService) SearchCatalog(ctx context.Context, query string) ([]domain.CatalogItem, error) {
	items, err := s.catalog.ListCatalogItems(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list catalog: %w", err)
	}
	return items, nil
}

// AddItem resolves itemID through the catalog and appends it to the order.
func (s *OrderService) AddItem(ctx context.Context, itemID string) (domain.LineSummary, error) {
	s.mu.RLock()
	exists := s.order.Contains(itemID)
	s.mu.RUnlock()
	if exists {
		err := fmt.Errorf("%w: %s", domain.ErrDuplicateItem, itemID)
		s.report(itemID, err)
		return domain.LineSummary{}, err
	}

	item, err := s.catalog.GetCatalogItem(ctx, itemID)
	if err != nil {
		s.report(itemID, err)
		return domain.LineSummary{}, fmt.Errorf("get catalog item %s: %w", itemID, err)
	}
	return s.AddCatalogItem(item)
}

// AddCatalogItem appends an already resolved catalog item.
func (s *OrderService) AddCatalogItem(item domain.CatalogItem) (domain.LineSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.order.AddItem(item); err != nil {
		s.report(item.ID, err)
		return domain.LineSummary{}, err
	}
	s.genSeq++
	s.lineGen[item.ID] = s.genSeq
	return s.lineSummaryLocked(item.ID), nil
}

// RemoveItem invalidates any pending work on the item, then drops it.
func (s *OrderService) RemoveItem(itemID string) error {
	s.mu.RLock()
	exists := s.order.Contains(itemID)
	hooks := append([]func(string){}, s.removeHooks...)
	s.mu.RUnlock()

	if !exists {
		err := fmt.Errorf("%w: %s", domain.ErrItemNotFound, itemID)
		s.report(itemID, err)
		return err
	}

	for _, hook := range hooks {
		hook(itemID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.order.RemoveItem(itemID); err != nil {
		s.report(itemID, err)
		return err
	}
	delete(s.lineGen, itemID)
	return nil
}

func (s *OrderService) SetQuantity(itemID string, n int) (domain.LineSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.order.SetQuantity(itemID, n); err != nil {
		s.report(itemID, err)
		return domain.LineSummary{}, err
	}
	return s.lineSummaryLocked(itemID), nil
}

func (s *OrderService) ToggleVendor(itemID, vendorID string) (domain.VendorSelectionEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	evt, err := s.order.ToggleVendor(itemID, vendorID)
	if err != nil {
		s.report(itemID, err)
		return domain.VendorSelectionEvent{}, err
	}
	return evt, nil
}

// MergeOffers is the landing point for discovery results.
func (s *OrderService) MergeOffers(itemID string, offers []domain.VendorOffer) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.order.MergeOffers(itemID, offers)
}

// mergeOffersAt merges only while the line is still the one gen was read
// from. A removal, even one followed by a re-add, fails with ErrItemNotFound.
func (s *OrderService) mergeOffersAt(itemID string, gen uint64, offers []domain.VendorOffer) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.order.Contains(itemID) || s.lineGen[itemID] != gen {
		return 0, fmt.Errorf("%w: %s", domain.ErrItemNotFound, itemID)
	}
	return s.order.MergeOffers(itemID, offers)
}

func (s *OrderService) SetBudget(budget decimal.Decimal) {
	s.mu.Lock()
	s.order.SetAllocatedBudget(budget)
	s.mu.Unlock()
}

// CatalogItem returns the snapshot the line for itemID was created from.
func (s *OrderService) CatalogItem(itemID string) (domain.CatalogItem, bool) {
	item, _, ok := s.catalogLine(itemID)
	return item, ok
}

func (s *OrderService) catalogLine(itemID string) (domain.CatalogItem, uint64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	line, ok := s.order.Item(itemID)
	if !ok {
		return domain.CatalogItem{}, 0, false
	}
	return line.Item, s.lineGen[itemID], true
}

func (s *OrderService) Contains(itemID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.order.Contains(itemID)
}

func (s *OrderService) Total() decimal.Decimal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.order.Total()
}

func (s *OrderService) Summary() domain.OrderSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.order.Summary()
}

func (s *OrderService) Line(itemID string) (domain.LineSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.order.Contains(itemID) {
		return domain.LineSummary{}, fmt.Errorf("%w: %s", domain.ErrItemNotFound, itemID)
	}
	return s.lineSummaryLocked(itemID), nil
}

// Snapshot returns a deep copy that can be read without holding the lock.
func (s *OrderService) Snapshot() *domain.Order {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.order.Clone()
}

func (s *OrderService) SelectionLog() *domain.SelectionLog {
	return s.order.SelectionLog()
}

func (s *OrderService) lineSummaryLocked(itemID string) domain.LineSummary {
	for _, ls := range s.order.Summary().Lines {
		if ls.ItemID == itemID {
			return ls
		}
	}
	return domain.LineSummary{}
}
