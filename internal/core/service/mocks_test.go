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

// Mock CatalogRepository
type mockCatalog struct {
	items map[string]domain.CatalogItem
}

func newMockCatalog(items ...domain.CatalogItem) *mockCatalog {
	m := &mockCatalog{items: make(map[string]domain.CatalogItem)}
	for _, it := range items {
		m.items[it.ID] = it
	}
	return m
}

func (m *mockCatalog) GetCatalogItem(ctx context.Context, id string) (domain.CatalogItem, error) {
	it, ok := m.items[id]
	if !ok {
		return domain.CatalogItem{}, fmt.Errorf("%w: %s", domain.ErrItemNotFound, id)
	}
	return it, nil
}

func (m *mockCatalog) ListCatalogItems(ctx context.Context, query string) ([]domain.CatalogItem, error) {
	var out []domain.CatalogItem
	for _, it := range m.items {
		if it.Matches(query) {
			out = append(out, it)
		}
	}
	return out, nil
}

// Mock Notifier
type mockNotifier struct {
	mu  sync.Mutex
	got []domain.Notification
}

func (m *mockNotifier) Notify(n domain.Notification) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.got = append(m.got, n)
}

func (m *mockNotifier) codes() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.got))
	for _, n := range m.got {
		out = append(out, n.Code)
	}
	return out
}

// gatedSearcher holds every call until the test releases it.
type gatedReply struct {
	offers []domain.VendorOffer
	err    error
}

type gatedSearcher struct {
	mu      sync.Mutex
	calls   []chan gatedReply
	queries []string
	started chan int
}

func newGatedSearcher() *gatedSearcher {
	return &gatedSearcher{started: make(chan int, 16)}
}

func (g *gatedSearcher) Search(ctx context.Context, query string, hints []string) ([]domain.VendorOffer, error) {
	ch := make(chan gatedReply, 1)
	g.mu.Lock()
	g.calls = append(g.calls, ch)
	g.queries = append(g.queries, query)
	n := len(g.calls)
	g.mu.Unlock()
	g.started <- n

	select {
	case r := <-ch:
		return r.offers, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (g *gatedSearcher) release(call int, r gatedReply) {
	g.mu.Lock()
	ch := g.calls[call-1]
	g.mu.Unlock()
	ch <- r
}

func (g *gatedSearcher) waitStarted(n int) {
	for i := 0; i < n; i++ {
		<-g.started
	}
}

// stubbornSearcher ignores its context until unblocked.
type stubbornSearcher struct {
	block chan struct{}
}

func (s *stubbornSearcher) Search(ctx context.Context, query string, hints []string) ([]domain.VendorOffer, error) {
	<-s.block
	return nil, nil
}

// Mock RFQSink
type mockSink struct {
	mu    sync.Mutex
	docs  []domain.RFQDocument
	err   error
	delay time.Duration
}

func (m *mockSink) Dispatch(ctx context.Context, doc domain.RFQDocument) (domain.DispatchReceipt, error) {
	if m.delay > 0 {
		time.Sleep(m.delay)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return domain.DispatchReceipt{}, m.err
	}
	m.docs = append(m.docs, doc)
	return domain.DispatchReceipt{RFQID: doc.ID, Reference: "mock/" + doc.ID}, nil
}

func (m *mockSink) setErr(err error) {
	m.mu.Lock()
	m.err = err
	m.mu.Unlock()
}

func (m *mockSink) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.docs)
}

// Mock CacheRepository
type mockCacheRepo struct {
	mu     sync.Mutex
	claims map[string]string
}

func newMockCacheRepo() *mockCacheRepo {
	return &mockCacheRepo{claims: make(map[string]string)}
}

func (m *mockCacheRepo) GetOffers(ctx context.Context, key string) ([]domain.VendorOffer, bool, error) {
	return nil, false, nil
}

func (m *mockCacheRepo) SetOffers(ctx context.Context, key string, offers []domain.VendorOffer, ttl time.Duration) error {
	return nil
}

func (m *mockCacheRepo) SetIdempotency(ctx context.Context, key, token string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, held := m.claims[key]; held {
		return false, nil
	}
	m.claims[key] = token
	return true, nil
}

func (m *mockCacheRepo) ReleaseIdempotency(ctx context.Context, key, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.claims[key] == token {
		delete(m.claims, key)
	}
	return nil
}

func (m *mockCacheRepo) held(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.claims[key]
	return ok
}

// Fixtures

func offer(id, vendor string, price string, current bool) domain.VendorOffer {
	return domain.VendorOffer{
		ID:              id,
		VendorName:      vendor,
		ProductName:     "Nitrile Gloves",
		PricePerUnit:    decimal.RequireFromString(price),
		IsCurrentVendor: current,
	}
}

func glovesItem() domain.CatalogItem {
	item, err := domain.NewCatalogItem("gloves", "Nitrile Gloves", "GLV-100", "PPE", decimal.NewFromInt(10),
		domain.StockCounts{OnHand: 10}, "Medline", []domain.VendorOffer{offer("gloves-medline", "Medline Direct", "10", true)})
	if err != nil {
		panic(err)
	}
	return item
}

func masksItem() domain.CatalogItem {
	item, err := domain.NewCatalogItem("masks", "Surgical Masks", "MSK-050", "PPE", decimal.RequireFromString("4.5"),
		domain.StockCounts{}, "3M", nil)
	if err != nil {
		panic(err)
	}
	return item
}

func newTestOrderService(notifier *mockNotifier) *OrderService {
	var n port.Notifier
	if notifier != nil {
		n = notifier
	}
	return NewOrderService(domain.NewOrder(decimal.NewFromInt(100)), newMockCatalog(glovesItem(), masksItem()), n)
}
