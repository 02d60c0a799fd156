package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rl1809/procurement/internal/core/domain"
)

func waitResult(t *testing.T, p *PendingSearch) SearchResult {
	t.Helper()
	select {
	case <-p.Done():
	case <-time.After(2 * time.Second):
		t.Fatalf("search %d for %s did not settle", p.Seq, p.ItemID)
	}
	r, _ := p.Result()
	return r
}

func newDiscoveryFixture(t *testing.T, timeout time.Duration) (*OrderService, *DiscoveryService, *gatedSearcher, *mockNotifier) {
	notifier := &mockNotifier{}
	orders := newTestOrderService(notifier)
	if _, err := orders.AddItem(context.Background(), "gloves"); err != nil {
		t.Fatalf("AddItem failed: %v", err)
	}
	searcher := newGatedSearcher()
	d := NewDiscoveryService(orders, searcher, notifier, timeout)
	t.Cleanup(d.Close)
	return orders, d, searcher, notifier
}

func TestNewDiscoveryService_DefaultTimeout(t *testing.T) {
	d := NewDiscoveryService(newTestOrderService(nil), newGatedSearcher(), nil, 0)
	defer d.Close()

	if d.timeout != 10*time.Second {
		t.Errorf("expected 10s default timeout, got %v", d.timeout)
	}
}

func TestSearch_MergesResult(t *testing.T) {
	orders, d, searcher, _ := newDiscoveryFixture(t, time.Second)

	p, err := d.Search("gloves", SearchCriteria{})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	searcher.waitStarted(1)
	if !d.Loading("gloves") {
		t.Error("expected gloves to be loading")
	}

	searcher.release(1, gatedReply{offers: []domain.VendorOffer{
		offer("gloves-acme", "Acme", "7", false),
		offer("gloves-bulk", "BulkMed", "7.5", false),
	}})

	r := waitResult(t, p)
	if r.Outcome != OutcomeMerged || r.Added != 2 {
		t.Errorf("expected merged 2, got %+v", r)
	}
	if d.Loading("gloves") {
		t.Error("expected loading cleared")
	}

	line, _ := orders.Line("gloves")
	if len(line.Offers) != 3 {
		t.Errorf("expected 3 offers, got %d", len(line.Offers))
	}
	// Merged offers arrive unselected
	if line.ResolvedVendorID != "gloves-medline" {
		t.Errorf("expected incumbent still resolved, got %s", line.ResolvedVendorID)
	}
}

func TestSearch_DefaultQueryIsItemName(t *testing.T) {
	_, d, searcher, _ := newDiscoveryFixture(t, time.Second)

	d.Search("gloves", SearchCriteria{Query: "   "})
	searcher.waitStarted(1)

	searcher.mu.Lock()
	q := searcher.queries[0]
	searcher.mu.Unlock()
	if q != "Nitrile Gloves" {
		t.Errorf("expected item name query, got %q", q)
	}
}

func TestSearch_LastRequestWins(t *testing.T) {
	orders, d, searcher, _ := newDiscoveryFixture(t, time.Second)

	p1, _ := d.Search("gloves", SearchCriteria{Query: "gloves"})
	searcher.waitStarted(1)
	p2, _ := d.Search("gloves", SearchCriteria{Query: "nitrile gloves"})
	searcher.waitStarted(1)

	if p1.Seq >= p2.Seq {
		t.Fatalf("expected increasing sequence, got %d then %d", p1.Seq, p2.Seq)
	}

	// #1 arrives after being superseded
	searcher.release(1, gatedReply{offers: []domain.VendorOffer{offer("stale", "Stale Co", "1", false)}})
	r1 := waitResult(t, p1)
	if r1.Outcome != OutcomeDiscarded {
		t.Errorf("expected #1 discarded, got %s", r1.Outcome)
	}

	searcher.release(2, gatedReply{offers: []domain.VendorOffer{offer("fresh", "Fresh Co", "6", false)}})
	r2 := waitResult(t, p2)
	if r2.Outcome != OutcomeMerged {
		t.Errorf("expected #2 merged, got %s", r2.Outcome)
	}

	line, _ := orders.Line("gloves")
	for _, o := range line.Offers {
		if o.ID == "stale" {
			t.Error("stale offer was merged")
		}
	}
	if line.BestOfferID != "fresh" {
		t.Errorf("expected fresh to be best, got %s", line.BestOfferID)
	}
}

func TestSearch_RemoveWhilePending(t *testing.T) {
	orders, d, searcher, _ := newDiscoveryFixture(t, time.Second)

	p, _ := d.Search("gloves", SearchCriteria{})
	searcher.waitStarted(1)

	if err := orders.RemoveItem("gloves"); err != nil {
		t.Fatalf("RemoveItem failed: %v", err)
	}

	r := waitResult(t, p)
	if r.Outcome != OutcomeDiscarded {
		t.Errorf("expected discarded, got %s", r.Outcome)
	}
	if orders.Contains("gloves") || orders.Summary().ItemCount != 0 {
		t.Error("removed item was resurrected")
	}
	if d.Loading("gloves") {
		t.Error("expected loading cleared")
	}
}

func TestSearch_StartedDuringRemoveNotMergedIntoReaddedItem(t *testing.T) {
	orders, d, searcher, _ := newDiscoveryFixture(t, time.Second)

	// Runs after the discovery hook, before the line is dropped
	var late *PendingSearch
	orders.OnRemove(func(itemID string) {
		if late == nil {
			late, _ = d.Search(itemID, SearchCriteria{})
		}
	})

	if err := orders.RemoveItem("gloves"); err != nil {
		t.Fatalf("RemoveItem failed: %v", err)
	}
	if late == nil {
		t.Fatal("expected search started during remove")
	}
	if _, err := orders.AddItem(context.Background(), "gloves"); err != nil {
		t.Fatalf("AddItem failed: %v", err)
	}

	searcher.waitStarted(1)
	searcher.release(1, gatedReply{offers: []domain.VendorOffer{offer("gloves-late", "Late Co", "1", false)}})
	r := waitResult(t, late)
	if r.Outcome == OutcomeMerged {
		t.Fatalf("search for the removed line merged into the re-added one: %+v", r)
	}

	line, _ := orders.Line("gloves")
	for _, o := range line.Offers {
		if o.ID == "gloves-late" {
			t.Error("late offer was merged")
		}
	}
}

func TestSearch_SkipsInvalidOffers(t *testing.T) {
	orders, d, searcher, _ := newDiscoveryFixture(t, time.Second)
	before := orders.Total()

	p, _ := d.Search("gloves", SearchCriteria{})
	searcher.waitStarted(1)
	searcher.release(1, gatedReply{offers: []domain.VendorOffer{
		offer("", "", "-5", false),
		offer("gloves-neg", "Negative Co", "-1", false),
		offer("gloves-acme", "Acme", "7", false),
	}})

	r := waitResult(t, p)
	if r.Outcome != OutcomeMerged || r.Added != 1 {
		t.Fatalf("expected only the valid offer merged, got %+v", r)
	}
	line, _ := orders.Line("gloves")
	if len(line.Offers) != 2 {
		t.Errorf("expected 2 offers, got %d", len(line.Offers))
	}
	if line.BestOfferID != "gloves-acme" {
		t.Errorf("expected gloves-acme best, got %s", line.BestOfferID)
	}
	if !orders.Total().Equal(before) {
		t.Errorf("expected total unchanged at %s, got %s", before, orders.Total())
	}
}

func TestSearch_PreservesSelections(t *testing.T) {
	orders, d, searcher, _ := newDiscoveryFixture(t, time.Second)

	orders.MergeOffers("gloves", []domain.VendorOffer{offer("gloves-alt", "Cardinal", "8", false)})
	orders.ToggleVendor("gloves", "gloves-alt")
	before, _ := orders.Line("gloves")

	p, _ := d.Search("gloves", SearchCriteria{})
	searcher.waitStarted(1)
	searcher.release(1, gatedReply{offers: []domain.VendorOffer{
		offer("dup-id", "Cardinal", "5", false),
		offer("gloves-cheap", "Cheap", "5", false),
	}})
	r := waitResult(t, p)

	// Same vendor and product as gloves-alt is skipped
	if r.Added != 1 {
		t.Errorf("expected 1 added, got %d", r.Added)
	}
	after, _ := orders.Line("gloves")
	if after.ResolvedVendorID != before.ResolvedVendorID || !after.LineTotal.Equal(before.LineTotal) {
		t.Errorf("merge changed selection: before %+v after %+v", before, after)
	}
}

func TestSearch_TimeoutFails(t *testing.T) {
	notifier := &mockNotifier{}
	orders := newTestOrderService(notifier)
	orders.AddItem(context.Background(), "gloves")

	searcher := &stubbornSearcher{block: make(chan struct{})}
	defer close(searcher.block)
	d := NewDiscoveryService(orders, searcher, notifier, 20*time.Millisecond)
	defer d.Close()

	p, _ := d.Search("gloves", SearchCriteria{})
	r := waitResult(t, p)

	if r.Outcome != OutcomeFailed {
		t.Fatalf("expected failed, got %s", r.Outcome)
	}
	if !errors.Is(r.Err, domain.ErrSearchFailed) || !errors.Is(r.Err, context.DeadlineExceeded) {
		t.Errorf("expected search failed by deadline, got: %v", r.Err)
	}

	_, err := p.Wait(context.Background())
	if !errors.Is(err, domain.ErrSearchFailed) {
		t.Errorf("expected Wait to report failure, got: %v", err)
	}

	codes := notifier.codes()
	if len(codes) == 0 || codes[len(codes)-1] != "SEARCH_FAILED" {
		t.Errorf("expected SEARCH_FAILED notification, got %v", codes)
	}
	line, _ := orders.Line("gloves")
	if len(line.Offers) != 1 {
		t.Errorf("expected offers untouched, got %d", len(line.Offers))
	}
}

func TestSearch_SearcherError(t *testing.T) {
	_, d, searcher, _ := newDiscoveryFixture(t, time.Second)

	p, _ := d.Search("gloves", SearchCriteria{})
	searcher.waitStarted(1)
	searcher.release(1, gatedReply{err: errors.New("vendor api down")})

	r := waitResult(t, p)
	if r.Outcome != OutcomeFailed || !domain.IsTransient(r.Err) {
		t.Errorf("expected transient failure, got %+v", r)
	}
}

func TestSearch_UnknownItem(t *testing.T) {
	_, d, _, notifier := newDiscoveryFixture(t, time.Second)

	_, err := d.Search("masks", SearchCriteria{})
	if !errors.Is(err, domain.ErrItemNotFound) {
		t.Errorf("expected ErrItemNotFound, got: %v", err)
	}
	codes := notifier.codes()
	if len(codes) == 0 || codes[len(codes)-1] != "ITEM_NOT_FOUND" {
		t.Errorf("expected ITEM_NOT_FOUND notification, got %v", codes)
	}
}

func TestCancel(t *testing.T) {
	_, d, searcher, _ := newDiscoveryFixture(t, time.Second)

	if d.Cancel("gloves") {
		t.Error("expected nothing to cancel")
	}

	p, _ := d.Search("gloves", SearchCriteria{})
	searcher.waitStarted(1)
	if got := d.LoadingItems(); len(got) != 1 || got[0] != "gloves" {
		t.Errorf("expected [gloves] loading, got %v", got)
	}

	if !d.Cancel("gloves") {
		t.Fatal("expected cancel to find the search")
	}
	r := waitResult(t, p)
	if r.Outcome != OutcomeCancelled {
		t.Errorf("expected cancelled, got %s", r.Outcome)
	}
	if len(d.LoadingItems()) != 0 {
		t.Error("expected nothing loading")
	}
}

func TestClose_CancelsInFlight(t *testing.T) {
	notifier := &mockNotifier{}
	orders := newTestOrderService(notifier)
	orders.AddItem(context.Background(), "gloves")
	searcher := newGatedSearcher()
	d := NewDiscoveryService(orders, searcher, notifier, time.Second)

	p, _ := d.Search("gloves", SearchCriteria{})
	searcher.waitStarted(1)
	d.Close()

	r, ok := p.Result()
	if !ok || r.Outcome != OutcomeCancelled {
		t.Errorf("expected cancelled after close, got %+v (settled=%v)", r, ok)
	}
	if _, err := d.Search("gloves", SearchCriteria{}); err == nil {
		t.Error("expected search after close to fail")
	}
	for _, c := range notifier.codes() {
		if c == "SEARCH_FAILED" {
			t.Error("close reported a search failure")
		}
	}
}
