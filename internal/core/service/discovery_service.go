package service

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rl1809/procurement/internal/core/domain"
	"github.com/rl1809/procurement/internal/port"
)

const DefaultDiscoveryTimeout = 10 * time.Second

type SearchCriteria struct {
	Query        string
	HintWebsites []string
}

type SearchOutcome string

const (
	OutcomeMerged    SearchOutcome = "merged"
	OutcomeDiscarded SearchOutcome = "discarded"
	OutcomeFailed    SearchOutcome = "failed"
	OutcomeCancelled SearchOutcome = "cancelled"
)

type SearchResult struct {
	ItemID  string
	Seq     uint64
	Outcome SearchOutcome
	Added   int
	Err     error
}

// PendingSearch is the handle of one discovery request.
type PendingSearch struct {
	ItemID string
	Seq    uint64

	gen       uint64
	cancel    context.CancelFunc
	done      chan struct{}
	result    SearchResult
	cancelled bool
}

// Done is closed once the result is known.
func (p *PendingSearch) Done() <-chan struct{} {
	return p.done
}

// Result returns the outcome without blocking; ok is false while pending.
func (p *PendingSearch) Result() (SearchResult, bool) {
	select {
	case <-p.done:
		return p.result, true
	default:
		return SearchResult{}, false
	}
}

// Wait blocks until the search settles or ctx ends. A failed search is
// reported through the returned error as well as the result.
func (p *PendingSearch) Wait(ctx context.Context) (SearchResult, error) {
	select {
	case <-p.done:
		return p.result, p.result.Err
	case <-ctx.Done():
		return SearchResult{}, ctx.Err()
	}
}

type searchResponse struct {
	offers []domain.VendorOffer
	err    error
}

// DiscoveryService runs alternative vendor searches in the background and
// merges their results into the order. Each item has at most one live search;
// a newer request, a removal or a cancel makes the older result stale, and
// stale results are dropped on arrival.
type DiscoveryService struct {
	mu       sync.Mutex
	orders   *OrderService
	searcher port.VendorSearcher
	notifier port.Notifier
	timeout  time.Duration

	seq      uint64
	inflight map[string]*PendingSearch

	base   context.Context
	stop   context.CancelFunc
	wg     sync.WaitGroup
	closed bool
}

func NewDiscoveryService(orders *OrderService, searcher port.VendorSearcher, notifier port.Notifier, timeout time.Duration) *DiscoveryService {
	if timeout <= 0 {
		timeout = DefaultDiscoveryTimeout
	}
	base, stop := context.WithCancel(context.Background())
	d := &DiscoveryService{
		orders:   orders,
		searcher: searcher,
		notifier: notifier,
		timeout:  timeout,
		inflight: make(map[string]*PendingSearch),
		base:     base,
		stop:     stop,
	}
	orders.OnRemove(d.invalidate)
	return d
}

// Search starts a discovery for itemID and returns immediately. An empty
// query searches for the item's catalog name.
func (d *DiscoveryService) Search(itemID string, criteria SearchCriteria) (*PendingSearch, error) {
	item, gen, ok := d.orders.catalogLine(itemID)
	if !ok {
		err := fmt.Errorf("%w: %s", domain.ErrItemNotFound, itemID)
		d.report(itemID, err)
		return nil, err
	}

	query := strings.TrimSpace(criteria.Query)
	if query == "" {
		query = item.Name
	}
	hints := append([]string(nil), criteria.HintWebsites...)

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil, fmt.Errorf("%w: discovery service closed", domain.ErrSearchFailed)
	}
	if prev := d.inflight[itemID]; prev != nil {
		prev.cancel()
	}
	d.seq++
	ctx, cancel := context.WithTimeout(d.base, d.timeout)
	p := &PendingSearch{
		ItemID: itemID,
		Seq:    d.seq,
		gen:    gen,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	d.inflight[itemID] = p
	d.wg.Add(1)
	d.mu.Unlock()

	go d.run(ctx, p, query, hints)
	return p, nil
}

func (d *DiscoveryService) run(ctx context.Context, p *PendingSearch, query string, hints []string) {
	defer d.wg.Done()
	defer p.cancel()

	respCh := make(chan searchResponse, 1)
	go func() {
		offers, err := d.searcher.Search(ctx, query, hints)
		respCh <- searchResponse{offers: offers, err: err}
	}()

	var resp searchResponse
	select {
	case resp = <-respCh:
	case <-ctx.Done():
		resp.err = ctx.Err()
	}

	d.finish(p, resp)
}

func (d *DiscoveryService) finish(p *PendingSearch, resp searchResponse) {
	d.mu.Lock()
	defer d.mu.Unlock()
	defer close(p.done)

	result := SearchResult{ItemID: p.ItemID, Seq: p.Seq}
	current := d.inflight[p.ItemID] == p
	if current {
		delete(d.inflight, p.ItemID)
	}

	switch {
	case p.cancelled:
		result.Outcome = OutcomeCancelled
	case !current:
		result.Outcome = OutcomeDiscarded
	case resp.err != nil:
		result.Outcome = OutcomeFailed
		result.Err = fmt.Errorf("%w: item %s: %w", domain.ErrSearchFailed, p.ItemID, resp.err)
		d.report(p.ItemID, result.Err)
	default:
		offers := validOffers(p.ItemID, resp.offers)
		added, err := d.orders.mergeOffersAt(p.ItemID, p.gen, offers)
		if err != nil {
			// The line this search was started for is gone, even if the
			// item has since been added again.
			result.Outcome = OutcomeDiscarded
			break
		}
		result.Outcome = OutcomeMerged
		result.Added = added
		log.Printf("discovery: item %s seq %d merged %d of %d offers", p.ItemID, p.Seq, added, len(resp.offers))
	}

	p.result = result
}

// validOffers drops offers a searcher returned that would not pass
// domain.NewVendorOffer.
func validOffers(itemID string, offers []domain.VendorOffer) []domain.VendorOffer {
	out := make([]domain.VendorOffer, 0, len(offers))
	for _, o := range offers {
		if err := o.Validate(); err != nil {
			log.Printf("discovery: item %s: skipping offer: %v", itemID, err)
			continue
		}
		out = append(out, o)
	}
	return out
}

// invalidate makes the item's live search stale. Registered as an OrderService
// remove hook.
func (d *DiscoveryService) invalidate(itemID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if p := d.inflight[itemID]; p != nil {
		delete(d.inflight, itemID)
		p.cancel()
	}
}

// Cancel aborts the item's live search, if any. It reports whether one was
// running.
func (d *DiscoveryService) Cancel(itemID string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	p := d.inflight[itemID]
	if p == nil {
		return false
	}
	p.cancelled = true
	delete(d.inflight, itemID)
	p.cancel()
	return true
}

// Loading reports whether itemID has a search in flight.
func (d *DiscoveryService) Loading(itemID string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.inflight[itemID]
	return ok
}

func (d *DiscoveryService) LoadingItems() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	ids := make([]string, 0, len(d.inflight))
	for id := range d.inflight {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Close cancels every live search and waits for their goroutines.
func (d *DiscoveryService) Close() {
	d.mu.Lock()
	d.closed = true
	for id, p := range d.inflight {
		p.cancelled = true
		delete(d.inflight, id)
	}
	d.mu.Unlock()

	d.stop()
	d.wg.Wait()
}

func (d *DiscoveryService) report(itemID string, err error) {
	if d.notifier == nil {
		return
	}
	d.notifier.Notify(domain.NotificationFor(itemID, err, time.Now()))
}
