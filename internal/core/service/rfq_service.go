package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rl1809/procurement/internal/core/domain"
	"github.com/rl1809/procurement/internal/port"
)

var (
	ErrRFQNotFound        = errors.New("rfq not found")
	ErrDispatchInProgress = errors.New("rfq dispatch already in progress")
)

const (
	dispatchKeyPrefix      = "rfq:dispatch:"
	DefaultDispatchTimeout = 10 * time.Second
)

// RFQService assembles RFQ documents from the live order and moves them
// through Draft -> Ready -> Dispatched.
type RFQService struct {
	orders   *OrderService
	sink     port.RFQSink
	cache    port.CacheRepository
	notifier port.Notifier
	timeout  time.Duration
	now      func() time.Time
	newID    func() string

	mu          sync.Mutex
	docs        map[string]*domain.RFQDocument
	ids         []string
	dispatching map[string]bool
}

// NewRFQService builds the assembler. cache may be nil, in which case dispatch
// is only guarded within this process.
func NewRFQService(orders *OrderService, sink port.RFQSink, cache port.CacheRepository, notifier port.Notifier, timeout time.Duration) *RFQService {
	if timeout <= 0 {
		timeout = DefaultDispatchTimeout
	}
	return &RFQService{
		orders:      orders,
		sink:        sink,
		cache:       cache,
		notifier:    notifier,
		timeout:     timeout,
		now:         time.Now,
		newID:       uuid.NewString,
		docs:        make(map[string]*domain.RFQDocument),
		dispatching: make(map[string]bool),
	}
}

// Draft creates an editable document from the current selections. It never
// fails; incomplete items simply carry no vendors.
func (s *RFQService) Draft() domain.RFQDocument {
	items := domain.BuildRFQItems(s.orders.Snapshot())
	doc := domain.NewRFQDraft(s.newID(), s.now().UTC(), items)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.store(doc)
	return copyDoc(doc)
}

// Assemble builds a document from the current selections and validates it.
// It fails with domain.ErrIncompleteSelection when any item has no selected
// vendor, and stores nothing in that case.
func (s *RFQService) Assemble() (domain.RFQDocument, error) {
	items := domain.BuildRFQItems(s.orders.Snapshot())
	doc := domain.NewRFQDraft(s.newID(), s.now().UTC(), items)
	if err := doc.Validate(); err != nil {
		s.report(err)
		return domain.RFQDocument{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.store(doc)
	return copyDoc(doc), nil
}

// Refresh rebuilds a stored document from the live order and puts it back in
// Draft.
func (s *RFQService) Refresh(id string) (domain.RFQDocument, error) {
	items := domain.BuildRFQItems(s.orders.Snapshot())

	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.getLocked(id)
	if err != nil {
		return domain.RFQDocument{}, err
	}
	if s.dispatching[id] {
		return domain.RFQDocument{}, fmt.Errorf("%w: %s", ErrDispatchInProgress, id)
	}
	if err := doc.ReplaceItems(items); err != nil {
		return domain.RFQDocument{}, err
	}
	return copyDoc(doc), nil
}

// Validate re-reads the live order into a stored document and promotes it to
// Ready when every item has a vendor.
func (s *RFQService) Validate(id string) (domain.RFQDocument, error) {
	live := domain.BuildRFQItems(s.orders.Snapshot())

	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.getLocked(id)
	if err != nil {
		return domain.RFQDocument{}, err
	}
	if s.dispatching[id] {
		return domain.RFQDocument{}, fmt.Errorf("%w: %s", ErrDispatchInProgress, id)
	}
	if err := validateLive(doc, live); err != nil {
		s.report(err)
		return copyDoc(doc), err
	}
	return copyDoc(doc), nil
}

func (s *RFQService) Get(id string) (domain.RFQDocument, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.getLocked(id)
	if err != nil {
		return domain.RFQDocument{}, err
	}
	return copyDoc(doc), nil
}

// List returns stored documents in creation order.
func (s *RFQService) List() []domain.RFQDocument {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.RFQDocument, 0, len(s.ids))
	for _, id := range s.ids {
		out = append(out, copyDoc(s.docs[id]))
	}
	return out
}

// Dispatch validates the document against the live order and hands it to the
// sink. The transition to Dispatched commits only after the sink succeeds; on
// failure the document stays Ready and the call may be retried.
func (s *RFQService) Dispatch(ctx context.Context, id string) (domain.DispatchReceipt, error) {
	live := domain.BuildRFQItems(s.orders.Snapshot())

	s.mu.Lock()
	doc, err := s.getLocked(id)
	if err != nil {
		s.mu.Unlock()
		return domain.DispatchReceipt{}, err
	}
	if doc.Status == domain.RFQStatusDispatched {
		s.mu.Unlock()
		return domain.DispatchReceipt{}, fmt.Errorf("%w: %s", domain.ErrAlreadyDispatched, id)
	}
	if s.dispatching[id] {
		s.mu.Unlock()
		return domain.DispatchReceipt{}, fmt.Errorf("%w: %s", ErrDispatchInProgress, id)
	}
	if err := validateLive(doc, live); err != nil {
		s.mu.Unlock()
		s.report(err)
		return domain.DispatchReceipt{}, err
	}
	s.dispatching[id] = true
	outgoing := copyDoc(doc)
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.dispatching, id)
		s.mu.Unlock()
	}()

	token := s.newID()
	key := dispatchKeyPrefix + id
	if s.cache != nil {
		ok, err := s.cache.SetIdempotency(ctx, key, token)
		if err != nil {
			err = fmt.Errorf("%w: idempotency check: %w", domain.ErrDispatchFailed, err)
			s.report(err)
			return domain.DispatchReceipt{}, err
		}
		if !ok {
			return domain.DispatchReceipt{}, fmt.Errorf("%w: %s", ErrDispatchInProgress, id)
		}
	}

	sinkCtx, cancel := context.WithTimeout(ctx, s.timeout)
	receipt, err := s.sink.Dispatch(sinkCtx, outgoing)
	cancel()
	if err != nil {
		if s.cache != nil {
			// Rollback: release the claim so the caller can retry
			if rollbackErr := s.cache.ReleaseIdempotency(context.WithoutCancel(ctx), key, token); rollbackErr != nil {
				log.Printf("rfq %s: release dispatch claim failed: %v", id, rollbackErr)
			}
		}
		err = fmt.Errorf("%w: %s: %w", domain.ErrDispatchFailed, id, err)
		s.report(err)
		return domain.DispatchReceipt{}, err
	}

	if receipt.RFQID == "" {
		receipt.RFQID = id
	}
	if receipt.DispatchedAt.IsZero() {
		receipt.DispatchedAt = s.now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := doc.MarkDispatched(receipt); err != nil {
		return domain.DispatchReceipt{}, err
	}
	log.Printf("rfq %s: dispatched %d items to %d vendors (ref %s)", id, len(doc.Items), doc.VendorCount(), receipt.Reference)
	return receipt, nil
}

// validateLive replaces the document's items with the live selections before
// validating, so a vendor deselected after assembly is never sent.
func validateLive(doc *domain.RFQDocument, live []domain.RFQItem) error {
	if err := doc.ReplaceItems(live); err != nil {
		return err
	}
	return doc.Validate()
}

func (s *RFQService) store(doc *domain.RFQDocument) {
	s.docs[doc.ID] = doc
	s.ids = append(s.ids, doc.ID)
}

func (s *RFQService) getLocked(id string) (*domain.RFQDocument, error) {
	doc, ok := s.docs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRFQNotFound, id)
	}
	return doc, nil
}

func (s *RFQService) report(err error) {
	if s.notifier == nil {
		return
	}
	s.notifier.Notify(domain.NotificationFor("", err, s.now()))
}

func copyDoc(doc *domain.RFQDocument) domain.RFQDocument {
	out := *doc
	out.Items = make([]domain.RFQItem, len(doc.Items))
	for i, it := range doc.Items {
		it.Vendors = append([]domain.RFQVendor(nil), it.Vendors...)
		out.Items[i] = it
	}
	if doc.Receipt != nil {
		r := *doc.Receipt
		out.Receipt = &r
	}
	return out
}
