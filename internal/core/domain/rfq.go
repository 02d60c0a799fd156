package domain

import (
	"fmt"
	"time"
)

type RFQStatus string

const (
	RFQStatusDraft      RFQStatus = "draft"
	RFQStatusReady      RFQStatus = "ready"
	RFQStatusDispatched RFQStatus = "dispatched"
)

type RFQVendor struct {
	VendorID string
	Vendor   VendorOffer
}

type RFQItem struct {
	ItemID   string
	Item     CatalogItem
	Quantity int
	Vendors  []RFQVendor
}

type DispatchReceipt struct {
	RFQID        string
	Reference    string
	DispatchedAt time.Time
}

// RFQDocument groups the selected vendors of each order item.
//
// Lifecycle: Draft -> Ready (every item has at least one vendor) ->
// Dispatched (terminal). A Ready document whose items are rebuilt goes back
// to Draft.
type RFQDocument struct {
	ID        string
	CreatedAt time.Time
	Status    RFQStatus
	Items     []RFQItem
	Receipt   *DispatchReceipt
}

// BuildRFQItems collects the currently selected offers of every line in the
// order's insertion order.
func BuildRFQItems(order *Order) []RFQItem {
	items := make([]RFQItem, 0, order.Len())
	for _, line := range order.Items() {
		ri := RFQItem{
			ItemID:   line.ID,
			Item:     line.Item,
			Quantity: line.Quantity(),
		}
		for _, o := range line.Offers().Selected() {
			ri.Vendors = append(ri.Vendors, RFQVendor{VendorID: o.ID, Vendor: o})
		}
		items = append(items, ri)
	}
	return items
}

func NewRFQDraft(id string, createdAt time.Time, items []RFQItem) *RFQDocument {
	return &RFQDocument{
		ID:        id,
		CreatedAt: createdAt,
		Status:    RFQStatusDraft,
		Items:     items,
	}
}

// MissingSelections lists items with no selected vendor.
func (d *RFQDocument) MissingSelections() []string {
	var out []string
	for _, it := range d.Items {
		if len(it.Vendors) == 0 {
			out = append(out, it.ItemID)
		}
	}
	return out
}

func (d *RFQDocument) VendorCount() int {
	seen := make(map[string]struct{})
	for _, it := range d.Items {
		for _, v := range it.Vendors {
			seen[v.Vendor.VendorName] = struct{}{}
		}
	}
	return len(seen)
}

// Validate promotes a complete Draft to Ready. It fails when the document is
// empty or any item lacks a vendor; a Ready document stays Ready.
func (d *RFQDocument) Validate() error {
	if d.Status == RFQStatusDispatched {
		return fmt.Errorf("%w: %s", ErrAlreadyDispatched, d.ID)
	}
	if len(d.Items) == 0 {
		return ErrEmptyOrder
	}
	if missing := d.MissingSelections(); len(missing) > 0 {
		return fmt.Errorf("%w: no vendor selected for %v", ErrIncompleteSelection, missing)
	}
	d.Status = RFQStatusReady
	return nil
}

// ReplaceItems swaps in freshly assembled items and returns the document to
// Draft.
func (d *RFQDocument) ReplaceItems(items []RFQItem) error {
	if d.Status == RFQStatusDispatched {
		return fmt.Errorf("%w: %s", ErrAlreadyDispatched, d.ID)
	}
	d.Items = items
	d.Status = RFQStatusDraft
	return nil
}

// MarkDispatched commits the one-way transition from Ready.
func (d *RFQDocument) MarkDispatched(receipt DispatchReceipt) error {
	switch d.Status {
	case RFQStatusDispatched:
		return fmt.Errorf("%w: %s", ErrAlreadyDispatched, d.ID)
	case RFQStatusReady:
	default:
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, d.Status, RFQStatusDispatched)
	}
	d.Status = RFQStatusDispatched
	d.Receipt = &receipt
	return nil
}
