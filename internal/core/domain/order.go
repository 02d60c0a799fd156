package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Order is the mutable cart: line items in insertion order plus an externally
// allocated budget. Every mutator validates fully before changing anything.
// Order is not safe for concurrent mutation; OrderService serializes access.
type Order struct {
	items     []*OrderLineItem
	index     map[string]int
	budget    decimal.Decimal
	selection *SelectionLog
	now       func() time.Time
	newID     func() string
}

type OrderOption func(*Order)

func WithClock(now func() time.Time) OrderOption {
	return func(o *Order) { o.now = now }
}

func WithSelectionLog(log *SelectionLog) OrderOption {
	return func(o *Order) { o.selection = log }
}

func WithIDGenerator(newID func() string) OrderOption {
	return func(o *Order) { o.newID = newID }
}

func NewOrder(allocatedBudget decimal.Decimal, opts ...OrderOption) *Order {
	o := &Order{
		index:     make(map[string]int),
		budget:    allocatedBudget,
		selection: NewSelectionLog(),
		now:       time.Now,
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func (o *Order) AllocatedBudget() decimal.Decimal {
	return o.budget
}

func (o *Order) SetAllocatedBudget(budget decimal.Decimal) {
	o.budget = budget
}

func (o *Order) SelectionLog() *SelectionLog {
	return o.selection
}

func (o *Order) Len() int {
	return len(o.items)
}

// Items returns the line items in insertion order.
func (o *Order) Items() []*OrderLineItem {
	out := make([]*OrderLineItem, len(o.items))
	copy(out, o.items)
	return out
}

func (o *Order) Item(itemID string) (*OrderLineItem, bool) {
	i, ok := o.index[itemID]
	if !ok {
		return nil, false
	}
	return o.items[i], true
}

func (o *Order) Contains(itemID string) bool {
	_, ok := o.index[itemID]
	return ok
}

func (o *Order) mustItem(itemID string) (*OrderLineItem, error) {
	line, ok := o.Item(itemID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrItemNotFound, itemID)
	}
	return line, nil
}

// AddItem appends a line at quantity 1 with the incumbent vendor selected.
func (o *Order) AddItem(item CatalogItem) (*OrderLineItem, error) {
	if o.Contains(item.ID) {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateItem, item.ID)
	}
	line, err := newOrderLineItem(item)
	if err != nil {
		return nil, err
	}
	o.index[line.ID] = len(o.items)
	o.items = append(o.items, line)
	return line, nil
}

func (o *Order) RemoveItem(itemID string) error {
	i, ok := o.index[itemID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrItemNotFound, itemID)
	}
	o.items = append(o.items[:i], o.items[i+1:]...)
	delete(o.index, itemID)
	for j := i; j < len(o.items); j++ {
		o.index[o.items[j].ID] = j
	}
	return nil
}

func (o *Order) SetQuantity(itemID string, n int) error {
	line, err := o.mustItem(itemID)
	if err != nil {
		return err
	}
	return line.SetQuantity(n)
}

// ToggleVendor flips one offer's selection and records the event.
func (o *Order) ToggleVendor(itemID, vendorID string) (VendorSelectionEvent, error) {
	line, err := o.mustItem(itemID)
	if err != nil {
		return VendorSelectionEvent{}, err
	}
	selected, err := line.offers.ToggleSelection(vendorID)
	if err != nil {
		return VendorSelectionEvent{}, fmt.Errorf("item %s: %w", itemID, err)
	}

	vendor, _ := line.offers.Offer(vendorID)
	action := ActionDeselect
	if selected {
		action = ActionSelect
	}
	evt := VendorSelectionEvent{
		ID:        o.newID(),
		ItemID:    itemID,
		VendorID:  vendorID,
		Vendor:    vendor,
		Action:    action,
		Timestamp: o.now(),
	}
	o.selection.Append(evt)
	return evt, nil
}

// MergeOffers merges discovered offers into an item's offer set.
func (o *Order) MergeOffers(itemID string, offers []VendorOffer) (int, error) {
	line, err := o.mustItem(itemID)
	if err != nil {
		return 0, err
	}
	return line.offers.Merge(offers), nil
}

// Total sums the line totals. Lines with no selected vendor add nothing.
func (o *Order) Total() decimal.Decimal {
	total := decimal.Zero
	for _, line := range o.items {
		lt, err := line.LineTotal()
		if err != nil {
			continue
		}
		total = total.Add(lt)
	}
	return total
}

func (o *Order) UnitCount() int {
	n := 0
	for _, line := range o.items {
		n += line.quantity
	}
	return n
}

func (o *Order) TotalSavings() decimal.Decimal {
	total := decimal.Zero
	for _, line := range o.items {
		s, err := line.Savings()
		if err != nil {
			continue
		}
		total = total.Add(s)
	}
	return total
}

// UnpricedItems lists items that currently have no vendor selected.
func (o *Order) UnpricedItems() []string {
	var out []string
	for _, line := range o.items {
		if !line.offers.HasSelection() {
			out = append(out, line.ID)
		}
	}
	return out
}

func (o *Order) BudgetUsagePercent() decimal.Decimal {
	return BudgetUsagePercent(o.Total(), o.budget)
}

func (o *Order) BudgetStatus() BudgetStatus {
	return ClassifyBudget(o.BudgetUsagePercent())
}

type LineSummary struct {
	ItemID            string
	Name              string
	SKU               string
	Quantity          int
	Offers            []VendorOffer
	ResolvedVendorID  string
	ResolvedUnitPrice decimal.Decimal
	LineTotal         decimal.Decimal
	Savings           decimal.Decimal
	BestOfferID       string
	Priced            bool
}

type OrderSummary struct {
	Lines           []LineSummary
	ItemCount       int
	UnitCount       int
	Total           decimal.Decimal
	TotalSavings    decimal.Decimal
	AllocatedBudget decimal.Decimal
	RemainingBudget decimal.Decimal
	BudgetUsage     decimal.Decimal
	BudgetStatus    BudgetStatus
	UnpricedItems   []string
}

// Summary computes every aggregate from the current state in one pass.
func (o *Order) Summary() OrderSummary {
	total := o.Total()
	usage := BudgetUsagePercent(total, o.budget)

	lines := make([]LineSummary, 0, len(o.items))
	for _, line := range o.items {
		ls := LineSummary{
			ItemID:   line.ID,
			Name:     line.Item.Name,
			SKU:      line.Item.SKU,
			Quantity: line.quantity,
			Offers:   line.offers.Offers(),
		}
		if best, ok := line.offers.BestPrice(); ok {
			ls.BestOfferID = best.ID
		}
		if resolved, err := line.ResolvedOffer(); err == nil {
			ls.Priced = true
			ls.ResolvedVendorID = resolved.ID
			ls.ResolvedUnitPrice = resolved.PricePerUnit
			ls.LineTotal, _ = line.LineTotal()
			ls.Savings, _ = line.Savings()
		}
		lines = append(lines, ls)
	}

	return OrderSummary{
		Lines:           lines,
		ItemCount:       len(o.items),
		UnitCount:       o.UnitCount(),
		Total:           total,
		TotalSavings:    o.TotalSavings(),
		AllocatedBudget: o.budget,
		RemainingBudget: o.budget.Sub(total),
		BudgetUsage:     usage,
		BudgetStatus:    ClassifyBudget(usage),
		UnpricedItems:   o.UnpricedItems(),
	}
}

// Clone returns a deep copy sharing only the selection log.
func (o *Order) Clone() *Order {
	c := &Order{
		items:     make([]*OrderLineItem, len(o.items)),
		index:     make(map[string]int, len(o.index)),
		budget:    o.budget,
		selection: o.selection,
		now:       o.now,
		newID:     o.newID,
	}
	for i, line := range o.items {
		c.items[i] = line.clone()
		c.index[line.ID] = i
	}
	return c
}
