package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// OrderLineItem is one catalog item in an order with its competing offers.
type OrderLineItem struct {
	ID       string
	Item     CatalogItem
	quantity int
	offers   *VendorOfferSet
}

// newOrderLineItem starts at quantity 1 with the incumbent pre-selected.
func newOrderLineItem(item CatalogItem) (*OrderLineItem, error) {
	offers, err := NewVendorOfferSet(item.initialOffers())
	if err != nil {
		return nil, fmt.Errorf("item %s: %w", item.ID, err)
	}
	if cur, ok := offers.Current(); ok && !cur.IsSelected {
		if _, err := offers.ToggleSelection(cur.ID); err != nil {
			return nil, err
		}
	}

	return &OrderLineItem{
		ID:       item.ID,
		Item:     item,
		quantity: 1,
		offers:   offers,
	}, nil
}

func (l *OrderLineItem) Quantity() int {
	return l.quantity
}

func (l *OrderLineItem) Offers() *VendorOfferSet {
	return l.offers
}

// SetQuantity leaves vendor selection untouched.
func (l *OrderLineItem) SetQuantity(n int) error {
	if n < 1 {
		return fmt.Errorf("%w: quantity must be at least 1, got %d", ErrInvalidQuantity, n)
	}
	l.quantity = n
	return nil
}

func (l *OrderLineItem) ResolvedOffer() (VendorOffer, error) {
	o, err := l.offers.Resolved()
	if err != nil {
		return VendorOffer{}, fmt.Errorf("item %s: %w", l.ID, err)
	}
	return o, nil
}

func (l *OrderLineItem) ResolvedUnitPrice() (decimal.Decimal, error) {
	o, err := l.ResolvedOffer()
	if err != nil {
		return decimal.Zero, err
	}
	return o.PricePerUnit, nil
}

func (l *OrderLineItem) LineTotal() (decimal.Decimal, error) {
	price, err := l.ResolvedUnitPrice()
	if err != nil {
		return decimal.Zero, err
	}
	return price.Mul(decimal.NewFromInt(int64(l.quantity))), nil
}

// Savings is the line-level saving of the resolved offer against the most
// expensive known offer, times quantity.
func (l *OrderLineItem) Savings() (decimal.Decimal, error) {
	o, err := l.ResolvedOffer()
	if err != nil {
		return decimal.Zero, err
	}
	perUnit, err := l.offers.SavingsFor(o.ID)
	if err != nil {
		return decimal.Zero, err
	}
	return perUnit.Mul(decimal.NewFromInt(int64(l.quantity))), nil
}

func (l *OrderLineItem) clone() *OrderLineItem {
	return &OrderLineItem{
		ID:       l.ID,
		Item:     l.Item,
		quantity: l.quantity,
		offers:   l.offers.clone(),
	}
}
