package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// VendorOfferSet holds every known offer for one item, in discovery order,
// together with their selection state.
type VendorOfferSet struct {
	offers []VendorOffer
	byID   map[string]int
	byKey  map[string]int

	// selectedAt records the toggle sequence at which an offer was last
	// selected, so the most recent selection can be found.
	selectedAt map[string]uint64
	seq        uint64
}

// NewVendorOfferSet builds a set from catalog offers. At most one offer may be
// the incumbent; offers flagged IsSelected start selected.
func NewVendorOfferSet(offers []VendorOffer) (*VendorOfferSet, error) {
	s := &VendorOfferSet{
		offers:     make([]VendorOffer, 0, len(offers)),
		byID:       make(map[string]int, len(offers)),
		byKey:      make(map[string]int, len(offers)),
		selectedAt: make(map[string]uint64),
	}

	incumbents := 0
	for _, o := range offers {
		if _, dup := s.byID[o.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate offer id %s", ErrInvalidVendorOffer, o.ID)
		}
		if o.IsCurrentVendor {
			incumbents++
		}
		s.add(o)
		if o.IsSelected {
			s.seq++
			s.selectedAt[o.ID] = s.seq
		}
	}
	if incumbents > 1 {
		return nil, fmt.Errorf("%w: %d current vendors in one offer set", ErrInvalidVendorOffer, incumbents)
	}

	return s, nil
}

func (s *VendorOfferSet) add(o VendorOffer) {
	s.byID[o.ID] = len(s.offers)
	if _, exists := s.byKey[o.matchKey()]; !exists {
		s.byKey[o.matchKey()] = len(s.offers)
	}
	s.offers = append(s.offers, o)
}

func (s *VendorOfferSet) Len() int {
	return len(s.offers)
}

// Offers returns a copy of the offers in list order.
func (s *VendorOfferSet) Offers() []VendorOffer {
	out := make([]VendorOffer, len(s.offers))
	copy(out, s.offers)
	return out
}

func (s *VendorOfferSet) Offer(vendorID string) (VendorOffer, bool) {
	i, ok := s.byID[vendorID]
	if !ok {
		return VendorOffer{}, false
	}
	return s.offers[i], true
}

// Current returns the incumbent offer, if the set has one.
func (s *VendorOfferSet) Current() (VendorOffer, bool) {
	for _, o := range s.offers {
		if o.IsCurrentVendor {
			return o, true
		}
	}
	return VendorOffer{}, false
}

// Selected returns the selected offers in list order.
func (s *VendorOfferSet) Selected() []VendorOffer {
	var out []VendorOffer
	for _, o := range s.offers {
		if o.IsSelected {
			out = append(out, o)
		}
	}
	return out
}

func (s *VendorOfferSet) HasSelection() bool {
	return len(s.selectedAt) > 0
}

// ToggleSelection flips the selection flag of vendorID and returns its new
// value. The incumbent may be toggled like any other offer.
func (s *VendorOfferSet) ToggleSelection(vendorID string) (bool, error) {
	i, ok := s.byID[vendorID]
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrUnknownVendor, vendorID)
	}

	o := &s.offers[i]
	o.IsSelected = !o.IsSelected
	if o.IsSelected {
		s.seq++
		s.selectedAt[vendorID] = s.seq
	} else {
		delete(s.selectedAt, vendorID)
	}
	return o.IsSelected, nil
}

// Merge adds valid offers whose id and (vendor, product) pair are both new to
// the set and returns how many were added. Invalid offers are skipped.
// Existing offers, including their selection state, are left untouched.
// Merged offers are never incumbents and arrive unselected.
func (s *VendorOfferSet) Merge(newOffers []VendorOffer) int {
	added := 0
	for _, o := range newOffers {
		if o.Validate() != nil {
			continue
		}
		if _, exists := s.byID[o.ID]; exists {
			continue
		}
		if _, exists := s.byKey[o.matchKey()]; exists {
			continue
		}
		o.IsCurrentVendor = false
		o.IsSelected = false
		s.add(o)
		added++
	}
	return added
}

// BestPrice returns the cheapest offer; ties go to the first in list order.
func (s *VendorOfferSet) BestPrice() (VendorOffer, bool) {
	if len(s.offers) == 0 {
		return VendorOffer{}, false
	}
	best := s.offers[0]
	for _, o := range s.offers[1:] {
		if o.PricePerUnit.LessThan(best.PricePerUnit) {
			best = o
		}
	}
	return best, true
}

func (s *VendorOfferSet) maxPrice() decimal.Decimal {
	max := decimal.Zero
	for i, o := range s.offers {
		if i == 0 || o.PricePerUnit.GreaterThan(max) {
			max = o.PricePerUnit
		}
	}
	return max
}

// SavingsFor is the per-unit saving of vendorID against the most expensive
// offer in the set. The value is signed; hiding non-positive savings is up
// to the caller.
func (s *VendorOfferSet) SavingsFor(vendorID string) (decimal.Decimal, error) {
	o, ok := s.Offer(vendorID)
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %s", ErrUnknownVendor, vendorID)
	}
	return s.maxPrice().Sub(o.PricePerUnit), nil
}

// Resolved returns the offer that prices the line: the most recently selected
// alternate if any alternate is selected, else the incumbent if selected.
func (s *VendorOfferSet) Resolved() (VendorOffer, error) {
	var (
		latest    VendorOffer
		latestSeq uint64
		found     bool
	)
	for _, o := range s.offers {
		if !o.IsSelected || o.IsCurrentVendor {
			continue
		}
		if seq := s.selectedAt[o.ID]; !found || seq > latestSeq {
			latest, latestSeq, found = o, seq, true
		}
	}
	if found {
		return latest, nil
	}

	if cur, ok := s.Current(); ok && cur.IsSelected {
		return cur, nil
	}
	return VendorOffer{}, ErrNoVendorSelected
}

func (s *VendorOfferSet) clone() *VendorOfferSet {
	c := &VendorOfferSet{
		offers:     s.Offers(),
		byID:       make(map[string]int, len(s.byID)),
		byKey:      make(map[string]int, len(s.byKey)),
		selectedAt: make(map[string]uint64, len(s.selectedAt)),
		seq:        s.seq,
	}
	for k, v := range s.byID {
		c.byID[k] = v
	}
	for k, v := range s.byKey {
		c.byKey[k] = v
	}
	for k, v := range s.selectedAt {
		c.selectedAt[k] = v
	}
	return c
}
