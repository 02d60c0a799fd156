package domain

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

type ComplianceStatus string

const (
	ComplianceCompliant ComplianceStatus = "compliant"
	CompliancePending   ComplianceStatus = "pending"
	ComplianceRejected  ComplianceStatus = "non_compliant"
	ComplianceUnknown   ComplianceStatus = "unknown"
)

type VendorFeedback struct {
	Author  string
	Rating  int // 1..5
	Comment string
}

// VendorOffer is one vendor's quote for a catalog item.
type VendorOffer struct {
	ID               string
	VendorName       string
	ProductName      string
	PricePerUnit     decimal.Decimal
	DeliveryEstimate string
	ComplianceStatus ComplianceStatus
	Packaging        string
	Manufacturer     string
	Website          string
	Feedback         []VendorFeedback

	// IsCurrentVendor marks the incumbent supplier. Fixed at creation.
	IsCurrentVendor bool
	// IsSelected is owned by the offer set and only changes via toggle.
	IsSelected bool
}

type VendorOfferParams struct {
	ID               string
	VendorName       string
	ProductName      string
	PricePerUnit     decimal.Decimal
	DeliveryEstimate string
	ComplianceStatus ComplianceStatus
	Packaging        string
	Manufacturer     string
	Website          string
	Feedback         []VendorFeedback
	IsCurrentVendor  bool
}

// NewVendorOffer validates p and returns an unselected offer.
func NewVendorOffer(p VendorOfferParams) (VendorOffer, error) {
	status := p.ComplianceStatus
	if status == "" {
		status = ComplianceUnknown
	}

	o := VendorOffer{
		ID:               strings.TrimSpace(p.ID),
		VendorName:       strings.TrimSpace(p.VendorName),
		ProductName:      strings.TrimSpace(p.ProductName),
		PricePerUnit:     p.PricePerUnit,
		DeliveryEstimate: p.DeliveryEstimate,
		ComplianceStatus: status,
		Packaging:        p.Packaging,
		Manufacturer:     p.Manufacturer,
		Website:          p.Website,
		Feedback:         append([]VendorFeedback(nil), p.Feedback...),
		IsCurrentVendor:  p.IsCurrentVendor,
	}
	if err := o.Validate(); err != nil {
		return VendorOffer{}, err
	}
	return o, nil
}

// Validate checks the invariants NewVendorOffer enforces. Offers that reach
// the domain by other routes, such as discovery results, go through it before
// they join a set.
func (o VendorOffer) Validate() error {
	id := strings.TrimSpace(o.ID)
	if id == "" {
		return fmt.Errorf("%w: id cannot be empty", ErrInvalidVendorOffer)
	}
	if strings.TrimSpace(o.VendorName) == "" {
		return fmt.Errorf("%w: offer %s: vendor name cannot be empty", ErrInvalidVendorOffer, id)
	}
	if o.PricePerUnit.IsNegative() {
		return fmt.Errorf("%w: offer %s: price must not be negative, got %s", ErrInvalidVendorOffer, id, o.PricePerUnit)
	}
	for _, f := range o.Feedback {
		if f.Rating < 1 || f.Rating > 5 {
			return fmt.Errorf("%w: offer %s: feedback rating must be 1..5, got %d", ErrInvalidVendorOffer, id, f.Rating)
		}
	}
	return nil
}

// AverageRating is zero when the offer carries no feedback.
func (o VendorOffer) AverageRating() float64 {
	if len(o.Feedback) == 0 {
		return 0
	}
	sum := 0
	for _, f := range o.Feedback {
		sum += f.Rating
	}
	return float64(sum) / float64(len(o.Feedback))
}

func (o VendorOffer) matchKey() string {
	return strings.ToLower(o.VendorName) + "\x00" + strings.ToLower(o.ProductName)
}
