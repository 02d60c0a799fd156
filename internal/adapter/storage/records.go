package storage

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/rl1809/procurement/internal/core/domain"
)

// offerRecord is the wire shape of a VendorOffer shared by the YAML seed, the
// Redis cache and the DynamoDB archive.
type offerRecord struct {
	ID               string           `json:"id" yaml:"id" dynamodbav:"id"`
	VendorName       string           `json:"vendor_name" yaml:"vendor_name" dynamodbav:"vendor_name"`
	ProductName      string           `json:"product_name" yaml:"product_name" dynamodbav:"product_name"`
	PricePerUnit     string           `json:"price_per_unit" yaml:"price_per_unit" dynamodbav:"price_per_unit"`
	DeliveryEstimate string           `json:"delivery_estimate,omitempty" yaml:"delivery_estimate" dynamodbav:"delivery_estimate,omitempty"`
	ComplianceStatus string           `json:"compliance_status,omitempty" yaml:"compliance_status" dynamodbav:"compliance_status,omitempty"`
	Packaging        string           `json:"packaging,omitempty" yaml:"packaging" dynamodbav:"packaging,omitempty"`
	Manufacturer     string           `json:"manufacturer,omitempty" yaml:"manufacturer" dynamodbav:"manufacturer,omitempty"`
	Website          string           `json:"website,omitempty" yaml:"website" dynamodbav:"website,omitempty"`
	Feedback         []feedbackRecord `json:"feedback,omitempty" yaml:"feedback" dynamodbav:"feedback,omitempty"`
	Current          bool             `json:"current,omitempty" yaml:"current" dynamodbav:"current"`
}

type feedbackRecord struct {
	Author  string `json:"author" yaml:"author" dynamodbav:"author"`
	Rating  int    `json:"rating" yaml:"rating" dynamodbav:"rating"`
	Comment string `json:"comment" yaml:"comment" dynamodbav:"comment"`
}

func toOfferRecord(o domain.VendorOffer) offerRecord {
	rec := offerRecord{
		ID:               o.ID,
		VendorName:       o.VendorName,
		ProductName:      o.ProductName,
		PricePerUnit:     o.PricePerUnit.String(),
		DeliveryEstimate: o.DeliveryEstimate,
		ComplianceStatus: string(o.ComplianceStatus),
		Packaging:        o.Packaging,
		Manufacturer:     o.Manufacturer,
		Website:          o.Website,
		Current:          o.IsCurrentVendor,
	}
	for _, f := range o.Feedback {
		rec.Feedback = append(rec.Feedback, feedbackRecord{Author: f.Author, Rating: f.Rating, Comment: f.Comment})
	}
	return rec
}

// toDomain parses and validates a record. Every store goes through it, since a
// cache entry or archive row may have been written by another version.
func (rec offerRecord) toDomain() (domain.VendorOffer, error) {
	price, err := decimal.NewFromString(rec.PricePerUnit)
	if err != nil {
		return domain.VendorOffer{}, fmt.Errorf("%w: offer %s: price %q: %v", domain.ErrInvalidVendorOffer, rec.ID, rec.PricePerUnit, err)
	}
	p := domain.VendorOfferParams{
		ID:               rec.ID,
		VendorName:       rec.VendorName,
		ProductName:      rec.ProductName,
		PricePerUnit:     price,
		DeliveryEstimate: rec.DeliveryEstimate,
		ComplianceStatus: domain.ComplianceStatus(rec.ComplianceStatus),
		Packaging:        rec.Packaging,
		Manufacturer:     rec.Manufacturer,
		Website:          rec.Website,
		IsCurrentVendor:  rec.Current,
	}
	for _, f := range rec.Feedback {
		p.Feedback = append(p.Feedback, domain.VendorFeedback{Author: f.Author, Rating: f.Rating, Comment: f.Comment})
	}
	return domain.NewVendorOffer(p)
}
