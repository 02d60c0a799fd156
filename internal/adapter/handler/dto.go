package handler

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/rl1809/procurement/internal/core/domain"
	"github.com/rl1809/procurement/internal/core/service"
)

// Requests

type AddItemRequest struct {
	ItemID string `json:"item_id" binding:"required"`
}

type QuantityRequest struct {
	Quantity int `json:"quantity"`
}

type BudgetRequest struct {
	Budget decimal.Decimal `json:"budget"`
}

type DiscoveryRequest struct {
	Query        string   `json:"query"`
	HintWebsites []string `json:"hint_websites"`
	// Wait blocks the request until the search settles.
	Wait bool `json:"wait"`
}

// Responses

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type FeedbackResponse struct {
	Author  string `json:"author"`
	Rating  int    `json:"rating"`
	Comment string `json:"comment,omitempty"`
}

type OfferResponse struct {
	ID               string             `json:"id"`
	VendorName       string             `json:"vendor_name"`
	ProductName      string             `json:"product_name"`
	PricePerUnit     decimal.Decimal    `json:"price_per_unit"`
	DeliveryEstimate string             `json:"delivery_estimate,omitempty"`
	ComplianceStatus string             `json:"compliance_status"`
	Packaging        string             `json:"packaging,omitempty"`
	Manufacturer     string             `json:"manufacturer,omitempty"`
	Website          string             `json:"website,omitempty"`
	AverageRating    float64            `json:"average_rating"`
	Feedback         []FeedbackResponse `json:"feedback,omitempty"`
	IsCurrentVendor  bool               `json:"is_current_vendor"`
	IsSelected       bool               `json:"is_selected"`
	// Savings against the most expensive offer on the line; omitted unless positive.
	Savings          *decimal.Decimal   `json:"savings,omitempty"`
}

type CatalogItemResponse struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	SKU           string          `json:"sku"`
	Category      string          `json:"category"`
	BaselinePrice decimal.Decimal `json:"baseline_price"`
	Manufacturer  string          `json:"manufacturer,omitempty"`
	Available     int             `json:"available"`
	Incoming      int             `json:"incoming"`
	OfferCount    int             `json:"offer_count"`
}

type LineResponse struct {
	ItemID            string          `json:"item_id"`
	Name              string          `json:"name"`
	SKU               string          `json:"sku"`
	Quantity          int             `json:"quantity"`
	Offers            []OfferResponse `json:"offers"`
	ResolvedVendorID  string          `json:"resolved_vendor_id,omitempty"`
	ResolvedUnitPrice decimal.Decimal `json:"resolved_unit_price"`
	LineTotal         decimal.Decimal `json:"line_total"`
	Savings           decimal.Decimal `json:"savings"`
	BestOfferID       string          `json:"best_offer_id,omitempty"`
	Priced            bool            `json:"priced"`
	Loading           bool            `json:"loading"`
}

type OrderResponse struct {
	Lines           []LineResponse  `json:"lines"`
	ItemCount       int             `json:"item_count"`
	UnitCount       int             `json:"unit_count"`
	Total           decimal.Decimal `json:"total"`
	TotalSavings    decimal.Decimal `json:"total_savings"`
	AllocatedBudget decimal.Decimal `json:"allocated_budget"`
	RemainingBudget decimal.Decimal `json:"remaining_budget"`
	BudgetUsage     decimal.Decimal `json:"budget_usage_percent"`
	BudgetStatus    string          `json:"budget_status"`
	UnpricedItems   []string        `json:"unpriced_items"`
}

type SelectionEventResponse struct {
	ID        string    `json:"id"`
	ItemID    string    `json:"item_id"`
	VendorID  string    `json:"vendor_id"`
	Vendor    string    `json:"vendor"`
	Action    string    `json:"action"`
	Timestamp time.Time `json:"timestamp"`
}

type DiscoveryResponse struct {
	ItemID  string `json:"item_id"`
	Seq     uint64 `json:"seq"`
	Outcome string `json:"outcome,omitempty"`
	Added   int    `json:"added"`
	Error   string `json:"error,omitempty"`
}

type RFQVendorResponse struct {
	VendorID     string          `json:"vendor_id"`
	VendorName   string          `json:"vendor_name"`
	PricePerUnit decimal.Decimal `json:"price_per_unit"`
}

type RFQItemResponse struct {
	ItemID   string              `json:"item_id"`
	Name     string              `json:"name"`
	SKU      string              `json:"sku"`
	Quantity int                 `json:"quantity"`
	Vendors  []RFQVendorResponse `json:"vendors"`
}

type ReceiptResponse struct {
	RFQID        string    `json:"rfq_id"`
	Reference    string    `json:"reference"`
	DispatchedAt time.Time `json:"dispatched_at"`
}

type RFQResponse struct {
	ID                string            `json:"id"`
	CreatedAt         time.Time         `json:"created_at"`
	Status            string            `json:"status"`
	Items             []RFQItemResponse `json:"items"`
	MissingSelections []string          `json:"missing_selections"`
	Receipt           *ReceiptResponse  `json:"receipt,omitempty"`
}

type NotificationResponse struct {
	Level     string    `json:"level"`
	Code      string    `json:"code"`
	Message   string    `json:"message"`
	ItemID    string    `json:"item_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func toOfferResponse(o domain.VendorOffer) OfferResponse {
	r := OfferResponse{
		ID:               o.ID,
		VendorName:       o.VendorName,
		ProductName:      o.ProductName,
		PricePerUnit:     o.PricePerUnit,
		DeliveryEstimate: o.DeliveryEstimate,
		ComplianceStatus: string(o.ComplianceStatus),
		Packaging:        o.Packaging,
		Manufacturer:     o.Manufacturer,
		Website:          o.Website,
		AverageRating:    o.AverageRating(),
		IsCurrentVendor:  o.IsCurrentVendor,
		IsSelected:       o.IsSelected,
	}
	for _, f := range o.Feedback {
		r.Feedback = append(r.Feedback, FeedbackResponse{Author: f.Author, Rating: f.Rating, Comment: f.Comment})
	}
	return r
}

func toCatalogItemResponse(it domain.CatalogItem) CatalogItemResponse {
	return CatalogItemResponse{
		ID:            it.ID,
		Name:          it.Name,
		SKU:           it.SKU,
		Category:      it.Category,
		BaselinePrice: it.BaselinePrice,
		Manufacturer:  it.Manufacturer,
		Available:     it.Stock.Available(),
		Incoming:      it.Stock.Incoming(),
		OfferCount:    len(it.Offers),
	}
}

func toLineResponse(l domain.LineSummary, loading bool) LineResponse {
	r := LineResponse{
		ItemID:            l.ItemID,
		Name:              l.Name,
		SKU:               l.SKU,
		Quantity:          l.Quantity,
		Offers:            make([]OfferResponse, 0, len(l.Offers)),
		ResolvedVendorID:  l.ResolvedVendorID,
		ResolvedUnitPrice: l.ResolvedUnitPrice,
		LineTotal:         l.LineTotal,
		Savings:           l.Savings,
		BestOfferID:       l.BestOfferID,
		Priced:            l.Priced,
		Loading:           loading,
	}
	maxPrice := decimal.Zero
	for _, o := range l.Offers {
		maxPrice = decimal.Max(maxPrice, o.PricePerUnit)
	}
	for _, o := range l.Offers {
		or := toOfferResponse(o)
		if saving := maxPrice.Sub(o.PricePerUnit); saving.IsPositive() {
			or.Savings = &saving
		}
		r.Offers = append(r.Offers, or)
	}
	return r
}

func toOrderResponse(s domain.OrderSummary, loading func(itemID string) bool) OrderResponse {
	r := OrderResponse{
		Lines:           make([]LineResponse, 0, len(s.Lines)),
		ItemCount:       s.ItemCount,
		UnitCount:       s.UnitCount,
		Total:           s.Total,
		TotalSavings:    s.TotalSavings,
		AllocatedBudget: s.AllocatedBudget,
		RemainingBudget: s.RemainingBudget,
		BudgetUsage:     s.BudgetUsage,
		BudgetStatus:    string(s.BudgetStatus),
		UnpricedItems:   append([]string{}, s.UnpricedItems...),
	}
	for _, l := range s.Lines {
		r.Lines = append(r.Lines, toLineResponse(l, loading(l.ItemID)))
	}
	return r
}

func toSelectionEventResponse(e domain.VendorSelectionEvent) SelectionEventResponse {
	return SelectionEventResponse{
		ID:        e.ID,
		ItemID:    e.ItemID,
		VendorID:  e.VendorID,
		Vendor:    e.Vendor.VendorName,
		Action:    string(e.Action),
		Timestamp: e.Timestamp,
	}
}

func toDiscoveryResponse(r service.SearchResult) DiscoveryResponse {
	out := DiscoveryResponse{
		ItemID:  r.ItemID,
		Seq:     r.Seq,
		Outcome: string(r.Outcome),
		Added:   r.Added,
	}
	if r.Err != nil {
		out.Error = r.Err.Error()
	}
	return out
}

func toRFQResponse(d domain.RFQDocument) RFQResponse {
	r := RFQResponse{
		ID:                d.ID,
		CreatedAt:         d.CreatedAt,
		Status:            string(d.Status),
		Items:             make([]RFQItemResponse, 0, len(d.Items)),
		MissingSelections: append([]string{}, d.MissingSelections()...),
	}
	for _, it := range d.Items {
		ri := RFQItemResponse{
			ItemID:   it.ItemID,
			Name:     it.Item.Name,
			SKU:      it.Item.SKU,
			Quantity: it.Quantity,
			Vendors:  make([]RFQVendorResponse, 0, len(it.Vendors)),
		}
		for _, v := range it.Vendors {
			ri.Vendors = append(ri.Vendors, RFQVendorResponse{
				VendorID:     v.VendorID,
				VendorName:   v.Vendor.VendorName,
				PricePerUnit: v.Vendor.PricePerUnit,
			})
		}
		r.Items = append(r.Items, ri)
	}
	if d.Receipt != nil {
		r.Receipt = &ReceiptResponse{
			RFQID:        d.Receipt.RFQID,
			Reference:    d.Receipt.Reference,
			DispatchedAt: d.Receipt.DispatchedAt,
		}
	}
	return r
}

func toNotificationResponse(n domain.Notification) NotificationResponse {
	return NotificationResponse{
		Level:     string(n.Level),
		Code:      n.Code,
		Message:   n.Message,
		ItemID:    n.ItemID,
		CreatedAt: n.CreatedAt,
	}
}
