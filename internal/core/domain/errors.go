package domain

import "errors"

// Validation errors are synchronous and never leave an Order half-mutated.
var (
	ErrInvalidQuantity     = errors.New("invalid quantity")
	ErrDuplicateItem       = errors.New("item already in order")
	ErrItemNotFound        = errors.New("item not found")
	ErrUnknownVendor       = errors.New("unknown vendor")
	ErrNoVendorSelected    = errors.New("no vendor selected")
	ErrIncompleteSelection = errors.New("incomplete vendor selection")
	ErrEmptyOrder          = errors.New("order has no items")
	ErrInvalidCatalogItem  = errors.New("invalid catalog item")
	ErrInvalidVendorOffer  = errors.New("invalid vendor offer")
	ErrInvalidTransition   = errors.New("invalid rfq status transition")
	ErrAlreadyDispatched   = errors.New("rfq already dispatched")
)

// Transient errors leave the affected item or document in its last good state.
var (
	ErrSearchFailed   = errors.New("vendor search failed")
	ErrDispatchFailed = errors.New("rfq dispatch failed")
)

var validationErrors = []error{
	ErrInvalidQuantity,
	ErrDuplicateItem,
	ErrItemNotFound,
	ErrUnknownVendor,
	ErrNoVendorSelected,
	ErrIncompleteSelection,
	ErrEmptyOrder,
	ErrInvalidCatalogItem,
	ErrInvalidVendorOffer,
	ErrInvalidTransition,
	ErrAlreadyDispatched,
}

// IsValidation reports whether err is a local validation failure.
func IsValidation(err error) bool {
	for _, target := range validationErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// IsTransient reports whether the failed operation may be retried as is.
func IsTransient(err error) bool {
	return errors.Is(err, ErrSearchFailed) || errors.Is(err, ErrDispatchFailed)
}
