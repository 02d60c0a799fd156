package domain

import (
	"errors"
	"time"
)

type NotificationLevel string

const (
	LevelInfo    NotificationLevel = "info"
	LevelWarning NotificationLevel = "warning"
	LevelError   NotificationLevel = "error"
)

// Notification is a user-facing toast. It carries no state the core relies on.
type Notification struct {
	Level     NotificationLevel
	Code      string
	Message   string
	ItemID    string
	CreatedAt time.Time
}

var errorCodes = []struct {
	err  error
	code string
}{
	{ErrInvalidQuantity, "INVALID_QUANTITY"},
	{ErrDuplicateItem, "DUPLICATE_ITEM"},
	{ErrItemNotFound, "ITEM_NOT_FOUND"},
	{ErrUnknownVendor, "UNKNOWN_VENDOR"},
	{ErrNoVendorSelected, "NO_VENDOR_SELECTED"},
	{ErrIncompleteSelection, "INCOMPLETE_SELECTION"},
	{ErrEmptyOrder, "EMPTY_ORDER"},
	{ErrInvalidCatalogItem, "INVALID_CATALOG_ITEM"},
	{ErrInvalidVendorOffer, "INVALID_VENDOR_OFFER"},
	{ErrInvalidTransition, "INVALID_TRANSITION"},
	{ErrAlreadyDispatched, "ALREADY_DISPATCHED"},
	{ErrSearchFailed, "SEARCH_FAILED"},
	{ErrDispatchFailed, "DISPATCH_FAILED"},
}

// ErrorCode maps a core error to a stable code, INTERNAL_ERROR otherwise.
func ErrorCode(err error) string {
	for _, ec := range errorCodes {
		if errors.Is(err, ec.err) {
			return ec.code
		}
	}
	return "INTERNAL_ERROR"
}

// NotificationFor builds the toast reported for a failed operation.
func NotificationFor(itemID string, err error, at time.Time) Notification {
	level := LevelError
	if IsValidation(err) {
		level = LevelWarning
	}
	return Notification{
		Level:     level,
		Code:      ErrorCode(err),
		Message:   err.Error(),
		ItemID:    itemID,
		CreatedAt: at,
	}
}
