package handler

import (
	"errors"
	"net/http"

	"github.com/rl1809/procurement/internal/core/domain"
	"github.com/rl1809/procurement/internal/core/service"
)

// mapError turns a core error into an HTTP status and a stable code.
func mapError(err error) (int, ErrorResponse) {
	resp := ErrorResponse{Code: domain.ErrorCode(err), Message: err.Error()}

	switch {
	case errors.Is(err, domain.ErrInvalidQuantity),
		errors.Is(err, domain.ErrInvalidCatalogItem),
		errors.Is(err, domain.ErrInvalidVendorOffer):
		return http.StatusBadRequest, resp
	case errors.Is(err, domain.ErrItemNotFound),
		errors.Is(err, domain.ErrUnknownVendor):
		return http.StatusNotFound, resp
	case errors.Is(err, service.ErrRFQNotFound):
		resp.Code = "RFQ_NOT_FOUND"
		return http.StatusNotFound, resp
	case errors.Is(err, domain.ErrDuplicateItem),
		errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, domain.ErrAlreadyDispatched):
		return http.StatusConflict, resp
	case errors.Is(err, service.ErrDispatchInProgress):
		resp.Code = "DISPATCH_IN_PROGRESS"
		return http.StatusConflict, resp
	case errors.Is(err, domain.ErrNoVendorSelected),
		errors.Is(err, domain.ErrIncompleteSelection),
		errors.Is(err, domain.ErrEmptyOrder):
		return http.StatusUnprocessableEntity, resp
	case errors.Is(err, domain.ErrSearchFailed),
		errors.Is(err, domain.ErrDispatchFailed):
		return http.StatusBadGateway, resp
	default:
		return http.StatusInternalServerError, ErrorResponse{Code: "INTERNAL_ERROR", Message: "an internal error occurred"}
	}
}
