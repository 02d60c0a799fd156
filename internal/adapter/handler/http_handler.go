package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rl1809/procurement/internal/core/domain"
	"github.com/rl1809/procurement/internal/core/service"
)

// NotificationFeed exposes recently raised notifications.
type NotificationFeed interface {
	Recent() []domain.Notification
}

type HTTPHandler struct {
	orders    *service.OrderService
	discovery *service.DiscoveryService
	rfqs      *service.RFQService
	feed      NotificationFeed
}

func NewHTTPHandler(orders *service.OrderService, discovery *service.DiscoveryService, rfqs *service.RFQService, feed NotificationFeed) *HTTPHandler {
	return &HTTPHandler{
		orders:    orders,
		discovery: discovery,
		rfqs:      rfqs,
		feed:      feed,
	}
}

func writeError(c *gin.Context, err error) {
	status, resp := mapError(err)
	c.JSON(status, resp)
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Code: "INVALID_REQUEST", Message: msg})
}

func (h *HTTPHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Catalog

func (h *HTTPHandler) SearchCatalog(c *gin.Context) {
	items, err := h.orders.SearchCatalog(c.Request.Context(), c.Query("q"))
	if err != nil {
		writeError(c, err)
		return
	}
	out := make([]CatalogItemResponse, 0, len(items))
	for _, it := range items {
		out = append(out, toCatalogItemResponse(it))
	}
	c.JSON(http.StatusOK, out)
}

// Order

func (h *HTTPHandler) GetOrder(c *gin.Context) {
	c.JSON(http.StatusOK, toOrderResponse(h.orders.Summary(), h.discovery.Loading))
}

func (h *HTTPHandler) SetBudget(c *gin.Context) {
	var req BudgetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid budget payload")
		return
	}
	if req.Budget.IsNegative() {
		badRequest(c, "budget must not be negative")
		return
	}
	h.orders.SetBudget(req.Budget)
	h.GetOrder(c)
}

func (h *HTTPHandler) AddItem(c *gin.Context) {
	var req AddItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "item_id is required")
		return
	}
	line, err := h.orders.AddItem(c.Request.Context(), req.ItemID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toLineResponse(line, false))
}

func (h *HTTPHandler) GetItem(c *gin.Context) {
	itemID := c.Param("item_id")
	line, err := h.orders.Line(itemID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toLineResponse(line, h.discovery.Loading(itemID)))
}

func (h *HTTPHandler) RemoveItem(c *gin.Context) {
	if err := h.orders.RemoveItem(c.Param("item_id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *HTTPHandler) SetQuantity(c *gin.Context) {
	var req QuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid quantity payload")
		return
	}
	itemID := c.Param("item_id")
	line, err := h.orders.SetQuantity(itemID, req.Quantity)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toLineResponse(line, h.discovery.Loading(itemID)))
}

func (h *HTTPHandler) ToggleVendor(c *gin.Context) {
	evt, err := h.orders.ToggleVendor(c.Param("item_id"), c.Param("vendor_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toSelectionEventResponse(evt))
}

func (h *HTTPHandler) ListSelections(c *gin.Context) {
	log := h.orders.SelectionLog()
	var events []domain.VendorSelectionEvent
	if itemID := c.Query("item_id"); itemID != "" {
		events = log.ForItem(itemID)
	} else {
		events = log.Events()
	}
	out := make([]SelectionEventResponse, 0, len(events))
	for _, e := range events {
		out = append(out, toSelectionEventResponse(e))
	}
	c.JSON(http.StatusOK, out)
}

// Discovery

func (h *HTTPHandler) StartDiscovery(c *gin.Context) {
	var req DiscoveryRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "invalid discovery payload")
			return
		}
	}

	pending, err := h.discovery.Search(c.Param("item_id"), service.SearchCriteria{
		Query:        req.Query,
		HintWebsites: req.HintWebsites,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	if !req.Wait {
		c.JSON(http.StatusAccepted, DiscoveryResponse{ItemID: pending.ItemID, Seq: pending.Seq})
		return
	}

	result, err := pending.Wait(c.Request.Context())
	if err != nil && result.Outcome == "" {
		// Request context ended before the search settled
		c.JSON(http.StatusAccepted, DiscoveryResponse{ItemID: pending.ItemID, Seq: pending.Seq})
		return
	}
	if result.Outcome == service.OutcomeFailed {
		status, resp := mapError(result.Err)
		c.JSON(status, resp)
		return
	}
	c.JSON(http.StatusOK, toDiscoveryResponse(result))
}

func (h *HTTPHandler) CancelDiscovery(c *gin.Context) {
	if !h.discovery.Cancel(c.Param("item_id")) {
		c.JSON(http.StatusNotFound, ErrorResponse{Code: "NO_SEARCH_IN_FLIGHT", Message: "no discovery running for item"})
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *HTTPHandler) LoadingItems(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"loading": h.discovery.LoadingItems()})
}

// RFQ

func (h *HTTPHandler) DraftRFQ(c *gin.Context) {
	c.JSON(http.StatusCreated, toRFQResponse(h.rfqs.Draft()))
}

func (h *HTTPHandler) AssembleRFQ(c *gin.Context) {
	doc, err := h.rfqs.Assemble()
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toRFQResponse(doc))
}

func (h *HTTPHandler) ListRFQs(c *gin.Context) {
	docs := h.rfqs.List()
	out := make([]RFQResponse, 0, len(docs))
	for _, d := range docs {
		out = append(out, toRFQResponse(d))
	}
	c.JSON(http.StatusOK, out)
}

func (h *HTTPHandler) GetRFQ(c *gin.Context) {
	doc, err := h.rfqs.Get(c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toRFQResponse(doc))
}

func (h *HTTPHandler) RefreshRFQ(c *gin.Context) {
	doc, err := h.rfqs.Refresh(c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toRFQResponse(doc))
}

func (h *HTTPHandler) ValidateRFQ(c *gin.Context) {
	doc, err := h.rfqs.Validate(c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toRFQResponse(doc))
}

func (h *HTTPHandler) DispatchRFQ(c *gin.Context) {
	receipt, err := h.rfqs.Dispatch(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, ReceiptResponse{
		RFQID:        receipt.RFQID,
		Reference:    receipt.Reference,
		DispatchedAt: receipt.DispatchedAt,
	})
}

// Notifications

func (h *HTTPHandler) ListNotifications(c *gin.Context) {
	out := []NotificationResponse{}
	if h.feed != nil {
		for _, n := range h.feed.Recent() {
			out = append(out, toNotificationResponse(n))
		}
	}
	c.JSON(http.StatusOK, out)
}
