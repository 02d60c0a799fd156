package handler

import (
	"log"
	"net/http"
	"slices"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func CORSConfig(origins []string) cors.Config {
	cfg := cors.DefaultConfig()
	if len(origins) == 0 || slices.Contains(origins, "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	cfg.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	cfg.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization"}
	return cfg
}

// NewRouter wires every endpoint. ws may be nil when live notifications are
// disabled.
func NewRouter(h *HTTPHandler, ws http.Handler, origins []string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger())
	r.Use(gin.CustomRecovery(func(c *gin.Context, recovered any) {
		log.Printf("recovered from panic: %v", recovered)
		c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{Code: "INTERNAL_ERROR", Message: "an internal error occurred"})
	}))
	r.Use(cors.New(CORSConfig(origins)))

	r.GET("/health", h.HealthCheck)
	if ws != nil {
		r.GET("/ws", gin.WrapH(ws))
	}

	v1 := r.Group("/api/v1")
	v1.GET("/catalog", h.SearchCatalog)
	v1.GET("/notifications", h.ListNotifications)
	v1.GET("/discovery", h.LoadingItems)

	order := v1.Group("/order")
	{
		order.GET("", h.GetOrder)
		order.PUT("/budget", h.SetBudget)
		order.GET("/selections", h.ListSelections)
		order.POST("/items", h.AddItem)
		order.GET("/items/:item_id", h.GetItem)
		order.DELETE("/items/:item_id", h.RemoveItem)
		order.PATCH("/items/:item_id/quantity", h.SetQuantity)
		order.POST("/items/:item_id/vendors/:vendor_id/toggle", h.ToggleVendor)
		order.POST("/items/:item_id/discovery", h.StartDiscovery)
		order.DELETE("/items/:item_id/discovery", h.CancelDiscovery)
	}

	rfqs := v1.Group("/rfqs")
	{
		rfqs.GET("", h.ListRFQs)
		rfqs.POST("", h.AssembleRFQ)
		rfqs.POST("/draft", h.DraftRFQ)
		rfqs.GET("/:id", h.GetRFQ)
		rfqs.POST("/:id/refresh", h.RefreshRFQ)
		rfqs.POST("/:id/validate", h.ValidateRFQ)
		rfqs.POST("/:id/dispatch", h.DispatchRFQ)
	}

	return r
}
