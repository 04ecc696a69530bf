package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"storefront-service/internal/apperr"
	"storefront-service/internal/service"
	"storefront-service/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// UserHeader carries the caller's user id, set by the gateway in front of
// this service
const UserHeader = "X-User-ID"

// Pinger is a dependency checked by the readiness probe
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler contains HTTP handlers
type Handler struct {
	catalog   *service.CatalogService
	checkout  *service.CheckoutService
	inventory *service.InventoryService
	contact   *service.ContactService
	deps      map[string]Pinger
	logger    *zap.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(
	catalog *service.CatalogService,
	checkout *service.CheckoutService,
	inventory *service.InventoryService,
	contact *service.ContactService,
	deps map[string]Pinger,
) *Handler {
	return &Handler{
		catalog:   catalog,
		checkout:  checkout,
		inventory: inventory,
		contact:   contact,
		deps:      deps,
		logger:    util.GetLogger(),
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterTagNameFunc(apperr.JSONFieldName)
	}

	router.Use(gin.Recovery())
	router.Use(requestLogger(h.logger))
	router.Use(prometheusMiddleware())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		v1.POST("/products", h.createProduct)
		v1.GET("/products", h.listProducts)
		v1.GET("/products/:id", h.getProduct)

		v1.POST("/products/:id/attributes", h.createAttribute)
		v1.GET("/products/:id/attributes", h.listAttributes)
		v1.DELETE("/attributes/:attributeId", h.deleteAttribute)
		v1.POST("/attributes/:attributeId/values", h.addAttributeValue)
		v1.DELETE("/attributes/:attributeId/values/:valueId", h.deleteAttributeValue)

		v1.GET("/products/:id/variant-draft", h.getDraft)
		v1.POST("/products/:id/variant-draft/toggle", h.toggleValue)
		v1.PATCH("/products/:id/variant-draft/rows/:key", h.stageRow)
		v1.DELETE("/products/:id/variant-draft", h.resetDraft)
		v1.POST("/products/:id/variants", h.saveVariants)
		v1.GET("/products/:id/variants", h.listVariants)
		v1.POST("/variants/preview", h.previewVariants)

		v1.GET("/variants/:id/stock", h.getStock)
		v1.POST("/variants/:id/stock-in", h.stockIn)
		v1.POST("/variants/:id/stock-out", h.stockOut)
		v1.GET("/variants/:id/stock-movements", h.listStockMovements)

		v1.POST("/vouchers", h.createVoucher)
		v1.POST("/checkout/preview", h.previewCheckout)

		v1.POST("/contact", h.submitContact)
		v1.GET("/contact", h.listContact)
		v1.POST("/contact/:id/read", h.markContactRead)

		user := v1.Group("", requireUser())
		{
			user.GET("/cart", h.getCart)
			user.POST("/cart/items", h.addCartItem)
			user.DELETE("/cart/items/:id", h.removeCartItem)

			user.GET("/addresses", h.listAddresses)
			user.POST("/addresses", h.createAddress)

			user.GET("/vouchers", h.listVouchers)
			user.POST("/checkout/quote", h.quote)

			user.POST("/orders", h.placeOrder)
			user.GET("/orders", h.listOrders)
			user.GET("/orders/:id", h.getOrder)
			user.POST("/orders/:id/cancel", h.cancelOrder)
		}
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck pings every dependency
func (h *Handler) readinessCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	failing := gin.H{}
	for name, dep := range h.deps {
		if err := dep.Ping(ctx); err != nil {
			failing[name] = err.Error()
		}
	}

	if len(failing) > 0 {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":  "not ready",
			"details": failing,
			"time":    time.Now().Unix(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

// respondError writes err as {"error": ..., "details": ...}. Internal errors
// are logged and answered with the generic message.
func (h *Handler) respondError(c *gin.Context, err error) {
	status := apperr.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("Request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err))
	}

	body := gin.H{"error": apperr.PublicMessage(err)}
	if ae, ok := apperr.As(err); ok && len(ae.Fields) > 0 {
		body["details"] = ae.Fields
	}
	c.AbortWithStatusJSON(status, body)
}

// bind decodes the JSON body into req, answering 400 on failure
func (h *Handler) bind(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		h.respondError(c, apperr.FromValidation(err))
		return false
	}
	return true
}

func (h *Handler) pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		h.respondError(c, apperr.InvalidErr("Invalid "+name, nil))
		return 0, false
	}
	return id, true
}

func queryInt(c *gin.Context, name string, def int) int {
	v, err := strconv.Atoi(c.Query(name))
	if err != nil {
		return def
	}
	return v
}

func requireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := strconv.ParseInt(c.GetHeader(UserHeader), 10, 64)
		if err != nil || userID <= 0 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Missing or invalid " + UserHeader})
			return
		}
		c.Set("user_id", userID)
		c.Next()
	}
}

func userID(c *gin.Context) int64 {
	return c.GetInt64("user_id")
}

// requestLogger writes one line per request
func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		if c.FullPath() == "/health" || c.FullPath() == "/metrics" {
			return
		}
		logger.Info("HTTP request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()))
	}
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}
