package api

import (
	"net/http"

	"storefront-service/internal/service"

	"github.com/gin-gonic/gin"
)

type cancelRequest struct {
	Reason string `json:"reason" binding:"max=255"`
}

func (h *Handler) getCart(c *gin.Context) {
	items, err := h.checkout.Cart(c.Request.Context(), userID(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h *Handler) addCartItem(c *gin.Context) {
	var req service.AddCartItemRequest
	if !h.bind(c, &req) {
		return
	}

	if err := h.checkout.AddToCart(c.Request.Context(), userID(c), &req); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) removeCartItem(c *gin.Context) {
	itemID, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	if err := h.checkout.RemoveFromCart(c.Request.Context(), userID(c), itemID); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) listAddresses(c *gin.Context) {
	addresses, err := h.checkout.Addresses(c.Request.Context(), userID(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"addresses": addresses})
}

func (h *Handler) createAddress(c *gin.Context) {
	var req service.CreateAddressRequest
	if !h.bind(c, &req) {
		return
	}

	address, err := h.checkout.AddAddress(c.Request.Context(), userID(c), &req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, address)
}

func (h *Handler) listVouchers(c *gin.Context) {
	subtotal := int64(queryInt(c, "subtotal", 0))

	vouchers, err := h.checkout.ApplicableVouchers(c.Request.Context(), subtotal)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"vouchers": vouchers})
}

func (h *Handler) createVoucher(c *gin.Context) {
	var req service.CreateVoucherRequest
	if !h.bind(c, &req) {
		return
	}

	voucher, err := h.checkout.CreateVoucher(c.Request.Context(), &req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, voucher)
}

func (h *Handler) quote(c *gin.Context) {
	var req service.QuoteRequest
	if !h.bind(c, &req) {
		return
	}
	req.UserID = userID(c)
	if req.SessionID == "" {
		req.SessionID = c.GetHeader("X-Checkout-Session")
	}

	resp, err := h.checkout.Quote(c.Request.Context(), &req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) previewCheckout(c *gin.Context) {
	var req service.PricePreviewRequest
	if !h.bind(c, &req) {
		return
	}

	breakdown, err := h.checkout.Preview(&req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, breakdown)
}

func (h *Handler) placeOrder(c *gin.Context) {
	var req service.PlaceOrderRequest
	if !h.bind(c, &req) {
		return
	}
	req.UserID = userID(c)
	if req.IdempotencyKey == "" {
		req.IdempotencyKey = c.GetHeader("Idempotency-Key")
	}

	detail, err := h.checkout.PlaceOrder(c.Request.Context(), &req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, detail)
}

func (h *Handler) listOrders(c *gin.Context) {
	orders, err := h.checkout.ListOrders(c.Request.Context(), userID(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

func (h *Handler) getOrder(c *gin.Context) {
	orderID, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	detail, err := h.checkout.GetOrder(c.Request.Context(), userID(c), orderID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

func (h *Handler) cancelOrder(c *gin.Context) {
	orderID, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req cancelRequest
	if c.Request.ContentLength > 0 && !h.bind(c, &req) {
		return
	}

	detail, err := h.checkout.CancelOrder(c.Request.Context(), userID(c), orderID, req.Reason)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}
