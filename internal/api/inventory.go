package api

import (
	"context"
	"net/http"

	"storefront-service/internal/service"

	"github.com/gin-gonic/gin"
)

func (h *Handler) getStock(c *gin.Context) {
	variantID, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	available, err := h.inventory.Available(c.Request.Context(), variantID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"variant_id": variantID, "available": available})
}

func (h *Handler) stockIn(c *gin.Context) {
	h.moveStock(c, h.inventory.StockIn)
}

func (h *Handler) stockOut(c *gin.Context) {
	h.moveStock(c, h.inventory.StockOut)
}

func (h *Handler) moveStock(c *gin.Context, move func(context.Context, int64, *service.StockRequest) (*service.StockResult, error)) {
	variantID, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req service.StockRequest
	if !h.bind(c, &req) {
		return
	}

	result, err := move(c.Request.Context(), variantID, &req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) listStockMovements(c *gin.Context) {
	variantID, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	movements, err := h.inventory.Movements(c.Request.Context(), variantID, queryInt(c, "limit", 0))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"movements": movements})
}

func (h *Handler) submitContact(c *gin.Context) {
	var req service.ContactRequest
	if !h.bind(c, &req) {
		return
	}

	msg, err := h.contact.Submit(c.Request.Context(), &req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, msg)
}

func (h *Handler) listContact(c *gin.Context) {
	unreadOnly := c.Query("unread") == "true"

	messages, err := h.contact.List(c.Request.Context(), unreadOnly, queryInt(c, "limit", 0), queryInt(c, "offset", 0))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": messages})
}

func (h *Handler) markContactRead(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	if err := h.contact.MarkRead(c.Request.Context(), id); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
