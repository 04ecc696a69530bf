package api

import (
	"net/http"

	"storefront-service/internal/service"
	"storefront-service/internal/variant"

	"github.com/gin-gonic/gin"
)

type toggleRequest struct {
	AttributeID int64 `json:"attribute_id" binding:"required"`
	ValueID     int64 `json:"value_id" binding:"required"`
}

func (h *Handler) createProduct(c *gin.Context) {
	var req service.CreateProductRequest
	if !h.bind(c, &req) {
		return
	}

	product, err := h.catalog.CreateProduct(c.Request.Context(), &req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, product)
}

func (h *Handler) listProducts(c *gin.Context) {
	products, err := h.catalog.ListProducts(c.Request.Context(), queryInt(c, "limit", 0), queryInt(c, "offset", 0))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": products})
}

func (h *Handler) getProduct(c *gin.Context) {
	productID, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	product, err := h.catalog.GetProduct(c.Request.Context(), productID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

func (h *Handler) createAttribute(c *gin.Context) {
	productID, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req service.CreateAttributeRequest
	if !h.bind(c, &req) {
		return
	}

	attr, err := h.catalog.CreateAttribute(c.Request.Context(), productID, &req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, attr)
}

func (h *Handler) listAttributes(c *gin.Context) {
	productID, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	attrs, err := h.catalog.ListAttributes(c.Request.Context(), productID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"attributes": attrs})
}

func (h *Handler) deleteAttribute(c *gin.Context) {
	attributeID, ok := h.pathID(c, "attributeId")
	if !ok {
		return
	}

	if err := h.catalog.DeleteAttribute(c.Request.Context(), attributeID); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) addAttributeValue(c *gin.Context) {
	attributeID, ok := h.pathID(c, "attributeId")
	if !ok {
		return
	}
	var req service.AddValueRequest
	if !h.bind(c, &req) {
		return
	}

	value, err := h.catalog.AddAttributeValue(c.Request.Context(), attributeID, &req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, value)
}

func (h *Handler) deleteAttributeValue(c *gin.Context) {
	attributeID, ok := h.pathID(c, "attributeId")
	if !ok {
		return
	}
	valueID, ok := h.pathID(c, "valueId")
	if !ok {
		return
	}

	if err := h.catalog.DeleteAttributeValue(c.Request.Context(), attributeID, valueID); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) getDraft(c *gin.Context) {
	productID, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	draft, err := h.catalog.Draft(c.Request.Context(), productID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, draft)
}

func (h *Handler) toggleValue(c *gin.Context) {
	productID, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req toggleRequest
	if !h.bind(c, &req) {
		return
	}

	draft, err := h.catalog.ToggleValue(c.Request.Context(), productID, req.AttributeID, req.ValueID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, draft)
}

func (h *Handler) stageRow(c *gin.Context) {
	productID, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var o variant.Override
	if !h.bind(c, &o) {
		return
	}

	draft, err := h.catalog.StageRow(c.Request.Context(), productID, c.Param("key"), o)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, draft)
}

func (h *Handler) resetDraft(c *gin.Context) {
	productID, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	if err := h.catalog.ResetDraft(c.Request.Context(), productID); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) saveVariants(c *gin.Context) {
	productID, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	created, err := h.catalog.SaveVariants(c.Request.Context(), productID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"variants": created})
}

func (h *Handler) listVariants(c *gin.Context) {
	productID, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	variants, err := h.catalog.ListVariants(c.Request.Context(), productID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"variants": variants})
}

func (h *Handler) previewVariants(c *gin.Context) {
	var req service.PreviewRequest
	if !h.bind(c, &req) {
		return
	}
	rows, err := h.catalog.Preview(&req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rows": rows})
}
