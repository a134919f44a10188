package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"rfp-relay-go/internal/models"
)

func (h *Handlers) CreateVendor(c *gin.Context) {
	var req models.VendorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}
	vendor, err := h.svc.CreateVendor(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, vendor)
}

func (h *Handlers) ListVendors(c *gin.Context) {
	vendors, err := h.svc.ListVendors(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, vendors)
}

func (h *Handlers) GetVendor(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	vendor, err := h.svc.GetVendor(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, vendor)
}

// UpdateVendor applies the fields present in the body
func (h *Handlers) UpdateVendor(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req models.VendorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}
	vendor, err := h.svc.UpdateVendor(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, vendor)
}

func (h *Handlers) DeleteVendor(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.svc.DeleteVendor(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
