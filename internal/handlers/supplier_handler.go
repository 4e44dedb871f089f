package handlers

import (
	"net/http"

	"shop-pos/internal/middleware"
	"shop-pos/internal/suppliers"

	"github.com/gin-gonic/gin"
)

func (h *Handler) GetSuppliers(c *gin.Context) {
	list, err := h.Suppliers.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handler) GetSupplier(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	s, err := h.Suppliers.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, s)
}

func (h *Handler) AddSupplier(c *gin.Context) {
	var in suppliers.SupplierInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "Supplier name is required")
		return
	}
	s, err := h.Suppliers.Create(c.Request.Context(), middleware.UserID(c), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, s)
}

func (h *Handler) UpdateSupplier(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var in suppliers.SupplierInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "Supplier name is required")
		return
	}
	s, err := h.Suppliers.Update(c.Request.Context(), middleware.UserID(c), id, in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, s)
}

func (h *Handler) DeleteSupplier(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := h.Suppliers.Delete(c.Request.Context(), middleware.UserID(c), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Supplier deleted successfully"})
}
