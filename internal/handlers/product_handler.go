package handlers

import (
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"shop-pos/internal/inventory"
	"shop-pos/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// --- GET: /api/products?search=&category=&low_stock= ---
func (h *Handler) GetProducts(c *gin.Context) {
	var f inventory.Filter
	if err := c.ShouldBindQuery(&f); err != nil {
		badRequest(c, "Invalid filter")
		return
	}
	products, err := h.Inventory.List(c.Request.Context(), f)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, products)
}

func (h *Handler) GetProduct(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	p, err := h.Inventory.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *Handler) GetCategories(c *gin.Context) {
	cats, err := h.Inventory.Categories(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cats)
}

func (h *Handler) GetLowStock(c *gin.Context) {
	products, err := h.Inventory.LowStock(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, products)
}

// --- POST: /api/products ---
func (h *Handler) AddProduct(c *gin.Context) {
	var in inventory.ProductInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "Invalid product data")
		return
	}
	p, err := h.Inventory.Create(c.Request.Context(), middleware.UserID(c), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

// --- PUT: /api/products/:id ---
func (h *Handler) UpdateProduct(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var in inventory.ProductInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "Invalid product data")
		return
	}
	p, err := h.Inventory.Update(c.Request.Context(), middleware.UserID(c), id, in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// --- DELETE: /api/products/:id ---
func (h *Handler) DeleteProduct(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := h.Inventory.Delete(c.Request.Context(), middleware.UserID(c), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Product deleted successfully"})
}

type adjustRequest struct {
	Delta  int    `json:"delta" binding:"required"`
	Reason string `json:"reason"`
}

// --- POST: /api/products/:id/adjust ---
func (h *Handler) AdjustStock(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req adjustRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "delta is required and must be non-zero")
		return
	}
	p, err := h.Inventory.AdjustStock(c.Request.Context(), middleware.UserID(c), id, req.Delta, req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// --- PUT: /api/products/:id/price ---
func (h *Handler) SetPrice(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req struct {
		SellingPrice decimal.Decimal `json:"selling_price"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid price")
		return
	}
	p, err := h.Inventory.SetSellingPrice(c.Request.Context(), middleware.UserID(c), id, req.SellingPrice)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// --- POST: /api/products/import (multipart "file") ---
func (h *Handler) ImportProducts(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		badRequest(c, "No file uploaded")
		return
	}
	if !strings.EqualFold(filepath.Ext(file.Filename), ".xlsx") {
		badRequest(c, "Only .xlsx files are allowed")
		return
	}
	f, err := file.Open()
	if err != nil {
		respondError(c, err)
		return
	}
	defer f.Close()

	res, err := h.Inventory.ImportExcel(c.Request.Context(), middleware.UserID(c), f)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// --- GET: /api/products/export ---
func (h *Handler) ExportProducts(c *gin.Context) {
	name := fmt.Sprintf("products_%s.xlsx", time.Now().Format("20060102_150405"))
	c.Header("Content-Type", xlsxContentType)
	c.Header("Content-Disposition", `attachment; filename="`+name+`"`)
	if err := h.Inventory.ExportExcel(c.Request.Context(), c.Writer); err != nil {
		respondError(c, err)
	}
}
