package handlers

import (
	"net/http"

	"shop-pos/internal/customers"
	"shop-pos/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// --- GET: /api/customers?search= ---
func (h *Handler) GetCustomers(c *gin.Context) {
	list, err := h.Customers.List(c.Request.Context(), c.Query("search"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handler) GetDebtors(c *gin.Context) {
	list, err := h.Customers.Debtors(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handler) GetCustomer(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	cust, err := h.Customers.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cust)
}

func (h *Handler) AddCustomer(c *gin.Context) {
	var in customers.CustomerInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "Customer name is required")
		return
	}
	cust, err := h.Customers.Create(c.Request.Context(), middleware.UserID(c), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, cust)
}

func (h *Handler) UpdateCustomer(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var in customers.CustomerInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "Customer name is required")
		return
	}
	cust, err := h.Customers.Update(c.Request.Context(), middleware.UserID(c), id, in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cust)
}

func (h *Handler) DeleteCustomer(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := h.Customers.Delete(c.Request.Context(), middleware.UserID(c), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Customer deleted successfully"})
}

type udhaarPaymentRequest struct {
	Amount decimal.Decimal `json:"amount"`
	Notes  string          `json:"notes"`
}

// --- POST: /api/customers/:id/payments ---
func (h *Handler) RecordPayment(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req udhaarPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid payment")
		return
	}
	payment, err := h.Customers.RecordPayment(c.Request.Context(), id, req.Amount, middleware.UserID(c), req.Notes)
	if err != nil {
		respondError(c, err)
		return
	}
	cust, err := h.Customers.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"payment": payment, "balance": cust.Balance})
}

// --- GET: /api/customers/:id/ledger ---
func (h *Handler) GetLedger(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	entries, err := h.Customers.Ledger(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}
