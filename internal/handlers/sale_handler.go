package handlers

import (
	"net/http"

	"shop-pos/internal/billing"
	"shop-pos/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type cartView struct {
	CustomerID uint           `json:"customer_id"`
	Items      []billing.Line `json:"items"`
	Totals     billing.Totals `json:"totals"`
}

func viewOf(cart *billing.Cart) cartView {
	return cartView{CustomerID: cart.CustomerID(), Items: cart.Items(), Totals: cart.Totals()}
}

// withCart runs fn on the caller's cart and responds with the cart afterwards.
func (h *Handler) withCart(c *gin.Context, fn func(cart *billing.Cart) error) {
	var view cartView
	err := h.Carts.With(middleware.UserID(c), func(cart *billing.Cart) error {
		if err := fn(cart); err != nil {
			return err
		}
		view = viewOf(cart)
		return nil
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *Handler) GetCart(c *gin.Context) {
	h.withCart(c, func(*billing.Cart) error { return nil })
}

func (h *Handler) ClearCart(c *gin.Context) {
	h.withCart(c, func(cart *billing.Cart) error {
		cart.Clear()
		return nil
	})
}

type cartItemRequest struct {
	ProductID uint `json:"product_id" binding:"required"`
	Quantity  int  `json:"quantity"`
}

// AddCartItem adds to a line, or sets its quantity when replace=true.
func (h *Handler) AddCartItem(c *gin.Context) {
	var req cartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "product_id is required")
		return
	}
	replace := c.Query("replace") == "true"
	h.withCart(c, func(cart *billing.Cart) error {
		if replace {
			return cart.SetQuantity(c.Request.Context(), req.ProductID, req.Quantity)
		}
		if req.Quantity == 0 {
			req.Quantity = 1
		}
		_, err := cart.Add(c.Request.Context(), req.ProductID, req.Quantity)
		return err
	})
}

func (h *Handler) RemoveCartItem(c *gin.Context) {
	id, ok := idParam(c, "product_id")
	if !ok {
		return
	}
	h.withCart(c, func(cart *billing.Cart) error {
		if !cart.Remove(id) {
			return billing.ErrLineNotFound
		}
		return nil
	})
}

type adjustmentsRequest struct {
	CustomerID *uint            `json:"customer_id"`
	Discount   *decimal.Decimal `json:"discount"`
	Tax        *decimal.Decimal `json:"tax"`
}

func (h *Handler) SetCartAdjustments(c *gin.Context) {
	var req adjustmentsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid input")
		return
	}
	h.withCart(c, func(cart *billing.Cart) error {
		if req.Discount != nil {
			if err := cart.SetDiscount(*req.Discount); err != nil {
				return err
			}
		}
		if req.Tax != nil {
			if err := cart.SetTax(*req.Tax); err != nil {
				return err
			}
		}
		if req.CustomerID != nil {
			cart.SetCustomer(*req.CustomerID)
		}
		return nil
	})
}

type paymentRequest struct {
	PaymentMethod string          `json:"payment_method" binding:"required"`
	CashAmount    decimal.Decimal `json:"cash_amount"`
}

// --- POST: /api/cart/checkout ---
func (h *Handler) CheckoutCart(c *gin.Context) {
	var req paymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "payment_method is required")
		return
	}
	userID := middleware.UserID(c)
	var saleID uint
	err := h.Carts.With(userID, func(cart *billing.Cart) error {
		sale, err := h.Billing.Checkout(c.Request.Context(), cart, userID, req.PaymentMethod, req.CashAmount)
		if err != nil {
			return err
		}
		saleID = sale.ID
		return nil
	})
	if err != nil {
		respondError(c, err)
		return
	}
	h.saleCreated(c, saleID)
}

type checkoutRequest struct {
	CustomerID    uint            `json:"customer_id"`
	Items         []billing.Line  `json:"items" binding:"required"`
	Discount      decimal.Decimal `json:"discount"`
	Tax           decimal.Decimal `json:"tax"`
	PaymentMethod string          `json:"payment_method" binding:"required"`
	CashAmount    decimal.Decimal `json:"cash_amount"`
}

// --- POST: /api/checkout ---
// Stateless checkout for clients that keep their own cart. Lines are priced
// from the catalog; any unit_price in the request is ignored.
func (h *Handler) ProcessSale(c *gin.Context) {
	var req checkoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}
	sale, err := h.Billing.CompleteSale(c.Request.Context(), billing.Checkout{
		CustomerID:    req.CustomerID,
		UserID:        middleware.UserID(c),
		Items:         req.Items,
		Discount:      req.Discount,
		Tax:           req.Tax,
		PaymentMethod: req.PaymentMethod,
		CashAmount:    req.CashAmount,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	h.saleCreated(c, sale.ID)
}

func (h *Handler) saleCreated(c *gin.Context, saleID uint) {
	sale, err := h.Billing.GetSale(c.Request.Context(), saleID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"message": "Sale successful!",
		"sale_id": sale.ID,
		"sale":    sale,
	})
}

func (h *Handler) GetSale(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	sale, err := h.Billing.GetSale(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sale)
}

// --- POST: /api/sales/:id/receipt?pdf=true ---
func (h *Handler) PrintReceipt(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	paths, err := h.Receipts.Generate(c.Request.Context(), id, c.Query("pdf") == "true")
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, paths)
}
