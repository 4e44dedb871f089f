// Package server assembles the gin engine: CORS, public routes, and the
// authenticated and admin-only API groups.
package server

import (
	"net/http"
	"time"

	"shop-pos/internal/config"
	"shop-pos/internal/handlers"
	"shop-pos/internal/middleware"
	"shop-pos/internal/models"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func NewRouter(h *handlers.Handler, cfg config.Config) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "online"}) })
	r.POST("/login", h.Login)

	api := r.Group("/api")
	api.Use(middleware.AuthMiddleware(h.Tokens))
	{
		// PUBLIC TO CASHIER & ADMIN
		api.GET("/me", h.Me)
		api.POST("/me/password", h.ChangePassword)
		api.POST("/logout", h.Logout)
		api.GET("/dashboard", h.GetDashboard)
		api.GET("/system/status", h.GetSystemStatus)

		api.GET("/products", h.GetProducts)
		api.GET("/products/categories", h.GetCategories)
		api.GET("/products/low-stock", h.GetLowStock)
		api.GET("/products/:id", h.GetProduct)

		api.GET("/cart", h.GetCart)
		api.DELETE("/cart", h.ClearCart)
		api.POST("/cart/items", h.AddCartItem)
		api.DELETE("/cart/items/:product_id", h.RemoveCartItem)
		api.PUT("/cart/adjustments", h.SetCartAdjustments)
		api.POST("/cart/checkout", h.CheckoutCart)
		api.POST("/checkout", h.ProcessSale)

		api.GET("/sales/:id", h.GetSale)
		api.POST("/sales/:id/receipt", h.PrintReceipt)

		api.GET("/customers", h.GetCustomers)
		api.GET("/customers/debtors", h.GetDebtors)
		api.GET("/customers/:id", h.GetCustomer)
		api.POST("/customers", h.AddCustomer)
		api.PUT("/customers/:id", h.UpdateCustomer)
		api.DELETE("/customers/:id", h.DeleteCustomer)
		api.POST("/customers/:id/payments", h.RecordPayment)
		api.GET("/customers/:id/ledger", h.GetLedger)

		// ADMIN ONLY
		admin := api.Group("/")
		admin.Use(middleware.RequireRole(models.RoleAdmin))
		{
			admin.POST("/ask", h.AskAI)

			admin.POST("/products", h.AddProduct)
			admin.PUT("/products/:id", h.UpdateProduct)
			admin.DELETE("/products/:id", h.DeleteProduct)
			admin.POST("/products/:id/adjust", h.AdjustStock)
			admin.PUT("/products/:id/price", h.SetPrice)
			admin.POST("/products/import", h.ImportProducts)
			admin.GET("/products/export", h.ExportProducts)

			admin.GET("/suppliers", h.GetSuppliers)
			admin.GET("/suppliers/:id", h.GetSupplier)
			admin.POST("/suppliers", h.AddSupplier)
			admin.PUT("/suppliers/:id", h.UpdateSupplier)
			admin.DELETE("/suppliers/:id", h.DeleteSupplier)

			admin.GET("/reports/sales", h.GetSalesReport)
			admin.GET("/reports/daily", h.GetDailyReport)
			admin.GET("/reports/monthly", h.GetMonthlyReport)
			admin.GET("/reports/top-products", h.GetTopProducts)
			admin.GET("/reports/valuation", h.GetStockValuation)
			admin.GET("/reports/export", h.ExportReport)

			admin.GET("/settings", h.GetSettings)
			admin.PUT("/settings", h.UpdateSettings)

			admin.GET("/users", h.ListUsers)
			admin.POST("/users", h.CreateUser)
			admin.PUT("/users/:id", h.UpdateUser)
			admin.DELETE("/users/:id", h.DeleteUser)
			admin.POST("/users/:id/password", h.ResetUserPassword)

			admin.GET("/backups", h.ListBackups)
			admin.POST("/backups", h.CreateBackup)
			admin.POST("/backups/restore", h.RestoreBackup)

			admin.GET("/activity", h.GetActivity)
		}
	}

	return r
}
