// Package handlers exposes the shop services as a JSON API for gin.
package handlers

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"shop-pos/internal/apperr"
	"shop-pos/internal/assistant"
	"shop-pos/internal/auth"
	"shop-pos/internal/backup"
	"shop-pos/internal/billing"
	"shop-pos/internal/config"
	"shop-pos/internal/customers"
	"shop-pos/internal/database"
	"shop-pos/internal/inventory"
	"shop-pos/internal/receipt"
	"shop-pos/internal/reports"
	"shop-pos/internal/settings"
	"shop-pos/internal/suppliers"
	"shop-pos/internal/utils"

	"github.com/gin-gonic/gin"
)

const dateLayout = "2006-01-02"

// Handler carries every service a route may need.
type Handler struct {
	Store     *database.Store
	Tokens    *auth.TokenIssuer
	Auth      *auth.Service
	Billing   *billing.Service
	Carts     *billing.Registry
	Inventory *inventory.Service
	Customers *customers.Service
	Suppliers *suppliers.Service
	Reports   *reports.Service
	Settings  *settings.Service
	Receipts  *receipt.Generator
	Backups   *backup.Manager
	Assistant *assistant.Agent
	Terminal  string
}

// New wires every service over one store.
func New(store *database.Store, cfg config.Config) *Handler {
	bill := billing.NewService(store)
	inv := inventory.NewService(store)
	cust := customers.NewService(store)
	rep := reports.NewService(store)
	set := settings.NewService(store)
	terminal := utils.TerminalID()

	return &Handler{
		Store:     store,
		Tokens:    auth.NewTokenIssuer(cfg.JWTSecret, cfg.TokenTTL),
		Auth:      auth.NewService(store),
		Billing:   bill,
		Carts:     billing.NewRegistry(bill),
		Inventory: inv,
		Customers: cust,
		Suppliers: suppliers.NewService(store),
		Reports:   rep,
		Settings:  set,
		Receipts:  receipt.NewGenerator(bill, set, cfg.ReceiptDir, terminal),
		Backups:   backup.NewManager(store, cfg.BackupDir),
		Assistant: assistant.NewAgent(cfg.GeminiAPIKey, cfg.GeminiModel, &assistant.Tools{
			Inventory: inv,
			Reports:   rep,
			Customers: cust,
		}),
		Terminal: terminal,
	}
}

// respondError maps the service error classes to HTTP statuses. Anything
// unclassified is logged and hidden behind a 500.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, apperr.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, apperr.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, apperr.ErrIntegrity):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		log.Printf("%s %s: %v", c.Request.Method, c.FullPath(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}

// idParam reads a positive numeric path parameter; on failure it writes a 400
// and returns false.
func idParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		badRequest(c, "Invalid "+name)
		return 0, false
	}
	return uint(id), true
}

// dateRange reads ?from=&to= as YYYY-MM-DD. Missing values default to today.
func dateRange(c *gin.Context) (time.Time, time.Time, bool) {
	today := time.Now()
	from, err := dateQuery(c, "from", today)
	if err != nil {
		badRequest(c, "from must be YYYY-MM-DD")
		return time.Time{}, time.Time{}, false
	}
	to, err := dateQuery(c, "to", today)
	if err != nil {
		badRequest(c, "to must be YYYY-MM-DD")
		return time.Time{}, time.Time{}, false
	}
	return from, to, true
}

func dateQuery(c *gin.Context, key string, def time.Time) (time.Time, error) {
	v := c.Query(key)
	if v == "" {
		return def, nil
	}
	return time.ParseInLocation(dateLayout, v, time.Local)
}
