package handlers

import (
	"net/http"
	"runtime"
	"strconv"

	"shop-pos/internal/activity"
	"shop-pos/internal/middleware"

	"github.com/gin-gonic/gin"
)

// GetSystemStatus reports which terminal and database this process runs on.
func (h *Handler) GetSystemStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"terminal_id": h.Terminal,
		"db_driver":   h.Store.Driver(),
		"go_version":  runtime.Version(),
		"assistant":   h.Assistant.Enabled(),
	})
}

// --- Settings ---

func (h *Handler) GetSettings(c *gin.Context) {
	all, err := h.Settings.All(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, all)
}

// UpdateSettings upserts every key in the JSON object in one transaction.
func (h *Handler) UpdateSettings(c *gin.Context) {
	var values map[string]string
	if err := c.ShouldBindJSON(&values); err != nil || len(values) == 0 {
		badRequest(c, "Body must be an object of string settings")
		return
	}
	if err := h.Settings.SetMany(c.Request.Context(), middleware.UserID(c), values); err != nil {
		respondError(c, err)
		return
	}
	h.GetSettings(c)
}

// --- Backups ---

func (h *Handler) ListBackups(c *gin.Context) {
	files, err := h.Backups.List()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, files)
}

func (h *Handler) CreateBackup(c *gin.Context) {
	path, err := h.Backups.Create(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Backup created", "path": path})
}

func (h *Handler) RestoreBackup(c *gin.Context) {
	var req struct {
		Name string `json:"name" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Backup name is required")
		return
	}
	if err := h.Backups.Restore(c.Request.Context(), middleware.UserID(c), req.Name); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Database restored from " + req.Name})
}

// --- Activity log ---

func (h *Handler) GetActivity(c *gin.Context) {
	var f activity.Filter
	if v := c.Query("user_id"); v != "" {
		id, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			badRequest(c, "Invalid user_id")
			return
		}
		f.UserID = uint(id)
	}
	f.Action = c.Query("action")
	f.Limit, _ = strconv.Atoi(c.Query("limit"))

	entries, err := activity.Recent(c.Request.Context(), h.Store.DB(), f)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}
