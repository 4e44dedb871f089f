package handlers

import (
	"errors"
	"log"
	"net/http"

	"shop-pos/internal/assistant"
	"shop-pos/internal/middleware"

	"github.com/gin-gonic/gin"
)

type AskRequest struct {
	Message string `json:"message" binding:"required"`
}

// --- POST: /api/ask ---
func (h *Handler) AskAI(c *gin.Context) {
	var req AskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Message is required")
		return
	}

	reply, err := h.Assistant.Ask(c.Request.Context(), middleware.UserID(c), req.Message)
	if errors.Is(err, assistant.ErrDisabled) {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		log.Printf("assistant: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "AI Agent failed to respond"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"reply": reply})
}
