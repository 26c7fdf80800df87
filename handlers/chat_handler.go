package handlers

import (
	"errors"
	"log"
	"net/http"

	"sommelier-backend/service"

	"github.com/gin-gonic/gin"
)

// ChatHandler handles HTTP requests for the chat endpoint
type ChatHandler struct {
	chatService *service.ChatService
}

// NewChatHandler creates a new chat handler
func NewChatHandler(chatService *service.ChatService) *ChatHandler {
	return &ChatHandler{
		chatService: chatService,
	}
}

// ChatRequest represents the request body for a chat query
type ChatRequest struct {
	Prompt string `json:"prompt"`
}

// Chat handles POST /api/chat
func (h *ChatHandler) Chat(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Prompt is required"})
		return
	}

	result, err := h.chatService.Chat(c.Request.Context(), service.ChatRequest{
		Email:  sessionEmail(c),
		Prompt: req.Prompt,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEmptyPrompt):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Prompt is required"})
		case errors.Is(err, service.ErrQuotaExceeded):
			c.JSON(http.StatusForbidden, gin.H{"error": service.QuotaExceededMessage})
		default:
			log.Printf("Chat error: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get answer"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"answer": result.Answer})
}
