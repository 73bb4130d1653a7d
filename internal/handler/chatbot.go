package handler

import (
	"context"
	"net/http"

	"dario/internal/middleware"
	"dario/internal/model"
	"dario/internal/response"

	"github.com/gin-gonic/gin"
)

// ChatService is the chatbot behind the chatbot endpoints
type ChatService interface {
	Send(ctx context.Context, userID, text string) (*model.ChatTurn, error)
	History(ctx context.Context, userID string) ([]model.Message, error)
}

// ChatbotHandler handles chatbot HTTP requests
type ChatbotHandler struct {
	chat ChatService
}

// NewChatbotHandler creates a new chatbot handler
func NewChatbotHandler(chat ChatService) *ChatbotHandler {
	return &ChatbotHandler{chat: chat}
}

// Send handles POST /chatbot. The reply is returned synchronously and also
// pushed to the caller's realtime connections.
func (h *ChatbotHandler) Send(c *gin.Context) {
	var req model.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, response.NewValidation("text is required"))
		return
	}

	turn, err := h.chat.Send(c.Request.Context(), middleware.GetUserID(c), req.Text)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, turn)
}

// History handles GET /chatbot
func (h *ChatbotHandler) History(c *gin.Context) {
	messages, err := h.chat.History(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": messages})
}
