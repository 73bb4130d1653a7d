package handler

import (
	"net/http"

	"dario/internal/model"
	"dario/internal/response"

	"github.com/gin-gonic/gin"
)

// EmbeddingHandler handles embedding-related HTTP requests
type EmbeddingHandler struct {
	listings ListingService
}

// NewEmbeddingHandler creates a new embedding handler
func NewEmbeddingHandler(listings ListingService) *EmbeddingHandler {
	return &EmbeddingHandler{listings: listings}
}

// BatchUpdate handles POST /api/v1/listings/embeddings/batch. A partially
// applied batch answers 207 with the per-item errors.
func (h *EmbeddingHandler) BatchUpdate(c *gin.Context) {
	var req model.EmbeddingBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, response.NewValidation("invalid request: "+err.Error()))
		return
	}
	if len(req.Embeddings) == 0 {
		response.Error(c, response.NewValidation("no embeddings provided"))
		return
	}

	res := h.listings.UpdateEmbeddings(c.Request.Context(), req.Embeddings)
	if len(res.Errors) > 0 {
		c.JSON(http.StatusMultiStatus, res)
		return
	}
	c.JSON(http.StatusOK, res)
}
