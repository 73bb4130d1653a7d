package handler

import (
	"context"
	"net/http"

	"dario/internal/model"
	"dario/internal/response"

	"github.com/gin-gonic/gin"
)

// ListingService is the listing search behind the listing endpoints
type ListingService interface {
	SearchPage(ctx context.Context, query model.SearchQuery) (*model.SearchResponse, error)
	GetListing(ctx context.Context, id string) (*model.Listing, error)
	Similar(ctx context.Context, id string) ([]model.ListingResult, error)
	UpdateEmbeddings(ctx context.Context, items []model.EmbeddingItem) *model.EmbeddingBatchResponse
}

// SearchHandler handles listing search HTTP requests
type SearchHandler struct {
	listings ListingService
}

// NewSearchHandler creates a new search handler
func NewSearchHandler(listings ListingService) *SearchHandler {
	return &SearchHandler{listings: listings}
}

// Search handles GET /api/v1/listings/search
func (h *SearchHandler) Search(c *gin.Context) {
	var query model.SearchQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, response.NewValidation("invalid search criteria: "+err.Error()))
		return
	}

	res, err := h.listings.SearchPage(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// GetListing handles GET /api/v1/listings/:id
func (h *SearchHandler) GetListing(c *gin.Context) {
	listing, err := h.listings.GetListing(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, listing)
}

// Similar handles GET /api/v1/listings/:id/similar
func (h *SearchHandler) Similar(c *gin.Context) {
	results, err := h.listings.Similar(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": results})
}
