package handler

import (
	"context"
	"net/http"

	"dario/internal/middleware"
	"dario/internal/model"
	"dario/internal/response"

	"github.com/gin-gonic/gin"
)

// RatingService is the rating logic behind the evaluation endpoints
type RatingService interface {
	Rate(ctx context.Context, listingID, raterID string, score float64) (*model.RateResponse, error)
	Unrate(ctx context.Context, listingID, raterID string) (*model.RateResponse, error)
	ListRatings(ctx context.Context, listingID string) (*model.RatingSummary, error)
	MyRating(ctx context.Context, listingID, raterID string) (*model.Rating, error)
}

// EvaluationHandler handles listing rating HTTP requests
type EvaluationHandler struct {
	ratings RatingService
}

// NewEvaluationHandler creates a new evaluation handler
func NewEvaluationHandler(ratings RatingService) *EvaluationHandler {
	return &EvaluationHandler{ratings: ratings}
}

// Register mounts the evaluation routes on an authenticated group
func (h *EvaluationHandler) Register(rg *gin.RouterGroup) {
	rg.POST("/evaluations/:postId", h.Rate)
	rg.DELETE("/evaluations/:postId", h.Unrate)
	rg.GET("/evaluations/:postId", h.List)
	rg.GET("/evaluations/:postId/mine", h.Mine)
}

// Rate handles POST /evaluations/:postId
func (h *EvaluationHandler) Rate(c *gin.Context) {
	var req model.RateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, response.NewValidation("rating must be a number between 1 and 5"))
		return
	}

	res, err := h.ratings.Rate(c.Request.Context(), c.Param("postId"), middleware.GetUserID(c), *req.Rating)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// Unrate handles DELETE /evaluations/:postId
func (h *EvaluationHandler) Unrate(c *gin.Context) {
	res, err := h.ratings.Unrate(c.Request.Context(), c.Param("postId"), middleware.GetUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// List handles GET /evaluations/:postId
func (h *EvaluationHandler) List(c *gin.Context) {
	summary, err := h.ratings.ListRatings(c.Request.Context(), c.Param("postId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// Mine handles GET /evaluations/:postId/mine
func (h *EvaluationHandler) Mine(c *gin.Context) {
	rating, err := h.ratings.MyRating(c.Request.Context(), c.Param("postId"), middleware.GetUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, rating)
}
