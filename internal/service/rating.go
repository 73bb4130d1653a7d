package service

import (
	"context"
	"errors"
	"math"

	"dario/internal/metrics"
	"dario/internal/model"
	"dario/internal/repository"
	"dario/internal/response"
)

// RatingStore is the rating persistence used by RatingService
type RatingStore interface {
	GetListingByID(ctx context.Context, id string) (*model.Listing, error)
	UpsertRating(ctx context.Context, listingID, raterID string, score int) (float64, error)
	DeleteRating(ctx context.Context, listingID, raterID string) (float64, error)
	ListRatings(ctx context.Context, listingID string) ([]model.Rating, error)
	GetRating(ctx context.Context, listingID, raterID string) (*model.Rating, error)
}

// RatingService keeps each listing's average rating in step with its ratings
type RatingService struct {
	store   RatingStore
	metrics *metrics.Metrics
}

// NewRatingService creates a new rating service
func NewRatingService(store RatingStore, m *metrics.Metrics) *RatingService {
	return &RatingService{store: store, metrics: m}
}

// Rate creates or overwrites the caller's rating and returns the new average
func (s *RatingService) Rate(ctx context.Context, listingID, raterID string, score float64) (*model.RateResponse, error) {
	if math.IsNaN(score) || score != math.Trunc(score) || score < model.MinScore || score > model.MaxScore {
		s.count("rate", "invalid")
		return nil, response.NewValidation("rating must be an integer between 1 and 5")
	}

	avg, err := s.store.UpsertRating(ctx, listingID, raterID, int(score))
	if err != nil {
		s.count("rate", "error")
		return nil, mapRatingError(err)
	}

	s.count("rate", "ok")
	return &model.RateResponse{ListingID: listingID, AverageRating: avg}, nil
}

// Unrate removes the caller's rating and returns the new average
func (s *RatingService) Unrate(ctx context.Context, listingID, raterID string) (*model.RateResponse, error) {
	avg, err := s.store.DeleteRating(ctx, listingID, raterID)
	if err != nil {
		s.count("unrate", "error")
		return nil, mapRatingError(err)
	}

	s.count("unrate", "ok")
	return &model.RateResponse{ListingID: listingID, AverageRating: avg}, nil
}

// ListRatings returns every rating of a listing with the stored average
func (s *RatingService) ListRatings(ctx context.Context, listingID string) (*model.RatingSummary, error) {
	listing, err := s.store.GetListingByID(ctx, listingID)
	if err != nil {
		return nil, err
	}
	if listing == nil {
		return nil, response.NewNotFound("listing not found")
	}

	ratings, err := s.store.ListRatings(ctx, listingID)
	if err != nil {
		return nil, err
	}

	return &model.RatingSummary{
		ListingID:     listingID,
		AverageRating: listing.AverageRating,
		Count:         len(ratings),
		Ratings:       ratings,
	}, nil
}

// MyRating returns the caller's own rating of a listing
func (s *RatingService) MyRating(ctx context.Context, listingID, raterID string) (*model.Rating, error) {
	rating, err := s.store.GetRating(ctx, listingID, raterID)
	if err != nil {
		return nil, err
	}
	if rating == nil {
		return nil, response.NewNotFound("rating not found")
	}
	return rating, nil
}

func (s *RatingService) count(op, status string) {
	if s.metrics != nil {
		s.metrics.RatingWritesTotal.WithLabelValues(op, status).Inc()
	}
}

func mapRatingError(err error) error {
	switch {
	case errors.Is(err, repository.ErrListingNotFound):
		return response.NewNotFound("listing not found")
	case errors.Is(err, repository.ErrRatingNotFound):
		return response.NewNotFound("rating not found")
	case errors.Is(err, repository.ErrRaterNotFound):
		return response.NewNotFound("user profile not found")
	default:
		return err
	}
}
