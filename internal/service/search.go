package service

import (
	"context"
	"fmt"
	"time"

	"dario/internal/model"
	"dario/internal/response"
)

// ListingStore is the listing persistence used by ListingSearch
type ListingStore interface {
	SearchListings(ctx context.Context, criteria model.SearchCriteria, limit, offset int) ([]model.Listing, error)
	GetListingByID(ctx context.Context, id string) (*model.Listing, error)
	SimilarListings(ctx context.Context, id string, limit int) ([]model.Listing, error)
	BatchUpdateEmbeddings(ctx context.Context, items []model.EmbeddingItem) (int, []string)
}

// ListingSearch handles listing search business logic
type ListingSearch struct {
	store ListingStore
	now   func() time.Time
}

// NewListingSearch creates a new listing search service
func NewListingSearch(store ListingStore) *ListingSearch {
	return &ListingSearch{store: store, now: time.Now}
}

// Search returns the first page of listings matching criteria, newest first
func (s *ListingSearch) Search(ctx context.Context, criteria model.SearchCriteria) ([]model.ListingResult, error) {
	listings, err := s.store.SearchListings(ctx, criteria, model.SearchPageSize, 0)
	if err != nil {
		return nil, err
	}
	return Annotate(listings, criteria, s.now()), nil
}

// SearchPage returns one page of results. Pages start at 1.
func (s *ListingSearch) SearchPage(ctx context.Context, query model.SearchQuery) (*model.SearchResponse, error) {
	start := time.Now()

	if err := validateCriteria(query.SearchCriteria); err != nil {
		return nil, err
	}

	page := query.Page
	if page < 1 {
		page = 1
	}

	// one extra row tells whether another page exists
	listings, err := s.store.SearchListings(ctx, query.SearchCriteria,
		model.SearchPageSize+1, (page-1)*model.SearchPageSize)
	if err != nil {
		return nil, err
	}

	hasMore := len(listings) > model.SearchPageSize
	if hasMore {
		listings = listings[:model.SearchPageSize]
	}

	return &model.SearchResponse{
		Results:  Annotate(listings, query.SearchCriteria, s.now()),
		Page:     page,
		PageSize: model.SearchPageSize,
		HasMore:  hasMore,
		Took:     time.Since(start).Milliseconds(),
	}, nil
}

func validateCriteria(c model.SearchCriteria) error {
	if (c.MinPrice != nil && *c.MinPrice < 0) || (c.MaxPrice != nil && *c.MaxPrice < 0) {
		return response.NewValidation("prices must not be negative")
	}
	if c.MinPrice != nil && c.MaxPrice != nil && *c.MinPrice > *c.MaxPrice {
		return response.NewValidation("min_price must not exceed max_price")
	}
	if c.MinCapacity != nil && *c.MinCapacity < 0 {
		return response.NewValidation("min_capacity must not be negative")
	}
	return nil
}

// GetListing retrieves a single listing by ID
func (s *ListingSearch) GetListing(ctx context.Context, id string) (*model.Listing, error) {
	listing, err := s.store.GetListingByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if listing == nil {
		return nil, response.NewNotFound("listing not found")
	}
	return listing, nil
}

// Similar returns the listings nearest to id by embedding distance
func (s *ListingSearch) Similar(ctx context.Context, id string) ([]model.ListingResult, error) {
	if _, err := s.GetListing(ctx, id); err != nil {
		return nil, err
	}
	listings, err := s.store.SimilarListings(ctx, id, model.SearchPageSize)
	if err != nil {
		return nil, err
	}
	return Annotate(listings, model.SearchCriteria{}, s.now()), nil
}

// UpdateEmbeddings updates embeddings for multiple listings. Vectors of the
// wrong width are rejected before reaching the database.
func (s *ListingSearch) UpdateEmbeddings(ctx context.Context, items []model.EmbeddingItem) *model.EmbeddingBatchResponse {
	valid := make([]model.EmbeddingItem, 0, len(items))
	var errs []string
	for _, item := range items {
		if len(item.Embedding) != model.EmbeddingDimensions {
			errs = append(errs, fmt.Sprintf("listing %s: embedding must have %d dimensions",
				item.ListingID, model.EmbeddingDimensions))
			continue
		}
		valid = append(valid, item)
	}

	success := 0
	if len(valid) > 0 {
		var storeErrs []string
		success, storeErrs = s.store.BatchUpdateEmbeddings(ctx, valid)
		errs = append(errs, storeErrs...)
	}

	return &model.EmbeddingBatchResponse{
		Success: success,
		Failed:  len(items) - success,
		Errors:  errs,
	}
}
