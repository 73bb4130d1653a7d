package model

// SearchPageSize is the fixed number of listings returned per search page
const SearchPageSize = 7

// EmbeddingDimensions is the width of the listings.embedding vector column
const EmbeddingDimensions = 384

// SearchCriteria holds the optional listing filters. A nil field imposes no
// constraint; HasElevator distinguishes "unset" from false.
type SearchCriteria struct {
	MinPrice    *float64 `json:"min_price,omitempty" form:"min_price"`
	MaxPrice    *float64 `json:"max_price,omitempty" form:"max_price"`
	Address     *string  `json:"address,omitempty" form:"address"`
	MinCapacity *int     `json:"min_capacity,omitempty" form:"min_capacity"`
	HasElevator *bool    `json:"has_elevator,omitempty" form:"has_elevator"`
}

// IsEmpty reports whether no filter is set
func (c SearchCriteria) IsEmpty() bool {
	return c.MinPrice == nil && c.MaxPrice == nil && c.Address == nil &&
		c.MinCapacity == nil && c.HasElevator == nil
}

// SearchQuery is the query string accepted by GET /api/v1/listings/search
type SearchQuery struct {
	SearchCriteria
	Page int `form:"page"`
}

// SearchResponse represents a page of search results
type SearchResponse struct {
	Results  []ListingResult `json:"results"`
	Page     int             `json:"page"`
	PageSize int             `json:"page_size"`
	HasMore  bool            `json:"has_more"`
	Took     int64           `json:"took_ms"`
}

// EmbeddingBatchRequest represents a batch embedding update request
type EmbeddingBatchRequest struct {
	Embeddings []EmbeddingItem `json:"embeddings" binding:"required"`
}

// EmbeddingItem is one listing embedding
type EmbeddingItem struct {
	ListingID string    `json:"listing_id" binding:"required"`
	Embedding []float32 `json:"embedding" binding:"required"`
}

// EmbeddingBatchResponse represents the response for batch embedding update
type EmbeddingBatchResponse struct {
	Success int      `json:"success"`
	Failed  int      `json:"failed"`
	Errors  []string `json:"errors,omitempty"`
}
