package model

import "time"

// MinScore and MaxScore bound a rating score
const (
	MinScore = 1
	MaxScore = 5
)

// Rating is one rater's score for one listing. (ListingID, RaterID) is unique.
type Rating struct {
	ListingID string    `json:"listing_id" db:"listing_id"`
	RaterID   string    `json:"rater_id" db:"rater_id"`
	Score     int       `json:"rating" db:"score"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
	Rater     Owner     `json:"rater" db:"rater"`
}

// RatingSummary is the response of GET /evaluations/:postId
type RatingSummary struct {
	ListingID     string   `json:"listing_id"`
	AverageRating float64  `json:"average_rating"`
	Count         int      `json:"count"`
	Ratings       []Rating `json:"ratings"`
}

// RateRequest is the body of POST /evaluations/:postId. Score is a number so
// that non-integers reach validation instead of failing JSON decoding.
type RateRequest struct {
	Rating *float64 `json:"rating" binding:"required"`
}

// RateResponse carries the listing average after a write
type RateResponse struct {
	ListingID     string  `json:"listing_id"`
	AverageRating float64 `json:"average_rating"`
}
