package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Owner is the public profile of a user as exposed next to listings and ratings
type Owner struct {
	ID        string  `json:"id" db:"id"`
	Name      string  `json:"name" db:"name"`
	AvatarURL *string `json:"avatar_url,omitempty" db:"avatar_url"`
}

// Listing represents a housing post. Listings are created by the posts
// feature; this service only filters them and maintains AverageRating.
type Listing struct {
	ID            string    `json:"id" db:"id"`
	OwnerID       string    `json:"owner_id" db:"owner_id"`
	Title         string    `json:"title" db:"title"`
	Description   *string   `json:"description,omitempty" db:"description"`
	Price         float64   `json:"price" db:"price"`
	Address       string    `json:"address" db:"address"`
	Capacity      int       `json:"capacity" db:"capacity"`
	Elevator      bool      `json:"elevator" db:"elevator"`
	Images        JSONArray `json:"images,omitempty" db:"images"`
	AverageRating float64   `json:"average_rating" db:"average_rating"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`
	Owner         Owner     `json:"owner" db:"owner"`
}

// ListingResult is a listing returned by a search, annotated with why it matched
type ListingResult struct {
	Listing
	MatchedReasons []string `json:"matched_reasons"`
}

// JSONArray represents a JSON array field
type JSONArray []string

// Value implements driver.Valuer interface
func (j JSONArray) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

// Scan implements sql.Scanner interface
func (j *JSONArray) Scan(value interface{}) error {
	return scanJSON(value, j)
}

// JSONMap represents a JSON object field
type JSONMap map[string]interface{}

// Value implements driver.Valuer interface
func (j JSONMap) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

// Scan implements sql.Scanner interface
func (j *JSONMap) Scan(value interface{}) error {
	return scanJSON(value, j)
}

func scanJSON(value interface{}, target interface{}) error {
	switch v := value.(type) {
	case nil:
		return nil
	case []byte:
		return json.Unmarshal(v, target)
	case string:
		return json.Unmarshal([]byte(v), target)
	default:
		return fmt.Errorf("unsupported JSON column type %T", value)
	}
}
