package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"dario/internal/middleware"
	"dario/internal/model"
	"dario/internal/response"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// withUser stands in for the auth middleware
func withUser(userID string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.ContextUserID, userID)
		c.Next()
	}
}

func doJSON(t *testing.T, r http.Handler, method, target string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			require.NoError(t, json.NewEncoder(&buf).Encode(b))
		}
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v))
}

type fakeRatings struct {
	gotListing string
	gotRater   string
	gotScore   float64
	err        error
}

func (f *fakeRatings) Rate(_ context.Context, listingID, raterID string, score float64) (*model.RateResponse, error) {
	f.gotListing, f.gotRater, f.gotScore = listingID, raterID, score
	if f.err != nil {
		return nil, f.err
	}
	if score != float64(int(score)) || score < 1 || score > 5 {
		return nil, response.NewValidation("rating must be an integer between 1 and 5")
	}
	return &model.RateResponse{ListingID: listingID, AverageRating: score}, nil
}

func (f *fakeRatings) Unrate(_ context.Context, listingID, raterID string) (*model.RateResponse, error) {
	f.gotListing, f.gotRater = listingID, raterID
	if f.err != nil {
		return nil, f.err
	}
	return &model.RateResponse{ListingID: listingID}, nil
}

func (f *fakeRatings) ListRatings(_ context.Context, listingID string) (*model.RatingSummary, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &model.RatingSummary{
		ListingID:     listingID,
		AverageRating: 4,
		Count:         1,
		Ratings:       []model.Rating{{ListingID: listingID, RaterID: "u9", Score: 4, Rater: model.Owner{ID: "u9", Name: "Hind"}}},
	}, nil
}

func (f *fakeRatings) MyRating(_ context.Context, listingID, raterID string) (*model.Rating, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &model.Rating{ListingID: listingID, RaterID: raterID, Score: 3}, nil
}

type fakeChat struct {
	turn    *model.ChatTurn
	history []model.Message
	err     error

	gotUser string
	gotText string
	onSend  func(userID, text string)
}

func (f *fakeChat) Send(_ context.Context, userID, text string) (*model.ChatTurn, error) {
	f.gotUser, f.gotText = userID, text
	if f.onSend != nil {
		f.onSend(userID, text)
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.turn, nil
}

func (f *fakeChat) History(_ context.Context, userID string) ([]model.Message, error) {
	f.gotUser = userID
	if f.err != nil {
		return nil, f.err
	}
	return f.history, nil
}

type fakeListings struct {
	gotQuery model.SearchQuery
	embedRes *model.EmbeddingBatchResponse
}

func (f *fakeListings) SearchPage(_ context.Context, query model.SearchQuery) (*model.SearchResponse, error) {
	f.gotQuery = query
	return &model.SearchResponse{Results: []model.ListingResult{}, Page: 1, PageSize: model.SearchPageSize}, nil
}

func (f *fakeListings) GetListing(_ context.Context, id string) (*model.Listing, error) {
	if id == "ghost" {
		return nil, response.NewNotFound("listing not found")
	}
	return &model.Listing{ID: id, Price: 1500}, nil
}

func (f *fakeListings) Similar(_ context.Context, id string) ([]model.ListingResult, error) {
	return []model.ListingResult{{Listing: model.Listing{ID: "near-" + id}}}, nil
}

func (f *fakeListings) UpdateEmbeddings(_ context.Context, items []model.EmbeddingItem) *model.EmbeddingBatchResponse {
	return f.embedRes
}
