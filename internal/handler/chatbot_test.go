package handler

import (
	"errors"
	"net/http"
	"testing"

	"dario/internal/model"
	"dario/internal/response"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const apology = "Sorry, something went wrong on our side. Please try again later."

func newChatbotRouter(chat ChatService) *gin.Engine {
	r := gin.New()
	h := NewChatbotHandler(chat)
	g := r.Group("", withUser("u1"))
	g.POST("/chatbot", h.Send)
	g.GET("/chatbot", h.History)
	return r
}

func TestChatbot_Send(t *testing.T) {
	chat := &fakeChat{turn: &model.ChatTurn{
		UserMessage: &model.Message{ID: "m1", Text: "appartement"},
		Reply: &model.Message{ID: "m2", Type: model.MessageTypeListings,
			Listings: model.ListingsPayload{{Listing: model.Listing{ID: "l1", Price: 1500}}}},
	}}

	w := doJSON(t, newChatbotRouter(chat), http.MethodPost, "/chatbot", map[string]string{"text": "appartement"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "u1", chat.gotUser)
	assert.Equal(t, "appartement", chat.gotText)

	var turn model.ChatTurn
	decode(t, w, &turn)
	require.Len(t, turn.Reply.Listings, 1)
	assert.Equal(t, "l1", turn.Reply.Listings[0].ID)
}

func TestChatbot_SendErrors(t *testing.T) {
	tests := []struct {
		name       string
		body       interface{}
		err        error
		wantStatus int
		wantMsg    string
	}{
		{"missing text", map[string]string{}, nil, http.StatusBadRequest, "text is required"},
		{"collaborator failure", map[string]string{"text": "hi"}, response.NewUnavailable(apology), http.StatusServiceUnavailable, apology},
		{"unexpected failure", map[string]string{"text": "hi"}, errors.New("boom"), http.StatusInternalServerError, "internal server error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(t, newChatbotRouter(&fakeChat{err: tt.err}), http.MethodPost, "/chatbot", tt.body)
			assert.Equal(t, tt.wantStatus, w.Code)

			var body map[string]interface{}
			decode(t, w, &body)
			assert.Equal(t, tt.wantMsg, body["error"])
		})
	}
}

func TestChatbot_History(t *testing.T) {
	chat := &fakeChat{history: []model.Message{{ID: "m1", Text: "bonjour"}, {ID: "m2", Text: "Salut"}}}

	w := doJSON(t, newChatbotRouter(chat), http.MethodGet, "/chatbot", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Messages []model.Message `json:"messages"`
	}
	decode(t, w, &body)
	assert.Len(t, body.Messages, 2)
	assert.Equal(t, "u1", chat.gotUser)
}
