package model

import (
	"database/sql/driver"
	"encoding/json"
	"time"
)

// Message types
const (
	MessageTypeText     = "text"
	MessageTypeListings = "listings"
)

// Realtime event names
const (
	EventChatMessage     = "chatMessage"
	EventMessageResponse = "messageResponse"
	EventChatbotError    = "chatbotError"
)

// Message is one append-only chat log entry between a user and the chatbot
type Message struct {
	ID         string          `json:"id" db:"id"`
	SenderID   string          `json:"sender_id" db:"sender_id"`
	ReceiverID string          `json:"receiver_id" db:"receiver_id"`
	Text       string          `json:"text" db:"text"`
	Type       string          `json:"type" db:"type"`
	Listings   ListingsPayload `json:"listings,omitempty" db:"listings"`
	Intent     *string         `json:"intent,omitempty" db:"intent"`
	Parameters JSONMap         `json:"parameters,omitempty" db:"parameters"`
	CreatedAt  time.Time       `json:"created_at" db:"created_at"`
}

// ListingsPayload is the structured reply attached to a listings message
type ListingsPayload []ListingResult

// Value implements driver.Valuer interface
func (p ListingsPayload) Value() (driver.Value, error) {
	if p == nil {
		return nil, nil
	}
	return json.Marshal(p)
}

// Scan implements sql.Scanner interface
func (p *ListingsPayload) Scan(value interface{}) error {
	return scanJSON(value, p)
}

// ChatRequest is the body of POST /chatbot
type ChatRequest struct {
	Text string `json:"text" binding:"required"`
}

// ChatTurn is the pair of messages produced by one chatbot call
type ChatTurn struct {
	UserMessage *Message `json:"user_message"`
	Reply       *Message `json:"reply"`
}

// SocketEvent is the envelope exchanged over the realtime channel
type SocketEvent struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// ChatMessagePayload is the data of an inbound chatMessage event
type ChatMessagePayload struct {
	UserID string `json:"userId"`
	Text   string `json:"text"`
}

// ChatbotErrorPayload is the data of an outbound chatbotError event
type ChatbotErrorPayload struct {
	Message string `json:"message"`
}

// NewSocketEvent wraps data in an event envelope
func NewSocketEvent(event string, data interface{}) (SocketEvent, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return SocketEvent{}, err
	}
	return SocketEvent{Event: event, Data: raw}, nil
}
