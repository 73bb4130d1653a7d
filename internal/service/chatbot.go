package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"dario/internal/logger"
	"dario/internal/metrics"
	"dario/internal/model"
	"dario/internal/repository"
	"dario/internal/response"

	"github.com/google/uuid"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// Fixed chatbot replies
const (
	NoMatchText  = "Sorry, I could not find any housing matching your criteria."
	NoDataText   = "Sorry, I do not have any price data for this location yet."
	ApologyText  = "Sorry, something went wrong on our side. Please try again later."
	historyLimit = 50
)

// ChatStore is the persistence used by the chatbot
type ChatStore interface {
	AveragePriceByAddress(ctx context.Context, location string) (*repository.PriceStats, error)
	InsertChatTurn(ctx context.Context, userMsg, reply *model.Message) error
	ListConversation(ctx context.Context, userID, peerID string, limit int) ([]model.Message, error)
}

// Searcher runs listing searches for the chatbot
type Searcher interface {
	Search(ctx context.Context, criteria model.SearchCriteria) ([]model.ListingResult, error)
}

// ChatbotConfig is the chatbot identity and reply formatting
type ChatbotConfig struct {
	BotUserID string
	Language  string
	Currency  string
}

// Chatbot routes user messages to the intent handlers and records the turn
type Chatbot struct {
	cfg         ChatbotConfig
	detector    Detector
	search      Searcher
	store       ChatStore
	broadcaster Broadcaster
	metrics     *metrics.Metrics
	printer     *message.Printer
	now         func() time.Time
}

// NewChatbot creates a new chatbot. broadcaster and m may be nil.
func NewChatbot(
	cfg ChatbotConfig,
	detector Detector,
	search Searcher,
	store ChatStore,
	broadcaster Broadcaster,
	m *metrics.Metrics,
) *Chatbot {
	return &Chatbot{
		cfg:         cfg,
		detector:    detector,
		search:      search,
		store:       store,
		broadcaster: broadcaster,
		metrics:     m,
		printer:     message.NewPrinter(language.Make(cfg.Language)),
		now:         time.Now,
	}
}

// Send answers one user message. The user message and the reply are stored
// and pushed to the user's realtime connections. A failed NLU call or search
// is logged and answered with the apology, which is stored like any reply.
// Only a failure to store the turn is returned as an error.
func (b *Chatbot) Send(ctx context.Context, userID, text string) (*model.ChatTurn, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, response.NewValidation("text is required")
	}

	start := time.Now()
	detection, err := b.detector.Detect(ctx, text, userID)
	if b.metrics != nil {
		b.metrics.NLUDurationSeconds.Observe(time.Since(start).Seconds())
	}
	if err != nil {
		b.logFailure(userID, "nlu", err)
		return b.record(ctx, userID, text, nil, nil, textMessage(ApologyText))
	}

	intent := DecodeIntent(detection)
	intentName := intent.Name()
	params := model.JSONMap(detection.Parameters)

	reply, err := b.dispatch(ctx, intent)
	if err != nil {
		b.logFailure(userID, intentName, err)
		reply = textMessage(ApologyText)
	} else {
		b.countIntent(intent)
	}

	return b.record(ctx, userID, text, &intentName, params, reply)
}

// record stores the user message with its reply and publishes both
func (b *Chatbot) record(
	ctx context.Context,
	userID, text string,
	intentName *string,
	params model.JSONMap,
	reply *model.Message,
) (*model.ChatTurn, error) {
	now := b.now().UTC()

	userMsg := &model.Message{
		ID:         uuid.NewString(),
		SenderID:   userID,
		ReceiverID: b.cfg.BotUserID,
		Text:       text,
		Type:       model.MessageTypeText,
		Intent:     intentName,
		Parameters: params,
		CreatedAt:  now,
	}
	reply.ID = uuid.NewString()
	reply.SenderID = b.cfg.BotUserID
	reply.ReceiverID = userID
	reply.Intent = intentName
	reply.Parameters = params
	// one microsecond apart keeps the pair ordered in history
	reply.CreatedAt = now.Add(time.Microsecond)

	if err := b.store.InsertChatTurn(ctx, userMsg, reply); err != nil {
		return nil, b.fail(ctx, userID, "store", err)
	}

	b.publish(ctx, userID, model.EventMessageResponse, userMsg)
	b.publish(ctx, userID, model.EventMessageResponse, reply)

	return &model.ChatTurn{UserMessage: userMsg, Reply: reply}, nil
}

// History returns the latest messages between the user and the chatbot
func (b *Chatbot) History(ctx context.Context, userID string) ([]model.Message, error) {
	return b.store.ListConversation(ctx, userID, b.cfg.BotUserID, historyLimit)
}

func (b *Chatbot) dispatch(ctx context.Context, intent model.Intent) (*model.Message, error) {
	switch in := intent.(type) {
	case model.SearchHousingIntent:
		return b.searchHousing(ctx, in)
	case model.PriceInquiryIntent:
		return b.priceInquiry(ctx, in)
	case model.FallbackIntent:
		return textMessage(in.FulfillmentText), nil
	default:
		return nil, fmt.Errorf("unhandled intent %T", intent)
	}
}

func (b *Chatbot) searchHousing(ctx context.Context, in model.SearchHousingIntent) (*model.Message, error) {
	results, err := b.search.Search(ctx, in.Criteria)
	if err != nil {
		return nil, fmt.Errorf("search listings: %w", err)
	}
	if len(results) == 0 {
		return textMessage(NoMatchText), nil
	}
	return &model.Message{
		Type:     model.MessageTypeListings,
		Listings: model.ListingsPayload(results),
	}, nil
}

func (b *Chatbot) priceInquiry(ctx context.Context, in model.PriceInquiryIntent) (*model.Message, error) {
	if in.Location == "" {
		if in.FulfillmentText != "" {
			return textMessage(in.FulfillmentText), nil
		}
		return textMessage(NoDataText), nil
	}

	stats, err := b.store.AveragePriceByAddress(ctx, in.Location)
	if err != nil {
		return nil, fmt.Errorf("average price: %w", err)
	}
	if stats.Count == 0 {
		return textMessage(NoDataText), nil
	}
	return textMessage(b.formatAveragePrice(in.Location, stats.Average)), nil
}

func (b *Chatbot) formatAveragePrice(location string, avg float64) string {
	return b.printer.Sprintf("The average price in %s is %v %s.",
		location, number.Decimal(avg, number.MaxFractionDigits(2)), b.cfg.Currency)
}

func (b *Chatbot) logFailure(userID, stage string, err error) {
	logger.Error().Err(err).Str("user_id", userID).Str("stage", stage).Msg("chatbot request failed")
	if b.metrics != nil {
		b.metrics.ChatbotFailuresTotal.WithLabelValues(stage).Inc()
	}
}

// fail handles a turn that could not be stored. The user's realtime
// connections get chatbotError and the caller gets the apology.
func (b *Chatbot) fail(ctx context.Context, userID, stage string, err error) error {
	b.logFailure(userID, stage, err)
	b.publish(ctx, userID, model.EventChatbotError, model.ChatbotErrorPayload{Message: ApologyText})
	return response.NewUnavailable(ApologyText)
}

func (b *Chatbot) publish(ctx context.Context, userID, name string, data interface{}) {
	if b.broadcaster == nil {
		return
	}
	event, err := model.NewSocketEvent(name, data)
	if err != nil {
		logger.Error().Err(err).Str("event", name).Msg("failed to encode realtime event")
		return
	}
	if err := b.broadcaster.Publish(ctx, userID, event); err != nil {
		logger.Warn().Err(err).Str("user_id", userID).Str("event", name).Msg("failed to publish realtime event")
	}
}

func (b *Chatbot) countIntent(intent model.Intent) {
	if b.metrics == nil {
		return
	}
	label := intent.Name()
	if _, ok := intent.(model.FallbackIntent); ok {
		label = "fallback"
	}
	b.metrics.IntentsTotal.WithLabelValues(label).Inc()
}

func textMessage(text string) *model.Message {
	return &model.Message{Type: model.MessageTypeText, Text: text}
}
