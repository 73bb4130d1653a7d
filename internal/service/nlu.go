package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"dario/internal/logger"
	"dario/internal/model"
	"dario/internal/utils"

	dialogflow "cloud.google.com/go/dialogflow/apiv2"
	"cloud.google.com/go/dialogflow/apiv2/dialogflowpb"
	"github.com/sashabaranov/go-openai"
	"google.golang.org/api/option"
)

// Detector resolves the intent of one utterance. sessionID scopes the NLU
// conversation context, one session per user.
type Detector interface {
	Detect(ctx context.Context, text, sessionID string) (*model.Detection, error)
}

type detectIntentFunc func(ctx context.Context, req *dialogflowpb.DetectIntentRequest) (*dialogflowpb.DetectIntentResponse, error)

// DialogflowDetector asks a Dialogflow ES agent for the intent
type DialogflowDetector struct {
	projectID    string
	languageCode string
	detect       detectIntentFunc
	close        func() error
}

// NewDialogflowDetector opens a sessions client. An empty credentialsFile
// falls back to application default credentials.
func NewDialogflowDetector(ctx context.Context, projectID, credentialsFile, languageCode string) (*DialogflowDetector, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	client, err := dialogflow.NewSessionsClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create dialogflow client: %w", err)
	}

	d := newDialogflowDetector(projectID, languageCode,
		func(ctx context.Context, req *dialogflowpb.DetectIntentRequest) (*dialogflowpb.DetectIntentResponse, error) {
			return client.DetectIntent(ctx, req)
		})
	d.close = client.Close
	return d, nil
}

func newDialogflowDetector(projectID, languageCode string, detect detectIntentFunc) *DialogflowDetector {
	return &DialogflowDetector{
		projectID:    projectID,
		languageCode: languageCode,
		detect:       detect,
		close:        func() error { return nil },
	}
}

// Detect implements Detector
func (d *DialogflowDetector) Detect(ctx context.Context, text, sessionID string) (*model.Detection, error) {
	req := &dialogflowpb.DetectIntentRequest{
		Session: fmt.Sprintf("projects/%s/agent/sessions/%s", d.projectID, sessionID),
		QueryInput: &dialogflowpb.QueryInput{
			Input: &dialogflowpb.QueryInput_Text{
				Text: &dialogflowpb.TextInput{
					Text:         text,
					LanguageCode: d.languageCode,
				},
			},
		},
	}

	resp, err := d.detect(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("dialogflow detect intent: %w", err)
	}

	result := resp.GetQueryResult()
	detection := &model.Detection{
		Intent:          result.GetIntent().GetDisplayName(),
		FulfillmentText: result.GetFulfillmentText(),
		Parameters:      map[string]interface{}{},
	}
	if params := result.GetParameters(); params != nil {
		detection.Parameters = params.AsMap()
	}
	return detection, nil
}

// Close releases the underlying gRPC connection
func (d *DialogflowDetector) Close() error {
	return d.close()
}

const llmSystemPrompt = `You classify messages sent to a housing assistant in Morocco.
Reply ONLY with a JSON object of the form
{"intent": string, "parameters": object, "fulfillment_text": string}.

Intents:
- "search_housing": the user looks for a place to rent. Parameters, all optional:
  min_price (number, Dhs), max_price (number, Dhs), location (city or district, string),
  min_capacity (integer, number of occupants), elevator (boolean, only if mentioned).
- "price_inquiry": the user asks what housing costs somewhere. Parameters: location (string).
- "small_talk": anything else. fulfillment_text is a short friendly answer in the user's language.

Rules:
- Omit parameters that are not mentioned.
- "2k" = 2000.
- fulfillment_text is always present, in the user's language.

Examples:
Message: "je cherche un appartement à Rabat moins de 2000 dh"
Response: {"intent": "search_housing", "parameters": {"location": "Rabat", "max_price": 2000}, "fulfillment_text": "Voici ce que j'ai trouvé."}

Message: "combien coûte un logement à Agadir ?"
Response: {"intent": "price_inquiry", "parameters": {"location": "Agadir"}, "fulfillment_text": "Je regarde les prix à Agadir."}

Message: "flat for 3 people with an elevator"
Response: {"intent": "search_housing", "parameters": {"min_capacity": 3, "elevator": true}, "fulfillment_text": "Here is what I found."}`

// LLMDetector classifies utterances with an OpenAI-compatible chat model
type LLMDetector struct {
	client  *openai.Client
	model   string
	timeout time.Duration
}

// NewLLMDetector creates a detector for the given endpoint and model
func NewLLMDetector(apiKey, baseURL, chatModel string, timeoutSeconds int) *LLMDetector {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = strings.TrimRight(baseURL, "/")
	}
	return &LLMDetector{
		client:  openai.NewClientWithConfig(cfg),
		model:   chatModel,
		timeout: time.Duration(timeoutSeconds) * time.Second,
	}
}

// Detect implements Detector. sessionID is unused: every call is classified
// on its own.
func (d *LLMDetector) Detect(ctx context.Context, text, sessionID string) (*model.Detection, error) {
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	resp, err := d.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: d.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: llmSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: text},
		},
		Temperature: 0.2,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("llm detect intent: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("llm detect intent: empty response")
	}

	content := resp.Choices[0].Message.Content
	var detection model.Detection
	if err := utils.ParseAIJSON(content, &detection); err != nil {
		logger.Warn().Str("content", utils.Truncate(content, 200)).Msg("unparseable intent response")
		return nil, fmt.Errorf("llm detect intent: %w", err)
	}
	if detection.Intent == "" {
		return nil, fmt.Errorf("llm detect intent: missing intent")
	}
	if detection.Parameters == nil {
		detection.Parameters = map[string]interface{}{}
	}
	return &detection, nil
}
