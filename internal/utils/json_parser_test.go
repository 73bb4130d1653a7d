package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type detection struct {
	Intent          string                 `json:"intent"`
	Parameters      map[string]interface{} `json:"parameters"`
	FulfillmentText string                 `json:"fulfillment_text"`
}

func TestParseAIJSON(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		wantIntent string
		wantParams map[string]interface{}
		wantText   string
	}{
		{
			name:       "plain object",
			input:      `{"intent": "search_housing", "parameters": {"location": "Rabat"}}`,
			wantIntent: "search_housing",
			wantParams: map[string]interface{}{"location": "Rabat"},
		},
		{
			name:       "fenced block",
			input:      "```json\n{\"intent\": \"price_inquiry\", \"parameters\": {\"location\": \"Fès\"}}\n```",
			wantIntent: "price_inquiry",
			wantParams: map[string]interface{}{"location": "Fès"},
		},
		{
			name:       "surrounded by prose",
			input:      `Sure! {"intent": "search_housing", "parameters": {"max_price": 2000}} Hope it helps.`,
			wantIntent: "search_housing",
			wantParams: map[string]interface{}{"max_price": float64(2000)},
		},
		{
			name:       "trailing comma",
			input:      `{"intent": "search_housing", "parameters": {"min_capacity": 2,},}`,
			wantIntent: "search_housing",
			wantParams: map[string]interface{}{"min_capacity": float64(2)},
		},
		{
			name:       "bare keys",
			input:      `{intent: "small_talk", parameters: {}}`,
			wantIntent: "small_talk",
			wantParams: map[string]interface{}{},
		},
		{
			name:       "single quotes",
			input:      `{'intent': 'search_housing', 'parameters': {'location': 'Salé'}}`,
			wantIntent: "search_housing",
			wantParams: map[string]interface{}{"location": "Salé"},
		},
		{
			name:       "key-like text inside a value",
			input:      `{"intent": "small_talk", "fulfillment_text": "Voici, prix: 2000",}`,
			wantIntent: "small_talk",
			wantText:   "Voici, prix: 2000",
		},
		{
			name:       "key-like text inside a single quoted value",
			input:      `{intent: 'small_talk', fulfillment_text: 'Voici, prix: 2000'}`,
			wantIntent: "small_talk",
			wantText:   "Voici, prix: 2000",
		},
		{
			name:       "apostrophe inside a double quoted value",
			input:      `{"intent": "small_talk", "fulfillment_text": "Je n'ai pas compris",}`,
			wantIntent: "small_talk",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got detection
			require.NoError(t, ParseAIJSON(tt.input, &got))
			assert.Equal(t, tt.wantIntent, got.Intent)
			if tt.wantParams != nil {
				assert.Equal(t, tt.wantParams, got.Parameters)
			}
			if tt.wantText != "" {
				assert.Equal(t, tt.wantText, got.FulfillmentText)
			}
		})
	}
}

func TestParseAIJSON_Errors(t *testing.T) {
	for _, input := range []string{"", "   ", "not json at all", "{unterminated"} {
		var got detection
		assert.Error(t, ParseAIJSON(input, &got), "input %q", input)
	}
}

func TestExtractObject(t *testing.T) {
	assert.Equal(t, `{"a": {"b": "}"}}`, extractObject(`noise {"a": {"b": "}"}} tail`))
	assert.Equal(t, "", extractObject("no braces"))
	assert.Equal(t, "", extractObject(`{"open": true`))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", Truncate("short", 10))
	assert.Equal(t, "Ràba...", Truncate("Ràbat", 4))
}

func TestQuoteBareKeys(t *testing.T) {
	assert.Equal(t, `{"a": 1, "b": "x, c: y"}`, quoteBareKeys(`{a: 1, b: "x, c: y"}`))
	assert.Equal(t, `{"a": "say \"hi\", d: 2"}`, quoteBareKeys(`{a: "say \"hi\", d: 2"}`))
}
