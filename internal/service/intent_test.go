package service

import (
	"testing"

	"dario/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeIntent_SearchHousing(t *testing.T) {
	tests := []struct {
		name   string
		params map[string]interface{}
		check  func(t *testing.T, c model.SearchCriteria)
	}{
		{
			name:   "budget and city",
			params: map[string]interface{}{"max_price": 2000.0, "location": "Rabat"},
			check: func(t *testing.T, c model.SearchCriteria) {
				require.NotNil(t, c.MaxPrice)
				assert.Equal(t, 2000.0, *c.MaxPrice)
				assert.Nil(t, c.MinPrice)
				require.NotNil(t, c.Address)
				assert.Equal(t, "Rabat", *c.Address)
				assert.Nil(t, c.HasElevator)
			},
		},
		{
			name:   "empty strings are unset",
			params: map[string]interface{}{"min_price": "", "location": "", "elevator": "", "capacity": ""},
			check: func(t *testing.T, c model.SearchCriteria) {
				assert.True(t, c.IsEmpty())
			},
		},
		{
			name:   "numeric strings and currency objects",
			params: map[string]interface{}{"min_price": "1000", "max_price": map[string]interface{}{"amount": 2500.0, "currency": "MAD"}},
			check: func(t *testing.T, c model.SearchCriteria) {
				require.NotNil(t, c.MinPrice)
				require.NotNil(t, c.MaxPrice)
				assert.Equal(t, 1000.0, *c.MinPrice)
				assert.Equal(t, 2500.0, *c.MaxPrice)
			},
		},
		{
			name:   "explicit false elevator is kept",
			params: map[string]interface{}{"elevator": false},
			check: func(t *testing.T, c model.SearchCriteria) {
				require.NotNil(t, c.HasElevator)
				assert.False(t, *c.HasElevator)
			},
		},
		{
			name:   "french yes for elevator",
			params: map[string]interface{}{"elevator": "Oui"},
			check: func(t *testing.T, c model.SearchCriteria) {
				require.NotNil(t, c.HasElevator)
				assert.True(t, *c.HasElevator)
			},
		},
		{
			name:   "min_capacity wins over capacity",
			params: map[string]interface{}{"min_capacity": 3.0, "capacity": 1.0},
			check: func(t *testing.T, c model.SearchCriteria) {
				require.NotNil(t, c.MinCapacity)
				assert.Equal(t, 3, *c.MinCapacity)
			},
		},
		{
			name:   "structured location prefers the city",
			params: map[string]interface{}{"location": map[string]interface{}{"country": "Maroc", "city": "Fès", "street-address": ""}},
			check: func(t *testing.T, c model.SearchCriteria) {
				require.NotNil(t, c.Address)
				assert.Equal(t, "Fès", *c.Address)
			},
		},
		{
			name:   "garbage numbers are ignored",
			params: map[string]interface{}{"max_price": "cheap"},
			check: func(t *testing.T, c model.SearchCriteria) {
				assert.Nil(t, c.MaxPrice)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			intent := DecodeIntent(&model.Detection{Intent: model.IntentSearchHousing, Parameters: tt.params})
			search, ok := intent.(model.SearchHousingIntent)
			require.True(t, ok)
			tt.check(t, search.Criteria)
		})
	}
}

func TestDecodeIntent_PriceInquiry(t *testing.T) {
	intent := DecodeIntent(&model.Detection{
		Intent:          model.IntentPriceInquiry,
		Parameters:      map[string]interface{}{"location": []interface{}{"", " Casablanca "}},
		FulfillmentText: "Je regarde les prix.",
	})

	price, ok := intent.(model.PriceInquiryIntent)
	require.True(t, ok)
	assert.Equal(t, "Casablanca", price.Location)
	assert.Equal(t, "Je regarde les prix.", price.FulfillmentText)
	assert.Equal(t, model.IntentPriceInquiry, price.Name())
}

func TestDecodeIntent_Fallback(t *testing.T) {
	intent := DecodeIntent(&model.Detection{Intent: "Default Fallback Intent", FulfillmentText: "Pouvez-vous reformuler ?"})

	fallback, ok := intent.(model.FallbackIntent)
	require.True(t, ok)
	assert.Equal(t, "Default Fallback Intent", fallback.Name())
	assert.Equal(t, "Pouvez-vous reformuler ?", fallback.FulfillmentText)
}
