package model

// Intent names understood by the chatbot
const (
	IntentSearchHousing = "search_housing"
	IntentPriceInquiry  = "price_inquiry"
)

// Detection is what the NLU collaborator returns for one utterance
type Detection struct {
	Intent          string                 `json:"intent"`
	Parameters      map[string]interface{} `json:"parameters,omitempty"`
	FulfillmentText string                 `json:"fulfillment_text,omitempty"`
}

// Intent is a decoded detection. Each variant carries its own typed parameters.
type Intent interface {
	Name() string
}

// SearchHousingIntent asks for listings matching the criteria
type SearchHousingIntent struct {
	Criteria SearchCriteria
}

func (SearchHousingIntent) Name() string { return IntentSearchHousing }

// PriceInquiryIntent asks for the average price around a location
type PriceInquiryIntent struct {
	Location        string
	FulfillmentText string
}

func (PriceInquiryIntent) Name() string { return IntentPriceInquiry }

// FallbackIntent covers every other intent; the reply is the NLU text verbatim
type FallbackIntent struct {
	IntentName      string
	FulfillmentText string
}

func (i FallbackIntent) Name() string { return i.IntentName }
