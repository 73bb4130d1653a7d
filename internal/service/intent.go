package service

import (
	"strings"

	"dario/internal/logger"
	"dario/internal/model"

	"github.com/spf13/cast"
)

// Parameter names sent by the NLU agent
const (
	paramMinPrice    = "min_price"
	paramMaxPrice    = "max_price"
	paramLocation    = "location"
	paramCapacity    = "capacity"
	paramMinCapacity = "min_capacity"
	paramElevator    = "elevator"
)

// locationKeys are the fields of a structured location in order of preference
var locationKeys = []string{"city", "subadmin-area", "street-address", "admin-area", "country"}

// DecodeIntent turns a raw detection into its typed variant. Parameters that
// are missing, empty or cannot be coerced are left unset.
func DecodeIntent(d *model.Detection) model.Intent {
	switch d.Intent {
	case model.IntentSearchHousing:
		return model.SearchHousingIntent{Criteria: decodeCriteria(d.Parameters)}
	case model.IntentPriceInquiry:
		return model.PriceInquiryIntent{
			Location:        decodeLocation(d.Parameters[paramLocation]),
			FulfillmentText: d.FulfillmentText,
		}
	default:
		return model.FallbackIntent{IntentName: d.Intent, FulfillmentText: d.FulfillmentText}
	}
}

func decodeCriteria(params map[string]interface{}) model.SearchCriteria {
	var c model.SearchCriteria

	c.MinPrice = decodeAmount(params, paramMinPrice)
	c.MaxPrice = decodeAmount(params, paramMaxPrice)

	if loc := decodeLocation(params[paramLocation]); loc != "" {
		c.Address = &loc
	}

	c.MinCapacity = decodeInt(params, paramMinCapacity)
	if c.MinCapacity == nil {
		c.MinCapacity = decodeInt(params, paramCapacity)
	}

	c.HasElevator = decodeBool(params, paramElevator)
	return c
}

// isBlank reports whether v carries no value. The NLU agent sends "" for
// parameters it could not fill.
func isBlank(v interface{}) bool {
	if v == nil {
		return true
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s) == ""
	}
	return false
}

// decodeAmount accepts a number, a numeric string or a currency object
// ({"amount": 2000, "currency": "MAD"}).
func decodeAmount(params map[string]interface{}, key string) *float64 {
	v, ok := params[key]
	if !ok || isBlank(v) {
		return nil
	}
	if m, ok := v.(map[string]interface{}); ok {
		v = m["amount"]
		if isBlank(v) {
			return nil
		}
	}
	f, err := cast.ToFloat64E(v)
	if err != nil {
		logger.Debug().Str("param", key).Interface("value", v).Msg("ignoring non-numeric parameter")
		return nil
	}
	return &f
}

func decodeInt(params map[string]interface{}, key string) *int {
	v, ok := params[key]
	if !ok || isBlank(v) {
		return nil
	}
	n, err := cast.ToIntE(v)
	if err != nil {
		logger.Debug().Str("param", key).Interface("value", v).Msg("ignoring non-integer parameter")
		return nil
	}
	return &n
}

func decodeBool(params map[string]interface{}, key string) *bool {
	v, ok := params[key]
	if !ok || isBlank(v) {
		return nil
	}
	if s, ok := v.(string); ok {
		switch strings.ToLower(strings.TrimSpace(s)) {
		case "yes", "oui", "avec":
			b := true
			return &b
		case "no", "non", "sans":
			b := false
			return &b
		}
	}
	b, err := cast.ToBoolE(v)
	if err != nil {
		logger.Debug().Str("param", key).Interface("value", v).Msg("ignoring non-boolean parameter")
		return nil
	}
	return &b
}

// decodeLocation accepts a plain string, a list of strings (first non-empty
// wins) or a structured location object.
func decodeLocation(v interface{}) string {
	switch loc := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(loc)
	case []interface{}:
		for _, item := range loc {
			if s := decodeLocation(item); s != "" {
				return s
			}
		}
		return ""
	case map[string]interface{}:
		for _, key := range locationKeys {
			if s := strings.TrimSpace(cast.ToString(loc[key])); s != "" {
				return s
			}
		}
		return ""
	default:
		return strings.TrimSpace(cast.ToString(loc))
	}
}
