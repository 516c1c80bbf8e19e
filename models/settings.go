package models

import "encoding/json"

// RestaurantSettings is the payload of GET /settings. Config is handed to the
// UI shell untouched (colours, logos).
type RestaurantSettings struct {
	Currency string          `json:"currency"`
	Config   json.RawMessage `json:"config,omitempty"`
}
