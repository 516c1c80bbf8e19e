package models

import "encoding/json"

// OrderItemRequest is one line as POST /orders expects it.
type OrderItemRequest struct {
	ProductID        FlexID   `json:"productId"`
	ProductVariantID FlexID   `json:"productVariantId"`
	Quantity         int      `json:"quantity"`
	Modifiers        []FlexID `json:"modifiers"`
	Observation      string   `json:"observation"`
}

// OrderRequest is the body of POST /orders.
type OrderRequest struct {
	TableSessionID FlexID             `json:"tableSessionId"`
	RestaurantID   FlexID             `json:"restaurantId"`
	Items          []OrderItemRequest `json:"items"`
	Notes          string             `json:"notes"`
}

// NewOrderItemRequest maps a cart line onto the wire format.
func NewOrderItemRequest(item CartItem) OrderItemRequest {
	mods := make([]FlexID, 0, len(item.Modifiers))
	for _, m := range item.Modifiers {
		mods = append(mods, m.ID)
	}
	return OrderItemRequest{
		ProductID:        item.ProductID,
		ProductVariantID: item.VariantID,
		Quantity:         item.Quantity,
		Modifiers:        mods,
		Observation:      item.Observation,
	}
}

// SessionStartRequest is the body of POST /orders/session/start.
type SessionStartRequest struct {
	TableID      FlexID `json:"tableId"`
	RestaurantID FlexID `json:"restaurantId"`
}

type SessionStartResponse struct {
	Session struct {
		ID FlexID `json:"id"`
	} `json:"session"`
}

// OrderConfirmation keeps the raw order returned by the backend.
type OrderConfirmation struct {
	SessionID string          `json:"sessionId"`
	Order     json.RawMessage `json:"order,omitempty"`
	Absorbed  bool            `json:"absorbed"`
}
