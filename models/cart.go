package models

import (
	"encoding/json"
	"errors"
	"math"
	"time"
)

var (
	ErrInvalidQuantity = errors.New("quantity must be at least 1")
	ErrItemNotFound    = errors.New("cart item not found")
	ErrMissingProduct  = errors.New("product id is required")
)

// Modifier is one selected option of a product (extra cheese, no onions...).
// Name is passed through as received: a plain string or a translation map.
type Modifier struct {
	ID    FlexID          `json:"id"`
	Name  json.RawMessage `json:"name,omitempty"`
	Price float64         `json:"price"`
}

// CartItem is one line of the local cart.
type CartItem struct {
	ID           string          `json:"uniqueId"`
	ProductID    FlexID          `json:"productId"`
	ProductName  json.RawMessage `json:"productName,omitempty"`
	VariantID    FlexID          `json:"productVariantId"`
	VariantName  json.RawMessage `json:"variantName,omitempty"`
	BasePrice    float64         `json:"basePrice"`
	VariantPrice *float64        `json:"variantPrice,omitempty"`
	Modifiers    []Modifier      `json:"modifiers"`
	Quantity     int             `json:"quantity"`
	Observation  string          `json:"observation"`
	UnitPrice    float64         `json:"unitPrice"`
	Total        float64         `json:"total"`
	AddedAt      time.Time       `json:"addedAt"`
}

// Recalculate derives the unit price and line total. The unit price only
// depends on the chosen variant and modifiers, never on the quantity.
func (i *CartItem) Recalculate() {
	base := i.BasePrice
	if i.VariantPrice != nil {
		base = *i.VariantPrice
	}
	for _, m := range i.Modifiers {
		base += m.Price
	}
	i.UnitPrice = RoundMoney(base)
	i.Total = RoundMoney(i.UnitPrice * float64(i.Quantity))
}

// Validate checks the invariants a line must hold before entering the cart.
func (i *CartItem) Validate() error {
	if i.ProductID.IsZero() {
		return ErrMissingProduct
	}
	if i.Quantity < 1 {
		return ErrInvalidQuantity
	}
	return nil
}

// RoundMoney rounds to cents.
func RoundMoney(v float64) float64 {
	return math.Round(v*100) / 100
}

// Cart is the ordered list of lines collected before submission. It is not
// safe for concurrent use; the kiosk state guards it.
type Cart struct {
	Items []CartItem `json:"items"`
}

func (c *Cart) Add(item CartItem) error {
	if err := item.Validate(); err != nil {
		return err
	}
	item.Recalculate()
	c.Items = append(c.Items, item)
	return nil
}

func (c *Cart) index(id string) int {
	for i := range c.Items {
		if c.Items[i].ID == id {
			return i
		}
	}
	return -1
}

func (c *Cart) Remove(id string) error {
	i := c.index(id)
	if i < 0 {
		return ErrItemNotFound
	}
	c.Items = append(c.Items[:i], c.Items[i+1:]...)
	return nil
}

// SetQuantity replaces the quantity of a line.
func (c *Cart) SetQuantity(id string, quantity int) (CartItem, error) {
	if quantity < 1 {
		return CartItem{}, ErrInvalidQuantity
	}
	i := c.index(id)
	if i < 0 {
		return CartItem{}, ErrItemNotFound
	}
	c.Items[i].Quantity = quantity
	c.Items[i].Recalculate()
	return c.Items[i], nil
}

// ChangeQuantity adds delta to a line's quantity, never going below 1.
func (c *Cart) ChangeQuantity(id string, delta int) (CartItem, error) {
	i := c.index(id)
	if i < 0 {
		return CartItem{}, ErrItemNotFound
	}
	q := c.Items[i].Quantity + delta
	if q < 1 {
		q = 1
	}
	return c.SetQuantity(id, q)
}

// RemoveAll drops the lines whose ids are listed.
func (c *Cart) RemoveAll(ids []string) {
	if len(ids) == 0 {
		return
	}
	drop := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}
	kept := c.Items[:0]
	for _, it := range c.Items {
		if _, ok := drop[it.ID]; !ok {
			kept = append(kept, it)
		}
	}
	c.Items = kept
}

func (c *Cart) Clear() { c.Items = nil }

func (c *Cart) Len() int { return len(c.Items) }

func (c *Cart) Total() float64 {
	var sum float64
	for _, it := range c.Items {
		sum += it.Total
	}
	return RoundMoney(sum)
}

// Snapshot returns a copy of the lines.
func (c *Cart) Snapshot() []CartItem {
	out := make([]CartItem, len(c.Items))
	copy(out, c.Items)
	return out
}
