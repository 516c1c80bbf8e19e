package models

import (
	"errors"
	"strings"

	"github.com/google/uuid"
)

// IdentityKind says which backend field a TableIdentity was taken from.
type IdentityKind string

const (
	IdentityUUID    IdentityKind = "uuid"
	IdentityNumeric IdentityKind = "numeric"
)

var ErrNoTableIdentity = errors.New("table has neither uuid nor id")

// TableIdentity is the routing key used for realtime rooms and for matching
// server pushes. It is never the table token.
type TableIdentity struct {
	Value string       `json:"value"`
	Kind  IdentityKind `json:"kind"`
}

// NewTableIdentity picks the canonical identity: the UUID when it parses as
// one, otherwise the numeric id.
func NewTableIdentity(rawUUID string, id FlexID) (TableIdentity, error) {
	if u, err := uuid.Parse(strings.TrimSpace(rawUUID)); err == nil {
		return TableIdentity{Value: u.String(), Kind: IdentityUUID}, nil
	}
	if !id.IsZero() {
		return TableIdentity{Value: id.String(), Kind: IdentityNumeric}, nil
	}
	return TableIdentity{}, ErrNoTableIdentity
}

func (t TableIdentity) IsZero() bool { return t.Value == "" }

// Matches compares a table id received from the server with this identity.
// UUIDs compare case-insensitively in canonical form.
func (t TableIdentity) Matches(raw string) bool {
	raw = strings.TrimSpace(raw)
	if t.IsZero() || raw == "" {
		return false
	}
	if t.Kind == IdentityUUID {
		u, err := uuid.Parse(raw)
		return err == nil && u.String() == t.Value
	}
	return raw == t.Value
}

// AccessTable is the table part of GET /tables/access/{token}.
type AccessTable struct {
	ID               FlexID `json:"id"`
	UUID             string `json:"uuid"`
	Number           FlexID `json:"number"`
	CurrentSessionID FlexID `json:"currentSessionId"`
}

// AccessRestaurant is the restaurant part of GET /tables/access/{token}.
type AccessRestaurant struct {
	ID       FlexID   `json:"id"`
	Name     string   `json:"name"`
	Currency string   `json:"currency"`
	Locales  []string `json:"locales"`
}

type TableAccess struct {
	Table      AccessTable      `json:"table"`
	Restaurant AccessRestaurant `json:"restaurant"`
}

// TableInfo converts the access payload into the cached metadata.
func (a TableAccess) TableInfo() *TableInfo {
	return &TableInfo{
		ID:             a.Table.ID,
		UUID:           a.Table.UUID,
		Number:         a.Table.Number,
		RestaurantName: a.Restaurant.Name,
		Currency:       a.Restaurant.Currency,
		Locales:        append([]string(nil), a.Restaurant.Locales...),
	}
}

// TableResolution is the outcome of resolving a table token.
type TableResolution struct {
	Identity        TableIdentity `json:"identity"`
	Access          TableAccess   `json:"access"`
	CachedSessionID string        `json:"cachedSessionId,omitempty"`
}
