package realtime

import (
	"encoding/json"

	"github.com/yeremiapane/ordengo-kiosk/models"
)

type EventKind string

const (
	EventSessionClosed   EventKind = "session_closed"
	EventForceDisconnect EventKind = "force_disconnect"
	EventJoinRoom        EventKind = "join_room"
)

// Event is one server push. Data is the first argument as received.
type Event struct {
	Kind EventKind       `json:"event"`
	Data json.RawMessage `json:"data,omitempty"`
}

// TableID returns the tableId carried by the payload. ok is false only when
// the key is missing or null, which means the event is a broadcast. A
// present value that is not a string or number yields ok with an empty id,
// which matches no table.
func (e Event) TableID() (id string, ok bool) {
	var payload map[string]json.RawMessage
	if len(e.Data) == 0 || json.Unmarshal(e.Data, &payload) != nil {
		return "", false
	}
	raw, found := payload["tableId"]
	if !found || string(raw) == "null" {
		return "", false
	}
	var tableID models.FlexID
	if err := json.Unmarshal(raw, &tableID); err != nil {
		return "", true
	}
	return tableID.String(), true
}

// Room is the join_room payload.
type Room struct {
	Type    string        `json:"type"`
	TableID models.FlexID `json:"tableId"`
}

// TableRoom addresses the room of one table by its identity.
func TableRoom(id models.TableIdentity) Room {
	return Room{Type: "table", TableID: models.FlexID(id.Value)}
}
