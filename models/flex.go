package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// FlexID is an identifier the backend may send either as a JSON string or as
// a JSON number. It is kept as text; digit-only values are written back as
// numbers, anything else as a string, and the empty value as null.
type FlexID string

func (f *FlexID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("flex id: %w", err)
	}
	*f = FlexID(n.String())
	return nil
}

func (f FlexID) MarshalJSON() ([]byte, error) {
	if f == "" {
		return []byte("null"), nil
	}
	if f.isNumeric() {
		return []byte(f), nil
	}
	return json.Marshal(string(f))
}

func (f FlexID) String() string { return string(f) }

func (f FlexID) IsZero() bool { return f == "" }

func (f FlexID) isNumeric() bool {
	if len(f) == 0 || len(f) > 18 {
		return false
	}
	if f[0] == '0' && len(f) > 1 {
		return false
	}
	for _, r := range f {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
