package services

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/yeremiapane/ordengo-kiosk/utils"
)

var (
	ErrNotPaired     = errors.New("device is not paired with a table")
	ErrTableNotFound = errors.New("table token is invalid or expired")
	ErrEmptyCart     = errors.New("cart is empty")
	ErrStaleSession  = errors.New("session was closed while the request was in flight")
	ErrNoIdentity    = errors.New("table identity is not resolved")
)

// APIError is a non-2xx answer from the backend.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend returned %d %s", e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("backend returned %d: %s", e.StatusCode, e.Message)
}

// IsStatus reports whether err is an APIError with the given status code.
func IsStatus(err error, code int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == code
}

// UserError carries the catalog key of the message shown to the customer.
// Err is for logs only.
type UserError struct {
	Key string
	Err error
}

func (e *UserError) Error() string {
	if e.Err == nil {
		return e.Key
	}
	return e.Key + ": " + e.Err.Error()
}

func (e *UserError) Unwrap() error { return e.Err }

func userError(key string, err error) error {
	return &UserError{Key: key, Err: err}
}

// UserMessageKey extracts the catalog key from err, falling back to the
// generic message for anything that is not a UserError.
func UserMessageKey(err error) string {
	var ue *UserError
	if errors.As(err, &ue) {
		return ue.Key
	}
	if errors.Is(err, ErrNotPaired) {
		return utils.MsgNotPaired
	}
	return utils.MsgGenericError
}
