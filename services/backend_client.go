package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/yeremiapane/ordengo-kiosk/models"
	"github.com/yeremiapane/ordengo-kiosk/utils"
)

// TokenSource returns the table token to send with every request, or "".
type TokenSource func() string

// BackendClient talks to the OrdenGo REST API.
type BackendClient struct {
	baseURL    string
	httpClient *http.Client
	token      TokenSource
}

func NewBackendClient(baseURL string, timeout time.Duration, token TokenSource) *BackendClient {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &BackendClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		token:      token,
	}
}

// TableAccess looks up a table by its token. A 404 maps to ErrTableNotFound.
func (c *BackendClient) TableAccess(ctx context.Context, tableToken string) (*models.TableAccess, error) {
	var access models.TableAccess
	path := "/tables/access/" + url.PathEscape(tableToken)
	if err := c.do(ctx, http.MethodGet, path, nil, &access); err != nil {
		if IsStatus(err, http.StatusNotFound) {
			return nil, fmt.Errorf("%w: %v", ErrTableNotFound, err)
		}
		return nil, err
	}
	return &access, nil
}

// StartSession opens a new ordering session for the table.
func (c *BackendClient) StartSession(ctx context.Context, req models.SessionStartRequest) (string, error) {
	var resp models.SessionStartResponse
	if err := c.do(ctx, http.MethodPost, "/orders/session/start", req, &resp); err != nil {
		return "", err
	}
	if resp.Session.ID.IsZero() {
		return "", errors.New("session start returned no session id")
	}
	return resp.Session.ID.String(), nil
}

// CreateOrder posts an order and returns the raw confirmation.
func (c *BackendClient) CreateOrder(ctx context.Context, req models.OrderRequest) (json.RawMessage, error) {
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodPost, "/orders", req, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// CreateNotification sends a bill or waiter request.
func (c *BackendClient) CreateNotification(ctx context.Context, req models.NotificationRequest) error {
	return c.do(ctx, http.MethodPost, "/notifications", req, nil)
}

// Settings fetches the restaurant configuration. The backend answers either
// {config, currency} or the bare config object.
func (c *BackendClient) Settings(ctx context.Context) (*models.RestaurantSettings, error) {
	var raw map[string]json.RawMessage
	if err := c.do(ctx, http.MethodGet, "/settings", nil, &raw); err != nil {
		return nil, err
	}

	settings := &models.RestaurantSettings{}
	if cur, ok := raw["currency"]; ok {
		_ = json.Unmarshal(cur, &settings.Currency)
	}
	if cfg, ok := raw["config"]; ok && string(cfg) != "null" {
		settings.Config = cfg
	} else {
		whole, err := json.Marshal(raw)
		if err != nil {
			return nil, err
		}
		settings.Config = whole
	}
	return settings, nil
}

type envelope struct {
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Error   string          `json:"error"`
}

func (c *BackendClient) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("error marshaling request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	if c.token != nil {
		if token := c.token(); token != "" {
			req.Header.Set("x-table-token", token)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("error reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var env envelope
		if json.Unmarshal(respBody, &env) == nil {
			apiErr.Message = env.Message
			if apiErr.Message == "" {
				apiErr.Message = env.Error
			}
		}
		utils.ErrorLogger.Printf("Backend %s %s failed: %v", method, path, apiErr)
		return apiErr
	}

	if out == nil || len(bytes.TrimSpace(respBody)) == 0 {
		return nil
	}
	return json.Unmarshal(unwrapData(respBody), out)
}

// unwrapData returns the "data" member when the body is wrapped in one.
func unwrapData(body []byte) []byte {
	var env map[string]json.RawMessage
	if err := json.Unmarshal(body, &env); err != nil {
		return body
	}
	if data, ok := env["data"]; ok && len(data) > 0 && string(data) != "null" {
		return data
	}
	return body
}
