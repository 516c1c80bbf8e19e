package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/yeremiapane/ordengo-kiosk/models"
	"github.com/yeremiapane/ordengo-kiosk/services"
	"github.com/yeremiapane/ordengo-kiosk/utils"
)

// Pairer binds the device to a table. Errors carry a message fit for the
// technician's screen.
type Pairer interface {
	Current(ctx context.Context) (*services.AppSnapshot, error)
	Pair(ctx context.Context, token string) (*services.AppSnapshot, error)
}

// daemonPairer goes through the local control API of a running daemon so its
// in-memory state follows the new binding.
type daemonPairer struct {
	baseURL string
	client  *http.Client
}

func newDaemonPairer(baseURL string) *daemonPairer {
	return &daemonPairer{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 20 * time.Second},
	}
}

// Reachable reports whether a daemon answers on baseURL.
func (d *daemonPairer) Reachable(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	return d.call(ctx, http.MethodGet, "/ping", nil, nil) == nil
}

func (d *daemonPairer) Current(ctx context.Context) (*services.AppSnapshot, error) {
	var snap services.AppSnapshot
	if err := d.call(ctx, http.MethodGet, "/setup", nil, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

func (d *daemonPairer) Pair(ctx context.Context, token string) (*services.AppSnapshot, error) {
	var snap services.AppSnapshot
	if err := d.call(ctx, http.MethodPost, "/setup", map[string]string{"token": token}, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

func (d *daemonPairer) call(ctx context.Context, method, path string, in, out interface{}) error {
	var body *bytes.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(payload)
	} else {
		body = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, d.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var envelope struct {
		Status  bool            `json:"status"`
		Message string          `json:"message"`
		Data    json.RawMessage `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	if !envelope.Status {
		return errors.New(envelope.Message)
	}
	if out != nil && len(envelope.Data) > 0 {
		return json.Unmarshal(envelope.Data, out)
	}
	return nil
}

// directPairer writes the device store itself. Used when no daemon runs; the
// daemon picks the binding up on its next boot.
type directPairer struct {
	store    *services.DeviceStore
	resolver *services.SessionResolver
	app      *services.AppContext
	lang     string
}

func newDirectPairer(store *services.DeviceStore, backend services.Backend, lang, currency string) (*directPairer, error) {
	app := services.NewAppContext(store, lang, currency)
	if _, err := app.Init(); err != nil {
		return nil, err
	}
	return &directPairer{
		store:    store,
		resolver: services.NewSessionResolver(backend, store),
		app:      app,
		lang:     lang,
	}, nil
}

func (p *directPairer) Current(context.Context) (*services.AppSnapshot, error) {
	snap := p.app.Snapshot()
	return &snap, nil
}

func (p *directPairer) Pair(ctx context.Context, token string) (*services.AppSnapshot, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, errors.New(utils.Localize(p.lang, utils.MsgInvalidTableToken))
	}

	res, err := p.resolver.ResolveTableIdentity(ctx, token)
	if errors.Is(err, services.ErrTableNotFound) {
		return nil, errors.New(utils.Localize(p.lang, utils.MsgInvalidTableToken))
	}
	if err != nil {
		return nil, fmt.Errorf("%s (%v)", utils.Localize(p.lang, utils.MsgPairingFailed), err)
	}

	binding := &models.DeviceBinding{
		RestaurantID: res.Access.Restaurant.ID,
		TableToken:   token,
		TableInfo:    res.Access.TableInfo(),
	}
	if err := p.app.Bind(binding); err != nil {
		return nil, fmt.Errorf("save binding: %w", err)
	}
	p.app.SetIdentity(res.Identity)
	snap := p.app.Snapshot()
	return &snap, nil
}
