package services

import (
	"encoding/json"
	"errors"
	"strings"
	"sync"

	"github.com/yeremiapane/ordengo-kiosk/models"
	"github.com/yeremiapane/ordengo-kiosk/utils"
)

// AppContext is the process-wide context: language, currency, restaurant
// config, binding and table identity. It is initialised once by Init and
// only changed through its setters. Setters that have a durable side persist
// it under the same lock as the in-memory write.
type AppContext struct {
	store           *DeviceStore
	defaultLanguage string
	defaultCurrency string

	mu          sync.RWMutex
	initialized bool
	language    string
	currency    string
	config      json.RawMessage
	binding     *models.DeviceBinding
	identity    models.TableIdentity
}

// AppSnapshot is a read-only copy of the context.
type AppSnapshot struct {
	Language     string                `json:"language"`
	Currency     string                `json:"currency"`
	Paired       bool                  `json:"paired"`
	RestaurantID models.FlexID         `json:"restaurantId"`
	Table        *models.TableInfo     `json:"table,omitempty"`
	Identity     *models.TableIdentity `json:"identity,omitempty"`
	Config       json.RawMessage       `json:"config,omitempty"`
}

func NewAppContext(store *DeviceStore, defaultLanguage, defaultCurrency string) *AppContext {
	lang := utils.NormalizeLanguage(defaultLanguage)
	if lang == "" {
		lang = "es"
	}
	if defaultCurrency == "" {
		defaultCurrency = "EUR"
	}
	return &AppContext{
		store:           store,
		defaultLanguage: lang,
		defaultCurrency: strings.ToUpper(defaultCurrency),
		language:        lang,
		currency:        strings.ToUpper(defaultCurrency),
	}
}

// Init loads the binding and language from the store. It returns the
// binding, nil when unbound.
func (a *AppContext) Init() (*models.DeviceBinding, error) {
	binding, err := a.store.Load()
	if err != nil {
		return nil, err
	}
	lang, err := a.store.Language()
	if err != nil {
		return nil, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.binding = binding
	a.identity = models.TableIdentity{}
	if l := utils.NormalizeLanguage(lang); l != "" {
		a.language = l
	}
	a.currency = a.defaultCurrency
	if binding != nil && binding.TableInfo != nil && binding.TableInfo.Currency != "" {
		a.currency = strings.ToUpper(binding.TableInfo.Currency)
	}
	a.initialized = true
	return binding.Clone(), nil
}

func (a *AppContext) Language() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.language
}

func (a *AppContext) Currency() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.currency
}

// Binding returns a copy of the current binding, nil when unbound.
func (a *AppContext) Binding() *models.DeviceBinding {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.binding.Clone()
}

func (a *AppContext) Identity() models.TableIdentity {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.identity
}

// SetLanguage changes and persists the UI language.
func (a *AppContext) SetLanguage(code string) error {
	lang := utils.NormalizeLanguage(code)
	if lang == "" {
		return errors.New("unsupported language " + code)
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.store.SetLanguage(lang); err != nil {
		return err
	}
	a.language = lang
	return nil
}

// SetSettings applies the restaurant settings fetched after boot.
func (a *AppContext) SetSettings(s *models.RestaurantSettings) {
	if s == nil {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if s.Currency != "" {
		a.currency = strings.ToUpper(s.Currency)
	}
	a.config = s.Config
}

// Bind wipes whatever the device held before and persists b as a clean
// install. The table identity is reset; the caller sets it once resolved.
func (a *AppContext) Bind(b *models.DeviceBinding) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.store.Replace(b); err != nil {
		return err
	}
	a.binding = b.Clone()
	a.identity = models.TableIdentity{}
	a.language = a.defaultLanguage
	a.currency = a.defaultCurrency
	a.config = nil
	if b.TableInfo != nil && b.TableInfo.Currency != "" {
		a.currency = strings.ToUpper(b.TableInfo.Currency)
	}
	return nil
}

// Unbind erases the persisted identity and returns the context to the state
// of a device that was never paired.
func (a *AppContext) Unbind() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.store.Clear(); err != nil {
		return err
	}
	a.binding = nil
	a.identity = models.TableIdentity{}
	a.language = a.defaultLanguage
	a.currency = a.defaultCurrency
	a.config = nil
	return nil
}

func (a *AppContext) SetIdentity(id models.TableIdentity) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.identity = id
}

// Refresh updates the cached table info after a successful access lookup.
func (a *AppContext) Refresh(info *models.TableInfo) {
	if info == nil {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.binding == nil {
		return
	}
	next := a.binding.Clone()
	next.TableInfo = info
	if err := a.store.Save(next); err != nil {
		utils.ErrorLogger.Printf("Error refreshing table info: %v", err)
	}
	a.binding = next
}

func (a *AppContext) Snapshot() AppSnapshot {
	a.mu.RLock()
	defer a.mu.RUnlock()
	snap := AppSnapshot{
		Language: a.language,
		Currency: a.currency,
		Paired:   a.binding != nil,
		Config:   a.config,
	}
	if a.binding != nil {
		snap.RestaurantID = a.binding.RestaurantID
		if a.binding.TableInfo != nil {
			info := *a.binding.TableInfo
			snap.Table = &info
		}
	}
	if !a.identity.IsZero() {
		id := a.identity
		snap.Identity = &id
	}
	return snap
}
