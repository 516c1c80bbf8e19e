package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/yeremiapane/ordengo-kiosk/models"
	"github.com/yeremiapane/ordengo-kiosk/realtime"
	"github.com/yeremiapane/ordengo-kiosk/utils"
)

type RealtimeConfig struct {
	URL         string
	Protocol    string
	MaxAttempts int
	RetryDelay  time.Duration
	Dialer      *websocket.Dialer
}

type KioskConfig struct {
	DefaultLanguage string
	DefaultCurrency string
	Realtime        RealtimeConfig
}

// KioskSnapshot is the full picture served to the UI shell.
type KioskSnapshot struct {
	App      AppSnapshot     `json:"app"`
	State    StateSnapshot   `json:"state"`
	Realtime realtime.Status `json:"realtime"`
	Degraded bool            `json:"degraded"`
}

// Kiosk is the application root. It owns the realtime channel and wires the
// components together.
type Kiosk struct {
	App      *AppContext
	State    *KioskState
	Resolver *SessionResolver
	Reset    *ResetController
	Ordering *OrderingService

	store   *DeviceStore
	backend Backend
	push    Broadcaster
	rt      RealtimeConfig

	baseCtx context.Context
	cancel  context.CancelFunc

	mu       sync.Mutex
	channel  *realtime.Channel
	unsubs   []func()
	degraded bool

	statusMu sync.Mutex
	status   realtime.Status
}

func NewKiosk(store *DeviceStore, backend Backend, push Broadcaster, cfg KioskConfig) *Kiosk {
	resolver := NewSessionResolver(backend, store)
	app := NewAppContext(store, cfg.DefaultLanguage, cfg.DefaultCurrency)
	state := NewKioskState(resolver)
	ctx, cancel := context.WithCancel(context.Background())

	k := &Kiosk{
		App:      app,
		State:    state,
		Resolver: resolver,
		Reset:    NewResetController(app, state, push),
		Ordering: NewOrderingService(backend, app, resolver, state),
		store:    store,
		backend:  backend,
		push:     push,
		rt:       cfg.Realtime,
		baseCtx:  ctx,
		cancel:   cancel,
		status:   realtime.StatusIdle,
	}
	k.Reset.OnUnbind(k.stopRealtime)
	return k
}

// Boot restores the binding and reconnects. A rejected token unpairs the
// device; a network failure keeps the cached binding.
func (k *Kiosk) Boot(ctx context.Context) error {
	if err := k.store.PurgeEphemeral(); err != nil {
		utils.ErrorLogger.Printf("Error purging session-scoped settings: %v", err)
	}
	binding, err := k.App.Init()
	if err != nil {
		return err
	}
	if binding == nil {
		utils.InfoLogger.Println("Device is not paired, waiting for setup")
		k.State.Reset(models.RouteSetup)
		return nil
	}

	res, err := k.Resolver.ResolveTableIdentity(ctx, binding.TableToken)
	if errors.Is(err, ErrTableNotFound) {
		utils.ErrorLogger.Printf("Stored table token was rejected: %v", err)
		_ = k.Reset.HardUnbind("table token rejected")
		return nil
	}
	k.State.Reset(models.RouteLanguage)
	if err != nil {
		// Keep serving from the cached binding; the identity comes from the
		// table info saved at pairing time.
		utils.ErrorLogger.Printf("Table lookup failed, running on cached binding: %v", err)
		k.setDegraded(true)
		identity, idErr := cachedIdentity(binding)
		if idErr != nil {
			utils.ErrorLogger.Printf("No cached table identity, realtime disabled: %v", idErr)
			return nil
		}
		k.App.SetIdentity(identity)
	} else {
		k.setDegraded(false)
		k.App.SetIdentity(res.Identity)
		k.App.Refresh(res.Access.TableInfo())
		k.Resolver.Adopt(res.CachedSessionID)
		k.fetchSettings(ctx)
	}

	if err := k.startRealtime(); err != nil {
		utils.ErrorLogger.Printf("Realtime not started: %v", err)
	}
	return nil
}

// Pair binds the device to the table behind token. On any failure the
// previous binding is left untouched.
func (k *Kiosk) Pair(ctx context.Context, token string) (*AppSnapshot, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, userError(utils.MsgInvalidTableToken, ErrTableNotFound)
	}

	res, err := k.Resolver.ResolveTableIdentity(ctx, token)
	if errors.Is(err, ErrTableNotFound) {
		return nil, userError(utils.MsgInvalidTableToken, err)
	}
	if err != nil {
		return nil, userError(utils.MsgPairingFailed, err)
	}
	if res.Access.Restaurant.ID.IsZero() {
		return nil, userError(utils.MsgPairingFailed, errors.New("access lookup returned no restaurant"))
	}

	binding := &models.DeviceBinding{
		RestaurantID: res.Access.Restaurant.ID,
		TableToken:   token,
		TableInfo:    res.Access.TableInfo(),
	}
	if err := k.App.Bind(binding); err != nil {
		return nil, userError(utils.MsgPairingFailed, err)
	}
	k.stopRealtime()
	k.App.SetIdentity(res.Identity)
	k.setDegraded(false)
	k.State.Reset(models.RouteLanguage)
	k.Resolver.Adopt(res.CachedSessionID)
	k.fetchSettings(ctx)

	if err := k.startRealtime(); err != nil {
		utils.ErrorLogger.Printf("Realtime not started after pairing: %v", err)
	}
	utils.InfoLogger.WithField("identity", res.Identity.Value).Info("Device paired")
	k.broadcast(PushNavigate, map[string]interface{}{"route": models.RouteLanguage})

	snap := k.App.Snapshot()
	return &snap, nil
}

// ChooseLanguage stores the customer's language and opens the menu.
func (k *Kiosk) ChooseLanguage(code string) error {
	if k.App.Binding() == nil {
		return userError(utils.MsgNotPaired, ErrNotPaired)
	}
	if err := k.App.SetLanguage(code); err != nil {
		return err
	}
	k.State.SetRoute(models.RouteMenu)
	return nil
}

// Unbind is the maintenance action that de-pairs the device.
func (k *Kiosk) Unbind(reason string) error {
	return k.Reset.HardUnbind(reason)
}

// Shutdown closes the realtime channel and waits for it to stop.
func (k *Kiosk) Shutdown(ctx context.Context) error {
	k.mu.Lock()
	ch := k.channel
	k.mu.Unlock()

	k.cancel()
	k.stopRealtime()
	if ch == nil {
		return nil
	}
	select {
	case <-ch.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (k *Kiosk) Snapshot() KioskSnapshot {
	k.mu.Lock()
	degraded := k.degraded
	k.mu.Unlock()
	return KioskSnapshot{
		App:      k.App.Snapshot(),
		State:    k.State.Snapshot(),
		Realtime: k.RealtimeStatus(),
		Degraded: degraded,
	}
}

func (k *Kiosk) RealtimeStatus() realtime.Status {
	k.statusMu.Lock()
	defer k.statusMu.Unlock()
	return k.status
}

// SessionMarker reads back the session id persisted for this process. It
// differs from the resolver's id only if a store write failed.
func (k *Kiosk) SessionMarker() string {
	id, err := k.store.SessionMarker()
	if err != nil {
		utils.ErrorLogger.Printf("Error reading session marker: %v", err)
		return ""
	}
	return id
}

// startRealtime opens the channel once both restaurant and table identity
// are known. It is a no-op when a channel is already running.
func (k *Kiosk) startRealtime() error {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.channel != nil {
		return nil
	}

	binding := k.App.Binding()
	identity := k.App.Identity()
	if binding == nil || binding.RestaurantID.IsZero() || identity.IsZero() {
		return ErrNoIdentity
	}

	codec, err := realtime.NewCodec(k.rt.Protocol)
	if err != nil {
		return err
	}
	ch, err := realtime.New(realtime.Options{
		URL:         k.rt.URL,
		Codec:       codec,
		Room:        realtime.TableRoom(identity),
		MaxAttempts: k.rt.MaxAttempts,
		RetryDelay:  k.rt.RetryDelay,
		Dialer:      k.rt.Dialer,
		OnStatus:    k.onRealtimeStatus,
	})
	if err != nil {
		return err
	}
	k.unsubs = []func(){
		ch.On(realtime.EventSessionClosed, k.handleSessionClosed),
		ch.On(realtime.EventForceDisconnect, k.handleForceDisconnect),
	}
	if err := ch.Start(k.baseCtx); err != nil {
		for _, unsub := range k.unsubs {
			unsub()
		}
		k.unsubs = nil
		return err
	}
	k.channel = ch
	return nil
}

// stopRealtime closes the channel without waiting, so it is safe to call
// from an event handler.
func (k *Kiosk) stopRealtime() {
	k.mu.Lock()
	ch := k.channel
	unsubs := k.unsubs
	k.channel = nil
	k.unsubs = nil
	k.mu.Unlock()

	for _, unsub := range unsubs {
		unsub()
	}
	if ch != nil {
		ch.Close()
	}
}

func (k *Kiosk) onRealtimeStatus(s realtime.Status) {
	k.statusMu.Lock()
	k.status = s
	k.statusMu.Unlock()
	k.broadcast(PushRealtimeStatus, map[string]interface{}{"status": s})
}

func (k *Kiosk) handleSessionClosed(ev realtime.Event) {
	if !k.addressedToUs(ev) {
		return
	}
	k.Reset.SoftReset(string(ev.Kind))
}

func (k *Kiosk) handleForceDisconnect(ev realtime.Event) {
	if !k.addressedToUs(ev) {
		return
	}
	if err := k.Reset.HardUnbind(string(ev.Kind)); err != nil {
		utils.ErrorLogger.Printf("Hard unbind incomplete: %v", err)
	}
}

// addressedToUs applies the matching rule: no tableId means broadcast,
// otherwise it must match the table identity. The token is never compared.
func (k *Kiosk) addressedToUs(ev realtime.Event) bool {
	tableID, ok := ev.TableID()
	if !ok {
		return true
	}
	if k.App.Identity().Matches(tableID) {
		return true
	}
	utils.InfoLogger.WithField("tableId", tableID).Debugf("Ignoring %s for another table", ev.Kind)
	return false
}

func cachedIdentity(b *models.DeviceBinding) (models.TableIdentity, error) {
	if b.TableInfo == nil {
		return models.TableIdentity{}, models.ErrNoTableIdentity
	}
	return models.NewTableIdentity(b.TableInfo.UUID, b.TableInfo.ID)
}

func (k *Kiosk) fetchSettings(ctx context.Context) {
	settings, err := k.backend.Settings(ctx)
	if err != nil {
		utils.ErrorLogger.Printf("Restaurant settings unavailable: %v", err)
		return
	}
	k.App.SetSettings(settings)
}

func (k *Kiosk) setDegraded(v bool) {
	k.mu.Lock()
	k.degraded = v
	k.mu.Unlock()
}

func (k *Kiosk) broadcast(event string, data interface{}) {
	if k.push != nil {
		k.push.Broadcast(event, data)
	}
}
