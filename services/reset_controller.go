package services

import (
	"sync"

	"github.com/yeremiapane/ordengo-kiosk/models"
	"github.com/yeremiapane/ordengo-kiosk/utils"
)

// Events pushed to the UI shells.
const (
	PushStateReset     = "state_reset"
	PushNavigate       = "navigate"
	PushNotice         = "notice"
	PushRealtimeStatus = "realtime_status"
)

// Broadcaster delivers an event to every connected UI shell.
type Broadcaster interface {
	Broadcast(event string, data interface{})
}

// Notice is a localized, short message for the customer.
type Notice struct {
	Key     string `json:"key"`
	Message string `json:"message"`
}

// ResetController performs the two ways local state is thrown away: a soft
// reset when the tab was closed and a hard unbind when the device loses its
// table. Neither reloads the UI; only the unbind navigates.
type ResetController struct {
	app   *AppContext
	state *KioskState
	push  Broadcaster

	mu          sync.Mutex
	onSoftReset []func()
	onUnbind    []func()
}

func NewResetController(app *AppContext, state *KioskState, push Broadcaster) *ResetController {
	return &ResetController{app: app, state: state, push: push}
}

// OnSoftReset registers fn to run after every soft reset.
func (r *ResetController) OnSoftReset(fn func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onSoftReset = append(r.onSoftReset, fn)
}

// OnUnbind registers fn to run after every hard unbind.
func (r *ResetController) OnUnbind(fn func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onUnbind = append(r.onUnbind, fn)
}

// SoftReset clears cart, session, modals and navigation. The binding is kept.
func (r *ResetController) SoftReset(reason string) {
	route := models.RouteMenu
	if r.app.Binding() == nil {
		route = models.RouteSetup
	}
	r.state.Reset(route)
	utils.InfoLogger.WithField("reason", reason).Info("Soft reset: cart and session cleared")

	r.run(r.softResetHooks())
	r.broadcast(PushStateReset, map[string]interface{}{
		"reason": reason,
		"state":  r.state.Snapshot(),
	})
	r.notify(utils.MsgSessionClosed)
}

// HardUnbind erases the device binding and sends the UI to the setup flow.
// In-memory state is reset even when the store cannot be cleared.
func (r *ResetController) HardUnbind(reason string) error {
	err := r.app.Unbind()
	if err != nil {
		utils.ErrorLogger.Printf("Error clearing device binding: %v", err)
	}
	r.state.Reset(models.RouteSetup)
	utils.InfoLogger.WithField("reason", reason).Info("Hard unbind: device is no longer paired")

	r.run(r.unbindHooks())
	r.broadcast(PushNavigate, map[string]interface{}{
		"route":  models.RouteSetup,
		"reason": reason,
	})
	r.notify(utils.MsgDeviceUnbound)
	return err
}

func (r *ResetController) notify(key string) {
	r.broadcast(PushNotice, Notice{Key: key, Message: utils.Localize(r.app.Language(), key)})
}

func (r *ResetController) broadcast(event string, data interface{}) {
	if r.push != nil {
		r.push.Broadcast(event, data)
	}
}

func (r *ResetController) softResetHooks() []func() {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]func(){}, r.onSoftReset...)
}

func (r *ResetController) unbindHooks() []func() {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]func(){}, r.onUnbind...)
}

func (r *ResetController) run(hooks []func()) {
	for _, fn := range hooks {
		fn()
	}
}
