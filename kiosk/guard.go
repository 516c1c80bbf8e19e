package kiosk

import (
	"errors"
	"strings"
	"sync"

	"github.com/yeremiapane/ordengo-kiosk/models"
	"github.com/yeremiapane/ordengo-kiosk/utils"
)

// KeyChord is a key with the modifiers that must be held for it to match.
type KeyChord struct {
	Key   string `json:"key"`
	Ctrl  bool   `json:"ctrl,omitempty"`
	Meta  bool   `json:"meta,omitempty"`
	Shift bool   `json:"shift,omitempty"`
	Alt   bool   `json:"alt,omitempty"`
}

// Blocks reports whether pressing ev is suppressed by c. Extra modifiers on
// ev still match, so ctrl+r also covers ctrl+shift+r.
func (c KeyChord) Blocks(ev KeyChord) bool {
	if !strings.EqualFold(c.Key, ev.Key) {
		return false
	}
	return (!c.Ctrl || ev.Ctrl) && (!c.Meta || ev.Meta) &&
		(!c.Shift || ev.Shift) && (!c.Alt || ev.Alt)
}

// Policy is applied by the UI shell on its side, synchronously with the
// input event.
type Policy struct {
	SuppressContextMenu bool       `json:"suppressContextMenu"`
	LockBackNavigation  bool       `json:"lockBackNavigation"`
	BlockedKeys         []KeyChord `json:"blockedKeys"`
	WakeLock            bool       `json:"wakeLock"`
}

func DefaultPolicy() Policy {
	return Policy{
		SuppressContextMenu: true,
		LockBackNavigation:  true,
		BlockedKeys: []KeyChord{
			{Key: "F5"},
			{Key: "r", Ctrl: true},
			{Key: "r", Meta: true},
		},
	}
}

// Event types reported by the UI shell.
const (
	EventBack        = "back"
	EventVisibility  = "visibility"
	EventKey         = "key"
	EventContextMenu = "contextmenu"
)

var ErrUnknownEvent = errors.New("unknown kiosk event")

type Event struct {
	Type    string    `json:"type" binding:"required"`
	Visible *bool     `json:"visible,omitempty"`
	Key     *KeyChord `json:"key,omitempty"`
}

// Verdict tells the UI shell what to do with the event it reported.
type Verdict struct {
	Blocked  bool         `json:"blocked"`
	Route    models.Route `json:"route,omitempty"`
	WakeLock bool         `json:"wakeLock"`
}

// Guard keeps the device in kiosk mode. Every capability is best-effort: a
// missing one is logged once and otherwise ignored.
type Guard struct {
	policy Policy
	locker WakeLocker
	route  func() models.Route

	mu          sync.Mutex
	unsupported bool
}

// NewGuard builds a guard. route reports the route the UI must stay on.
func NewGuard(locker WakeLocker, route func() models.Route) *Guard {
	if locker == nil {
		locker = NopLocker{}
	}
	p := DefaultPolicy()
	p.WakeLock = true
	return &Guard{policy: p, locker: locker, route: route}
}

func (g *Guard) Policy() Policy {
	p := g.policy
	p.BlockedKeys = append([]KeyChord(nil), g.policy.BlockedKeys...)
	g.mu.Lock()
	p.WakeLock = !g.unsupported
	g.mu.Unlock()
	return p
}

// Start acquires the wake lock.
func (g *Guard) Start() {
	g.acquire()
}

// Stop releases the wake lock.
func (g *Guard) Stop() {
	if err := g.locker.Release(); err != nil {
		utils.ErrorLogger.Printf("Error releasing wake lock: %v", err)
	}
}

// HandleKey reports whether the key press must be swallowed.
func (g *Guard) HandleKey(ev KeyChord) bool {
	for _, blocked := range g.policy.BlockedKeys {
		if blocked.Blocks(ev) {
			utils.InfoLogger.Debugf("Blocked key %+v", ev)
			return true
		}
	}
	return false
}

// HandleBack returns the route the UI must put back on top of its history.
func (g *Guard) HandleBack() models.Route {
	r := models.RouteLanguage
	if g.route != nil {
		r = g.route()
	}
	utils.InfoLogger.Debugf("Back navigation suppressed, staying on %s", r)
	return r
}

// HandleVisibility tracks foreground changes. The platform drops the wake
// lock in the background, so it is taken again on every return.
func (g *Guard) HandleVisibility(visible bool) bool {
	if visible {
		return g.acquire()
	}
	return g.locker.Held()
}

// HandleEvent dispatches an event reported by the UI shell.
func (g *Guard) HandleEvent(ev Event) (Verdict, error) {
	switch ev.Type {
	case EventBack:
		return Verdict{Blocked: true, Route: g.HandleBack(), WakeLock: g.locker.Held()}, nil
	case EventVisibility:
		visible := ev.Visible == nil || *ev.Visible
		return Verdict{WakeLock: g.HandleVisibility(visible)}, nil
	case EventKey:
		if ev.Key == nil {
			return Verdict{}, ErrUnknownEvent
		}
		return Verdict{Blocked: g.HandleKey(*ev.Key), WakeLock: g.locker.Held()}, nil
	case EventContextMenu:
		return Verdict{Blocked: g.policy.SuppressContextMenu, WakeLock: g.locker.Held()}, nil
	}
	return Verdict{}, ErrUnknownEvent
}

func (g *Guard) acquire() bool {
	err := g.locker.Acquire()
	if err == nil {
		g.mu.Lock()
		g.unsupported = false
		g.mu.Unlock()
		return true
	}
	g.mu.Lock()
	first := !g.unsupported
	if errors.Is(err, ErrUnsupported) {
		g.unsupported = true
	}
	g.mu.Unlock()

	if errors.Is(err, ErrUnsupported) {
		if first {
			utils.InfoLogger.Println("Wake lock not available, display may sleep")
		}
		return false
	}
	utils.ErrorLogger.Printf("Error acquiring wake lock: %v", err)
	return false
}
