package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/yeremiapane/ordengo-kiosk/models"
	"github.com/yeremiapane/ordengo-kiosk/testsupport"
	"github.com/yeremiapane/ordengo-kiosk/utils"
	"gorm.io/gorm"
)

func init() {
	utils.SilenceLoggers()
}

func openTestDB(t *testing.T, name string) *gorm.DB {
	return testsupport.OpenDB(t, name)
}

type pushed struct {
	Event string
	Data  interface{}
}

type recordingHub struct {
	mu     sync.Mutex
	events []pushed
}

func (h *recordingHub) Broadcast(event string, data interface{}) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, pushed{event, data})
}

func (h *recordingHub) reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = nil
}

func (h *recordingHub) names() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]string, 0, len(h.events))
	for _, e := range h.events {
		out = append(out, e.Event)
	}
	return out
}

type env struct {
	db      *gorm.DB
	store   *DeviceStore
	backend *testsupport.FakeBackend
	socket  *testsupport.SocketServer
	hub     *recordingHub
	kiosk   *Kiosk
}

func newEnv(t *testing.T) *env {
	t.Helper()
	fb := testsupport.NewFakeBackend()
	sock := testsupport.NewSocketServer("socketio")
	t.Cleanup(fb.Close)
	t.Cleanup(sock.Close)

	e := &env{backend: fb, socket: sock}
	e.db = openTestDB(t, t.Name())
	e.restart(t)
	return e
}

// restart builds a fresh kiosk on the same database, as after a reboot.
func (e *env) restart(t *testing.T) {
	t.Helper()
	if e.kiosk != nil {
		e.kiosk.stopRealtime()
	}
	e.store = NewDeviceStore(e.db)
	e.hub = &recordingHub{}
	client := NewBackendClient(e.backend.URL(), 5*time.Second, e.store.TableToken)
	e.kiosk = NewKiosk(e.store, client, e.hub, KioskConfig{
		DefaultLanguage: "es",
		DefaultCurrency: "EUR",
		Realtime: RealtimeConfig{
			URL:         e.socket.URL(),
			Protocol:    "socketio",
			MaxAttempts: 2,
			RetryDelay:  10 * time.Millisecond,
		},
	})
	t.Cleanup(e.kiosk.stopRealtime)
}

// paired boots the kiosk and pairs it with the test table, waiting for the
// realtime room join.
func (e *env) paired(t *testing.T) {
	t.Helper()
	_, err := e.kiosk.Pair(context.Background(), testsupport.TestToken)
	require.NoError(t, err)
	require.NotNil(t, e.socket.WaitJoin(2*time.Second), "room not joined")
}

func priced(price float64, qty int) models.CartItem {
	return models.CartItem{ProductID: "11", ProductName: []byte(`"Paella"`), BasePrice: price, Quantity: qty}
}
