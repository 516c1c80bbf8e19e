package Controllers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"github.com/yeremiapane/ordengo-kiosk/hub"
	"github.com/yeremiapane/ordengo-kiosk/kiosk"
	"github.com/yeremiapane/ordengo-kiosk/router"
	"github.com/yeremiapane/ordengo-kiosk/services"
	"github.com/yeremiapane/ordengo-kiosk/testsupport"
	"github.com/yeremiapane/ordengo-kiosk/utils"
	"golang.org/x/crypto/bcrypt"
)

const (
	testPIN      = "2468"
	testUIOrigin = "http://localhost:3000"
)

type apiResponse struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type fakeLocker struct {
	mu   sync.Mutex
	held bool
}

func (l *fakeLocker) Acquire() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.held = true
	return nil
}

func (l *fakeLocker) Release() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.held = false
	return nil
}

func (l *fakeLocker) Held() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.held
}

type testApp struct {
	router  *gin.Engine
	kiosk   *services.Kiosk
	hub     *hub.Hub
	idle    *kiosk.IdleMonitor
	locker  *fakeLocker
	backend *testsupport.FakeBackend
	socket  *testsupport.SocketServer
}

func setupApp(t *testing.T, opts ...func(*router.Options)) *testApp {
	t.Helper()
	gin.SetMode(gin.TestMode)
	utils.SilenceLoggers()
	utils.SetJWTSecret("controllers-test-secret")

	fb := testsupport.NewFakeBackend()
	t.Cleanup(fb.Close)
	sock := testsupport.NewSocketServer("socketio")
	t.Cleanup(sock.Close)

	store := services.NewDeviceStore(testsupport.OpenDB(t, t.Name()))
	client := services.NewBackendClient(fb.URL(), 5*time.Second, store.TableToken)
	h := hub.New()
	k := services.NewKiosk(store, client, h, services.KioskConfig{
		DefaultLanguage: "es",
		DefaultCurrency: "EUR",
		Realtime: services.RealtimeConfig{
			URL:         sock.URL(),
			Protocol:    "socketio",
			MaxAttempts: 2,
			RetryDelay:  10 * time.Millisecond,
		},
	})
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = k.Shutdown(ctx)
		h.CloseAll()
	})
	require.NoError(t, k.Boot(context.Background()))

	hash, err := bcrypt.GenerateFromPassword([]byte(testPIN), bcrypt.MinCost)
	require.NoError(t, err)

	locker := &fakeLocker{}
	idle := kiosk.NewIdleMonitor(time.Minute, h)
	k.Reset.OnSoftReset(idle.ForceIdle)

	options := router.Options{
		UIOrigin:     testUIOrigin,
		AdminPINHash: string(hash),
		TokenTTL:     time.Minute,
	}
	for _, o := range opts {
		o(&options)
	}

	r := router.SetupRouter(router.Deps{
		Kiosk: k,
		Guard: kiosk.NewGuard(locker, k.State.Route),
		Idle:  idle,
		Hub:   h,
	}, options)

	return &testApp{
		router:  r,
		kiosk:   k,
		hub:     h,
		idle:    idle,
		locker:  locker,
		backend: fb,
		socket:  sock,
	}
}

func (a *testApp) request(t *testing.T, method, path string, body interface{}, headers ...string) (*httptest.ResponseRecorder, apiResponse) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)

	var resp apiResponse
	if w.Body.Len() > 0 {
		_ = json.Unmarshal(w.Body.Bytes(), &resp)
	}
	return w, resp
}

// pair links the kiosk with the test table through the API and waits for
// the realtime room join.
func (a *testApp) pair(t *testing.T) {
	t.Helper()
	w, resp := a.request(t, "POST", "/setup", gin.H{"token": testsupport.TestToken})
	require.Equal(t, http.StatusCreated, w.Code, resp.Message)
	require.NotNil(t, a.socket.WaitJoin(2*time.Second), "room not joined")
}

func (a *testApp) state(t *testing.T) services.KioskSnapshot {
	t.Helper()
	w, resp := a.request(t, "GET", "/state", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var snap services.KioskSnapshot
	require.NoError(t, json.Unmarshal(resp.Data, &snap))
	return snap
}

func decode(t *testing.T, raw json.RawMessage, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(raw, v))
}

type errorData struct {
	Key string `json:"key"`
}
