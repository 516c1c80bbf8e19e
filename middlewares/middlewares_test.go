package middlewares

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yeremiapane/ordengo-kiosk/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
	utils.SilenceLoggers()
}

func serve(r *gin.Engine, method, path, remote string, headers ...string) int {
	req := httptest.NewRequest(method, path, nil)
	if remote != "" {
		req.RemoteAddr = remote
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w.Code
}

func ok(c *gin.Context) { c.Status(http.StatusOK) }

func TestRateLimiterPerIP(t *testing.T) {
	r := gin.New()
	r.Use(NewRateLimiter(2, time.Minute).RateLimit())
	r.GET("/", ok)

	assert.Equal(t, http.StatusOK, serve(r, "GET", "/", "10.0.0.1:1"))
	assert.Equal(t, http.StatusOK, serve(r, "GET", "/", "10.0.0.1:1"))
	assert.Equal(t, http.StatusTooManyRequests, serve(r, "GET", "/", "10.0.0.1:1"))
	assert.Equal(t, http.StatusOK, serve(r, "GET", "/", "10.0.0.2:1"))
}

func TestRateLimiterDoesNotBlockOnLongHandlers(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{})
	r := gin.New()
	r.Use(NewRateLimiter(100, time.Second).RateLimit())
	r.GET("/long", func(c *gin.Context) {
		close(entered)
		<-release
		c.Status(http.StatusOK)
	})
	r.GET("/", ok)

	go serve(r, "GET", "/long", "10.0.0.1:1")
	<-entered
	defer close(release)

	done := make(chan int, 1)
	go func() { done <- serve(r, "GET", "/", "10.0.0.1:1") }()
	select {
	case code := <-done:
		assert.Equal(t, http.StatusOK, code)
	case <-time.After(2 * time.Second):
		t.Fatal("request blocked behind a running handler")
	}
}

func TestRateLimiterForgetsIdleClients(t *testing.T) {
	rl := NewRateLimiter(1, time.Minute)
	now := time.Now()

	assert.True(t, rl.allow("10.0.0.1", now))
	assert.False(t, rl.allow("10.0.0.1", now.Add(time.Second)))
	assert.True(t, rl.allow("10.0.0.2", now.Add(2*time.Minute)))

	rl.mu.Lock()
	defer rl.mu.Unlock()
	assert.NotContains(t, rl.ips, "10.0.0.1")
	assert.Contains(t, rl.ips, "10.0.0.2")
}

func TestStrictRateLimiterIsShared(t *testing.T) {
	r := gin.New()
	r.GET("/", NewStrictRateLimiter(time.Hour, 1), ok)

	assert.Equal(t, http.StatusOK, serve(r, "GET", "/", "10.0.0.1:1"))
	assert.Equal(t, http.StatusTooManyRequests, serve(r, "GET", "/", "10.0.0.2:1"))
}

func TestLocalOnly(t *testing.T) {
	r := gin.New()
	r.GET("/", LocalOnly(), ok)

	assert.Equal(t, http.StatusOK, serve(r, "GET", "/", "127.0.0.1:5000"))
	assert.Equal(t, http.StatusOK, serve(r, "GET", "/", "[::1]:5000"))
	assert.Equal(t, http.StatusForbidden, serve(r, "GET", "/", "192.168.1.20:5000"))
}

func TestTrackActivityIgnoresReads(t *testing.T) {
	calls := 0
	r := gin.New()
	r.Use(TrackActivity(func() { calls++ }))
	r.GET("/", ok)
	r.POST("/", ok)

	serve(r, "GET", "/", "")
	assert.Zero(t, calls)
	serve(r, "POST", "/", "")
	assert.Equal(t, 1, calls)
}

func TestAdminAuthAndRoleCheck(t *testing.T) {
	utils.SetJWTSecret("middleware-secret")
	r := gin.New()
	g := r.Group("/", AdminAuthMiddleware())
	g.GET("/admin", RoleCheck(utils.RoleAdmin), ok)
	g.GET("/tech", RoleCheck(utils.RoleTechnician), ok)

	assert.Equal(t, http.StatusUnauthorized, serve(r, "GET", "/admin", ""))
	assert.Equal(t, http.StatusUnauthorized, serve(r, "GET", "/admin", "", "Authorization", "Basic abc"))

	tech, err := utils.GenerateToken("dev", utils.RoleTechnician, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, serve(r, "GET", "/admin", "", "Authorization", "Bearer "+tech))
	assert.Equal(t, http.StatusOK, serve(r, "GET", "/tech", "", "Authorization", "Bearer "+tech))

	admin, err := utils.GenerateToken("dev", utils.RoleAdmin, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, serve(r, "GET", "/admin", "", "Authorization", "Bearer "+admin))
	assert.Equal(t, http.StatusOK, serve(r, "GET", "/tech", "", "Authorization", "Bearer "+admin))
}

func TestSecurityAndCORSHeaders(t *testing.T) {
	r := gin.New()
	r.Use(SecurityHeaders(), CORSMiddlewares("http://localhost:3000"))
	r.GET("/", ok)

	req := httptest.NewRequest("GET", "/", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))

	assert.Equal(t, http.StatusNoContent, serve(r, "OPTIONS", "/", ""))
}
