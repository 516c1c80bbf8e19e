// Package testsupport provides in-process fakes of the OrdenGo backend for
// tests.
package testsupport

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/ordengo-kiosk/models"
)

const (
	TestToken        = "tok-table-7"
	TestTableUUID    = "3f2a9c1e-8b7d-4e6f-a5c4-1d2e3f4a5b6c"
	TestTableID      = "7"
	TestRestaurantID = "42"
)

// FakeBackend is a gin server that answers like the REST API and records
// what it receives. Exported knobs must be set before the requests they
// affect, or under Lock.
type FakeBackend struct {
	Server *httptest.Server

	sync.Mutex
	Tables             map[string]models.TableAccess
	AccessStatus       int
	SessionDelay       time.Duration
	OrderDelay         time.Duration
	OrderStatus        int
	NotificationStatus int

	AccessCalls   int
	SessionStarts int
	Orders        []models.OrderRequest
	Notifications []models.NotificationRequest
	TokenHeaders  []string

	nextSession int
}

// NewFakeBackend starts a backend that knows TestToken.
func NewFakeBackend() *FakeBackend {
	gin.SetMode(gin.TestMode)
	fb := &FakeBackend{
		Tables: map[string]models.TableAccess{
			TestToken: DefaultAccess(),
		},
		nextSession: 100,
	}

	r := gin.New()
	api := r.Group("/api/v1")
	api.Use(func(c *gin.Context) {
		fb.Lock()
		fb.TokenHeaders = append(fb.TokenHeaders, c.GetHeader("x-table-token"))
		fb.Unlock()
		c.Next()
	})
	api.GET("/tables/access/:token", fb.access)
	api.POST("/orders/session/start", fb.startSession)
	api.POST("/orders", fb.createOrder)
	api.POST("/notifications", fb.createNotification)
	api.GET("/settings", fb.settings)

	fb.Server = httptest.NewServer(r)
	return fb
}

// DefaultAccess is the lookup answer for TestToken.
func DefaultAccess() models.TableAccess {
	return models.TableAccess{
		Table: models.AccessTable{
			ID:     TestTableID,
			UUID:   TestTableUUID,
			Number: "7",
		},
		Restaurant: models.AccessRestaurant{
			ID:       TestRestaurantID,
			Name:     "Casa Test",
			Currency: "EUR",
			Locales:  []string{"es", "en"},
		},
	}
}

// URL is the API base URL to configure the client with.
func (fb *FakeBackend) URL() string { return fb.Server.URL + "/api/v1" }

func (fb *FakeBackend) Close() { fb.Server.Close() }

func (fb *FakeBackend) Counts() (access, sessions, orders, notifications int) {
	fb.Lock()
	defer fb.Unlock()
	return fb.AccessCalls, fb.SessionStarts, len(fb.Orders), len(fb.Notifications)
}

func (fb *FakeBackend) access(c *gin.Context) {
	fb.Lock()
	fb.AccessCalls++
	status := fb.AccessStatus
	access, ok := fb.Tables[c.Param("token")]
	fb.Unlock()

	if status != 0 {
		c.JSON(status, gin.H{"message": "lookup failed"})
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"message": "Mesa não encontrada"})
		return
	}
	c.JSON(http.StatusOK, access)
}

func (fb *FakeBackend) startSession(c *gin.Context) {
	var req models.SessionStartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}
	fb.Lock()
	fb.SessionStarts++
	fb.nextSession++
	id := fb.nextSession
	delay := fb.SessionDelay
	fb.Unlock()

	time.Sleep(delay)
	c.JSON(http.StatusCreated, gin.H{"session": gin.H{"id": id}})
}

func (fb *FakeBackend) createOrder(c *gin.Context) {
	var req models.OrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}
	fb.Lock()
	delay := fb.OrderDelay
	status := fb.OrderStatus
	fb.Unlock()

	time.Sleep(delay)
	if status != 0 {
		c.JSON(status, gin.H{"message": "order rejected"})
		return
	}

	fb.Lock()
	fb.Orders = append(fb.Orders, req)
	n := len(fb.Orders)
	fb.Unlock()
	c.JSON(http.StatusCreated, gin.H{"data": gin.H{"id": n, "status": "PENDING", "tableSessionId": req.TableSessionID}})
}

func (fb *FakeBackend) createNotification(c *gin.Context) {
	var req models.NotificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}
	fb.Lock()
	status := fb.NotificationStatus
	if status == 0 {
		fb.Notifications = append(fb.Notifications, req)
	}
	fb.Unlock()

	if status != 0 {
		c.JSON(status, gin.H{"message": "notification failed"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true})
}

func (fb *FakeBackend) settings(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"currency": "EUR",
		"config":   gin.H{"primaryColor": "#e11d48", "logo": "/logo.png"},
	}})
}

// SessionID formats the id the n-th session/start call returns.
func SessionID(n int) string { return strconv.Itoa(100 + n) }
