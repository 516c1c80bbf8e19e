package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/ordengo-kiosk/controllers"
	"github.com/yeremiapane/ordengo-kiosk/hub"
	"github.com/yeremiapane/ordengo-kiosk/kiosk"
	"github.com/yeremiapane/ordengo-kiosk/middlewares"
	"github.com/yeremiapane/ordengo-kiosk/services"
	"github.com/yeremiapane/ordengo-kiosk/utils"
)

// Options carries the router settings that come from configuration.
type Options struct {
	UIOrigin     string
	AdminPINHash string
	TokenTTL     time.Duration
}

// Deps are the long-lived components the handlers talk to.
type Deps struct {
	Kiosk *services.Kiosk
	Guard *kiosk.Guard
	Idle  *kiosk.IdleMonitor
	Hub   *hub.Hub
}

func SetupRouter(d Deps, opts Options) *gin.Engine {
	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(middlewares.LoggerMiddleware())
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddlewares(opts.UIOrigin))
	r.Use(middlewares.NewRateLimiter(100, time.Second).RateLimit())
	r.Use(middlewares.TrackActivity(d.Idle.Activity))

	kioskCtrl := controllers.NewKioskController(d.Kiosk)
	setupCtrl := controllers.NewSetupController(d.Kiosk)
	cartCtrl := controllers.NewCartController(d.Kiosk.State, d.Kiosk.App.Currency)
	orderCtrl := controllers.NewOrderController(d.Kiosk)
	notifCtrl := controllers.NewNotificationController(d.Kiosk)
	lockCtrl := controllers.NewLockdownController(d.Guard, d.Idle)
	adminCtrl := controllers.NewAdminController(d.Kiosk, opts.AdminPINHash, opts.TokenTTL)
	adminCtrl.Clients = d.Hub.Count

	r.GET("/ping", kioskCtrl.Ping)
	r.GET("/state", kioskCtrl.GetState)

	r.GET("/setup", setupCtrl.GetSetup)
	r.POST("/setup", setupCtrl.Pair)

	r.POST("/language", kioskCtrl.SetLanguage)

	nav := r.Group("/navigation")
	{
		nav.POST("/view", kioskCtrl.SetView)
		nav.POST("/category", kioskCtrl.SetCategory)
		nav.POST("/subcategory", kioskCtrl.SetSubcategory)
	}

	modals := r.Group("/modals")
	{
		modals.POST("/:name/open", kioskCtrl.OpenModal)
		modals.POST("/:name/close", kioskCtrl.CloseModal)
	}

	cart := r.Group("/cart")
	{
		cart.GET("", cartCtrl.GetCart)
		cart.POST("/items", cartCtrl.AddItem)
		cart.PATCH("/items/:item_id", cartCtrl.UpdateItem)
		cart.DELETE("/items/:item_id", cartCtrl.RemoveItem)
	}

	r.POST("/orders/submit", orderCtrl.SubmitOrder)

	// Staff requests go to a real person; keep a customer from spamming them.
	r.POST("/bill", middlewares.NewStrictRateLimiter(10*time.Second, 3), notifCtrl.RequestBill)
	r.POST("/waiter", middlewares.NewStrictRateLimiter(10*time.Second, 3), notifCtrl.CallWaiter)

	kioskGroup := r.Group("/kiosk")
	{
		kioskGroup.GET("/policy", lockCtrl.GetPolicy)
		kioskGroup.POST("/events", lockCtrl.HandleEvent)
		kioskGroup.POST("/activity", lockCtrl.Activity)
	}

	r.POST("/admin/login", middlewares.NewStrictRateLimiter(time.Minute, 5), adminCtrl.Login)
	admin := r.Group("/admin")
	admin.Use(middlewares.AdminAuthMiddleware())
	{
		admin.POST("/logout", adminCtrl.Logout)
		admin.GET("/diagnostics", middlewares.RoleCheck(utils.RoleTechnician), adminCtrl.Diagnostics)
		admin.POST("/unbind", middlewares.RoleCheck(utils.RoleAdmin), adminCtrl.Unbind)
	}

	r.GET("/ws", middlewares.LocalOnly(), controllers.HubHandler(d.Hub, opts.UIOrigin))

	return r
}
