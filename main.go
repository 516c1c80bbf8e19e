package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/yeremiapane/ordengo-kiosk/config"
	"github.com/yeremiapane/ordengo-kiosk/database"
	"github.com/yeremiapane/ordengo-kiosk/hub"
	"github.com/yeremiapane/ordengo-kiosk/kiosk"
	"github.com/yeremiapane/ordengo-kiosk/router"
	"github.com/yeremiapane/ordengo-kiosk/services"
	"github.com/yeremiapane/ordengo-kiosk/utils"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		utils.ErrorLogger.Fatalf("Failed to load configuration: %v", err)
	}
	utils.SetLogLevel(cfg.LogLevel)

	if cfg.GinMode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	if cfg.JWTSecret == "" {
		// Maintenance tokens then only live as long as this process.
		utils.InfoLogger.Println("Warning: JWT_SECRET not set, using a random secret")
		cfg.JWTSecret = uuid.NewString()
	}
	utils.SetJWTSecret(cfg.JWTSecret)

	db, err := config.InitDB(cfg)
	if err != nil {
		utils.ErrorLogger.Fatalf("Failed to connect to database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		utils.ErrorLogger.Fatalf("Failed to migrate: %v", err)
	}

	store := services.NewDeviceStore(db)
	backend := services.NewBackendClient(cfg.APIBaseURL, cfg.HTTPTimeout, store.TableToken)
	uiHub := hub.New()

	k := services.NewKiosk(store, backend, uiHub, services.KioskConfig{
		DefaultLanguage: cfg.DefaultLanguage,
		DefaultCurrency: cfg.DefaultCurrency,
		Realtime: services.RealtimeConfig{
			URL:         cfg.SocketURL,
			Protocol:    cfg.RealtimeProtocol,
			MaxAttempts: cfg.RealtimeMaxAttempts,
			RetryDelay:  cfg.RealtimeRetryDelay,
		},
	})

	var locker kiosk.WakeLocker = kiosk.NopLocker{}
	if cfg.WakeLock {
		locker = kiosk.NewInhibitLocker()
	}
	guard := kiosk.NewGuard(locker, k.State.Route)
	idle := kiosk.NewIdleMonitor(cfg.IdleTimeout, uiHub)
	k.Reset.OnSoftReset(idle.ForceIdle)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	bootCtx, cancelBoot := context.WithTimeout(ctx, cfg.HTTPTimeout)
	if err := k.Boot(bootCtx); err != nil {
		cancelBoot()
		utils.ErrorLogger.Fatalf("Failed to boot kiosk: %v", err)
	}
	cancelBoot()

	guard.Start()
	defer guard.Stop()
	idle.Start()
	defer idle.Stop()

	expiry := services.NewExpiryMonitor(k)
	expiry.Start()
	defer expiry.Stop()

	r := router.SetupRouter(router.Deps{
		Kiosk: k,
		Guard: guard,
		Idle:  idle,
		Hub:   uiHub,
	}, router.Options{
		UIOrigin:     cfg.UIOrigin,
		AdminPINHash: cfg.AdminPINHash,
	})
	if err := r.SetTrustedProxies(nil); err != nil {
		utils.ErrorLogger.Printf("Error setting trusted proxies: %v", err)
	}

	srv := &http.Server{
		Addr:              cfg.ListenAddr(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		utils.InfoLogger.Printf("Local control API listening on %s", cfg.ListenAddr())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			utils.ErrorLogger.Fatal(err)
		}
	}()

	<-ctx.Done()
	utils.InfoLogger.Println("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	uiHub.CloseAll()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		utils.ErrorLogger.Printf("Error shutting down HTTP server: %v", err)
	}
	if err := k.Shutdown(shutdownCtx); err != nil {
		utils.ErrorLogger.Printf("Error closing realtime channel: %v", err)
	}
}
