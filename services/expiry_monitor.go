package services

import (
	"sync"
	"time"

	"github.com/yeremiapane/ordengo-kiosk/utils"
)

// ExpiryMonitor periodically drops expired device settings. When the table
// token itself expires the device is unbound, the same way a rejected token
// is handled at boot.
type ExpiryMonitor struct {
	Kiosk    *Kiosk
	StopChan chan struct{}
	Interval time.Duration

	stopOnce sync.Once
}

func NewExpiryMonitor(k *Kiosk) *ExpiryMonitor {
	return &ExpiryMonitor{
		Kiosk:    k,
		StopChan: make(chan struct{}),
		Interval: time.Hour,
	}
}

func (em *ExpiryMonitor) Start() {
	go func() {
		ticker := time.NewTicker(em.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				em.checkExpiry()
			case <-em.StopChan:
				return
			}
		}
	}()
}

func (em *ExpiryMonitor) Stop() {
	em.stopOnce.Do(func() { close(em.StopChan) })
}

func (em *ExpiryMonitor) checkExpiry() {
	n, err := em.Kiosk.store.PurgeExpired()
	if err != nil {
		utils.ErrorLogger.Printf("Error purging expired settings: %v", err)
		return
	}
	if n == 0 {
		return
	}
	utils.InfoLogger.Printf("Purged %d expired settings", n)

	if em.Kiosk.App.Binding() == nil {
		return
	}
	binding, err := em.Kiosk.store.Load()
	if err != nil {
		utils.ErrorLogger.Printf("Error reloading binding: %v", err)
		return
	}
	if binding == nil {
		_ = em.Kiosk.Reset.HardUnbind("binding expired")
	}
}
