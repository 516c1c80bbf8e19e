package kiosk

import (
	"sync"
	"time"

	"github.com/yeremiapane/ordengo-kiosk/utils"
)

// Events pushed by the idle monitor.
const (
	PushIdle   = "idle"
	PushActive = "active"
)

// Broadcaster delivers an event to the UI shells.
type Broadcaster interface {
	Broadcast(event string, data interface{})
}

// IdleMonitor switches the kiosk to its attract screen after Timeout without
// customer activity.
type IdleMonitor struct {
	Timeout  time.Duration
	Interval time.Duration
	StopChan chan struct{}

	push     Broadcaster
	now      func() time.Time
	stopOnce sync.Once

	mu           sync.Mutex
	lastActivity time.Time
	idle         bool
}

func NewIdleMonitor(timeout time.Duration, push Broadcaster) *IdleMonitor {
	if timeout <= 0 {
		timeout = 180 * time.Second
	}
	interval := time.Second
	if timeout < 4*interval {
		interval = timeout / 4
	}
	return &IdleMonitor{
		Timeout:      timeout,
		Interval:     interval,
		StopChan:     make(chan struct{}),
		push:         push,
		now:          time.Now,
		lastActivity: time.Now(),
	}
}

func (m *IdleMonitor) Start() {
	go func() {
		ticker := time.NewTicker(m.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				m.check()
			case <-m.StopChan:
				return
			}
		}
	}()
}

func (m *IdleMonitor) Stop() {
	m.stopOnce.Do(func() { close(m.StopChan) })
}

// Activity records a customer interaction and leaves the idle screen.
func (m *IdleMonitor) Activity() {
	m.mu.Lock()
	m.lastActivity = m.now()
	wasIdle := m.idle
	m.idle = false
	m.mu.Unlock()

	if wasIdle {
		m.broadcast(PushActive, nil)
	}
}

// ForceIdle shows the idle screen immediately, e.g. after the tab was closed.
func (m *IdleMonitor) ForceIdle() {
	m.mu.Lock()
	m.idle = true
	m.mu.Unlock()
	m.broadcast(PushIdle, map[string]bool{"forced": true})
}

func (m *IdleMonitor) IsIdle() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.idle
}

func (m *IdleMonitor) check() {
	m.mu.Lock()
	if m.idle || m.now().Sub(m.lastActivity) < m.Timeout {
		m.mu.Unlock()
		return
	}
	m.idle = true
	m.mu.Unlock()

	utils.InfoLogger.Debugf("No activity for %s, going idle", m.Timeout)
	m.broadcast(PushIdle, map[string]bool{"forced": false})
}

func (m *IdleMonitor) broadcast(event string, data interface{}) {
	if m.push != nil {
		m.push.Broadcast(event, data)
	}
}
