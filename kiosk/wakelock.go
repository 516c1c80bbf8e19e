package kiosk

import (
	"errors"
	"os/exec"
	"sync"

	"github.com/yeremiapane/ordengo-kiosk/utils"
)

// ErrUnsupported means the device cannot keep the display awake. Callers
// treat it as a no-op.
var ErrUnsupported = errors.New("wake lock not supported on this device")

// WakeLocker keeps the display from sleeping.
type WakeLocker interface {
	Acquire() error
	Release() error
	Held() bool
}

// InhibitLocker holds a systemd-inhibit process for as long as the lock is
// wanted. If the process dies the lock is considered dropped.
type InhibitLocker struct {
	lookPath func(string) (string, error)

	mu  sync.Mutex
	cmd *exec.Cmd
}

func NewInhibitLocker() *InhibitLocker {
	return &InhibitLocker{lookPath: exec.LookPath}
}

func (l *InhibitLocker) Acquire() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cmd != nil {
		return nil
	}

	path, err := l.lookPath("systemd-inhibit")
	if err != nil {
		return ErrUnsupported
	}
	cmd := exec.Command(path,
		"--what=idle:sleep",
		"--who=ordengo-kiosk",
		"--why=Kiosk display must stay on",
		"--mode=block",
		"sleep", "infinity",
	)
	if err := cmd.Start(); err != nil {
		return err
	}
	l.cmd = cmd

	go func() {
		err := cmd.Wait()
		l.mu.Lock()
		if l.cmd == cmd {
			l.cmd = nil
			utils.InfoLogger.Printf("Wake lock dropped: %v", err)
		}
		l.mu.Unlock()
	}()
	utils.InfoLogger.Println("Wake lock acquired")
	return nil
}

func (l *InhibitLocker) Release() error {
	l.mu.Lock()
	cmd := l.cmd
	l.cmd = nil
	l.mu.Unlock()

	if cmd == nil || cmd.Process == nil {
		return nil
	}
	return cmd.Process.Kill()
}

func (l *InhibitLocker) Held() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.cmd != nil
}

// NopLocker is used when the wake lock is disabled in the configuration.
type NopLocker struct{}

func (NopLocker) Acquire() error { return ErrUnsupported }
func (NopLocker) Release() error { return nil }
func (NopLocker) Held() bool     { return false }
