package services

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/yeremiapane/ordengo-kiosk/models"
	"github.com/yeremiapane/ordengo-kiosk/utils"
	"golang.org/x/sync/singleflight"
)

const sessionStartTimeout = 15 * time.Second

// SessionMarker persists the current session id for the lifetime of the
// process. *DeviceStore implements it.
type SessionMarker interface {
	SetSessionMarker(sessionID string) error
	ClearSessionMarker() error
}

// SessionResolver owns the ordering session id. Creation is single-flight:
// concurrent callers without a cached id share one session/start call.
//
// Every Clear bumps the generation. A session/start that completes after a
// Clear is not cached, so a reset always wins over an in-flight creation.
type SessionResolver struct {
	backend Backend
	marker  SessionMarker
	group   singleflight.Group

	mu         sync.Mutex
	sessionID  string
	generation uint64
}

func NewSessionResolver(backend Backend, marker SessionMarker) *SessionResolver {
	return &SessionResolver{backend: backend, marker: marker}
}

// ResolveTableIdentity performs the access lookup for tableToken. An invalid
// token yields ErrTableNotFound; the caller must re-pair the device.
func (r *SessionResolver) ResolveTableIdentity(ctx context.Context, tableToken string) (*models.TableResolution, error) {
	if tableToken == "" {
		return nil, ErrNotPaired
	}
	access, err := r.backend.TableAccess(ctx, tableToken)
	if err != nil {
		return nil, err
	}

	identity, err := models.NewTableIdentity(access.Table.UUID, access.Table.ID)
	if err != nil {
		return nil, fmt.Errorf("resolve table identity: %w", err)
	}
	return &models.TableResolution{
		Identity:        identity,
		Access:          *access,
		CachedSessionID: access.Table.CurrentSessionID.String(),
	}, nil
}

// EnsureSession returns the cached session id or creates one. The returned
// generation lets the caller detect a reset that happened meanwhile.
func (r *SessionResolver) EnsureSession(ctx context.Context, restaurantID, tableRef models.FlexID) (string, uint64, error) {
	r.mu.Lock()
	if r.sessionID != "" {
		id, gen := r.sessionID, r.generation
		r.mu.Unlock()
		return id, gen, nil
	}
	gen := r.generation
	r.mu.Unlock()

	if restaurantID.IsZero() || tableRef.IsZero() {
		return "", gen, ErrNotPaired
	}

	key := "session-" + strconv.FormatUint(gen, 10)
	v, err, shared := r.group.Do(key, func() (interface{}, error) {
		r.mu.Lock()
		if r.sessionID != "" && r.generation == gen {
			id := r.sessionID
			r.mu.Unlock()
			return id, nil
		}
		r.mu.Unlock()

		// Shared by every caller that joined; one of them going away must
		// not fail the others.
		startCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sessionStartTimeout)
		defer cancel()
		id, err := r.backend.StartSession(startCtx, models.SessionStartRequest{
			TableID:      tableRef,
			RestaurantID: restaurantID,
		})
		if err != nil {
			return "", err
		}

		r.mu.Lock()
		defer r.mu.Unlock()
		if r.generation != gen {
			utils.InfoLogger.Printf("Session %s created after a reset, not caching it", id)
			return id, nil
		}
		r.sessionID = id
		r.persist(id)
		utils.InfoLogger.Printf("Ordering session %s started", id)
		return id, nil
	})
	if err != nil {
		return "", gen, fmt.Errorf("start session: %w", err)
	}
	if shared {
		utils.InfoLogger.Debugf("Joined in-flight session creation (generation %d)", gen)
	}
	return v.(string), gen, nil
}

// Adopt caches a session discovered by the access lookup.
// An already cached id wins.
func (r *SessionResolver) Adopt(sessionID string) {
	if sessionID == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sessionID != "" {
		return
	}
	r.sessionID = sessionID
	r.persist(sessionID)
}

func (r *SessionResolver) SessionID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sessionID
}

func (r *SessionResolver) Generation() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.generation
}

// Forget drops sessionID if it is still the cached session. Unlike Clear it
// keeps the generation, so other submissions in flight still complete.
func (r *SessionResolver) Forget(sessionID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if sessionID == "" || r.sessionID != sessionID {
		return false
	}
	r.sessionID = ""
	if r.marker != nil {
		if err := r.marker.ClearSessionMarker(); err != nil {
			utils.ErrorLogger.Printf("Error clearing session marker: %v", err)
		}
	}
	return true
}

// Clear forgets the session and starts a new generation.
func (r *SessionResolver) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessionID = ""
	r.generation++
	if r.marker != nil {
		if err := r.marker.ClearSessionMarker(); err != nil {
			utils.ErrorLogger.Printf("Error clearing session marker: %v", err)
		}
	}
}

// persist must be called with mu held.
func (r *SessionResolver) persist(id string) {
	if r.marker == nil {
		return
	}
	if err := r.marker.SetSessionMarker(id); err != nil {
		utils.ErrorLogger.Printf("Error saving session marker: %v", err)
	}
}
