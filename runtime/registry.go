package runtime

import (
	"sync"
	"time"

	"github.com/samber/lo"
)

type sessionRecord struct {
	userID      string
	displayName string
	connectedAt time.Time
}

// ConnectionRegistry is the in-memory map of live connections. It keeps
// a forward index (session -> identity) and a reverse index
// (user -> sessions), so one user may hold several concurrent sessions.
//
// Nothing in here survives a restart; sessions are ephemeral by nature.
type ConnectionRegistry struct {
	mu       sync.RWMutex
	sessions map[string]*sessionRecord
	byUser   map[string]map[string]struct{}
}

func NewConnectionRegistry() *ConnectionRegistry {
	return &ConnectionRegistry{
		sessions: make(map[string]*sessionRecord),
		byUser:   make(map[string]map[string]struct{}),
	}
}

// Add registers a fresh, unauthenticated session.
func (r *ConnectionRegistry) Add(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sessions[sessionID] = &sessionRecord{connectedAt: time.Now().UTC()}
}

// Remove forgets a session. Unknown sessions are a no-op.
func (r *ConnectionRegistry) Remove(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.sessions[sessionID]
	if !ok {
		return
	}
	delete(r.sessions, sessionID)
	r.dropReverse(rec.userID, sessionID)
}

// SetUser binds a session to an authenticated user. Rebinding a session
// to another user purges the stale reverse-index entry first. Returns
// false when the session is unknown, so callers can surface the missed
// binding instead of silently handing out an unbound token.
func (r *ConnectionRegistry) SetUser(sessionID, userID, displayName string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.sessions[sessionID]
	if !ok {
		return false
	}
	if rec.userID != "" && rec.userID != userID {
		r.dropReverse(rec.userID, sessionID)
	}
	rec.userID = userID
	rec.displayName = displayName

	if _, ok := r.byUser[userID]; !ok {
		r.byUser[userID] = make(map[string]struct{})
	}
	r.byUser[userID][sessionID] = struct{}{}
	return true
}

// ClearUser reverts a session to the unauthenticated state without
// dropping the connection.
func (r *ConnectionRegistry) ClearUser(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.sessions[sessionID]
	if !ok {
		return
	}
	r.dropReverse(rec.userID, sessionID)
	rec.userID = ""
	rec.displayName = ""
}

// UserID returns the bound user, or "" when the session is unknown or
// not authenticated.
func (r *ConnectionRegistry) UserID(sessionID string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if rec, ok := r.sessions[sessionID]; ok {
		return rec.userID
	}
	return ""
}

func (r *ConnectionRegistry) DisplayName(sessionID string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if rec, ok := r.sessions[sessionID]; ok {
		return rec.displayName
	}
	return ""
}

// SetDisplayName refreshes the cached display name on every live
// session of the user.
func (r *ConnectionRegistry) SetDisplayName(userID, displayName string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for sessionID := range r.byUser[userID] {
		if rec, ok := r.sessions[sessionID]; ok {
			rec.displayName = displayName
		}
	}
}

func (r *ConnectionRegistry) IsUserOnline(userID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.byUser[userID]) > 0
}

func (r *ConnectionRegistry) SessionsForUser(userID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return lo.Keys(r.byUser[userID])
}

func (r *ConnectionRegistry) AllSessions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return lo.Keys(r.sessions)
}

func (r *ConnectionRegistry) OnlineUserIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return lo.Keys(r.byUser)
}

func (r *ConnectionRegistry) OnlineUserCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.byUser)
}

// dropReverse must run under the write lock. Empty per-user sets are
// removed so the map does not grow with churn.
func (r *ConnectionRegistry) dropReverse(userID, sessionID string) {
	if userID == "" {
		return
	}
	if set, ok := r.byUser[userID]; ok {
		delete(set, sessionID)
		if len(set) == 0 {
			delete(r.byUser, userID)
		}
	}
}
