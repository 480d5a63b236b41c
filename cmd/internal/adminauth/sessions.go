package adminauth

import (
	"sync"
	"time"
)

// Session is one live admin session.
type Session struct {
	TokenHash string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// SessionTable is an in-memory table of admin sessions keyed by token
// hash. Admin sessions are deliberately not persisted: a restart logs
// every admin out, which is acceptable for this surface and keeps the
// revocation story trivial.
//
// Expired entries are dropped lazily at lookup and can be swept with
// PurgeExpired.
type SessionTable struct {
	mu       sync.RWMutex
	sessions map[string]Session
}

// NewSessionTable builds an empty table.
func NewSessionTable() *SessionTable {
	return &SessionTable{sessions: make(map[string]Session)}
}

// Put registers a session under its token hash.
func (t *SessionTable) Put(s Session) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sessions[s.TokenHash] = s
}

// Get returns the live session for a token hash. Expired sessions are
// removed on the spot and reported as absent.
func (t *SessionTable) Get(tokenHash string, now time.Time) (Session, bool) {
	t.mu.RLock()
	s, ok := t.sessions[tokenHash]
	t.mu.RUnlock()
	if !ok {
		return Session{}, false
	}
	if !s.ExpiresAt.After(now) {
		t.mu.Lock()
		// Re-check under the write lock; another goroutine may have
		// replaced the entry.
		if cur, still := t.sessions[tokenHash]; still && !cur.ExpiresAt.After(now) {
			delete(t.sessions, tokenHash)
		}
		t.mu.Unlock()
		return Session{}, false
	}
	return s, true
}

// Invalidate removes a session regardless of expiry.
func (t *SessionTable) Invalidate(tokenHash string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.sessions, tokenHash)
}

// PurgeExpired sweeps expired sessions and returns how many were
// removed.
func (t *SessionTable) PurgeExpired(now time.Time) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	removed := 0
	for hash, s := range t.sessions {
		if !s.ExpiresAt.After(now) {
			delete(t.sessions, hash)
			removed++
		}
	}
	return removed
}

// Len reports the number of entries, including any not yet swept.
func (t *SessionTable) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.sessions)
}
