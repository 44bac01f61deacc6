// Package session keeps per-browser conversation state in memory.
// Sessions are identified by a random cookie token and expire after a
// period of inactivity; a janitor goroutine sweeps expired entries.
package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"sync"
	"time"

	"github.com/rmehran/campuschat/internal/model"
)

// DefaultTTL is the inactivity window before a session is discarded.
const DefaultTTL = 24 * time.Hour

type entry struct {
	sess     *model.Session
	lastSeen time.Time
}

// Store is an in-memory session registry safe for concurrent use.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*entry
	ttl      time.Duration
}

// NewStore creates a store with the given inactivity TTL. A zero ttl
// uses DefaultTTL.
func NewStore(ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{
		sessions: make(map[string]*entry),
		ttl:      ttl,
	}
}

func generateToken() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		panic("session: crypto/rand unavailable: " + err.Error())
	}
	return hex.EncodeToString(b)
}

// Create registers a fresh session and returns its token.
func (s *Store) Create() (string, *model.Session) {
	token := generateToken()
	sess := model.NewSession()

	s.mu.Lock()
	s.sessions[token] = &entry{sess: sess, lastSeen: time.Now()}
	s.mu.Unlock()

	return token, sess
}

// Get returns the session for token, refreshing its activity stamp.
// Expired sessions are removed and reported as missing.
func (s *Store) Get(token string) (*model.Session, bool) {
	if token == "" {
		return nil, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.sessions[token]
	if !ok {
		return nil, false
	}
	if time.Since(e.lastSeen) > s.ttl {
		delete(s.sessions, token)
		return nil, false
	}
	e.lastSeen = time.Now()
	return e.sess, true
}

// Delete removes a session, if present.
func (s *Store) Delete(token string) {
	s.mu.Lock()
	delete(s.sessions, token)
	s.mu.Unlock()
}

// Len reports the number of live sessions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// StartJanitor sweeps expired sessions every interval until ctx is
// done.
func (s *Store) StartJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Hour
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := s.sweep(); n > 0 {
					slog.Debug("expired sessions removed", "count", n)
				}
			}
		}
	}()
}

func (s *Store) sweep() int {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for token, e := range s.sessions {
		if now.Sub(e.lastSeen) > s.ttl {
			delete(s.sessions, token)
			removed++
		}
	}
	return removed
}
