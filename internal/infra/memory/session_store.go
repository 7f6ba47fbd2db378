package memory

import (
	"context"
	"sync"
	"time"

	"bible-quiz-service/internal/app"
)

type sessionEntry struct {
	session  *app.Session
	lastSeen time.Time
}

// SessionStore is an in-memory implementation of app.SessionRepository.
// A session that has not been looked up for ttl is reported by Expired; a
// zero ttl keeps sessions until they are deleted.
type SessionStore struct {
	mu       sync.RWMutex
	ttl      time.Duration
	clock    func() time.Time
	sessions map[string]*sessionEntry
}

func NewSessionStore(ttl time.Duration) *SessionStore {
	return &SessionStore{
		ttl:      ttl,
		clock:    time.Now,
		sessions: make(map[string]*sessionEntry),
	}
}

func (s *SessionStore) Add(session *app.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.ID()] = &sessionEntry{session: session, lastSeen: s.clock()}
}

func (s *SessionStore) Get(id string) (*app.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.sessions[id]
	if !ok {
		return nil, false
	}
	entry.lastSeen = s.clock()
	return entry.session, true
}

func (s *SessionStore) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
}

func (s *SessionStore) List() []*app.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*app.Session, 0, len(s.sessions))
	for _, entry := range s.sessions {
		out = append(out, entry.session)
	}
	return out
}

// Expired returns the sessions idle for longer than the ttl.
func (s *SessionStore) Expired(context.Context) ([]string, error) {
	if s.ttl <= 0 {
		return nil, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	now := s.clock()
	var expired []string
	for id, entry := range s.sessions {
		if now.Sub(entry.lastSeen) >= s.ttl {
			expired = append(expired, id)
		}
	}
	return expired, nil
}
