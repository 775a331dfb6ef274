package client

import (
	"sync"
)

// Session is the identity and credential issued by a successful login or
// registration. The JSON form is suitable for persisting between runs.
type Session struct {
	AccessToken string `json:"access_token"`
	DeviceID    string `json:"device_id"`
	UserID      string `json:"user_id"`
}

// sessionStore is the single mutable slot shared by every handle of a
// Client. Each method is one critical section; none is held across I/O.
type sessionStore struct {
	mu      sync.Mutex
	session *Session
}

func (s *sessionStore) get() (Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.session == nil {
		return Session{}, false
	}

	return *s.session, true
}

func (s *sessionStore) set(session Session) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.session = &session
}

func (s *sessionStore) clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.session = nil
}
