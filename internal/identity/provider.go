package identity

import (
	"sync"
	"time"
)

// Static always reports the same phone number; empty means anonymous.
type Static string

func (s Static) PhoneNumber() (string, bool) {
	return string(s), s != ""
}

// Session holds the signed-in user's token. The phone number is only reported
// while the token is unexpired.
type Session struct {
	tokens *TokenMaker

	mu     sync.RWMutex
	claims *Claims
	now    func() time.Time
}

func NewSession(tokens *TokenMaker) *Session {
	return &Session{tokens: tokens, now: time.Now}
}

// SignIn validates tok and makes it the current identity.
func (s *Session) SignIn(tok string) (Claims, error) {
	c, err := s.tokens.Parse(tok)
	if err != nil {
		return Claims{}, err
	}

	s.mu.Lock()
	s.claims = &c
	s.mu.Unlock()
	return c, nil
}

func (s *Session) SignOut() {
	s.mu.Lock()
	s.claims = nil
	s.mu.Unlock()
}

func (s *Session) PhoneNumber() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.claims == nil {
		return "", false
	}
	if exp := s.claims.ExpiresAt; exp != nil && !exp.After(s.now()) {
		return "", false
	}
	return s.claims.Phone, true
}
