package tidepool

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Session is the authenticated identity and token bundle for one
// environment. Sessions are immutable value snapshots: refresh, re-login,
// and logout replace the session wholesale rather than mutating fields.
// A non-nil session always has a non-empty access token and a valid
// environment; the absence of a session is the canonical logged-out state.
type Session struct {
	Environment  Environment `json:"environment"`
	AccessToken  string      `json:"accessToken"`
	RefreshToken string      `json:"refreshToken,omitempty"`
	UserID       string      `json:"userId,omitempty"`
	IssuedAt     time.Time   `json:"issuedAt,omitempty"`
	ExpiresAt    time.Time   `json:"expiresAt,omitempty"`
}

// Expired reports whether the access token is past its recorded expiry.
// Sessions without expiry metadata never report expired; the server remains
// the authority either way.
func (s *Session) Expired() bool {
	return !s.ExpiresAt.IsZero() && time.Now().After(s.ExpiresAt)
}

// NewSession builds a session for the given environment from a token pair.
// The user identifier and issuance/expiry metadata are extracted from the
// access token claims when present. The token signature is not verified
// here; the server that issued it is the authority.
func NewSession(environment Environment, accessToken, refreshToken string) *Session {
	session := &Session{
		Environment:  environment,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(accessToken, claims); err == nil {
		if sub, err := claims.GetSubject(); err == nil {
			session.UserID = sub
		}
		if iat, err := claims.GetIssuedAt(); err == nil && iat != nil {
			session.IssuedAt = iat.Time
		}
		if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
			session.ExpiresAt = exp.Time
		}
	}

	return session
}

// SessionObserver is notified with the new session after every replacement.
// A nil session means logout. Observers run outside the store's lock and
// asynchronously relative to the mutator; when replacements can race, read
// Current() rather than trusting the notification payload.
type SessionObserver func(*Session)

// sessionSubscription is one registered observer.
type sessionSubscription struct {
	fn     SessionObserver
	active atomic.Bool
}

// SessionStore holds the current session under a concurrency-safe boundary
// and fans out every replacement to subscribed observers. It persists
// nothing itself; persistence belongs to an observer.
type SessionStore struct {
	mu      sync.RWMutex
	session *Session
	subs    []*sessionSubscription
}

// NewSessionStore creates an empty session store.
func NewSessionStore() *SessionStore {
	return &SessionStore{}
}

// Current returns a snapshot of the current session, or nil when logged out.
func (s *SessionStore) Current() *Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.session == nil {
		return nil
	}
	snapshot := *s.session
	return &snapshot
}

// Replace installs a new session, replacing any previous one. Passing nil
// logs out. Replace is the only mutator; readers never observe a partially
// updated session. Observers are notified in subscription order after the
// internal lock is released.
func (s *SessionStore) Replace(session *Session) {
	var stored *Session
	if session != nil {
		copied := *session
		stored = &copied
	}

	s.mu.Lock()
	s.session = stored
	subs := make([]*sessionSubscription, len(s.subs))
	copy(subs, s.subs)
	s.mu.Unlock()

	if len(subs) == 0 {
		return
	}

	var notified *Session
	if stored != nil {
		snapshot := *stored
		notified = &snapshot
	}

	// One goroutine per replacement keeps subscription order within a
	// notification while never blocking the mutator.
	go func() {
		for _, sub := range subs {
			if sub.active.Load() {
				sub.fn(notified)
			}
		}
	}()
}

// Subscribe registers an observer for session replacements and returns its
// unsubscribe function. Safe to call the returned function multiple times.
func (s *SessionStore) Subscribe(fn SessionObserver) func() {
	sub := &sessionSubscription{fn: fn}
	sub.active.Store(true)

	s.mu.Lock()
	s.subs = append(s.subs, sub)
	s.mu.Unlock()

	return func() {
		sub.active.Store(false)
		s.mu.Lock()
		for i, candidate := range s.subs {
			if candidate == sub {
				s.subs = append(s.subs[:i], s.subs[i+1:]...)
				break
			}
		}
		s.mu.Unlock()
	}
}
