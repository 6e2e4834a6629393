// Package session keeps the certificate each browser session last rendered.
package session

import (
	"errors"
	"sync"
	"time"

	"github.com/JonMunkholm/certgen/internal/certificate"
	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

// ErrNoCertificate is returned when an export is requested before anything
// was rendered in the session.
var ErrNoCertificate = errors.New("no certificate rendered")

// Ticket orders lookups within a session. Tickets are issued by Begin in
// request order.
type Ticket struct {
	SessionID string
	token     uint64
}

type entry struct {
	cert  *certificate.Certificate
	token uint64 // newest ticket that settled this session
}

// Store holds at most one rendered certificate per session. Entries expire
// after the configured TTL of inactivity.
type Store struct {
	mu    sync.Mutex
	cache *cache.Cache
	ttl   time.Duration
	next  uint64
}

// NewStore creates a Store whose entries live for ttl.
func NewStore(ttl time.Duration) *Store {
	return &Store{
		cache: cache.New(ttl, ttl*2),
		ttl:   ttl,
	}
}

// NewID returns a fresh session identifier.
func NewID() string {
	return uuid.NewString()
}

// Begin issues a ticket for a lookup that is about to start.
func (s *Store) Begin(sessionID string) Ticket {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	return Ticket{SessionID: sessionID, token: s.next}
}

// Commit settles a lookup. A nil cert records a failed lookup and leaves the
// current certificate in place. Commit reports false, and changes nothing,
// when a ticket issued after t has already settled.
func (s *Store) Commit(t Ticket, cert *certificate.Certificate) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, _ := s.load(t.SessionID)
	if current.token > t.token {
		return false
	}

	next := entry{cert: current.cert, token: t.token}
	if cert != nil {
		next.cert = cert
	}
	s.cache.Set(t.SessionID, next, s.ttl)
	return true
}

// Get returns the session's certificate or ErrNoCertificate.
func (s *Store) Get(sessionID string) (*certificate.Certificate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.load(sessionID)
	if !ok || e.cert == nil {
		return nil, ErrNoCertificate
	}
	return e.cert, nil
}

// Clear forgets the session.
func (s *Store) Clear(sessionID string) {
	s.cache.Delete(sessionID)
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	return s.cache.ItemCount()
}

func (s *Store) load(sessionID string) (entry, bool) {
	v, ok := s.cache.Get(sessionID)
	if !ok {
		return entry{}, false
	}
	e, ok := v.(entry)
	return e, ok
}
