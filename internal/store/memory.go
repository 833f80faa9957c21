package store

import (
	"strings"
	"sync"
	"time"

	"github.com/AtharvDutare/Scan-Crop/internal/auth"
)

var (
	// ErrNotFound is returned when no record matches the lookup key.
	ErrNotFound = auth.ErrNoRecord
	// ErrDuplicate is returned when a user with the same email already exists.
	ErrDuplicate = auth.ErrRecordExists
)

// MemoryStore is a concurrency-safe in-memory implementation of auth.Store.
type MemoryStore struct {
	mu sync.RWMutex

	usersByID    map[string]auth.User
	idByEmail    map[string]string
	sessions     map[string]auth.Session
	verification map[string]auth.Verification
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		usersByID:    make(map[string]auth.User),
		idByEmail:    make(map[string]string),
		sessions:     make(map[string]auth.Session),
		verification: make(map[string]auth.Verification),
	}
}

func emailKey(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// CreateUser stores u; the email must be unused.
func (s *MemoryStore) CreateUser(u auth.User) error {
	key := emailKey(u.Email)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.idByEmail[key]; ok {
		return ErrDuplicate
	}
	s.usersByID[u.ID] = u
	s.idByEmail[key] = u.ID
	return nil
}

// UpdateUser replaces an existing user record.
func (s *MemoryStore) UpdateUser(u auth.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.usersByID[u.ID]; !ok {
		return ErrNotFound
	}
	s.usersByID[u.ID] = u
	return nil
}

func (s *MemoryStore) UserByID(id string) (auth.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.usersByID[id]
	if !ok {
		return auth.User{}, ErrNotFound
	}
	return u, nil
}

func (s *MemoryStore) UserByEmail(email string) (auth.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.idByEmail[emailKey(email)]
	if !ok {
		return auth.User{}, ErrNotFound
	}
	return s.usersByID[id], nil
}

func (s *MemoryStore) SaveSession(sess auth.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[sess.Token] = sess
	return nil
}

func (s *MemoryStore) Session(token string) (auth.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[token]
	if !ok {
		return auth.Session{}, ErrNotFound
	}
	return sess, nil
}

func (s *MemoryStore) DeleteSession(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[token]; !ok {
		return ErrNotFound
	}
	delete(s.sessions, token)
	return nil
}

func (s *MemoryStore) SaveVerification(v auth.Verification) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.verification[v.Code] = v
	return nil
}

// TakeVerification returns and removes the verification for code.
func (s *MemoryStore) TakeVerification(code string) (auth.Verification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.verification[code]
	if !ok {
		return auth.Verification{}, ErrNotFound
	}
	delete(s.verification, code)
	return v, nil
}

// PruneExpired drops sessions and verification codes that expired at or
// before now, and reports how many were removed.
func (s *MemoryStore) PruneExpired(now time.Time) (sessions, codes int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for token, sess := range s.sessions {
		if !sess.ExpiresAt.After(now) {
			delete(s.sessions, token)
			sessions++
		}
	}
	for code, v := range s.verification {
		if !v.ExpiresAt.After(now) {
			delete(s.verification, code)
			codes++
		}
	}
	return sessions, codes
}
