package auth

import (
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"golang.org/x/crypto/bcrypt"
)

// memStore mirrors the basic contract of the users table so login and
// register still succeed when the database is unavailable. Seeded with the
// demo user so demo environments work without signup.
type memStore struct {
	mu    sync.RWMutex
	seq   atomic.Int64
	users map[string]*memUser
}

type memUser struct {
	ID           string
	Username     string
	Email        string
	passwordHash string
}

func newMemStore() *memStore {
	s := &memStore{users: make(map[string]*memUser)}
	s.seq.Store(1000)
	hash, _ := bcrypt.GenerateFromPassword([]byte("demo123"), bcrypt.DefaultCost)
	s.add(&memUser{ID: "1", Username: "demo", Email: "demo@example.com", passwordHash: string(hash)})
	return s
}

func (s *memStore) find(usernameOrEmail string) (*memUser, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[key(usernameOrEmail)]
	return u, ok
}

func (s *memStore) insert(username, email, passwordHash string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.users[key(username)]; exists {
		return "", ErrInvalidCredentials
	}
	if _, exists := s.users[key(email)]; exists {
		return "", ErrInvalidCredentials
	}
	u := &memUser{
		ID:           strconv.FormatInt(s.seq.Add(1), 10),
		Username:     username,
		Email:        email,
		passwordHash: passwordHash,
	}
	s.addLocked(u)
	return u.ID, nil
}

func (s *memStore) add(u *memUser) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.addLocked(u)
}

func (s *memStore) addLocked(u *memUser) {
	s.users[key(u.Username)] = u
	s.users[key(u.Email)] = u
}

func key(v string) string {
	return strings.ToLower(strings.TrimSpace(v))
}
