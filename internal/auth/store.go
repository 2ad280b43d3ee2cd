// Package auth implements a plaintext-credential user table and an
// opaque bearer-token table with permission snapshots and optional
// expiry. Tokens are server-side and revocable, unlike a self-verifying
// JWT, because revocation and live permission changes both require a
// central table the server can mutate.
package auth

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// DefaultAdminID is the bootstrap administrator user created by
// InitializeDefaults.
const DefaultAdminID = "admin"

// defaultAdminCredential is the plaintext bootstrap password. It exists
// only to get a fresh daemon to a usable state; a real deployment should
// rotate it (REVOKE_TOKEN the bootstrap token, then CREATE_TOKEN fresh
// admins) immediately after startup.
const defaultAdminCredential = "admin123"

const maxTokenGenerationAttempts = 5

type user struct {
	id          string
	verifier    string
	permissions PermissionSet
}

type tokenEntry struct {
	userID      string
	permissions PermissionSet
	createdAt   time.Time
	expiresAt   *time.Time // nil: never expires
}

func (e *tokenEntry) valid(now time.Time) bool {
	return e.expiresAt == nil || !now.After(*e.expiresAt)
}

// Store holds users and issued tokens behind a single mutex. No I/O
// happens while the lock is held.
type Store struct {
	mu     sync.Mutex
	users  map[string]*user
	tokens map[string]*tokenEntry
	logger zerolog.Logger
}

// New creates an empty auth store.
func New(logger zerolog.Logger) *Store {
	return &Store{
		users:  make(map[string]*user),
		tokens: make(map[string]*tokenEntry),
		logger: logger,
	}
}

// InitializeDefaults seeds the bootstrap admin user and issues its
// non-expiring token, returning that token so the caller can surface it
// to the operator at startup.
func (s *Store) InitializeDefaults() (string, error) {
	all := NewPermissionSet(Read, Write, History, RateLimit, Admin)

	s.mu.Lock()
	s.users[DefaultAdminID] = &user{id: DefaultAdminID, verifier: defaultAdminCredential, permissions: all}
	s.mu.Unlock()

	token, err := s.GenerateToken(DefaultAdminID, nil)
	if err != nil {
		return "", fmt.Errorf("issue bootstrap admin token: %w", err)
	}

	s.logger.Info().Str("user_id", DefaultAdminID).Msg("seeded bootstrap admin and issued default token")
	return token, nil
}

// HasUser reports whether a user record exists for userID.
func (s *Store) HasUser(userID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.users[userID]
	return ok
}

// AddUser upserts a user record with the given verifier and permissions.
func (s *Store) AddUser(userID, verifier string, perms PermissionSet) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[userID] = &user{id: userID, verifier: verifier, permissions: perms.Clone()}
}

// EnsureUser upserts userID with an unguessable placeholder verifier and
// the given permissions if no user record yet exists, so CREATE_TOKEN
// can mint a token for a user who has never logged in. The placeholder
// verifier can never be supplied over LOGIN, so the upsert does not
// itself grant password-based access.
func (s *Store) EnsureUser(userID string, perms PermissionSet) error {
	if s.HasUser(userID) {
		return nil
	}
	placeholder, err := generateToken()
	if err != nil {
		return fmt.Errorf("generate placeholder verifier: %w", err)
	}
	s.AddUser(userID, "!unset:"+placeholder, perms)
	return nil
}

// Login verifies a plaintext credential and, on success, issues a new
// token with the given expiry and the user's current permissions.
func (s *Store) Login(userID, credential string, ttl time.Duration) (string, bool) {
	s.mu.Lock()
	u, ok := s.users[userID]
	s.mu.Unlock()

	if !ok || u.verifier != credential {
		return "", false
	}

	token, err := s.GenerateToken(userID, &ttl)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("failed to issue login token")
		return "", false
	}
	return token, true
}

// GenerateToken snapshots userID's current permissions and issues a new
// token, optionally expiring after expiresIn. A nil expiresIn means the
// token never expires.
func (s *Store) GenerateToken(userID string, expiresIn *time.Duration) (string, error) {
	s.mu.Lock()
	u, ok := s.users[userID]
	if !ok {
		s.mu.Unlock()
		return "", fmt.Errorf("unknown user %q", userID)
	}
	perms := u.permissions.Clone()
	s.mu.Unlock()

	var expiresAt *time.Time
	createdAt := time.Now()
	if expiresIn != nil {
		t := createdAt.Add(*expiresIn)
		expiresAt = &t
	}

	for attempt := 0; attempt < maxTokenGenerationAttempts; attempt++ {
		token, err := generateToken()
		if err != nil {
			return "", fmt.Errorf("generate token: %w", err)
		}

		s.mu.Lock()
		if _, collision := s.tokens[token]; collision {
			s.mu.Unlock()
			continue
		}
		s.tokens[token] = &tokenEntry{
			userID:      userID,
			permissions: perms,
			createdAt:   createdAt,
			expiresAt:   expiresAt,
		}
		s.mu.Unlock()
		return token, nil
	}

	return "", fmt.Errorf("could not allocate a unique token after %d attempts", maxTokenGenerationAttempts)
}

// Authenticate reports whether token is present, unexpired, and (if
// required is non-nil) grants the required permission, directly or via
// Admin.
func (s *Store) Authenticate(token string, required *Permission) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.tokens[token]
	if !ok || !entry.valid(time.Now()) {
		return false
	}
	if required == nil {
		return true
	}
	return entry.permissions.Has(*required)
}

// Revoke removes token from the store. Returns whether it existed.
func (s *Store) Revoke(token string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tokens[token]; !ok {
		return false
	}
	delete(s.tokens, token)
	return true
}

// TokenCount returns the number of live tokens, for metrics.
func (s *Store) TokenCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tokens)
}
