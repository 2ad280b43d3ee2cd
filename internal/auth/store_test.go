package auth

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func newTestStore() *Store {
	return New(zerolog.Nop())
}

func TestInitializeDefaultsAndAuthenticate(t *testing.T) {
	s := newTestStore()
	token, err := s.InitializeDefaults()
	if err != nil {
		t.Fatalf("InitializeDefaults: %v", err)
	}

	if !s.Authenticate(token, nil) {
		t.Fatal("bootstrap token should authenticate")
	}
	admin := Admin
	if !s.Authenticate(token, &admin) {
		t.Fatal("bootstrap token should carry Admin")
	}
}

func TestLoginSuccessAndFailure(t *testing.T) {
	s := newTestStore()
	s.AddUser("alice", "secret", NewPermissionSet(Read))

	token, ok := s.Login("alice", "secret", time.Hour)
	if !ok || token == "" {
		t.Fatal("expected successful login")
	}
	if !s.Authenticate(token, nil) {
		t.Fatal("issued token should authenticate")
	}

	if _, ok := s.Login("alice", "wrong", time.Hour); ok {
		t.Fatal("wrong credential should fail login")
	}
	if _, ok := s.Login("bob", "secret", time.Hour); ok {
		t.Fatal("unknown user should fail login")
	}
}

func TestAuthenticateRequiresPermission(t *testing.T) {
	s := newTestStore()
	s.AddUser("alice", "secret", NewPermissionSet(Read))
	token, _ := s.Login("alice", "secret", time.Hour)

	write := Write
	if s.Authenticate(token, &write) {
		t.Fatal("token without Write should fail Write check")
	}
	read := Read
	if !s.Authenticate(token, &read) {
		t.Fatal("token with Read should pass Read check")
	}
}

func TestAdminImpliesAllPermissions(t *testing.T) {
	s := newTestStore()
	s.AddUser("root", "secret", NewPermissionSet(Admin))
	token, _ := s.Login("root", "secret", time.Hour)

	for _, p := range []Permission{Read, Write, History, RateLimit, Admin} {
		p := p
		if !s.Authenticate(token, &p) {
			t.Errorf("Admin token should satisfy %s", p)
		}
	}
}

func TestTokenExpiry(t *testing.T) {
	s := newTestStore()
	s.AddUser("alice", "secret", NewPermissionSet(Read))

	token, err := s.GenerateToken("alice", durationPtr(-time.Second))
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	if s.Authenticate(token, nil) {
		t.Fatal("already-expired token should not authenticate")
	}
}

func TestGenerateTokenNoExpiry(t *testing.T) {
	s := newTestStore()
	s.AddUser("alice", "secret", NewPermissionSet(Read))

	token, err := s.GenerateToken("alice", nil)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	if !s.Authenticate(token, nil) {
		t.Fatal("non-expiring token should authenticate")
	}
}

func TestGenerateTokenUnknownUser(t *testing.T) {
	s := newTestStore()
	if _, err := s.GenerateToken("ghost", nil); err == nil {
		t.Fatal("expected error generating a token for an unknown user")
	}
}

func TestRevoke(t *testing.T) {
	s := newTestStore()
	s.AddUser("alice", "secret", NewPermissionSet(Read))
	token, _ := s.Login("alice", "secret", time.Hour)

	if !s.Revoke(token) {
		t.Fatal("revoke should report the token existed")
	}
	if s.Authenticate(token, nil) {
		t.Fatal("revoked token should no longer authenticate")
	}
	if s.Revoke(token) {
		t.Fatal("revoking twice should report false the second time")
	}
}

func TestAddUserUpsertForCreateToken(t *testing.T) {
	s := newTestStore()
	if s.HasUser("newbie") {
		t.Fatal("user should not exist yet")
	}

	s.AddUser("newbie", "placeholder", NewPermissionSet(Read, Write))
	if !s.HasUser("newbie") {
		t.Fatal("user should now exist")
	}

	token, err := s.GenerateToken("newbie", nil)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	write := Write
	if !s.Authenticate(token, &write) {
		t.Fatal("upserted user's permissions should carry through to the issued token")
	}
}

func durationPtr(d time.Duration) *time.Duration { return &d }
