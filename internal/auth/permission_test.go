package auth

import "testing"

func TestParsePermissions(t *testing.T) {
	got := ParsePermissions("Read,Write,Bogus,Admin")
	want := NewPermissionSet(Read, Write, Admin)

	if len(got) != len(want) {
		t.Fatalf("got %d permissions, want %d", len(got), len(want))
	}
	for p := range want {
		if _, ok := got[p]; !ok {
			t.Errorf("missing permission %s", p)
		}
	}
}

func TestPermissionSetHasViaAdmin(t *testing.T) {
	s := NewPermissionSet(Admin)
	if !s.Has(Write) {
		t.Error("Admin should imply Write")
	}
	if !s.Has(RateLimit) {
		t.Error("Admin should imply RateLimit")
	}
}

func TestPermissionSetCloneIsIndependent(t *testing.T) {
	s := NewPermissionSet(Read)
	c := s.Clone()
	c[Write] = struct{}{}

	if s.Has(Write) {
		t.Error("mutating the clone should not affect the original")
	}
}
