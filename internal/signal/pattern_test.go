package signal

import "testing"

func TestMatches(t *testing.T) {
	cases := []struct {
		pattern, name string
		want           bool
	}{
		{"*", "anything:goes", true},
		{"*", "", true},
		{"build:*", "build:done", true},
		{"build:*", "build:", true},
		{"build:*", "build", false},
		{"build:*", "builder:done", false},
		{"test:*", "build:done", false},
		{"build:done", "build:done", true},
		{"build:done", "build:done2", false},
	}

	for _, tc := range cases {
		if got := Matches(tc.pattern, tc.name); got != tc.want {
			t.Errorf("Matches(%q, %q) = %v, want %v", tc.pattern, tc.name, got, tc.want)
		}
	}
}

func TestMatchesIdempotent(t *testing.T) {
	for _, pattern := range []string{"*", "build:*", "build:done"} {
		for _, name := range []string{"build:done", "other"} {
			a := Matches(pattern, name)
			b := Matches(pattern, name)
			if a != b {
				t.Errorf("Matches(%q, %q) not idempotent: %v != %v", pattern, name, a, b)
			}
		}
	}
}
