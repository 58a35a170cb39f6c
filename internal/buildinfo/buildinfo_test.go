package buildinfo

import "testing"

func TestCurrent_PrefersLdflags(t *testing.T) {
	old := Commit
	t.Cleanup(func() { Commit = old })
	Commit = "abc123"

	if got := Current(); got.Commit != "abc123" {
		t.Fatalf("Commit: want abc123, got %q", got.Commit)
	}
	if Current().Version == "" {
		t.Fatalf("expected a version")
	}
}
