package version

import (
	"strings"
	"testing"
)

func TestVersion(t *testing.T) {
	if Version == "" {
		t.Error("Version should not be empty")
	}
}

func TestBuildInfo(t *testing.T) {
	if BuildTime == "" {
		t.Error("BuildTime should be initialized")
	}
	if GitCommit == "" {
		t.Error("GitCommit should be initialized")
	}
}

func TestString(t *testing.T) {
	old := Version
	t.Cleanup(func() { Version = old })

	Version = "v1.2.3"
	s := String()
	if !strings.HasPrefix(s, "webdog v1.2.3 ") {
		t.Errorf("unexpected version string %q", s)
	}
	if !strings.Contains(s, "commit "+GitCommit) {
		t.Errorf("version string %q is missing the commit", s)
	}
}
