package version

import (
	"runtime"
	"strings"
	"testing"
)

func TestString(t *testing.T) {
	banner := String()

	for _, want := range []string{"batchssh", Version, Commit, runtime.Version()} {
		if !strings.Contains(banner, want) {
			t.Errorf("String() = %q, missing %q", banner, want)
		}
	}
}
