package pathutil

import (
	"path/filepath"
	"strings"
	"testing"
)

func TestExpand(t *testing.T) {
	t.Setenv("PATHUTIL_TEST_DIR", "/scratch/work")

	got, err := Expand("$PATHUTIL_TEST_DIR/session.jdl")
	if err != nil {
		t.Fatalf("Expand() error = %v", err)
	}
	if got != "/scratch/work/session.jdl" {
		t.Errorf("Expand() = %q", got)
	}

	got, err = Expand("~/jobs/session.jdl")
	if err != nil {
		t.Fatalf("Expand() error = %v", err)
	}
	if strings.HasPrefix(got, "~") || !filepath.IsAbs(got) {
		t.Errorf("Expand(~) = %q, want absolute path", got)
	}
}
