package scheduler

import (
	"testing"

	"github.com/grovetools/batchssh/errors"
	"github.com/grovetools/batchssh/testutil"
)

func TestDeriveBatchName(t *testing.T) {
	tests := []struct {
		name string
		path string
		want string
	}{
		{"absolute path", "/home/user/dev/session.jdl", "home_user_dev_session"},
		{"relative path", "jobs/editor.jdl", "jobs_editor"},
		{"no extension", "/scratch/worker", "scratch_worker"},
		{"dots and dashes", "/a/b-c/d.e.jdl", "a_b_c_d_e"},
		{"repeated separators", "//weird//path.jdl", "weird_path"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DeriveBatchName(tt.path); got != tt.want {
				t.Errorf("DeriveBatchName(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}

func TestDeriveBatchNameDeterministic(t *testing.T) {
	a := DeriveBatchName("/home/user/session.jdl")
	b := DeriveBatchName("/home/user/session.jdl")
	if a != b {
		t.Fatalf("batch name not stable: %q vs %q", a, b)
	}
}

func TestPrepare(t *testing.T) {
	path := testutil.WriteDescriptor(t, "session.jdl", "request_cpus = 4\nqueue\n")

	d, err := Prepare(path)
	if err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}
	if d.Raw != "request_cpus = 4\nqueue\n" {
		t.Errorf("Raw = %q, user content must pass through untouched", d.Raw)
	}
	if d.BatchName != DeriveBatchName(path) {
		t.Errorf("BatchName = %q, want %q", d.BatchName, DeriveBatchName(path))
	}
}

func TestPrepareMissingFile(t *testing.T) {
	_, err := Prepare("/nonexistent/session.jdl")
	if err == nil {
		t.Fatal("Prepare() expected error for missing file")
	}
	if errors.GetCode(err) != errors.ErrCodeDescriptorNotFound {
		t.Errorf("error code = %s, want %s", errors.GetCode(err), errors.ErrCodeDescriptorNotFound)
	}
}
