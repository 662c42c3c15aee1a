package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// WriteDescriptor writes a job-description file into a temp dir and returns
// its path.
func WriteDescriptor(t *testing.T, name, content string) string {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// FakeBinDir creates a temp directory intended to hold fake executables and
// prepends it to PATH for the duration of the test.
func FakeBinDir(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	t.Setenv("PATH", dir+string(os.PathListSeparator)+os.Getenv("PATH"))
	return dir
}

// WriteFakeBinary installs an executable shell script under dir. Tests use
// these to stand in for the scheduler and ssh binaries.
func WriteFakeBinary(t *testing.T, dir, name, script string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0755))
	return path
}
