package build

import (
	"os"
	"path/filepath"
	"time"
)

var (
	// TestingDir is the directory that contains all of the files and folders
	// created during testing.
	TestingDir = filepath.Join(os.TempDir(), "NodesHubTesting")
)

// TempDir joins the provided directories and prefixes them with the
// package's testing directory, removing any stale data left over from a
// previous run.
func TempDir(dirs ...string) string {
	path := filepath.Join(TestingDir, filepath.Join(dirs...))
	os.RemoveAll(path)
	return path
}

// Retry will call 'fn' 'tries' times, waiting 'durationBetweenAttempts'
// between each attempt, returning 'nil' the first time that 'fn' returns
// nil. If 'nil' is never returned, the final error returned by 'fn' is
// returned. Used throughout the test suite to poll for asynchronous state
// (a listener coming up, an edge finishing its handshake) without a fixed
// sleep.
func Retry(tries int, durationBetweenAttempts time.Duration, fn func() error) (err error) {
	for i := 1; i < tries; i++ {
		err = fn()
		if err == nil {
			return nil
		}
		time.Sleep(durationBetweenAttempts)
	}
	return fn()
}
