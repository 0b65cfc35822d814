package config

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatchFilesRequiresPaths(t *testing.T) {
	err := WatchFiles(context.Background(), nil, func(string) {})
	assert.Error(t, err)
}

func TestWatchReloadsOnChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "blockstorm.toml")
	require.NoError(t, os.WriteFile(path, []byte("[history]\nmaxEntries = 5\n"), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		mu   sync.Mutex
		got  []Config
		errs []error
	)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, path, func(cfg Config, err error) {
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
				return
			}
			got = append(got, cfg)
		}, WithDebounce(0), WithLoadOptions(WithEnvLoader(nil)))
	}()

	// The watcher starts asynchronously; keep rewriting until it notices.
	require.Eventually(t, func() bool {
		_ = os.WriteFile(path, []byte("[history]\nmaxEntries = 9\n"), 0o644)
		mu.Lock()
		defer mu.Unlock()
		return len(got) > 0
	}, 3*time.Second, 50*time.Millisecond)

	mu.Lock()
	assert.Equal(t, 9, got[len(got)-1].History.MaxEntries)
	assert.Empty(t, errs)
	mu.Unlock()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Watch did not return after cancel")
	}
}

func TestWatchFilesIgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "watched.yaml")
	other := filepath.Join(dir, "other.yaml")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var seen []string
	go func() {
		_ = WatchFiles(ctx, []string{path}, func(p string) {
			mu.Lock()
			seen = append(seen, p)
			mu.Unlock()
		}, WithDebounce(10*time.Millisecond))
	}()

	require.Eventually(t, func() bool {
		_ = os.WriteFile(other, []byte("x: 1\n"), 0o644)
		_ = os.WriteFile(path, []byte("x: 1\n"), 0o644)
		mu.Lock()
		defer mu.Unlock()
		return len(seen) > 0
	}, 3*time.Second, 50*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	for _, p := range seen {
		assert.Equal(t, filepath.Base(path), filepath.Base(p))
	}
}
