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

	"github.com/vberezan/multitier/internal/observability"
)

const validWatcherYAML = `
server:
  addr: ":8080"
sites:
  - slug: acme
    isActive: true
routes:
  - pattern: "^$"
    handler: pages.home
    name: home
`

// invalidWatcherYAML parses but fails validation.
const invalidWatcherYAML = `
server:
  addr: ":8080"
registry:
  backend: cassandra
`

func writeWatcherConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "multitier.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestNewWatcher(t *testing.T) {
	t.Parallel()

	configPath := writeWatcherConfig(t, validWatcherYAML)

	watcher, err := NewWatcher(configPath, func(cfg *Config) {})
	require.NoError(t, err)
	require.NotNil(t, watcher)

	assert.Equal(t, configPath, watcher.path)
	assert.NotNil(t, watcher.callback)
	assert.Equal(t, 100*time.Millisecond, watcher.debounceDelay)
}

func TestNewWatcherWithOptions(t *testing.T) {
	t.Parallel()

	configPath := writeWatcherConfig(t, validWatcherYAML)
	logger := observability.NopLogger()

	watcher, err := NewWatcher(configPath, func(cfg *Config) {},
		WithDebounceDelay(200*time.Millisecond),
		WithWatcherLogger(logger),
		WithErrorCallback(func(err error) {}),
	)
	require.NoError(t, err)

	assert.Equal(t, 200*time.Millisecond, watcher.debounceDelay)
	assert.Equal(t, logger, watcher.logger)
	assert.NotNil(t, watcher.errorCallback)
}

func TestWatcherStart(t *testing.T) {
	// Not parallel due to file system operations

	configPath := writeWatcherConfig(t, validWatcherYAML)

	watcher, err := NewWatcher(configPath, func(cfg *Config) {})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, watcher.Start(ctx))

	cfg := watcher.GetLastConfig()
	require.NotNil(t, cfg)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	require.Len(t, cfg.Sites, 1)
	assert.Equal(t, "acme", cfg.Sites[0].Slug)

	require.NoError(t, watcher.Stop())
}

func TestWatcherStartAlreadyRunning(t *testing.T) {
	// Not parallel due to file system operations

	configPath := writeWatcherConfig(t, validWatcherYAML)

	watcher, err := NewWatcher(configPath, func(cfg *Config) {})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, watcher.Start(ctx))
	assert.NoError(t, watcher.Start(ctx))

	require.NoError(t, watcher.Stop())
}

func TestWatcherStartInvalidConfig(t *testing.T) {
	// Not parallel due to file system operations

	configPath := writeWatcherConfig(t, invalidWatcherYAML)

	watcher, err := NewWatcher(configPath, func(cfg *Config) {})
	require.NoError(t, err)

	assert.Error(t, watcher.Start(context.Background()))
}

func TestWatcherStartFileNotFound(t *testing.T) {
	// Not parallel due to file system operations

	configPath := filepath.Join(t.TempDir(), "missing.yaml")

	watcher, err := NewWatcher(configPath, func(cfg *Config) {})
	require.NoError(t, err)

	assert.Error(t, watcher.Start(context.Background()))
}

func TestWatcherStopNotRunning(t *testing.T) {
	t.Parallel()

	configPath := writeWatcherConfig(t, validWatcherYAML)

	watcher, err := NewWatcher(configPath, func(cfg *Config) {})
	require.NoError(t, err)

	assert.NoError(t, watcher.Stop())
}

func TestWatcherGetLastConfigBeforeStart(t *testing.T) {
	t.Parallel()

	configPath := writeWatcherConfig(t, validWatcherYAML)

	watcher, err := NewWatcher(configPath, func(cfg *Config) {})
	require.NoError(t, err)

	assert.Nil(t, watcher.GetLastConfig())
}

func TestWatcherFileChange(t *testing.T) {
	// Not parallel due to file system operations and timing

	configPath := writeWatcherConfig(t, validWatcherYAML)

	var mu sync.Mutex
	var received *Config
	callbackCalled := make(chan struct{}, 1)

	callback := func(cfg *Config) {
		mu.Lock()
		received = cfg
		mu.Unlock()
		select {
		case callbackCalled <- struct{}{}:
		default:
		}
	}

	watcher, err := NewWatcher(configPath, callback,
		WithDebounceDelay(50*time.Millisecond),
	)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, watcher.Start(ctx))

	updated := `
server:
  addr: ":9090"
sites:
  - slug: updated
    isActive: true
`
	// Let the watch goroutine settle before touching the file.
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(configPath, []byte(updated), 0644))

	select {
	case <-callbackCalled:
		mu.Lock()
		require.NotNil(t, received)
		assert.Equal(t, ":9090", received.Server.Addr)
		require.Len(t, received.Sites, 1)
		assert.Equal(t, "updated", received.Sites[0].Slug)
		mu.Unlock()
	case <-time.After(2 * time.Second):
		t.Fatal("callback was not called after file change")
	}

	last := watcher.GetLastConfig()
	require.NotNil(t, last)
	assert.Equal(t, ":9090", last.Server.Addr)

	require.NoError(t, watcher.Stop())
}

func TestWatcherFileChangeInvalidConfig(t *testing.T) {
	// Not parallel due to file system operations and timing

	configPath := writeWatcherConfig(t, validWatcherYAML)

	errorReceived := make(chan error, 1)
	errorCallback := func(err error) {
		select {
		case errorReceived <- err:
		default:
		}
	}

	watcher, err := NewWatcher(configPath, func(cfg *Config) {},
		WithDebounceDelay(50*time.Millisecond),
		WithErrorCallback(errorCallback),
	)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, watcher.Start(ctx))

	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(configPath, []byte(invalidWatcherYAML), 0644))

	select {
	case err := <-errorReceived:
		assert.Error(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("error callback was not called after invalid change")
	}

	// the previous valid config must survive the failed reload
	last := watcher.GetLastConfig()
	require.NotNil(t, last)
	assert.Equal(t, ":8080", last.Server.Addr)

	require.NoError(t, watcher.Stop())
}

func TestWatcherContextCancellation(t *testing.T) {
	// Not parallel due to file system operations

	configPath := writeWatcherConfig(t, validWatcherYAML)

	watcher, err := NewWatcher(configPath, func(cfg *Config) {})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, watcher.Start(ctx))

	cancel()
	time.Sleep(100 * time.Millisecond)

	assert.NoError(t, watcher.Stop())
}

func TestWatcherForceReload(t *testing.T) {
	// Not parallel due to file system operations

	configPath := writeWatcherConfig(t, validWatcherYAML)

	var callbackCount int
	var mu sync.Mutex
	callback := func(cfg *Config) {
		mu.Lock()
		callbackCount++
		mu.Unlock()
	}

	watcher, err := NewWatcher(configPath, callback)
	require.NoError(t, err)

	require.NoError(t, watcher.ForceReload())

	mu.Lock()
	assert.Equal(t, 1, callbackCount)
	mu.Unlock()

	cfg := watcher.GetLastConfig()
	require.NotNil(t, cfg)
	assert.Equal(t, ":8080", cfg.Server.Addr)
}

func TestWatcherForceReloadInvalidConfig(t *testing.T) {
	// Not parallel due to file system operations

	configPath := writeWatcherConfig(t, invalidWatcherYAML)

	watcher, err := NewWatcher(configPath, func(cfg *Config) {})
	require.NoError(t, err)

	assert.Error(t, watcher.ForceReload())
	assert.Nil(t, watcher.GetLastConfig())
}

func TestWatcherForceReloadFileRemoved(t *testing.T) {
	// Not parallel due to file system operations

	configPath := writeWatcherConfig(t, validWatcherYAML)

	watcher, err := NewWatcher(configPath, nil)
	require.NoError(t, err)

	require.NoError(t, os.Remove(configPath))
	assert.Error(t, watcher.ForceReload())
}

func TestWatcherHandleWatchError(t *testing.T) {
	t.Parallel()

	var received error
	w := &Watcher{
		logger:        observability.NopLogger(),
		errorCallback: func(err error) { received = err },
	}

	w.handleWatchError(assert.AnError)
	assert.Equal(t, assert.AnError, received)

	// nil callback must not panic
	w.errorCallback = nil
	w.handleWatchError(assert.AnError)
}
