package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Parallel()

	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "multitier.yaml")

	content := `
server:
  addr: ":8081"
  readTimeout: 5s
sites:
  - slug: acme
    isActive: true
routes:
  - pattern: "^$"
    handler: pages.home
    name: home
`
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0644))

	cfg, err := Load(configPath)
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, ":8081", cfg.Server.Addr)
	assert.Equal(t, 5*time.Second, cfg.Server.ReadTimeout.Duration())
	require.Len(t, cfg.Sites, 1)
	assert.Equal(t, "acme", cfg.Sites[0].Slug)
	require.Len(t, cfg.Routes, 1)
	assert.Equal(t, "home", cfg.Routes[0].Name)

	// defaults fill the gaps
	assert.Equal(t, RegistryBackendMemory, cfg.Registry.Backend)
	assert.Equal(t, 30*time.Second, cfg.Server.WriteTimeout.Duration())
	assert.Equal(t, "info", cfg.Observability.LogLevel)
}

func TestLoadFileNotFound(t *testing.T) {
	t.Parallel()

	_, err := Load("/nonexistent/path/multitier.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestLoadInvalidYAML(t *testing.T) {
	t.Parallel()

	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "broken.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("server: [addr: {"), 0644))

	_, err := Load(configPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestLoadReader(t *testing.T) {
	t.Parallel()

	content := `
server:
  addr: ":7070"
`
	cfg, err := LoadReader(strings.NewReader(content))
	require.NoError(t, err)
	assert.Equal(t, ":7070", cfg.Server.Addr)
	assert.Equal(t, RegistryBackendMemory, cfg.Registry.Backend)
}

func TestSubstituteEnvVars(t *testing.T) {
	// Cannot use t.Parallel() because subtests use t.Setenv

	tests := []struct {
		name     string
		input    string
		envVars  map[string]string
		expected string
	}{
		{
			name:     "simple substitution",
			input:    "addr: ${LISTEN_ADDR}",
			envVars:  map[string]string{"LISTEN_ADDR": ":8080"},
			expected: "addr: :8080",
		},
		{
			name:     "default used when unset",
			input:    "url: ${REDIS_URL:-redis://localhost:6379}",
			envVars:  map[string]string{},
			expected: "url: redis://localhost:6379",
		},
		{
			name:     "env var overrides default",
			input:    "url: ${REDIS_URL:-redis://localhost:6379}",
			envVars:  map[string]string{"REDIS_URL": "redis://cache:6379"},
			expected: "url: redis://cache:6379",
		},
		{
			name:     "multiple substitutions",
			input:    "host: ${DB_HOST}, port: ${DB_PORT}",
			envVars:  map[string]string{"DB_HOST": "db1", "DB_PORT": "5432"},
			expected: "host: db1, port: 5432",
		},
		{
			name:     "escaped dollar sign",
			input:    "pattern: $$1",
			envVars:  map[string]string{},
			expected: "pattern: $1",
		},
		{
			name:     "missing without default becomes empty",
			input:    "theme: ${MISSING_THEME}",
			envVars:  map[string]string{},
			expected: "theme: ",
		},
		{
			name:     "empty default",
			input:    "tag: ${RELEASE_TAG:-}",
			envVars:  map[string]string{},
			expected: "tag: ",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.envVars {
				t.Setenv(k, v)
			}
			assert.Equal(t, tt.expected, substituteEnvVars(tt.input))
		})
	}
}

func TestLoadSubstitutesEnvVars(t *testing.T) {
	// Cannot use t.Parallel() because of t.Setenv

	t.Setenv("MULTITIER_TEST_ADDR", ":6001")

	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "multitier.yaml")
	content := `
server:
  addr: "${MULTITIER_TEST_ADDR}"
  readTimeout: ${MULTITIER_TEST_READ:-3s}
`
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0644))

	cfg, err := Load(configPath)
	require.NoError(t, err)
	assert.Equal(t, ":6001", cfg.Server.Addr)
	assert.Equal(t, 3*time.Second, cfg.Server.ReadTimeout.Duration())
}

func TestResolvePath(t *testing.T) {
	t.Parallel()

	t.Run("absolute path exists", func(t *testing.T) {
		t.Parallel()
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "multitier.yaml")
		require.NoError(t, os.WriteFile(configPath, []byte("server:\n  addr: :1\n"), 0644))

		result, err := ResolvePath(configPath)
		require.NoError(t, err)
		assert.Equal(t, configPath, result)
	})

	t.Run("absolute path not found", func(t *testing.T) {
		t.Parallel()
		_, err := ResolvePath("/nonexistent/absolute/multitier.yaml")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "config file not found")
	})

	t.Run("relative path via working directory", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "multitier.yaml")
		require.NoError(t, os.WriteFile(configPath, []byte("server:\n  addr: :1\n"), 0644))

		oldWd, err := os.Getwd()
		require.NoError(t, err)
		defer func() { _ = os.Chdir(oldWd) }()
		require.NoError(t, os.Chdir(tmpDir))

		result, err := ResolvePath("multitier.yaml")
		require.NoError(t, err)
		assert.Contains(t, result, "multitier.yaml")
	})

	t.Run("relative path via configs directory", func(t *testing.T) {
		tmpDir := t.TempDir()
		require.NoError(t, os.Mkdir(filepath.Join(tmpDir, "configs"), 0755))
		configPath := filepath.Join(tmpDir, "configs", "multitier.yaml")
		require.NoError(t, os.WriteFile(configPath, []byte("server:\n  addr: :1\n"), 0644))

		oldWd, err := os.Getwd()
		require.NoError(t, err)
		defer func() { _ = os.Chdir(oldWd) }()
		require.NoError(t, os.Chdir(tmpDir))

		result, err := ResolvePath("multitier.yaml")
		require.NoError(t, err)
		assert.Equal(t, filepath.Join("configs", "multitier.yaml"), result)
	})

	t.Run("relative path not found", func(t *testing.T) {
		t.Parallel()
		_, err := ResolvePath("definitely-not-here.yaml")
		require.Error(t, err)
	})
}
