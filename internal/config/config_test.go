package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	require.NotNil(t, cfg)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout.Duration())
	assert.Equal(t, 5*time.Second, cfg.Server.ReadHeaderTimeout.Duration())
	assert.Equal(t, 30*time.Second, cfg.Server.WriteTimeout.Duration())
	assert.Equal(t, 60*time.Second, cfg.Server.IdleTimeout.Duration())
	assert.Equal(t, 15*time.Second, cfg.Server.ShutdownTimeout.Duration())
	assert.Equal(t, RegistryBackendMemory, cfg.Registry.Backend)
	assert.Equal(t, float64(100), cfg.RateLimit.RPS)
	assert.Equal(t, 200, cfg.RateLimit.Burst)
	assert.Equal(t, "info", cfg.Observability.LogLevel)
	assert.Equal(t, "json", cfg.Observability.LogFormat)
	assert.Equal(t, 0.1, cfg.Observability.Tracing.SamplingRatio)
	assert.Equal(t, "multitier", cfg.Observability.Tracing.ServiceName)

	assert.NoError(t, Validate(cfg))
}

func TestApplyDefaultsKeepsExplicitValues(t *testing.T) {
	t.Parallel()

	cfg := &Config{
		Server: ServerConfig{
			Addr:        ":9000",
			ReadTimeout: Duration(time.Second),
		},
		Registry: RegistryConfig{Backend: RegistryBackendRedis},
		RateLimit: RateLimitConfig{
			RPS:   5,
			Burst: 7,
		},
		Observability: ObservabilityConfig{
			LogLevel:  "debug",
			LogFormat: "console",
		},
	}
	cfg.ApplyDefaults()

	assert.Equal(t, ":9000", cfg.Server.Addr)
	assert.Equal(t, time.Second, cfg.Server.ReadTimeout.Duration())
	assert.Equal(t, RegistryBackendRedis, cfg.Registry.Backend)
	assert.Equal(t, float64(5), cfg.RateLimit.RPS)
	assert.Equal(t, 7, cfg.RateLimit.Burst)
	assert.Equal(t, "debug", cfg.Observability.LogLevel)
	assert.Equal(t, "console", cfg.Observability.LogFormat)

	// unset fields still get filled
	assert.Equal(t, 30*time.Second, cfg.Server.WriteTimeout.Duration())
	assert.Equal(t, "multitier", cfg.Observability.Tracing.ServiceName)
}

func TestApplyDefaultsBurstFollowsRate(t *testing.T) {
	t.Parallel()

	cfg := &Config{RateLimit: RateLimitConfig{RPS: 25}}
	cfg.ApplyDefaults()
	assert.Equal(t, 50, cfg.RateLimit.Burst)
}

func TestRouteConfigIsGroup(t *testing.T) {
	t.Parallel()

	leaf := RouteConfig{Pattern: "^about/$", Handler: "pages.about"}
	assert.False(t, leaf.IsGroup())

	group := RouteConfig{
		Pattern: "^shop/",
		Routes: []RouteConfig{
			{Pattern: "^$", Handler: "shop.index"},
		},
	}
	assert.True(t, group.IsGroup())
}

func TestConfigYAMLSchema(t *testing.T) {
	t.Parallel()

	content := `
server:
  addr: ":8443"
  readTimeout: 10s
  shutdownTimeout: 20s
registry:
  backend: redis
  redis:
    url: redis://localhost:6379/0
    keyPrefix: "multitier:"
    poolSize: 20
    connectTimeout: 2s
    tls:
      enabled: true
  breaker:
    enabled: true
    threshold: 5
    timeout: 30s
sites:
  - slug: acme
    subdomain: acme
    domain: acme.example.com
    theme: classic
    dbName: acme_prod
    dbHost: db1.internal
    dbPort: 5432
    isActive: true
    isPathPrefix: true
  - slug: beta
    base: acme
routes:
  - pattern: "^$"
    handler: pages.home
    name: home
  - pattern: "^shop/"
    namespace: shop
    appName: store
    routes:
      - pattern: "^$"
        handler: shop.index
        name: index
rateLimit:
  enabled: true
  rps: 50
  burst: 100
  perSite:
    acme:
      rps: 200
      burst: 400
observability:
  logLevel: debug
  logFormat: console
  metricsAddr: ":9102"
  tracing:
    enabled: true
    endpoint: otel-collector:4317
    samplingRatio: 0.5
    serviceName: multitier-edge
`

	var cfg Config
	require.NoError(t, yaml.Unmarshal([]byte(content), &cfg))

	assert.Equal(t, ":8443", cfg.Server.Addr)
	assert.Equal(t, 10*time.Second, cfg.Server.ReadTimeout.Duration())
	assert.Equal(t, 20*time.Second, cfg.Server.ShutdownTimeout.Duration())

	assert.Equal(t, RegistryBackendRedis, cfg.Registry.Backend)
	require.NotNil(t, cfg.Registry.Redis)
	assert.Equal(t, "redis://localhost:6379/0", cfg.Registry.Redis.URL)
	assert.Equal(t, "multitier:", cfg.Registry.Redis.KeyPrefix)
	assert.Equal(t, 20, cfg.Registry.Redis.PoolSize)
	assert.Equal(t, 2*time.Second, cfg.Registry.Redis.ConnectTimeout.Duration())
	require.NotNil(t, cfg.Registry.Redis.TLS)
	assert.True(t, cfg.Registry.Redis.TLS.Enabled)
	require.NotNil(t, cfg.Registry.Breaker)
	assert.True(t, cfg.Registry.Breaker.Enabled)
	assert.Equal(t, 5, cfg.Registry.Breaker.Threshold)

	require.Len(t, cfg.Sites, 2)
	acme := cfg.Sites[0]
	assert.Equal(t, "acme", acme.Slug)
	assert.Equal(t, "acme.example.com", acme.Domain)
	assert.Equal(t, 5432, acme.DBPort)
	assert.True(t, acme.IsActive)
	assert.True(t, acme.IsPathPrefix)
	assert.Equal(t, "acme", cfg.Sites[1].Base)

	require.Len(t, cfg.Routes, 2)
	assert.False(t, cfg.Routes[0].IsGroup())
	assert.Equal(t, "pages.home", cfg.Routes[0].Handler)
	assert.True(t, cfg.Routes[1].IsGroup())
	assert.Equal(t, "shop", cfg.Routes[1].Namespace)
	assert.Equal(t, "store", cfg.Routes[1].AppName)
	require.Len(t, cfg.Routes[1].Routes, 1)
	assert.Equal(t, "shop.index", cfg.Routes[1].Routes[0].Handler)

	assert.True(t, cfg.RateLimit.Enabled)
	assert.Equal(t, float64(50), cfg.RateLimit.RPS)
	assert.Equal(t, float64(200), cfg.RateLimit.PerSite["acme"].RPS)

	assert.Equal(t, ":9102", cfg.Observability.MetricsAddr)
	assert.True(t, cfg.Observability.Tracing.Enabled)
	assert.Equal(t, "otel-collector:4317", cfg.Observability.Tracing.Endpoint)
	assert.Equal(t, 0.5, cfg.Observability.Tracing.SamplingRatio)
	assert.Equal(t, "multitier-edge", cfg.Observability.Tracing.ServiceName)
}
