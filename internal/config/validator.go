package config

import (
	"fmt"
	"strings"

	"github.com/vberezan/multitier/internal/util"
)

// ValidationError is one configuration validation failure.
type ValidationError struct {
	Path    string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s", e.Path, e.Message)
	}
	return e.Message
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

// Error implements the error interface.
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// HasErrors reports whether any validation errors were collected.
func (e ValidationErrors) HasErrors() bool {
	return len(e) > 0
}

// Validator validates a daemon configuration, collecting every failure
// rather than stopping at the first.
type Validator struct {
	errors ValidationErrors
}

// NewValidator creates a configuration validator.
func NewValidator() *Validator {
	return &Validator{errors: make(ValidationErrors, 0)}
}

// Validate checks a configuration and returns the collected errors.
func Validate(cfg *Config) error {
	return NewValidator().Validate(cfg)
}

// Validate checks the configuration and returns any errors.
func (v *Validator) Validate(cfg *Config) error {
	v.errors = make(ValidationErrors, 0)

	if cfg == nil {
		v.addError("", "configuration is nil")
		return v.errors
	}

	v.validateServer(&cfg.Server)
	v.validateRegistry(&cfg.Registry)
	v.validateSites(cfg.Sites)
	v.validateRoutes(cfg.Routes, "routes")
	v.validateRateLimit(&cfg.RateLimit)
	v.validateObservability(&cfg.Observability)

	if v.errors.HasErrors() {
		return v.errors
	}
	return nil
}

func (v *Validator) addError(path, message string) {
	v.errors = append(v.errors, ValidationError{Path: path, Message: message})
}

func (v *Validator) validateServer(server *ServerConfig) {
	if server.Addr == "" {
		v.addError("server.addr", "listen address is required")
	}
	for _, t := range []struct {
		name  string
		value Duration
	}{
		{"readTimeout", server.ReadTimeout},
		{"readHeaderTimeout", server.ReadHeaderTimeout},
		{"writeTimeout", server.WriteTimeout},
		{"idleTimeout", server.IdleTimeout},
		{"shutdownTimeout", server.ShutdownTimeout},
	} {
		if t.value < 0 {
			v.addError("server."+t.name, "timeout must not be negative")
		}
	}
}

func (v *Validator) validateRegistry(registry *RegistryConfig) {
	switch registry.Backend {
	case RegistryBackendMemory:
	case RegistryBackendRedis:
		v.validateRedis(registry.Redis)
	default:
		v.addError("registry.backend",
			fmt.Sprintf("backend must be %q or %q", RegistryBackendMemory, RegistryBackendRedis))
	}

	if registry.Breaker != nil && registry.Breaker.Enabled {
		if registry.Breaker.Threshold <= 0 {
			v.addError("registry.breaker.threshold", "threshold must be positive")
		}
		if registry.Breaker.Timeout < 0 {
			v.addError("registry.breaker.timeout", "timeout must not be negative")
		}
	}
}

func (v *Validator) validateRedis(redis *RedisRegistryConfig) {
	if redis == nil {
		v.addError("registry.redis", "redis configuration is required for the redis backend")
		return
	}
	switch {
	case redis.URL == "":
		v.addError("registry.redis.url", "connection URL is required")
	case !strings.HasPrefix(redis.URL, "redis://") && !strings.HasPrefix(redis.URL, "rediss://"):
		v.addError("registry.redis.url", "connection URL must use the redis:// or rediss:// scheme")
	}
	if redis.PoolSize < 0 {
		v.addError("registry.redis.poolSize", "pool size must not be negative")
	}
}

func (v *Validator) validateSites(sites []SiteConfig) {
	slugs := make(map[string]bool, len(sites))

	for i, s := range sites {
		path := fmt.Sprintf("sites[%d]", i)
		switch {
		case s.Slug == "":
			v.addError(path+".slug", "slug is required")
		case slugs[s.Slug]:
			v.addError(path+".slug", fmt.Sprintf("duplicate slug: %s", s.Slug))
		default:
			if err := util.ValidateSlug(s.Slug); err != nil {
				v.addError(path+".slug", err.Error())
			}
			slugs[s.Slug] = true
		}

		if s.Subdomain != "" {
			if err := util.ValidateSlug(s.Subdomain); err != nil {
				v.addError(path+".subdomain", err.Error())
			}
		}
		if s.Domain != "" {
			if err := util.ValidateHostname(s.Domain); err != nil {
				v.addError(path+".domain", err.Error())
			}
		}
		if s.DBPort != 0 {
			if err := util.ValidatePort(s.DBPort); err != nil {
				v.addError(path+".dbPort", err.Error())
			}
		}
	}

	// base references resolve within the seed list
	for i, s := range sites {
		if s.Base != "" && !slugs[s.Base] {
			v.addError(fmt.Sprintf("sites[%d].base", i),
				fmt.Sprintf("base %q does not match any configured slug", s.Base))
		}
	}
}

func (v *Validator) validateRoutes(routes []RouteConfig, path string) {
	for i := range routes {
		v.validateRoute(&routes[i], fmt.Sprintf("%s[%d]", path, i))
	}
}

func (v *Validator) validateRoute(route *RouteConfig, path string) {
	if route.Pattern == "" && !route.IsGroup() {
		v.addError(path+".pattern", "pattern is required")
	}
	if route.Pattern != "" {
		if err := util.ValidateRegex(route.Pattern); err != nil {
			v.addError(path+".pattern", err.Error())
		}
	}

	if route.IsGroup() {
		if route.Handler != "" {
			v.addError(path+".handler", "groups do not take a handler")
		}
		if route.Name != "" {
			v.addError(path+".name", "groups do not take a name")
		}
		v.validateRoutes(route.Routes, path+".routes")
		return
	}

	if route.Handler == "" {
		v.addError(path+".handler", "handler key is required on routes")
	}
	if route.Namespace != "" {
		v.addError(path+".namespace", "namespace applies to groups")
	}
	if route.AppName != "" {
		v.addError(path+".appName", "appName applies to groups")
	}
}

func (v *Validator) validateRateLimit(rl *RateLimitConfig) {
	if !rl.Enabled {
		return
	}
	if rl.RPS <= 0 {
		v.addError("rateLimit.rps", "rate must be positive when rate limiting is enabled")
	}
	if rl.Burst <= 0 {
		v.addError("rateLimit.burst", "burst must be positive when rate limiting is enabled")
	}
	for slug, rule := range rl.PerSite {
		if rule.RPS <= 0 {
			v.addError(fmt.Sprintf("rateLimit.perSite[%s].rps", slug), "rate must be positive")
		}
	}
}

func (v *Validator) validateObservability(obs *ObservabilityConfig) {
	switch obs.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		v.addError("observability.logLevel", "level must be debug, info, warn, or error")
	}

	switch obs.LogFormat {
	case "json", "console":
	default:
		v.addError("observability.logFormat", "format must be json or console")
	}

	if obs.Tracing.SamplingRatio < 0 || obs.Tracing.SamplingRatio > 1 {
		v.addError("observability.tracing.samplingRatio", "sampling ratio must be within [0, 1]")
	}
	if obs.Tracing.Enabled && obs.Tracing.Endpoint == "" {
		v.addError("observability.tracing.endpoint", "endpoint is required when tracing is enabled")
	}
}
