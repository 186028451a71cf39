package site

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vberezan/multitier/internal/config"
	"github.com/vberezan/multitier/internal/observability"
	"github.com/vberezan/multitier/internal/util"
)

// siteTracerName is the OpenTelemetry tracer name for site store operations.
const siteTracerName = "multitier/site"

// RedisStore keeps site records in Redis for shared deployments. Each
// record is a JSON value under <prefix>site:<slug>; a set per subdomain
// under <prefix>subdomain:<subdomain> indexes slugs for subdomain lookup,
// and <prefix>sites holds every known slug.
type RedisStore struct {
	logger    observability.Logger
	client    *redis.Client
	keyPrefix string
}

// NewRedisStore creates a Redis-backed site store and verifies the
// connection before returning.
func NewRedisStore(cfg *config.RedisRegistryConfig, logger observability.Logger) (*RedisStore, error) {
	if cfg == nil || cfg.URL == "" {
		return nil, errors.New("redis URL is required for the redis registry backend")
	}
	if logger == nil {
		logger = observability.NopLogger()
	}

	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, errors.New("invalid redis URL: " + err.Error())
	}

	if cfg.PoolSize > 0 {
		opts.PoolSize = cfg.PoolSize
	}
	if cfg.ConnectTimeout > 0 {
		opts.DialTimeout = cfg.ConnectTimeout.Duration()
	}
	if cfg.ReadTimeout > 0 {
		opts.ReadTimeout = cfg.ReadTimeout.Duration()
	}
	if cfg.WriteTimeout > 0 {
		opts.WriteTimeout = cfg.WriteTimeout.Duration()
	}
	if cfg.TLS != nil && cfg.TLS.Enabled {
		opts.TLSConfig = &tls.Config{
			InsecureSkipVerify: cfg.TLS.InsecureSkipVerify, //nolint:gosec // User-configurable
		}
	}

	client := redis.NewClient(opts)

	if err := pingRedis(client); err != nil {
		_ = client.Close()
		return nil, errors.New("redis connection failed: " + err.Error())
	}

	keyPrefix := cfg.KeyPrefix
	if keyPrefix == "" {
		keyPrefix = "multitier:"
	}

	s := &RedisStore{
		logger:    logger,
		client:    client,
		keyPrefix: keyPrefix,
	}

	logger.Info("redis site store initialized",
		observability.String("keyPrefix", keyPrefix))

	return s, nil
}

// pingRedis tests the Redis connection with a timeout.
func pingRedis(client *redis.Client) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return client.Ping(ctx).Err()
}

func (s *RedisStore) siteKey(slug string) string {
	return s.keyPrefix + "site:" + slug
}

func (s *RedisStore) subdomainKey(subdomain string) string {
	return s.keyPrefix + "subdomain:" + subdomain
}

func (s *RedisStore) indexKey() string {
	return s.keyPrefix + "sites"
}

// Name implements Store.
func (s *RedisStore) Name() string {
	return "redis"
}

// FindBySlug implements Store.
func (s *RedisStore) FindBySlug(ctx context.Context, slug string) (*Site, error) {
	ctx, span := otel.Tracer(siteTracerName).Start(ctx, "site.FindBySlug",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("site.store", "redis"),
			attribute.String("site.slug", slug),
		),
	)
	defer span.End()

	raw, err := s.client.Get(ctx, s.siteKey(slug)).Bytes()
	if errors.Is(err, redis.Nil) {
		span.SetAttributes(attribute.Bool("site.found", false))
		return nil, ErrSiteNotFound
	}
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.RecordError(err)
		s.logger.Error("redis site lookup failed",
			observability.String("slug", slug),
			observability.Error(err))
		return nil, util.NewStoreErrorWithCause("redis", "get", "site lookup failed", err)
	}

	rec, err := decodeSite(raw)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.RecordError(err)
		return nil, util.NewStoreErrorWithCause("redis", "decode", "stored site record is not valid JSON", err)
	}

	span.SetAttributes(attribute.Bool("site.found", true))
	return rec, nil
}

// ListBySubdomain implements Store.
func (s *RedisStore) ListBySubdomain(ctx context.Context, subdomain string) ([]*Site, error) {
	ctx, span := otel.Tracer(siteTracerName).Start(ctx, "site.ListBySubdomain",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("site.store", "redis"),
			attribute.String("site.subdomain", subdomain),
		),
	)
	defer span.End()

	slugs, err := s.client.SMembers(ctx, s.subdomainKey(subdomain)).Result()
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.RecordError(err)
		s.logger.Error("redis subdomain index read failed",
			observability.String("subdomain", subdomain),
			observability.Error(err))
		return nil, util.NewStoreErrorWithCause("redis", "smembers", "subdomain index read failed", err)
	}
	if len(slugs) == 0 {
		span.SetAttributes(attribute.Int("site.matches", 0))
		return nil, nil
	}

	sites, err := s.fetchSites(ctx, slugs)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.RecordError(err)
		return nil, err
	}

	span.SetAttributes(attribute.Int("site.matches", len(sites)))
	return sites, nil
}

// List implements Store.
func (s *RedisStore) List(ctx context.Context) ([]*Site, error) {
	ctx, span := otel.Tracer(siteTracerName).Start(ctx, "site.List",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("site.store", "redis"),
		),
	)
	defer span.End()

	slugs, err := s.client.SMembers(ctx, s.indexKey()).Result()
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.RecordError(err)
		return nil, util.NewStoreErrorWithCause("redis", "smembers", "site index read failed", err)
	}
	if len(slugs) == 0 {
		return nil, nil
	}

	sites, err := s.fetchSites(ctx, slugs)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.RecordError(err)
		return nil, err
	}

	span.SetAttributes(attribute.Int("site.matches", len(sites)))
	return sites, nil
}

// fetchSites pipelines record reads for the given slugs. Index entries
// whose record has disappeared are skipped.
func (s *RedisStore) fetchSites(ctx context.Context, slugs []string) ([]*Site, error) {
	sort.Strings(slugs)

	pipe := s.client.Pipeline()
	cmds := make([]*redis.StringCmd, len(slugs))
	for i, slug := range slugs {
		cmds[i] = pipe.Get(ctx, s.siteKey(slug))
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, util.NewStoreErrorWithCause("redis", "get", "site record read failed", err)
	}

	sites := make([]*Site, 0, len(slugs))
	for i, cmd := range cmds {
		raw, err := cmd.Bytes()
		if errors.Is(err, redis.Nil) {
			s.logger.Debug("stale subdomain index entry",
				observability.String("slug", slugs[i]))
			continue
		}
		if err != nil {
			return nil, util.NewStoreErrorWithCause("redis", "get", "site record read failed", err)
		}
		rec, err := decodeSite(raw)
		if err != nil {
			return nil, util.NewStoreErrorWithCause("redis", "decode", "stored site record is not valid JSON", err)
		}
		sites = append(sites, rec)
	}
	return sites, nil
}

// Upsert implements Store. The previous record is read first so a changed
// subdomain drops out of its old index set.
func (s *RedisStore) Upsert(ctx context.Context, site *Site) error {
	if site == nil || site.Slug == "" {
		return util.WrapError(util.ErrInvalidInput, "site slug is required")
	}

	ctx, span := otel.Tracer(siteTracerName).Start(ctx, "site.Upsert",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("site.store", "redis"),
			attribute.String("site.slug", site.Slug),
		),
	)
	defer span.End()

	prev, err := s.FindBySlug(ctx, site.Slug)
	if err != nil && !errors.Is(err, ErrSiteNotFound) {
		span.SetStatus(codes.Error, err.Error())
		span.RecordError(err)
		return err
	}

	raw, err := json.Marshal(site)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.RecordError(err)
		return util.NewStoreErrorWithCause("redis", "encode", "site record encoding failed", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.siteKey(site.Slug), raw, 0)
	pipe.SAdd(ctx, s.indexKey(), site.Slug)
	if site.Subdomain != "" {
		pipe.SAdd(ctx, s.subdomainKey(site.Subdomain), site.Slug)
	}
	if prev != nil && prev.Subdomain != "" && prev.Subdomain != site.Subdomain {
		pipe.SRem(ctx, s.subdomainKey(prev.Subdomain), site.Slug)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.RecordError(err)
		s.logger.Error("redis site write failed",
			observability.String("slug", site.Slug),
			observability.Error(err))
		return util.NewStoreErrorWithCause("redis", "set", "site record write failed", err)
	}

	s.logger.Debug("site stored",
		observability.String("slug", site.Slug),
		observability.String("subdomain", site.Subdomain))
	return nil
}

// Delete implements Store.
func (s *RedisStore) Delete(ctx context.Context, slug string) error {
	ctx, span := otel.Tracer(siteTracerName).Start(ctx, "site.Delete",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("site.store", "redis"),
			attribute.String("site.slug", slug),
		),
	)
	defer span.End()

	prev, err := s.FindBySlug(ctx, slug)
	if err != nil && !errors.Is(err, ErrSiteNotFound) {
		span.SetStatus(codes.Error, err.Error())
		span.RecordError(err)
		return err
	}

	pipe := s.client.TxPipeline()
	pipe.Del(ctx, s.siteKey(slug))
	pipe.SRem(ctx, s.indexKey(), slug)
	if prev != nil && prev.Subdomain != "" {
		pipe.SRem(ctx, s.subdomainKey(prev.Subdomain), slug)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.RecordError(err)
		return util.NewStoreErrorWithCause("redis", "del", "site record delete failed", err)
	}

	s.logger.Debug("site deleted",
		observability.String("slug", slug))
	return nil
}

// Close implements Store.
func (s *RedisStore) Close() error {
	s.logger.Info("redis site store closing")
	return s.client.Close()
}

// decodeSite unmarshals a stored record.
func decodeSite(raw []byte) (*Site, error) {
	var rec Site
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}
