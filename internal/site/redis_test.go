package site

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vberezan/multitier/internal/config"
	"github.com/vberezan/multitier/internal/util"
)

func newTestRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	store, err := NewRedisStore(&config.RedisRegistryConfig{
		URL:       "redis://" + mr.Addr(),
		KeyPrefix: "test:",
	}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	return store, mr
}

func TestNewRedisStore(t *testing.T) {
	store, _ := newTestRedisStore(t)

	assert.Equal(t, "redis", store.Name())
	assert.Equal(t, "test:", store.keyPrefix)
}

func TestNewRedisStoreDefaultPrefix(t *testing.T) {
	mr := miniredis.RunT(t)

	store, err := NewRedisStore(&config.RedisRegistryConfig{
		URL: "redis://" + mr.Addr(),
	}, nil)
	require.NoError(t, err)
	defer store.Close()

	assert.Equal(t, "multitier:", store.keyPrefix)
}

func TestNewRedisStoreInvalidConfig(t *testing.T) {
	t.Parallel()

	_, err := NewRedisStore(nil, nil)
	assert.Error(t, err)

	_, err = NewRedisStore(&config.RedisRegistryConfig{}, nil)
	assert.Error(t, err)

	_, err = NewRedisStore(&config.RedisRegistryConfig{URL: "::not-a-url"}, nil)
	assert.Error(t, err)
}

func TestNewRedisStoreConnectionFailure(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := NewRedisStore(&config.RedisRegistryConfig{
		URL:            "redis://" + addr,
		ConnectTimeout: config.Duration(200 * time.Millisecond),
	}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis connection failed")
}

func TestRedisStoreRoundTrip(t *testing.T) {
	store, _ := newTestRedisStore(t)
	ctx := context.Background()

	created := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	rec := &Site{
		Slug:         "acme",
		Subdomain:    "acme",
		Domain:       "acme.example.com",
		Theme:        "dark",
		DBName:       "acme",
		DBHost:       "db.internal",
		DBPort:       5432,
		IsActive:     true,
		IsPathPrefix: true,
		CreatedAt:    created,
	}
	require.NoError(t, store.Upsert(ctx, rec))

	got, err := store.FindBySlug(ctx, "acme")
	require.NoError(t, err)
	assert.Equal(t, rec.Slug, got.Slug)
	assert.Equal(t, rec.Domain, got.Domain)
	assert.Equal(t, rec.Theme, got.Theme)
	assert.Equal(t, rec.DBPort, got.DBPort)
	assert.True(t, got.IsActive)
	assert.True(t, got.IsPathPrefix)
	assert.True(t, got.CreatedAt.Equal(created))
}

func TestRedisStoreFindBySlugNotFound(t *testing.T) {
	store, _ := newTestRedisStore(t)

	_, err := store.FindBySlug(context.Background(), "ghost")
	assert.ErrorIs(t, err, ErrSiteNotFound)
}

func TestRedisStoreUpsertInvalid(t *testing.T) {
	store, _ := newTestRedisStore(t)
	ctx := context.Background()

	assert.ErrorIs(t, store.Upsert(ctx, nil), util.ErrInvalidInput)
	assert.ErrorIs(t, store.Upsert(ctx, &Site{}), util.ErrInvalidInput)
}

func TestRedisStoreListBySubdomain(t *testing.T) {
	store, _ := newTestRedisStore(t)
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, &Site{Slug: "acme-a", Subdomain: "acme"}))
	require.NoError(t, store.Upsert(ctx, &Site{Slug: "acme-b", Subdomain: "acme"}))
	require.NoError(t, store.Upsert(ctx, &Site{Slug: "other", Subdomain: "other"}))

	matches, err := store.ListBySubdomain(ctx, "acme")
	require.NoError(t, err)
	require.Len(t, matches, 2)
	for _, rec := range matches {
		assert.Equal(t, "acme", rec.Subdomain)
	}

	empty, err := store.ListBySubdomain(ctx, "ghost")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestRedisStoreSubdomainChangeReindexes(t *testing.T) {
	store, _ := newTestRedisStore(t)
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, &Site{Slug: "acme", Subdomain: "old"}))
	require.NoError(t, store.Upsert(ctx, &Site{Slug: "acme", Subdomain: "new"}))

	old, err := store.ListBySubdomain(ctx, "old")
	require.NoError(t, err)
	assert.Empty(t, old)

	matches, err := store.ListBySubdomain(ctx, "new")
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "acme", matches[0].Slug)
}

func TestRedisStoreSkipsStaleIndexEntries(t *testing.T) {
	store, _ := newTestRedisStore(t)
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, &Site{Slug: "acme-a", Subdomain: "acme"}))
	require.NoError(t, store.Upsert(ctx, &Site{Slug: "acme-b", Subdomain: "acme"}))

	// Drop one record behind the index's back.
	require.NoError(t, store.client.Del(ctx, store.siteKey("acme-b")).Err())

	matches, err := store.ListBySubdomain(ctx, "acme")
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "acme-a", matches[0].Slug)
}

func TestRedisStoreList(t *testing.T) {
	store, _ := newTestRedisStore(t)
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, &Site{Slug: "zulu"}))
	require.NoError(t, store.Upsert(ctx, &Site{Slug: "alpha", Subdomain: "alpha"}))

	sites, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, sites, 2)

	// fetchSites reads slugs in sorted order.
	assert.Equal(t, "alpha", sites[0].Slug)
	assert.Equal(t, "zulu", sites[1].Slug)
}

func TestRedisStoreDelete(t *testing.T) {
	store, _ := newTestRedisStore(t)
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, &Site{Slug: "acme", Subdomain: "acme"}))
	require.NoError(t, store.Delete(ctx, "acme"))

	_, err := store.FindBySlug(ctx, "acme")
	assert.ErrorIs(t, err, ErrSiteNotFound)

	matches, err := store.ListBySubdomain(ctx, "acme")
	require.NoError(t, err)
	assert.Empty(t, matches)

	sites, err := store.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, sites)

	// Deleting an absent slug is not an error.
	assert.NoError(t, store.Delete(ctx, "ghost"))
}

func TestRedisStoreCorruptRecord(t *testing.T) {
	store, mr := newTestRedisStore(t)
	ctx := context.Background()

	require.NoError(t, mr.Set("test:site:broken", "{not json"))

	_, err := store.FindBySlug(ctx, "broken")
	require.Error(t, err)
	assert.ErrorIs(t, err, util.ErrStoreUnavailable)
}
