package routing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vberezan/multitier/internal/config"
	"github.com/vberezan/multitier/internal/util"
)

func graphHandlers(keys ...string) map[string]*Handler {
	handlers := make(map[string]*Handler, len(keys))
	for _, key := range keys {
		handlers[key] = testHandler(key)
	}
	return handlers
}

func TestFromConfig(t *testing.T) {
	t.Parallel()

	routes := []config.RouteConfig{
		{Pattern: "^$", Handler: "home", Name: "home"},
		{
			Pattern:   "^shop/",
			Namespace: "shop",
			AppName:   "commerce",
			Routes: []config.RouteConfig{
				{Pattern: "^$", Handler: "shop-index", Name: "index"},
				{
					Pattern:  "^item/(?P<id>[0-9]+)/$",
					Handler:  "shop-item",
					Name:     "item",
					Defaults: map[string]string{"format": "html"},
				},
			},
		},
	}

	root, err := FromConfig(routes, graphHandlers("home", "shop-index", "shop-item"))
	require.NoError(t, err)
	require.True(t, root.IsGroup())

	children := root.Children()
	require.Len(t, children, 2)

	home := children[0]
	assert.False(t, home.IsGroup())
	assert.Equal(t, "home", home.Name())
	require.NotNil(t, home.Handler())
	assert.Equal(t, "home", home.Handler().Key())

	shop := children[1]
	require.True(t, shop.IsGroup())
	assert.Equal(t, "shop", shop.Namespace())
	assert.Equal(t, "commerce", shop.AppName())
	require.Len(t, shop.Children(), 2)
	item := shop.Children()[1]
	assert.Equal(t, "item", item.Name())
	assert.Equal(t, map[string]string{"format": "html"}, item.DefaultArgs())
}

func TestFromConfigResolves(t *testing.T) {
	t.Parallel()

	routes := []config.RouteConfig{
		{Pattern: "^user/(?P<id>[0-9]+)/$", Handler: "profile", Name: "profile"},
	}
	root, err := FromConfig(routes, graphHandlers("profile"))
	require.NoError(t, err)

	r, err := NewResolver(root)
	require.NoError(t, err)

	match, err := r.ResolvePath(context.Background(), "user/42/")
	require.NoError(t, err)
	assert.Equal(t, "profile", match.Handler.Key())
	assert.Equal(t, map[string]string{"id": "42"}, match.Kwargs)

	url, err := r.Reverse(context.Background(), "profile", map[string]string{"id": "42"})
	require.NoError(t, err)
	assert.Equal(t, "user/42/", url)
}

func TestFromConfigErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		routes   []config.RouteConfig
		handlers map[string]*Handler
		wantMsg  string
	}{
		{
			name:     "empty routes",
			routes:   nil,
			handlers: graphHandlers(),
			wantMsg:  "at least one route",
		},
		{
			name:     "unknown handler key",
			routes:   []config.RouteConfig{{Pattern: "^$", Handler: "missing"}},
			handlers: graphHandlers("home"),
			wantMsg:  `unknown handler key "missing"`,
		},
		{
			name: "unknown handler key in nested group",
			routes: []config.RouteConfig{
				{
					Pattern: "^shop/",
					Routes: []config.RouteConfig{
						{Pattern: "^$", Handler: "nope"},
					},
				},
			},
			handlers: graphHandlers("home"),
			wantMsg:  `routes[0].routes[0]`,
		},
		{
			name:     "invalid pattern",
			routes:   []config.RouteConfig{{Pattern: "^x(/$", Handler: "home"}},
			handlers: graphHandlers("home"),
			wantMsg:  "invalid pattern",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := FromConfig(tt.routes, tt.handlers)
			require.Error(t, err)
			var cfgErr *util.ConfigError
			require.ErrorAs(t, err, &cfgErr)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}
