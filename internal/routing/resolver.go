package routing

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/vberezan/multitier/internal/observability"
	"github.com/vberezan/multitier/internal/tenant"
	"github.com/vberezan/multitier/internal/util"
)

// SentinelPrefix keys the table set used when no tenant is active. Its
// root fragment compiles to a no-op so tenant-less contexts resolve
// the unprefixed forest.
const SentinelPrefix = "_"

const routingTracerName = "multitier/routing"

// ErrNoMatch reports that a path matched no registered pattern. The
// request layer maps it to a not-found response.
var ErrNoMatch = errors.New("no pattern matched")

// Match is the outcome of resolving a path.
type Match struct {
	// Handler is the endpoint to dispatch to.
	Handler *Handler
	// Name is the matched route's declared name, if any.
	Name string
	// Namespaces lists the namespace labels traversed, outermost first.
	Namespaces []string
	// Route is the accumulated pattern that matched, anchors stripped.
	Route string
	// Args holds positional captures; populated only when the matched
	// pattern has no named groups.
	Args []string
	// Kwargs holds named captures merged under declared defaults.
	Kwargs map[string]string
}

// ViewName returns the namespace-qualified name of the matched route,
// falling back to the handler key for unnamed routes.
func (m *Match) ViewName() string {
	name := m.Name
	if name == "" && m.Handler != nil {
		name = m.Handler.Key()
	}
	if len(m.Namespaces) == 0 {
		return name
	}
	return strings.Join(append(append([]string(nil), m.Namespaces...), name), ":")
}

// Resolver resolves paths and reverses route names against per-tenant
// tables built lazily over a shared pattern forest. One table set
// exists per distinct tenant prefix observed at runtime; entries are
// never evicted.
type Resolver struct {
	root    *Pattern
	logger  observability.Logger
	regexes *regexCache

	mu     sync.RWMutex
	tables map[string]*tableSet
}

// ResolverOption customizes a resolver.
type ResolverOption func(*Resolver)

// WithLogger sets the resolver's logger.
func WithLogger(logger observability.Logger) ResolverOption {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithRegexCacheSize bounds the compiled-regex cache.
func WithRegexCacheSize(size int) ResolverOption {
	return func(r *Resolver) {
		r.regexes = newRegexCache(size)
	}
}

// NewResolver wraps a pattern forest built by Routes.
func NewResolver(root *Pattern, opts ...ResolverOption) (*Resolver, error) {
	if root == nil || !root.group {
		return nil, util.NewConfigError("resolver", "root must be a pattern group")
	}
	r := &Resolver{
		root:    root,
		logger:  observability.NopLogger(),
		regexes: newRegexCache(regexCacheSize),
		tables:  make(map[string]*tableSet),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Prefix returns the routing prefix for the request context: the
// active tenant's path segment, or the sentinel when no tenant is
// active or the tenant routes by host.
func (r *Resolver) Prefix(ctx context.Context) string {
	if rec, ok := tenant.FromContext(ctx); ok {
		if p := rec.PathPrefix(); p != "" {
			return p
		}
	}
	return SentinelPrefix
}

// ReverseTable returns the reverse multimap for the context's prefix,
// building it on first use. The returned map is shared and must be
// treated as read-only.
func (r *Resolver) ReverseTable(ctx context.Context) map[string][]ReverseEntry {
	return r.tablesFor(ctx, r.Prefix(ctx)).reverse
}

// NamespaceTable returns the namespace map for the context's prefix.
// The returned map is shared and must be treated as read-only.
func (r *Resolver) NamespaceTable(ctx context.Context) map[string]NamespaceEntry {
	return r.tablesFor(ctx, r.Prefix(ctx)).namespaces
}

// AppTable returns the application-name map for the context's prefix.
// The returned map is shared and must be treated as read-only.
func (r *Resolver) AppTable(ctx context.Context) map[string][]string {
	return r.tablesFor(ctx, r.Prefix(ctx)).apps
}

// ResolvePath matches a request path against the forest under the
// context's tenant prefix. A real tenant's prefix must lead the path
// as a segment; the remainder is matched against the forest. Returns
// ErrNoMatch when nothing matches.
func (r *Resolver) ResolvePath(ctx context.Context, path string) (*Match, error) {
	prefix := r.Prefix(ctx)
	_, span := otel.Tracer(routingTracerName).Start(ctx, "routing.resolve",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("routing.prefix", prefix),
			attribute.String("routing.path", path),
		),
	)
	defer span.End()

	rest := strings.TrimPrefix(path, "/")
	if prefix != SentinelPrefix {
		re, err := r.regexes.compile("^" + prefix + "/")
		if err != nil {
			return nil, r.noMatch(span, prefix, path)
		}
		loc := re.FindStringIndex(rest)
		if loc == nil {
			return nil, r.noMatch(span, prefix, path)
		}
		rest = rest[loc[1]:]
	}

	match, ok := r.matchGroup(r.root, rest)
	if !ok {
		return nil, r.noMatch(span, prefix, path)
	}

	getMetrics().resolves.WithLabelValues("match").Inc()
	span.SetAttributes(
		attribute.Bool("routing.matched", true),
		attribute.String("routing.route", match.Route),
	)
	r.logger.Debug("path resolved",
		observability.String("prefix", prefix),
		observability.String("path", path),
		observability.String("view", match.ViewName()))
	return match, nil
}

func (r *Resolver) noMatch(span trace.Span, prefix, path string) error {
	getMetrics().resolves.WithLabelValues("no_match").Inc()
	span.SetAttributes(attribute.Bool("routing.matched", false))
	r.logger.Debug("path matched no pattern",
		observability.String("prefix", prefix),
		observability.String("path", path))
	return ErrNoMatch
}

// matchGroup walks a group's children in declaration order, matching
// each fragment against the remainder of the path. Inner captures win
// over outer ones; declared defaults win over captures at their own
// level.
func (r *Resolver) matchGroup(g *Pattern, path string) (*Match, bool) {
	for _, child := range g.children {
		loc := child.re.FindStringSubmatchIndex(path)
		if loc == nil {
			continue
		}
		if child.group {
			sub, ok := r.matchGroup(child, path[loc[1]:])
			if !ok {
				continue
			}
			kwargs := mergeArgs(namedCaptures(child.re, path, loc), child.defaults)
			sub.Kwargs = mergeArgs(kwargs, sub.Kwargs)
			if child.namespace != "" {
				sub.Namespaces = append([]string{child.namespace}, sub.Namespaces...)
			}
			sub.Route = child.bare() + sub.Route
			return sub, true
		}

		kwargs := namedCaptures(child.re, path, loc)
		var args []string
		if len(kwargs) == 0 {
			args = positionalCaptures(path, loc)
		}
		return &Match{
			Handler: child.handler,
			Name:    child.name,
			Route:   child.bare(),
			Args:    args,
			Kwargs:  mergeArgs(kwargs, child.defaults),
		}, true
	}
	return nil, false
}

// tablesFor returns the merged table set for a prefix, building it on
// first use. The write lock is held for the whole build, so concurrent
// first-time builds of the same prefix serialize and a second caller
// only ever sees a completed table.
func (r *Resolver) tablesFor(ctx context.Context, prefix string) *tableSet {
	r.mu.RLock()
	t := r.tables[prefix]
	r.mu.RUnlock()
	if t != nil {
		return t
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if t := r.tables[prefix]; t != nil {
		return t
	}

	_, span := otel.Tracer(routingTracerName).Start(ctx, "routing.build",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attribute.String("routing.prefix", prefix)),
	)
	defer span.End()

	start := time.Now()
	t = r.buildRoot(prefix, make(map[*Pattern]struct{}))
	r.tables[prefix] = t

	m := getMetrics()
	m.builds.WithLabelValues(prefix).Inc()
	m.buildDuration.Observe(time.Since(start).Seconds())
	m.tableEntries.WithLabelValues(prefix).Set(float64(len(t.reverse)))
	span.SetAttributes(attribute.Int("routing.entries", len(t.reverse)))
	r.logger.Debug("reverse tables built",
		observability.String("prefix", prefix),
		observability.Int("entries", len(t.reverse)),
		observability.Duration("duration", time.Since(start)))
	return t
}

// buildRoot merges the forest's tables for one prefix, baking the
// prefix fragment into every stored pattern. The sentinel contributes
// an empty fragment, so the unprefixed entries pass through unchanged.
func (r *Resolver) buildRoot(prefix string, chain map[*Pattern]struct{}) *tableSet {
	out := newTableSet()
	inner := r.populate(r.root, prefix, chain)
	if inner == nil {
		return out
	}

	caret, bare := "^", ""
	if prefix != SentinelPrefix {
		caret = "^" + prefix + "/"
		bare = prefix + "/"
	}
	for key, entries := range inner.reverse {
		for _, e := range entries {
			out.appendReverse(key, ReverseEntry{
				Bits:     normalize(caret + e.Pattern),
				Pattern:  bare + e.Pattern,
				Defaults: e.Defaults,
			})
		}
	}
	for ns, entry := range inner.namespaces {
		out.namespaces[ns] = NamespaceEntry{Prefix: bare + entry.Prefix, Group: entry.Group}
	}
	for app, list := range inner.apps {
		out.apps[app] = append([]string(nil), list...)
	}
	for h := range inner.handlers {
		out.handlers[h] = struct{}{}
	}
	return out
}

// populate returns a group's own tables for a prefix, building them on
// first use. A nil return means the group is already mid-build higher
// in the current call chain; the caller skips it and the build in
// progress completes the work. Children populate before their parent
// publishes, and each group's tables are built into local maps and
// published complete under its lock.
func (r *Resolver) populate(p *Pattern, prefix string, chain map[*Pattern]struct{}) *tableSet {
	if _, busy := chain[p]; busy {
		return nil
	}
	p.mu.RLock()
	t := p.tables[prefix]
	p.mu.RUnlock()
	if t != nil {
		return t
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if t := p.tables[prefix]; t != nil {
		return t
	}
	chain[p] = struct{}{}
	defer delete(chain, p)

	t = newTableSet()
	// last-declared patterns are stored first so they win lookup ties
	for i := len(p.children) - 1; i >= 0; i-- {
		child := p.children[i]
		bare := child.bare()
		if !child.group {
			t.handlers[child.handler.key] = struct{}{}
			entry := ReverseEntry{
				Bits:     normalize(bare),
				Pattern:  bare,
				Defaults: cloneArgs(child.defaults),
			}
			t.appendReverse(child.handler.key, entry)
			if child.name != "" {
				t.appendReverse(child.name, entry)
			}
			continue
		}

		sub := r.populate(child, prefix, chain)
		if sub == nil {
			continue
		}
		if child.namespace != "" {
			t.namespaces[child.namespace] = NamespaceEntry{Prefix: bare, Group: child}
			if child.appName != "" {
				t.apps[child.appName] = append(t.apps[child.appName], child.namespace)
			}
		} else {
			// anonymous mount: the child's entries bubble up with this
			// fragment prepended and its defaults merged under ours
			for key, entries := range sub.reverse {
				for _, e := range entries {
					t.appendReverse(key, ReverseEntry{
						Bits:     normalize(child.fragment + e.Pattern),
						Pattern:  bare + e.Pattern,
						Defaults: mergeArgs(e.Defaults, child.defaults),
					})
				}
			}
			for ns, entry := range sub.namespaces {
				t.namespaces[ns] = NamespaceEntry{Prefix: bare + entry.Prefix, Group: entry.Group}
			}
			for app, list := range sub.apps {
				t.apps[app] = append(t.apps[app], list...)
			}
		}
		for h := range sub.handlers {
			t.handlers[h] = struct{}{}
		}
	}

	if p.tables == nil {
		p.tables = make(map[string]*tableSet)
	}
	p.tables[prefix] = t
	return t
}

// namedCaptures extracts named submatches from a match location.
func namedCaptures(re *regexp.Regexp, src string, loc []int) map[string]string {
	var out map[string]string
	for i, name := range re.SubexpNames() {
		if i == 0 || name == "" || 2*i+1 >= len(loc) || loc[2*i] < 0 {
			continue
		}
		if out == nil {
			out = make(map[string]string)
		}
		out[name] = src[loc[2*i]:loc[2*i+1]]
	}
	return out
}

// positionalCaptures extracts all submatches in order.
func positionalCaptures(src string, loc []int) []string {
	n := len(loc)/2 - 1
	if n <= 0 {
		return nil
	}
	out := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		if loc[2*i] < 0 {
			out = append(out, "")
			continue
		}
		out = append(out, src[loc[2*i]:loc[2*i+1]])
	}
	return out
}
