package routing

import (
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/vberezan/multitier/internal/util"
)

// Pattern is one node of the URL pattern forest: a route leaf bound to
// a handler, or a group mounting nested patterns under a shared regex
// fragment. Nodes are immutable after construction.
type Pattern struct {
	fragment string
	re       *regexp.Regexp

	// leaf fields
	handler *Handler
	name    string

	// group fields
	group     bool
	children  []*Pattern
	namespace string
	appName   string

	// either kind may declare defaults merged into matches
	defaults map[string]string

	// per-prefix reverse tables, built lazily for groups
	mu     sync.RWMutex
	tables map[string]*tableSet
}

// Option customizes a pattern node at construction time.
type Option func(*Pattern)

// Name assigns the reverse-lookup name of a route. Routes only.
func Name(name string) Option {
	return func(p *Pattern) {
		p.name = name
	}
}

// Defaults attaches default arguments merged into every match and
// usable as implied reverse arguments.
func Defaults(defaults map[string]string) Option {
	return func(p *Pattern) {
		p.defaults = cloneArgs(defaults)
	}
}

// Namespace labels a group for namespace-qualified reverse lookups.
// Groups only.
func Namespace(ns string) Option {
	return func(p *Pattern) {
		p.namespace = ns
	}
}

// AppName labels a group with an application name, letting reverse
// lookups address whole route subgraphs by application. Groups only.
func AppName(app string) Option {
	return func(p *Pattern) {
		p.appName = app
	}
}

// NewRoute builds a leaf pattern binding a regex fragment to a handler.
// The fragment is compiled here so misconfigurations surface at
// startup, not on first request.
func NewRoute(fragment string, handler *Handler, opts ...Option) (*Pattern, error) {
	if handler == nil || handler.key == "" {
		return nil, util.NewConfigError("route",
			fmt.Sprintf("empty handler not permitted for pattern %q", fragment))
	}
	re, err := regexp.Compile(fragment)
	if err != nil {
		return nil, util.NewConfigErrorWithCause("route",
			fmt.Sprintf("invalid pattern %q", fragment), err)
	}
	p := &Pattern{fragment: fragment, re: re, handler: handler}
	for _, opt := range opts {
		opt(p)
	}
	if p.namespace != "" || p.appName != "" {
		return nil, util.NewConfigError("route",
			fmt.Sprintf("namespace and app name apply to groups, not route %q", fragment))
	}
	return p, nil
}

// NewGroup builds a group pattern mounting child patterns under a
// shared regex fragment. The child slice is copied.
func NewGroup(fragment string, children []*Pattern, opts ...Option) (*Pattern, error) {
	if len(children) == 0 {
		return nil, util.NewConfigError("group",
			fmt.Sprintf("empty pattern list for group %q", fragment))
	}
	for i, child := range children {
		if child == nil {
			return nil, util.NewConfigError("group",
				fmt.Sprintf("nil pattern at index %d in group %q", i, fragment))
		}
	}
	re, err := regexp.Compile(fragment)
	if err != nil {
		return nil, util.NewConfigErrorWithCause("group",
			fmt.Sprintf("invalid pattern %q", fragment), err)
	}
	p := &Pattern{
		fragment: fragment,
		re:       re,
		group:    true,
		children: append([]*Pattern(nil), children...),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.name != "" {
		return nil, util.NewConfigError("group",
			fmt.Sprintf("name applies to routes, not group %q", fragment))
	}
	return p, nil
}

// Routes assembles the root pattern forest handed to a resolver. The
// root carries no fragment of its own; the resolver supplies the
// tenant prefix fragment per build.
func Routes(children ...*Pattern) (*Pattern, error) {
	return NewGroup("", children)
}

// Fragment returns the node's local regex fragment.
func (p *Pattern) Fragment() string {
	return p.fragment
}

// Name returns the route's reverse-lookup name, empty for groups and
// unnamed routes.
func (p *Pattern) Name() string {
	return p.name
}

// Handler returns the route's handler, nil for groups.
func (p *Pattern) Handler() *Handler {
	return p.handler
}

// IsGroup reports whether the node mounts nested patterns.
func (p *Pattern) IsGroup() bool {
	return p.group
}

// Children returns a copy of the group's child list.
func (p *Pattern) Children() []*Pattern {
	if len(p.children) == 0 {
		return nil
	}
	return append([]*Pattern(nil), p.children...)
}

// Namespace returns the group's namespace label, if any.
func (p *Pattern) Namespace() string {
	return p.namespace
}

// AppName returns the group's application name, if any.
func (p *Pattern) AppName() string {
	return p.appName
}

// DefaultArgs returns a copy of the node's default arguments.
func (p *Pattern) DefaultArgs() map[string]string {
	return cloneArgs(p.defaults)
}

// bare returns the fragment with a leading anchor stripped, the form
// stored in reverse tables and concatenated across group levels.
func (p *Pattern) bare() string {
	return strings.TrimPrefix(p.fragment, "^")
}
