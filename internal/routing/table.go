package routing

// ReverseEntry is one candidate pattern for reversing a route name or
// handler key. Entries for the same key are tried in stored order;
// later-declared routes are stored first, so they win ties.
type ReverseEntry struct {
	// Bits are the reversible renderings of the accumulated pattern.
	Bits []Bit
	// Pattern is the accumulated raw regex with parent fragments and
	// the tenant prefix baked in, anchors stripped.
	Pattern string
	// Defaults are the arguments implied when not supplied.
	Defaults map[string]string
}

// NamespaceEntry locates a namespaced group and the pattern prefix
// leading to it.
type NamespaceEntry struct {
	Prefix string
	Group  *Pattern
}

// tableSet is one prefix's worth of reverse-lookup state for a group.
type tableSet struct {
	reverse    map[string][]ReverseEntry
	namespaces map[string]NamespaceEntry
	apps       map[string][]string
	handlers   map[string]struct{}
}

func newTableSet() *tableSet {
	return &tableSet{
		reverse:    make(map[string][]ReverseEntry),
		namespaces: make(map[string]NamespaceEntry),
		apps:       make(map[string][]string),
		handlers:   make(map[string]struct{}),
	}
}

func (t *tableSet) appendReverse(key string, e ReverseEntry) {
	t.reverse[key] = append(t.reverse[key], e)
}

// cloneArgs copies an argument map, mapping empty to nil.
func cloneArgs(args map[string]string) map[string]string {
	if len(args) == 0 {
		return nil
	}
	out := make(map[string]string, len(args))
	for k, v := range args {
		out[k] = v
	}
	return out
}

// mergeArgs overlays override on base. Override wins on collision.
func mergeArgs(base, override map[string]string) map[string]string {
	if len(override) == 0 {
		return cloneArgs(base)
	}
	out := make(map[string]string, len(base)+len(override))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range override {
		out[k] = v
	}
	return out
}
