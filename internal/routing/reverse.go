package routing

import (
	"context"
	"fmt"
	"strings"

	"github.com/vberezan/multitier/internal/observability"
	"github.com/vberezan/multitier/internal/util"
)

// Reverse builds the URL path for a route name under the context's
// tenant prefix. Names may be namespace-qualified ("shop:detail"); an
// application name in place of a namespace selects that application's
// first registered instance. Arguments must satisfy exactly the
// placeholders of one candidate pattern, with declared defaults
// filling the gaps.
func (r *Resolver) Reverse(ctx context.Context, name string, args map[string]string) (string, error) {
	prefix := r.Prefix(ctx)
	t := r.tablesFor(ctx, prefix)

	parts := strings.Split(name, ":")
	view := parts[len(parts)-1]

	nsPattern := ""
	cur := t
	for _, ns := range parts[:len(parts)-1] {
		if instances, ok := cur.apps[ns]; ok && len(instances) > 0 {
			ns = instances[0]
		}
		entry, ok := cur.namespaces[ns]
		if !ok {
			getMetrics().reverses.WithLabelValues("error").Inc()
			return "", &util.ReverseError{
				Name:    name,
				Args:    cloneArgs(args),
				Message: fmt.Sprintf("%q is not a registered namespace", ns),
			}
		}
		nsPattern += entry.Prefix
		if sub := r.populate(entry.Group, prefix, make(map[*Pattern]struct{})); sub != nil {
			cur = sub
		}
	}

	var tried []string
	for _, entry := range cur.reverse[view] {
		pattern := entry.Pattern
		bits := entry.Bits
		if nsPattern != "" {
			pattern = nsPattern + entry.Pattern
			bits = normalize(pattern)
		}
		for _, bit := range bits {
			candidate, ok := renderBit(bit, entry.Defaults, args)
			if !ok {
				continue
			}
			re, err := r.regexes.compile("^" + pattern)
			if err != nil || !re.MatchString(candidate) {
				continue
			}
			getMetrics().reverses.WithLabelValues("ok").Inc()
			r.logger.Debug("reverse resolved",
				observability.String("name", name),
				observability.String("prefix", prefix),
				observability.String("url", candidate))
			return candidate, nil
		}
		tried = append(tried, pattern)
	}

	getMetrics().reverses.WithLabelValues("error").Inc()
	return "", util.NewReverseError(name, cloneArgs(args), tried)
}

// ReverseHandler reverses by handler identity rather than route name.
func (r *Resolver) ReverseHandler(ctx context.Context, handler *Handler, args map[string]string) (string, error) {
	if handler == nil {
		return "", &util.ReverseError{Message: "reverse of nil handler"}
	}
	t := r.tablesFor(ctx, r.Prefix(ctx))
	if _, ok := t.handlers[handler.key]; !ok {
		return "", &util.ReverseError{
			Name:    handler.key,
			Args:    cloneArgs(args),
			Message: fmt.Sprintf("handler %q is not registered in this forest", handler.key),
		}
	}
	return r.Reverse(ctx, handler.key, args)
}

// renderBit substitutes arguments into one rendering of a pattern. The
// rendering applies only when every placeholder is bound by an
// argument or default, every argument is consumed by a placeholder or
// matches a declared default, and no supplied value contradicts a
// default for a non-placeholder key.
func renderBit(bit Bit, defaults, args map[string]string) (string, bool) {
	params := make(map[string]struct{}, len(bit.Params))
	for _, p := range bit.Params {
		params[p] = struct{}{}
	}
	for k := range args {
		if _, ok := params[k]; ok {
			continue
		}
		if _, ok := defaults[k]; !ok {
			return "", false
		}
	}
	for _, p := range bit.Params {
		if _, ok := args[p]; ok {
			continue
		}
		if _, ok := defaults[p]; !ok {
			return "", false
		}
	}
	for k, v := range defaults {
		if _, isParam := params[k]; isParam {
			continue
		}
		if got, ok := args[k]; ok && got != v {
			return "", false
		}
	}

	out := bit.Format
	for _, p := range bit.Params {
		v, ok := args[p]
		if !ok {
			v = defaults[p]
		}
		out = strings.ReplaceAll(out, "%("+p+")s", v)
	}
	return out, true
}
