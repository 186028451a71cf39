package routing

import (
	"fmt"

	"github.com/vberezan/multitier/internal/config"
	"github.com/vberezan/multitier/internal/util"
)

// FromConfig builds the pattern forest described by a routes section.
// Handler keys resolve against the supplied handler set; an unknown
// key fails construction so a typo in the config never surfaces as a
// runtime miss.
func FromConfig(routes []config.RouteConfig, handlers map[string]*Handler) (*Pattern, error) {
	if len(routes) == 0 {
		return nil, util.NewConfigError("routes", "at least one route is required")
	}
	children, err := nodesFromConfig(routes, handlers, "routes")
	if err != nil {
		return nil, err
	}
	return Routes(children...)
}

func nodesFromConfig(routes []config.RouteConfig, handlers map[string]*Handler, path string) ([]*Pattern, error) {
	children := make([]*Pattern, 0, len(routes))
	for i, rc := range routes {
		node, err := nodeFromConfig(rc, handlers, fmt.Sprintf("%s[%d]", path, i))
		if err != nil {
			return nil, err
		}
		children = append(children, node)
	}
	return children, nil
}

func nodeFromConfig(rc config.RouteConfig, handlers map[string]*Handler, path string) (*Pattern, error) {
	if rc.IsGroup() {
		nested, err := nodesFromConfig(rc.Routes, handlers, path+".routes")
		if err != nil {
			return nil, err
		}
		var opts []Option
		if rc.Namespace != "" {
			opts = append(opts, Namespace(rc.Namespace))
		}
		if rc.AppName != "" {
			opts = append(opts, AppName(rc.AppName))
		}
		if len(rc.Defaults) > 0 {
			opts = append(opts, Defaults(rc.Defaults))
		}
		return NewGroup(rc.Pattern, nested, opts...)
	}

	handler, ok := handlers[rc.Handler]
	if !ok {
		return nil, util.NewConfigError(path,
			fmt.Sprintf("unknown handler key %q", rc.Handler))
	}
	var opts []Option
	if rc.Name != "" {
		opts = append(opts, Name(rc.Name))
	}
	if len(rc.Defaults) > 0 {
		opts = append(opts, Defaults(rc.Defaults))
	}
	return NewRoute(rc.Pattern, handler, opts...)
}
