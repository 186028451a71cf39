package util

import (
	"context"
)

// Context keys.
type ctxKey string

const (
	ctxKeyRouteName  ctxKey = "route_name"
	ctxKeyPathParams ctxKey = "path_params"
)

// routeRecord carries the matched route name for one request. The
// record is a pointer so a dispatch layer deep in the handler chain
// can publish the match to middleware that wrapped it.
type routeRecord struct {
	name string
}

// ContextWithRouteRecording seeds an empty route record. Middleware
// chains install this at the top so that a later ContextWithRouteName
// call inside the chain is visible to every holder of the context.
func ContextWithRouteRecording(ctx context.Context) context.Context {
	return context.WithValue(ctx, ctxKeyRouteName, &routeRecord{})
}

// ContextWithRouteName records the matched route name. When the
// context already carries a route record the record is updated in
// place; otherwise a fresh record is attached.
func ContextWithRouteName(ctx context.Context, name string) context.Context {
	if rec, ok := ctx.Value(ctxKeyRouteName).(*routeRecord); ok {
		rec.name = name
		return ctx
	}
	return context.WithValue(ctx, ctxKeyRouteName, &routeRecord{name: name})
}

// RouteNameFromContext extracts the matched route name from context.
func RouteNameFromContext(ctx context.Context) string {
	if rec, ok := ctx.Value(ctxKeyRouteName).(*routeRecord); ok {
		return rec.name
	}
	return ""
}

// ContextWithPathParams adds path parameters to the context.
func ContextWithPathParams(ctx context.Context, params map[string]string) context.Context {
	return context.WithValue(ctx, ctxKeyPathParams, params)
}

// PathParamsFromContext extracts path parameters from context.
func PathParamsFromContext(ctx context.Context) map[string]string {
	if v, ok := ctx.Value(ctxKeyPathParams).(map[string]string); ok {
		return v
	}
	return nil
}
