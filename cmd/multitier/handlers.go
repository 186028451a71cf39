package main

import (
	"encoding/json"
	"net/http"

	"github.com/vberezan/multitier/internal/middleware"
	"github.com/vberezan/multitier/internal/routing"
	"github.com/vberezan/multitier/internal/tenant"
	"github.com/vberezan/multitier/internal/util"
)

// builtinHandlers returns the handler set route configs reference by key.
// The daemon routes requests rather than hosting applications, so the
// built-ins are introspection endpoints that report what resolution decided.
func builtinHandlers() map[string]*routing.Handler {
	return map[string]*routing.Handler{
		"echo":    routing.NewHandler("echo", echoHandler),
		"status":  routing.NewHandler("status", statusHandler),
		"tenant":  routing.NewHandler("tenant", tenantHandler),
		"version": routing.NewHandler("version", versionHandler),
	}
}

type echoResponse struct {
	Method string            `json:"method"`
	Path   string            `json:"path"`
	Route  string            `json:"route,omitempty"`
	Params map[string]string `json:"params,omitempty"`
	Tenant string            `json:"tenant,omitempty"`
}

// echoHandler reports the matched route, captured path parameters, and the
// resolved tenant for the request.
func echoHandler(w http.ResponseWriter, r *http.Request) {
	resp := echoResponse{
		Method: r.Method,
		Path:   r.URL.Path,
		Route:  util.RouteNameFromContext(r.Context()),
		Params: util.PathParamsFromContext(r.Context()),
	}
	if s, ok := tenant.FromContext(r.Context()); ok {
		resp.Tenant = s.Slug
	}
	writeJSON(w, http.StatusOK, resp)
}

func statusHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// tenantHandler returns the current tenant record, or 404 for requests that
// resolved to no tenant.
func tenantHandler(w http.ResponseWriter, r *http.Request) {
	s, ok := tenant.FromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no tenant resolved"})
		return
	}
	writeJSON(w, http.StatusOK, s)
}

func versionHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"version":   version,
		"gitCommit": gitCommit,
		"buildTime": buildTime,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set(middleware.HeaderContentType, middleware.ContentTypeJSON)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
