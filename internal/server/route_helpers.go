package server

import (
	"net/http"
	"strings"
)

// methodHandlers maps HTTP methods to handlers for a single path.
type methodHandlers map[string]http.HandlerFunc

// routeByMethod dispatches on the request method and answers 405 for
// anything unmapped.
func routeByMethod(w http.ResponseWriter, r *http.Request, routes methodHandlers) {
	handler, ok := routes[r.Method]
	if !ok {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	handler(w, r)
}

// subresource splits an item path like "/api/jobs/{id}/cancel" into the id
// and the action segment. The action is empty when the path addresses the
// item itself. Splitting on the first slash keeps deeper paths out of the
// action routes; they fall through to the 404 handler.
func subresource(path, prefix string) (id, action string) {
	rest := strings.TrimPrefix(path, prefix)
	if i := strings.IndexByte(rest, '/'); i >= 0 {
		return rest[:i], rest[i+1:]
	}
	return rest, ""
}
