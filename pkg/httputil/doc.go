// Package httputil provides the JSON response helpers, request parsing and
// middleware shared by the debug API.
//
// # Response Helpers
//
//	httputil.WriteJSON(w, http.StatusOK, data)
//	httputil.WriteNotFoundError(w, "no such plugin")
//	httputil.WriteError(w, http.StatusConflict, err)
//
// Errors are always {"error": "...", "request_id": "..."}; request_id is
// omitted when RequestIDMiddleware did not run.
//
// # Request Parsing
//
//	id, ok := httputil.ParsePathStringOrError(w, r, "id")
//	if !ok {
//		return
//	}
//
// # Middleware
//
//	r.Use(httputil.RequestIDMiddleware)
//	r.Use(httputil.RecoveryMiddleware(log))
//	r.Use(httputil.LoggingMiddleware(log))
package httputil
