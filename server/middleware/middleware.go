package middleware

import "net/http"

// Middleware wraps an http.Handler. Server-wide middleware runs outside the
// Gin engine so it also covers handlers mounted directly on the mux.
type Middleware func(http.Handler) http.Handler

// Chain composes middleware; the first one is the outermost.
func Chain(middlewares ...Middleware) Middleware {
	return func(final http.Handler) http.Handler {
		for i := len(middlewares) - 1; i >= 0; i-- {
			final = middlewares[i](final)
		}
		return final
	}
}
