package middleware

import (
	"encoding/json"
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/kbukum/faultline/errors"
	"github.com/kbukum/faultline/logger"
)

// Recovery turns a handler panic into a classified 500 response.
func Recovery(log *logger.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				ce := errors.Classify(fmt.Errorf("panic: %v", rec), errors.Context{Component: "server", URL: r.URL.Path})
				log.Error("panic recovered", logger.Fields(
					logger.FieldErrorID, ce.ID(),
					"stack", string(debug.Stack()),
					"path", r.URL.Path,
					"method", r.Method,
				))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				_ = json.NewEncoder(w).Encode(ce.ToResponse())
			}()
			next.ServeHTTP(w, r)
		})
	}
}
