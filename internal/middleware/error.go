package middleware

import (
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"
)

// ErrorHandler turns handler panics into a 500 envelope. http.ErrAbortHandler is re-raised
// so net/http can drop the connection, and nothing is written once a response has started.
func ErrorHandler(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rec := newStatusRecorder(w)
			defer func() {
				p := recover()
				if p == nil {
					return
				}
				if err, ok := p.(error); ok && errors.Is(err, http.ErrAbortHandler) {
					panic(p)
				}
				logger.Error("panic_recovered",
					zap.String("panic", fmt.Sprint(p)),
					zap.String("path", r.URL.Path),
					zap.String("method", r.Method),
					zap.Bool("response_started", rec.wrote),
					zap.StackSkip("stack", 2),
				)
				if !rec.wrote {
					writeError(w, r, http.StatusInternalServerError, "An unexpected error occurred")
				}
			}()
			next.ServeHTTP(rec, r)
		})
	}
}
