package middleware

import (
	"net/http"

	"github.com/pesaflow/remit/internal/core/logger"
)

// statusRecorder remembers the status a handler wrote so server errors can
// be logged after the fact.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (sr *statusRecorder) WriteHeader(status int) {
	sr.status = status
	sr.ResponseWriter.WriteHeader(status)
}

// WithErrorHandler logs every response that ends in a server error. Client
// errors are the caller's problem and stay out of the log.
func WithErrorHandler(log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(recorder, r)

			if recorder.status >= http.StatusInternalServerError {
				log.Error("request failed",
					logger.StringField("method", r.Method),
					logger.StringField("path", r.URL.Path),
					logger.IntField("status", recorder.status),
				)
			}
		})
	}
}
