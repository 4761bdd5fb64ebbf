// internal/utils/metrics/middleware.go
package metrics

import (
	"net/http"
	"time"
)

// HTTPMiddleware оборачивает обработчик и пишет метрики запроса под именем handlerName.
func HTTPMiddleware(c *Collector, handlerName string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(wrapped, r)

			c.RecordHTTPRequest(handlerName, r.Method, wrapped.statusCode, time.Since(start))
		})
	}
}

// responseWriter запоминает код ответа
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (w *responseWriter) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}
