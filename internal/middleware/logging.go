package middleware

import (
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"
)

// statusWriter captures the final status code and bytes written.
type statusWriter struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	n, err := w.ResponseWriter.Write(b)
	w.bytes += n
	return n, err
}

// Logging logs method, path, status, size and duration of every request.
func Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w}

		next.ServeHTTP(sw, r)

		if sw.status == 0 {
			sw.status = http.StatusOK
		}
		entry := log.WithFields(log.Fields{
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      sw.status,
			"bytes":       sw.bytes,
			"duration_ms": time.Since(start).Milliseconds(),
			"remote_ip":   remoteHost(r),
		})
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			entry = entry.WithField("forwarded_for", xff)
		}
		if sw.status >= http.StatusInternalServerError {
			entry.Warn("Request failed")
			return
		}
		entry.Info("Request handled")
	})
}
