package web_server

import (
	"crypto/subtle"
	"net/http"
	"time"

	"github.com/susaninz/geosite-manager/logging"
	"go.uber.org/zap"
)

// loggingMiddleware logs every request with method, path and duration.
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		logging.WebServerLogger.Debug("request handled",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Duration("took", time.Since(start)))
	})
}

// noCacheMiddleware disables client-side caching.
func noCacheMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}

// secretMiddleware rejects requests that do not carry the webhook secret,
// either as bearer token or via the X-Webhook-Secret header.
func secretMiddleware(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !secretMatches(r, secret) {
				logging.WebServerLogger.Warn("unauthorized webhook attempt",
					zap.String("path", r.URL.Path),
					zap.String("remote_addr", r.RemoteAddr))
				respondJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func secretMatches(r *http.Request, secret string) bool {
	if secret == "" {
		return false
	}
	if header := r.Header.Get("X-Webhook-Secret"); header != "" {
		return subtle.ConstantTimeCompare([]byte(header), []byte(secret)) == 1
	}
	authHeader := r.Header.Get("Authorization")
	return subtle.ConstantTimeCompare([]byte(authHeader), []byte("Bearer "+secret)) == 1
}
