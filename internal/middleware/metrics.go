package middleware

import (
	"crypto/sha256"
	"crypto/subtle"
	"log/slog"
	"net/http"
)

// MetricsAuth guards the Prometheus endpoint with HTTP basic auth. With no
// credentials configured the endpoint is open when allowOpen is set
// (development) and answers 404 otherwise.
type MetricsAuth struct {
	user       [sha256.Size]byte
	pass       [sha256.Size]byte
	configured bool
	allowOpen  bool
	logger     *slog.Logger
}

// NewMetricsAuth creates a MetricsAuth. Credentials are kept as digests so
// comparisons take the same time whatever the input length.
func NewMetricsAuth(username, password string, allowOpen bool, logger *slog.Logger) *MetricsAuth {
	return &MetricsAuth{
		user:       sha256.Sum256([]byte(username)),
		pass:       sha256.Sum256([]byte(password)),
		configured: username != "" || password != "",
		allowOpen:  allowOpen,
		logger:     logger,
	}
}

// Configured reports whether credentials were supplied.
func (m *MetricsAuth) Configured() bool {
	return m.configured
}

// Handler wraps the metrics handler.
func (m *MetricsAuth) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !m.configured {
			if m.allowOpen {
				next.ServeHTTP(w, r)
				return
			}
			http.NotFound(w, r)
			return
		}

		user, pass, ok := r.BasicAuth()
		if !ok {
			m.challenge(w)
			return
		}

		gotUser := sha256.Sum256([]byte(user))
		gotPass := sha256.Sum256([]byte(pass))
		userMatch := subtle.ConstantTimeCompare(gotUser[:], m.user[:]) == 1
		passMatch := subtle.ConstantTimeCompare(gotPass[:], m.pass[:]) == 1
		if !userMatch || !passMatch {
			m.logger.Warn("metrics auth rejected", "ip", getClientIP(r))
			m.challenge(w)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (m *MetricsAuth) challenge(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", `Basic realm="metrics"`)
	http.Error(w, "Unauthorized", http.StatusUnauthorized)
}
