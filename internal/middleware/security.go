package middleware

import (
	"net/http"
	"strings"
)

// CSPSources lists the third-party origins the frontend talks to.
type CSPSources struct {
	// SupabaseURL is the project URL used for auth and data calls.
	SupabaseURL string
	// Connect holds extra connect-src origins (map tiles, analytics).
	Connect []string
	// Script holds extra script-src origins.
	Script []string
	// Frame holds origins allowed in iframes, such as Stripe Checkout.
	Frame []string
}

// DefaultCSPSources returns the origins used by the property frontend:
// Mapbox for maps and Stripe for checkout.
func DefaultCSPSources(supabaseURL string) CSPSources {
	return CSPSources{
		SupabaseURL: supabaseURL,
		Connect:     []string{"https://api.mapbox.com", "https://events.mapbox.com", "https://api.stripe.com"},
		Script:      []string{"https://js.stripe.com", "https://api.mapbox.com"},
		Frame:       []string{"https://js.stripe.com", "https://checkout.stripe.com"},
	}
}

// SecurityHeadersMiddleware adds HTTP security headers to all responses.
type SecurityHeadersMiddleware struct {
	isSecure bool // Whether to enable HTTPS-specific headers (true in production)
	csp      string
}

// NewSecurityHeadersMiddleware creates a new security headers middleware.
// Set isSecure to true in production to enable HSTS and other HTTPS-specific headers.
func NewSecurityHeadersMiddleware(isSecure bool, sources CSPSources) *SecurityHeadersMiddleware {
	return &SecurityHeadersMiddleware{
		isSecure: isSecure,
		csp:      buildCSP(sources),
	}
}

// Handler returns middleware that sets security headers on all responses.
func (m *SecurityHeadersMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Prevent clickjacking - deny all framing
		w.Header().Set("X-Frame-Options", "DENY")

		// Prevent MIME type sniffing
		w.Header().Set("X-Content-Type-Options", "nosniff")

		// Control referrer information
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		// XSS protection (legacy but still helpful for older browsers)
		w.Header().Set("X-XSS-Protection", "1; mode=block")

		// HSTS - only in production with HTTPS
		if m.isSecure {
			// max-age=31536000 = 1 year
			w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		w.Header().Set("Content-Security-Policy", m.csp)

		// Maps ask for the visitor's location; nothing else is needed
		w.Header().Set("Permissions-Policy", "geolocation=(self), microphone=(), camera=()")

		next.ServeHTTP(w, r)
	})
}

// buildCSP constructs the Content-Security-Policy header value.
func buildCSP(src CSPSources) string {
	connect := []string{"'self'"}
	if src.SupabaseURL != "" {
		base := strings.TrimRight(src.SupabaseURL, "/")
		connect = append(connect, base)
		// Realtime subscriptions use the websocket form of the same host
		if ws, ok := strings.CutPrefix(base, "https://"); ok {
			connect = append(connect, "wss://"+ws)
		}
	}
	connect = append(connect, src.Connect...)

	directives := []string{
		"default-src 'self'",
		"script-src " + strings.Join(append([]string{"'self'"}, src.Script...), " "),
		// Map and chart libraries set inline styles
		"style-src 'self' 'unsafe-inline' https://api.mapbox.com",
		"img-src 'self' data: blob: https:",
		"font-src 'self' data:",
		"connect-src " + strings.Join(connect, " "),
		// Mapbox GL renders in a blob worker
		"worker-src 'self' blob:",
		"frame-src " + strings.Join(append([]string{"'self'"}, src.Frame...), " "),
		"frame-ancestors 'none'",
		"base-uri 'self'",
		"form-action 'self'",
	}
	return strings.Join(directives, "; ")
}
