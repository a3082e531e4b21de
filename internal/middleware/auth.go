// Package middleware contains HTTP middleware for the dealroom service.
//
// Middleware functions follow the standard Go pattern of wrapping http.Handler.
// They are designed to be composed using a middleware stack approach.
package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/DukeRupert/dealroom/internal/access"
	"github.com/DukeRupert/dealroom/internal/auth"
	"github.com/DukeRupert/dealroom/internal/domain"
	"github.com/DukeRupert/dealroom/internal/handler"
	"github.com/DukeRupert/dealroom/internal/service"
)

// AccessTokenCookieName is the cookie the frontend stores the Supabase
// access token in.
const AccessTokenCookieName = "sb-access-token"

// =============================================================================
// Auth Middleware Configuration
// =============================================================================

// TokenVerifier validates access tokens. *auth.Verifier satisfies it.
type TokenVerifier interface {
	Verify(token string) (*auth.Claims, error)
}

// AuthMiddleware provides authentication middleware functionality.
//
// Create one instance and use its methods as middleware.
type AuthMiddleware struct {
	verifier TokenVerifier
	profiles service.ProfileService
	logger   *slog.Logger
}

// NewAuthMiddleware creates a new AuthMiddleware instance.
func NewAuthMiddleware(verifier TokenVerifier, profiles service.ProfileService, logger *slog.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		verifier: verifier,
		profiles: profiles,
		logger:   logger,
	}
}

// =============================================================================
// WithViewer Middleware
// =============================================================================

// WithViewer is middleware that attempts to identify the viewer.
//
// This middleware:
// 1. Reads the access token from the Authorization header or cookie
// 2. If found, verifies it and resolves the subscriber profile
// 3. Stores the viewer in the request context
// 4. Continues to the next handler regardless of authentication status
//
// Profile lookup failures resolve to the free tier, so gating fails closed.
func (m *AuthMiddleware) WithViewer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := accessToken(r)
		if token == "" {
			next.ServeHTTP(w, r)
			return
		}

		claims, err := m.verifier.Verify(token)
		if err != nil {
			m.logger.Debug("access token rejected", "error", err, "path", r.URL.Path)
			next.ServeHTTP(w, r)
			return
		}

		userID, err := claims.UserID()
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}

		viewer := &auth.Viewer{
			UserID:  userID,
			Email:   claims.Email,
			Profile: m.profiles.Resolve(r.Context(), userID),
		}

		ctx := auth.SetViewer(r.Context(), viewer)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// =============================================================================
// Gate Middleware
// =============================================================================

// GateMiddleware enforces tier requirements on whole routes.
type GateMiddleware struct {
	gate   *access.Gate
	routes *access.RouteTable
	logger *slog.Logger
}

// NewGateMiddleware creates a GateMiddleware.
func NewGateMiddleware(gate *access.Gate, routes *access.RouteTable, logger *slog.Logger) *GateMiddleware {
	return &GateMiddleware{
		gate:   gate,
		routes: routes,
		logger: logger,
	}
}

// Handler looks up the path's required tier and lets the request through
// only when the gate allows it. Denied browsers are redirected; API callers
// get 401 (signed out) or 402 (upgrade needed).
//
// IMPORTANT: Use this AFTER WithViewer in the middleware chain.
func (m *GateMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		const op = "access.gate"

		d := m.gate.Decide(access.Request{
			SignedIn: auth.SignedIn(r.Context()),
			Profile:  auth.GetProfile(r.Context()),
			Path:     r.URL.Path,
			RawQuery: r.URL.RawQuery,
			Required: m.routes.Required(r.URL.Path),
		})

		switch d.Outcome {
		case access.OutcomeAllow:
			next.ServeHTTP(w, r)
		case access.OutcomeRedirectAuth:
			if isAPIRequest(r) {
				handler.UnauthorizedResponse(w, r, m.logger)
				return
			}
			http.Redirect(w, r, d.Location, http.StatusSeeOther)
		default:
			var err error = domain.UpgradeRequired(op, d.Required)
			if d.Reason == access.ReasonExpired {
				err = domain.MembershipExpired(op)
			}
			handler.UpgradeResponse(w, r, m.logger, err, d.Location)
		}
	})
}

// =============================================================================
// Request Helpers
// =============================================================================

// accessToken returns the bearer token, falling back to the cookie.
func accessToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, token, ok := strings.Cut(h, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
	}
	if c, err := r.Cookie(AccessTokenCookieName); err == nil {
		return c.Value
	}
	return ""
}

// isAPIRequest determines if the request expects a JSON response.
//
// This is used to decide whether to redirect (HTML) or return JSON errors (API).
//
// Checks:
// 1. Accept header contains application/json
// 2. Content-Type is application/json
// 3. URL path starts with /api/
func isAPIRequest(r *http.Request) bool {
	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		return true
	}
	if strings.Contains(r.Header.Get("Content-Type"), "application/json") {
		return true
	}
	return strings.HasPrefix(r.URL.Path, "/api/")
}

// =============================================================================
// Middleware Stack Helpers
// =============================================================================

// Stack composes multiple middleware functions into a single middleware.
//
// Middleware is applied in the order provided, meaning the first middleware
// in the slice is the outermost (runs first on request, last on response).
//
// Example:
//
//	stack := Stack(loggingMw, authMw.WithViewer, gateMw.Handler)
//	mux.Handle("GET /", stack(frontend))
func Stack(middlewares ...func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	return func(final http.Handler) http.Handler {
		for i := len(middlewares) - 1; i >= 0; i-- {
			final = middlewares[i](final)
		}
		return final
	}
}

// Ensure middleware functions have correct signature
var (
	_ func(http.Handler) http.Handler = (&AuthMiddleware{}).WithViewer
	_ func(http.Handler) http.Handler = (&GateMiddleware{}).Handler
)
