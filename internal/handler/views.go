package handler

import (
	"log/slog"
	"net/http"

	"github.com/DukeRupert/dealroom/internal/auth"
	"github.com/DukeRupert/dealroom/internal/domain"
	"github.com/DukeRupert/dealroom/internal/metrics"
	"github.com/DukeRupert/dealroom/internal/views"
)

const maxPropertyIDLength = 128

// ViewsConfig configures ViewsHandler.
type ViewsConfig struct {
	Signer   *views.Signer
	Secure   bool
	Limit    int
	AuthPath string
}

// ViewsHandler enforces the anonymous property view allowance and keeps
// the recently viewed list.
//
// Routes:
//   - POST /api/properties/{id}/views -> HandleView
//   - GET  /api/properties/recent     -> HandleRecent
type ViewsHandler struct {
	cfg    ViewsConfig
	logger *slog.Logger
}

// NewViewsHandler creates a new ViewsHandler.
func NewViewsHandler(cfg ViewsConfig, logger *slog.Logger) *ViewsHandler {
	if cfg.Limit <= 0 {
		cfg.Limit = views.DefaultAnonymousViewLimit
	}
	return &ViewsHandler{cfg: cfg, logger: logger}
}

// RegisterRoutes registers property view routes.
func (h *ViewsHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/properties/{id}/views", h.HandleView)
	mux.HandleFunc("GET /api/properties/recent", h.HandleRecent)
}

type viewResponse struct {
	Allowed        bool   `json:"allowed"`
	RemainingViews int    `json:"remaining_views"`
	SignedIn       bool   `json:"signed_in"`
	SignInURL      string `json:"sign_in_url,omitempty"`
}

// HandleView checks and records a property detail view. Signed-in viewers
// are always allowed and report remaining_views as -1.
func (h *ViewsHandler) HandleView(w http.ResponseWriter, r *http.Request) {
	const op = "views.track"

	id := r.PathValue("id")
	if id == "" || len(id) > maxPropertyIDLength {
		ErrorResponse(w, r, h.logger, domain.Invalid(op, "invalid property id"))
		return
	}

	signedIn := auth.SignedIn(r.Context())
	limiter := views.NewLimiter(
		views.NewCookieStore[[]string](h.cfg.Signer, views.AnonViewsCookie, h.cfg.Secure, w, r),
		signedIn, h.cfg.Limit, h.logger,
	)

	if !limiter.CanView(id) {
		metrics.AnonymousView("blocked")
		writeJSON(w, http.StatusOK, viewResponse{
			Allowed:        false,
			RemainingViews: 0,
			SignInURL:      h.cfg.AuthPath,
		})
		return
	}

	if !signedIn {
		if limiter.TrackView(id) {
			metrics.AnonymousView("new")
		} else {
			metrics.AnonymousView("repeat")
		}
	}

	recent := views.NewRecent(
		views.NewCookieStore[[]views.RecentEntry](h.cfg.Signer, views.RecentViewsCookie, h.cfg.Secure, w, r),
		h.logger,
	)
	recent.Add(id)

	remaining := limiter.RemainingViews()
	if signedIn {
		remaining = -1
	}
	writeJSON(w, http.StatusOK, viewResponse{
		Allowed:        true,
		RemainingViews: remaining,
		SignedIn:       signedIn,
	})
}

// HandleRecent returns the recently viewed properties, newest first.
func (h *ViewsHandler) HandleRecent(w http.ResponseWriter, r *http.Request) {
	recent := views.NewRecent(
		views.NewCookieStore[[]views.RecentEntry](h.cfg.Signer, views.RecentViewsCookie, h.cfg.Secure, nil, r),
		h.logger,
	)
	writeJSON(w, http.StatusOK, map[string]any{
		"properties": recent.Entries(),
	})
}
