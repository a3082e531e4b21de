package handler

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/DukeRupert/dealroom/internal/access"
	"github.com/DukeRupert/dealroom/internal/auth"
	"github.com/DukeRupert/dealroom/internal/domain"
)

// AccessHandler exposes gate decisions to the frontend so it can render
// locked content without a full page redirect.
//
// Route:
//   - GET /api/access?path=&required=&total=&preview= -> HandleDecide
type AccessHandler struct {
	gate   *access.Gate
	routes *access.RouteTable
	logger *slog.Logger
}

// NewAccessHandler creates a new AccessHandler.
func NewAccessHandler(gate *access.Gate, routes *access.RouteTable, logger *slog.Logger) *AccessHandler {
	return &AccessHandler{
		gate:   gate,
		routes: routes,
		logger: logger,
	}
}

// RegisterRoutes registers access routes.
func (h *AccessHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/access", h.HandleDecide)
}

// HandleDecide returns the decision for path. required overrides the route
// table. When total is given the embedded preview variant is returned,
// letting the first preview items through.
func (h *AccessHandler) HandleDecide(w http.ResponseWriter, r *http.Request) {
	const op = "access.decide"
	q := r.URL.Query()

	path := q.Get("path")
	if path == "" {
		path = "/"
	}
	if !strings.HasPrefix(path, "/") {
		ErrorResponse(w, r, h.logger, domain.Invalid(op, "path must start with /"))
		return
	}

	required := h.routes.Required(path)
	if s := q.Get("required"); s != "" {
		tier := domain.Tier(strings.ToLower(strings.TrimSpace(s)))
		if !tier.Valid() {
			ErrorResponse(w, r, h.logger, domain.Invalid(op, "unknown tier"))
			return
		}
		required = tier
	}

	req := access.Request{
		SignedIn: auth.SignedIn(r.Context()),
		Profile:  auth.GetProfile(r.Context()),
		Path:     path,
		Required: required,
	}

	if s := q.Get("total"); s != "" {
		total, err := strconv.Atoi(s)
		if err != nil || total < 0 {
			ErrorResponse(w, r, h.logger, domain.Invalid(op, "total must be a non-negative integer"))
			return
		}
		preview, err := strconv.Atoi(q.Get("preview"))
		if err != nil {
			preview = 0
		}
		writeJSON(w, http.StatusOK, h.gate.Preview(req, total, preview))
		return
	}

	writeJSON(w, http.StatusOK, h.gate.Decide(req))
}
