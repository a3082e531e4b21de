package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/DukeRupert/dealroom/internal/auth"
	"github.com/DukeRupert/dealroom/internal/domain"
	"github.com/DukeRupert/dealroom/internal/service"
)

// MeHandler describes the current viewer's membership.
//
// Route:
//   - GET /api/me -> HandleMe
type MeHandler struct {
	usage  service.UsageService
	logger *slog.Logger
}

// NewMeHandler creates a new MeHandler.
func NewMeHandler(usage service.UsageService, logger *slog.Logger) *MeHandler {
	return &MeHandler{usage: usage, logger: logger}
}

// RegisterRoutes registers the viewer route.
func (h *MeHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/me", h.HandleMe)
}

type meResponse struct {
	SignedIn  bool                    `json:"signed_in"`
	UserID    *uuid.UUID              `json:"user_id,omitempty"`
	Email     string                  `json:"email,omitempty"`
	Tier      domain.Tier             `json:"tier"`
	TierName  string                  `json:"tier_name"`
	Status    domain.MembershipStatus `json:"status,omitempty"`
	RenewsAt  *time.Time              `json:"renews_at,omitempty"`
	Unlimited bool                    `json:"unlimited"`
}

// HandleMe returns the viewer's tier and status. Anonymous visitors get the
// free tier.
func (h *MeHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	viewer := auth.GetViewer(r.Context())
	if viewer == nil {
		writeJSON(w, http.StatusOK, meResponse{
			Tier:     domain.TierFree,
			TierName: domain.TierFree.DisplayName(),
		})
		return
	}

	p := viewer.Profile
	tier := p.EffectiveTier()
	resp := meResponse{
		SignedIn:  true,
		UserID:    &viewer.UserID,
		Email:     viewer.Email,
		Tier:      tier,
		TierName:  tier.DisplayName(),
		Unlimited: h.usage.IsUnlimited(p),
	}
	if p != nil {
		resp.Status = p.Status
		resp.RenewsAt = p.RenewsAt
		if p.Email != "" {
			resp.Email = p.Email
		}
	}

	writeJSON(w, http.StatusOK, resp)
}
