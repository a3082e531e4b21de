package handler

import (
	"log/slog"
	"net/http"

	"github.com/DukeRupert/dealroom/internal/auth"
	"github.com/DukeRupert/dealroom/internal/domain"
	"github.com/DukeRupert/dealroom/internal/service"
)

// UsageHandler meters calculator tools and AI queries.
//
// Routes:
//   - GET  /api/usage/{namespace}/{feature} -> HandleSummary
//   - POST /api/usage/{namespace}/{feature} -> HandleTrack
type UsageHandler struct {
	usage       service.UsageService
	upgradePath string
	logger      *slog.Logger
}

// NewUsageHandler creates a new UsageHandler. upgradePath is returned to
// clients whose free quota is exhausted.
func NewUsageHandler(usage service.UsageService, upgradePath string, logger *slog.Logger) *UsageHandler {
	return &UsageHandler{
		usage:       usage,
		upgradePath: upgradePath,
		logger:      logger,
	}
}

// RegisterRoutes registers usage routes. Both require a signed-in viewer,
// which the handlers check themselves so anonymous callers get a 401.
func (h *UsageHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/usage/{namespace}/{feature}", h.HandleSummary)
	mux.HandleFunc("POST /api/usage/{namespace}/{feature}", h.HandleTrack)
}

type usageResponse struct {
	Namespace string `json:"namespace"`
	Feature   string `json:"feature"`
	Used      int64  `json:"used"`
	Limit     int64  `json:"limit"`
	Remaining int64  `json:"remaining"`
	Unlimited bool   `json:"unlimited"`
	CanUse    bool   `json:"can_use"`
	Granted   *bool  `json:"granted,omitempty"`
}

func newUsageResponse(s *domain.UsageSummary) usageResponse {
	return usageResponse{
		Namespace: string(s.Key.Namespace),
		Feature:   s.Key.Feature,
		Used:      s.Used,
		Limit:     s.Limit,
		Remaining: s.Remaining(),
		Unlimited: s.IsUnlimited,
		CanUse:    s.CanUse(),
	}
}

// HandleSummary returns used/limit for the counter.
func (h *UsageHandler) HandleSummary(w http.ResponseWriter, r *http.Request) {
	profile := auth.GetProfile(r.Context())
	if profile == nil {
		UnauthorizedResponse(w, r, h.logger)
		return
	}

	key, err := domain.ParseUsageKey(r.PathValue("namespace"), r.PathValue("feature"))
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	summary, err := h.usage.Summary(r.Context(), profile, key)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, newUsageResponse(summary))
}

// HandleTrack records one use. An optional JSON body is stored as the
// record's metadata.
func (h *UsageHandler) HandleTrack(w http.ResponseWriter, r *http.Request) {
	const op = "usage.track"

	profile := auth.GetProfile(r.Context())
	if profile == nil {
		UnauthorizedResponse(w, r, h.logger)
		return
	}

	key, err := domain.ParseUsageKey(r.PathValue("namespace"), r.PathValue("feature"))
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	metadata, err := readJSONBody(r)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	// One meter per request: the count is read once and bumped in place
	// after the write, so the response reflects this use without a re-read.
	meter := service.NewMeter(h.usage, profile, key, h.usage.Limit(key))
	if err := meter.Refresh(r.Context()); err != nil {
		h.logger.Warn("usage read failed, metering open", "op", op, "user_id", profile.UserID, "error", err)
	}

	granted, err := meter.Use(r.Context(), metadata)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	if !granted {
		UpgradeResponse(w, r, h.logger, domain.QuotaExceeded(op, meter.Used(r.Context()), meter.Limit()), h.upgradePath)
		return
	}

	resp := newUsageResponse(&domain.UsageSummary{
		Key:         key,
		Used:        meter.Used(r.Context()),
		Limit:       meter.Limit(),
		IsUnlimited: meter.Unlimited(),
	})
	resp.Granted = &granted
	writeJSON(w, http.StatusOK, resp)
}
