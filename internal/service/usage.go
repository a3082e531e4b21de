// Package service contains the business logic layer.
//
// This file implements usage metering for calculator tools and AI queries.
// Counters are the number of append-only usage records per (user, feature).
package service

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/DukeRupert/dealroom/internal/domain"
	"github.com/DukeRupert/dealroom/internal/metrics"
	"github.com/DukeRupert/dealroom/internal/repository"
	"github.com/google/uuid"
	"github.com/sqlc-dev/pqtype"
)

// =============================================================================
// Interface Definition
// =============================================================================

// UsageService meters feature usage for signed-in users.
type UsageService interface {
	// GetUsage returns the number of recorded uses for the counter.
	GetUsage(ctx context.Context, userID uuid.UUID, key domain.UsageKey) (int64, error)

	// Limit returns the configured quota for the counter.
	Limit(key domain.UsageKey) int64

	// IsUnlimited reports whether the profile's tier is exempt from metering.
	IsUnlimited(profile *domain.Profile) bool

	// CanUse reports whether the profile may use the feature once more.
	// Read failures are logged and treated as zero usage.
	CanUse(ctx context.Context, profile *domain.Profile, key domain.UsageKey) bool

	// TrackUsage records one use. It returns false without error when the
	// caller is signed out or the quota is exhausted. Unlimited tiers return
	// true without writing a record.
	TrackUsage(ctx context.Context, profile *domain.Profile, key domain.UsageKey, metadata json.RawMessage) (bool, error)

	// Summary returns used/limit for the counter.
	Summary(ctx context.Context, profile *domain.Profile, key domain.UsageKey) (*domain.UsageSummary, error)
}

// UsageStore is the persistence used by UsageService.
// *repository.Store satisfies it.
type UsageStore interface {
	CountUsageRecords(ctx context.Context, arg repository.CountUsageRecordsParams) (int64, error)
	CreateUsageRecord(ctx context.Context, arg repository.CreateUsageRecordParams) (repository.UsageRecord, error)
	CreateUsageRecordIfBelow(ctx context.Context, arg repository.CreateUsageRecordParams, limit int64) (bool, int64, error)
}

// UsageServiceConfig configures metering.
type UsageServiceConfig struct {
	Limits domain.UsageLimits

	// Strict serializes check-then-insert per counter in the database.
	// When false, concurrent uses may exceed a limit by a small amount.
	Strict bool
}

// =============================================================================
// Implementation
// =============================================================================

type usageService struct {
	store  UsageStore
	config UsageServiceConfig
	logger *slog.Logger
}

// NewUsageService creates a new UsageService.
func NewUsageService(store UsageStore, config UsageServiceConfig, logger *slog.Logger) UsageService {
	if config.Limits == (domain.UsageLimits{}) {
		config.Limits = domain.DefaultUsageLimits
	}
	return &usageService{
		store:  store,
		config: config,
		logger: logger,
	}
}

func (s *usageService) GetUsage(ctx context.Context, userID uuid.UUID, key domain.UsageKey) (int64, error) {
	const op = "usage.get"

	count, err := s.store.CountUsageRecords(ctx, repository.CountUsageRecordsParams{
		UserID:    userID,
		Namespace: string(key.Namespace),
		Feature:   key.Feature,
	})
	if err != nil {
		return 0, domain.Internal(err, op, "failed to count usage records")
	}
	return count, nil
}

func (s *usageService) IsUnlimited(profile *domain.Profile) bool {
	if profile == nil {
		return false
	}
	return domain.UnlimitedTiers[profile.EffectiveTier()]
}

func (s *usageService) Limit(key domain.UsageKey) int64 {
	return s.config.Limits.LimitFor(key)
}

func (s *usageService) CanUse(ctx context.Context, profile *domain.Profile, key domain.UsageKey) bool {
	if profile == nil {
		return false
	}
	if s.IsUnlimited(profile) {
		return true
	}
	return s.usageOrZero(ctx, profile.UserID, key) < s.config.Limits.LimitFor(key)
}

func (s *usageService) TrackUsage(ctx context.Context, profile *domain.Profile, key domain.UsageKey, metadata json.RawMessage) (bool, error) {
	const op = "usage.track"
	ns := string(key.Namespace)

	if profile == nil {
		metrics.UsageTracked(ns, "signed_out")
		return false, nil
	}

	if s.IsUnlimited(profile) {
		metrics.UsageTracked(ns, "unlimited")
		return true, nil
	}

	limit := s.config.Limits.LimitFor(key)
	params := repository.CreateUsageRecordParams{
		UserID:    profile.UserID,
		Namespace: ns,
		Feature:   key.Feature,
		Metadata:  nullRawMessage(metadata),
	}

	if s.config.Strict {
		inserted, count, err := s.store.CreateUsageRecordIfBelow(ctx, params, limit)
		if errors.Is(err, repository.ErrUsageCheck) {
			// Nothing was written; meter the soft way so a read failure stays open
			s.logger.Warn("strict usage check failed, falling back",
				"op", op, "user_id", profile.UserID, "key", key.String(), "error", err)
			return s.trackSoft(ctx, profile, key, params, limit)
		}
		if err != nil {
			s.logger.Error("failed to record usage",
				"op", op, "user_id", profile.UserID, "key", key.String(), "error", err)
			metrics.UsageTracked(ns, "error")
			return false, domain.Internal(err, op, "failed to record usage")
		}
		if !inserted {
			s.logQuotaExhausted(profile, key, count, limit)
			metrics.UsageTracked(ns, "exhausted")
			return false, nil
		}
		metrics.UsageTracked(ns, "granted")
		return true, nil
	}

	return s.trackSoft(ctx, profile, key, params, limit)
}

// trackSoft checks then inserts without serialization. Concurrent uses may
// overshoot the limit slightly.
func (s *usageService) trackSoft(ctx context.Context, profile *domain.Profile, key domain.UsageKey, params repository.CreateUsageRecordParams, limit int64) (bool, error) {
	const op = "usage.track"
	ns := string(key.Namespace)

	count := s.usageOrZero(ctx, profile.UserID, key)
	if count >= limit {
		s.logQuotaExhausted(profile, key, count, limit)
		metrics.UsageTracked(ns, "exhausted")
		return false, nil
	}

	if _, err := s.store.CreateUsageRecord(ctx, params); err != nil {
		s.logger.Error("failed to record usage",
			"op", op, "user_id", profile.UserID, "key", key.String(), "error", err)
		metrics.UsageTracked(ns, "error")
		return false, domain.Internal(err, op, "failed to record usage")
	}

	metrics.UsageTracked(ns, "granted")
	return true, nil
}

func (s *usageService) Summary(ctx context.Context, profile *domain.Profile, key domain.UsageKey) (*domain.UsageSummary, error) {
	summary := &domain.UsageSummary{
		Key:   key,
		Limit: s.config.Limits.LimitFor(key),
	}

	if profile == nil {
		return nil, domain.Unauthorized("usage.summary", "Sign in to use this feature")
	}

	if s.IsUnlimited(profile) {
		summary.IsUnlimited = true
		return summary, nil
	}

	summary.Used = s.usageOrZero(ctx, profile.UserID, key)
	return summary, nil
}

// usageOrZero reads the counter, treating failures as zero usage so that a
// metering outage never blocks the feature.
func (s *usageService) usageOrZero(ctx context.Context, userID uuid.UUID, key domain.UsageKey) int64 {
	count, err := s.GetUsage(ctx, userID, key)
	if err != nil {
		s.logger.Warn("usage read failed, assuming zero",
			"user_id", userID, "key", key.String(), "error", err)
		return 0
	}
	return count
}

func (s *usageService) logQuotaExhausted(profile *domain.Profile, key domain.UsageKey, used, limit int64) {
	s.logger.Info("Usage quota exhausted",
		"user_id", profile.UserID,
		"tier", profile.EffectiveTier(),
		"key", key.String(),
		"used", used,
		"limit", limit,
	)
}

func nullRawMessage(m json.RawMessage) pqtype.NullRawMessage {
	if len(m) == 0 || !json.Valid(m) {
		return pqtype.NullRawMessage{Valid: false}
	}
	return pqtype.NullRawMessage{RawMessage: m, Valid: true}
}
