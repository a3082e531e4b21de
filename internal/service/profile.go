// Package service contains the business logic layer.
//
// This file implements subscriber profile lookups. Profiles are read through
// a TTL cache and are only written by billing webhooks.
package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/DukeRupert/dealroom/internal/cache"
	"github.com/DukeRupert/dealroom/internal/domain"
	"github.com/DukeRupert/dealroom/internal/metrics"
	"github.com/DukeRupert/dealroom/internal/repository"
	"github.com/google/uuid"
)

// DefaultProfileCacheTTL bounds how stale a cached tier may be when a
// webhook invalidation is missed.
const DefaultProfileCacheTTL = 5 * time.Minute

// =============================================================================
// Interface Definition
// =============================================================================

// ProfileService reads and updates subscriber profiles.
type ProfileService interface {
	// Get returns the profile for userID.
	// Returns domain.ENOTFOUND if no profile exists.
	Get(ctx context.Context, userID uuid.UUID) (*domain.Profile, error)

	// Resolve returns the profile for userID, falling back to a free-tier
	// profile on any failure. Used on the request path where gating must
	// fail closed.
	Resolve(ctx context.Context, userID uuid.UUID) *domain.Profile

	// GetByStripeCustomerID returns the profile linked to a Stripe customer.
	GetByStripeCustomerID(ctx context.Context, customerID string) (*domain.Profile, error)

	// UpdateMembership changes tier/status and invalidates the cached copy.
	UpdateMembership(ctx context.Context, params domain.MembershipUpdateParams) error

	// LinkStripeCustomer records the Stripe customer that paid for userID so
	// later subscription events can find the profile.
	LinkStripeCustomer(ctx context.Context, userID uuid.UUID, customerID string) error
}

// ProfileStore is the persistence used by ProfileService.
type ProfileStore interface {
	GetProfile(ctx context.Context, id uuid.UUID) (repository.Profile, error)
	GetProfileByStripeCustomerID(ctx context.Context, stripeCustomerID string) (repository.Profile, error)
	UpdateProfileMembership(ctx context.Context, arg repository.UpdateProfileMembershipParams) error
	LinkProfileStripeCustomer(ctx context.Context, id uuid.UUID, stripeCustomerID string) error
}

// =============================================================================
// Implementation
// =============================================================================

type profileService struct {
	store  ProfileStore
	cache  cache.Cache
	ttl    time.Duration
	logger *slog.Logger
}

// NewProfileService creates a new ProfileService. c may be nil to disable
// caching.
func NewProfileService(store ProfileStore, c cache.Cache, ttl time.Duration, logger *slog.Logger) ProfileService {
	if ttl <= 0 {
		ttl = DefaultProfileCacheTTL
	}
	return &profileService{
		store:  store,
		cache:  c,
		ttl:    ttl,
		logger: logger,
	}
}

func profileCacheKey(userID uuid.UUID) string {
	return "profile:" + userID.String()
}

func (s *profileService) Get(ctx context.Context, userID uuid.UUID) (*domain.Profile, error) {
	const op = "profile.get"

	if p, ok := s.fromCache(ctx, userID); ok {
		return p, nil
	}

	row, err := s.store.GetProfile(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFound(op, "profile", userID.String())
		}
		return nil, domain.Internal(err, op, "failed to load profile")
	}

	p := profileFromRow(row)
	s.toCache(ctx, p)
	return p, nil
}

func (s *profileService) Resolve(ctx context.Context, userID uuid.UUID) *domain.Profile {
	p, err := s.Get(ctx, userID)
	if err != nil {
		if domain.ErrorCode(err) != domain.ENOTFOUND {
			s.logger.Warn("profile lookup failed, treating as free tier",
				"user_id", userID, "error", err)
		}
		return domain.FreeProfile(userID)
	}
	return p
}

func (s *profileService) GetByStripeCustomerID(ctx context.Context, customerID string) (*domain.Profile, error) {
	const op = "profile.get_by_stripe_customer"

	row, err := s.store.GetProfileByStripeCustomerID(ctx, customerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFound(op, "profile", customerID)
		}
		return nil, domain.Internal(err, op, "failed to load profile")
	}
	return profileFromRow(row), nil
}

func (s *profileService) UpdateMembership(ctx context.Context, params domain.MembershipUpdateParams) error {
	const op = "profile.update_membership"

	err := s.store.UpdateProfileMembership(ctx, repository.UpdateProfileMembershipParams{
		ID:               params.UserID,
		MembershipTier:   string(domain.ParseTier(string(params.Tier))),
		MembershipStatus: string(params.Status),
		SubscriptionID:   domain.ToNullString(params.SubscriptionID),
		RenewsAt:         domain.ToNullTime(params.RenewsAt),
	})
	if err != nil {
		return domain.Internal(err, op, "failed to update membership")
	}

	s.invalidate(ctx, params.UserID)

	s.logger.Info("Membership updated",
		"user_id", params.UserID,
		"tier", params.Tier,
		"status", params.Status,
	)
	return nil
}

func (s *profileService) LinkStripeCustomer(ctx context.Context, userID uuid.UUID, customerID string) error {
	const op = "profile.link_stripe_customer"

	if err := s.store.LinkProfileStripeCustomer(ctx, userID, customerID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.NotFound(op, "profile", userID.String())
		}
		return domain.Internal(err, op, "failed to link stripe customer")
	}
	s.invalidate(ctx, userID)

	s.logger.Info("Stripe customer linked", "user_id", userID, "customer_id", customerID)
	return nil
}

func (s *profileService) invalidate(ctx context.Context, userID uuid.UUID) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, profileCacheKey(userID)); err != nil {
		s.logger.Warn("failed to invalidate cached profile", "user_id", userID, "error", err)
	}
}

func (s *profileService) fromCache(ctx context.Context, userID uuid.UUID) (*domain.Profile, bool) {
	if s.cache == nil {
		return nil, false
	}

	b, err := s.cache.Get(ctx, profileCacheKey(userID))
	if err != nil {
		if errors.Is(err, cache.ErrMiss) {
			metrics.ProfileCache("miss")
		} else {
			metrics.ProfileCache("error")
			s.logger.Warn("profile cache read failed", "user_id", userID, "error", err)
		}
		return nil, false
	}

	var p domain.Profile
	if err := json.Unmarshal(b, &p); err != nil {
		metrics.ProfileCache("error")
		return nil, false
	}
	metrics.ProfileCache("hit")
	return &p, true
}

func (s *profileService) toCache(ctx context.Context, p *domain.Profile) {
	if s.cache == nil {
		return
	}
	b, err := json.Marshal(p)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, profileCacheKey(p.UserID), b, s.ttl); err != nil {
		s.logger.Warn("profile cache write failed", "user_id", p.UserID, "error", err)
	}
}

func profileFromRow(row repository.Profile) *domain.Profile {
	return &domain.Profile{
		UserID:           row.ID,
		Email:            domain.NullStringValue(row.Email),
		Tier:             domain.ParseTier(row.MembershipTier),
		Status:           domain.MembershipStatus(row.MembershipStatus),
		RenewsAt:         domain.NullTimeValue(row.RenewsAt),
		StripeCustomerID: domain.NullStringValue(row.StripeCustomerID),
		SubscriptionID:   domain.NullStringValue(row.SubscriptionID),
		UpdatedAt:        row.UpdatedAt,
	}
}
