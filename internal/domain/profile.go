// Package domain contains core business types and interfaces.
//
// This file defines the subscriber profile. Profiles are written only by the
// billing webhooks; the access and metering code treats them as read-only.
package domain

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// MembershipStatus is the billing state of a membership.
type MembershipStatus string

const (
	MembershipStatusActive   MembershipStatus = "active"
	MembershipStatusExpired  MembershipStatus = "expired"
	MembershipStatusPastDue  MembershipStatus = "past_due"
	MembershipStatusInactive MembershipStatus = "inactive"
)

// Profile is the subscriber profile attached to a signed-in session.
type Profile struct {
	UserID           uuid.UUID
	Email            string
	Tier             Tier
	Status           MembershipStatus
	RenewsAt         *time.Time
	StripeCustomerID string
	SubscriptionID   string
	UpdatedAt        time.Time
}

// EffectiveTier returns the profile tier, or free for a nil profile.
func (p *Profile) EffectiveTier() Tier {
	if p == nil {
		return TierFree
	}
	return ParseTier(string(p.Tier))
}

// IsExpired returns true when the membership has lapsed.
func (p *Profile) IsExpired() bool {
	return p != nil && p.Status == MembershipStatusExpired
}

// FreeProfile builds the profile used when a session exists but no profile
// row could be resolved.
func FreeProfile(userID uuid.UUID) *Profile {
	return &Profile{
		UserID: userID,
		Tier:   TierFree,
		Status: MembershipStatusActive,
	}
}

// MembershipUpdateParams contains the fields the billing webhook may change.
type MembershipUpdateParams struct {
	UserID         uuid.UUID
	Tier           Tier
	Status         MembershipStatus
	SubscriptionID string
	RenewsAt       *time.Time
}

// =============================================================================
// Conversion helpers from repository types
// =============================================================================

// NullStringValue safely extracts a string from sql.NullString.
func NullStringValue(ns sql.NullString) string {
	if ns.Valid {
		return ns.String
	}
	return ""
}

// NullTimeValue safely extracts a time pointer from sql.NullTime.
func NullTimeValue(nt sql.NullTime) *time.Time {
	if nt.Valid {
		return &nt.Time
	}
	return nil
}

// ToNullString converts a string to sql.NullString.
func ToNullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{Valid: false}
	}
	return sql.NullString{String: s, Valid: true}
}

// ToNullTime converts a time pointer to sql.NullTime.
func ToNullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{Valid: false}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
