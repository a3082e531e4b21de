// Package domain contains core business types and interfaces.
//
// This file defines membership tiers and their ordering.
package domain

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Tier is a membership tier. The set is closed; use ParseTier to convert
// untrusted strings.
type Tier string

const (
	TierFree     Tier = "free"
	TierInvestor Tier = "investor"
	TierElite    Tier = "elite"
	TierPrivate  Tier = "private"
)

// Tiers lists every tier in ascending rank order.
var Tiers = []Tier{TierFree, TierInvestor, TierElite, TierPrivate}

// ParseTier normalizes s and maps it onto a known tier.
// Empty or unrecognized values resolve to TierFree so that an unknown tier
// never grants elevated access.
func ParseTier(s string) Tier {
	switch t := Tier(strings.ToLower(strings.TrimSpace(s))); t {
	case TierFree, TierInvestor, TierElite, TierPrivate:
		return t
	default:
		return TierFree
	}
}

// Rank returns the integer ordering value of the tier.
func (t Tier) Rank() int {
	switch t {
	case TierInvestor:
		return 1
	case TierElite:
		return 2
	case TierPrivate:
		return 3
	case TierFree:
		return 0
	default:
		return 0
	}
}

// AtLeast reports whether t ranks at or above required.
func (t Tier) AtLeast(required Tier) bool {
	return t.Rank() >= required.Rank()
}

// Valid reports whether t is one of the four known tiers as written.
func (t Tier) Valid() bool {
	switch t {
	case TierFree, TierInvestor, TierElite, TierPrivate:
		return true
	}
	return false
}

// DisplayName returns the tier name formatted for display ("Investor").
func (t Tier) DisplayName() string {
	return cases.Title(language.English).String(string(ParseTier(string(t))))
}

func (t Tier) String() string {
	return string(t)
}
