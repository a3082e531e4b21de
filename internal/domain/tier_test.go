package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTier_Rank(t *testing.T) {
	tests := []struct {
		tier Tier
		want int
	}{
		{TierFree, 0},
		{TierInvestor, 1},
		{TierElite, 2},
		{TierPrivate, 3},
		{Tier(""), 0},
		{Tier("platinum"), 0},
		{Tier("Investor"), 0}, // not normalized, never elevated
	}

	for _, tt := range tests {
		t.Run(string(tt.tier), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.tier.Rank())
		})
	}
}

func TestTier_AtLeastMatchesRank(t *testing.T) {
	for _, a := range Tiers {
		for _, b := range Tiers {
			assert.Equal(t, a.Rank() >= b.Rank(), a.AtLeast(b), "%s >= %s", a, b)
		}
	}
}

func TestTier_TotalOrder(t *testing.T) {
	for _, a := range Tiers {
		// reflexive
		assert.True(t, a.AtLeast(a), "%s should be at least itself", a)

		for _, b := range Tiers {
			// total: any two tiers are comparable
			assert.True(t, a.AtLeast(b) || b.AtLeast(a), "%s and %s not comparable", a, b)

			// antisymmetric on rank
			if a.AtLeast(b) && b.AtLeast(a) {
				assert.Equal(t, a.Rank(), b.Rank())
			}

			for _, c := range Tiers {
				if a.AtLeast(b) && b.AtLeast(c) {
					assert.True(t, a.AtLeast(c), "transitivity broken for %s, %s, %s", a, b, c)
				}
			}
		}
	}
}

func TestTier_UnknownNeverElevated(t *testing.T) {
	for _, s := range []string{"", "admin", "owner", "null", "undefined", "FREE!", "elite "} {
		tier := Tier(s)
		assert.Equal(t, TierFree.Rank(), tier.Rank(), "raw %q", s)
		assert.False(t, tier.AtLeast(TierInvestor), "raw %q", s)
	}
}

func TestParseTier(t *testing.T) {
	tests := []struct {
		in   string
		want Tier
	}{
		{"free", TierFree},
		{"investor", TierInvestor},
		{" Elite ", TierElite},
		{"PRIVATE", TierPrivate},
		{"", TierFree},
		{"gold", TierFree},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseTier(tt.in))
		})
	}
}

func TestTier_DisplayName(t *testing.T) {
	assert.Equal(t, "Investor", TierInvestor.DisplayName())
	assert.Equal(t, "Free", Tier("bogus").DisplayName())
}

func TestProfile_EffectiveTier(t *testing.T) {
	var nilProfile *Profile
	assert.Equal(t, TierFree, nilProfile.EffectiveTier())
	assert.False(t, nilProfile.IsExpired())

	p := &Profile{Tier: Tier("Elite")}
	assert.Equal(t, TierElite, p.EffectiveTier())
}
