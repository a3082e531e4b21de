// Package access decides whether a viewer may see tier-gated content.
//
// Decisions are derived, never stored: each request is evaluated fresh from
// the viewer's session, their subscriber profile, and the tier the content
// requires.
package access

import (
	"log/slog"
	"net/url"
	"strings"

	"github.com/DukeRupert/dealroom/internal/domain"
	"github.com/DukeRupert/dealroom/internal/metrics"
)

// Outcome is the result of a gate decision.
type Outcome string

const (
	OutcomeAllow           Outcome = "allow"
	OutcomeRedirectAuth    Outcome = "redirect_auth"
	OutcomeRedirectUpgrade Outcome = "redirect_upgrade"
)

// Reasons reported with a decision.
const (
	ReasonOverride     = "override"
	ReasonPublic       = "public"
	ReasonSignedOut    = "signed_out"
	ReasonAccountPath  = "account_path"
	ReasonExpired      = "expired"
	ReasonTierTooLow   = "tier_too_low"
	ReasonTierAccepted = "tier_ok"
)

// Default policy values.
const (
	DefaultAuthPath    = "/login"
	DefaultUpgradePath = "/pricing"
)

// DefaultAccountPaths stay reachable for members whose subscription expired,
// so they can manage or renew it.
var DefaultAccountPaths = []string{"/settings", "/profile", "/upgrade", "/checkout", "/pricing"}

// Request is the input to a decision.
type Request struct {
	// SignedIn is true when the viewer has a verified session.
	SignedIn bool

	// Profile is the viewer's subscriber profile. A signed-in viewer with a
	// nil profile is treated as free and active.
	Profile *domain.Profile

	// Path is the content being requested.
	Path string

	// RawQuery is carried into the sign-in return location. It plays no
	// part in the decision.
	RawQuery string

	// Required is the minimum tier for the content.
	Required domain.Tier
}

// Decision is the outcome of Decide.
type Decision struct {
	Outcome  Outcome     `json:"outcome"`
	Location string      `json:"location,omitempty"`
	Reason   string      `json:"reason"`
	Tier     domain.Tier `json:"tier"`
	Required domain.Tier `json:"required"`
}

// Allowed reports whether the content may be shown.
func (d Decision) Allowed() bool {
	return d.Outcome == OutcomeAllow
}

// Policy configures redirect targets and the expired-member allow-list.
type Policy struct {
	AuthPath     string
	UpgradePath  string
	AccountPaths []string
}

// DefaultPolicy returns the policy used when none is configured.
func DefaultPolicy() Policy {
	return Policy{
		AuthPath:     DefaultAuthPath,
		UpgradePath:  DefaultUpgradePath,
		AccountPaths: DefaultAccountPaths,
	}
}

// Gate evaluates access decisions.
type Gate struct {
	policy   Policy
	override func() (domain.Tier, bool)
	logger   *slog.Logger
}

// NewGate creates a Gate. Empty policy fields take their defaults.
func NewGate(policy Policy, logger *slog.Logger) *Gate {
	if policy.AuthPath == "" {
		policy.AuthPath = DefaultAuthPath
	}
	if policy.UpgradePath == "" {
		policy.UpgradePath = DefaultUpgradePath
	}
	if policy.AccountPaths == nil {
		policy.AccountPaths = DefaultAccountPaths
	}

	g := &Gate{
		policy:   policy,
		override: overrideTier,
		logger:   logger,
	}
	if tier, ok := g.override(); ok {
		logger.Warn("access gate override active", "tier", tier)
	}
	return g
}

// Decide returns the access decision for req.
func (g *Gate) Decide(req Request) Decision {
	d := g.decide(req)
	metrics.GateDecision(string(d.Outcome), string(d.Required))
	if !d.Allowed() {
		g.logger.Debug("access denied",
			"path", req.Path,
			"reason", d.Reason,
			"tier", d.Tier,
			"required", d.Required,
		)
	}
	return d
}

func (g *Gate) decide(req Request) Decision {
	required := domain.ParseTier(string(req.Required))

	if tier, ok := g.override(); ok {
		// A synthesized profile is active, so only the rank check applies.
		return g.compare(tier, required, ReasonOverride)
	}

	if !req.SignedIn {
		if required == domain.TierFree {
			return Decision{Outcome: OutcomeAllow, Reason: ReasonPublic, Tier: domain.TierFree, Required: required}
		}
		return Decision{
			Outcome:  OutcomeRedirectAuth,
			Location: g.authLocation(req.Path, req.RawQuery),
			Reason:   ReasonSignedOut,
			Tier:     domain.TierFree,
			Required: required,
		}
	}

	tier := req.Profile.EffectiveTier()

	if req.Profile.IsExpired() && tier != domain.TierFree {
		if g.isAccountPath(req.Path) {
			return Decision{Outcome: OutcomeAllow, Reason: ReasonAccountPath, Tier: tier, Required: required}
		}
		if required != domain.TierFree {
			return Decision{
				Outcome:  OutcomeRedirectUpgrade,
				Location: g.policy.UpgradePath + "?reason=expired",
				Reason:   ReasonExpired,
				Tier:     tier,
				Required: required,
			}
		}
	}

	return g.compare(tier, required, ReasonTierAccepted)
}

func (g *Gate) compare(tier, required domain.Tier, reason string) Decision {
	if tier.AtLeast(required) {
		return Decision{Outcome: OutcomeAllow, Reason: reason, Tier: tier, Required: required}
	}
	return Decision{
		Outcome:  OutcomeRedirectUpgrade,
		Location: g.policy.UpgradePath + "?required=" + url.QueryEscape(required.String()),
		Reason:   ReasonTierTooLow,
		Tier:     tier,
		Required: required,
	}
}

func (g *Gate) authLocation(path, rawQuery string) string {
	if path == "" {
		return g.policy.AuthPath
	}
	if rawQuery != "" {
		path += "?" + rawQuery
	}
	return g.policy.AuthPath + "?return_to=" + url.QueryEscape(path)
}

func (g *Gate) isAccountPath(path string) bool {
	for _, p := range g.policy.AccountPaths {
		if matchPrefix(path, p) {
			return true
		}
	}
	return false
}

// matchPrefix reports whether path equals prefix or lies beneath it.
func matchPrefix(path, prefix string) bool {
	if prefix == "/" {
		return true
	}
	prefix = strings.TrimSuffix(prefix, "/")
	return path == prefix || strings.HasPrefix(path, prefix+"/")
}
