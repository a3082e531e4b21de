// Package domain contains core business types and interfaces.
//
// This file defines usage metering types for calculator tools and AI queries.
package domain

import "fmt"

// UsageNamespace groups metered features that share a limit policy.
type UsageNamespace string

const (
	// UsageNamespaceTool meters each calculator tool independently.
	UsageNamespaceTool UsageNamespace = "tool"

	// UsageNamespaceAI meters every AI feature against one shared counter.
	UsageNamespaceAI UsageNamespace = "ai"
)

// AIQueryType is the single feature name used for all AI queries.
const AIQueryType = "chat"

// UsageKey identifies one metered counter.
type UsageKey struct {
	Namespace UsageNamespace
	Feature   string
}

// ToolKey returns the counter key for a calculator tool.
func ToolKey(tool string) UsageKey {
	return UsageKey{Namespace: UsageNamespaceTool, Feature: tool}
}

// AIKey returns the shared AI counter key.
func AIKey() UsageKey {
	return UsageKey{Namespace: UsageNamespaceAI, Feature: AIQueryType}
}

// ParseUsageKey validates a namespace/feature pair coming from a request.
// AI features always collapse onto the shared "chat" counter.
func ParseUsageKey(namespace, feature string) (UsageKey, error) {
	switch UsageNamespace(namespace) {
	case UsageNamespaceTool:
		if feature == "" || len(feature) > 64 {
			return UsageKey{}, Invalid("usage.parse_key", "tool name must be between 1 and 64 characters")
		}
		return ToolKey(feature), nil
	case UsageNamespaceAI:
		return AIKey(), nil
	default:
		return UsageKey{}, Invalid("usage.parse_key", fmt.Sprintf("unknown usage namespace %q", namespace))
	}
}

func (k UsageKey) String() string {
	return string(k.Namespace) + ":" + k.Feature
}

// UsageLimits holds the free quotas for metered namespaces.
type UsageLimits struct {
	ToolUsesPerTool int
	AIQueries       int
}

// DefaultUsageLimits are the quotas granted to metered tiers.
var DefaultUsageLimits = UsageLimits{
	ToolUsesPerTool: 3,
	AIQueries:       5,
}

// LimitFor returns the quota for a counter key.
func (l UsageLimits) LimitFor(key UsageKey) int64 {
	switch key.Namespace {
	case UsageNamespaceAI:
		return int64(l.AIQueries)
	case UsageNamespaceTool:
		return int64(l.ToolUsesPerTool)
	default:
		return 0
	}
}

// UnlimitedTiers are exempt from metering. Membership is checked exactly,
// so tiers ranked above elite are metered unless listed here.
var UnlimitedTiers = map[Tier]bool{
	TierInvestor: true,
	TierElite:    true,
}

// UsageSummary represents current usage against a quota.
type UsageSummary struct {
	Key         UsageKey
	Used        int64
	Limit       int64
	IsUnlimited bool
}

// Remaining returns how many uses are left, never negative.
// Unlimited summaries report -1.
func (s *UsageSummary) Remaining() int64 {
	if s.IsUnlimited {
		return -1
	}
	if s.Used >= s.Limit {
		return 0
	}
	return s.Limit - s.Used
}

// CanUse reports whether another use would be granted.
func (s *UsageSummary) CanUse() bool {
	return s.IsUnlimited || s.Used < s.Limit
}
