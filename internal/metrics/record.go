package metrics

// GateDecision records one access gate outcome.
func GateDecision(outcome, requiredTier string) {
	GateDecisionsTotal.WithLabelValues(outcome, requiredTier).Inc()
}

// UsageTracked records a metering attempt.
func UsageTracked(namespace, result string) {
	UsageTrackedTotal.WithLabelValues(namespace, result).Inc()
}

// AnonymousView records an anonymous view check.
func AnonymousView(result string) {
	AnonymousViewsTotal.WithLabelValues(result).Inc()
}

// ProfileCache records a profile cache lookup.
func ProfileCache(result string) {
	ProfileCacheTotal.WithLabelValues(result).Inc()
}

// WebhookEvent records a processed webhook event.
func WebhookEvent(eventType, result string) {
	WebhookEventsTotal.WithLabelValues(eventType, result).Inc()
}
