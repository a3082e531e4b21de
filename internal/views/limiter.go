package views

import (
	"log/slog"
	"slices"
)

// DefaultAnonymousViewLimit is the number of distinct properties a visitor
// without an account may open.
const DefaultAnonymousViewLimit = 5

// Limiter caps anonymous property detail views. Signed-in visitors bypass it
// regardless of tier, and their device set is never read.
//
// Ids are write-once: a viewed property stays in the set for the life of the
// store, and re-viewing it is free.
type Limiter struct {
	store    Store[[]string]
	signedIn bool
	limit    int
	logger   *slog.Logger

	viewed []string
}

// NewLimiter loads the recorded set from store. Load failures (missing,
// corrupt or tampered state) start from an empty set.
func NewLimiter(store Store[[]string], signedIn bool, limit int, logger *slog.Logger) *Limiter {
	if limit <= 0 {
		limit = DefaultAnonymousViewLimit
	}

	l := &Limiter{
		store:    store,
		signedIn: signedIn,
		limit:    limit,
		logger:   logger,
	}

	if signedIn {
		return l
	}

	ids, err := store.Load()
	if err != nil {
		logger.Debug("anonymous view set unreadable, starting fresh", "error", err)
		ids = nil
	}

	for _, id := range ids {
		if id != "" && !slices.Contains(l.viewed, id) {
			l.viewed = append(l.viewed, id)
		}
	}

	return l
}

// CanView reports whether the property may be shown.
func (l *Limiter) CanView(propertyID string) bool {
	if l.signedIn {
		return true
	}
	if slices.Contains(l.viewed, propertyID) {
		return true
	}
	return len(l.viewed) < l.limit
}

// TrackView records a view. Repeat views of a recorded id are no-ops. It
// returns true when the id was newly recorded.
//
// The caller must check CanView first; TrackView does not enforce the cap.
func (l *Limiter) TrackView(propertyID string) bool {
	if l.signedIn || propertyID == "" {
		return false
	}
	if slices.Contains(l.viewed, propertyID) {
		return false
	}

	l.viewed = append(l.viewed, propertyID)

	// Persist failures only cost durability across reloads.
	if err := l.store.Save(slices.Clone(l.viewed)); err != nil {
		l.logger.Debug("failed to persist anonymous view set", "error", err)
	}
	return true
}

// RemainingViews returns the free views left, never negative.
func (l *Limiter) RemainingViews() int {
	if remaining := l.limit - len(l.viewed); remaining > 0 {
		return remaining
	}
	return 0
}

// Viewed returns a copy of the recorded ids.
func (l *Limiter) Viewed() []string {
	return slices.Clone(l.viewed)
}
