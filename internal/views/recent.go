package views

import (
	"errors"
	"log/slog"
	"time"
)

const (
	// RecentMaxAge is how long a recently viewed entry is kept.
	RecentMaxAge = 30 * 24 * time.Hour

	// RecentMaxEntries caps the list so the cookie stays small.
	RecentMaxEntries = 20
)

// RecentEntry is one recently viewed property.
type RecentEntry struct {
	PropertyID string    `json:"property_id"`
	ViewedAt   time.Time `json:"viewed_at"`
}

// Recent is the newest-first list of recently viewed properties.
type Recent struct {
	store  Store[[]RecentEntry]
	now    func() time.Time
	logger *slog.Logger

	entries []RecentEntry
}

// NewRecent loads the list and drops entries older than RecentMaxAge.
func NewRecent(store Store[[]RecentEntry], logger *slog.Logger) *Recent {
	return newRecent(store, time.Now, logger)
}

func newRecent(store Store[[]RecentEntry], now func() time.Time, logger *slog.Logger) *Recent {
	r := &Recent{
		store:  store,
		now:    now,
		logger: logger,
	}

	entries, err := store.Load()
	if err != nil {
		logger.Debug("recently viewed list unreadable, starting fresh", "error", err)
		entries = nil
	}

	cutoff := now().Add(-RecentMaxAge)
	for _, e := range entries {
		if e.PropertyID == "" || e.ViewedAt.Before(cutoff) {
			continue
		}
		r.entries = append(r.entries, e)
	}

	return r
}

// Add moves propertyID to the front of the list and persists it.
func (r *Recent) Add(propertyID string) {
	if propertyID == "" {
		return
	}

	next := make([]RecentEntry, 0, len(r.entries)+1)
	next = append(next, RecentEntry{PropertyID: propertyID, ViewedAt: r.now().UTC()})
	for _, e := range r.entries {
		if e.PropertyID != propertyID {
			next = append(next, e)
		}
	}
	if len(next) > RecentMaxEntries {
		next = next[:RecentMaxEntries]
	}

	// Long ids can push the list past the cookie size; drop the oldest
	// entries until it fits.
	for {
		err := r.store.Save(next)
		if errors.Is(err, ErrValueTooLarge) && len(next) > 1 {
			next = next[:len(next)-1]
			continue
		}
		if err != nil {
			r.logger.Debug("failed to persist recently viewed list", "error", err, "entries", len(next))
		}
		break
	}
	r.entries = next
}

// Entries returns the list, newest first.
func (r *Recent) Entries() []RecentEntry {
	out := make([]RecentEntry, len(r.entries))
	copy(out, r.entries)
	return out
}
