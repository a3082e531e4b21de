package service

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/DukeRupert/dealroom/internal/domain"
)

// Meter is a session-scoped view of one usage counter. It caches the count
// after the first read and bumps the cached value as soon as a use is
// recorded, so a second use in the same session sees the first one before
// any refetch.
type Meter struct {
	usage UsageService
	key   domain.UsageKey
	limit int64

	mu        sync.Mutex
	profile   *domain.Profile
	unlimited bool
	count     int64
	loaded    bool
}

// NewMeter creates a Meter for profile and key. limit should match the
// UsageService configuration.
func NewMeter(usage UsageService, profile *domain.Profile, key domain.UsageKey, limit int64) *Meter {
	m := &Meter{
		usage: usage,
		key:   key,
		limit: limit,
	}
	m.SetProfile(profile)
	return m
}

// SetProfile swaps the profile and re-evaluates the unlimited flag, so an
// upgrade unlocks immediately. The cached count is dropped when the user
// changes.
func (m *Meter) SetProfile(profile *domain.Profile) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.profile == nil || profile == nil || m.profile.UserID != profile.UserID {
		m.loaded = false
		m.count = 0
	}
	m.profile = profile
	m.unlimited = m.usage.IsUnlimited(profile)
}

// Unlimited reports the cached unlimited flag.
func (m *Meter) Unlimited() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.unlimited
}

// Refresh reloads the count from the store.
func (m *Meter) Refresh(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.refreshLocked(ctx)
}

func (m *Meter) refreshLocked(ctx context.Context) error {
	if m.profile == nil || m.unlimited {
		m.loaded = true
		return nil
	}
	count, err := m.usage.GetUsage(ctx, m.profile.UserID, m.key)
	if err != nil {
		// Keep metering open on read failure.
		m.count = 0
		m.loaded = true
		return err
	}
	m.count = count
	m.loaded = true
	return nil
}

// Remaining returns uses left, or -1 when unlimited.
func (m *Meter) Remaining(ctx context.Context) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.unlimited {
		return -1
	}
	if !m.loaded {
		_ = m.refreshLocked(ctx)
	}
	if m.count >= m.limit {
		return 0
	}
	return m.limit - m.count
}

// Used returns the cached count, loading it on first call.
func (m *Meter) Used(ctx context.Context) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.loaded {
		_ = m.refreshLocked(ctx)
	}
	return m.count
}

// Limit returns the quota the meter enforces.
func (m *Meter) Limit() int64 {
	return m.limit
}

// CanUse reports whether another use would be granted based on cached state.
func (m *Meter) CanUse(ctx context.Context) bool {
	m.mu.Lock()
	signedIn := m.profile != nil
	m.mu.Unlock()

	return signedIn && m.Remaining(ctx) != 0
}

// Use records one use and updates the cached count on success.
func (m *Meter) Use(ctx context.Context, metadata json.RawMessage) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ok, err := m.usage.TrackUsage(ctx, m.profile, m.key, metadata)
	if err != nil {
		return false, err
	}
	if !ok {
		// The store saw an exhausted counter even if the cache lags behind
		if m.profile != nil && !m.unlimited && m.count < m.limit {
			m.count = m.limit
			m.loaded = true
		}
		return false, nil
	}
	if !m.unlimited {
		if !m.loaded {
			// The store already holds this use.
			_ = m.refreshLocked(ctx)
		} else {
			m.count++
		}
	}
	return true, nil
}
