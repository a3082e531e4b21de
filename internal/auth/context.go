// Package auth verifies Supabase sessions and carries the viewer through
// the request context.
//
// This package is designed to be imported by both middleware and handler
// packages without causing import cycles.
package auth

import (
	"context"

	"github.com/google/uuid"

	"github.com/DukeRupert/dealroom/internal/domain"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const (
	// viewerContextKey is the key used to store the signed-in viewer in context.
	viewerContextKey contextKey = "viewer"

	// viewerSlotContextKey holds a pointer that SetViewer fills in, so
	// middleware wrapping WithViewer can see who made the request.
	viewerSlotContextKey contextKey = "viewer_slot"
)

// Viewer is a signed-in visitor and their subscriber profile.
type Viewer struct {
	UserID  uuid.UUID
	Email   string
	Profile *domain.Profile
}

// GetViewer retrieves the signed-in viewer from the context.
//
// Returns nil for anonymous visitors.
//
// Usage:
//
//	viewer := auth.GetViewer(r.Context())
//	if viewer == nil {
//	    // Anonymous visitor
//	}
func GetViewer(ctx context.Context) *Viewer {
	viewer, ok := ctx.Value(viewerContextKey).(*Viewer)
	if !ok {
		return nil
	}
	return viewer
}

// GetProfile returns the viewer's profile, or nil for anonymous visitors.
func GetProfile(ctx context.Context) *domain.Profile {
	if v := GetViewer(ctx); v != nil {
		return v.Profile
	}
	return nil
}

// SignedIn reports whether the context carries a verified session.
func SignedIn(ctx context.Context) bool {
	return GetViewer(ctx) != nil
}

// SetViewer stores the viewer in the context.
//
// This is typically called by authentication middleware after verifying
// an access token.
func SetViewer(ctx context.Context, viewer *Viewer) context.Context {
	if slot, ok := ctx.Value(viewerSlotContextKey).(**Viewer); ok && slot != nil {
		*slot = viewer
	}
	return context.WithValue(ctx, viewerContextKey, viewer)
}

// WithViewerSlot returns a context whose descendants report the viewer
// back through slot once SetViewer runs.
func WithViewerSlot(ctx context.Context, slot **Viewer) context.Context {
	return context.WithValue(ctx, viewerSlotContextKey, slot)
}
