package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DukeRupert/dealroom/internal/access"
	"github.com/DukeRupert/dealroom/internal/domain"
)

func serveAccess(req *http.Request) *httptest.ResponseRecorder {
	h := NewAccessHandler(
		access.NewGate(access.DefaultPolicy(), discardLogger()),
		access.NewRouteTable(access.DefaultRoutes...),
		discardLogger(),
	)
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestAccessHandler_UsesRouteTable(t *testing.T) {
	rec := serveAccess(httptest.NewRequest("GET", "/api/access?path=/deals/1", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var d access.Decision
	if err := json.NewDecoder(rec.Body).Decode(&d); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if d.Outcome != access.OutcomeRedirectAuth || d.Required != domain.TierElite {
		t.Errorf("unexpected decision: %+v", d)
	}
}

func TestAccessHandler_ExplicitRequiredTier(t *testing.T) {
	req := withViewer(httptest.NewRequest("GET", "/api/access?path=/x&required=investor", nil), domain.TierElite)
	rec := serveAccess(req)

	var d access.Decision
	if err := json.NewDecoder(rec.Body).Decode(&d); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !d.Allowed() {
		t.Errorf("elite should reach investor content: %+v", d)
	}
}

func TestAccessHandler_RejectsUnknownTier(t *testing.T) {
	rec := serveAccess(httptest.NewRequest("GET", "/api/access?path=/x&required=platinum", nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestAccessHandler_Preview(t *testing.T) {
	req := withViewer(httptest.NewRequest("GET", "/api/access?path=/deals&total=12&preview=3", nil), domain.TierFree)
	rec := serveAccess(req)

	var p access.Preview
	if err := json.NewDecoder(rec.Body).Decode(&p); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !p.Locked || p.Visible != 3 || !p.Blur {
		t.Errorf("unexpected preview: %+v", p)
	}
	if p.Location != "/pricing?required=elite" {
		t.Errorf("location = %q", p.Location)
	}
}

func TestMeHandler(t *testing.T) {
	mux := http.NewServeMux()
	usage := newMockUsageService()
	usage.unlimited = true
	NewMeHandler(usage, discardLogger()).RegisterRoutes(mux)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("GET", "/api/me", nil))
	var anon meResponse
	if err := json.NewDecoder(rec.Body).Decode(&anon); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if anon.SignedIn || anon.Tier != domain.TierFree || anon.Unlimited {
		t.Errorf("anonymous response: %+v", anon)
	}

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, withViewer(httptest.NewRequest("GET", "/api/me", nil), domain.TierElite))
	var me meResponse
	if err := json.NewDecoder(rec.Body).Decode(&me); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !me.SignedIn || me.Tier != domain.TierElite || me.TierName != "Elite" || !me.Unlimited {
		t.Errorf("signed-in response: %+v", me)
	}
}
