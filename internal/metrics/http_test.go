package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/api/properties/dxb-1042/views", "/api/properties/{id}/views"},
		{"/api/usage/tool/cap-rate", "/api/usage/tool/{feature}"},
		{"/api/usage/ai/chat", "/api/usage/ai/{feature}"},
		{"/api/access", "/api/access"},
		{"/api/me", "/api/me"},
		{"/webhooks/stripe", "/webhooks/stripe"},
		{"/health", "/health"},
		{"/neighborhoods/dubai-marina", "/{frontend}"},
		{"/", "/{frontend}"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := normalizePath(tt.path); got != tt.want {
				t.Errorf("normalizePath(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}

func TestMiddleware_CapturesStatus(t *testing.T) {
	handler := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
	}))

	req := httptest.NewRequest("POST", "/api/usage/ai/chat", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusPaymentRequired {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusPaymentRequired)
	}
}
