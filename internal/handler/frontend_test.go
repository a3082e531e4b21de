package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"testing/fstest"
)

func testFrontend() *FrontendHandler {
	return NewFrontendHandler(fstest.MapFS{
		"index.html":         {Data: []byte("<html>app</html>")},
		"assets/app-1a2b.js": {Data: []byte("console.log(1)")},
		"robots.txt":         {Data: []byte("User-agent: *")},
	}, discardLogger())
}

func TestFrontendHandler_ServesFiles(t *testing.T) {
	rec := httptest.NewRecorder()
	testFrontend().ServeHTTP(rec, httptest.NewRequest("GET", "/assets/app-1a2b.js", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Header().Get("Cache-Control"), "immutable") {
		t.Errorf("assets should be cached, got %q", rec.Header().Get("Cache-Control"))
	}
}

func TestFrontendHandler_FallsBackToIndex(t *testing.T) {
	for _, p := range []string{"/", "/deals/42", "/neighborhoods"} {
		rec := httptest.NewRecorder()
		testFrontend().ServeHTTP(rec, httptest.NewRequest("GET", p, nil))

		if rec.Code != http.StatusOK || rec.Body.String() != "<html>app</html>" {
			t.Errorf("%s: status = %d body = %q", p, rec.Code, rec.Body.String())
		}
		if rec.Header().Get("Cache-Control") != "no-cache" {
			t.Errorf("%s: index should not be cached", p)
		}
	}
}

func TestFrontendHandler_MissingAssetIs404(t *testing.T) {
	rec := httptest.NewRecorder()
	testFrontend().ServeHTTP(rec, httptest.NewRequest("GET", "/assets/gone.js", nil))

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestFrontendHandler_RejectsPost(t *testing.T) {
	rec := httptest.NewRecorder()
	testFrontend().ServeHTTP(rec, httptest.NewRequest("POST", "/", nil))

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", rec.Code)
	}
}

func TestHealthHandler(t *testing.T) {
	mux := http.NewServeMux()
	NewHealthHandler(map[string]HealthCheck{
		"database": func(ctx context.Context) error { return nil },
	}, discardLogger()).RegisterRoutes(mux)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("GET", "/health", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}

	mux = http.NewServeMux()
	NewHealthHandler(map[string]HealthCheck{
		"cache": func(ctx context.Context) error { return errors.New("down") },
	}, discardLogger()).RegisterRoutes(mux)

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("GET", "/health", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"cache":"unavailable"`) {
		t.Errorf("body = %s", rec.Body.String())
	}
}
