package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func okHandler(called *bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*called = true
		w.WriteHeader(http.StatusOK)
	})
}

func TestCORSAllowsListedOrigin(t *testing.T) {
	called := false
	req := httptest.NewRequest(http.MethodPost, "/letters", nil)
	req.Header.Set("Origin", "https://whisperbox.app")
	rec := httptest.NewRecorder()

	CORS([]string{" https://whisperbox.app/ "})(okHandler(&called)).ServeHTTP(rec, req)

	if !called || rec.Code != http.StatusOK {
		t.Fatalf("expected handler to run, got called=%v code=%d", called, rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://whisperbox.app" {
		t.Fatalf("expected allow origin header, got %q", got)
	}
	if got := rec.Header().Get("Access-Control-Expose-Headers"); got != corsExposedHeaders {
		t.Fatalf("expected exposed headers, got %q", got)
	}
}

func TestCORSUnknownOrigin(t *testing.T) {
	called := false
	req := httptest.NewRequest(http.MethodGet, "/crisis/categories", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec := httptest.NewRecorder()

	CORS([]string{"https://whisperbox.app"})(okHandler(&called)).ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("expected no allow origin header, got %q", got)
	}
	if !called {
		t.Fatal("simple requests still reach the handler")
	}

	called = false
	preflight := httptest.NewRequest(http.MethodOptions, "/letters", nil)
	preflight.Header.Set("Origin", "https://evil.example")
	preflight.Header.Set("Access-Control-Request-Method", "POST")
	rec = httptest.NewRecorder()
	CORS([]string{"https://whisperbox.app"})(okHandler(&called)).ServeHTTP(rec, preflight)
	if called || rec.Code != http.StatusForbidden {
		t.Fatalf("expected forbidden preflight, got called=%v code=%d", called, rec.Code)
	}
}

func TestCORSWildcardPreflight(t *testing.T) {
	called := false
	req := httptest.NewRequest(http.MethodOptions, "/letters", nil)
	req.Header.Set("Origin", "https://preview.whisperbox.app")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rec := httptest.NewRecorder()

	CORS([]string{"*"})(okHandler(&called)).ServeHTTP(rec, req)

	if called {
		t.Fatal("expected handler to not be called on preflight")
	}
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected status %d, got %d", http.StatusNoContent, rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://preview.whisperbox.app" {
		t.Fatalf("expected origin echoed, got %q", got)
	}
}
