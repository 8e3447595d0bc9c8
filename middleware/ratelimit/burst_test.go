package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"syriahub-gateway/middleware/identity"
	"syriahub-gateway/middleware/ratelimit/infra"
)

func TestBurstMiddleware_AllowsThenRejectsSameKey(t *testing.T) {
	store := infra.NewBurstStore(0.02, 1)

	calls := 0
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusOK)
	})
	h := BurstMiddleware(BurstOptions{Store: store})(next)

	// 1) primeira passa
	r1 := httptest.NewRequest(http.MethodGet, "http://example/api/posts", nil)
	r1.Header.Set("X-Real-IP", "10.0.0.1")
	w1 := httptest.NewRecorder()
	h.ServeHTTP(w1, r1)
	if w1.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w1.Code)
	}

	// 2) segunda deve bloquear (burst=1 e rps bem baixo)
	r2 := httptest.NewRequest(http.MethodGet, "http://example/api/posts", nil)
	r2.Header.Set("X-Real-IP", "10.0.0.1")
	w2 := httptest.NewRecorder()
	h.ServeHTTP(w2, r2)
	if w2.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", w2.Code)
	}
	if got := w2.Header().Get("Retry-After"); got == "" || got == "0" {
		t.Fatalf("expected positive Retry-After, got %q", got)
	}

	// 3) outra chave não é afetada
	r3 := httptest.NewRequest(http.MethodGet, "http://example/api/posts", nil)
	r3.Header.Set("X-Real-IP", "10.0.0.2")
	w3 := httptest.NewRecorder()
	h.ServeHTTP(w3, r3)
	if w3.Code != http.StatusOK {
		t.Fatalf("expected 200 for another key, got %d", w3.Code)
	}
	if calls != 2 {
		t.Fatalf("expected next to be called twice, got %d", calls)
	}
}

func TestDefaultKeyFunc(t *testing.T) {
	kf := DefaultKeyFunc("X-Api-Key")

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("X-Real-IP", "10.0.0.9")
	if got := kf(r); got != "ip:10.0.0.9" {
		t.Fatalf("expected ip key, got %q", got)
	}

	r = r.WithContext(identity.WithUserID(r.Context(), "u1"))
	if got := kf(r); got != "user:u1" {
		t.Fatalf("expected user key, got %q", got)
	}

	r.Header.Set("X-Api-Key", " abc ")
	if got := kf(r); got != "key:abc" {
		t.Fatalf("expected api key, got %q", got)
	}
}

func TestBurstMiddleware_NoStoreIsNoop(t *testing.T) {
	calls := 0
	h := BurstMiddleware(BurstOptions{})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { calls++ }))
	for i := 0; i < 3; i++ {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
}
