package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestGetLatestDraft(t *testing.T) {
	store := newTestStore(t)
	base := time.Date(2026, 5, 14, 10, 0, 0, 0, time.UTC)
	seedRun(t, store, base, "old draft")
	seedRun(t, store, base.Add(time.Hour), "new draft")

	r := httptest.NewRequest(http.MethodGet, "/api/draft/latest", nil)
	w := httptest.NewRecorder()
	GetLatestDraft(store).ServeHTTP(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("got status %d, want %d", w.Code, http.StatusOK)
	}

	var body map[string]any
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if body["draft"] != "new draft" {
		t.Errorf("draft = %q, want %q", body["draft"], "new draft")
	}
	if body["provider"] != "modal" {
		t.Errorf("provider = %q, want modal", body["provider"])
	}
}

func TestGetLatestDraft_NoRuns(t *testing.T) {
	store := newTestStore(t)

	r := httptest.NewRequest(http.MethodGet, "/api/draft/latest", nil)
	w := httptest.NewRecorder()
	GetLatestDraft(store).ServeHTTP(w, r)

	if w.Code != http.StatusNotFound {
		t.Fatalf("got status %d, want %d", w.Code, http.StatusNotFound)
	}
}
