package enrich

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/carthesien/enrich/engine/domain"
)

func postJSON(t *testing.T, h http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestHandler_Enrich(t *testing.T) {
	h := newHarness(t, dieselPrices())
	handler := NewHandler(h.svc, h.idx, h.feed, nil)

	w := postJSON(t, handler, "/api/enrich", clioRequest())
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	var rec domain.EnrichmentRecord
	if err := json.Unmarshal(w.Body.Bytes(), &rec); err != nil {
		t.Fatalf("decode record: %v", err)
	}
	if rec.Match.Outcome != "resolved" {
		t.Errorf("outcome = %q", rec.Match.Outcome)
	}
}

func TestHandler_EnrichRejectsInvalidListing(t *testing.T) {
	h := newHarness(t, dieselPrices())
	handler := NewHandler(h.svc, h.idx, h.feed, nil)

	req := clioRequest()
	req.Listing.Title = ""
	w := postJSON(t, handler, "/api/enrich", req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestHandler_EnrichBadJSON(t *testing.T) {
	h := newHarness(t, dieselPrices())
	handler := NewHandler(h.svc, h.idx, h.feed, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/enrich", bytes.NewReader([]byte("{")))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestHandler_MatchOnly(t *testing.T) {
	h := newHarness(t, dieselPrices())
	handler := NewHandler(h.svc, h.idx, h.feed, nil)

	w := postJSON(t, handler, "/api/match", clioRequest().Listing)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	var resp matchResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Summary.Outcome != "resolved" {
		t.Errorf("outcome = %q", resp.Summary.Outcome)
	}
}

func TestHandler_Health(t *testing.T) {
	h := newHarness(t, dieselPrices())
	handler := NewHandler(h.svc, h.idx, h.feed, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("status field = %v", body["status"])
	}
	if body["variants"].(float64) != 1 {
		t.Errorf("variants = %v, want 1", body["variants"])
	}
}
