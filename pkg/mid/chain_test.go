package mid

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("ok"))
	})
}

func TestChain_Order(t *testing.T) {
	var trace []string
	mw := func(name string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				trace = append(trace, name)
				next.ServeHTTP(w, r)
			})
		}
	}
	h := Chain(okHandler(), mw("outer"), mw("inner"))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/", nil))

	if len(trace) != 2 || trace[0] != "outer" || trace[1] != "inner" {
		t.Errorf("trace = %v, want outer then inner", trace)
	}
}

func TestRecover_Catches(t *testing.T) {
	panicky := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})
	h := Chain(panicky, Recover(slog.Default()))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("GET", "/", nil))
	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
}

func TestCORS_Preflight(t *testing.T) {
	h := Chain(okHandler(), CORS("https://app.example"))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodOptions, "/", nil))

	if w.Code != http.StatusNoContent {
		t.Errorf("preflight status = %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "https://app.example" {
		t.Errorf("origin header = %q", got)
	}
}

func TestRequestID_GeneratedAndEchoed(t *testing.T) {
	var seen string
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFrom(r.Context())
	})
	h := Chain(inner, RequestID())
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("GET", "/", nil))

	if seen == "" {
		t.Fatal("request ID not set on context")
	}
	if got := w.Header().Get(HeaderRequestID); got != seen {
		t.Errorf("response header %q != context id %q", got, seen)
	}
}

func TestRequestID_HonorsInbound(t *testing.T) {
	inner := okHandler()
	h := Chain(inner, RequestID())
	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set(HeaderRequestID, "fixed-id")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if got := w.Header().Get(HeaderRequestID); got != "fixed-id" {
		t.Errorf("header = %q, want inbound id reused", got)
	}
}

func TestLogger_CapturesStatus(t *testing.T) {
	notFound := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	// The assertion is that the wrapped writer does not disturb the response.
	h := Chain(notFound, Logger(slog.Default()))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("GET", "/missing", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d", w.Code)
	}
}
