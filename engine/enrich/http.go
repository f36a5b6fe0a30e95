package enrich

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/carthesien/enrich/engine/cost"
	"github.com/carthesien/enrich/engine/domain"
	"github.com/carthesien/enrich/engine/normalize"
	"github.com/carthesien/enrich/engine/refindex"
)

// NewHandler exposes the service over HTTP:
//
//	POST /api/enrich  full pipeline, returns an EnrichmentRecord
//	POST /api/match   match only, returns the MatchSummary and candidates
//	GET  /api/health  snapshot version, size, price feed age
func NewHandler(svc *Service, idx *refindex.Index, feed *cost.Feed, log *slog.Logger) http.Handler {
	if log == nil {
		log = slog.Default()
	}
	h := &handler{svc: svc, idx: idx, feed: feed, log: log}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/enrich", h.enrich)
	mux.HandleFunc("POST /api/match", h.match)
	mux.HandleFunc("GET /api/health", h.health)
	return mux
}

type handler struct {
	svc  *Service
	idx  *refindex.Index
	feed *cost.Feed
	log  *slog.Logger
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func (h *handler) enrich(w http.ResponseWriter, r *http.Request) {
	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	rec, err := h.svc.Enrich(r.Context(), req)
	if err != nil {
		status := http.StatusInternalServerError
		var fe *domain.FieldError
		if errors.As(err, &fe) && !errors.Is(err, domain.ErrMissingCostInput) {
			status = http.StatusBadRequest
		}
		writeError(w, status, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

type matchResponse struct {
	Summary    domain.MatchSummary `json:"summary"`
	Candidates []candidateView     `json:"candidates,omitempty"`
}

type candidateView struct {
	VariantKey string  `json:"variant_key"`
	Label      string  `json:"label"`
	Score      float64 `json:"score"`
}

func (h *handler) match(w http.ResponseWriter, r *http.Request) {
	var listing domain.ListingInput
	if err := json.NewDecoder(r.Body).Decode(&listing); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := domain.ValidateListing(listing); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	result := h.svc.deps.Matcher.Match(r.Context(), normalize.Normalize(listing))
	resp := matchResponse{Summary: result.Summary()}
	for _, c := range result.Candidates {
		resp.Candidates = append(resp.Candidates, candidateView{
			VariantKey: c.Variant.Key,
			Label:      c.Variant.Label,
			Score:      c.Score,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *handler) health(w http.ResponseWriter, _ *http.Request) {
	snap := h.idx.Current()
	_, fetchedAt := h.feed.Prices()
	writeJSON(w, http.StatusOK, map[string]any{
		"status":           "ok",
		"snapshot_version": snap.Version(),
		"variants":         snap.Len(),
		"prices_age_sec":   int(time.Since(fetchedAt).Seconds()),
	})
}
