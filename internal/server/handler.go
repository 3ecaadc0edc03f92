// Package server exposes the embedded search engine over HTTP. The engine
// itself owns no wire protocol; everything transport-shaped lives here.
package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/studylab/lessonsearch/internal/analytics"
	"github.com/studylab/lessonsearch/internal/querycache"
	"github.com/studylab/lessonsearch/internal/search"
	"github.com/studylab/lessonsearch/internal/search/ranker"
	"github.com/studylab/lessonsearch/pkg/config"
	apperrors "github.com/studylab/lessonsearch/pkg/errors"
	"github.com/studylab/lessonsearch/pkg/logger"
	"github.com/studylab/lessonsearch/pkg/metrics"
)

// SearchResult is one scored document with its display metadata.
type SearchResult struct {
	DocID        string         `json:"doc_id"`
	Title        string         `json:"title"`
	SectionLabel string         `json:"section_label,omitempty"`
	GroupLabel   string         `json:"group_label,omitempty"`
	Score        float64        `json:"score"`
	Matches      []ranker.Match `json:"matches,omitempty"`
}

// SearchResponse is the payload of the search endpoint. Mode reports which
// path answered: "exact", "fuzzy", "suggest" (query too short for ranking),
// or "empty".
type SearchResponse struct {
	Query       string         `json:"query"`
	Mode        string         `json:"mode"`
	Total       int            `json:"total"`
	Results     []SearchResult `json:"results"`
	Suggestions []string       `json:"suggestions,omitempty"`
}

// ProgressResponse reports index build state.
type ProgressResponse struct {
	Built    bool    `json:"built"`
	Progress float64 `json:"progress"`
	Total    int64   `json:"total_documents"`
	Indexed  int64   `json:"indexed_documents"`
}

// RebuildFunc rebuilds the index and invalidates dependent caches.
type RebuildFunc func(ctx context.Context) error

// Handler serves the search API. Cache, queries, and rebuild are optional;
// nil disables the corresponding behaviour.
type Handler struct {
	engine  *search.Engine
	cache   *querycache.Cache[SearchResponse]
	queries *analytics.Store
	rebuild RebuildFunc
	m       *metrics.Metrics
	cfg     config.SearchConfig
	logger  *slog.Logger
}

// New creates the API handler.
func New(engine *search.Engine, cache *querycache.Cache[SearchResponse], queries *analytics.Store, rebuild RebuildFunc, m *metrics.Metrics, cfg config.SearchConfig) *Handler {
	return &Handler{
		engine:  engine,
		cache:   cache,
		queries: queries,
		rebuild: rebuild,
		m:       m,
		cfg:     cfg,
		logger:  slog.Default().With("component", "search-handler"),
	}
}

// Routes registers all endpoints on the mux.
func (h *Handler) Routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/search", h.Search)
	mux.HandleFunc("GET /api/v1/suggest", h.Suggest)
	mux.HandleFunc("GET /api/v1/documents/{id}", h.Document)
	mux.HandleFunc("GET /api/v1/progress", h.Progress)
	mux.HandleFunc("GET /api/v1/popular", h.Popular)
	mux.HandleFunc("POST /api/v1/rebuild", h.Rebuild)
}

// Search answers full queries with ranked results and short queries with
// suggestions, so a two-character prefix never produces noisy rankings.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	log := logger.FromContext(ctx)

	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		h.writeError(w, http.StatusBadRequest, "query parameter 'q' is required")
		return
	}
	limit, ok := h.parseLimit(w, r)
	if !ok {
		return
	}

	var (
		resp   SearchResponse
		cached bool
	)
	if len([]rune(query)) < h.cfg.MinQueryLength {
		resp = SearchResponse{
			Query:       query,
			Mode:        "suggest",
			Results:     []SearchResult{},
			Suggestions: h.engine.Suggestions(query, h.cfg.MaxSuggestions),
		}
	} else if h.cache != nil {
		var err error
		resp, cached, err = h.cache.GetOrCompute(ctx, query, limit, func() (SearchResponse, error) {
			return h.execute(query, limit), nil
		})
		if err != nil {
			h.writeError(w, http.StatusInternalServerError, "search failed")
			return
		}
	} else {
		resp = h.execute(query, limit)
	}

	duration := time.Since(start)
	h.observe(resp, cached, duration)
	h.recordQuery(resp, duration)
	log.Debug("search executed",
		"query", query,
		"mode", resp.Mode,
		"results", resp.Total,
		"cached", cached,
	)
	h.writeJSON(w, http.StatusOK, resp)
}

// execute runs the engine's exact-then-fuzzy search and renders the results
// with document metadata.
func (h *Handler) execute(query string, limit int) SearchResponse {
	results, fuzzy := h.engine.Search(query, limit)
	resp := SearchResponse{
		Query:   query,
		Mode:    "exact",
		Total:   len(results),
		Results: make([]SearchResult, 0, len(results)),
	}
	if fuzzy {
		resp.Mode = "fuzzy"
	}
	if len(results) == 0 {
		resp.Mode = "empty"
	}
	for _, res := range results {
		sr := SearchResult{
			DocID:   res.DocID,
			Score:   res.Score,
			Matches: res.Matches,
		}
		if doc, ok := h.engine.Document(res.DocID); ok {
			sr.Title = doc.Title
			sr.SectionLabel = doc.SectionLabel
			sr.GroupLabel = doc.GroupLabel
		}
		resp.Results = append(resp.Results, sr)
	}
	return resp
}

// Suggest serves completion candidates for a prefix.
func (h *Handler) Suggest(w http.ResponseWriter, r *http.Request) {
	prefix := strings.TrimSpace(r.URL.Query().Get("q"))
	if prefix == "" {
		h.writeError(w, http.StatusBadRequest, "query parameter 'q' is required")
		return
	}
	max := h.cfg.MaxSuggestions
	if maxStr := r.URL.Query().Get("limit"); maxStr != "" {
		parsed, err := strconv.Atoi(maxStr)
		if err != nil || parsed < 1 {
			h.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		max = parsed
	}
	suggestions := h.engine.Suggestions(prefix, max)
	if suggestions == nil {
		suggestions = []string{}
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"query":       prefix,
		"suggestions": suggestions,
	})
}

// Document returns indexed metadata for one document.
func (h *Handler) Document(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	doc, ok := h.engine.Document(id)
	if !ok {
		h.writeError(w, apperrors.HTTPStatusCode(apperrors.ErrDocumentNotFound), "document not found")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"id":            doc.ID,
		"title":         doc.Title,
		"section_id":    doc.SectionID,
		"section_label": doc.SectionLabel,
		"group_id":      doc.GroupID,
		"group_label":   doc.GroupLabel,
		"path":          doc.Path,
	})
}

// Progress reports build progress.
func (h *Handler) Progress(w http.ResponseWriter, r *http.Request) {
	stats := h.engine.Stats()
	h.writeJSON(w, http.StatusOK, ProgressResponse{
		Built:    stats.Built,
		Progress: h.engine.Progress(),
		Total:    stats.TotalDocs,
		Indexed:  stats.Indexed,
	})
}

// Popular serves the analytics top-queries feed.
func (h *Handler) Popular(w http.ResponseWriter, r *http.Request) {
	if h.queries == nil {
		h.writeError(w, http.StatusServiceUnavailable, "query analytics disabled")
		return
	}
	top, err := h.queries.TopQueries(r.Context(), 10)
	if err != nil {
		h.logger.Error("loading top queries failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "loading top queries failed")
		return
	}
	if top == nil {
		top = []analytics.QueryCount{}
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"queries": top})
}

// Rebuild triggers a full index rebuild.
func (h *Handler) Rebuild(w http.ResponseWriter, r *http.Request) {
	if h.rebuild == nil {
		h.writeError(w, http.StatusServiceUnavailable, "rebuild disabled")
		return
	}
	// Rebuilds outlive the request; detach from its cancellation.
	go func() {
		if err := h.rebuild(context.WithoutCancel(r.Context())); err != nil {
			h.logger.Error("rebuild failed", "error", err)
		}
	}()
	h.writeJSON(w, http.StatusAccepted, map[string]string{"status": "rebuild started"})
}

func (h *Handler) parseLimit(w http.ResponseWriter, r *http.Request) (int, bool) {
	limit := h.cfg.DefaultLimit
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed < 1 {
			h.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return 0, false
		}
		limit = parsed
	}
	if h.cfg.MaxResults > 0 && limit > h.cfg.MaxResults {
		limit = h.cfg.MaxResults
	}
	return limit, true
}

func (h *Handler) observe(resp SearchResponse, cached bool, duration time.Duration) {
	if h.m == nil {
		return
	}
	h.m.SearchQueriesTotal.WithLabelValues(resp.Mode).Inc()
	cacheStatus := "miss"
	if cached {
		cacheStatus = "hit"
		h.m.CacheHitsTotal.Inc()
	} else if h.cache != nil {
		h.m.CacheMissesTotal.Inc()
	}
	h.m.SearchLatency.WithLabelValues(cacheStatus).Observe(duration.Seconds())
	h.m.SearchResultsCount.Observe(float64(resp.Total))
}

func (h *Handler) recordQuery(resp SearchResponse, duration time.Duration) {
	if h.queries == nil || resp.Mode == "suggest" {
		return
	}
	event := analytics.QueryEvent{
		Query:    resp.Query,
		Mode:     resp.Mode,
		Results:  resp.Total,
		Duration: duration,
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		h.queries.Record(ctx, event)
	}()
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("encoding response failed", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
