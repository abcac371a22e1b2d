package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/unai-app/unai/internal/catalog"
	"github.com/unai-app/unai/internal/detector"
	"github.com/unai-app/unai/internal/rewrite"
	"github.com/unai-app/unai/internal/websocket"
)

const maxBodyBytes = 1 << 20

type textRequest struct {
	Text json.RawMessage `json:"text"`
	Mode json.RawMessage `json:"mode"`
}

type detectResponse struct {
	Score         int                  `json:"score"`
	RawScore      int                  `json:"rawScore"`
	Characters    int                  `json:"characters"`
	PatternsFound int                  `json:"patternsFound"`
	Patterns      []detector.Finding   `json:"patterns"`
	Highlights    []detector.Highlight `json:"highlights"`
}

type requestError struct {
	status  int
	message string
}

func (e *requestError) Error() string { return e.message }

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

// handleInfo handles info requests
func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	c := s.detector.Catalog()
	uptime := time.Duration(0)
	if !s.startedAt.IsZero() {
		uptime = time.Since(s.startedAt).Round(time.Second)
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"name":     "unai",
		"version":  s.version,
		"catalog":  s.config.Detection.Catalog,
		"patterns": c.Len(),
		"fallback": len(c.Fallbacks()),
		"rewrite": map[string]interface{}{
			"enabled":   s.config.Rewrite.Enabled,
			"available": s.service.CanRewrite(),
			"model":     s.config.Rewrite.Model,
		},
		"cache_enabled":     s.cache != nil,
		"history_enabled":   s.history != nil,
		"websocket_clients": s.wsHub.GetStats().ActiveConnections,
		"rate_limit": map[string]interface{}{
			"enabled":          s.config.RateLimit.Enabled,
			"requests_per_min": s.config.RateLimit.RequestsPerMin,
			"tracked_clients":  s.limiter.Clients(),
		},
		"uptime": uptime.String(),
	})
}

// handlePatterns lists the active catalog, optionally filtered
func (s *Server) handlePatterns(w http.ResponseWriter, r *http.Request) {
	var (
		lang catalog.Language
		sev  catalog.Severity
		err  error
	)
	if v := r.URL.Query().Get("language"); v != "" {
		if lang, err = catalog.ParseLanguage(v); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	if v := r.URL.Query().Get("severity"); v != "" {
		if sev, err = catalog.ParseSeverity(v); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	patterns := make([]catalog.Pattern, 0)
	for _, p := range s.detector.Catalog().Patterns() {
		if lang != "" && p.Language != lang {
			continue
		}
		if sev != "" && p.Severity != sev {
			continue
		}
		patterns = append(patterns, p)
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"count":    len(patterns),
		"patterns": patterns,
	})
}

// handleDetect scores text without rewriting it
func (s *Server) handleDetect(w http.ResponseWriter, r *http.Request) {
	text, _, err := s.readTextRequest(w, r)
	if err != nil {
		writeRequestError(w, err)
		return
	}

	start := time.Now()
	analysis := s.detector.Analyze(text)
	resp := detectResponse{
		Score:         analysis.Score,
		RawScore:      analysis.RawScore,
		Characters:    analysis.Characters,
		PatternsFound: len(analysis.Matches),
		Patterns:      detector.Summarize(analysis.Matches),
		Highlights:    s.detector.Highlight(text),
	}

	s.wsHub.BroadcastDetection(websocket.DetectionEvent{
		RequestID:    getRequestID(r.Context()),
		Characters:   resp.Characters,
		RawScore:     resp.RawScore,
		Score:        resp.Score,
		PatternIDs:   findingIDs(resp.Patterns),
		ProcessingMS: float64(time.Since(start).Microseconds()) / 1000,
	})

	writeJSON(w, http.StatusOK, resp)
}

// handleRewrite scores, rewrites and rescores text
func (s *Server) handleRewrite(w http.ResponseWriter, r *http.Request) {
	text, mode, err := s.readTextRequest(w, r)
	if err != nil {
		writeRequestError(w, err)
		return
	}

	if !s.config.Rewrite.Enabled {
		writeError(w, http.StatusServiceUnavailable, "Rewrite is disabled")
		return
	}
	if !s.service.CanRewrite() {
		writeError(w, http.StatusInternalServerError, "API key not configured")
		return
	}

	report := s.service.Process(r.Context(), text, rewrite.ParseMode(mode))
	writeJSON(w, http.StatusOK, report)
}

// handleHistory returns recent rewrites and aggregate statistics
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeError(w, http.StatusNotFound, "History is disabled")
		return
	}

	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 100 {
			writeError(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		limit = n
	}

	records, err := s.history.Recent(r.Context(), limit)
	if err != nil {
		s.logger.WithRequestID(getRequestID(r.Context())).Error("Failed to read history", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to read history")
		return
	}
	stats, err := s.history.Stats(r.Context())
	if err != nil {
		s.logger.WithRequestID(getRequestID(r.Context())).Error("Failed to read history stats", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to read history")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"records": records,
		"stats":   stats,
	})
}

// readTextRequest decodes {"text": ..., "mode": ...} and enforces the
// input limits
func (s *Server) readTextRequest(w http.ResponseWriter, r *http.Request) (string, string, error) {
	var req textRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return "", "", &requestError{http.StatusRequestEntityTooLarge, "Request body too large"}
		}
		return "", "", &requestError{http.StatusBadRequest, "Invalid JSON body"}
	}

	var text string
	if len(req.Text) == 0 || json.Unmarshal(req.Text, &text) != nil || text == "" {
		return "", "", &requestError{http.StatusBadRequest, "Text is required"}
	}

	if limit := s.config.Server.MaxTextLength; limit > 0 && utf8.RuneCountInString(text) > limit {
		return "", "", &requestError{http.StatusBadRequest, "Max " + formatThousands(limit) + " characters"}
	}

	var mode string
	if len(req.Mode) > 0 {
		_ = json.Unmarshal(req.Mode, &mode)
	}

	return text, mode, nil
}

func findingIDs(findings []detector.Finding) []string {
	ids := make([]string, len(findings))
	for i, f := range findings {
		ids[i] = f.ID
	}
	return ids
}

// formatThousands renders n with comma separators
func formatThousands(n int) string {
	if n < 0 {
		return "-" + formatThousands(-n)
	}
	s := strconv.Itoa(n)
	for i := len(s) - 3; i > 0; i -= 3 {
		s = s[:i] + "," + s[i:]
	}
	return s
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func writeRequestError(w http.ResponseWriter, err error) {
	var reqErr *requestError
	if errors.As(err, &reqErr) {
		writeError(w, reqErr.status, reqErr.message)
		return
	}
	writeError(w, http.StatusInternalServerError, "Internal error")
}

// handleCacheStats reports rewrite cache hit rates and size
func (s *Server) handleCacheStats(w http.ResponseWriter, r *http.Request) {
	if s.cache == nil {
		writeError(w, http.StatusNotFound, "Cache is disabled")
		return
	}

	stats, err := s.cache.GetStats(r.Context())
	if err != nil {
		s.logger.Error("Failed to read cache stats", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to read cache stats")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleCacheClear(w http.ResponseWriter, r *http.Request) {
	if s.cache == nil {
		writeError(w, http.StatusNotFound, "Cache is disabled")
		return
	}

	if err := s.cache.Clear(r.Context()); err != nil {
		s.logger.Error("Failed to clear cache", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to clear cache")
		return
	}
	s.logger.Info("Rewrite cache cleared", zap.String("request_id", getRequestID(r.Context())))
	w.WriteHeader(http.StatusNoContent)
}
