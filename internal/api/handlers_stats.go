package api

import (
	"net/http"
)

func (s *Server) handleParseStats(w http.ResponseWriter, r *http.Request) {
	if s.stats == nil {
		jsonError(w, "parse stats unavailable", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"parse":    s.stats.Snapshot(),
		"cache":    s.parser.CacheStats(),
		"sessions": s.sessions.Len(),
	})
}
