package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"go.uber.org/zap"
)

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	result, err := s.provider.Summary(r.Context())
	if err != nil {
		s.logger.Error("summary request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to build summary")
		return
	}

	if seconds := int(s.cfg.CacheTTL.Seconds()); seconds > 0 {
		w.Header().Set("Cache-Control", fmt.Sprintf("public, max-age=%d", seconds))
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
