package api

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/k1-end/elastic-logger/internal/metrics"
)

// LogRequest is a single entry of the POST /logs body.
type LogRequest struct {
	Level   string `json:"level"`
	Message string `json:"message"`
	Payload any    `json:"payload,omitempty"`
}

func (s *Server) rootHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	status := "ok"
	code := http.StatusOK
	if !s.sink.Ready() {
		status = "initializing"
		code = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"status": status})
}

func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.reply(w, r, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var entries []LogRequest
	if err := json.NewDecoder(r.Body).Decode(&entries); err != nil {
		s.reply(w, r, http.StatusBadRequest, "Invalid request body (expected JSON array)")
		return
	}

	for _, e := range entries {
		s.sink.Log(r.Context(), e.Level, e.Message, e.Payload)
	}

	metrics.IngestRequests.WithLabelValues(strconv.Itoa(http.StatusAccepted), r.Method).Inc()
	w.WriteHeader(http.StatusAccepted)
	io.WriteString(w, strconv.Itoa(len(entries)))
}

func (s *Server) reply(w http.ResponseWriter, r *http.Request, code int, msg string) {
	metrics.IngestRequests.WithLabelValues(strconv.Itoa(code), r.Method).Inc()
	http.Error(w, msg, code)
}
