// Package estest provides an in-process stand-in for an Elasticsearch or
// OpenSearch cluster that understands the handful of endpoints the logger
// talks to: info, bulk and legacy index templates.
package estest

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
)

type Document struct {
	Index  string
	ID     string
	Source map[string]any
}

type Server struct {
	*httptest.Server

	mu          sync.Mutex
	docs        []Document
	bulkQueries []url.Values
	templates   map[string]map[string]any
	templatePut int
	failBulk    bool
	denyPut     bool
	hold        chan struct{}
}

func NewServer(t *testing.T) *Server {
	t.Helper()
	s := &Server{templates: make(map[string]map[string]any)}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	t.Cleanup(func() {
		s.ReleaseBulk()
		s.Close()
	})
	return s
}

// HoldBulk makes bulk requests hang until ReleaseBulk is called or the
// client gives up, like a cluster that stopped answering.
func (s *Server) HoldBulk() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.hold == nil {
		s.hold = make(chan struct{})
	}
}

func (s *Server) ReleaseBulk() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.hold != nil {
		close(s.hold)
		s.hold = nil
	}
}

// DenyTemplates rejects template uploads with 403, as for a user without
// the manage_index_templates privilege.
func (s *Server) DenyTemplates() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.denyPut = true
}

// FailBulk makes every bulk item come back with a 500 status.
func (s *Server) FailBulk() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failBulk = true
}

// AddTemplate preinstalls a template.
func (s *Server) AddTemplate(name string, body map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.templates[name] = body
}

func (s *Server) Documents() []Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Document(nil), s.docs...)
}

func (s *Server) BulkQueries() []url.Values {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]url.Values(nil), s.bulkQueries...)
}

func (s *Server) Template(name string) (map[string]any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	body, ok := s.templates[name]
	return body, ok
}

func (s *Server) TemplatePuts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.templatePut
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("X-Elastic-Product", "Elasticsearch")
	w.Header().Set("Content-Type", "application/json")

	switch {
	case r.URL.Path == "/" && (r.Method == http.MethodGet || r.Method == http.MethodHead):
		io.WriteString(w, `{"name":"estest","cluster_name":"estest","version":{"number":"7.17.0","build_flavor":"default","distribution":"opensearch"},"tagline":"You Know, for Search"}`)
	case strings.HasSuffix(r.URL.Path, "/_bulk"):
		s.handleBulk(w, r)
	case strings.HasPrefix(r.URL.Path, "/_template/"):
		s.handleTemplate(w, r, strings.TrimPrefix(r.URL.Path, "/_template/"))
	default:
		w.WriteHeader(http.StatusNotFound)
		io.WriteString(w, `{"error":"not found"}`)
	}
}

func (s *Server) handleBulk(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	hold := s.hold
	s.mu.Unlock()
	if hold != nil {
		select {
		case <-hold:
		case <-r.Context().Done():
			return
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.bulkQueries = append(s.bulkQueries, r.URL.Query())

	var items []map[string]any
	scanner := bufio.NewScanner(r.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 10*1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var action map[string]map[string]any
		if err := json.Unmarshal(line, &action); err != nil {
			http.Error(w, fmt.Sprintf(`{"error":"bad action line: %v"}`, err), http.StatusBadRequest)
			return
		}
		if !scanner.Scan() {
			http.Error(w, `{"error":"missing source line"}`, http.StatusBadRequest)
			return
		}
		var source map[string]any
		if err := json.Unmarshal(scanner.Bytes(), &source); err != nil {
			http.Error(w, fmt.Sprintf(`{"error":"bad source line: %v"}`, err), http.StatusBadRequest)
			return
		}

		meta := action["index"]
		index, _ := meta["_index"].(string)
		id, _ := meta["_id"].(string)

		status := http.StatusCreated
		result := map[string]any{"_index": index, "_id": id, "status": status, "result": "created"}
		if s.failBulk {
			result["status"] = http.StatusInternalServerError
			result["error"] = map[string]any{"type": "estest_exception", "reason": "bulk failures requested"}
		} else {
			s.docs = append(s.docs, Document{Index: index, ID: id, Source: source})
		}
		items = append(items, map[string]any{"index": result})
	}

	json.NewEncoder(w).Encode(map[string]any{
		"took":   1,
		"errors": s.failBulk,
		"items":  items,
	})
}

func (s *Server) handleTemplate(w http.ResponseWriter, r *http.Request, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch r.Method {
	case http.MethodHead, http.MethodGet:
		body, ok := s.templates[name]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			if r.Method == http.MethodGet {
				io.WriteString(w, `{}`)
			}
			return
		}
		if r.Method == http.MethodGet {
			json.NewEncoder(w).Encode(map[string]any{name: body})
		}
	case http.MethodPut, http.MethodPost:
		if s.denyPut {
			w.WriteHeader(http.StatusForbidden)
			io.WriteString(w, `{"error":{"type":"security_exception","reason":"action [indices:admin/template/put] is unauthorized"},"status":403}`)
			return
		}
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, fmt.Sprintf(`{"error":"bad template: %v"}`, err), http.StatusBadRequest)
			return
		}
		s.templates[name] = body
		s.templatePut++
		io.WriteString(w, `{"acknowledged":true}`)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}
