package api

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func decodeLogLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var entries []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var e map[string]any
		if err := json.Unmarshal([]byte(line), &e); err != nil {
			t.Fatalf("decode log line %q: %v", line, err)
		}
		entries = append(entries, e)
	}
	return entries
}

func TestRequestLogger_RouteContext(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewJSONHandler(&buf, nil))

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(log))
	r.Get("/api/documents/{docID}/sections", func(w http.ResponseWriter, r *http.Request) {
		jsonError(w, "document not found", http.StatusNotFound)
	})
	r.Get("/api/ingest/{jobID}/status", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "queued"})
	})
	r.Get("/boom", func(w http.ResponseWriter, r *http.Request) {
		jsonError(w, "boom", http.StatusInternalServerError)
	})

	tests := []struct {
		path    string
		level   string
		status  float64
		route   string
		idKey   string
		idValue string
	}{
		{"/api/documents/d1/sections", "WARN", 404, "/api/documents/{docID}/sections", "doc_id", "d1"},
		{"/api/ingest/j1/status", "INFO", 200, "/api/ingest/{jobID}/status", "job_id", "j1"},
		{"/boom", "ERROR", 500, "/boom", "", ""},
	}
	for _, tt := range tests {
		buf.Reset()
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, tt.path, nil))

		entries := decodeLogLines(t, &buf)
		if len(entries) != 1 {
			t.Fatalf("%s: expected one log line, got %d", tt.path, len(entries))
		}
		e := entries[0]
		if e["level"] != tt.level {
			t.Errorf("%s: level = %v, want %s", tt.path, e["level"], tt.level)
		}
		if e["status"] != tt.status {
			t.Errorf("%s: status = %v, want %v", tt.path, e["status"], tt.status)
		}
		if e["route"] != tt.route {
			t.Errorf("%s: route = %v, want %s", tt.path, e["route"], tt.route)
		}
		if tt.idKey != "" && e[tt.idKey] != tt.idValue {
			t.Errorf("%s: %s = %v, want %s", tt.path, tt.idKey, e[tt.idKey], tt.idValue)
		}
		if id, _ := e["request_id"].(string); id == "" {
			t.Errorf("%s: missing request_id", tt.path)
		}
		if b, _ := e["bytes"].(float64); b <= 0 {
			t.Errorf("%s: expected bytes written, got %v", tt.path, e["bytes"])
		}
	}
}

func TestRequestLogger_ImplicitOK(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewJSONHandler(&buf, nil))
	h := RequestLogger(log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "ok")
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))

	entries := decodeLogLines(t, &buf)
	if len(entries) != 1 || entries[0]["status"] != float64(200) {
		t.Fatalf("expected one 200 entry, got %v", entries)
	}
	if _, ok := entries[0]["route"]; ok {
		t.Errorf("no route pattern expected outside a chi router: %v", entries[0])
	}
}

func TestAuthMiddleware_RejectsWithJSON(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewJSONHandler(&buf, nil))
	h := AuthMiddleware("secret", log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		header string
		code   int
		logged bool
	}{
		{"", http.StatusUnauthorized, false},
		{"Bearer wrong", http.StatusUnauthorized, true},
		{"Bearer secret", http.StatusNoContent, false},
	}
	for _, tt := range tests {
		buf.Reset()
		req := httptest.NewRequest(http.MethodGet, "/api/documents", nil)
		if tt.header != "" {
			req.Header.Set("Authorization", tt.header)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != tt.code {
			t.Errorf("%q: expected %d, got %d", tt.header, tt.code, rec.Code)
		}
		if tt.code == http.StatusUnauthorized && !strings.Contains(rec.Body.String(), `"error"`) {
			t.Errorf("%q: expected JSON error body, got %q", tt.header, rec.Body.String())
		}
		if got := strings.Contains(buf.String(), "rejected api key"); got != tt.logged {
			t.Errorf("%q: rejection logged = %v, want %v", tt.header, got, tt.logged)
		}
	}
}
