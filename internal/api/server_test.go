package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dgallion1/docbridge/internal/config"
	"github.com/dgallion1/docbridge/internal/pipeline"
	"github.com/dgallion1/docbridge/internal/store"
)

const testKey = "test-key"

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	log := slog.New(slog.NewJSONHandler(io.Discard, nil))
	cfg := config.Defaults()
	cfg.APIKey = testKey
	cfg.WorkerCount = 1
	cfg.MaxUploadBytes = 1 << 20

	orch := pipeline.NewOrchestrator(cfg, store.NewMemory(), nil, log)
	orch.Start(context.Background())
	ts := httptest.NewServer(NewServer(orch, log, cfg))
	t.Cleanup(func() {
		ts.Close()
		orch.Stop()
	})
	return ts
}

func do(t *testing.T, ts *httptest.Server, method, path, contentType string, body io.Reader) (int, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(method, ts.URL+path, body)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Authorization", "Bearer "+testKey)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var out map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("%s %s: decode response: %v", method, path, err)
	}
	return resp.StatusCode, out
}

func postJSON(t *testing.T, ts *httptest.Server, path string, v any) (int, map[string]any) {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	return do(t, ts, http.MethodPost, path, "application/json", bytes.NewReader(b))
}

func upload(t *testing.T, ts *httptest.Server, path, field, filename, content string) (int, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(field, filename)
	if err != nil {
		t.Fatal(err)
	}
	fw.Write([]byte(content))
	mw.Close()
	return do(t, ts, http.MethodPost, path, mw.FormDataContentType(), &buf)
}

func TestHealth_NoAuth(t *testing.T) {
	ts := newTestServer(t)
	resp, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}
}

func TestAuth(t *testing.T) {
	ts := newTestServer(t)
	tests := []struct {
		name   string
		header string
	}{
		{"missing", ""},
		{"wrong scheme", "Basic " + testKey},
		{"wrong key", "Bearer nope"},
	}
	for _, tt := range tests {
		req, _ := http.NewRequest(http.MethodGet, ts.URL+"/api/documents", nil)
		if tt.header != "" {
			req.Header.Set("Authorization", tt.header)
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusUnauthorized {
			t.Errorf("%s: expected 401, got %d", tt.name, resp.StatusCode)
		}
	}
}

func TestConvertMarkdown(t *testing.T) {
	ts := newTestServer(t)
	tree := `{"type":"doc","content":[
		{"type":"heading","attrs":{"level":2},"content":[{"type":"text","text":"Setup"}]},
		{"type":"paragraph","content":[{"type":"text","text":"Run it.","marks":[{"type":"bold"}]}]}
	]}`
	code, out := do(t, ts, http.MethodPost, "/api/convert/markdown", "application/json", strings.NewReader(tree))
	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %v", code, out)
	}
	if out["markdown"] != "## Setup\n\n**Run it.**\n" {
		t.Errorf("unexpected markdown: %q", out["markdown"])
	}
	hs, _ := out["headings"].([]any)
	if len(hs) != 1 || hs[0].(map[string]any)["slug"] != "setup" {
		t.Errorf("unexpected headings: %v", out["headings"])
	}
}

func TestConvertMarkdown_InvalidJSON(t *testing.T) {
	ts := newTestServer(t)
	code, _ := do(t, ts, http.MethodPost, "/api/convert/markdown", "application/json", strings.NewReader("{"))
	if code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", code)
	}
}

func TestConvertTree(t *testing.T) {
	ts := newTestServer(t)
	code, out := postJSON(t, ts, "/api/convert/tree", map[string]string{"markdown": "## Setup\n\ntext"})
	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %v", code, out)
	}
	tree, _ := out["tree"].(map[string]any)
	if tree["type"] != "doc" {
		t.Fatalf("expected doc root, got %v", tree)
	}
	content, _ := tree["content"].([]any)
	if len(content) != 2 || content[0].(map[string]any)["type"] != "heading" {
		t.Errorf("unexpected content: %v", content)
	}
}

func TestConvertTree_Upload(t *testing.T) {
	ts := newTestServer(t)
	code, out := upload(t, ts, "/api/convert/tree", "file", "data.csv", "name,role\nada,eng\n")
	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %v", code, out)
	}
	if out["title"] != "data" {
		t.Errorf("title = %v", out["title"])
	}
	if out["markdown"] != "| name | role |\n|---|---|\n| ada | eng |\n" {
		t.Errorf("unexpected markdown: %q", out["markdown"])
	}
}

func TestConvertTree_UploadUnsupported(t *testing.T) {
	ts := newTestServer(t)
	code, _ := upload(t, ts, "/api/convert/tree", "file", "image.png", "x")
	if code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", code)
	}
}

func TestConvertHeadingsAndSections(t *testing.T) {
	ts := newTestServer(t)
	md := "# One\n\n## Setup\n\n## Setup\n\n# Two\n\nbody"

	code, out := postJSON(t, ts, "/api/convert/headings", map[string]string{"markdown": md})
	if code != http.StatusOK {
		t.Fatalf("headings: expected 200, got %d", code)
	}
	hs, _ := out["headings"].([]any)
	if len(hs) != 2 || hs[1].(map[string]any)["slug"] != "setup-2" {
		t.Errorf("unexpected headings: %v", out["headings"])
	}

	code, out = postJSON(t, ts, "/api/convert/sections", map[string]string{"markdown": md})
	if code != http.StatusOK {
		t.Fatalf("sections: expected 200, got %d", code)
	}
	secs, _ := out["sections"].([]any)
	if len(secs) != 2 || secs[1].(map[string]any)["content"] != "body" {
		t.Errorf("unexpected sections: %v", out["sections"])
	}

	code, out = postJSON(t, ts, "/api/convert/sections", map[string]string{"markdown": "plain", "fallback_title": "Notes"})
	if code != http.StatusOK {
		t.Fatalf("sections: expected 200, got %d", code)
	}
	secs, _ = out["sections"].([]any)
	if len(secs) != 1 || secs[0].(map[string]any)["title"] != "Notes" {
		t.Errorf("unexpected fallback section: %v", out["sections"])
	}
}

func TestConvertLines(t *testing.T) {
	ts := newTestServer(t)
	req := map[string]any{"fragments": []map[string]any{
		{"text": "Hello ", "font_size": 10, "y": 100, "page": 1},
		{"text": "world", "font_size": 10, "y": 100.4, "page": 1},
		{"text": "Next", "font_size": 10, "y": 112, "page": 1},
	}}
	code, out := postJSON(t, ts, "/api/convert/lines", req)
	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if out["text"] != "Hello world\nNext" {
		t.Errorf("unexpected text: %q", out["text"])
	}
}

func TestReviewDiff(t *testing.T) {
	ts := newTestServer(t)
	code, out := postJSON(t, ts, "/api/review/diff", map[string]string{
		"before": "# A\n\none\n",
		"after":  "# A\n\ntwo\n\n# B\n\nnew\n",
	})
	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	diff, _ := out["diff"].(map[string]any)
	if diff["changed"] != true {
		t.Errorf("expected changed diff, got %v", diff)
	}
	if !strings.Contains(diff["unified"].(string), "+two") {
		t.Errorf("unified diff missing addition: %q", diff["unified"])
	}
	secs, _ := out["sections"].([]any)
	if len(secs) != 2 {
		t.Fatalf("expected 2 section changes, got %v", secs)
	}
	if secs[0].(map[string]any)["status"] != "modified" || secs[1].(map[string]any)["status"] != "added" {
		t.Errorf("unexpected section statuses: %v", secs)
	}
}

func waitForJob(t *testing.T, ts *httptest.Server, jobID string) map[string]any {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for {
		code, out := do(t, ts, http.MethodGet, "/api/ingest/"+jobID+"/status", "", nil)
		if code != http.StatusOK {
			t.Fatalf("status: expected 200, got %d", code)
		}
		switch out["status"] {
		case "completed", "failed", "duplicate_skipped":
			return out
		}
		if time.Now().After(deadline) {
			t.Fatalf("job %s did not finish: %v", jobID, out)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestIngestLifecycle(t *testing.T) {
	ts := newTestServer(t)
	md := "# Runbook\n\n## Drain\n\nDrain traffic.\n\n# Rollback\n\nRevert the deploy.\n"

	code, out := upload(t, ts, "/api/ingest", "file", "runbook.md", md)
	if code != http.StatusAccepted {
		t.Fatalf("ingest: expected 202, got %d: %v", code, out)
	}
	jobID, _ := out["job_id"].(string)
	docID, _ := out["doc_id"].(string)
	if jobID == "" || docID == "" {
		t.Fatalf("missing ids: %v", out)
	}

	status := waitForJob(t, ts, jobID)
	if status["status"] != "completed" {
		t.Fatalf("expected completed, got %v", status)
	}

	code, out = do(t, ts, http.MethodGet, "/api/documents", "", nil)
	if code != http.StatusOK {
		t.Fatalf("list: expected 200, got %d", code)
	}
	if docs, _ := out["documents"].([]any); len(docs) != 1 {
		t.Errorf("expected 1 document, got %v", out["documents"])
	}

	code, out = do(t, ts, http.MethodGet, "/api/documents/"+docID+"/sections", "", nil)
	if code != http.StatusOK {
		t.Fatalf("sections: expected 200, got %d", code)
	}
	if secs, _ := out["sections"].([]any); len(secs) != 2 {
		t.Errorf("expected 2 sections, got %v", out["sections"])
	}

	code, out = do(t, ts, http.MethodGet, "/api/documents/"+docID+"/headings", "", nil)
	if code != http.StatusOK {
		t.Fatalf("headings: expected 200, got %d", code)
	}
	secs, _ := out["sections"].([]any)
	if len(secs) != 2 {
		t.Fatalf("expected headings for 2 sections, got %v", out["sections"])
	}
	if hs, _ := secs[0].(map[string]any)["headings"].([]any); len(hs) != 1 {
		t.Errorf("expected 1 heading in first section, got %v", hs)
	}

	code, out = do(t, ts, http.MethodGet, "/api/documents/"+docID+"/chunks", "", nil)
	if code != http.StatusOK {
		t.Fatalf("chunks: expected 200, got %d", code)
	}
	chunks, _ := out["chunks"].([]any)
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %v", chunks)
	}
	crumb, _ := chunks[0].(map[string]any)["breadcrumb"].([]any)
	if len(crumb) != 3 || crumb[0] != "runbook" || crumb[2] != "Drain" {
		t.Errorf("unexpected breadcrumb: %v", crumb)
	}

	code, out = do(t, ts, http.MethodGet, "/api/documents/"+docID+"/html", "", nil)
	if code != http.StatusOK {
		t.Fatalf("html: expected 200, got %d", code)
	}
	htmlSecs, _ := out["sections"].([]any)
	if len(htmlSecs) != 2 || !strings.Contains(htmlSecs[0].(map[string]any)["html"].(string), `<h2 id="drain">Drain</h2>`) {
		t.Errorf("unexpected html: %v", htmlSecs)
	}

	// Same content again is skipped.
	code, out = upload(t, ts, "/api/ingest", "file", "copy.md", md)
	if code != http.StatusAccepted {
		t.Fatalf("re-ingest: expected 202, got %d", code)
	}
	dup := waitForJob(t, ts, out["job_id"].(string))
	if dup["status"] != "duplicate_skipped" || dup["duplicate_of"] != docID {
		t.Errorf("expected duplicate of %s, got %v", docID, dup)
	}

	code, _ = do(t, ts, http.MethodDelete, "/api/documents/"+docID, "", nil)
	if code != http.StatusOK {
		t.Fatalf("delete: expected 200, got %d", code)
	}
	code, _ = do(t, ts, http.MethodGet, "/api/documents/"+docID+"/sections", "", nil)
	if code != http.StatusNotFound {
		t.Errorf("expected 404 after delete, got %d", code)
	}
	code, _ = do(t, ts, http.MethodDelete, "/api/documents/"+docID, "", nil)
	if code != http.StatusNotFound {
		t.Errorf("expected 404 deleting twice, got %d", code)
	}
}

func TestIngest_UnsupportedType(t *testing.T) {
	ts := newTestServer(t)
	code, out := upload(t, ts, "/api/ingest", "file", "photo.png", "x")
	if code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d: %v", code, out)
	}
}

func TestIngest_TooLarge(t *testing.T) {
	ts := newTestServer(t)
	code, _ := upload(t, ts, "/api/ingest", "file", "big.txt", strings.Repeat("a", 1<<20+1))
	if code != http.StatusRequestEntityTooLarge {
		t.Errorf("expected 413, got %d", code)
	}
}

func TestBatchIngest(t *testing.T) {
	ts := newTestServer(t)
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for name, content := range map[string]string{"a.txt": "alpha", "b.exe": "nope"} {
		fw, _ := mw.CreateFormFile("files", name)
		fw.Write([]byte(content))
	}
	mw.Close()

	code, out := do(t, ts, http.MethodPost, "/api/ingest/batch", mw.FormDataContentType(), &buf)
	if code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", code)
	}
	jobs, _ := out["jobs"].([]any)
	if len(jobs) != 2 {
		t.Fatalf("expected 2 results, got %v", jobs)
	}
	var accepted, rejected int
	for _, j := range jobs {
		m := j.(map[string]any)
		if _, ok := m["error"]; ok {
			rejected++
		} else {
			accepted++
		}
	}
	if accepted != 1 || rejected != 1 {
		t.Errorf("expected 1 accepted and 1 rejected, got %d/%d", accepted, rejected)
	}
}

func TestIngestStatus_NotFound(t *testing.T) {
	ts := newTestServer(t)
	code, _ := do(t, ts, http.MethodGet, "/api/ingest/missing/status", "", nil)
	if code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", code)
	}
}

func TestStats(t *testing.T) {
	ts := newTestServer(t)
	postJSON(t, ts, "/api/convert/tree", map[string]string{"markdown": "# x"})
	code, out := do(t, ts, http.MethodGet, "/api/stats", "", nil)
	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	ops, _ := out["operations"].(map[string]any)
	tree, _ := ops["convert_tree"].(map[string]any)
	if tree["count"] != float64(1) {
		t.Errorf("expected one convert_tree sample, got %v", ops)
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct{ in, want string }{
		{"notes.md", "notes.md"},
		{"../../etc/passwd.txt", "passwd.txt"},
		{`C:\docs\plan.docx`, "plan.docx"},
		{"", "unnamed"},
		{"a..b.md", "a_b.md"},
	}
	for _, tt := range tests {
		if got := sanitizeFilename(tt.in); got != tt.want {
			t.Errorf("sanitizeFilename(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
