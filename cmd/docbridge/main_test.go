package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func runCLI(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	err := run(args, strings.NewReader(stdin), &stdout, &stderr)
	return stdout.String(), err
}

func TestConvert_HTMLToMarkdown(t *testing.T) {
	path := writeFile(t, "page.html", `<html><head><title>Wiki</title></head><body>
<h1>Runbook</h1><p>Restart the <b>worker</b> first.</p></body></html>`)
	out, err := runCLI(t, "", "convert", path)
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	want := "# Runbook\n\nRestart the **worker** first.\n"
	if out != want {
		t.Errorf("got %q, want %q", out, want)
	}
}

func TestConvert_Tree(t *testing.T) {
	path := writeFile(t, "notes.txt", "hello")
	out, err := runCLI(t, "", "convert", "--tree", path)
	if err != nil {
		t.Fatalf("convert --tree: %v", err)
	}
	var got struct {
		Title string         `json:"title"`
		Tree  map[string]any `json:"tree"`
	}
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Title != "notes" || got.Tree["type"] != "doc" {
		t.Errorf("unexpected output: %+v", got)
	}
}

func TestConvert_Unsupported(t *testing.T) {
	if _, err := runCLI(t, "", "convert", "image.png"); err == nil {
		t.Fatal("expected error for unsupported extension")
	}
}

func TestSections_Stdin(t *testing.T) {
	out, err := runCLI(t, "# A\n\none\n\n# B\n\ntwo\n", "sections", "-")
	if err != nil {
		t.Fatalf("sections: %v", err)
	}
	var secs []struct{ Title, Content string }
	if err := json.Unmarshal([]byte(out), &secs); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(secs) != 2 || secs[0].Title != "A" || secs[1].Content != "two" {
		t.Errorf("unexpected sections: %+v", secs)
	}
}

func TestSections_FallbackTitle(t *testing.T) {
	out, err := runCLI(t, "plain text", "sections", "--fallback-title", "Notes", "-")
	if err != nil {
		t.Fatalf("sections: %v", err)
	}
	if !strings.Contains(out, `"title": "Notes"`) {
		t.Errorf("expected fallback title in %s", out)
	}
}

func TestHeadings(t *testing.T) {
	out, err := runCLI(t, "## Setup\n## Setup\n", "headings", "-")
	if err != nil {
		t.Fatalf("headings: %v", err)
	}
	if !strings.Contains(out, `"slug": "setup-2"`) {
		t.Errorf("expected deduplicated slug in %s", out)
	}
}

func TestChunks(t *testing.T) {
	out, err := runCLI(t, "# Guide\n\n## Install\n\nRun the installer.\n", "chunks", "--title", "Manual", "-")
	if err != nil {
		t.Fatalf("chunks: %v", err)
	}
	var chunks []struct {
		Text       string   `json:"text"`
		Breadcrumb []string `json:"breadcrumb"`
	}
	if err := json.Unmarshal([]byte(out), &chunks); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(chunks) != 1 || strings.Join(chunks[0].Breadcrumb, "/") != "Manual/Guide/Install" {
		t.Errorf("unexpected chunks: %+v", chunks)
	}
}

func TestHTML(t *testing.T) {
	out, err := runCLI(t, "## Setup\n\ntext\n", "html", "-")
	if err != nil {
		t.Fatalf("html: %v", err)
	}
	if !strings.Contains(out, `<h2 id="setup">Setup</h2>`) {
		t.Errorf("missing anchored heading in %q", out)
	}
}

func TestDiff(t *testing.T) {
	before := writeFile(t, "before.md", "# A\n\none\n")
	after := writeFile(t, "after.md", "# A\n\ntwo\n")

	out, err := runCLI(t, "", "diff", before, after)
	if err != nil {
		t.Fatalf("diff: %v", err)
	}
	if !strings.Contains(out, "-one") || !strings.Contains(out, "+two") {
		t.Errorf("unexpected diff: %q", out)
	}

	out, err = runCLI(t, "", "diff", "--sections", before, after)
	if err != nil {
		t.Fatalf("diff --sections: %v", err)
	}
	if !strings.Contains(out, `"status": "modified"`) {
		t.Errorf("expected modified section in %s", out)
	}

	out, err = runCLI(t, "", "diff", before, before)
	if err != nil {
		t.Fatalf("diff identical: %v", err)
	}
	if out != "" {
		t.Errorf("expected empty diff for identical files, got %q", out)
	}
}

func TestRun_Errors(t *testing.T) {
	if _, err := runCLI(t, ""); err == nil {
		t.Error("expected usage error with no arguments")
	}
	if _, err := runCLI(t, "", "bogus"); err == nil {
		t.Error("expected error for unknown command")
	}
	if _, err := runCLI(t, "", "diff", "only-one.md"); err == nil {
		t.Error("expected argument count error")
	}
	if _, err := runCLI(t, "", "help"); err != nil {
		t.Errorf("help should succeed, got %v", err)
	}
}
