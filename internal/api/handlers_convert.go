package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/dgallion1/docbridge/internal/doctree"
	"github.com/dgallion1/docbridge/internal/headings"
	"github.com/dgallion1/docbridge/internal/parser"
	"github.com/dgallion1/docbridge/internal/sections"
	"github.com/dgallion1/docbridge/internal/serialize"
	"github.com/dgallion1/docbridge/internal/textlines"
)

// Operation names recorded for synchronous conversions.
const (
	opConvertMarkdown = "convert_markdown"
	opConvertTree     = "convert_tree"
	opConvertLines    = "convert_lines"
)

type markdownRequest struct {
	Markdown      string `json:"markdown"`
	FallbackTitle string `json:"fallback_title,omitempty"`
}

type linesRequest struct {
	Fragments []textlines.Fragment `json:"fragments"`
	LineGap   float64              `json:"line_gap,omitempty"`
}

// decodeBody reads a JSON request body of at most MaxUploadBytes.
func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		jsonError(w, "invalid JSON body: "+err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}

// handleConvertMarkdown serializes an editor tree to Markdown.
func (s *Server) handleConvertMarkdown(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		jsonError(w, "failed to read body: "+err.Error(), http.StatusBadRequest)
		return
	}
	root, err := doctree.Decode(body)
	if err != nil {
		jsonError(w, "invalid document tree: "+err.Error(), http.StatusBadRequest)
		return
	}

	var md string
	_ = s.orchestrator.Stats().Time(opConvertMarkdown, func() error {
		md = serialize.Markdown(root)
		return nil
	})
	writeJSON(w, http.StatusOK, map[string]any{
		"markdown": md,
		"headings": headings.FromTree(root),
	})
}

// handleConvertTree converts Markdown, or an uploaded file of any supported
// type, into an editor tree.
func (s *Server) handleConvertTree(w http.ResponseWriter, r *http.Request) {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		s.convertUpload(w, r)
		return
	}
	var req markdownRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	var root *doctree.Node
	_ = s.orchestrator.Stats().Time(opConvertTree, func() error {
		root = parser.FromMarkdown([]byte(req.Markdown))
		return nil
	})
	writeJSON(w, http.StatusOK, map[string]any{
		"tree":     root,
		"headings": headings.Extract(req.Markdown),
	})
}

func (s *Server) convertUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+1024*1024)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		jsonError(w, "file is required: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer file.Close()

	filename := sanitizeFilename(header.Filename)
	p, err := parser.ForFile(filename, s.orchestrator.ParserOptions())
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	data, err := s.readUpload(file)
	if errors.Is(err, errTooLarge) {
		jsonError(w, fmt.Sprintf("file exceeds max size (%d bytes)", s.cfg.MaxUploadBytes), http.StatusRequestEntityTooLarge)
		return
	}
	if err != nil {
		jsonError(w, "failed to read file", http.StatusInternalServerError)
		return
	}

	var doc *doctree.Document
	err = s.orchestrator.Stats().Time(opConvertTree, func() error {
		var perr error
		doc, perr = p.Parse(bytes.NewReader(data), filename)
		return perr
	})
	if err != nil {
		jsonError(w, "convert: "+err.Error(), http.StatusUnprocessableEntity)
		return
	}
	md := serialize.Markdown(doc.Root)
	writeJSON(w, http.StatusOK, map[string]any{
		"title":    doc.Title,
		"tree":     doc.Root,
		"markdown": md,
		"headings": headings.Extract(md),
	})
}

func (s *Server) handleConvertHeadings(w http.ResponseWriter, r *http.Request) {
	var req markdownRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"headings": headings.Extract(req.Markdown)})
}

func (s *Server) handleConvertSections(w http.ResponseWriter, r *http.Request) {
	var req markdownRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	title := req.FallbackTitle
	if title == "" {
		title = s.cfg.FallbackSectionTitle
	}
	writeJSON(w, http.StatusOK, map[string]any{"sections": sections.Split(req.Markdown, title)})
}

// handleConvertLines rebuilds text lines from positioned fragments.
func (s *Server) handleConvertLines(w http.ResponseWriter, r *http.Request) {
	var req linesRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	gap := req.LineGap
	if gap <= 0 {
		gap = s.cfg.LineGap
	}
	var lines []string
	_ = s.orchestrator.Stats().Time(opConvertLines, func() error {
		lines = textlines.Reconstruct(req.Fragments, textlines.Options{LineGap: gap})
		return nil
	})
	writeJSON(w, http.StatusOK, map[string]any{
		"lines": lines,
		"text":  textlines.Join(lines),
	})
}
