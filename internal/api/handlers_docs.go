package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/dgallion1/docbridge/internal/chunker"
	"github.com/dgallion1/docbridge/internal/doctree"
	"github.com/dgallion1/docbridge/internal/headings"
	"github.com/dgallion1/docbridge/internal/render"
	"github.com/dgallion1/docbridge/internal/store"
)

// handleListDocuments lists every stored document, newest first.
func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := s.orchestrator.Store().ListDocuments(r.Context())
	if err != nil {
		jsonError(w, "failed to list documents: "+err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"documents": docs})
}

// loadSections fetches a document and its sections, writing the error
// response itself when it fails.
func (s *Server) loadSections(w http.ResponseWriter, r *http.Request) (store.Document, []store.StoredSection, bool) {
	docID := chi.URLParam(r, "docID")
	st := s.orchestrator.Store()
	doc, err := st.GetDocument(r.Context(), docID)
	if err == nil {
		var secs []store.StoredSection
		secs, err = st.ListSections(r.Context(), docID)
		if err == nil {
			return doc, secs, true
		}
	}
	if errors.Is(err, store.ErrNotFound) {
		jsonError(w, "document not found", http.StatusNotFound)
	} else {
		jsonError(w, "failed to load document: "+err.Error(), http.StatusInternalServerError)
	}
	return store.Document{}, nil, false
}

func (s *Server) handleDocumentSections(w http.ResponseWriter, r *http.Request) {
	doc, secs, ok := s.loadSections(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"document": doc,
		"sections": secs,
	})
}

type sectionHeadings struct {
	ID       string            `json:"id"`
	Title    string            `json:"title"`
	Headings []doctree.Heading `json:"headings"`
}

// handleDocumentHeadings lists the anchors of each section. Sections render
// on their own, so slugs are unique per section.
func (s *Server) handleDocumentHeadings(w http.ResponseWriter, r *http.Request) {
	doc, secs, ok := s.loadSections(w, r)
	if !ok {
		return
	}
	out := make([]sectionHeadings, 0, len(secs))
	for _, sec := range secs {
		out = append(out, sectionHeadings{
			ID:       sec.ID,
			Title:    sec.Title,
			Headings: headings.Extract(sec.Content),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"doc_id": doc.ID, "sections": out})
}

// handleDocumentChunks chunks the stored sections. chunk_size and overlap
// query parameters override the configured defaults.
func (s *Server) handleDocumentChunks(w http.ResponseWriter, r *http.Request) {
	doc, secs, ok := s.loadSections(w, r)
	if !ok {
		return
	}
	cfg := chunker.Config{
		ChunkSize:    s.cfg.ChunkSize,
		ChunkOverlap: s.cfg.ChunkOverlap,
	}
	if n, err := strconv.Atoi(r.URL.Query().Get("chunk_size")); err == nil && n > 0 {
		cfg.ChunkSize = n
	}
	if n, err := strconv.Atoi(r.URL.Query().Get("overlap")); err == nil && n >= 0 {
		cfg.ChunkOverlap = n
	}

	plain := make([]doctree.Section, len(secs))
	for i, sec := range secs {
		plain[i] = sec.Section()
	}
	chunks := chunker.ChunkSections(doc.Title, plain, cfg)
	writeJSON(w, http.StatusOK, map[string]any{"doc_id": doc.ID, "chunks": chunks})
}

type sectionHTML struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	HTML  string `json:"html"`
}

func (s *Server) handleDocumentHTML(w http.ResponseWriter, r *http.Request) {
	doc, secs, ok := s.loadSections(w, r)
	if !ok {
		return
	}
	out := make([]sectionHTML, 0, len(secs))
	for _, sec := range secs {
		html, err := render.HTML(sec.Content)
		if err != nil {
			jsonError(w, "render section "+sec.ID+": "+err.Error(), http.StatusInternalServerError)
			return
		}
		out = append(out, sectionHTML{ID: sec.ID, Title: sec.Title, HTML: html})
	}
	writeJSON(w, http.StatusOK, map[string]any{"doc_id": doc.ID, "sections": out})
}

// handleDeleteDocument deletes a document, its sections and its hash index
// entry.
func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	docID := chi.URLParam(r, "docID")
	err := s.orchestrator.Store().DeleteDocument(r.Context(), docID)
	if errors.Is(err, store.ErrNotFound) {
		jsonError(w, "document not found", http.StatusNotFound)
		return
	}
	if err != nil {
		jsonError(w, "failed to delete document: "+err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": docID})
}
