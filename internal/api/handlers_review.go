package api

import (
	"net/http"

	"github.com/dgallion1/docbridge/internal/review"
	"github.com/dgallion1/docbridge/internal/sections"
)

type diffRequest struct {
	Before        string `json:"before"`
	After         string `json:"after"`
	Context       *int   `json:"context,omitempty"`
	FallbackTitle string `json:"fallback_title,omitempty"`
}

// handleReviewDiff compares two versions of a document's Markdown, both as a
// whole and section by section.
func (s *Server) handleReviewDiff(w http.ResponseWriter, r *http.Request) {
	var req diffRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	opts := review.DefaultOptions()
	if req.Context != nil && *req.Context >= 0 {
		opts.Context = *req.Context
	}

	res, err := review.Diff(req.Before, req.After, opts)
	if err != nil {
		jsonError(w, "diff: "+err.Error(), http.StatusInternalServerError)
		return
	}

	title := req.FallbackTitle
	if title == "" {
		title = s.cfg.FallbackSectionTitle
	}
	changes, err := review.DiffSections(sections.Split(req.Before, title), sections.Split(req.After, title))
	if err != nil {
		jsonError(w, "diff sections: "+err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"diff":     res,
		"sections": changes,
	})
}
