// Package store persists the sections produced by ingestion.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/dgallion1/docbridge/internal/doctree"
)

// ErrNotFound is returned when a document does not exist.
var ErrNotFound = errors.New("document not found")

// Document describes one ingested source.
type Document struct {
	ID          string    `json:"doc_id"`
	Title       string    `json:"title"`
	Filename    string    `json:"filename"`
	ContentHash string    `json:"content_hash"`
	Sections    int       `json:"sections"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// StoredSection is a persisted section with its identity and ordering key.
type StoredSection struct {
	ID        string    `json:"id"`
	DocID     string    `json:"doc_id"`
	Order     int       `json:"order"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Section returns the section without its storage fields.
func (s StoredSection) Section() doctree.Section {
	return doctree.Section{Title: s.Title, Content: s.Content}
}

// Store is the persistence collaborator for sections.
type Store interface {
	// SaveSections replaces every section of doc.ID with sections, in order.
	SaveSections(ctx context.Context, doc Document, sections []doctree.Section) ([]StoredSection, error)
	ListSections(ctx context.Context, docID string) ([]StoredSection, error)
	GetDocument(ctx context.Context, docID string) (Document, error)
	ListDocuments(ctx context.Context) ([]Document, error)
	// FindByHash returns the ID of a document with the given content hash.
	FindByHash(ctx context.Context, hash string) (string, bool, error)
	DeleteDocument(ctx context.Context, docID string) error
}
