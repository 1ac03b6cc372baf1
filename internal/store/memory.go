package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dgallion1/docbridge/internal/doctree"
)

// Memory is an in-process Store. Values are copied in and out.
type Memory struct {
	mu       sync.RWMutex
	docs     map[string]Document
	sections map[string][]StoredSection
	now      func() time.Time
}

func NewMemory() *Memory {
	return &Memory{
		docs:     make(map[string]Document),
		sections: make(map[string][]StoredSection),
		now:      time.Now,
	}
}

func (m *Memory) SaveSections(_ context.Context, doc Document, sections []doctree.Section) ([]StoredSection, error) {
	now := m.now().UTC()
	stored := make([]StoredSection, len(sections))
	for i, s := range sections {
		stored[i] = StoredSection{
			ID:        uuid.NewString(),
			DocID:     doc.ID,
			Order:     i,
			Title:     s.Title,
			Content:   s.Content,
			UpdatedAt: now,
		}
	}
	doc.Sections = len(stored)
	doc.UpdatedAt = now

	m.mu.Lock()
	m.docs[doc.ID] = doc
	m.sections[doc.ID] = stored
	m.mu.Unlock()

	return append([]StoredSection(nil), stored...), nil
}

func (m *Memory) ListSections(_ context.Context, docID string) ([]StoredSection, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if _, ok := m.docs[docID]; !ok {
		return nil, ErrNotFound
	}
	return append([]StoredSection(nil), m.sections[docID]...), nil
}

func (m *Memory) GetDocument(_ context.Context, docID string) (Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	doc, ok := m.docs[docID]
	if !ok {
		return Document{}, ErrNotFound
	}
	return doc, nil
}

// ListDocuments returns documents most recently updated first.
func (m *Memory) ListDocuments(_ context.Context) ([]Document, error) {
	m.mu.RLock()
	out := make([]Document, 0, len(m.docs))
	for _, d := range m.docs {
		out = append(out, d)
	}
	m.mu.RUnlock()
	sortDocuments(out)
	return out, nil
}

func (m *Memory) FindByHash(_ context.Context, hash string) (string, bool, error) {
	if hash == "" {
		return "", false, nil
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for id, d := range m.docs {
		if d.ContentHash == hash {
			return id, true, nil
		}
	}
	return "", false, nil
}

func (m *Memory) DeleteDocument(_ context.Context, docID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.docs[docID]; !ok {
		return ErrNotFound
	}
	delete(m.docs, docID)
	delete(m.sections, docID)
	return nil
}

func sortDocuments(docs []Document) {
	sort.Slice(docs, func(i, j int) bool {
		if !docs[i].UpdatedAt.Equal(docs[j].UpdatedAt) {
			return docs[i].UpdatedAt.After(docs[j].UpdatedAt)
		}
		return docs[i].ID < docs[j].ID
	})
}
