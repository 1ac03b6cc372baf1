package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dgallion1/docbridge/internal/doctree"
	"github.com/dgallion1/docbridge/internal/pathstore"
)

// Pathstore keeps documents in a pathstore key space:
//
//	{prefix}/docs/{docID}/meta
//	{prefix}/docs/{docID}/sections/{order}
//	{prefix}/by_hash/{hash}
type Pathstore struct {
	client        *pathstore.Client
	prefix        string
	maxConcurrent int
	now           func() time.Time
}

func NewPathstore(client *pathstore.Client, prefix string, maxConcurrent int) *Pathstore {
	if prefix == "" {
		prefix = "docbridge"
	}
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	return &Pathstore{
		client:        client,
		prefix:        strings.Trim(prefix, "/"),
		maxConcurrent: maxConcurrent,
		now:           time.Now,
	}
}

type hashEntry struct {
	DocID string `json:"doc_id"`
}

func (p *Pathstore) docKey(docID string) string      { return p.prefix + "/docs/" + docID }
func (p *Pathstore) hashKey(hash string) string      { return p.prefix + "/by_hash/" + hash }
func (p *Pathstore) sectionsKey(docID string) string { return p.docKey(docID) + "/sections" }

func (p *Pathstore) SaveSections(ctx context.Context, doc Document, sections []doctree.Section) ([]StoredSection, error) {
	prev, err := p.GetDocument(ctx, doc.ID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	if err := p.client.DeleteNode(ctx, p.sectionsKey(doc.ID), true); err != nil {
		return nil, fmt.Errorf("clear sections: %w", err)
	}

	now := p.now().UTC()
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

	sem := make(chan struct{}, p.maxConcurrent)
	errs := make(chan error, len(stored))
	for _, s := range stored {
		sem <- struct{}{}
		go func(s StoredSection) {
			defer func() { <-sem }()
			key := fmt.Sprintf("%s/%04d", p.sectionsKey(doc.ID), s.Order)
			errs <- p.client.PutNode(ctx, key, pathstore.NodeRequest{
				Value:  s,
				Source: "docbridge:" + doc.ID,
			})
		}(s)
	}
	var firstErr error
	for range stored {
		if err := <-errs; err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if firstErr != nil {
		return nil, fmt.Errorf("store sections: %w", firstErr)
	}

	doc.Sections = len(stored)
	doc.UpdatedAt = now
	if err := p.client.PutNode(ctx, p.docKey(doc.ID)+"/meta", pathstore.NodeRequest{
		Value:  doc,
		Source: "docbridge:" + doc.ID,
	}); err != nil {
		return nil, fmt.Errorf("store meta: %w", err)
	}

	if prev.ContentHash != "" && prev.ContentHash != doc.ContentHash {
		if err := p.client.DeleteNode(ctx, p.hashKey(prev.ContentHash), false); err != nil {
			return nil, fmt.Errorf("drop stale hash index: %w", err)
		}
	}
	if doc.ContentHash != "" {
		if err := p.client.PutNode(ctx, p.hashKey(doc.ContentHash), pathstore.NodeRequest{
			Value:  hashEntry{DocID: doc.ID},
			Source: "docbridge:" + doc.ID,
		}); err != nil {
			return nil, fmt.Errorf("store hash index: %w", err)
		}
	}
	return stored, nil
}

func (p *Pathstore) ListSections(ctx context.Context, docID string) ([]StoredSection, error) {
	if _, err := p.GetDocument(ctx, docID); err != nil {
		return nil, err
	}
	nodes, err := p.client.ListChildren(ctx, p.sectionsKey(docID), 0)
	if err != nil {
		return nil, err
	}
	out := make([]StoredSection, 0, len(nodes))
	for _, n := range nodes {
		var s StoredSection
		if err := n.Decode(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out, nil
}

func (p *Pathstore) GetDocument(ctx context.Context, docID string) (Document, error) {
	node, err := p.client.GetNode(ctx, p.docKey(docID)+"/meta")
	if errors.Is(err, pathstore.ErrNotFound) {
		return Document{}, ErrNotFound
	}
	if err != nil {
		return Document{}, err
	}
	var doc Document
	if err := node.Decode(&doc); err != nil {
		return Document{}, err
	}
	return doc, nil
}

// ListDocuments scans the docs prefix and keeps only meta nodes. Key paths may
// come back with "/" or "." separators.
func (p *Pathstore) ListDocuments(ctx context.Context) ([]Document, error) {
	nodes, err := p.client.ListChildren(ctx, p.prefix+"/docs", 0)
	if err != nil {
		return nil, err
	}
	var out []Document
	for _, n := range nodes {
		if !strings.HasSuffix(n.Key, "/meta") && !strings.HasSuffix(n.Key, ".meta") {
			continue
		}
		var doc Document
		if err := n.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	sortDocuments(out)
	return out, nil
}

func (p *Pathstore) FindByHash(ctx context.Context, hash string) (string, bool, error) {
	if hash == "" {
		return "", false, nil
	}
	node, err := p.client.GetNode(ctx, p.hashKey(hash))
	if errors.Is(err, pathstore.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	var entry hashEntry
	if err := node.Decode(&entry); err != nil {
		return "", false, err
	}
	return entry.DocID, entry.DocID != "", nil
}

func (p *Pathstore) DeleteDocument(ctx context.Context, docID string) error {
	doc, err := p.GetDocument(ctx, docID)
	if err != nil {
		return err
	}
	if err := p.client.DeleteNode(ctx, p.docKey(docID), true); err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	if doc.ContentHash != "" {
		if err := p.client.DeleteNode(ctx, p.hashKey(doc.ContentHash), false); err != nil {
			return fmt.Errorf("delete hash index: %w", err)
		}
	}
	return nil
}
