package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgallion1/docbridge/internal/doctree"
	"github.com/dgallion1/docbridge/internal/headings"
	"github.com/dgallion1/docbridge/internal/parser"
	"github.com/dgallion1/docbridge/internal/sections"
	"github.com/dgallion1/docbridge/internal/serialize"
	"github.com/dgallion1/docbridge/internal/stats"
	"github.com/dgallion1/docbridge/internal/store"
)

// Operation names recorded in the stats recorder.
const (
	OpParse     = "parse"
	OpSerialize = "serialize"
	OpSplit     = "split"
	OpStore     = "store"
)

// Worker processes a single document job.
type Worker struct {
	store         store.Store
	stats         *stats.Recorder
	log           *slog.Logger
	parseOpts     parser.Options
	fallbackTitle string
	backoff       func(attempt int) time.Duration
}

func NewWorker(st store.Store, rec *stats.Recorder, log *slog.Logger, parseOpts parser.Options, fallbackTitle string) *Worker {
	if rec == nil {
		rec = stats.NewRecorder(0)
	}
	return &Worker{
		store:         st,
		stats:         rec,
		log:           log,
		parseOpts:     parseOpts,
		fallbackTitle: fallbackTitle,
		backoff:       Backoff,
	}
}

// Process runs the full ingest pipeline for a job: convert the upload to a
// tree, serialize it to Markdown, skip content already stored, split it into
// sections and save them.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID, "doc_id", job.DocID, "filename", job.Filename)
	defer job.releaseFileData()

	// Phase 1: Parse
	job.SetStatus(StatusParsing, "parsing")
	p, err := parser.ForFile(job.Filename, w.parseOpts)
	if err != nil {
		log.Error("unsupported format", "error", err)
		job.AddError(err.Error())
		job.SetStatus(StatusFailed, "parsing")
		return
	}

	var doc *doctree.Document
	err = w.stats.Time(OpParse, func() error {
		var perr error
		doc, perr = p.Parse(bytes.NewReader(job.FileData()), job.Filename)
		return perr
	})
	if err != nil {
		log.Error("parse failed", "error", err)
		job.AddError(fmt.Sprintf("parse: %s", err))
		job.SetStatus(StatusFailed, "parsing")
		return
	}
	title := doc.Title
	if job.Title != "" {
		title = job.Title
	}
	job.SetTitle(title)

	// Phase 2: Serialize
	job.SetStatus(StatusSerializing, "serializing")
	var md string
	_ = w.stats.Time(OpSerialize, func() error {
		md = serialize.Markdown(doc.Root)
		return nil
	})
	hash := ContentHashHex([]byte(md))
	job.SetConverted(len(md), len(headings.Extract(md)), hash)
	log.Info("serialized document", "markdown_bytes", len(md))

	// Phase 2.5: Dedup check
	existing, found, err := w.store.FindByHash(ctx, hash)
	if err != nil {
		log.Warn("dedup check failed, proceeding", "error", err)
	} else if found {
		log.Info("duplicate document, skipping", "existing_doc_id", existing)
		job.MarkDuplicate(existing)
		return
	}

	// Phase 3: Split
	job.SetStatus(StatusSplitting, "splitting")
	var secs []doctree.Section
	_ = w.stats.Time(OpSplit, func() error {
		secs = sections.Split(md, w.fallbackTitle)
		return nil
	})
	job.SetSections(len(secs))
	log.Info("split document", "sections", len(secs))

	// Phase 4: Store
	job.SetStatus(StatusStoring, "storing")
	meta := store.Document{
		ID:          job.DocID,
		Title:       title,
		Filename:    job.Filename,
		ContentHash: hash,
	}
	var stored []store.StoredSection
	err = w.stats.Time(OpStore, func() error {
		return retry(ctx, w.backoff, func() error {
			var serr error
			stored, serr = w.store.SaveSections(ctx, meta, secs)
			return serr
		}, func(attempt int, err error) {
			log.Warn("retryable store error", "attempt", attempt, "error", err)
		})
	})
	if err != nil {
		log.Error("store failed", "error", err)
		job.AddError(fmt.Sprintf("store: %s", err))
		job.SetStatus(StatusFailed, "storing")
		return
	}

	job.SetStored(len(stored))
	log.Info("storage complete", "sections", len(stored))
	job.SetStatus(StatusCompleted, "done")
}
