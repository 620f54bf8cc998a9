// Package embedding keeps journal entry embeddings current: it backfills
// entries that lack a vector and (re)processes individual entries queued
// after create or edit.
package embedding

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/semaphore"

	"github.com/usevoxlog/voxlog/plugin/ai"
	"github.com/usevoxlog/voxlog/plugin/ai/timeout"
	"github.com/usevoxlog/voxlog/store"
)

const (
	defaultBatchLimit = 8
	// batchConcurrency bounds the fan-out against the embedding API.
	batchConcurrency = 3
	queueCapacity    = 256
)

// EntryStore is the narrow store surface the processor consumes.
type EntryStore interface {
	GetJournalEntry(ctx context.Context, find *store.FindJournalEntry) (*store.JournalEntry, error)
	CountJournalEntries(ctx context.Context, find *store.FindJournalEntry) (int, error)
	FindEntriesWithoutEmbedding(ctx context.Context, find *store.FindEntriesWithoutEmbedding) ([]*store.JournalEntry, error)
	CountEntriesWithEmbedding(ctx context.Context, creatorID int32, model string) (int, error)
	UpsertEntryEmbedding(ctx context.Context, embedding *store.EntryEmbedding) (*store.EntryEmbedding, error)
}

// BatchReport accounts for one ProcessMissingEmbeddings call.
// Invariant: Attempted = Succeeded + Failed.
type BatchReport struct {
	Attempted int `json:"attempted"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}

// HistoricalReport accounts for one ProcessAllHistoricalEntries call.
type HistoricalReport struct {
	TotalEntries     int   `json:"totalEntries"`
	ProcessedEntries int   `json:"processedEntries"`
	SkippedEntries   int   `json:"skippedEntries"`
	ErrorEntries     int   `json:"errorEntries"`
	ExecutionTimeMs  int64 `json:"executionTime"`
}

// StatusReport summarizes embedding coverage for a user.
type StatusReport struct {
	TotalEntries      int    `json:"totalEntries"`
	WithEmbeddings    int    `json:"withEmbeddings"`
	NeedsProcessing   int    `json:"needsProcessing"`
	EmbeddingCoverage string `json:"embeddingCoverage"`
}

// Processor generates and stores entry embeddings. Construct one per server
// and share it; all methods are safe for concurrent use.
type Processor struct {
	store    EntryStore
	embedder ai.EmbeddingService
	model    string
	queue    chan int32
}

// NewProcessor creates an embedding processor for the given model.
func NewProcessor(entryStore EntryStore, embedder ai.EmbeddingService, model string) *Processor {
	return &Processor{
		store:    entryStore,
		embedder: embedder,
		model:    model,
		queue:    make(chan int32, queueCapacity),
	}
}

// Model returns the embedding model the processor writes.
func (p *Processor) Model() string {
	return p.model
}

// Queue exposes the pending entry ids for the background runner to drain.
func (p *Processor) Queue() <-chan int32 {
	return p.queue
}

// QueueEntry schedules a single entry for (re)embedding. Fire-and-forget:
// when the queue is full the id is dropped and the periodic sweep picks the
// entry up later.
func (p *Processor) QueueEntry(entryID int32) {
	select {
	case p.queue <- entryID:
	default:
		slog.Warn("embedding queue full, dropping entry", "entryID", entryID)
	}
}

// ProcessMissingEmbeddings embeds up to batchLimit of the user's entries that
// lack an embedding. One entry's failure never aborts the batch; failures are
// counted and logged. Only infrastructure errors (the store listing itself
// failing) are returned.
func (p *Processor) ProcessMissingEmbeddings(ctx context.Context, userID int32, batchLimit int) (*BatchReport, error) {
	if batchLimit <= 0 {
		batchLimit = defaultBatchLimit
	}

	pending, err := p.store.FindEntriesWithoutEmbedding(ctx, &store.FindEntriesWithoutEmbedding{
		Model:     p.model,
		CreatorID: &userID,
		Limit:     batchLimit,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to find entries without embedding")
	}

	succeeded, failed := p.embedEntries(ctx, pending)
	return &BatchReport{
		Attempted: len(pending),
		Succeeded: succeeded,
		Failed:    failed,
	}, nil
}

// ProcessAllHistoricalEntries embeds every entry of the user that is still
// missing an embedding. Entries already embedded count as skipped, so the
// operation is idempotent: an immediate re-run processes zero entries.
func (p *Processor) ProcessAllHistoricalEntries(ctx context.Context, userID int32) (*HistoricalReport, error) {
	start := time.Now()

	rowStatus := store.Normal
	total, err := p.store.CountJournalEntries(ctx, &store.FindJournalEntry{
		CreatorID: &userID,
		RowStatus: &rowStatus,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to count journal entries")
	}

	report := &HistoricalReport{TotalEntries: total}
	if total == 0 {
		report.ExecutionTimeMs = time.Since(start).Milliseconds()
		return report, nil
	}

	pending, err := p.store.FindEntriesWithoutEmbedding(ctx, &store.FindEntriesWithoutEmbedding{
		Model:     p.model,
		CreatorID: &userID,
		Limit:     total,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to find entries without embedding")
	}

	succeeded, failed := p.embedEntries(ctx, pending)
	report.ProcessedEntries = succeeded
	report.ErrorEntries = failed
	report.SkippedEntries = total - len(pending)
	report.ExecutionTimeMs = time.Since(start).Milliseconds()

	slog.Info("historical embedding run finished",
		"userID", userID,
		"total", report.TotalEntries,
		"processed", report.ProcessedEntries,
		"skipped", report.SkippedEntries,
		"errors", report.ErrorEntries,
		"elapsed", time.Since(start))
	return report, nil
}

// SweepMissing embeds up to limit entries lacking an embedding across all
// users. Used by the background runner; returns how many entries it found
// and how many succeeded, so the caller can tell progress from a stuck batch.
func (p *Processor) SweepMissing(ctx context.Context, limit int) (found, succeeded int, err error) {
	if limit <= 0 {
		limit = defaultBatchLimit
	}
	pending, err := p.store.FindEntriesWithoutEmbedding(ctx, &store.FindEntriesWithoutEmbedding{
		Model: p.model,
		Limit: limit,
	})
	if err != nil {
		return 0, 0, errors.Wrap(err, "failed to find entries without embedding")
	}
	succeeded, _ = p.embedEntries(ctx, pending)
	return len(pending), succeeded, nil
}

// ProcessEntry embeds a single entry by id, overwriting any existing vector.
// Used for queued entries after create or edit.
func (p *Processor) ProcessEntry(ctx context.Context, entryID int32) error {
	entry, err := p.store.GetJournalEntry(ctx, &store.FindJournalEntry{ID: &entryID})
	if err != nil {
		return errors.Wrap(err, "failed to load entry")
	}
	if entry == nil {
		return errors.Errorf("entry %d not found", entryID)
	}
	return p.embedEntry(ctx, entry)
}

// Status reports embedding coverage for a user. Coverage is rendered to one
// decimal place; an empty journal reports "0%".
func (p *Processor) Status(ctx context.Context, userID int32) (*StatusReport, error) {
	rowStatus := store.Normal
	total, err := p.store.CountJournalEntries(ctx, &store.FindJournalEntry{
		CreatorID: &userID,
		RowStatus: &rowStatus,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to count journal entries")
	}

	withEmbeddings, err := p.store.CountEntriesWithEmbedding(ctx, userID, p.model)
	if err != nil {
		return nil, errors.Wrap(err, "failed to count entries with embedding")
	}

	coverage := "0%"
	if total > 0 {
		coverage = fmt.Sprintf("%.1f%%", float64(withEmbeddings)/float64(total)*100)
	}

	return &StatusReport{
		TotalEntries:      total,
		WithEmbeddings:    withEmbeddings,
		NeedsProcessing:   total - withEmbeddings,
		EmbeddingCoverage: coverage,
	}, nil
}

// embedEntries fans out over the batch with bounded concurrency. Per-entry
// failures are isolated: they are logged and counted, never propagated.
func (p *Processor) embedEntries(ctx context.Context, entries []*store.JournalEntry) (succeeded, failed int) {
	if len(entries) == 0 {
		return 0, 0
	}

	sem := semaphore.NewWeighted(batchConcurrency)
	var wg sync.WaitGroup
	var okCount, errCount atomic.Int32

	for _, entry := range entries {
		if err := sem.Acquire(ctx, 1); err != nil {
			// Context cancelled: everything not yet started counts as failed.
			errCount.Add(1)
			continue
		}
		wg.Add(1)
		go func(e *store.JournalEntry) {
			defer wg.Done()
			defer sem.Release(1)
			if err := p.embedEntry(ctx, e); err != nil {
				slog.Error("failed to embed entry", "entryID", e.ID, "error", err)
				errCount.Add(1)
				return
			}
			okCount.Add(1)
		}(entry)
	}
	wg.Wait()

	return int(okCount.Load()), int(errCount.Load())
}

func (p *Processor) embedEntry(ctx context.Context, entry *store.JournalEntry) error {
	embedCtx, cancel := context.WithTimeout(ctx, timeout.Embedding)
	defer cancel()

	vector, err := p.embedder.Embed(embedCtx, embeddingText(entry))
	if err != nil {
		return errors.Wrap(err, "embedding generation failed")
	}

	if _, err := p.store.UpsertEntryEmbedding(ctx, &store.EntryEmbedding{
		EntryID:   entry.ID,
		Model:     p.model,
		Embedding: vector,
	}); err != nil {
		return errors.Wrap(err, "failed to store embedding")
	}
	return nil
}

// embeddingText builds the text fed to the embedding model: the title, when
// present, carries signal worth indexing alongside the content.
func embeddingText(entry *store.JournalEntry) string {
	if entry.Title != nil && *entry.Title != "" {
		return *entry.Title + "\n\n" + entry.Content
	}
	return entry.Content
}
