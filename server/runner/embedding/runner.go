// Package embedding runs the background maintenance loop for entry
// embeddings: it drains the processor's queue and periodically sweeps for
// entries that still lack a vector.
package embedding

import (
	"context"
	"log/slog"
	"time"

	"github.com/usevoxlog/voxlog/server/service/embedding"
)

type Runner struct {
	processor *embedding.Processor
	interval  time.Duration
	batchSize int
}

// NewRunner creates an embedding runner. The small batch size and long
// interval keep resource usage low on small instances.
func NewRunner(processor *embedding.Processor) *Runner {
	return &Runner{
		processor: processor,
		interval:  2 * time.Minute,
		batchSize: 8,
	}
}

// Run starts the background loop. It returns when ctx is cancelled.
func (r *Runner) Run(ctx context.Context) {
	// Sweep once on startup so a fresh instance catches up immediately.
	r.sweep(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case entryID := <-r.processor.Queue():
			if err := r.processor.ProcessEntry(ctx, entryID); err != nil {
				slog.Error("failed to process queued entry", "entryID", entryID, "error", err)
			}
		case <-ticker.C:
			r.sweep(ctx)
		case <-ctx.Done():
			slog.Info("embedding runner stopped")
			return
		}
	}
}

// RunOnce performs a single sweep (for manual trigger).
func (r *Runner) RunOnce(ctx context.Context) {
	r.sweep(ctx)
}

func (r *Runner) sweep(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		found, succeeded, err := r.processor.SweepMissing(ctx, r.batchSize)
		if err != nil {
			slog.Error("embedding sweep failed", "error", err)
			return
		}
		// Stop on a short batch, or when a full batch made no progress
		// (e.g. embedding API outage) to avoid spinning on the same entries.
		if found < r.batchSize || succeeded == 0 {
			return
		}
	}
}
