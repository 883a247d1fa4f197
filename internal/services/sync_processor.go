package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/haya4M/cattle-fin-mobile/internal/sheets"
	"github.com/haya4M/cattle-fin-mobile/internal/storage"
)

// SyncProcessorConfig holds configuration for the sync processor
type SyncProcessorConfig struct {
	// PollInterval is how often to check for pending items (default: 10s)
	PollInterval time.Duration

	// BatchSize is the max number of items to process per poll cycle (default: 10)
	BatchSize int

	// MaxRetries is the maximum retry attempts before marking as failed (default: 3)
	MaxRetries int
}

// DefaultSyncProcessorConfig returns sensible defaults
func DefaultSyncProcessorConfig() SyncProcessorConfig {
	return SyncProcessorConfig{
		PollInterval: 10 * time.Second,
		BatchSize:    10,
		MaxRetries:   3,
	}
}

// SyncProcessor re-drives pending spreadsheet mirroring from the database.
// The AMQP consumer handles the fast path; this poller catches messages that
// were lost or nacked past requeue.
type SyncProcessor struct {
	storage *storage.SQLiteRepository
	sheets  sheets.TransactionAppender
	config  SyncProcessorConfig

	// Lifecycle management
	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewSyncProcessor creates a new sync processor
func NewSyncProcessor(
	storage *storage.SQLiteRepository,
	appender sheets.TransactionAppender,
	config SyncProcessorConfig,
) *SyncProcessor {
	return &SyncProcessor{
		storage: storage,
		sheets:  appender,
		config:  config,
	}
}

// Start begins the processing loop. Returns an error if already running.
func (p *SyncProcessor) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return fmt.Errorf("sync processor is already running")
	}
	p.running = true
	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})
	p.mu.Unlock()

	go p.runLoop(ctx)

	slog.InfoContext(ctx, "Sync processor started",
		"poll_interval", p.config.PollInterval,
		"batch_size", p.config.BatchSize)

	return nil
}

// Stop gracefully stops the processor and waits for completion.
func (p *SyncProcessor) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	p.mu.Unlock()

	// Signal stop
	close(p.stopCh)

	// Wait for completion or context cancellation
	select {
	case <-p.doneCh:
		slog.InfoContext(ctx, "Sync processor stopped gracefully")
	case <-ctx.Done():
		slog.WarnContext(ctx, "Sync processor stop timed out")
		return ctx.Err()
	}

	p.mu.Lock()
	p.running = false
	p.mu.Unlock()

	return nil
}

// IsRunning returns whether the processor is currently running
func (p *SyncProcessor) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// runLoop is the main processing loop
func (p *SyncProcessor) runLoop(ctx context.Context) {
	defer close(p.doneCh)

	pollTicker := time.NewTicker(p.config.PollInterval)
	defer pollTicker.Stop()

	// Process immediately on startup
	p.processBatch(ctx)

	for {
		select {
		case <-p.stopCh:
			return
		case <-ctx.Done():
			return
		case <-pollTicker.C:
			p.processBatch(ctx)
		}
	}
}

// processBatch processes a single batch of pending items
func (p *SyncProcessor) processBatch(ctx context.Context) {
	items, err := p.storage.GetPendingSyncTransactions(ctx, p.config.BatchSize)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to fetch pending sync transactions", "error", err)
		return
	}

	if len(items) == 0 {
		return
	}

	slog.DebugContext(ctx, "Processing sync batch", "count", len(items))

	for _, item := range items {
		// Check if we should stop
		select {
		case <-p.stopCh:
			return
		case <-ctx.Done():
			return
		default:
		}

		if err := p.processItem(ctx, item.ID); err != nil {
			p.handleFailure(ctx, item.ID, err)
		}
	}
}

// processItem mirrors one transaction to the spreadsheet and marks it synced.
func (p *SyncProcessor) processItem(ctx context.Context, id int64) error {
	tx, err := p.storage.GetTransaction(ctx, id)
	if err != nil {
		return fmt.Errorf("get transaction %d: %w", id, err)
	}

	ref, err := p.sheets.Append(ctx, tx)
	if err != nil {
		return fmt.Errorf("append to sheets: %w", err)
	}

	if err := p.storage.MarkSynced(ctx, id); err != nil {
		slog.WarnContext(ctx, "Failed to mark transaction as synced",
			"id", id, "error", err)
		// Don't fail the item - the mirror write actually succeeded
	}

	slog.InfoContext(ctx, "Mirrored transaction to spreadsheet",
		"id", id,
		"sheets_ref", ref)

	return nil
}

// handleFailure handles a failed sync attempt with retry accounting.
func (p *SyncProcessor) handleFailure(ctx context.Context, id int64, processErr error) {
	attempts, err := p.storage.IncrementSyncAttempts(ctx, id)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to increment sync attempts",
			"id", id, "error", err)
		return
	}

	slog.WarnContext(ctx, "Sync processing failed",
		"id", id,
		"attempt", attempts,
		"error", processErr)

	if attempts >= int64(p.config.MaxRetries) {
		if err := p.storage.MarkSyncError(ctx, id); err != nil {
			slog.ErrorContext(ctx, "Failed to mark transaction sync error",
				"id", id, "error", err)
		}

		slog.ErrorContext(ctx, "Sync failed permanently after max retries",
			"id", id,
			"attempts", attempts)
	}
}
