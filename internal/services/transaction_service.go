package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/haya4M/cattle-fin-mobile/internal/amqp"
	"github.com/haya4M/cattle-fin-mobile/internal/core"
	"github.com/haya4M/cattle-fin-mobile/internal/sheets"
	"github.com/haya4M/cattle-fin-mobile/internal/storage"
)

// TransactionService orchestrates ledger writes across SQLite, AMQP, and the
// spreadsheet mirror.
type TransactionService struct {
	storage         *storage.SQLiteRepository
	amqpClient      *amqp.Client
	headcountMirror sheets.HeadcountAppender
}

func NewTransactionService(storage *storage.SQLiteRepository, amqpClient *amqp.Client, headcountMirror sheets.HeadcountAppender) *TransactionService {
	return &TransactionService{
		storage:         storage,
		amqpClient:      amqpClient,
		headcountMirror: headcountMirror,
	}
}

// CreateTransaction saves a transaction locally and publishes a sync message.
// The local save is the source of truth; a failed publish is logged and the
// poller re-drives the mirror later.
func (s *TransactionService) CreateTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	// Save to SQLite first (fast, reliable)
	saved, err := s.storage.CreateTransaction(ctx, tx)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("save transaction: %w", err)
	}

	// Publish async sync message (non-blocking, version 1 for new transaction)
	if err := s.publishSyncMessage(ctx, saved.ID, 1); err != nil {
		slog.ErrorContext(ctx, "Failed to publish sync message",
			"id", saved.ID, "error", err)
		// Don't fail the request - transaction is saved locally
	}

	return saved, nil
}

// RecordHeadcount upserts the herd size for a month and mirrors it to the
// spreadsheet when a mirror is configured. The local upsert is the source of
// truth; a failed mirror is logged and the next upsert re-sends the month.
func (s *TransactionService) RecordHeadcount(ctx context.Context, hc core.HeadcountRecord) error {
	if err := s.storage.UpsertHeadcount(ctx, hc); err != nil {
		return fmt.Errorf("record headcount: %w", err)
	}

	if s.headcountMirror != nil {
		if _, err := s.headcountMirror.AppendHeadcount(ctx, hc); err != nil {
			slog.ErrorContext(ctx, "Failed to mirror headcount",
				"month", hc.MonthKey, "error", err)
			// Don't fail the request - headcount is saved locally
		}
	}

	return nil
}

// ListRecentTransactions returns the newest ledger entries, up to limit.
func (s *TransactionService) ListRecentTransactions(ctx context.Context, limit int) ([]core.Transaction, error) {
	return s.storage.ListRecentTransactions(ctx, limit)
}

// ListHeadcounts returns all monthly herd-size records.
func (s *TransactionService) ListHeadcounts(ctx context.Context) ([]core.HeadcountRecord, error) {
	return s.storage.ListHeadcounts(ctx)
}

// ListCategories returns the known entry categories.
func (s *TransactionService) ListCategories(ctx context.Context) ([]string, error) {
	return s.storage.ListCategories(ctx)
}

// ListTransactions returns all entries ordered by date, for export.
func (s *TransactionService) ListTransactions(ctx context.Context) ([]core.Transaction, error) {
	return s.storage.ListTransactions(ctx)
}

func (s *TransactionService) publishSyncMessage(ctx context.Context, id, version int64) error {
	if s.amqpClient == nil {
		slog.WarnContext(ctx, "AMQP client not available, skipping sync message")
		return nil
	}

	return s.amqpClient.PublishTransactionSync(ctx, id, version)
}

// Close closes both storage and AMQP connections.
func (s *TransactionService) Close() error {
	var errs []error

	if s.storage != nil {
		if err := s.storage.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}

	if s.amqpClient != nil {
		if err := s.amqpClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close transaction service: %v", errs)
	}

	return nil
}
