package services

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/haya4M/cattle-fin-mobile/internal/core"
	"github.com/haya4M/cattle-fin-mobile/internal/storage"
)

func TestNewSyncProcessor(t *testing.T) {
	config := DefaultSyncProcessorConfig()
	processor := NewSyncProcessor(nil, nil, config)

	if processor == nil {
		t.Error("NewSyncProcessor should return non-nil processor")
	}
	if processor.storage != nil {
		t.Error("storage should be nil when passed nil")
	}
	if processor.sheets != nil {
		t.Error("sheets should be nil when passed nil")
	}
}

func TestDefaultSyncProcessorConfig(t *testing.T) {
	config := DefaultSyncProcessorConfig()

	if config.PollInterval != 10*time.Second {
		t.Errorf("expected PollInterval 10s, got %v", config.PollInterval)
	}
	if config.BatchSize != 10 {
		t.Errorf("expected BatchSize 10, got %d", config.BatchSize)
	}
	if config.MaxRetries != 3 {
		t.Errorf("expected MaxRetries 3, got %d", config.MaxRetries)
	}
}

func TestSyncProcessor_IsRunning(t *testing.T) {
	config := DefaultSyncProcessorConfig()
	processor := NewSyncProcessor(nil, nil, config)

	if processor.IsRunning() {
		t.Error("processor should not be running initially")
	}
}

func TestSyncProcessor_StartTwice(t *testing.T) {
	config := DefaultSyncProcessorConfig()
	config.PollInterval = 100 * time.Millisecond
	processor := NewSyncProcessor(nil, nil, config)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	processor.mu.Lock()
	processor.running = true
	processor.mu.Unlock()

	// Second start should fail
	err := processor.Start(ctx)
	if err == nil {
		t.Error("expected error when starting already running processor")
	}
}

func TestSyncProcessor_StopNotRunning(t *testing.T) {
	config := DefaultSyncProcessorConfig()
	processor := NewSyncProcessor(nil, nil, config)

	ctx := context.Background()

	// Stop when not running should not error
	err := processor.Stop(ctx)
	if err != nil {
		t.Errorf("Stop should not error when not running: %v", err)
	}
}

// fakeAppender records appended transactions and can be made to fail.
type fakeAppender struct {
	mu       sync.Mutex
	appended []core.Transaction
	fail     bool
}

func (f *fakeAppender) Append(_ context.Context, tx core.Transaction) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return "", errors.New("sheet unavailable")
	}
	f.appended = append(f.appended, tx)
	return "Ledger!A1:F1", nil
}

func (f *fakeAppender) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.appended)
}

func newTestStorage(t *testing.T) *storage.SQLiteRepository {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository() error = %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestSyncProcessor_ProcessBatch(t *testing.T) {
	repo := newTestStorage(t)
	ctx := context.Background()

	if _, err := repo.CreateTransaction(ctx, core.Transaction{
		Date: core.NewDate(2024, 4, 1), Category: "feed", Flow: core.FlowExpense, Amount: core.Money{Cents: 7000},
	}); err != nil {
		t.Fatalf("CreateTransaction() error = %v", err)
	}

	appender := &fakeAppender{}
	processor := NewSyncProcessor(repo, appender, DefaultSyncProcessorConfig())
	processor.stopCh = make(chan struct{})

	processor.processBatch(ctx)

	if appender.count() != 1 {
		t.Fatalf("appended %d rows, want 1", appender.count())
	}

	pending, err := repo.GetPendingSyncTransactions(ctx, 10)
	if err != nil {
		t.Fatalf("GetPendingSyncTransactions() error = %v", err)
	}
	if len(pending) != 0 {
		t.Errorf("pending = %+v, want empty after successful mirror", pending)
	}
}

func TestSyncProcessor_RetriesThenMarksError(t *testing.T) {
	repo := newTestStorage(t)
	ctx := context.Background()

	if _, err := repo.CreateTransaction(ctx, core.Transaction{
		Date: core.NewDate(2024, 4, 2), Category: "water", Flow: core.FlowExpense, Amount: core.Money{Cents: 500},
	}); err != nil {
		t.Fatalf("CreateTransaction() error = %v", err)
	}

	appender := &fakeAppender{fail: true}
	config := DefaultSyncProcessorConfig()
	config.MaxRetries = 2
	processor := NewSyncProcessor(repo, appender, config)
	processor.stopCh = make(chan struct{})

	// First failure: still pending.
	processor.processBatch(ctx)
	pending, err := repo.GetPendingSyncTransactions(ctx, 10)
	if err != nil {
		t.Fatalf("GetPendingSyncTransactions() error = %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("pending = %+v, want still one item after first failure", pending)
	}

	// Second failure reaches MaxRetries: marked as error, leaves the queue.
	processor.processBatch(ctx)
	pending, err = repo.GetPendingSyncTransactions(ctx, 10)
	if err != nil {
		t.Fatalf("GetPendingSyncTransactions() error = %v", err)
	}
	if len(pending) != 0 {
		t.Errorf("pending = %+v, want empty after max retries", pending)
	}
}

func TestSyncProcessor_StartStop(t *testing.T) {
	repo := newTestStorage(t)

	config := DefaultSyncProcessorConfig()
	config.PollInterval = 50 * time.Millisecond
	processor := NewSyncProcessor(repo, &fakeAppender{}, config)

	ctx := context.Background()
	if err := processor.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if !processor.IsRunning() {
		t.Error("processor should be running after Start")
	}

	stopCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	if err := processor.Stop(stopCtx); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if processor.IsRunning() {
		t.Error("processor should not be running after Stop")
	}
}
