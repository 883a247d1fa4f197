package worker

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/haya4M/cattle-fin-mobile/internal/amqp"
	"github.com/haya4M/cattle-fin-mobile/internal/core"
	"github.com/haya4M/cattle-fin-mobile/internal/storage"
)

type fakeAppender struct {
	appended []core.Transaction
	fail     bool
}

func (f *fakeAppender) Append(_ context.Context, tx core.Transaction) (string, error) {
	if f.fail {
		return "", errors.New("sheet unavailable")
	}
	f.appended = append(f.appended, tx)
	return "Ledger!A2:F2", nil
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

func TestHandleSyncMessage(t *testing.T) {
	repo := newTestStorage(t)
	ctx := context.Background()

	saved, err := repo.CreateTransaction(ctx, core.Transaction{
		Date: core.NewDate(2024, 5, 1), Category: "veterinary", Flow: core.FlowExpense, Amount: core.Money{Cents: 25000},
	})
	if err != nil {
		t.Fatalf("CreateTransaction() error = %v", err)
	}

	appender := &fakeAppender{}
	w := NewSyncWorker(repo, appender, 10)

	msg := amqp.NewTransactionSyncMessage(saved.ID, 1)
	if err := w.HandleSyncMessage(ctx, msg); err != nil {
		t.Fatalf("HandleSyncMessage() error = %v", err)
	}

	if len(appender.appended) != 1 || appender.appended[0].ID != saved.ID {
		t.Errorf("appended = %+v, want the saved transaction", appender.appended)
	}

	pending, err := repo.GetPendingSyncTransactions(ctx, 10)
	if err != nil {
		t.Fatalf("GetPendingSyncTransactions() error = %v", err)
	}
	if len(pending) != 0 {
		t.Errorf("pending = %+v, want empty after mirror", pending)
	}
}

func TestHandleSyncMessage_MissingTransaction(t *testing.T) {
	repo := newTestStorage(t)
	w := NewSyncWorker(repo, &fakeAppender{}, 10)

	msg := amqp.NewTransactionSyncMessage(9999, 1)
	if err := w.HandleSyncMessage(context.Background(), msg); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("HandleSyncMessage() error = %v, want ErrNotFound", err)
	}
}

func TestHandleSyncMessage_AppendFailureKeepsPending(t *testing.T) {
	repo := newTestStorage(t)
	ctx := context.Background()

	saved, err := repo.CreateTransaction(ctx, core.Transaction{
		Date: core.NewDate(2024, 5, 2), Category: "feed", Flow: core.FlowExpense, Amount: core.Money{Cents: 100},
	})
	if err != nil {
		t.Fatalf("CreateTransaction() error = %v", err)
	}

	w := NewSyncWorker(repo, &fakeAppender{fail: true}, 10)

	if err := w.HandleSyncMessage(ctx, amqp.NewTransactionSyncMessage(saved.ID, 1)); err == nil {
		t.Fatal("HandleSyncMessage() should fail when the sheet append fails")
	}

	pending, err := repo.GetPendingSyncTransactions(ctx, 10)
	if err != nil {
		t.Fatalf("GetPendingSyncTransactions() error = %v", err)
	}
	if len(pending) != 1 {
		t.Errorf("pending = %+v, want the transaction still pending", pending)
	}
}

func TestStartupSyncCheck(t *testing.T) {
	repo := newTestStorage(t)
	ctx := context.Background()

	for day := 1; day <= 3; day++ {
		if _, err := repo.CreateTransaction(ctx, core.Transaction{
			Date: core.NewDate(2024, 5, day), Category: "feed", Flow: core.FlowExpense, Amount: core.Money{Cents: 100},
		}); err != nil {
			t.Fatalf("CreateTransaction() error = %v", err)
		}
	}

	appender := &fakeAppender{}
	w := NewSyncWorker(repo, appender, 10)

	if err := w.StartupSyncCheck(ctx); err != nil {
		t.Fatalf("StartupSyncCheck() error = %v", err)
	}
	if len(appender.appended) != 3 {
		t.Errorf("appended %d rows, want 3", len(appender.appended))
	}

	// A second pass has nothing left to do.
	appender.appended = nil
	if err := w.StartupSyncCheck(ctx); err != nil {
		t.Fatalf("StartupSyncCheck() second pass error = %v", err)
	}
	if len(appender.appended) != 0 {
		t.Errorf("second pass appended %d rows, want 0", len(appender.appended))
	}
}
