package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/haya4M/cattle-fin-mobile/internal/core"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository() error = %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestTransactionLifecycle(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	saved, err := repo.CreateTransaction(ctx, core.Transaction{
		Date:     core.NewDate(2024, 1, 15),
		Category: "feed",
		Flow:     core.FlowExpense,
		Amount:   core.Money{Cents: 120050},
		Note:     "winter feed order",
	})
	if err != nil {
		t.Fatalf("CreateTransaction() error = %v", err)
	}
	if saved.ID == 0 {
		t.Fatal("CreateTransaction() did not assign an ID")
	}

	got, err := repo.GetTransaction(ctx, saved.ID)
	if err != nil {
		t.Fatalf("GetTransaction() error = %v", err)
	}
	if got.Category != "feed" || got.Amount.Cents != 120050 || got.Flow != core.FlowExpense {
		t.Errorf("GetTransaction() = %+v", got)
	}
	if got.Date.MonthKey() != "2024-01" {
		t.Errorf("month key = %s, want 2024-01", got.Date.MonthKey())
	}

	if _, err := repo.GetTransaction(ctx, 9999); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetTransaction(missing) error = %v, want ErrNotFound", err)
	}
}

func TestCreateTransactionRejectsInvalid(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	_, err := repo.CreateTransaction(ctx, core.Transaction{
		Date:     core.NewDate(2024, 1, 15),
		Category: "yacht",
		Flow:     core.FlowExpense,
		Amount:   core.Money{Cents: 100},
	})
	if !errors.Is(err, core.ErrUnknownCategory) {
		t.Errorf("CreateTransaction() error = %v, want ErrUnknownCategory", err)
	}
}

func TestListYearsAndSnapshot(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	entries := []core.Transaction{
		{Date: core.NewDate(2023, 3, 1), Category: "cattle_sale", Flow: core.FlowIncome, Amount: core.Money{Cents: 500000}},
		{Date: core.NewDate(2024, 3, 1), Category: "feed", Flow: core.FlowExpense, Amount: core.Money{Cents: 80000}},
		{Date: core.NewDate(2024, 7, 1), Category: "subsidy", Flow: core.FlowIncome, Amount: core.Money{Cents: 30000}},
	}
	for _, e := range entries {
		if _, err := repo.CreateTransaction(ctx, e); err != nil {
			t.Fatalf("CreateTransaction() error = %v", err)
		}
	}
	if err := repo.UpsertHeadcount(ctx, core.HeadcountRecord{MonthKey: "2024-03", Headcount: 12}); err != nil {
		t.Fatalf("UpsertHeadcount() error = %v", err)
	}

	years, err := repo.ListYears(ctx)
	if err != nil {
		t.Fatalf("ListYears() error = %v", err)
	}
	if len(years) != 2 || years[0] != "2023" || years[1] != "2024" {
		t.Errorf("ListYears() = %v, want [2023 2024]", years)
	}

	snap, err := repo.LoadSnapshot(ctx)
	if err != nil {
		t.Fatalf("LoadSnapshot() error = %v", err)
	}
	if len(snap.Transactions) != 3 {
		t.Errorf("snapshot has %d transactions, want 3", len(snap.Transactions))
	}
	if len(snap.Headcounts) != 1 || snap.Headcounts[0].Headcount != 12 {
		t.Errorf("snapshot headcounts = %+v, want one record of 12", snap.Headcounts)
	}
}

func TestUpsertHeadcountReplaces(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	if err := repo.UpsertHeadcount(ctx, core.HeadcountRecord{MonthKey: "2024-05", Headcount: 20}); err != nil {
		t.Fatalf("UpsertHeadcount() error = %v", err)
	}
	if err := repo.UpsertHeadcount(ctx, core.HeadcountRecord{MonthKey: "2024-05", Headcount: 0, Note: "herd sold"}); err != nil {
		t.Fatalf("UpsertHeadcount() error = %v", err)
	}

	records, err := repo.ListHeadcounts(ctx)
	if err != nil {
		t.Fatalf("ListHeadcounts() error = %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("ListHeadcounts() = %+v, want a single record", records)
	}
	if records[0].Headcount != 0 || records[0].Note != "herd sold" {
		t.Errorf("record = %+v, want the replaced value", records[0])
	}

	if err := repo.UpsertHeadcount(ctx, core.HeadcountRecord{MonthKey: "2024-05", Headcount: -1}); !errors.Is(err, core.ErrNegativeHeadcount) {
		t.Errorf("UpsertHeadcount(negative) error = %v, want ErrNegativeHeadcount", err)
	}
}

func TestSyncQueueLifecycle(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	first, err := repo.CreateTransaction(ctx, core.Transaction{
		Date: core.NewDate(2024, 2, 1), Category: "water", Flow: core.FlowExpense, Amount: core.Money{Cents: 4500},
	})
	if err != nil {
		t.Fatalf("CreateTransaction() error = %v", err)
	}
	second, err := repo.CreateTransaction(ctx, core.Transaction{
		Date: core.NewDate(2024, 2, 2), Category: "cattle_sale", Flow: core.FlowIncome, Amount: core.Money{Cents: 900000},
	})
	if err != nil {
		t.Fatalf("CreateTransaction() error = %v", err)
	}

	pending, err := repo.GetPendingSyncTransactions(ctx, 10)
	if err != nil {
		t.Fatalf("GetPendingSyncTransactions() error = %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("pending = %+v, want both new transactions", pending)
	}

	if err := repo.MarkSynced(ctx, first.ID); err != nil {
		t.Fatalf("MarkSynced() error = %v", err)
	}

	attempts, err := repo.IncrementSyncAttempts(ctx, second.ID)
	if err != nil {
		t.Fatalf("IncrementSyncAttempts() error = %v", err)
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1", attempts)
	}
	if err := repo.MarkSyncError(ctx, second.ID); err != nil {
		t.Fatalf("MarkSyncError() error = %v", err)
	}

	pending, err = repo.GetPendingSyncTransactions(ctx, 10)
	if err != nil {
		t.Fatalf("GetPendingSyncTransactions() error = %v", err)
	}
	if len(pending) != 0 {
		t.Errorf("pending = %+v, want empty after sync/error", pending)
	}
}

func TestSeededCategories(t *testing.T) {
	repo := newTestRepo(t)

	names, err := repo.ListCategories(context.Background())
	if err != nil {
		t.Fatalf("ListCategories() error = %v", err)
	}
	if len(names) != len(core.Categories) {
		t.Fatalf("ListCategories() = %v, want %d seeded categories", names, len(core.Categories))
	}
	seen := make(map[string]bool, len(names))
	for _, n := range names {
		seen[n] = true
	}
	for _, c := range core.Categories {
		if !seen[c] {
			t.Errorf("category %q missing from seed", c)
		}
	}
}
