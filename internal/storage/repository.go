package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/haya4M/cattle-fin-mobile/internal/core"
	"github.com/haya4M/cattle-fin-mobile/internal/report"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a lookup by identifier matches no row.
var ErrNotFound = errors.New("not found")

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	// Run migrations
	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// CreateTransaction appends a new ledger entry. The month key is derived from
// the entry date and stored on write, so aggregation never re-derives it.
func (r *SQLiteRepository) CreateTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, fmt.Errorf("validate transaction: %w", err)
	}

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO transactions (entry_date, month_key, category, flow, amount_cents, note)
		VALUES (?, ?, ?, ?, ?, ?)`,
		tx.Date.Format("2006-01-02"),
		string(tx.Date.MonthKey()),
		tx.Category,
		string(tx.Flow),
		tx.Amount.Cents,
		tx.Note,
	)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return core.Transaction{}, fmt.Errorf("last insert id: %w", err)
	}
	tx.ID = id

	slog.InfoContext(ctx, "Transaction saved",
		"id", tx.ID,
		"month_key", tx.Date.MonthKey(),
		"category", tx.Category,
		"flow", tx.Flow,
		"amount_cents", tx.Amount.Cents)

	return tx, nil
}

// GetTransaction retrieves a single transaction by ID.
func (r *SQLiteRepository) GetTransaction(ctx context.Context, id int64) (core.Transaction, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, entry_date, category, flow, amount_cents, note
		FROM transactions WHERE id = ?`, id)

	tx, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, fmt.Errorf("transaction %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction %d: %w", id, err)
	}
	return tx, nil
}

// ListRecentTransactions returns the newest entries first, up to limit.
func (r *SQLiteRepository) ListRecentTransactions(ctx context.Context, limit int) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, entry_date, category, flow, amount_cents, note
		FROM transactions
		ORDER BY entry_date DESC, id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent transactions: %w", err)
	}
	defer rows.Close()

	return collectTransactions(rows)
}

// ListTransactions returns all entries ordered by date for export.
func (r *SQLiteRepository) ListTransactions(ctx context.Context) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, entry_date, category, flow, amount_cents, note
		FROM transactions
		ORDER BY entry_date, id`)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	return collectTransactions(rows)
}

// LoadSnapshot fetches all transactions and headcount records in one
// consistent read for the reporting engine.
func (r *SQLiteRepository) LoadSnapshot(ctx context.Context) (report.Snapshot, error) {
	txs, err := r.ListTransactions(ctx)
	if err != nil {
		return report.Snapshot{}, err
	}

	hcs, err := r.ListHeadcounts(ctx)
	if err != nil {
		return report.Snapshot{}, err
	}

	return report.Snapshot{Transactions: txs, Headcounts: hcs}, nil
}

// ListYears returns the distinct years that have at least one transaction,
// ascending. Drives the report year selector.
func (r *SQLiteRepository) ListYears(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT DISTINCT substr(month_key, 1, 4) AS year
		FROM transactions
		ORDER BY year`)
	if err != nil {
		return nil, fmt.Errorf("list years: %w", err)
	}
	defer rows.Close()

	var years []string
	for rows.Next() {
		var y string
		if err := rows.Scan(&y); err != nil {
			return nil, fmt.Errorf("scan year: %w", err)
		}
		years = append(years, y)
	}
	return years, rows.Err()
}

// UpsertHeadcount records the herd size for a month, replacing any previous
// value. One record per month key.
func (r *SQLiteRepository) UpsertHeadcount(ctx context.Context, hc core.HeadcountRecord) error {
	if err := hc.Validate(); err != nil {
		return fmt.Errorf("validate headcount: %w", err)
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO headcounts (month_key, headcount, note, updated_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (month_key) DO UPDATE SET
			headcount = excluded.headcount,
			note = excluded.note,
			updated_at = CURRENT_TIMESTAMP`,
		string(hc.MonthKey), hc.Headcount, hc.Note)
	if err != nil {
		return fmt.Errorf("upsert headcount: %w", err)
	}

	slog.InfoContext(ctx, "Headcount recorded",
		"month_key", hc.MonthKey,
		"headcount", hc.Headcount)

	return nil
}

// ListHeadcounts returns all monthly herd-size records ordered by month.
func (r *SQLiteRepository) ListHeadcounts(ctx context.Context) ([]core.HeadcountRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT month_key, headcount, note
		FROM headcounts
		ORDER BY month_key`)
	if err != nil {
		return nil, fmt.Errorf("list headcounts: %w", err)
	}
	defer rows.Close()

	var records []core.HeadcountRecord
	for rows.Next() {
		var rec core.HeadcountRecord
		var key string
		if err := rows.Scan(&key, &rec.Headcount, &rec.Note); err != nil {
			return nil, fmt.Errorf("scan headcount: %w", err)
		}
		rec.MonthKey = core.MonthKey(key)
		records = append(records, rec)
	}
	return records, rows.Err()
}

// ListCategories returns the known entry categories.
func (r *SQLiteRepository) ListCategories(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT name FROM categories ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// PendingSyncTransaction is the minimal data carried by sync queue messages.
type PendingSyncTransaction struct {
	ID        int64
	Version   int64
	CreatedAt time.Time
}

// GetPendingSyncTransactions returns transactions not yet mirrored to the
// spreadsheet, oldest first.
func (r *SQLiteRepository) GetPendingSyncTransactions(ctx context.Context, limit int) ([]PendingSyncTransaction, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, version, created_at
		FROM transactions
		WHERE sync_status = 'pending'
		ORDER BY created_at
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("get pending sync transactions: %w", err)
	}
	defer rows.Close()

	var pending []PendingSyncTransaction
	for rows.Next() {
		var p PendingSyncTransaction
		if err := rows.Scan(&p.ID, &p.Version, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan pending sync transaction: %w", err)
		}
		pending = append(pending, p)
	}
	return pending, rows.Err()
}

// MarkSynced marks a transaction as successfully mirrored.
func (r *SQLiteRepository) MarkSynced(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE transactions
		SET sync_status = 'synced', synced_at = CURRENT_TIMESTAMP
		WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("mark transaction synced: %w", err)
	}

	slog.InfoContext(ctx, "Transaction marked as synced", "id", id)
	return nil
}

// IncrementSyncAttempts bumps the attempt counter and returns the new count.
func (r *SQLiteRepository) IncrementSyncAttempts(ctx context.Context, id int64) (int64, error) {
	row := r.db.QueryRowContext(ctx, `
		UPDATE transactions
		SET sync_attempts = sync_attempts + 1
		WHERE id = ?
		RETURNING sync_attempts`, id)

	var attempts int64
	if err := row.Scan(&attempts); err != nil {
		return 0, fmt.Errorf("increment sync attempts: %w", err)
	}
	return attempts, nil
}

// MarkSyncError marks a transaction as having exhausted its sync retries.
func (r *SQLiteRepository) MarkSyncError(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE transactions
		SET sync_status = 'error'
		WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("mark transaction sync error: %w", err)
	}

	slog.WarnContext(ctx, "Transaction marked with sync error", "id", id)
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (core.Transaction, error) {
	var tx core.Transaction
	var entryDate, flow string
	if err := row.Scan(&tx.ID, &entryDate, &tx.Category, &flow, &tx.Amount.Cents, &tx.Note); err != nil {
		return core.Transaction{}, err
	}

	t, err := time.Parse("2006-01-02", entryDate)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("parse entry date %q: %w", entryDate, err)
	}
	tx.Date = core.Date{Time: t}
	tx.Flow = core.FlowType(flow)
	return tx, nil
}

func collectTransactions(rows *sql.Rows) ([]core.Transaction, error) {
	var txs []core.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		txs = append(txs, tx)
	}
	return txs, rows.Err()
}
