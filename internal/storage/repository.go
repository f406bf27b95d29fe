package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"spendview/internal/core"
	"spendview/internal/log"

	_ "modernc.org/sqlite"
)

var (
	ErrNotFound  = core.ErrNotFound
	ErrDuplicate = core.ErrConflict
)

// Sync states of a locally written expense.
const (
	SyncPending = "pending"
	SyncSynced  = "synced"
	SyncError   = "error"
)

type SQLiteRepository struct {
	db     *sql.DB
	loc    *time.Location
	logger *log.Logger
}

func dsn(path string) string {
	return "file:" + path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
}

// NewSQLiteRepository opens the database at dbPath, creating the directory
// and applying migrations. Dates are read back in loc.
func NewSQLiteRepository(dbPath string, loc *time.Location, logger *log.Logger) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}
	if loc == nil {
		loc = time.Local
	}
	if logger == nil {
		logger = log.Discard()
	}

	db, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		db:     db,
		loc:    loc,
		logger: logger.WithComponent(log.ComponentStorage),
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping checks the connection; used by readiness probes.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func parseID(id string) (int64, error) {
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: id %q", ErrNotFound, id)
	}
	return n, nil
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func affectedOne(res sql.Result, what string, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s %d: %w", what, id, err)
	}
	if n == 0 {
		return fmt.Errorf("%s %d: %w", what, id, ErrNotFound)
	}
	return nil
}

// Expenses

const expenseColumns = `id, amount_cents, description, category, date`

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *SQLiteRepository) scanExpense(s rowScanner, extra ...any) (core.Expense, error) {
	var (
		id          int64
		amountCents int64
		description string
		category    string
		date        string
	)
	dest := append([]any{&id, &amountCents, &description, &category, &date}, extra...)
	if err := s.Scan(dest...); err != nil {
		return core.Expense{}, err
	}
	d, err := core.ParseDate(date, r.loc)
	if err != nil {
		return core.Expense{}, fmt.Errorf("expense %d: %w", id, err)
	}
	return core.Expense{
		ID:          formatID(id),
		Amount:      core.Money{Cents: amountCents},
		Description: description,
		Category:    category,
		Date:        d,
	}, nil
}

// ListExpenses returns every live expense in insertion order.
func (r *SQLiteRepository) ListExpenses(ctx context.Context) ([]core.Expense, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+expenseColumns+` FROM expenses WHERE deleted_at IS NULL ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	var out []core.Expense
	for rows.Next() {
		e, err := r.scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// CreateExpense stores the expense as pending sync.
func (r *SQLiteRepository) CreateExpense(ctx context.Context, e core.NewExpense) (core.Expense, error) {
	if err := e.Validate(); err != nil {
		return core.Expense{}, fmt.Errorf("validation failed: %w", err)
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO expenses (amount_cents, description, category, date) VALUES (?, ?, ?, ?)`,
		e.Amount.Cents, strings.TrimSpace(e.Description), e.Category, e.Date.Format(core.DateLayout))
	if err != nil {
		return core.Expense{}, fmt.Errorf("create expense: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.Expense{}, fmt.Errorf("create expense: %w", err)
	}

	r.logger.InfoContext(ctx, "Expense saved to SQLite",
		log.FieldExpenseID, id,
		log.FieldAmountCents, e.Amount.Cents,
		log.FieldCategory, e.Category)

	created := e.Expense(formatID(id))
	created.Description = strings.TrimSpace(e.Description)
	return created, nil
}

// SoftDeleteExpense hides the expense and keeps the row until the worker
// has removed its remote copy.
func (r *SQLiteRepository) SoftDeleteExpense(ctx context.Context, id string) error {
	n, err := parseID(id)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE expenses SET deleted_at = CURRENT_TIMESTAMP WHERE id = ? AND deleted_at IS NULL`, n)
	if err != nil {
		return fmt.Errorf("soft delete expense %d: %w", n, err)
	}
	return affectedOne(res, "soft delete expense", n)
}

// DeleteExpense implements the local store contract with a soft delete.
func (r *SQLiteRepository) DeleteExpense(ctx context.Context, id string) error {
	return r.SoftDeleteExpense(ctx, id)
}

// PurgeExpense removes the row for good.
func (r *SQLiteRepository) PurgeExpense(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM expenses WHERE id = ?`, id); err != nil {
		return fmt.Errorf("purge expense %d: %w", id, err)
	}
	return nil
}

// SyncRecord is an expense with its replication state.
type SyncRecord struct {
	ID       int64
	Expense  core.Expense
	Version  int64
	Status   string
	Attempts int64
	RemoteID string
	Deleted  bool
}

const syncColumns = expenseColumns + `, version, sync_status, sync_attempts, COALESCE(remote_id, ''), deleted_at IS NOT NULL`

func (r *SQLiteRepository) scanSyncRecord(s rowScanner) (SyncRecord, error) {
	var rec SyncRecord
	e, err := r.scanExpense(s, &rec.Version, &rec.Status, &rec.Attempts, &rec.RemoteID, &rec.Deleted)
	if err != nil {
		return SyncRecord{}, err
	}
	rec.Expense = e
	rec.ID, _ = strconv.ParseInt(e.ID, 10, 64)
	return rec, nil
}

// GetSyncRecord returns the expense including soft-deleted rows.
func (r *SQLiteRepository) GetSyncRecord(ctx context.Context, id int64) (SyncRecord, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+syncColumns+` FROM expenses WHERE id = ?`, id)
	rec, err := r.scanSyncRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return SyncRecord{}, fmt.Errorf("expense %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return SyncRecord{}, fmt.Errorf("get expense %d: %w", id, err)
	}
	return rec, nil
}

// PendingSync lists live expenses not yet replicated, oldest first.
func (r *SQLiteRepository) PendingSync(ctx context.Context, limit int) ([]SyncRecord, error) {
	return r.querySync(ctx,
		`SELECT `+syncColumns+` FROM expenses
		 WHERE sync_status = 'pending' AND deleted_at IS NULL ORDER BY id LIMIT ?`, limit)
}

// PendingDeletes lists soft-deleted expenses whose remote copy may remain.
func (r *SQLiteRepository) PendingDeletes(ctx context.Context, limit int) ([]SyncRecord, error) {
	return r.querySync(ctx,
		`SELECT `+syncColumns+` FROM expenses
		 WHERE deleted_at IS NOT NULL ORDER BY id LIMIT ?`, limit)
}

func (r *SQLiteRepository) querySync(ctx context.Context, query string, limit int) ([]SyncRecord, error) {
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query sync records: %w", err)
	}
	defer rows.Close()
	var out []SyncRecord
	for rows.Next() {
		rec, err := r.scanSyncRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan sync record: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// MarkSynced records the remote id of a replicated expense.
func (r *SQLiteRepository) MarkSynced(ctx context.Context, id int64, remoteID string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE expenses SET sync_status = 'synced', remote_id = ?, synced_at = CURRENT_TIMESTAMP, last_error = NULL
		 WHERE id = ?`, remoteID, id)
	if err != nil {
		return fmt.Errorf("mark expense synced: %w", err)
	}
	r.logger.InfoContext(ctx, "Expense marked as synced", log.FieldExpenseID, id)
	return affectedOne(res, "mark expense synced", id)
}

// RecordSyncFailure counts a failed attempt. Once attempts reach
// maxAttempts the expense is parked in the error state.
func (r *SQLiteRepository) RecordSyncFailure(ctx context.Context, id int64, cause error, maxAttempts int) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE expenses
		 SET sync_attempts = sync_attempts + 1,
		     last_error = ?,
		     sync_status = CASE WHEN sync_attempts + 1 >= ? THEN 'error' ELSE sync_status END
		 WHERE id = ?`, cause.Error(), maxAttempts, id)
	if err != nil {
		return fmt.Errorf("record sync failure: %w", err)
	}
	r.logger.WarnContext(ctx, "Expense sync attempt failed", log.FieldExpenseID, id, log.FieldError, cause)
	return affectedOne(res, "record sync failure", id)
}

// RetryFailed moves errored expenses back to pending.
func (r *SQLiteRepository) RetryFailed(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE expenses SET sync_status = 'pending', sync_attempts = 0 WHERE sync_status = 'error'`)
	if err != nil {
		return 0, fmt.Errorf("retry failed syncs: %w", err)
	}
	return res.RowsAffected()
}

// SyncStats counts expenses per sync state.
type SyncStats struct {
	Pending int64 `json:"pending"`
	Synced  int64 `json:"synced"`
	Error   int64 `json:"error"`
	Deleted int64 `json:"deleted"`
}

func (r *SQLiteRepository) SyncStats(ctx context.Context) (SyncStats, error) {
	var s SyncStats
	err := r.db.QueryRowContext(ctx, `
		SELECT
			COALESCE(SUM(CASE WHEN sync_status = 'pending' AND deleted_at IS NULL THEN 1 END), 0),
			COALESCE(SUM(CASE WHEN sync_status = 'synced' AND deleted_at IS NULL THEN 1 END), 0),
			COALESCE(SUM(CASE WHEN sync_status = 'error' AND deleted_at IS NULL THEN 1 END), 0),
			COALESCE(SUM(CASE WHEN deleted_at IS NOT NULL THEN 1 END), 0)
		FROM expenses`).Scan(&s.Pending, &s.Synced, &s.Error, &s.Deleted)
	if err != nil {
		return SyncStats{}, fmt.Errorf("sync stats: %w", err)
	}
	return s, nil
}

// Categories

func (r *SQLiteRepository) ListCategories(ctx context.Context) ([]core.Category, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name FROM categories ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()
	var out []core.Category
	for rows.Next() {
		var id int64
		var c core.Category
		if err := rows.Scan(&id, &c.Name); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		c.ID = formatID(id)
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) CreateCategory(ctx context.Context, name string) (core.Category, error) {
	if err := core.ValidateCategoryName(name); err != nil {
		return core.Category{}, fmt.Errorf("validation failed: %w", err)
	}
	name = strings.TrimSpace(name)
	res, err := r.db.ExecContext(ctx, `INSERT INTO categories (name) VALUES (?)`, name)
	if isUniqueViolation(err) {
		return core.Category{}, fmt.Errorf("category %q: %w", name, ErrDuplicate)
	}
	if err != nil {
		return core.Category{}, fmt.Errorf("create category: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.Category{}, fmt.Errorf("create category: %w", err)
	}
	return core.Category{ID: formatID(id), Name: name}, nil
}

// DeleteCategory removes the category and its budget. Expenses keep the
// category name they were recorded with.
func (r *SQLiteRepository) DeleteCategory(ctx context.Context, id string) error {
	n, err := parseID(id)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, `DELETE FROM categories WHERE id = ?`, n)
	if err != nil {
		return fmt.Errorf("delete category %d: %w", n, err)
	}
	return affectedOne(res, "delete category", n)
}

// Budgets

// ListBudgetLimits returns budgets with only the limit filled in; spending
// figures are derived by the caller.
func (r *SQLiteRepository) ListBudgetLimits(ctx context.Context) ([]core.Budget, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT b.id, b.category_id, c.name, b.limit_cents
		FROM budgets b JOIN categories c ON c.id = b.category_id
		ORDER BY b.id`)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	defer rows.Close()
	var out []core.Budget
	for rows.Next() {
		var id, categoryID, limit int64
		var b core.Budget
		if err := rows.Scan(&id, &categoryID, &b.CategoryName, &limit); err != nil {
			return nil, fmt.Errorf("scan budget: %w", err)
		}
		b.ID, b.CategoryID, b.Limit = formatID(id), formatID(categoryID), core.Money{Cents: limit}
		out = append(out, b)
	}
	return out, rows.Err()
}

// SaveBudgetLimit creates the category's budget or replaces its limit.
func (r *SQLiteRepository) SaveBudgetLimit(ctx context.Context, in core.BudgetInput) (core.Budget, error) {
	if err := in.Validate(); err != nil {
		return core.Budget{}, fmt.Errorf("validation failed: %w", err)
	}
	categoryID, err := parseID(in.CategoryID)
	if err != nil {
		return core.Budget{}, err
	}
	var name string
	err = r.db.QueryRowContext(ctx, `SELECT name FROM categories WHERE id = ?`, categoryID).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Budget{}, fmt.Errorf("category %d: %w", categoryID, ErrNotFound)
	}
	if err != nil {
		return core.Budget{}, fmt.Errorf("save budget: %w", err)
	}
	var id int64
	err = r.db.QueryRowContext(ctx, `
		INSERT INTO budgets (category_id, limit_cents) VALUES (?, ?)
		ON CONFLICT (category_id) DO UPDATE SET limit_cents = excluded.limit_cents, updated_at = CURRENT_TIMESTAMP
		RETURNING id`, categoryID, in.Limit.Cents).Scan(&id)
	if err != nil {
		return core.Budget{}, fmt.Errorf("save budget: %w", err)
	}
	return core.Budget{ID: formatID(id), CategoryID: in.CategoryID, CategoryName: name, Limit: in.Limit}, nil
}

func (r *SQLiteRepository) DeleteBudget(ctx context.Context, id string) error {
	n, err := parseID(id)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, `DELETE FROM budgets WHERE id = ?`, n)
	if err != nil {
		return fmt.Errorf("delete budget %d: %w", n, err)
	}
	return affectedOne(res, "delete budget", n)
}

// Goals

func (r *SQLiteRepository) scanGoal(s rowScanner) (core.Goal, error) {
	var id, target, current int64
	var g core.Goal
	var deadline string
	if err := s.Scan(&id, &g.Name, &target, &current, &deadline); err != nil {
		return core.Goal{}, err
	}
	d, err := core.ParseDate(deadline, r.loc)
	if err != nil {
		return core.Goal{}, fmt.Errorf("goal %d: %w", id, err)
	}
	g.ID, g.Target, g.Current, g.Deadline = formatID(id), core.Money{Cents: target}, core.Money{Cents: current}, d
	return g, nil
}

const goalColumns = `id, name, target_cents, current_cents, deadline`

func (r *SQLiteRepository) ListGoals(ctx context.Context) ([]core.Goal, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+goalColumns+` FROM goals ORDER BY deadline, id`)
	if err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}
	defer rows.Close()
	var out []core.Goal
	for rows.Next() {
		g, err := r.scanGoal(rows)
		if err != nil {
			return nil, fmt.Errorf("scan goal: %w", err)
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) getGoal(ctx context.Context, id int64) (core.Goal, error) {
	g, err := r.scanGoal(r.db.QueryRowContext(ctx, `SELECT `+goalColumns+` FROM goals WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return core.Goal{}, fmt.Errorf("goal %d: %w", id, ErrNotFound)
	}
	return g, err
}

func (r *SQLiteRepository) CreateGoal(ctx context.Context, g core.Goal) (core.Goal, error) {
	if err := g.Validate(); err != nil {
		return core.Goal{}, fmt.Errorf("validation failed: %w", err)
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO goals (name, target_cents, current_cents, deadline) VALUES (?, ?, ?, ?)`,
		strings.TrimSpace(g.Name), g.Target.Cents, g.Current.Cents, g.Deadline.Format(core.DateLayout))
	if err != nil {
		return core.Goal{}, fmt.Errorf("create goal: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.Goal{}, fmt.Errorf("create goal: %w", err)
	}
	return r.getGoal(ctx, id)
}

func (r *SQLiteRepository) UpdateGoal(ctx context.Context, g core.Goal) (core.Goal, error) {
	if err := g.Validate(); err != nil {
		return core.Goal{}, fmt.Errorf("validation failed: %w", err)
	}
	n, err := parseID(g.ID)
	if err != nil {
		return core.Goal{}, err
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE goals SET name = ?, target_cents = ?, current_cents = ?, deadline = ? WHERE id = ?`,
		strings.TrimSpace(g.Name), g.Target.Cents, g.Current.Cents, g.Deadline.Format(core.DateLayout), n)
	if err != nil {
		return core.Goal{}, fmt.Errorf("update goal %d: %w", n, err)
	}
	if err := affectedOne(res, "update goal", n); err != nil {
		return core.Goal{}, err
	}
	return r.getGoal(ctx, n)
}

// Contribute adds amount to the goal's savings in a single statement.
func (r *SQLiteRepository) Contribute(ctx context.Context, id string, amount core.Money) (core.Goal, error) {
	if err := amount.Validate(); err != nil {
		return core.Goal{}, fmt.Errorf("validation failed: %w", err)
	}
	n, err := parseID(id)
	if err != nil {
		return core.Goal{}, err
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE goals SET current_cents = current_cents + ? WHERE id = ?`, amount.Cents, n)
	if err != nil {
		return core.Goal{}, fmt.Errorf("contribute to goal %d: %w", n, err)
	}
	if err := affectedOne(res, "contribute to goal", n); err != nil {
		return core.Goal{}, err
	}
	return r.getGoal(ctx, n)
}

func (r *SQLiteRepository) DeleteGoal(ctx context.Context, id string) error {
	n, err := parseID(id)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, `DELETE FROM goals WHERE id = ?`, n)
	if err != nil {
		return fmt.Errorf("delete goal %d: %w", n, err)
	}
	return affectedOne(res, "delete goal", n)
}
