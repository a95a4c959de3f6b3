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

	"soci/internal/core"

	_ "modernc.org/sqlite"
)

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

// Timestamps are stored as RFC3339 text so rows stay readable with any
// sqlite client.
const timeLayout = time.RFC3339

func fmtTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	if t, err := time.Parse(timeLayout, s); err == nil {
		return t
	}
	// datetime('now') default format
	if t, err := time.Parse("2006-01-02 15:04:05", s); err == nil {
		return t.UTC()
	}
	return time.Time{}
}

// --- Members ---

func (r *SQLiteRepository) CreateMember(ctx context.Context, m core.Member) (int64, error) {
	now := fmtTime(time.Now())
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO members (member_number, full_name, email, status, balance_cents, category_id, joined_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.MemberNumber, m.FullName, m.Email, string(m.Status), m.Balance.Cents, m.CategoryID, fmtTime(m.JoinedAt), now, now)
	if err != nil {
		return 0, fmt.Errorf("create member: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("member insert id: %w", err)
	}

	slog.InfoContext(ctx, "Member saved to SQLite",
		"id", id,
		"member_number", m.MemberNumber,
		"category_id", m.CategoryID,
		"balance_cents", m.Balance.Cents)

	return id, nil
}

const memberColumns = `id, member_number, full_name, email, status, balance_cents, category_id, joined_at, created_at, updated_at`

func scanMember(row interface{ Scan(...any) error }) (core.Member, error) {
	var m core.Member
	var status, joined, created, updated string
	err := row.Scan(&m.ID, &m.MemberNumber, &m.FullName, &m.Email, &status,
		&m.Balance.Cents, &m.CategoryID, &joined, &created, &updated)
	if err != nil {
		return m, err
	}
	m.Status = core.MemberStatus(status)
	m.JoinedAt = parseTime(joined)
	m.CreatedAt = parseTime(created)
	m.UpdatedAt = parseTime(updated)
	return m, nil
}

func (r *SQLiteRepository) GetMember(ctx context.Context, id int64) (*core.Member, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+memberColumns+` FROM members WHERE id = ? AND deleted_at IS NULL`, id)
	m, err := scanMember(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrMemberNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get member by id: %w", err)
	}
	return &m, nil
}

func (r *SQLiteRepository) ListMembers(ctx context.Context, includeInactive bool) ([]core.Member, error) {
	query := `SELECT ` + memberColumns + ` FROM members WHERE deleted_at IS NULL`
	if !includeInactive {
		query += ` AND status = 'active'`
	}
	query += ` ORDER BY full_name COLLATE NOCASE`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	var members []core.Member
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

func (r *SQLiteRepository) UpdateMember(ctx context.Context, m core.Member) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE members
		SET full_name = ?, email = ?, status = ?, category_id = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL`,
		m.FullName, m.Email, string(m.Status), m.CategoryID, fmtTime(time.Now()), m.ID)
	if err != nil {
		return fmt.Errorf("update member: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update member rows: %w", err)
	}
	if n == 0 {
		return core.ErrMemberNotFound
	}
	return nil
}

// SoftDeleteMember deactivates a member and marks the row deleted; payment
// history stays referable.
func (r *SQLiteRepository) SoftDeleteMember(ctx context.Context, id int64) error {
	now := fmtTime(time.Now())
	res, err := r.db.ExecContext(ctx, `
		UPDATE members SET status = 'inactive', deleted_at = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL`, now, now, id)
	if err != nil {
		return fmt.Errorf("delete member: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete member rows: %w", err)
	}
	if n == 0 {
		return core.ErrMemberNotFound
	}
	slog.InfoContext(ctx, "Member soft-deleted", "id", id)
	return nil
}

// --- Payments ---

// RecordPayment inserts the payment and credits the member's balance in one
// transaction. The payment enters the ledger sync queue as 'pending'.
func (r *SQLiteRepository) RecordPayment(ctx context.Context, p core.Payment) (int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin payment tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO payments (member_id, amount_cents, paid_at, receipt_number, sync_status, created_at)
		VALUES (?, ?, ?, ?, 'pending', ?)`,
		p.MemberID, p.Amount.Cents, fmtTime(p.PaidAt), p.ReceiptNumber, fmtTime(time.Now()))
	if err != nil {
		return 0, fmt.Errorf("insert payment: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("payment insert id: %w", err)
	}

	upd, err := tx.ExecContext(ctx, `
		UPDATE members SET balance_cents = balance_cents + ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL`,
		p.Amount.Cents, fmtTime(time.Now()), p.MemberID)
	if err != nil {
		return 0, fmt.Errorf("credit member balance: %w", err)
	}
	n, err := upd.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("credit member rows: %w", err)
	}
	if n == 0 {
		return 0, core.ErrMemberNotFound
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit payment tx: %w", err)
	}

	slog.InfoContext(ctx, "Payment saved to SQLite",
		"id", id,
		"member_id", p.MemberID,
		"amount_cents", p.Amount.Cents,
		"receipt_number", p.ReceiptNumber)

	return id, nil
}

const paymentColumns = `id, member_id, amount_cents, paid_at, receipt_number`

func scanPayment(row interface{ Scan(...any) error }) (core.Payment, error) {
	var p core.Payment
	var paid string
	if err := row.Scan(&p.ID, &p.MemberID, &p.Amount.Cents, &paid, &p.ReceiptNumber); err != nil {
		return p, err
	}
	p.PaidAt = parseTime(paid)
	return p, nil
}

func (r *SQLiteRepository) GetPayment(ctx context.Context, id int64) (*core.Payment, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+paymentColumns+` FROM payments WHERE id = ?`, id)
	p, err := scanPayment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("payment %d: %w", id, sql.ErrNoRows)
	}
	if err != nil {
		return nil, fmt.Errorf("get payment by id: %w", err)
	}
	return &p, nil
}

func (r *SQLiteRepository) ListPayments(ctx context.Context) ([]core.Payment, error) {
	return r.listPayments(ctx, `SELECT `+paymentColumns+` FROM payments ORDER BY paid_at DESC`)
}

func (r *SQLiteRepository) ListPaymentsByMember(ctx context.Context, memberID int64) ([]core.Payment, error) {
	return r.listPayments(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE member_id = ? ORDER BY paid_at DESC`, memberID)
}

func (r *SQLiteRepository) listPayments(ctx context.Context, query string, args ...any) ([]core.Payment, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	defer rows.Close()

	var payments []core.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan payment: %w", err)
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

// PaymentDetail carries everything the ledger export needs in one row.
type PaymentDetail struct {
	Payment      core.Payment
	MemberNumber string
	FullName     string
}

func (r *SQLiteRepository) GetPaymentDetail(ctx context.Context, id int64) (*PaymentDetail, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT p.id, p.member_id, p.amount_cents, p.paid_at, p.receipt_number, m.member_number, m.full_name
		FROM payments p JOIN members m ON m.id = p.member_id
		WHERE p.id = ?`, id)

	var d PaymentDetail
	var paid string
	err := row.Scan(&d.Payment.ID, &d.Payment.MemberID, &d.Payment.Amount.Cents,
		&paid, &d.Payment.ReceiptNumber, &d.MemberNumber, &d.FullName)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("payment %d: %w", id, sql.ErrNoRows)
	}
	if err != nil {
		return nil, fmt.Errorf("get payment detail: %w", err)
	}
	d.Payment.PaidAt = parseTime(paid)
	return &d, nil
}

// --- Categories and rates ---

func (r *SQLiteRepository) GetCategory(ctx context.Context, id int64) (*core.MembershipCategory, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, name, annual_fee_cents, joining_fee_cents
		FROM membership_categories WHERE id = ?`, id)

	var c core.MembershipCategory
	err := row.Scan(&c.ID, &c.Name, &c.AnnualFee.Cents, &c.JoiningFee.Cents)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrInvalidCategory
	}
	if err != nil {
		return nil, fmt.Errorf("get category: %w", err)
	}

	if err := r.loadOverrides(ctx, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *SQLiteRepository) ListCategories(ctx context.Context) ([]core.MembershipCategory, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, annual_fee_cents, joining_fee_cents
		FROM membership_categories ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var cats []core.MembershipCategory
	for rows.Next() {
		var c core.MembershipCategory
		if err := rows.Scan(&c.ID, &c.Name, &c.AnnualFee.Cents, &c.JoiningFee.Cents); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		cats = append(cats, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range cats {
		if err := r.loadOverrides(ctx, &cats[i]); err != nil {
			return nil, err
		}
	}
	return cats, nil
}

func (r *SQLiteRepository) loadOverrides(ctx context.Context, c *core.MembershipCategory) error {
	rows, err := r.db.QueryContext(ctx,
		`SELECT month, amount_cents FROM pro_rata_rates WHERE category_id = ?`, c.ID)
	if err != nil {
		return fmt.Errorf("load rate overrides: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var month int
		var cents int64
		if err := rows.Scan(&month, &cents); err != nil {
			return fmt.Errorf("scan rate override: %w", err)
		}
		if c.Overrides == nil {
			c.Overrides = make(map[time.Month]core.Money)
		}
		c.Overrides[time.Month(month)] = core.Money{Cents: cents}
	}
	return rows.Err()
}

// ReplaceProRataRates swaps out the category's whole override table. Callers
// validate the table first; this only persists it.
func (r *SQLiteRepository) ReplaceProRataRates(ctx context.Context, categoryID int64, rates map[time.Month]core.Money) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin rates tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM pro_rata_rates WHERE category_id = ?`, categoryID); err != nil {
		return fmt.Errorf("clear rates: %w", err)
	}
	for m := time.January; m <= time.December; m++ {
		rate, ok := rates[m]
		if !ok {
			continue
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO pro_rata_rates (category_id, month, amount_cents)
			VALUES (?, ?, ?)`, categoryID, int(m), rate.Cents); err != nil {
			return fmt.Errorf("insert rate for month %d: %w", int(m), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit rates tx: %w", err)
	}
	slog.InfoContext(ctx, "Rate table replaced", "category_id", categoryID, "months", len(rates))
	return nil
}

// --- Applications ---

func (r *SQLiteRepository) CreateApplication(ctx context.Context, a core.Application) (int64, error) {
	now := fmtTime(time.Now())
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO applications (full_name, email, category_id, join_month, quoted_fee_cents, status, notes, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.FullName, a.Email, a.CategoryID, int(a.JoinMonth), a.QuotedFee.Cents, string(a.Status), a.Notes, now, now)
	if err != nil {
		return 0, fmt.Errorf("create application: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("application insert id: %w", err)
	}
	return id, nil
}

const applicationColumns = `id, full_name, email, category_id, join_month, quoted_fee_cents, status, notes, COALESCE(member_id, 0), created_at, updated_at`

func scanApplication(row interface{ Scan(...any) error }) (core.Application, error) {
	var a core.Application
	var month int
	var status, created, updated string
	err := row.Scan(&a.ID, &a.FullName, &a.Email, &a.CategoryID, &month,
		&a.QuotedFee.Cents, &status, &a.Notes, &a.MemberID, &created, &updated)
	if err != nil {
		return a, err
	}
	a.JoinMonth = time.Month(month)
	a.Status = core.ApplicationStatus(status)
	a.CreatedAt = parseTime(created)
	a.UpdatedAt = parseTime(updated)
	return a, nil
}

var ErrApplicationNotFound = errors.New("application not found")

func (r *SQLiteRepository) GetApplication(ctx context.Context, id int64) (*core.Application, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+applicationColumns+` FROM applications WHERE id = ?`, id)
	a, err := scanApplication(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrApplicationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get application: %w", err)
	}
	return &a, nil
}

func (r *SQLiteRepository) ListApplications(ctx context.Context, status core.ApplicationStatus) ([]core.Application, error) {
	query := `SELECT ` + applicationColumns + ` FROM applications`
	var args []any
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, string(status))
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list applications: %w", err)
	}
	defer rows.Close()

	var apps []core.Application
	for rows.Next() {
		a, err := scanApplication(rows)
		if err != nil {
			return nil, fmt.Errorf("scan application: %w", err)
		}
		apps = append(apps, a)
	}
	return apps, rows.Err()
}

// ApproveApplication creates the member and marks the application approved in
// one transaction, so an approval can never half-complete.
func (r *SQLiteRepository) ApproveApplication(ctx context.Context, appID int64, m core.Member) (int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin approve tx: %w", err)
	}
	defer tx.Rollback()

	now := fmtTime(time.Now())
	res, err := tx.ExecContext(ctx, `
		INSERT INTO members (member_number, full_name, email, status, balance_cents, category_id, joined_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.MemberNumber, m.FullName, m.Email, string(m.Status), m.Balance.Cents, m.CategoryID, fmtTime(m.JoinedAt), now, now)
	if err != nil {
		return 0, fmt.Errorf("create member from application: %w", err)
	}
	memberID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("member insert id: %w", err)
	}

	upd, err := tx.ExecContext(ctx, `
		UPDATE applications SET status = 'approved', member_id = ?, updated_at = ?
		WHERE id = ? AND status = 'pending'`, memberID, now, appID)
	if err != nil {
		return 0, fmt.Errorf("mark application approved: %w", err)
	}
	n, err := upd.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("approve rows: %w", err)
	}
	if n == 0 {
		return 0, ErrApplicationNotFound
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit approve tx: %w", err)
	}

	slog.InfoContext(ctx, "Application approved",
		"application_id", appID,
		"member_id", memberID,
		"opening_balance_cents", m.Balance.Cents)

	return memberID, nil
}

func (r *SQLiteRepository) RejectApplication(ctx context.Context, id int64, notes string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE applications SET status = 'rejected', notes = ?, updated_at = ?
		WHERE id = ? AND status = 'pending'`, notes, fmtTime(time.Now()), id)
	if err != nil {
		return fmt.Errorf("reject application: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("reject rows: %w", err)
	}
	if n == 0 {
		return ErrApplicationNotFound
	}
	return nil
}

// --- Ledger sync queue ---

// PendingSyncPayment represents minimal data needed for sync queue messages
type PendingSyncPayment struct {
	ID        int64
	Attempts  int64
	CreatedAt time.Time
}

// GetPendingSyncPayments returns payments waiting for ledger export.
func (r *SQLiteRepository) GetPendingSyncPayments(ctx context.Context, limit int) ([]PendingSyncPayment, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, sync_attempts, created_at FROM payments
		WHERE sync_status = 'pending'
		ORDER BY created_at LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("get pending sync payments: %w", err)
	}
	defer rows.Close()

	var pending []PendingSyncPayment
	for rows.Next() {
		var p PendingSyncPayment
		var created string
		if err := rows.Scan(&p.ID, &p.Attempts, &created); err != nil {
			return nil, fmt.Errorf("scan pending payment: %w", err)
		}
		p.CreatedAt = parseTime(created)
		pending = append(pending, p)
	}
	return pending, rows.Err()
}

// MarkPaymentProcessing claims a payment before exporting so two workers
// never export the same row.
func (r *SQLiteRepository) MarkPaymentProcessing(ctx context.Context, id int64) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE payments SET sync_status = 'processing'
		WHERE id = ? AND sync_status = 'pending'`, id)
	if err != nil {
		return false, fmt.Errorf("mark payment processing: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("processing rows: %w", err)
	}
	return n > 0, nil
}

// MarkPaymentSynced marks a payment as successfully exported to the ledger.
func (r *SQLiteRepository) MarkPaymentSynced(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE payments SET sync_status = 'synced', synced_at = ?
		WHERE id = ?`, fmtTime(time.Now()), id)
	if err != nil {
		return fmt.Errorf("mark payment synced: %w", err)
	}
	slog.InfoContext(ctx, "Payment marked as synced", "id", id)
	return nil
}

// MarkPaymentSyncError records a failed export attempt. After three attempts
// the payment leaves the retry queue as 'error'.
func (r *SQLiteRepository) MarkPaymentSyncError(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE payments
		SET sync_attempts = sync_attempts + 1,
		    sync_status = CASE WHEN sync_attempts + 1 >= 3 THEN 'error' ELSE 'pending' END
		WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("mark payment sync error: %w", err)
	}
	slog.WarnContext(ctx, "Payment marked with sync error", "id", id)
	return nil
}

// ResetStaleProcessing requeues payments stuck in 'processing', typically
// after a worker crash.
func (r *SQLiteRepository) ResetStaleProcessing(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE payments SET sync_status = 'pending' WHERE sync_status = 'processing'`)
	if err != nil {
		return 0, fmt.Errorf("reset stale processing: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("reset rows: %w", err)
	}
	if n > 0 {
		slog.InfoContext(ctx, "Requeued stale processing payments", "count", n)
	}
	return n, nil
}

// --- Overview ---

// Overview aggregates headcounts and owed totals for the admin dashboard.
func (r *SQLiteRepository) Overview(ctx context.Context) (core.Overview, error) {
	var ov core.Overview

	row := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(CASE WHEN status = 'active' THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN status = 'active' AND balance_cents < 0 THEN -balance_cents ELSE 0 END), 0)
		FROM members WHERE deleted_at IS NULL`)
	if err := row.Scan(&ov.TotalMembers, &ov.ActiveMembers, &ov.OutstandingTotal.Cents); err != nil {
		return ov, fmt.Errorf("overview totals: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT c.name,
		       COUNT(m.id),
		       COALESCE(SUM(CASE WHEN m.status = 'active' AND m.balance_cents < 0 THEN -m.balance_cents ELSE 0 END), 0)
		FROM membership_categories c
		LEFT JOIN members m ON m.category_id = c.id AND m.deleted_at IS NULL
		GROUP BY c.id ORDER BY c.name`)
	if err != nil {
		return ov, fmt.Errorf("overview by category: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var cc core.CategoryCount
		if err := rows.Scan(&cc.Name, &cc.Members, &cc.Owed.Cents); err != nil {
			return ov, fmt.Errorf("scan category count: %w", err)
		}
		ov.ByCategory = append(ov.ByCategory, cc)
	}
	return ov, rows.Err()
}
