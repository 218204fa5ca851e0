// Package postgres implements the ledger store directly on PostgreSQL with
// database/sql and lib/pq. It reads the same tables as the Supabase adapter
// and is selected when DATABASE_URL is set.
package postgres

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	_ "github.com/lib/pq"

	"github.com/randal-web/administrador-de-finanzas/internal/domain"
)

var tracer = otel.Tracer("postgres")

//go:embed schema.sql
var schema string

// Store provides database operations for the ledger.
type Store struct {
	db     *sql.DB
	logger *zap.Logger
}

// Open connects to dsn and verifies the connection.
func Open(ctx context.Context, dsn string, maxConns int) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if maxConns > 0 {
		db.SetMaxOpenConns(maxConns)
		db.SetMaxIdleConns(maxConns)
	}
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

// NewStore wraps an open database.
func NewStore(db *sql.DB, logger *zap.Logger) *Store {
	return &Store{db: db, logger: logger}
}

// Migrate creates the ledger tables when missing.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

// Ping checks the connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

type scanner interface {
	Scan(dest ...any) error
}

// exec runs a write and wraps failures as external service errors.
func (s *Store) exec(ctx context.Context, op, query string, args ...any) error {
	ctx, span := tracer.Start(ctx, "Postgres."+op)
	defer span.End()

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		span.RecordError(err)
		s.logger.Error("postgres: write failed", zap.String("op", op), zap.Error(err))
		return &domain.ErrExternalService{Service: "postgres", Err: fmt.Errorf("%s: %w", op, err)}
	}
	return nil
}

// query runs a read and hands every row to scan.
func (s *Store) query(ctx context.Context, op string, scan func(scanner) error, query string, args ...any) error {
	ctx, span := tracer.Start(ctx, "Postgres."+op)
	defer span.End()

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		span.RecordError(err)
		return &domain.ErrExternalService{Service: "postgres", Err: fmt.Errorf("%s: %w", op, err)}
	}
	defer rows.Close()

	for rows.Next() {
		if err := scan(rows); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
	}
	if err := rows.Err(); err != nil {
		return &domain.ErrExternalService{Service: "postgres", Err: fmt.Errorf("%s: %w", op, err)}
	}
	return nil
}

// ============================================================
// Transactions
// ============================================================

func (s *Store) ListTransactions(ctx context.Context, userID string) ([]domain.Transaction, error) {
	out := []domain.Transaction{}
	err := s.query(ctx, "ListTransactions", func(row scanner) error {
		var tx domain.Transaction
		var debtID sql.NullString
		if err := row.Scan(&tx.ID, &tx.Type, &tx.Amount, &tx.Category, &tx.Description, &tx.Date, &debtID); err != nil {
			return err
		}
		tx.DebtID = debtID.String
		out = append(out, tx)
		return nil
	}, `
		SELECT id, type, amount, category, description, date, debt_id
		FROM transactions
		WHERE user_id = $1
		ORDER BY date DESC`, userID)
	return out, err
}

func (s *Store) InsertTransaction(ctx context.Context, userID string, tx domain.Transaction) error {
	return s.exec(ctx, "InsertTransaction", `
		INSERT INTO transactions (id, user_id, type, amount, category, description, date, debt_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		tx.ID, userID, tx.Type, tx.Amount, tx.Category, tx.Description, tx.Date, nullString(tx.DebtID))
}

func (s *Store) DeleteTransaction(ctx context.Context, userID, id string) error {
	return s.exec(ctx, "DeleteTransaction", `DELETE FROM transactions WHERE user_id = $1 AND id = $2`, userID, id)
}

// ============================================================
// Subscriptions
// ============================================================

const subscriptionColumns = `id, name, amount, frequency, due_day, date, last_payment_date, status`

func scanSubscription(row scanner, extra ...any) (domain.RecurringObligation, error) {
	var (
		o        domain.RecurringObligation
		freq     string
		dueDay   sql.NullInt32
		date     sql.NullTime
		lastPaid sql.NullTime
		status   sql.NullString
	)
	dest := append([]any{&o.ID, &o.Name, &o.Amount, &freq, &dueDay, &date, &lastPaid, &status}, extra...)
	if err := row.Scan(dest...); err != nil {
		return o, err
	}
	sched, err := domain.NewSchedule(domain.Frequency(freq), int(dueDay.Int32), timePtr(date))
	if err != nil {
		return o, fmt.Errorf("subscription %s: %w", o.ID, err)
	}
	o.Schedule = sched
	o.LastPaymentDate = timePtr(lastPaid)
	o.Status = domain.ObligationStatus(status.String)
	return o, nil
}

func subscriptionArgs(o domain.RecurringObligation) []any {
	freq, dueDay, date := domain.ScheduleColumns(o.Schedule)
	var day sql.NullInt32
	if dueDay > 0 {
		day = sql.NullInt32{Int32: int32(dueDay), Valid: true}
	}
	return []any{o.Name, o.Amount, string(freq), day, nullTime(date), nullTime(o.LastPaymentDate), nullString(string(o.Status))}
}

// ListSubscriptions returns the user's subscriptions. Rows whose schedule
// cannot be built are logged and skipped, as in ListAllSubscriptions.
func (s *Store) ListSubscriptions(ctx context.Context, userID string) ([]domain.RecurringObligation, error) {
	out := []domain.RecurringObligation{}
	err := s.query(ctx, "ListSubscriptions", s.collectSubscription(&out),
		`SELECT `+subscriptionColumns+` FROM subscriptions WHERE user_id = $1`, userID)
	return out, err
}

func (s *Store) collectSubscription(out *[]domain.RecurringObligation) func(scanner) error {
	return func(row scanner) error {
		o, err := scanSubscription(row)
		var invalid *domain.ErrValidation
		if errors.As(err, &invalid) {
			s.logger.Warn("postgres: skipping subscription", zap.String("id", o.ID), zap.Error(err))
			return nil
		}
		if err != nil {
			return err
		}
		*out = append(*out, o)
		return nil
	}
}

func (s *Store) InsertSubscription(ctx context.Context, userID string, o domain.RecurringObligation) error {
	args := append([]any{o.ID, userID}, subscriptionArgs(o)...)
	return s.exec(ctx, "InsertSubscription", `
		INSERT INTO subscriptions (id, user_id, name, amount, frequency, due_day, date, last_payment_date, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`, args...)
}

func (s *Store) UpdateSubscription(ctx context.Context, userID string, o domain.RecurringObligation) error {
	args := append([]any{o.ID, userID}, subscriptionArgs(o)...)
	return s.exec(ctx, "UpdateSubscription", `
		UPDATE subscriptions
		SET name = $3, amount = $4, frequency = $5, due_day = $6, date = $7, last_payment_date = $8, status = $9
		WHERE id = $1 AND user_id = $2`, args...)
}

func (s *Store) DeleteSubscription(ctx context.Context, userID, id string) error {
	return s.exec(ctx, "DeleteSubscription", `DELETE FROM subscriptions WHERE user_id = $1 AND id = $2`, userID, id)
}

// ============================================================
// Debts
// ============================================================

const debtColumns = `id, name, type, amount, remaining_amount, date, payment_date, payment_amount,
	last_payment_date, status, credit_limit, cutoff_day, payment_day`

func scanDebt(row scanner, extra ...any) (domain.Debt, error) {
	var (
		d             domain.Debt
		taken         sql.NullTime
		paymentDate   sql.NullTime
		paymentAmount decimal.NullDecimal
		lastPaid      sql.NullTime
		status        sql.NullString
		creditLimit   decimal.NullDecimal
		cutoffDay     sql.NullInt32
		paymentDay    sql.NullInt32
	)
	dest := append([]any{
		&d.ID, &d.Name, &d.Type, &d.TotalAmount, &d.RemainingAmount, &taken, &paymentDate, &paymentAmount,
		&lastPaid, &status, &creditLimit, &cutoffDay, &paymentDay,
	}, extra...)
	if err := row.Scan(dest...); err != nil {
		return d, err
	}
	d.Date = timePtr(taken)
	d.LastPaymentDate = timePtr(lastPaid)
	d.Status = domain.ObligationStatus(status.String)
	d.CutoffDay = int(cutoffDay.Int32)
	d.PaymentDay = int(paymentDay.Int32)
	if creditLimit.Valid {
		limit := creditLimit.Decimal
		d.CreditLimit = &limit
	}
	if paymentDate.Valid {
		d.Schedule = domain.OneTime{Date: paymentDate.Time}
		d.Amount = d.RemainingAmount
		if paymentAmount.Valid {
			d.Amount = paymentAmount.Decimal
		}
	}
	return d, nil
}

func debtArgs(d domain.Debt) []any {
	var paymentDate sql.NullTime
	var paymentAmount decimal.NullDecimal
	if s, ok := d.Schedule.(domain.OneTime); ok {
		paymentDate = sql.NullTime{Time: s.Date, Valid: true}
		paymentAmount = decimal.NullDecimal{Decimal: d.Amount, Valid: true}
	}
	var creditLimit decimal.NullDecimal
	if d.CreditLimit != nil {
		creditLimit = decimal.NullDecimal{Decimal: *d.CreditLimit, Valid: true}
	}
	return []any{
		d.Name, string(d.Type), d.TotalAmount, d.RemainingAmount, nullTime(d.Date), paymentDate, paymentAmount,
		nullTime(d.LastPaymentDate), nullString(string(d.Status)), creditLimit, nullDay(d.CutoffDay), nullDay(d.PaymentDay),
	}
}

func (s *Store) ListDebts(ctx context.Context, userID string) ([]domain.Debt, error) {
	out := []domain.Debt{}
	err := s.query(ctx, "ListDebts", func(row scanner) error {
		d, err := scanDebt(row)
		if err != nil {
			return err
		}
		out = append(out, d)
		return nil
	}, `SELECT `+debtColumns+` FROM debts WHERE user_id = $1`, userID)
	return out, err
}

func (s *Store) InsertDebt(ctx context.Context, userID string, d domain.Debt) error {
	args := append([]any{d.ID, userID}, debtArgs(d)...)
	return s.exec(ctx, "InsertDebt", `
		INSERT INTO debts (id, user_id, name, type, amount, remaining_amount, date, payment_date, payment_amount,
			last_payment_date, status, credit_limit, cutoff_day, payment_day)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`, args...)
}

func (s *Store) UpdateDebt(ctx context.Context, userID string, d domain.Debt) error {
	args := append([]any{d.ID, userID}, debtArgs(d)...)
	return s.exec(ctx, "UpdateDebt", `
		UPDATE debts
		SET name = $3, type = $4, amount = $5, remaining_amount = $6, date = $7, payment_date = $8,
			payment_amount = $9, last_payment_date = $10, status = $11, credit_limit = $12,
			cutoff_day = $13, payment_day = $14
		WHERE id = $1 AND user_id = $2`, args...)
}

func (s *Store) DeleteDebt(ctx context.Context, userID, id string) error {
	return s.exec(ctx, "DeleteDebt", `DELETE FROM debts WHERE user_id = $1 AND id = $2`, userID, id)
}

// ============================================================
// Goals
// ============================================================

func (s *Store) ListGoals(ctx context.Context, userID string) ([]domain.Goal, error) {
	out := []domain.Goal{}
	err := s.query(ctx, "ListGoals", func(row scanner) error {
		var g domain.Goal
		if err := row.Scan(&g.ID, &g.Name, &g.TargetAmount, &g.CurrentAmount); err != nil {
			return err
		}
		out = append(out, g)
		return nil
	}, `SELECT id, name, target_amount, current_amount FROM goals WHERE user_id = $1`, userID)
	return out, err
}

func (s *Store) InsertGoal(ctx context.Context, userID string, g domain.Goal) error {
	return s.exec(ctx, "InsertGoal", `
		INSERT INTO goals (id, user_id, name, target_amount, current_amount)
		VALUES ($1, $2, $3, $4, $5)`,
		g.ID, userID, g.Name, g.TargetAmount, g.CurrentAmount)
}

func (s *Store) UpdateGoal(ctx context.Context, userID string, g domain.Goal) error {
	return s.exec(ctx, "UpdateGoal", `
		UPDATE goals SET name = $3, target_amount = $4, current_amount = $5
		WHERE id = $1 AND user_id = $2`,
		g.ID, userID, g.Name, g.TargetAmount, g.CurrentAmount)
}

func (s *Store) DeleteGoal(ctx context.Context, userID, id string) error {
	return s.exec(ctx, "DeleteGoal", `DELETE FROM goals WHERE user_id = $1 AND id = $2`, userID, id)
}

// ============================================================
// Expected income
// ============================================================

func (s *Store) ListExpectedIncome(ctx context.Context, userID string) ([]domain.ExpectedIncome, error) {
	out := []domain.ExpectedIncome{}
	err := s.query(ctx, "ListExpectedIncome", func(row scanner) error {
		var inc domain.ExpectedIncome
		if err := row.Scan(&inc.ID, &inc.Source, &inc.Amount, &inc.Date); err != nil {
			return err
		}
		out = append(out, inc)
		return nil
	}, `SELECT id, source, amount, date FROM expected_income WHERE user_id = $1 ORDER BY date`, userID)
	return out, err
}

func (s *Store) InsertExpectedIncome(ctx context.Context, userID string, inc domain.ExpectedIncome) error {
	return s.exec(ctx, "InsertExpectedIncome", `
		INSERT INTO expected_income (id, user_id, source, amount, date)
		VALUES ($1, $2, $3, $4, $5)`,
		inc.ID, userID, inc.Source, inc.Amount, inc.Date)
}

func (s *Store) DeleteExpectedIncome(ctx context.Context, userID, id string) error {
	return s.exec(ctx, "DeleteExpectedIncome", `DELETE FROM expected_income WHERE user_id = $1 AND id = $2`, userID, id)
}

// ============================================================
// Cross-user reads for the reminder job
// ============================================================

// ListAllSubscriptions returns every user's subscriptions. Rows that fail to
// map are logged and skipped.
func (s *Store) ListAllSubscriptions(ctx context.Context) ([]domain.OwnedObligation, error) {
	out := []domain.OwnedObligation{}
	err := s.query(ctx, "ListAllSubscriptions", func(row scanner) error {
		var userID string
		o, err := scanSubscription(row, &userID)
		if err != nil {
			s.logger.Warn("postgres: skipping subscription", zap.String("id", o.ID), zap.Error(err))
			return nil
		}
		out = append(out, domain.OwnedObligation{UserID: userID, Obligation: o, Source: "subscription"})
		return nil
	}, `SELECT `+subscriptionColumns+`, user_id FROM subscriptions`)
	return out, err
}

// ListAllScheduledDebts returns every debt with a payment date.
func (s *Store) ListAllScheduledDebts(ctx context.Context) ([]domain.OwnedObligation, error) {
	out := []domain.OwnedObligation{}
	err := s.query(ctx, "ListAllScheduledDebts", func(row scanner) error {
		var userID string
		d, err := scanDebt(row, &userID)
		if err != nil {
			s.logger.Warn("postgres: skipping debt", zap.String("id", d.ID), zap.Error(err))
			return nil
		}
		out = append(out, domain.OwnedObligation{UserID: userID, Obligation: d.RecurringObligation, Source: "debt"})
		return nil
	}, `SELECT `+debtColumns+`, user_id FROM debts WHERE payment_date IS NOT NULL`)
	return out, err
}

// GetUserContact reads the user's email from the Supabase auth schema.
func (s *Store) GetUserContact(ctx context.Context, userID string) (*domain.UserContact, error) {
	ctx, span := tracer.Start(ctx, "Postgres.GetUserContact")
	defer span.End()

	var c domain.UserContact
	var email sql.NullString
	err := s.db.QueryRowContext(ctx, `SELECT id, email FROM auth.users WHERE id = $1`, userID).Scan(&c.ID, &email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &domain.ErrNotFound{Resource: "user", ID: userID}
	}
	if err != nil {
		return nil, &domain.ErrExternalService{Service: "postgres", Err: fmt.Errorf("GetUserContact: %w", err)}
	}
	c.Email = email.String
	return &c, nil
}

// --- Helpers ---

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullDay(d int) sql.NullInt32 {
	return sql.NullInt32{Int32: int32(d), Valid: d > 0}
}
