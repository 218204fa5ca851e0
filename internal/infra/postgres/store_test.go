package postgres

import (
	"database/sql"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/randal-web/administrador-de-finanzas/internal/domain"
)

// fakeRow feeds driver values to Scan the way database/sql would.
type fakeRow []any

func (r fakeRow) Scan(dest ...any) error {
	if len(dest) != len(r) {
		return fmt.Errorf("expected %d columns, got %d", len(r), len(dest))
	}
	for i, d := range dest {
		switch p := d.(type) {
		case sql.Scanner:
			if err := p.Scan(r[i]); err != nil {
				return fmt.Errorf("column %d: %w", i, err)
			}
		case *string:
			*p = r[i].(string)
		case *domain.DebtType:
			*p = domain.DebtType(r[i].(string))
		default:
			return fmt.Errorf("column %d: unsupported destination %T", i, d)
		}
	}
	return nil
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestScanSubscription(t *testing.T) {
	tests := []struct {
		name    string
		row     fakeRow
		want    domain.Schedule
		wantErr bool
	}{
		{
			name: "monthly",
			row:  fakeRow{"s1", "Netflix", "199.00", "monthly", int64(15), nil, nil, nil},
			want: domain.Monthly{DueDay: 15},
		},
		{
			name: "yearly keeps month and day",
			row:  fakeRow{"s2", "Dominio", "300", "yearly", nil, day(2000, time.February, 29), nil, "pending"},
			want: domain.Yearly{Month: time.February, Day: 29},
		},
		{
			name: "one-time",
			row:  fakeRow{"s3", "Curso", "1000", "one-time", nil, day(2025, time.April, 2), nil, nil},
			want: domain.OneTime{Date: day(2025, time.April, 2)},
		},
		{
			name:    "monthly without due day",
			row:     fakeRow{"s4", "Gym", "500", "monthly", nil, nil, nil, nil},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := scanSubscription(tt.row)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected an error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.Schedule != tt.want {
				t.Errorf("expected schedule %#v, got %#v", tt.want, got.Schedule)
			}
		})
	}
}

func TestScanSubscription_WithOwner(t *testing.T) {
	paid := day(2025, time.March, 1)
	var owner string
	o, err := scanSubscription(fakeRow{"s1", "Luz", "450.5", "monthly", int64(10), nil, paid, "paid", "user-9"}, &owner)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if owner != "user-9" {
		t.Errorf("expected owner user-9, got %q", owner)
	}
	if o.LastPaymentDate == nil || !o.LastPaymentDate.Equal(paid) || o.Status != domain.StatusPaid {
		t.Errorf("unexpected payment state: %+v", o)
	}
	if !o.Amount.Equal(decimal.RequireFromString("450.5")) {
		t.Errorf("expected amount 450.5, got %s", o.Amount)
	}
}

func TestCollectSubscription_SkipsInvalidSchedule(t *testing.T) {
	s := NewStore(nil, zap.NewNop())
	var out []domain.RecurringObligation
	collect := s.collectSubscription(&out)

	rows := []fakeRow{
		{"s1", "Gym", "500", "monthly", nil, nil, nil, nil},
		{"s2", "Netflix", "199", "monthly", int64(15), nil, nil, nil},
	}
	for _, row := range rows {
		if err := collect(row); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if len(out) != 1 || out[0].ID != "s2" {
		t.Fatalf("expected only s2, got %+v", out)
	}

	if err := collect(fakeRow{"s3"}); err == nil {
		t.Error("expected scan errors to surface")
	}
}

func TestScanDebt(t *testing.T) {
	t.Run("scheduled payment defaults to the remaining balance", func(t *testing.T) {
		d, err := scanDebt(fakeRow{
			"d1", "Préstamo", "loan", "5000", "3200", nil, day(2025, time.March, 20), nil,
			nil, nil, nil, nil, nil,
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !d.Scheduled() || !d.Amount.Equal(decimal.NewFromInt(3200)) {
			t.Errorf("expected scheduled payment of 3200, got %+v", d)
		}
		if d.Type != domain.DebtLoan {
			t.Errorf("expected loan, got %s", d.Type)
		}
	})

	t.Run("credit card without schedule", func(t *testing.T) {
		d, err := scanDebt(fakeRow{
			"d2", "Tarjeta", "credit-card", "8000", "6000", day(2025, time.January, 10), nil, nil,
			nil, nil, "20000", int64(3), int64(23),
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if d.Scheduled() {
			t.Error("expected no scheduled payment")
		}
		if d.CreditLimit == nil || !d.CreditLimit.Equal(decimal.NewFromInt(20000)) || d.CutoffDay != 3 || d.PaymentDay != 23 {
			t.Errorf("unexpected credit card fields: %+v", d)
		}
		if d.Date == nil || !d.Date.Equal(day(2025, time.January, 10)) {
			t.Errorf("unexpected date: %v", d.Date)
		}
	})
}

func TestSubscriptionArgs(t *testing.T) {
	args := subscriptionArgs(domain.RecurringObligation{
		Name:     "Dominio",
		Amount:   decimal.NewFromInt(300),
		Schedule: domain.Yearly{Month: time.February, Day: 29},
	})

	if args[2] != "yearly" {
		t.Errorf("expected yearly, got %v", args[2])
	}
	if dueDay := args[3].(sql.NullInt32); dueDay.Valid {
		t.Errorf("expected null due_day, got %v", dueDay)
	}
	date := args[4].(sql.NullTime)
	if !date.Valid || date.Time.Format(domain.DateLayout) != "2000-02-29" {
		t.Errorf("expected 2000-02-29, got %v", date)
	}
	if status := args[6].(sql.NullString); status.Valid {
		t.Errorf("expected null status, got %v", status)
	}
}

func TestDebtArgs(t *testing.T) {
	limit := decimal.NewFromInt(20000)
	args := debtArgs(domain.Debt{
		RecurringObligation: domain.RecurringObligation{
			Name:     "Tarjeta",
			Amount:   decimal.NewFromInt(800),
			Schedule: domain.OneTime{Date: day(2025, time.March, 20)},
		},
		Type:            domain.DebtCreditCard,
		TotalAmount:     decimal.NewFromInt(8000),
		RemainingAmount: decimal.NewFromInt(6000),
		CreditLimit:     &limit,
		CutoffDay:       3,
	})

	if paymentDate := args[5].(sql.NullTime); !paymentDate.Valid || !paymentDate.Time.Equal(day(2025, time.March, 20)) {
		t.Errorf("unexpected payment date: %v", paymentDate)
	}
	if amount := args[6].(decimal.NullDecimal); !amount.Valid || !amount.Decimal.Equal(decimal.NewFromInt(800)) {
		t.Errorf("unexpected payment amount: %v", amount)
	}
	if args[9].(decimal.NullDecimal).Decimal.Cmp(limit) != 0 {
		t.Errorf("unexpected credit limit: %v", args[9])
	}
	if cutoff, payDay := args[10].(sql.NullInt32), args[11].(sql.NullInt32); !cutoff.Valid || payDay.Valid {
		t.Errorf("expected cutoff 3 and null payment day, got %v %v", cutoff, payDay)
	}
}

func TestSchemaCoversTables(t *testing.T) {
	for _, table := range []string{"transactions", "subscriptions", "debts", "goals", "expected_income"} {
		if !strings.Contains(schema, "CREATE TABLE IF NOT EXISTS "+table+" (") {
			t.Errorf("schema is missing table %s", table)
		}
	}
}
