package cycle_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/randal-web/administrador-de-finanzas/internal/cycle"
	"github.com/randal-web/administrador-de-finanzas/internal/domain"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func ptr(t time.Time) *time.Time { return &t }

func monthly(dueDay int, lastPayment *time.Time) domain.RecurringObligation {
	return domain.RecurringObligation{
		ID:              "sub-1",
		Name:            "Netflix",
		Amount:          decimal.NewFromInt(50),
		Schedule:        domain.Monthly{DueDay: dueDay},
		LastPaymentDate: lastPayment,
	}
}

func TestDaysRemaining(t *testing.T) {
	tests := []struct {
		name  string
		o     domain.RecurringObligation
		today time.Time
		want  int
	}{
		{"monthly before due day", monthly(15, nil), day(2025, 6, 10), 5},
		{"monthly on due day", monthly(15, nil), day(2025, 6, 15), 0},
		{"monthly unpaid after due day is overdue", monthly(15, nil), day(2025, 6, 20), -5},
		{"monthly paid after due day rolls over", monthly(15, ptr(day(2025, 6, 16))), day(2025, 6, 20), 25},
		{"monthly paid last month is still overdue", monthly(15, ptr(day(2025, 5, 15))), day(2025, 6, 20), -5},
		{"leap day unpaid", monthly(1, nil), day(2024, 2, 29), -28},
		{"leap day paid rolls to march 1", monthly(1, ptr(day(2024, 2, 2))), day(2024, 2, 29), 1},
		{"due 31 clamps to end of february", monthly(31, nil), day(2025, 2, 28), 0},
		{"due 31 mid february", monthly(31, nil), day(2025, 2, 15), 13},
		{"paid rollover clamps to next month length", monthly(30, ptr(day(2025, 1, 30))), day(2025, 1, 31), 28},
		{
			"yearly rolls into current year",
			domain.RecurringObligation{Schedule: domain.Yearly{Month: time.March, Day: 10}},
			day(2025, 1, 1), 68,
		},
		{
			"yearly due today",
			domain.RecurringObligation{Schedule: domain.Yearly{Month: time.March, Day: 10}},
			day(2025, 3, 10), 0,
		},
		{
			"yearly passed rolls to next year",
			domain.RecurringObligation{Schedule: domain.Yearly{Month: time.March, Day: 10}},
			day(2025, 3, 11), 364,
		},
		{
			"yearly feb 29 in a common year normalizes to march 1",
			domain.RecurringObligation{Schedule: domain.Yearly{Month: time.February, Day: 29}},
			day(2025, 2, 10), 19,
		},
		{
			"one-time in the future",
			domain.RecurringObligation{Schedule: domain.OneTime{Date: day(2025, 6, 12)}},
			day(2025, 6, 10), 2,
		},
		{
			"one-time in the past is an exact count",
			domain.RecurringObligation{Schedule: domain.OneTime{Date: day(2025, 6, 5)}},
			day(2025, 6, 10), -5,
		},
		{
			"one-time ignores the time of day",
			domain.RecurringObligation{Schedule: domain.OneTime{Date: time.Date(2025, 6, 11, 23, 0, 0, 0, time.UTC)}},
			time.Date(2025, 6, 10, 22, 0, 0, 0, time.UTC), 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := cycle.DaysRemaining(tt.o, tt.today)
			if got != tt.want {
				t.Errorf("DaysRemaining = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestDaysRemaining_MonthlyRange(t *testing.T) {
	for _, year := range []int{2023, 2024} {
		for m := time.January; m <= time.December; m++ {
			dim := cycle.DaysInMonth(year, m)
			for d := 1; d <= dim; d++ {
				today := day(year, m, d)
				for due := 1; due <= 31; due++ {
					for _, lp := range []*time.Time{nil, ptr(today)} {
						got := cycle.DaysRemaining(monthly(due, lp), today)
						if got < -(dim-1) || got > dim-1 {
							t.Fatalf("%s due %d paid=%v: %d outside [%d, %d]",
								today.Format(domain.DateLayout), due, lp != nil, got, -(dim - 1), dim-1)
						}
					}
				}
			}
		}
	}
}

func TestIsPaidCurrentCycle(t *testing.T) {
	yearly := func(lp *time.Time) domain.RecurringObligation {
		return domain.RecurringObligation{Schedule: domain.Yearly{Month: time.March, Day: 10}, LastPaymentDate: lp}
	}
	oneTime := func(status domain.ObligationStatus, lp *time.Time) domain.RecurringObligation {
		return domain.RecurringObligation{Schedule: domain.OneTime{Date: day(2025, 6, 1)}, Status: status, LastPaymentDate: lp}
	}

	tests := []struct {
		name  string
		o     domain.RecurringObligation
		today time.Time
		want  bool
	}{
		{"monthly never paid", monthly(15, nil), day(2025, 6, 20), false},
		{"monthly paid this month", monthly(15, ptr(day(2025, 6, 2))), day(2025, 6, 20), true},
		{"monthly paid last month", monthly(15, ptr(day(2025, 5, 30))), day(2025, 6, 20), false},
		{"monthly paid same month last year", monthly(15, ptr(day(2024, 6, 20))), day(2025, 6, 20), false},
		{"missing schedule is monthly", domain.RecurringObligation{LastPaymentDate: ptr(day(2025, 6, 1))}, day(2025, 6, 20), true},
		{"yearly paid in due month", yearly(ptr(day(2025, 3, 8))), day(2025, 6, 1), true},
		{"yearly paid late in the year", yearly(ptr(day(2025, 5, 2))), day(2025, 6, 1), true},
		{"yearly paid before due month", yearly(ptr(day(2025, 2, 15))), day(2025, 6, 1), false},
		{"yearly paid last year", yearly(ptr(day(2024, 3, 10))), day(2025, 6, 1), false},
		{"one-time with paid status", oneTime(domain.StatusPaid, nil), day(2025, 6, 20), true},
		{"one-time with payment but no status", oneTime(domain.StatusNone, ptr(day(2025, 6, 1))), day(2025, 6, 20), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cycle.IsPaidCurrentCycle(tt.o, tt.today); got != tt.want {
				t.Errorf("IsPaidCurrentCycle = %v, want %v", got, tt.want)
			}
			if again := cycle.IsPaidCurrentCycle(tt.o, tt.today); again != tt.want {
				t.Errorf("second call = %v, want %v", again, tt.want)
			}
		})
	}
}

func TestIsPaidCurrentCycle_UsesTodayLocation(t *testing.T) {
	cst := time.FixedZone("CST", -6*3600)
	// 03:00 UTC on July 1st is still June 30th in CST.
	o := monthly(15, ptr(time.Date(2025, 7, 1, 3, 0, 0, 0, time.UTC)))
	today := time.Date(2025, 6, 30, 12, 0, 0, 0, cst)

	if !cycle.IsPaidCurrentCycle(o, today) {
		t.Fatal("expected payment to count for June in CST")
	}
}

func TestPaymentRoundTrip(t *testing.T) {
	o := monthly(15, nil)
	today := day(2025, 6, 20)

	if cycle.IsPaidCurrentCycle(o, today) {
		t.Fatal("expected unpaid before recording a payment")
	}
	if got := cycle.DaysRemaining(o, today); got != -5 {
		t.Fatalf("expected -5 before payment, got %d", got)
	}

	o.LastPaymentDate = ptr(today)
	if !cycle.IsPaidCurrentCycle(o, today) {
		t.Fatal("expected paid after recording a payment")
	}
	if got := cycle.DaysRemaining(o, today); got != 25 {
		t.Fatalf("expected rollover to 25 after payment, got %d", got)
	}

	next := day(2025, 7, 1)
	if cycle.IsPaidCurrentCycle(o, next) {
		t.Fatal("expected unpaid once the next cycle starts")
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		days int
		want domain.CycleStatus
	}{
		{-30, domain.CycleOverdue},
		{-1, domain.CycleOverdue},
		{0, domain.CycleCritical},
		{3, domain.CycleCritical},
		{4, domain.CycleWarning},
		{7, domain.CycleWarning},
		{8, domain.CycleOK},
		{365, domain.CycleOK},
	}
	for _, tt := range tests {
		if got := cycle.Classify(tt.days); got != tt.want {
			t.Errorf("Classify(%d) = %s, want %s", tt.days, got, tt.want)
		}
	}
}

func TestClassify_BucketsAreExhaustive(t *testing.T) {
	for d := -400; d <= 400; d++ {
		matches := 0
		for _, in := range []bool{d < 0, d >= 0 && d <= 3, d >= 4 && d <= 7, d > 7} {
			if in {
				matches++
			}
		}
		if matches != 1 {
			t.Fatalf("days %d matched %d buckets", d, matches)
		}
		switch cycle.Classify(d) {
		case domain.CycleOverdue, domain.CycleCritical, domain.CycleWarning, domain.CycleOK:
		default:
			t.Fatalf("days %d produced an unknown status", d)
		}
	}
}

func TestStatusText(t *testing.T) {
	tests := map[int]string{
		-5: "Vencido hace 5 días",
		0:  "Vence hoy",
		1:  "Vence mañana",
		12: "Vence en 12 días",
	}
	for days, want := range tests {
		if got := cycle.StatusText(days); got != want {
			t.Errorf("StatusText(%d) = %q, want %q", days, got, want)
		}
	}
}

func TestEvaluate(t *testing.T) {
	v := cycle.Evaluate(monthly(15, nil), day(2025, 6, 10))

	if v.Paid {
		t.Error("expected unpaid")
	}
	if v.DaysRemaining != 5 {
		t.Errorf("expected 5 days, got %d", v.DaysRemaining)
	}
	if v.Status != domain.CycleWarning {
		t.Errorf("expected warning, got %s", v.Status)
	}
	if !v.NextDue.Equal(day(2025, 6, 15)) {
		t.Errorf("expected next due 2025-06-15, got %s", v.NextDue)
	}
}

func TestReminderKind(t *testing.T) {
	tests := []struct {
		name  string
		o     domain.RecurringObligation
		today time.Time
		want  domain.ReminderKind
	}{
		{"due in three days", monthly(15, nil), day(2025, 6, 12), domain.ReminderUpcoming},
		{"due today", monthly(15, nil), day(2025, 6, 15), domain.ReminderUpcoming},
		{"due in four days", monthly(15, nil), day(2025, 6, 11), domain.ReminderNone},
		{"overdue", monthly(15, nil), day(2025, 6, 16), domain.ReminderOverdue},
		{"paid and within window", monthly(15, ptr(day(2025, 6, 1))), day(2025, 6, 13), domain.ReminderNone},
		{
			"one-time overdue",
			domain.RecurringObligation{Schedule: domain.OneTime{Date: day(2025, 6, 1)}},
			day(2025, 6, 3), domain.ReminderOverdue,
		},
		{
			"one-time paid",
			domain.RecurringObligation{Schedule: domain.OneTime{Date: day(2025, 6, 1)}, Status: domain.StatusPaid},
			day(2025, 6, 3), domain.ReminderNone,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cycle.ReminderKind(tt.o, tt.today, 3); got != tt.want {
				t.Errorf("ReminderKind = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPartition(t *testing.T) {
	today := day(2025, 6, 10)
	a := monthly(25, nil)
	a.ID = "a"
	b := monthly(12, nil)
	b.ID = "b"
	c := monthly(5, ptr(day(2025, 6, 5)))
	c.ID = "c"

	pending, paid := cycle.Partition([]domain.RecurringObligation{a, b, c}, today)

	if len(pending) != 2 || len(paid) != 1 {
		t.Fatalf("expected 2 pending and 1 paid, got %d and %d", len(pending), len(paid))
	}
	if pending[0].Obligation.ID != "b" || pending[1].Obligation.ID != "a" {
		t.Errorf("expected pending sorted b, a; got %s, %s", pending[0].Obligation.ID, pending[1].Obligation.ID)
	}
	if paid[0].Obligation.ID != "c" {
		t.Errorf("expected c to be paid, got %s", paid[0].Obligation.ID)
	}
}

func TestDueByCurrentMonth(t *testing.T) {
	today := day(2025, 6, 10)
	tests := []struct {
		name string
		o    domain.RecurringObligation
		want bool
	}{
		{"monthly", monthly(28, nil), true},
		{"yearly this month", domain.RecurringObligation{Schedule: domain.Yearly{Month: time.June, Day: 30}}, true},
		{"yearly later this year", domain.RecurringObligation{Schedule: domain.Yearly{Month: time.August, Day: 1}}, false},
		{"one-time last month", domain.RecurringObligation{Schedule: domain.OneTime{Date: day(2025, 5, 20)}}, true},
		{"one-time next month", domain.RecurringObligation{Schedule: domain.OneTime{Date: day(2025, 7, 1)}}, false},
	}
	for _, tt := range tests {
		if got := cycle.DueByCurrentMonth(tt.o, today); got != tt.want {
			t.Errorf("%s: got %v, want %v", tt.name, got, tt.want)
		}
	}
}
