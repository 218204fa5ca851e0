package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ============================================================
// Recurring obligations (subscriptions and scheduled debt payments)
// ============================================================

// Frequency is the billing cadence of a recurring obligation.
type Frequency string

const (
	FrequencyMonthly Frequency = "monthly"
	FrequencyYearly  Frequency = "yearly"
	FrequencyOneTime Frequency = "one-time"
)

// ObligationStatus is the optional terminal marker of an obligation.
type ObligationStatus string

const (
	StatusNone ObligationStatus = ""
	StatusPaid ObligationStatus = "paid"
)

// Schedule is the frequency-specific part of an obligation.
// Exactly one of Monthly, Yearly or OneTime.
type Schedule interface {
	Frequency() Frequency
	isSchedule()
}

// Monthly is due every month on DueDay (1–31).
type Monthly struct {
	DueDay int
}

// Yearly is due every year on Month/Day. The year of the stored date is ignored.
type Yearly struct {
	Month time.Month
	Day   int
}

// OneTime is due once, on Date.
type OneTime struct {
	Date time.Time
}

func (Monthly) Frequency() Frequency { return FrequencyMonthly }
func (Yearly) Frequency() Frequency  { return FrequencyYearly }
func (OneTime) Frequency() Frequency { return FrequencyOneTime }

func (Monthly) isSchedule() {}
func (Yearly) isSchedule()  {}
func (OneTime) isSchedule() {}

// NewSchedule builds the schedule variant selected by freq.
// An empty frequency is treated as monthly. dueDay is only read for monthly
// schedules and date only for yearly/one-time ones.
func NewSchedule(freq Frequency, dueDay int, date *time.Time) (Schedule, error) {
	switch freq {
	case FrequencyMonthly, "":
		if dueDay < 1 || dueDay > 31 {
			return nil, &ErrValidation{Field: "dueDay", Message: "must be between 1 and 31"}
		}
		return Monthly{DueDay: dueDay}, nil
	case FrequencyYearly:
		if date == nil || date.IsZero() {
			return nil, &ErrValidation{Field: "date", Message: "required for yearly obligations"}
		}
		return Yearly{Month: date.Month(), Day: date.Day()}, nil
	case FrequencyOneTime:
		if date == nil || date.IsZero() {
			return nil, &ErrValidation{Field: "date", Message: "required for one-time obligations"}
		}
		return OneTime{Date: *date}, nil
	default:
		return nil, &ErrValidation{Field: "frequency", Message: fmt.Sprintf("unknown frequency %q", freq)}
	}
}

// RecurringObligation is a subscription or the scheduled payment of a debt.
type RecurringObligation struct {
	ID              string
	Name            string
	Amount          decimal.Decimal
	Schedule        Schedule
	LastPaymentDate *time.Time
	Status          ObligationStatus
}

// Frequency returns the frequency of the obligation's schedule (monthly when unset).
func (o RecurringObligation) Frequency() Frequency {
	if o.Schedule == nil {
		return FrequencyMonthly
	}
	return o.Schedule.Frequency()
}

// DueDate returns the stored date of yearly/one-time obligations.
// The year of a yearly obligation is not preserved, so it is reported in the
// reference year.
func (o RecurringObligation) DueDate(year int) (time.Time, bool) {
	switch s := o.Schedule.(type) {
	case Yearly:
		return time.Date(year, s.Month, s.Day, 0, 0, 0, 0, time.UTC), true
	case OneTime:
		return s.Date, true
	}
	return time.Time{}, false
}

// obligationJSON is the flat wire shape shared by the API, the stores and the cache.
type obligationJSON struct {
	ID              string           `json:"id"`
	Name            string           `json:"name"`
	Amount          decimal.Decimal  `json:"amount"`
	Frequency       Frequency        `json:"frequency"`
	DueDay          int              `json:"dueDay,omitempty"`
	Date            string           `json:"date,omitempty"`
	LastPaymentDate *time.Time       `json:"lastPaymentDate,omitempty"`
	Status          ObligationStatus `json:"status,omitempty"`
}

// MarshalJSON flattens the schedule variant into frequency/dueDay/date.
func (o RecurringObligation) MarshalJSON() ([]byte, error) {
	w := obligationJSON{
		ID:              o.ID,
		Name:            o.Name,
		Amount:          o.Amount,
		Frequency:       o.Frequency(),
		LastPaymentDate: o.LastPaymentDate,
		Status:          o.Status,
	}
	switch s := o.Schedule.(type) {
	case Monthly:
		w.DueDay = s.DueDay
	case Yearly:
		// Year 2000 is a leap year, so Feb 29 survives the round trip.
		w.Date = time.Date(2000, s.Month, s.Day, 0, 0, 0, 0, time.UTC).Format(DateLayout)
	case OneTime:
		w.Date = s.Date.Format(DateLayout)
	}
	return json.Marshal(w)
}

// UnmarshalJSON rebuilds the schedule variant from the flat shape.
func (o *RecurringObligation) UnmarshalJSON(data []byte) error {
	var w obligationJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	var date *time.Time
	if w.Date != "" {
		d, err := ParseDate(w.Date)
		if err != nil {
			return err
		}
		date = &d
	}
	sched, err := NewSchedule(w.Frequency, w.DueDay, date)
	if err != nil {
		return err
	}
	*o = RecurringObligation{
		ID:              w.ID,
		Name:            w.Name,
		Amount:          w.Amount,
		Schedule:        sched,
		LastPaymentDate: w.LastPaymentDate,
		Status:          w.Status,
	}
	return nil
}

// DateLayout is the calendar date layout used on the wire.
const DateLayout = "2006-01-02"

// ParseDate accepts a calendar date, an RFC3339 timestamp, or a PostgREST
// timestamp without zone. Timestamps keep their own calendar day.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02 15:04:05", DateLayout} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, &ErrValidation{Field: "date", Message: fmt.Sprintf("invalid date %q, use YYYY-MM-DD", s)}
}

// ScheduleColumns splits a schedule into the frequency/due_day/date columns
// of the stores. Yearly dates are written in year 2000.
func ScheduleColumns(s Schedule) (freq Frequency, dueDay int, date *time.Time) {
	switch v := s.(type) {
	case Monthly:
		return FrequencyMonthly, v.DueDay, nil
	case Yearly:
		d := time.Date(2000, v.Month, v.Day, 0, 0, 0, 0, time.UTC)
		return FrequencyYearly, 0, &d
	case OneTime:
		d := v.Date
		return FrequencyOneTime, 0, &d
	}
	return FrequencyMonthly, 0, nil
}
