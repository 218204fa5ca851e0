package service

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/randal-web/administrador-de-finanzas/internal/domain"
)

// Input checks shared by the use cases. The cycle evaluator and the
// projection assume their input already passed through here.

func parsePositiveAmount(field, raw string) (decimal.Decimal, error) {
	d, err := parseAmount(field, raw)
	if err != nil {
		return decimal.Zero, err
	}
	if !d.IsPositive() {
		return decimal.Zero, &domain.ErrValidation{Field: field, Message: "must be greater than zero"}
	}
	return d, nil
}

func parseNonNegativeAmount(field, raw string) (decimal.Decimal, error) {
	if strings.TrimSpace(raw) == "" {
		return decimal.Zero, nil
	}
	d, err := parseAmount(field, raw)
	if err != nil {
		return decimal.Zero, err
	}
	if d.IsNegative() {
		return decimal.Zero, &domain.ErrValidation{Field: field, Message: "must not be negative"}
	}
	return d, nil
}

func parseAmount(field, raw string) (decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero, &domain.ErrValidation{Field: field, Message: "is required"}
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, &domain.ErrValidation{Field: field, Message: "must be a number"}
	}
	return d, nil
}

// parseDateOr parses raw, returning fallback when it is empty. A bare
// calendar date is pinned to 12:00 UTC so it keeps its day in any zone of
// the Americas.
func parseDateOr(field, raw string, fallback time.Time) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback, nil
	}
	t, err := domain.ParseDate(raw)
	if err != nil {
		return time.Time{}, &domain.ErrValidation{Field: field, Message: "invalid date, use YYYY-MM-DD"}
	}
	if len(raw) == len(domain.DateLayout) {
		t = t.Add(12 * time.Hour)
	}
	return t, nil
}

func requireText(field, v string) (string, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return "", &domain.ErrValidation{Field: field, Message: "is required"}
	}
	return v, nil
}

func validDayOfMonth(field string, day int) error {
	if day != 0 && (day < 1 || day > 31) {
		return &domain.ErrValidation{Field: field, Message: "must be between 1 and 31"}
	}
	return nil
}
