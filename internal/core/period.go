package core

import (
	"fmt"
	"time"
)

// Period is a calendar month. For payments it is the billing period the
// payment is credited against, independent of the date it was recorded.
type Period struct {
	Year  int `json:"year"`
	Month int `json:"month"`
}

func (p Period) Validate() error {
	if p.Year < 1 || p.Year > 9999 {
		return NewValidationError("year", ErrInvalidYear.Error())
	}
	if p.Month < 1 || p.Month > 12 {
		return NewValidationError("month", ErrInvalidMonth.Error())
	}
	return nil
}

// Key renders the period as "YYYY-MM".
func (p Period) Key() string {
	return fmt.Sprintf("%04d-%02d", p.Year, p.Month)
}

func (p Period) String() string {
	return p.Key()
}

// Prev returns the preceding month, rolling January back to December of the prior year.
func (p Period) Prev() Period {
	if p.Month <= 1 {
		return Period{Year: p.Year - 1, Month: 12}
	}
	return Period{Year: p.Year, Month: p.Month - 1}
}

// Start is the first day of the period at midnight UTC.
func (p Period) Start() time.Time {
	return time.Date(p.Year, time.Month(p.Month), 1, 0, 0, 0, 0, time.UTC)
}

// PeriodOf returns the period containing t, in t's location.
func PeriodOf(t time.Time) Period {
	return Period{Year: t.Year(), Month: int(t.Month())}
}

// RollingPeriods returns the period containing now and the n-1 periods before
// it, newest first.
func RollingPeriods(now time.Time, n int) []Period {
	if n <= 0 {
		return nil
	}
	out := make([]Period, 0, n)
	p := PeriodOf(now)
	for i := 0; i < n; i++ {
		out = append(out, p)
		p = p.Prev()
	}
	return out
}

// ValidateYear checks a standalone year parameter.
func ValidateYear(year int) error {
	if year < 1 || year > 9999 {
		return NewValidationError("year", ErrInvalidYear.Error())
	}
	return nil
}
