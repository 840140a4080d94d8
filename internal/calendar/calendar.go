// Package calendar computes working days and contractual hours for a month.
package calendar

import (
	"time"

	calendarerrors "go-pointage/internal/calendar/errors"
	"go-pointage/internal/shared/apperror"

	"github.com/shopspring/decimal"
)

// HoursPlaces is the number of decimal places hour columns keep.
const HoursPlaces = apperror.HoursPlaces

// FitsHoursPlaces reports whether h survives storage without rounding.
func FitsHoursPlaces(h decimal.Decimal) bool {
	return h.Equal(h.Round(HoursPlaces))
}

type Config struct {
	// WorkingDays lists the weekdays counted as business days. Order is irrelevant.
	WorkingDays []time.Weekday
}

func DefaultConfig() Config {
	return Config{
		WorkingDays: []time.Weekday{
			time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday,
		},
	}
}

type Calculator struct {
	working map[time.Weekday]bool
	perWeek int
}

func NewCalculator(cfg Config) *Calculator {
	if len(cfg.WorkingDays) == 0 {
		cfg = DefaultConfig()
	}
	working := make(map[time.Weekday]bool, len(cfg.WorkingDays))
	for _, d := range cfg.WorkingDays {
		working[d] = true
	}
	return &Calculator{working: working, perWeek: len(working)}
}

// WorkDaysPerWeek is the number of configured working weekdays.
func (c *Calculator) WorkDaysPerWeek() int {
	return c.perWeek
}

// BusinessDaysInMonth returns every working date of the month in ascending order, at UTC midnight.
func (c *Calculator) BusinessDaysInMonth(month, year int) ([]time.Time, error) {
	start, end, err := MonthBounds(month, year)
	if err != nil {
		return nil, err
	}

	days := make([]time.Time, 0, 23)
	for d := start; d.Before(end); d = d.AddDate(0, 0, 1) {
		if c.working[d.Weekday()] {
			days = append(days, d)
		}
	}
	return days, nil
}

// ContractualHoursForMonth returns (weeklyHours / workDaysPerWeek) * businessDays,
// rounded half-up to two decimals.
func (c *Calculator) ContractualHoursForMonth(weeklyHours decimal.Decimal, month, year int) (decimal.Decimal, error) {
	if weeklyHours.IsNegative() {
		return decimal.Zero, calendarerrors.ErrInvalidWeeklyHours
	}
	days, err := c.BusinessDaysInMonth(month, year)
	if err != nil {
		return decimal.Zero, err
	}

	// multiply first so whole-hour contracts stay exact
	return weeklyHours.
		Mul(decimal.NewFromInt(int64(len(days)))).
		Div(decimal.NewFromInt(int64(c.perWeek))).
		Round(HoursPlaces), nil
}

func ValidatePeriod(month, year int) error {
	if month < 1 || month > 12 || year <= 0 {
		return calendarerrors.ErrInvalidCalendarInput
	}
	return nil
}

// MonthBounds returns [first day, first day of next month) in UTC.
func MonthBounds(month, year int) (time.Time, time.Time, error) {
	if err := ValidatePeriod(month, year); err != nil {
		return time.Time{}, time.Time{}, err
	}
	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, 0), nil
}

// Contains reports whether date falls in the given month.
func Contains(date time.Time, month, year int) bool {
	return date.Year() == year && int(date.Month()) == month
}

// DateOnly truncates t to its calendar date at UTC midnight.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
