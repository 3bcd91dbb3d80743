package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	// DateLayout is the calendar date format used across the ledger.
	DateLayout = "2006-01-02"

	// CycleStartDay is the day of month every billing cycle begins on.
	CycleStartDay = 13
	// CycleEndDay is the day of the following month the cycle closes on.
	CycleEndDay = 12
	// DueAfterDays is the payment window measured from the cycle start.
	DueAfterDays = 50
)

// ErrInvalidDate is matched by every InvalidDateError.
var ErrInvalidDate = errors.New("invalid date")

// InvalidDateError reports a missing or malformed reference date.
type InvalidDateError struct {
	Input string
	Err   error
}

func (e *InvalidDateError) Error() string {
	if e.Input == "" {
		return "invalid date: missing"
	}
	if e.Err != nil {
		return fmt.Sprintf("invalid date %q: %v", e.Input, e.Err)
	}
	return fmt.Sprintf("invalid date %q", e.Input)
}

func (e *InvalidDateError) Is(target error) bool {
	return target == ErrInvalidDate
}

func (e *InvalidDateError) Unwrap() error {
	return e.Err
}

// BillingPeriod is the 13th-to-12th statement window and its payment deadline.
type BillingPeriod struct {
	Start   Date
	End     Date
	DueDate Date
}

// ParseDate parses a YYYY-MM-DD string into a Date.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Date{}, &InvalidDateError{}
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, &InvalidDateError{Input: s, Err: err}
	}
	return Date{Time: t}, nil
}

// ComputeBillingPeriod returns the cycle that contains today.
//
// A cycle starts on the 13th: on or after the 13th the current month's cycle
// applies, before it the previous month's. The cycle ends on the 12th of the
// month after its start and payment is due 50 days after the start.
func ComputeBillingPeriod(today Date) (BillingPeriod, error) {
	if today.IsZero() {
		return BillingPeriod{}, &InvalidDateError{}
	}

	year, month := today.Year(), today.Month()
	if today.Day() < CycleStartDay {
		month--
		if month < time.January {
			month = time.December
			year--
		}
	}
	start := NewDate(year, int(month), CycleStartDay)

	endYear, endMonth := year, month+1
	if endMonth > time.December {
		endMonth = time.January
		endYear++
	}

	return BillingPeriod{
		Start:   start,
		End:     NewDate(endYear, int(endMonth), CycleEndDay),
		DueDate: start.AddDays(DueAfterDays),
	}, nil
}

// Window returns the half-open instant range [start of Start, start of the day after End) in loc.
func (p BillingPeriod) Window(loc *time.Location) (from, to time.Time) {
	return p.Start.In(loc), p.End.AddDays(1).In(loc)
}

// Contains reports whether ts falls within the period's window in loc.
func (p BillingPeriod) Contains(ts time.Time, loc *time.Location) bool {
	from, to := p.Window(loc)
	return !ts.Before(from) && ts.Before(to)
}
