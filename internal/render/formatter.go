// Package render turns statements into presentation rows and documents.
package render

import (
	"fmt"
	"strings"
	"time"

	"ledger/internal/core"
)

const (
	// descriptionLimit is the widest description shown untruncated.
	descriptionLimit = 33
	// descriptionKeep is how much of a long description survives truncation.
	descriptionKeep = 30
	ellipsis        = "..."

	timestampLayout = "2006-01-02 15:04:05"

	DefaultCurrencySymbol = "Rs."
)

// Header is the identifying block at the top of a statement.
type Header struct {
	Name        string
	Email       string
	PeriodStart string
	PeriodEnd   string
	DueDate     string
}

// Line is one formatted transaction row.
type Line struct {
	Date        string
	Kind        string
	Amount      string
	Description string
}

// View is a statement ready for any renderer.
type View struct {
	Header   Header
	Lines    []Line
	TotalDue string
	// Footer is the closing sentence with the deadline and amount.
	Footer string
	// BaseName is the download name without extension.
	BaseName string
}

// Title is the first statement line.
func (v View) Title() string {
	return fmt.Sprintf("Statement for %s (%s)", v.Header.Name, v.Header.Email)
}

// PeriodLine describes the billing window.
func (v View) PeriodLine() string {
	return fmt.Sprintf("Billing Period: %s to %s", v.Header.PeriodStart, v.Header.PeriodEnd)
}

// DueLine states the payment deadline.
func (v View) DueLine() string {
	return "Due Date: " + v.Header.DueDate
}

// Filename returns the download name for the given extension.
func (v View) Filename(ext string) string {
	return v.BaseName + "." + ext
}

// Formatter converts statements to views. It has no side effects.
type Formatter struct {
	CurrencySymbol string
	// Location is the zone line timestamps are printed in. Nil means UTC.
	Location *time.Location
}

func NewFormatter(symbol string) Formatter {
	if symbol == "" {
		symbol = DefaultCurrencySymbol
	}
	return Formatter{CurrencySymbol: symbol, Location: time.UTC}
}

// In returns a copy of f that prints timestamps in loc.
func (f Formatter) In(loc *time.Location) Formatter {
	if loc != nil {
		f.Location = loc
	}
	return f
}

func (f Formatter) Format(st core.Statement) View {
	due := st.Period.DueDate.String()
	v := View{
		Header: Header{
			Name:        st.User.Name,
			Email:       st.User.Email,
			PeriodStart: st.Period.Start.String(),
			PeriodEnd:   st.Period.End.String(),
			DueDate:     due,
		},
		Lines:    make([]Line, 0, len(st.Lines)),
		TotalDue: st.TotalDue.Format(f.CurrencySymbol),
		BaseName: strings.ReplaceAll(st.User.Name, " ", "_") + "_due_" + due,
	}
	loc := f.Location
	if loc == nil {
		loc = time.UTC
	}
	for _, t := range st.Lines {
		v.Lines = append(v.Lines, Line{
			Date:        t.CreatedAt.In(loc).Format(timestampLayout),
			Kind:        strings.ToUpper(string(t.Kind)),
			Amount:      t.Amount.Format(f.CurrencySymbol),
			Description: TruncateDescription(t.Description),
		})
	}
	v.Footer = fmt.Sprintf("TOTAL DUE (to be paid by %s): %s", due, v.TotalDue)
	return v
}

// TruncateDescription shortens descriptions longer than 33 characters to 30 plus "...".
func TruncateDescription(s string) string {
	r := []rune(s)
	if len(r) <= descriptionLimit {
		return s
	}
	return string(r[:descriptionKeep]) + ellipsis
}
