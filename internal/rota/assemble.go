package rota

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotFound signals that a person has no scheduled activity for a day.
var ErrNotFound = errors.New("no scheduled activity")

// Person is the identity a rota row belongs to.
type Person struct {
	ID   int64
	Name string
}

// AuxiliaryEntry is an engineering day booked against a person and date.
type AuxiliaryEntry struct {
	DayType        string
	HasWIP         bool
	HasProjectWork bool
}

// Annotation renders the suffix an entry contributes to a rota cell.
func (e AuxiliaryEntry) Annotation() string {
	switch {
	case e.HasWIP:
		return fmt.Sprintf("<br>(%s) WIP Item", e.DayType)
	case e.HasProjectWork:
		return fmt.Sprintf("<br>(%s) Project Work", e.DayType)
	default:
		return ""
	}
}

// Lookup reads the records a rota is built from. ScheduledActivity must return
// ErrNotFound (possibly wrapped) when the person has nothing scheduled.
type Lookup interface {
	ScheduledActivity(ctx context.Context, personID int64, day Day) (string, error)
	AuxiliaryEntries(ctx context.Context, personID int64, day Day) ([]AuxiliaryEntry, error)
}

// Row is one person's rendered week.
type Row struct {
	Person Person
	Cells  [7]string
}

// Cell returns the text for an ISO weekday (1 = Monday).
func (r Row) Cell(isoWeekday int) string {
	if isoWeekday < 1 || isoWeekday > 7 {
		return ""
	}
	return r.Cells[isoWeekday-1]
}

// Assemble builds one row per person in scope order.
func Assemble(ctx context.Context, week Week, people []Person, lookup Lookup) ([]Row, error) {
	rows := make([]Row, 0, len(people))
	for _, p := range people {
		row := Row{Person: p}
		for i, day := range week {
			text, err := RenderCell(ctx, lookup, p.ID, day)
			if err != nil {
				return nil, fmt.Errorf("rota cell %s for person %d: %w", day, p.ID, err)
			}
			row.Cells[i] = text
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// RenderCell combines the scheduled activity label with engineering-day annotations.
func RenderCell(ctx context.Context, lookup Lookup, personID int64, day Day) (string, error) {
	text, err := lookup.ScheduledActivity(ctx, personID, day)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			return "", err
		}
		text = ""
	}
	entries, err := lookup.AuxiliaryEntries(ctx, personID, day)
	if err != nil {
		return "", err
	}
	for _, e := range entries {
		text += e.Annotation()
	}
	return text, nil
}
