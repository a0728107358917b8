package export

import (
	"strings"

	"rotaline/internal/rota"
)

const lineBreak = "<br>"

// CellLines splits a rendered cell into its display lines, dropping empty ones.
func CellLines(cell string) []string {
	var lines []string
	for _, part := range strings.Split(cell, lineBreak) {
		if part = strings.TrimSpace(part); part != "" {
			lines = append(lines, part)
		}
	}
	return lines
}

// DayHeaders labels the columns of a week, e.g. "Mon 14/09".
func DayHeaders(week rota.Week) [7]string {
	var out [7]string
	for i, d := range week {
		out[i] = d.Time().Format("Mon 02/01")
	}
	return out
}

// Title describes the week for page and document titles.
func Title(week rota.Week) string {
	return "Rota for week commencing " + week.Monday().Time().Format("Monday 2 January 2006")
}
