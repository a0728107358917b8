package export

import (
	"embed"
	"html/template"
	"io"

	"rotaline/internal/rota"
)

//go:embed templates/*.html
var templatesFS embed.FS

var pageTemplate = template.Must(template.ParseFS(templatesFS, "templates/rota.html"))

type pageRow struct {
	Name  string
	Cells [7][]string
}

type pageData struct {
	Title    string
	Scope    string
	Headers  [7]string
	Rows     []pageRow
	Previous rota.Day
	Next     rota.Day
}

// WriteHTML renders the rota week as an HTML page. Cell text is escaped; line breaks
// inside cells come from the template.
func WriteHTML(w io.Writer, week rota.Week, rows []rota.Row, scope string) error {
	data := pageData{
		Title:    Title(week),
		Scope:    scope,
		Headers:  DayHeaders(week),
		Previous: week.Previous().Monday(),
		Next:     week.Next().Monday(),
	}
	for _, r := range rows {
		pr := pageRow{Name: r.Person.Name}
		for i, c := range r.Cells {
			pr.Cells[i] = CellLines(c)
		}
		data.Rows = append(data.Rows, pr)
	}
	return pageTemplate.Execute(w, data)
}
