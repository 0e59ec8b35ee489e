package reports

import "time"

const (
	FormatCSV   = "csv"
	FormatExcel = "excel"
	FormatPDF   = "pdf"
)

const (
	mimeCSV   = "text/csv"
	mimeExcel = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	mimePDF   = "application/pdf"
)

// RSVPSheet is one event's guest list flattened into a table: the fixed
// guest columns followed by one column per question.
type RSVPSheet struct {
	EventTitle string
	EventDate  time.Time
	Headers    []string
	Rows       [][]string
}
