package reports

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"
)

// ReportExporter renders an RSVP sheet in a download format.
type ReportExporter interface {
	Export(format string, sheet RSVPSheet) ([]byte, string, string, error)
}

type reportExporter struct{}

func NewReportExporter() ReportExporter {
	return &reportExporter{}
}

// Export returns the file body, its filename and its content type.
func (e *reportExporter) Export(format string, sheet RSVPSheet) ([]byte, string, string, error) {
	base := fmt.Sprintf("rsvps_%s_%s", slug(sheet.EventTitle), time.Now().Format("20060102_150405"))

	switch format {
	case FormatExcel:
		data, err := e.exportExcel(sheet)
		if err != nil {
			return nil, "", "", err
		}
		return data, base + ".xlsx", mimeExcel, nil

	case FormatCSV:
		data, err := e.exportCSV(sheet)
		if err != nil {
			return nil, "", "", err
		}
		return data, base + ".csv", mimeCSV, nil

	case FormatPDF:
		data, err := e.exportPDF(sheet)
		if err != nil {
			return nil, "", "", err
		}
		return data, base + ".pdf", mimePDF, nil

	default:
		return nil, "", "", fmt.Errorf("unsupported format: %s", format)
	}
}

func (e *reportExporter) exportCSV(sheet RSVPSheet) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write(sheet.Headers); err != nil {
		return nil, err
	}
	for _, row := range sheet.Rows {
		if err := writer.Write(row); err != nil {
			return nil, err
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (e *reportExporter) exportExcel(sheet RSVPSheet) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	name := "RSVPs"
	index, err := f.NewSheet(name)
	if err != nil {
		return nil, err
	}
	f.DeleteSheet("Sheet1")
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, err
	}

	for i, h := range sheet.Headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return nil, err
		}
		f.SetCellValue(name, cell, h)
		f.SetCellStyle(name, cell, cell, headerStyle)
	}

	for r, row := range sheet.Rows {
		for col, value := range row {
			cell, err := excelize.CoordinatesToCellName(col+1, r+2)
			if err != nil {
				return nil, err
			}
			f.SetCellValue(name, cell, value)
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (e *reportExporter) exportPDF(sheet RSVPSheet) ([]byte, error) {
	pdf := gofpdf.New("L", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 14)
	pdf.Cell(0, 10, tr(sheet.EventTitle))
	pdf.Ln(8)
	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 8, fmt.Sprintf("%s  |  %d RSVPs", sheet.EventDate.Format("2006-01-02 15:04"), len(sheet.Rows)))
	pdf.Ln(10)

	width := 277.0 / float64(max(len(sheet.Headers), 1))

	pdf.SetFont("Arial", "B", 9)
	for _, h := range sheet.Headers {
		pdf.CellFormat(width, 7, tr(truncate(h, 30)), "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 9)
	for _, row := range sheet.Rows {
		for _, value := range row {
			pdf.CellFormat(width, 6, tr(truncate(value, 40)), "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func slug(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case b.Len() > 0 && !strings.HasSuffix(b.String(), "_"):
			b.WriteByte('_')
		}
	}
	out := strings.TrimSuffix(b.String(), "_")
	if out == "" {
		return "event"
	}
	return out
}
