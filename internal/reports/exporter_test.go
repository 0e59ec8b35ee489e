package reports

import (
	"bytes"
	"context"
	"encoding/csv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/petalboard/petalboard-backend/internal/event"
)

func sampleEvent() *event.OrganizerEvent {
	email := "ada@example.com"
	created := time.Date(2026, 5, 1, 9, 30, 0, 0, time.UTC)
	return &event.OrganizerEvent{
		Event: event.Event{
			ID:    3,
			Title: "Garden Party!",
			Date:  time.Date(2026, 6, 1, 18, 0, 0, 0, time.UTC),
			Questions: []event.Question{
				{ID: 10, Kind: event.KindText, Label: "Dietary needs"},
				{ID: 11, Kind: event.KindPlaylist, Label: "Songs"},
			},
		},
		RSVPs: []event.RSVP{
			{
				ID: "r1", Name: "Ada", Email: &email, Status: event.StatusAttending, CreatedAt: created,
				Responses: []event.Response{
					{QuestionID: 10, Value: "vegan"},
					{QuestionID: 11, Value: `[{"uri":"spotify:track:1","name":"One More Time","artists":[{"name":"Daft Punk"}]},{"uri":"spotify:track:2","name":"Intro"}]`},
				},
			},
			{ID: "r2", Name: "Grace", Status: event.StatusMaybe, CreatedAt: created},
		},
	}
}

func TestBuildSheet(t *testing.T) {
	sheet := BuildSheet(sampleEvent())

	assert.Equal(t, []string{"Name", "Email", "Status", "Submitted", "Dietary needs", "Songs"}, sheet.Headers)
	require.Len(t, sheet.Rows, 2)
	assert.Equal(t, []string{"Ada", "ada@example.com", "attending", "2026-05-01 09:30", "vegan", "One More Time - Daft Punk; Intro"}, sheet.Rows[0])
	assert.Equal(t, []string{"Grace", "", "maybe", "2026-05-01 09:30", "", ""}, sheet.Rows[1])
}

func TestTrackListFallsBackToRawValue(t *testing.T) {
	assert.Equal(t, "not json", trackList("not json"))
	assert.Equal(t, "Solo", trackList(`{"uri":"spotify:track:9","name":"Solo"}`))
}

func TestExportFormats(t *testing.T) {
	exporter := NewReportExporter()
	sheet := BuildSheet(sampleEvent())

	data, name, mime, err := exporter.Export(FormatCSV, sheet)
	require.NoError(t, err)
	assert.Equal(t, mimeCSV, mime)
	assert.Contains(t, name, "rsvps_garden_party_")
	records, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	require.NoError(t, err)
	assert.Len(t, records, 3)

	data, name, mime, err = exporter.Export(FormatExcel, sheet)
	require.NoError(t, err)
	assert.Equal(t, mimeExcel, mime)
	assert.Contains(t, name, ".xlsx")
	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()
	value, err := f.GetCellValue("RSVPs", "A2")
	require.NoError(t, err)
	assert.Equal(t, "Ada", value)

	data, _, mime, err = exporter.Export(FormatPDF, sheet)
	require.NoError(t, err)
	assert.Equal(t, mimePDF, mime)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF")))

	_, _, _, err = exporter.Export("docx", sheet)
	assert.Error(t, err)
}

type stubEvents struct {
	ev  *event.OrganizerEvent
	err error
}

func (s stubEvents) GetOrganizerEvent(context.Context, uint, uint) (*event.OrganizerEvent, error) {
	return s.ev, s.err
}

func TestExportRSVPsPropagatesAccessErrors(t *testing.T) {
	svc := NewReportService(stubEvents{err: event.ErrForbidden}, NewReportExporter(), nil)
	_, _, _, err := svc.ExportRSVPs(context.Background(), 1, 3, FormatCSV, "")
	assert.ErrorIs(t, err, event.ErrForbidden)

	svc = NewReportService(stubEvents{ev: sampleEvent()}, NewReportExporter(), nil)
	data, _, _, err := svc.ExportRSVPs(context.Background(), 1, 3, FormatCSV, "")
	require.NoError(t, err)
	assert.NotEmpty(t, data)
}
