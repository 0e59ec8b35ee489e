package reports

import (
	"context"
	"encoding/json"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/petalboard/petalboard-backend/internal/auditlog"
	"github.com/petalboard/petalboard-backend/internal/event"
)

// EventSource loads an event with its RSVPs for its owner.
type EventSource interface {
	GetOrganizerEvent(ctx context.Context, userID, eventID uint) (*event.OrganizerEvent, error)
}

type ReportService interface {
	ExportRSVPs(ctx context.Context, userID, eventID uint, format, ip string) ([]byte, string, string, error)
}

type reportService struct {
	events   EventSource
	exporter ReportExporter
	auditSvc auditlog.Service
}

func NewReportService(events EventSource, exporter ReportExporter, auditSvc auditlog.Service) ReportService {
	return &reportService{events: events, exporter: exporter, auditSvc: auditSvc}
}

func (s *reportService) ExportRSVPs(ctx context.Context, userID, eventID uint, format, ip string) ([]byte, string, string, error) {
	ev, err := s.events.GetOrganizerEvent(ctx, userID, eventID)
	if err != nil {
		return nil, "", "", err
	}

	data, filename, mime, err := s.exporter.Export(format, BuildSheet(ev))
	if err != nil {
		return nil, "", "", err
	}

	if s.auditSvc != nil {
		details := map[string]interface{}{"format": format, "rows": len(ev.RSVPs)}
		if err := s.auditSvc.LogAction(ctx, &userID, &eventID, "RSVP_REPORT_EXPORTED", details, ip, auditlog.StatusSuccess); err != nil {
			log.WithError(err).Warn("audit log write failed")
		}
	}
	return data, filename, mime, nil
}

// BuildSheet flattens an event's RSVPs: name, email, status and submission
// time followed by one column per question in display order.
func BuildSheet(ev *event.OrganizerEvent) RSVPSheet {
	headers := []string{"Name", "Email", "Status", "Submitted"}
	for _, q := range ev.Questions {
		headers = append(headers, q.Label)
	}

	rows := make([][]string, 0, len(ev.RSVPs))
	for _, r := range ev.RSVPs {
		email := ""
		if r.Email != nil {
			email = *r.Email
		}
		row := []string{r.Name, email, string(r.Status), r.CreatedAt.Format("2006-01-02 15:04")}

		answers := r.ResponseMap()
		for _, q := range ev.Questions {
			row = append(row, displayValue(q.Kind, answers[q.ID]))
		}
		rows = append(rows, row)
	}

	return RSVPSheet{
		EventTitle: ev.Title,
		EventDate:  ev.Date,
		Headers:    headers,
		Rows:       rows,
	}
}

// displayValue renders playlist answers as "Track - Artist" lines; other
// kinds are stored as display text already.
func displayValue(kind event.QuestionKind, value string) string {
	switch kind {
	case event.KindPlaylist:
		return trackList(value)
	case event.KindText, event.KindSingleChoice, event.KindMultiChoice, event.KindSlots:
		return value
	}
	return value
}

func trackList(value string) string {
	type artist struct {
		Name string `json:"name"`
	}
	type track struct {
		Name    string   `json:"name"`
		Artists []artist `json:"artists"`
	}

	var tracks []track
	if err := json.Unmarshal([]byte(value), &tracks); err != nil {
		var single track
		if err := json.Unmarshal([]byte(value), &single); err != nil || single.Name == "" {
			return value
		}
		tracks = []track{single}
	}

	lines := make([]string, 0, len(tracks))
	for _, t := range tracks {
		if t.Name == "" {
			continue
		}
		names := make([]string, 0, len(t.Artists))
		for _, a := range t.Artists {
			names = append(names, a.Name)
		}
		if len(names) > 0 {
			lines = append(lines, t.Name+" - "+strings.Join(names, ", "))
		} else {
			lines = append(lines, t.Name)
		}
	}
	return strings.Join(lines, "; ")
}
