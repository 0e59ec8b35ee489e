package event

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/petalboard/petalboard-backend/internal/auditlog"
)

var (
	ErrEventNotFound = errors.New("event not found")
	ErrForbidden     = errors.New("you do not have access to this event")
)

// ValidationError is returned for malformed event definitions.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

const (
	maxRSVPLimit     = 10000
	maxQuantity      = 1000
	maxSongsPerUser  = 50
	publicCodeLength = 10
)

type Service interface {
	CreateEvent(ctx context.Context, userID uint, req CreateEventRequest, ip string) (*Event, error)
	ListEvents(ctx context.Context, userID uint) ([]Event, error)
	GetOrganizerEvent(ctx context.Context, userID, eventID uint) (*OrganizerEvent, error)
	GetOwnedEvent(ctx context.Context, userID, eventID uint) (*Event, error)
	GetPublicEvent(ctx context.Context, code string) (*PublicEvent, error)
	DeleteEvent(ctx context.Context, userID, eventID uint, ip string) error
}

type service struct {
	repo     Repository
	auditSvc auditlog.Service
}

func NewService(repo Repository, auditSvc auditlog.Service) Service {
	return &service{repo: repo, auditSvc: auditSvc}
}

// ===========================
// 🎯 Create Event
func (s *service) CreateEvent(ctx context.Context, userID uint, req CreateEventRequest, ip string) (*Event, error) {
	e, err := buildEvent(userID, req)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, e); err != nil {
		s.audit(ctx, userID, nil, "EVENT_CREATE_FAILED", map[string]interface{}{"title": req.Title, "error": err.Error()}, ip, auditlog.StatusFailure)
		return nil, fmt.Errorf("create event: %w", err)
	}

	s.audit(ctx, userID, &e.ID, "EVENT_CREATED", map[string]interface{}{
		"title":       e.Title,
		"public_code": e.PublicCode,
		"questions":   len(e.Questions),
	}, ip, auditlog.StatusSuccess)
	return e, nil
}

func buildEvent(userID uint, req CreateEventRequest) (*Event, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, &ValidationError{Message: "title is required"}
	}

	tz := strings.TrimSpace(req.Timezone)
	if tz == "" {
		tz = "UTC"
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, &ValidationError{Message: fmt.Sprintf("unknown timezone %q", tz)}
	}

	date, err := parseEventTime(req.Date, loc)
	if err != nil {
		return nil, &ValidationError{Message: "invalid date"}
	}
	var endDate *time.Time
	if strings.TrimSpace(req.EndDate) != "" {
		end, err := parseEventTime(req.EndDate, loc)
		if err != nil {
			return nil, &ValidationError{Message: "invalid end_date"}
		}
		if end.Before(date) {
			return nil, &ValidationError{Message: "end_date must not be before date"}
		}
		endDate = &end
	}

	if req.RSVPLimit != nil && (*req.RSVPLimit < 1 || *req.RSVPLimit > maxRSVPLimit) {
		return nil, &ValidationError{Message: fmt.Sprintf("rsvp_limit must be between 1 and %d", maxRSVPLimit)}
	}

	questions := make([]Question, 0, len(req.Questions))
	for i, qr := range req.Questions {
		q, err := buildQuestion(i, qr)
		if err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}

	return &Event{
		UserID:      userID,
		Title:       title,
		Description: strings.TrimSpace(req.Description),
		Location:    strings.TrimSpace(req.Location),
		Date:        date,
		EndDate:     endDate,
		Timezone:    tz,
		PublicCode:  newPublicCode(),
		RSVPLimit:   req.RSVPLimit,
		Questions:   questions,
	}, nil
}

func buildQuestion(i int, qr CreateQuestionRequest) (Question, error) {
	label := strings.TrimSpace(qr.Label)
	if label == "" {
		return Question{}, &ValidationError{Message: fmt.Sprintf("question %d: label is required", i+1)}
	}
	if !qr.Type.Valid() {
		return Question{}, &ValidationError{Message: fmt.Sprintf("question %d: unknown type %q", i+1, qr.Type)}
	}

	q := Question{
		Kind:        qr.Type,
		Label:       label,
		Description: strings.TrimSpace(qr.Description),
		Required:    qr.Required,
		IsPublic:    qr.IsPublic,
		Order:       i,
	}

	switch qr.Type {
	case KindSingleChoice, KindMultiChoice:
		opts := cleanOptions(qr.Options)
		if len(opts) == 0 {
			return Question{}, &ValidationError{Message: fmt.Sprintf("question %d: at least one option is required", i+1)}
		}
		raw, err := json.Marshal(opts)
		if err != nil {
			return Question{}, err
		}
		q.Options = datatypes.JSON(raw)
	case KindSlots, KindPlaylist:
		if qr.Quantity != nil {
			if *qr.Quantity < 1 || *qr.Quantity > maxQuantity {
				return Question{}, &ValidationError{Message: fmt.Sprintf("question %d: quantity must be between 1 and %d", i+1, maxQuantity)}
			}
			q.Quantity = qr.Quantity
		}
	case KindText:
	}

	if qr.Type == KindPlaylist && qr.SongsPerUser != nil {
		if *qr.SongsPerUser < 1 || *qr.SongsPerUser > maxSongsPerUser {
			return Question{}, &ValidationError{Message: fmt.Sprintf("question %d: songs_per_user must be between 1 and %d", i+1, maxSongsPerUser)}
		}
		q.SongsPerUser = qr.SongsPerUser
	}
	return q, nil
}

func cleanOptions(in []string) []string {
	out := make([]string, 0, len(in))
	for _, o := range in {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

func parseEventTime(value string, loc *time.Location) (time.Time, error) {
	value = strings.TrimSpace(value)
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	for _, layout := range []string{"2006-01-02T15:04", "2006-01-02 15:04", "2006-01-02"} {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised time %q", value)
}

func newPublicCode() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:publicCodeLength]
}

// ===========================
// 📄 Organizer reads
func (s *service) ListEvents(ctx context.Context, userID uint) ([]Event, error) {
	return s.repo.ListByUser(ctx, userID)
}

func (s *service) GetOwnedEvent(ctx context.Context, userID, eventID uint) (*Event, error) {
	e, err := s.repo.FindByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEventNotFound
		}
		return nil, err
	}
	if e.UserID != userID {
		return nil, ErrForbidden
	}
	return e, nil
}

func (s *service) GetOrganizerEvent(ctx context.Context, userID, eventID uint) (*OrganizerEvent, error) {
	e, err := s.GetOwnedEvent(ctx, userID, eventID)
	if err != nil {
		return nil, err
	}
	if err := s.fillCounts(ctx, e); err != nil {
		return nil, err
	}
	rsvps, err := s.repo.ListRSVPs(ctx, e.ID)
	if err != nil {
		return nil, err
	}
	return &OrganizerEvent{Event: *e, RSVPs: rsvps}, nil
}

// ===========================
// 🌐 Public read
func (s *service) GetPublicEvent(ctx context.Context, code string) (*PublicEvent, error) {
	e, err := s.repo.FindByPublicCode(ctx, code)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEventNotFound
		}
		return nil, err
	}
	if err := s.fillCounts(ctx, e); err != nil {
		return nil, err
	}
	answers, err := s.repo.PublicAnswers(ctx, e.ID)
	if err != nil {
		return nil, err
	}

	out := &PublicEvent{
		ID:          e.ID,
		Title:       e.Title,
		Description: e.Description,
		Location:    e.Location,
		Date:        e.Date,
		EndDate:     e.EndDate,
		Timezone:    e.Timezone,
		PublicCode:  e.PublicCode,
		RSVPLimit:   e.RSVPLimit,
		RSVPCount:   e.RSVPCount,
		Questions:   make([]PublicQuestion, 0, len(e.Questions)),
	}
	for _, q := range e.Questions {
		pq := PublicQuestion{Question: q}
		if capacity := q.Capacity(); capacity != nil {
			remaining := int64(*capacity) - q.Taken
			if remaining < 0 {
				remaining = 0
			}
			pq.Remaining = &remaining
			pq.Full = remaining == 0
		}
		if q.IsPublic {
			pq.Answers = answers[q.ID]
		}
		out.Questions = append(out.Questions, pq)
	}
	return out, nil
}

func (s *service) fillCounts(ctx context.Context, e *Event) error {
	count, err := s.repo.CountRSVPs(ctx, e.ID)
	if err != nil {
		return err
	}
	taken, err := s.repo.TakenByQuestion(ctx, e.ID)
	if err != nil {
		return err
	}
	e.RSVPCount = count
	for i := range e.Questions {
		e.Questions[i].Taken = taken[e.Questions[i].ID]
	}
	return nil
}

// ===========================
// 🗑️ Delete Event
func (s *service) DeleteEvent(ctx context.Context, userID, eventID uint, ip string) error {
	e, err := s.GetOwnedEvent(ctx, userID, eventID)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, e.ID); err != nil {
		s.audit(ctx, userID, &e.ID, "EVENT_DELETE_FAILED", map[string]interface{}{"error": err.Error()}, ip, auditlog.StatusFailure)
		return fmt.Errorf("delete event: %w", err)
	}
	s.audit(ctx, userID, &e.ID, "EVENT_DELETED", map[string]interface{}{"title": e.Title}, ip, auditlog.StatusSuccess)
	return nil
}

func (s *service) audit(ctx context.Context, userID uint, eventID *uint, action string, details map[string]interface{}, ip, status string) {
	if s.auditSvc == nil {
		return
	}
	uid := userID
	if err := s.auditSvc.LogAction(ctx, &uid, eventID, action, details, ip, status); err != nil {
		log.WithError(err).WithField("action", action).Warn("audit log write failed")
	}
}
