package booking

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/petalboard/petalboard-backend/internal/auditlog"
	"github.com/petalboard/petalboard-backend/internal/event"
	"github.com/petalboard/petalboard-backend/internal/playlist"
	"github.com/petalboard/petalboard-backend/internal/security"
)

// Dispatcher schedules playlist reconciliation after a booking commits.
// Implementations must not block on the reconciliation itself.
type Dispatcher interface {
	Dispatch(ctx context.Context, eventID uint, reason string)
}

type Service interface {
	Create(ctx context.Context, eventCode string, req CreateRequest, ip string) (*Result, error)
	Lookup(ctx context.Context, eventCode string, creds Credentials) (*event.RSVP, error)
	Update(ctx context.Context, eventCode string, req UpdateRequest, ip string) (*Result, error)
	Cancel(ctx context.Context, eventCode string, creds Credentials, ip string) (*Result, error)
	// Remove lets the event's organizer delete any RSVP.
	Remove(ctx context.Context, organizerID, eventID uint, rsvpID string, ip string) (*Result, error)
}

type service struct {
	repo       Repository
	verifier   *security.Verifier
	ledger     CapacityLedger
	dispatcher Dispatcher
	auditSvc   auditlog.Service
}

func NewService(repo Repository, verifier *security.Verifier, dispatcher Dispatcher, auditSvc auditlog.Service) Service {
	return &service{
		repo:       repo,
		verifier:   verifier,
		dispatcher: dispatcher,
		auditSvc:   auditSvc,
	}
}

// ===========================
// 🎟️ Create RSVP
func (s *service) Create(ctx context.Context, eventCode string, req CreateRequest, ip string) (*Result, error) {
	req.normalize()
	if err := check(&req, req.Responses); err != nil {
		return nil, err
	}

	ev, err := s.eventByCode(ctx, eventCode)
	if err != nil {
		return nil, err
	}
	if err := knownQuestions(ev.Questions, req.Responses); err != nil {
		return nil, err
	}

	// Hashing is slow on purpose; keep it outside the locked section.
	pinHash, err := s.verifier.Hash(req.Pin)
	if err != nil {
		return nil, fmt.Errorf("hash pin: %w", err)
	}

	rsvp := &event.RSVP{
		ID:             uuid.NewString(),
		EventID:        ev.ID,
		Name:           req.Name,
		Email:          optional(req.Email),
		Status:         req.Status,
		PinHash:        pinHash,
		PinFingerprint: s.verifier.Fingerprint(pinScope(ev.ID), req.Pin),
		Responses:      nonBlank(req.Responses),
	}

	var result *Result
	err = s.repo.WithinTx(ctx, func(tx Repository) error {
		locked, err := tx.LockEvent(ctx, ev.ID)
		if err != nil {
			return eventLookupError(err)
		}

		count, err := tx.CountRSVPs(ctx, locked.ID)
		if err != nil {
			return err
		}
		if err := s.ledger.AdmitEvent(locked, count); err != nil {
			return err
		}

		taken, err := tx.TakenByQuestion(ctx, locked.ID, "")
		if err != nil {
			return err
		}
		if err := s.admitResponses(locked.Questions, taken, req.Responses); err != nil {
			return err
		}

		inUse, err := tx.PinInUse(ctx, locked.ID, rsvp.PinFingerprint)
		if err != nil {
			return err
		}
		if inUse {
			return duplicatePinError()
		}

		if err := tx.CreateRSVP(ctx, rsvp); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return duplicatePinError()
			}
			return err
		}

		result, err = s.aggregate(ctx, tx, locked)
		return err
	})
	if err != nil {
		s.audit(ctx, nil, &ev.ID, "RSVP_CREATE_FAILED", map[string]interface{}{"name": req.Name, "error": err.Error()}, ip, auditlog.StatusFailure)
		return nil, err
	}

	result.RSVPID = rsvp.ID
	s.audit(ctx, nil, &ev.ID, "RSVP_CREATED", map[string]interface{}{
		"rsvp_id":   rsvp.ID,
		"status":    rsvp.Status,
		"responses": len(rsvp.Responses),
	}, ip, auditlog.StatusSuccess)
	s.dispatch(ctx, ev.ID, "rsvp_created")
	return result, nil
}

// ===========================
// 🔍 Lookup RSVP
func (s *service) Lookup(ctx context.Context, eventCode string, creds Credentials) (*event.RSVP, error) {
	creds.normalize()
	if err := check(&creds, nil); err != nil {
		return nil, err
	}

	ev, err := s.eventByCode(ctx, eventCode)
	if err != nil {
		return nil, err
	}
	return s.authenticate(ctx, ev.ID, creds.RSVPID, creds.Pin)
}

// ===========================
// ✏️ Update RSVP
func (s *service) Update(ctx context.Context, eventCode string, req UpdateRequest, ip string) (*Result, error) {
	req.normalize()
	if err := check(&req, req.Responses); err != nil {
		return nil, err
	}

	ev, err := s.eventByCode(ctx, eventCode)
	if err != nil {
		return nil, err
	}
	if _, err := s.authenticate(ctx, ev.ID, req.RSVPID, req.Pin); err != nil {
		s.audit(ctx, nil, &ev.ID, "RSVP_UPDATE_DENIED", map[string]interface{}{"rsvp_id": req.RSVPID}, ip, auditlog.StatusFailure)
		return nil, err
	}
	if err := knownQuestions(ev.Questions, req.Responses); err != nil {
		return nil, err
	}

	var result *Result
	err = s.repo.WithinTx(ctx, func(tx Repository) error {
		locked, err := tx.LockEvent(ctx, ev.ID)
		if err != nil {
			return eventLookupError(err)
		}

		// Re-read under the lock; a concurrent cancel wins.
		current, err := tx.FindRSVP(ctx, locked.ID, req.RSVPID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errAuthMismatch
			}
			return err
		}

		taken, err := tx.TakenByQuestion(ctx, locked.ID, current.ID)
		if err != nil {
			return err
		}
		if err := s.admitResponses(locked.Questions, taken, req.Responses); err != nil {
			return err
		}

		if req.Name != nil {
			current.Name = *req.Name
		}
		if req.clearEmail {
			current.Email = nil
		} else if req.Email != nil {
			current.Email = optional(*req.Email)
		}
		if req.Status != nil {
			current.Status = *req.Status
		}
		if err := tx.ReplaceRSVP(ctx, current, nonBlank(req.Responses)); err != nil {
			return err
		}

		result, err = s.aggregate(ctx, tx, locked)
		return err
	})
	if err != nil {
		s.audit(ctx, nil, &ev.ID, "RSVP_UPDATE_FAILED", map[string]interface{}{"rsvp_id": req.RSVPID, "error": err.Error()}, ip, auditlog.StatusFailure)
		return nil, err
	}

	result.RSVPID = req.RSVPID
	s.audit(ctx, nil, &ev.ID, "RSVP_UPDATED", map[string]interface{}{"rsvp_id": req.RSVPID}, ip, auditlog.StatusSuccess)
	s.dispatch(ctx, ev.ID, "rsvp_updated")
	return result, nil
}

// ===========================
// ❌ Cancel RSVP
func (s *service) Cancel(ctx context.Context, eventCode string, creds Credentials, ip string) (*Result, error) {
	creds.normalize()
	if err := check(&creds, nil); err != nil {
		return nil, err
	}

	ev, err := s.eventByCode(ctx, eventCode)
	if err != nil {
		return nil, err
	}
	if _, err := s.authenticate(ctx, ev.ID, creds.RSVPID, creds.Pin); err != nil {
		s.audit(ctx, nil, &ev.ID, "RSVP_CANCEL_DENIED", map[string]interface{}{"rsvp_id": creds.RSVPID}, ip, auditlog.StatusFailure)
		return nil, err
	}

	result, err := s.delete(ctx, ev.ID, creds.RSVPID, errAuthMismatch)
	if err != nil {
		return nil, err
	}

	s.audit(ctx, nil, &ev.ID, "RSVP_CANCELLED", map[string]interface{}{"rsvp_id": creds.RSVPID}, ip, auditlog.StatusSuccess)
	s.dispatch(ctx, ev.ID, "rsvp_cancelled")
	return result, nil
}

// ===========================
// 🗑️ Organizer removes an RSVP
func (s *service) Remove(ctx context.Context, organizerID, eventID uint, rsvpID string, ip string) (*Result, error) {
	ev, err := s.repo.FindEventByID(ctx, eventID)
	if err != nil {
		return nil, eventLookupError(err)
	}
	if ev.UserID != organizerID {
		return nil, errEventNotFound
	}

	notFound := &Error{Kind: KindNotFound, Message: "RSVP not found."}
	result, err := s.delete(ctx, ev.ID, rsvpID, notFound)
	if err != nil {
		return nil, err
	}

	uid := organizerID
	s.audit(ctx, &uid, &ev.ID, "RSVP_REMOVED", map[string]interface{}{"rsvp_id": rsvpID}, ip, auditlog.StatusSuccess)
	s.dispatch(ctx, ev.ID, "rsvp_removed")
	return result, nil
}

func (s *service) delete(ctx context.Context, eventID uint, rsvpID string, missing error) (*Result, error) {
	var result *Result
	err := s.repo.WithinTx(ctx, func(tx Repository) error {
		locked, err := tx.LockEvent(ctx, eventID)
		if err != nil {
			return eventLookupError(err)
		}
		if _, err := tx.FindRSVP(ctx, locked.ID, rsvpID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return missing
			}
			return err
		}
		if err := tx.DeleteRSVP(ctx, rsvpID); err != nil {
			return err
		}
		result, err = s.aggregate(ctx, tx, locked)
		return err
	})
	return result, err
}

// ===========================
// 🧮 Validation pipeline

// admitResponses applies, in priority order, per-question capacity, the
// per-guest song cap and required answers. taken must already exclude the
// caller's own previous answers.
func (s *service) admitResponses(questions []event.Question, taken map[uint]int64, responses map[uint]string) error {
	for i := range questions {
		q := &questions[i]
		if event.IsBlank(responses[q.ID]) {
			continue
		}
		if err := s.ledger.Admit(q, taken[q.ID]); err != nil {
			return err
		}
	}

	for i := range questions {
		q := &questions[i]
		if q.Kind != event.KindPlaylist || q.SongsPerUser == nil {
			continue
		}
		if playlist.DistinctTracks(responses[q.ID]) > *q.SongsPerUser {
			msg := songCapMessage(*q.SongsPerUser, q.Label)
			return validationError(msg, map[string]string{responseField(q.ID): msg})
		}
	}

	missing := map[string]string{}
	for i := range questions {
		q := &questions[i]
		if !q.Required || s.ledger.Full(q, taken[q.ID]) {
			continue
		}
		if event.IsBlank(responses[q.ID]) {
			missing[responseField(q.ID)] = "This question is required."
		}
	}
	if len(missing) > 0 {
		return validationError("Please answer all required questions.", missing)
	}
	return nil
}

func songCapMessage(limit int, label string) string {
	noun := "songs"
	if limit == 1 {
		noun = "song"
	}
	return fmt.Sprintf("You can add at most %d %s for \"%s\".", limit, noun, label)
}

// knownQuestions rejects answers to questions outside the event.
func knownQuestions(questions []event.Question, responses map[uint]string) error {
	known := make(map[uint]struct{}, len(questions))
	for _, q := range questions {
		known[q.ID] = struct{}{}
	}
	ids := make([]uint, 0, len(responses))
	for id := range responses {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		if _, ok := known[id]; !ok {
			return questionNotFound(id)
		}
	}
	return nil
}

// ===========================
// 🔧 Helpers
func (s *service) eventByCode(ctx context.Context, code string) (*event.Event, error) {
	ev, err := s.repo.FindEventByCode(ctx, code)
	if err != nil {
		return nil, eventLookupError(err)
	}
	return ev, nil
}

func (s *service) authenticate(ctx context.Context, eventID uint, rsvpID, pin string) (*event.RSVP, error) {
	rsvp, err := s.repo.FindRSVP(ctx, eventID, rsvpID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errAuthMismatch
		}
		return nil, err
	}
	if !s.verifier.Verify(pin, rsvp.PinHash) {
		return nil, errAuthMismatch
	}
	return rsvp, nil
}

func (s *service) aggregate(ctx context.Context, tx Repository, ev *event.Event) (*Result, error) {
	count, err := tx.CountRSVPs(ctx, ev.ID)
	if err != nil {
		return nil, err
	}
	taken, err := tx.TakenByQuestion(ctx, ev.ID, "")
	if err != nil {
		return nil, err
	}
	perQuestion := make(map[uint]int64, len(ev.Questions))
	for _, q := range ev.Questions {
		perQuestion[q.ID] = taken[q.ID]
	}
	return &Result{RSVPCount: count, PerQuestionTaken: perQuestion}, nil
}

func (s *service) dispatch(ctx context.Context, eventID uint, reason string) {
	if s.dispatcher == nil {
		return
	}
	s.dispatcher.Dispatch(context.WithoutCancel(ctx), eventID, reason)
}

func (s *service) audit(ctx context.Context, userID *uint, eventID *uint, action string, details map[string]interface{}, ip, status string) {
	if s.auditSvc == nil {
		return
	}
	if err := s.auditSvc.LogAction(ctx, userID, eventID, action, details, ip, status); err != nil {
		log.WithError(err).WithField("action", action).Warn("audit log write failed")
	}
}

func eventLookupError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return errEventNotFound
	}
	return err
}

func pinScope(eventID uint) string {
	return fmt.Sprintf("event:%d", eventID)
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// nonBlank keeps only answers that count toward capacity, in question order.
func nonBlank(responses map[uint]string) []event.Response {
	out := make([]event.Response, 0, len(responses))
	for qid, value := range responses {
		if event.IsBlank(value) {
			continue
		}
		out = append(out, event.Response{QuestionID: qid, Value: value})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].QuestionID < out[j].QuestionID })
	return out
}
