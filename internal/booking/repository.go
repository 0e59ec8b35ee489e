package booking

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/petalboard/petalboard-backend/internal/event"
)

type Repository interface {
	// WithinTx runs fn against a repository bound to one transaction.
	WithinTx(ctx context.Context, fn func(tx Repository) error) error

	FindEventByCode(ctx context.Context, code string) (*event.Event, error)
	FindEventByID(ctx context.Context, id uint) (*event.Event, error)
	// LockEvent takes the event row lock that serializes bookings for the
	// event, then loads its questions.
	LockEvent(ctx context.Context, id uint) (*event.Event, error)

	FindRSVP(ctx context.Context, eventID uint, rsvpID string) (*event.RSVP, error)
	CountRSVPs(ctx context.Context, eventID uint) (int64, error)
	TakenByQuestion(ctx context.Context, eventID uint, excludeRSVP string) (map[uint]int64, error)
	PinInUse(ctx context.Context, eventID uint, fingerprint string) (bool, error)

	CreateRSVP(ctx context.Context, rsvp *event.RSVP) error
	ReplaceRSVP(ctx context.Context, rsvp *event.RSVP, responses []event.Response) error
	DeleteRSVP(ctx context.Context, rsvpID string) error
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithinTx(ctx context.Context, fn func(tx Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&repository{db: tx})
	})
}

// ===========================
// 🔍 Events
func (r *repository) FindEventByCode(ctx context.Context, code string) (*event.Event, error) {
	var e event.Event
	if err := r.db.WithContext(ctx).Where("public_code = ?", code).First(&e).Error; err != nil {
		return nil, err
	}
	return r.withQuestions(ctx, &e)
}

func (r *repository) FindEventByID(ctx context.Context, id uint) (*event.Event, error) {
	var e event.Event
	if err := r.db.WithContext(ctx).First(&e, id).Error; err != nil {
		return nil, err
	}
	return r.withQuestions(ctx, &e)
}

func (r *repository) LockEvent(ctx context.Context, id uint) (*event.Event, error) {
	var e event.Event
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&e, id).Error
	if err != nil {
		return nil, err
	}
	return r.withQuestions(ctx, &e)
}

func (r *repository) withQuestions(ctx context.Context, e *event.Event) (*event.Event, error) {
	err := r.db.WithContext(ctx).
		Where("event_id = ?", e.ID).
		Order("sort_order ASC, id ASC").
		Find(&e.Questions).Error
	if err != nil {
		return nil, err
	}
	return e, nil
}

// ===========================
// 🎟️ RSVPs
func (r *repository) FindRSVP(ctx context.Context, eventID uint, rsvpID string) (*event.RSVP, error) {
	var rsvp event.RSVP
	err := r.db.WithContext(ctx).
		Preload("Responses", func(db *gorm.DB) *gorm.DB { return db.Order("question_id ASC") }).
		Where("id = ? AND event_id = ?", rsvpID, eventID).
		First(&rsvp).Error
	if err != nil {
		return nil, err
	}
	return &rsvp, nil
}

func (r *repository) CountRSVPs(ctx context.Context, eventID uint) (int64, error) {
	return event.CountRSVPs(r.db.WithContext(ctx), eventID)
}

func (r *repository) TakenByQuestion(ctx context.Context, eventID uint, excludeRSVP string) (map[uint]int64, error) {
	return event.TakenByQuestion(r.db.WithContext(ctx), eventID, excludeRSVP)
}

func (r *repository) PinInUse(ctx context.Context, eventID uint, fingerprint string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&event.RSVP{}).
		Where("event_id = ? AND pin_fingerprint = ?", eventID, fingerprint).
		Count(&count).Error
	return count > 0, err
}

// CreateRSVP inserts the RSVP together with its Responses.
func (r *repository) CreateRSVP(ctx context.Context, rsvp *event.RSVP) error {
	return r.db.WithContext(ctx).Create(rsvp).Error
}

// ReplaceRSVP saves the RSVP's own columns and swaps its full response set.
func (r *repository) ReplaceRSVP(ctx context.Context, rsvp *event.RSVP, responses []event.Response) error {
	db := r.db.WithContext(ctx)
	err := db.Model(&event.RSVP{}).
		Where("id = ?", rsvp.ID).
		Updates(map[string]interface{}{
			"name":   rsvp.Name,
			"email":  rsvp.Email,
			"status": rsvp.Status,
		}).Error
	if err != nil {
		return err
	}

	if err := db.Where("rsvp_id = ?", rsvp.ID).Delete(&event.Response{}).Error; err != nil {
		return err
	}
	if len(responses) == 0 {
		return nil
	}
	for i := range responses {
		responses[i].RSVPID = rsvp.ID
	}
	return db.Create(&responses).Error
}

func (r *repository) DeleteRSVP(ctx context.Context, rsvpID string) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("rsvp_id = ?", rsvpID).Delete(&event.Response{}).Error; err != nil {
		return err
	}
	return db.Where("id = ?", rsvpID).Delete(&event.RSVP{}).Error
}
