package event

import (
	"context"

	"gorm.io/gorm"
)

type Repository interface {
	Create(ctx context.Context, e *Event) error
	FindByID(ctx context.Context, id uint) (*Event, error)
	FindByPublicCode(ctx context.Context, code string) (*Event, error)
	ListByUser(ctx context.Context, userID uint) ([]Event, error)
	ListRSVPs(ctx context.Context, eventID uint) ([]RSVP, error)
	PublicAnswers(ctx context.Context, eventID uint) (map[uint][]PublicAnswer, error)
	TakenByQuestion(ctx context.Context, eventID uint) (map[uint]int64, error)
	CountRSVPs(ctx context.Context, eventID uint) (int64, error)
	Delete(ctx context.Context, id uint) error
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

// ===========================
// 🎯 Create Event (questions are inserted with it)
func (r *repository) Create(ctx context.Context, e *Event) error {
	return r.db.WithContext(ctx).Create(e).Error
}

// ===========================
// 🔍 Lookups
func (r *repository) FindByID(ctx context.Context, id uint) (*Event, error) {
	var e Event
	err := r.db.WithContext(ctx).
		Preload("Questions", orderedQuestions).
		First(&e, id).Error
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *repository) FindByPublicCode(ctx context.Context, code string) (*Event, error) {
	var e Event
	err := r.db.WithContext(ctx).
		Preload("Questions", orderedQuestions).
		Where("public_code = ?", code).
		First(&e).Error
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *repository) ListByUser(ctx context.Context, userID uint) ([]Event, error) {
	var events []Event
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("date ASC").
		Find(&events).Error
	if err != nil {
		return nil, err
	}

	for i := range events {
		count, err := CountRSVPs(r.db.WithContext(ctx), events[i].ID)
		if err != nil {
			return nil, err
		}
		events[i].RSVPCount = count
	}
	return events, nil
}

func (r *repository) ListRSVPs(ctx context.Context, eventID uint) ([]RSVP, error) {
	var rsvps []RSVP
	err := r.db.WithContext(ctx).
		Preload("Responses", func(db *gorm.DB) *gorm.DB { return db.Order("question_id ASC") }).
		Where("event_id = ?", eventID).
		Order("created_at ASC").
		Find(&rsvps).Error
	return rsvps, err
}

// PublicAnswers returns guest names and answers for questions marked public.
func (r *repository) PublicAnswers(ctx context.Context, eventID uint) (map[uint][]PublicAnswer, error) {
	type row struct {
		QuestionID uint
		Name       string
		Value      string
	}
	var rows []row
	err := r.db.WithContext(ctx).
		Table("responses").
		Select("responses.question_id, rsvps.name, responses.value").
		Joins("JOIN rsvps ON rsvps.id = responses.rsvp_id").
		Joins("JOIN questions ON questions.id = responses.question_id").
		Where("rsvps.event_id = ? AND questions.is_public = ?", eventID, true).
		Where("TRIM(responses.value) <> ''").
		Order("responses.created_at ASC, responses.id ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make(map[uint][]PublicAnswer)
	for _, rw := range rows {
		out[rw.QuestionID] = append(out[rw.QuestionID], PublicAnswer{Name: rw.Name, Value: rw.Value})
	}
	return out, nil
}

func (r *repository) TakenByQuestion(ctx context.Context, eventID uint) (map[uint]int64, error) {
	return TakenByQuestion(r.db.WithContext(ctx), eventID, "")
}

func (r *repository) CountRSVPs(ctx context.Context, eventID uint) (int64, error) {
	return CountRSVPs(r.db.WithContext(ctx), eventID)
}

// ===========================
// 🗑️ Delete Event with its questions, RSVPs and responses
func (r *repository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rsvpIDs := tx.Model(&RSVP{}).Select("id").Where("event_id = ?", id)
		if err := tx.Where("rsvp_id IN (?)", rsvpIDs).Delete(&Response{}).Error; err != nil {
			return err
		}
		if err := tx.Where("event_id = ?", id).Delete(&RSVP{}).Error; err != nil {
			return err
		}
		if err := tx.Where("event_id = ?", id).Delete(&Question{}).Error; err != nil {
			return err
		}
		return tx.Delete(&Event{}, id).Error
	})
}

// ===========================
// 📊 Shared aggregate queries. They take a *gorm.DB so booking
// transactions can run them on their own handle.

// TakenByQuestion counts non-blank answers per question of an event,
// ignoring answers of excludeRSVP when it is set.
func TakenByQuestion(db *gorm.DB, eventID uint, excludeRSVP string) (map[uint]int64, error) {
	type row struct {
		QuestionID uint
		Taken      int64
	}
	var rows []row

	query := db.Table("responses").
		Select("responses.question_id, COUNT(*) AS taken").
		Joins("JOIN rsvps ON rsvps.id = responses.rsvp_id").
		Where("rsvps.event_id = ?", eventID).
		Where("TRIM(responses.value) <> ''")
	if excludeRSVP != "" {
		query = query.Where("responses.rsvp_id <> ?", excludeRSVP)
	}
	if err := query.Group("responses.question_id").Scan(&rows).Error; err != nil {
		return nil, err
	}

	out := make(map[uint]int64, len(rows))
	for _, rw := range rows {
		out[rw.QuestionID] = rw.Taken
	}
	return out, nil
}

func CountRSVPs(db *gorm.DB, eventID uint) (int64, error) {
	var count int64
	err := db.Model(&RSVP{}).Where("event_id = ?", eventID).Count(&count).Error
	return count, err
}

func orderedQuestions(db *gorm.DB) *gorm.DB {
	return db.Order("sort_order ASC, id ASC")
}
