package playlist

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/petalboard/petalboard-backend/internal/event"
)

var ErrEventNotFound = errors.New("event not found")

type Repository interface {
	FindEvent(ctx context.Context, eventID uint) (*event.Event, error)
	FindEventByCode(ctx context.Context, code string) (*event.Event, error)
	Submissions(ctx context.Context, questionID uint) ([]Submission, error)
	LinkPlaylist(ctx context.Context, questionID uint, playlistID string) (string, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) FindEvent(ctx context.Context, eventID uint) (*event.Event, error) {
	var ev event.Event
	err := r.db.WithContext(ctx).
		Preload("Questions", func(db *gorm.DB) *gorm.DB {
			return db.Order("sort_order ASC, id ASC")
		}).
		First(&ev, eventID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrEventNotFound
	}
	if err != nil {
		return nil, err
	}
	return &ev, nil
}

func (r *repository) FindEventByCode(ctx context.Context, code string) (*event.Event, error) {
	var ev event.Event
	err := r.db.WithContext(ctx).Where("public_code = ?", code).First(&ev).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrEventNotFound
	}
	if err != nil {
		return nil, err
	}
	return &ev, nil
}

// Submissions returns the non-blank answers to a question in submission order.
func (r *repository) Submissions(ctx context.Context, questionID uint) ([]Submission, error) {
	var rows []event.Response
	err := r.db.WithContext(ctx).
		Where("question_id = ? AND TRIM(value) <> ''", questionID).
		Order("created_at ASC, id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	subs := make([]Submission, 0, len(rows))
	for _, row := range rows {
		subs = append(subs, Submission{ResponseID: row.ID, SubmittedAt: row.CreatedAt, Value: row.Value})
	}
	return subs, nil
}

// LinkPlaylist stores playlistID on the question unless one is already
// linked, and returns whichever ID the question ends up with.
func (r *repository) LinkPlaylist(ctx context.Context, questionID uint, playlistID string) (string, error) {
	db := r.db.WithContext(ctx)
	err := db.Model(&event.Question{}).
		Where("id = ? AND spotify_playlist_id IS NULL", questionID).
		Update("spotify_playlist_id", playlistID).Error
	if err != nil {
		return "", err
	}

	var q event.Question
	if err := db.Select("id", "spotify_playlist_id").First(&q, questionID).Error; err != nil {
		return "", err
	}
	if q.SpotifyPlaylistID == nil {
		return "", errors.New("playlist link was not stored")
	}
	return *q.SpotifyPlaylistID, nil
}
