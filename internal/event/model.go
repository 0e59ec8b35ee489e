package event

import (
	"encoding/json"
	"strings"
	"time"

	"gorm.io/datatypes"
)

// ============================
// 🔷 Question kinds
type QuestionKind string

const (
	KindText         QuestionKind = "text"
	KindSingleChoice QuestionKind = "multiple_choice"
	KindMultiChoice  QuestionKind = "checkbox"
	KindSlots        QuestionKind = "slots"
	KindPlaylist     QuestionKind = "spotify_playlist"
)

// Valid reports whether k is one of the known kinds.
func (k QuestionKind) Valid() bool {
	switch k {
	case KindText, KindSingleChoice, KindMultiChoice, KindSlots, KindPlaylist:
		return true
	}
	return false
}

// HonoursQuantity reports whether a declared quantity limits answers of this kind.
func (k QuestionKind) HonoursQuantity() bool {
	switch k {
	case KindSlots, KindPlaylist:
		return true
	case KindText, KindSingleChoice, KindMultiChoice:
		return false
	}
	return false
}

type RSVPStatus string

const (
	StatusAttending    RSVPStatus = "attending"
	StatusMaybe        RSVPStatus = "maybe"
	StatusNotAttending RSVPStatus = "not_attending"
)

// ============================
// 🔷 GORM Event Model
type Event struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	UserID      uint       `gorm:"not null;index" json:"user_id"`
	Title       string     `gorm:"type:varchar(255);not null" json:"title"`
	Description string     `gorm:"type:text" json:"description"`
	Location    string     `gorm:"type:text" json:"location"`
	Date        time.Time  `gorm:"not null;index" json:"date"`
	EndDate     *time.Time `json:"end_date,omitempty"`
	Timezone    string     `gorm:"type:varchar(64);not null;default:'UTC'" json:"timezone"`
	PublicCode  string     `gorm:"type:varchar(32);not null;uniqueIndex" json:"public_code"`
	RSVPLimit   *int       `gorm:"column:rsvp_limit" json:"rsvp_limit,omitempty"`
	CreatedAt   time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"autoUpdateTime" json:"updated_at"`

	Questions []Question `gorm:"foreignKey:EventID" json:"questions,omitempty"`

	RSVPCount int64 `gorm:"-" json:"rsvp_count"`
}

// ============================
// 🔷 GORM Question Model
type Question struct {
	ID                uint           `gorm:"primaryKey" json:"id"`
	EventID           uint           `gorm:"not null;index" json:"event_id"`
	Kind              QuestionKind   `gorm:"type:varchar(32);not null" json:"type"`
	Label             string         `gorm:"type:varchar(255);not null" json:"label"`
	Description       string         `gorm:"type:text" json:"description,omitempty"`
	Options           datatypes.JSON `json:"options,omitempty"`
	Required          bool           `gorm:"not null;default:false" json:"required"`
	IsPublic          bool           `gorm:"not null;default:false" json:"is_public"`
	Quantity          *int           `json:"quantity,omitempty"`
	SpotifyPlaylistID *string        `gorm:"type:varchar(64)" json:"spotify_playlist_id,omitempty"`
	SongsPerUser      *int           `json:"songs_per_user,omitempty"`
	Order             int            `gorm:"column:sort_order;not null;default:0" json:"order"`
	CreatedAt         time.Time      `gorm:"autoCreateTime" json:"created_at"`

	Taken int64 `gorm:"-" json:"taken"`
}

// Capacity returns the effective ceiling, or nil when answers are unlimited.
func (q *Question) Capacity() *int {
	if q.Quantity == nil || !q.Kind.HonoursQuantity() {
		return nil
	}
	return q.Quantity
}

// OptionList decodes Options; malformed JSON yields no options.
func (q *Question) OptionList() []string {
	if len(q.Options) == 0 {
		return nil
	}
	var opts []string
	if err := json.Unmarshal(q.Options, &opts); err != nil {
		return nil
	}
	return opts
}

// ============================
// 🔷 GORM RSVP Model
type RSVP struct {
	ID             string     `gorm:"type:varchar(36);primaryKey" json:"id"`
	EventID        uint       `gorm:"not null;index;uniqueIndex:idx_rsvp_event_pin,priority:1" json:"event_id"`
	Name           string     `gorm:"type:varchar(100);not null" json:"name"`
	Email          *string    `gorm:"type:varchar(160)" json:"email,omitempty"`
	Status         RSVPStatus `gorm:"type:varchar(20);not null;default:'attending'" json:"status"`
	PinHash        string     `gorm:"type:varchar(200);not null" json:"-"`
	PinFingerprint string     `gorm:"type:varchar(64);not null;uniqueIndex:idx_rsvp_event_pin,priority:2" json:"-"`
	CreatedAt      time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time  `gorm:"autoUpdateTime" json:"updated_at"`

	Responses []Response `gorm:"foreignKey:RSVPID" json:"responses,omitempty"`
}

func (RSVP) TableName() string {
	return "rsvps"
}

// ResponseMap indexes the RSVP's answers by question.
func (r *RSVP) ResponseMap() map[uint]string {
	out := make(map[uint]string, len(r.Responses))
	for _, resp := range r.Responses {
		out[resp.QuestionID] = resp.Value
	}
	return out
}

// ============================
// 🔷 GORM Response Model
type Response struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	RSVPID     string    `gorm:"column:rsvp_id;type:varchar(36);not null;uniqueIndex:idx_response_rsvp_question,priority:1" json:"rsvp_id"`
	QuestionID uint      `gorm:"not null;index;uniqueIndex:idx_response_rsvp_question,priority:2" json:"question_id"`
	Value      string    `gorm:"type:text;not null" json:"value"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// IsBlank reports whether an answer value counts as absent.
func IsBlank(value string) bool {
	return strings.TrimSpace(value) == ""
}

// ============================
// 🟡 Create Event Request
type CreateEventRequest struct {
	Title       string                  `json:"title" binding:"required"`
	Description string                  `json:"description"`
	Location    string                  `json:"location"`
	Date        string                  `json:"date" binding:"required"` // 🛠 RFC3339 or "2006-01-02T15:04"
	EndDate     string                  `json:"end_date,omitempty"`
	Timezone    string                  `json:"timezone"`
	RSVPLimit   *int                    `json:"rsvp_limit,omitempty"`
	Questions   []CreateQuestionRequest `json:"questions"`
}

type CreateQuestionRequest struct {
	Type         QuestionKind `json:"type" binding:"required"`
	Label        string       `json:"label" binding:"required"`
	Description  string       `json:"description"`
	Options      []string     `json:"options"`
	Required     bool         `json:"required"`
	IsPublic     bool         `json:"is_public"`
	Quantity     *int         `json:"quantity,omitempty"`
	SongsPerUser *int         `json:"songs_per_user,omitempty"`
}

// ============================
// 🟢 Public view
type PublicAnswer struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type PublicQuestion struct {
	Question
	Remaining *int64         `json:"remaining,omitempty"`
	Full      bool           `json:"full"`
	Answers   []PublicAnswer `json:"answers,omitempty"`
}

type PublicEvent struct {
	ID          uint             `json:"id"`
	Title       string           `json:"title"`
	Description string           `json:"description"`
	Location    string           `json:"location"`
	Date        time.Time        `json:"date"`
	EndDate     *time.Time       `json:"end_date,omitempty"`
	Timezone    string           `json:"timezone"`
	PublicCode  string           `json:"public_code"`
	RSVPLimit   *int             `json:"rsvp_limit,omitempty"`
	RSVPCount   int64            `json:"rsvp_count"`
	Questions   []PublicQuestion `json:"questions"`
}

// OrganizerEvent is the organizer's dashboard view, including guest details.
type OrganizerEvent struct {
	Event
	RSVPs []RSVP `json:"rsvps"`
}
