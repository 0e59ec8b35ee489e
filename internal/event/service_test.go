package event

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/petalboard/petalboard-backend/internal/auditlog"
	"github.com/petalboard/petalboard-backend/internal/testutil"
)

func newTestService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()
	db := testutil.OpenDB(t, &Event{}, &Question{}, &RSVP{}, &Response{}, &auditlog.AuditLog{})
	auditSvc := auditlog.NewService(auditlog.NewRepository(db))
	return NewService(NewRepository(db), auditSvc), db
}

func intPtr(v int) *int { return &v }

func sampleRequest() CreateEventRequest {
	return CreateEventRequest{
		Title:    "  Garden Party ",
		Date:     "2026-06-01T18:00",
		Timezone: "Europe/Berlin",
		Questions: []CreateQuestionRequest{
			{Type: KindText, Label: "Dietary needs"},
			{Type: KindSingleChoice, Label: "Main", Options: []string{"Fish", " ", "Veg"}, Required: true},
			{Type: KindSlots, Label: "Bring chairs", Quantity: intPtr(2), IsPublic: true},
			{Type: KindPlaylist, Label: "Songs", SongsPerUser: intPtr(3)},
		},
	}
}

func TestCreateEvent(t *testing.T) {
	svc, db := newTestService(t)

	e, err := svc.CreateEvent(context.Background(), 1, sampleRequest(), "127.0.0.1")
	require.NoError(t, err)

	assert.Equal(t, "Garden Party", e.Title)
	assert.Len(t, e.PublicCode, publicCodeLength)
	require.Len(t, e.Questions, 4)
	assert.Equal(t, []string{"Fish", "Veg"}, e.Questions[1].OptionList())
	assert.Equal(t, 3, e.Questions[3].Order)

	berlin, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)
	assert.True(t, e.Date.Equal(time.Date(2026, 6, 1, 18, 0, 0, 0, berlin)))

	var logs []auditlog.AuditLog
	require.NoError(t, db.Where("action = ?", "EVENT_CREATED").Find(&logs).Error)
	require.Len(t, logs, 1)
	assert.Equal(t, auditlog.StatusSuccess, logs[0].Status)
	require.NotNil(t, logs[0].EventID)
	assert.Equal(t, e.ID, *logs[0].EventID)
}

func TestCreateEventValidation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	cases := map[string]func(r *CreateEventRequest){
		"blank title":      func(r *CreateEventRequest) { r.Title = " " },
		"bad timezone":     func(r *CreateEventRequest) { r.Timezone = "Mars/Olympus" },
		"bad date":         func(r *CreateEventRequest) { r.Date = "next friday" },
		"end before start": func(r *CreateEventRequest) { r.EndDate = "2026-05-01" },
		"zero limit":       func(r *CreateEventRequest) { r.RSVPLimit = intPtr(0) },
		"unknown kind":     func(r *CreateEventRequest) { r.Questions[0].Type = "essay" },
		"choice options":   func(r *CreateEventRequest) { r.Questions[1].Options = []string{" "} },
		"quantity range":   func(r *CreateEventRequest) { r.Questions[2].Quantity = intPtr(0) },
		"song cap range":   func(r *CreateEventRequest) { r.Questions[3].SongsPerUser = intPtr(51) },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			req := sampleRequest()
			mutate(&req)
			_, err := svc.CreateEvent(ctx, 1, req, "")
			var ve *ValidationError
			assert.ErrorAs(t, err, &ve)
		})
	}
}

func TestOwnershipAndDelete(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	e, err := svc.CreateEvent(ctx, 1, sampleRequest(), "")
	require.NoError(t, err)

	_, err = svc.GetOwnedEvent(ctx, 2, e.ID)
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = svc.GetOwnedEvent(ctx, 1, 999)
	assert.ErrorIs(t, err, ErrEventNotFound)
	assert.ErrorIs(t, OwnerCheck(svc)(ctx, 2, e.ID), ErrForbidden)

	rsvp := RSVP{ID: "r1", EventID: e.ID, Name: "Ada", Status: StatusAttending, PinHash: "h", PinFingerprint: "f",
		Responses: []Response{{QuestionID: e.Questions[0].ID, Value: "none"}}}
	require.NoError(t, db.Create(&rsvp).Error)

	require.NoError(t, svc.DeleteEvent(ctx, 1, e.ID, ""))

	var n int64
	require.NoError(t, db.Model(&Response{}).Count(&n).Error)
	assert.Zero(t, n)
	require.NoError(t, db.Model(&Question{}).Count(&n).Error)
	assert.Zero(t, n)
	_, err = svc.GetOwnedEvent(ctx, 1, e.ID)
	assert.ErrorIs(t, err, ErrEventNotFound)

	var deleted auditlog.AuditLog
	require.NoError(t, db.Where("action = ?", "EVENT_DELETED").First(&deleted).Error)
	assert.Equal(t, auditlog.StatusSuccess, deleted.Status)
}

func TestPublicEventView(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	e, err := svc.CreateEvent(ctx, 1, sampleRequest(), "")
	require.NoError(t, err)
	chairs := e.Questions[2].ID

	for i, name := range []string{"Ada", "Grace"} {
		rsvp := RSVP{
			ID: name, EventID: e.ID, Name: name, Status: StatusAttending, PinHash: "h", PinFingerprint: name,
			Responses: []Response{{QuestionID: chairs, Value: "two chairs"}},
		}
		if i == 1 {
			rsvp.Responses = append(rsvp.Responses, Response{QuestionID: e.Questions[0].ID, Value: "vegan"})
		}
		require.NoError(t, db.Create(&rsvp).Error)
	}

	view, err := svc.GetPublicEvent(ctx, e.PublicCode)
	require.NoError(t, err)
	assert.Equal(t, int64(2), view.RSVPCount)

	slots := view.Questions[2]
	require.NotNil(t, slots.Remaining)
	assert.Equal(t, int64(0), *slots.Remaining)
	assert.True(t, slots.Full)
	assert.Len(t, slots.Answers, 2)

	text := view.Questions[0]
	assert.Nil(t, text.Remaining)
	assert.False(t, text.Full)
	assert.Empty(t, text.Answers)

	_, err = svc.GetPublicEvent(ctx, "nope")
	assert.ErrorIs(t, err, ErrEventNotFound)
}

func TestOrganizerEventIncludesRSVPs(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	e, err := svc.CreateEvent(ctx, 1, sampleRequest(), "")
	require.NoError(t, err)
	email := "ada@example.com"
	require.NoError(t, db.Create(&RSVP{ID: "r1", EventID: e.ID, Name: "Ada", Email: &email, Status: StatusMaybe, PinHash: "h", PinFingerprint: "f"}).Error)

	view, err := svc.GetOrganizerEvent(ctx, 1, e.ID)
	require.NoError(t, err)
	require.Len(t, view.RSVPs, 1)
	assert.Equal(t, &email, view.RSVPs[0].Email)
	assert.Equal(t, int64(1), view.RSVPCount)

	events, err := svc.ListEvents(ctx, 1)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, int64(1), events[0].RSVPCount)
}
