package playlist

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	log "github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"

	"github.com/petalboard/petalboard-backend/internal/event"
	"github.com/petalboard/petalboard-backend/internal/spotify"
)

const (
	playlistDescription = "Automatically collected tracks from PetalBoard RSVP responses."
	searchLimit         = 20
)

// MusicService is the part of the Spotify API the reconciler drives.
type MusicService interface {
	RefreshToken(ctx context.Context, refreshToken string) (*oauth2.Token, error)
	Profile(ctx context.Context, token string) (*spotify.Profile, error)
	ListPlaylists(ctx context.Context, token string) ([]spotify.Playlist, error)
	CreatePlaylist(ctx context.Context, token, ownerID, name, description string, public bool) (*spotify.Playlist, error)
	ReplaceTracks(ctx context.Context, token, playlistID string, uris []string) error
	AppendTracks(ctx context.Context, token, playlistID string, uris []string) error
	SearchTracks(ctx context.Context, token, query string, limit int) ([]spotify.Track, error)
}

// CredentialStore holds each organizer's Spotify token.
type CredentialStore interface {
	SpotifyToken(ctx context.Context, userID uint) (*oauth2.Token, error)
	SaveSpotifyToken(ctx context.Context, userID uint, token *oauth2.Token) error
}

// ErrNoCredentials means the organizer never connected Spotify or the stored
// token can no longer be refreshed. Reconciliation treats it as a quiet skip.
var ErrNoCredentials = errors.New("no usable spotify credentials")

type QuestionReport struct {
	QuestionID uint   `json:"question_id"`
	PlaylistID string `json:"playlist_id,omitempty"`
	Tracks     int    `json:"tracks"`
	Created    bool   `json:"created"`
	Error      string `json:"error,omitempty"`
}

type Report struct {
	EventID   uint             `json:"event_id"`
	Skipped   bool             `json:"skipped"`
	Questions []QuestionReport `json:"questions"`
}

type Reconciler struct {
	repo    Repository
	creds   CredentialStore
	music   MusicService
	refresh singleflight.Group

	// locks holds one single-slot channel per event; runs for the same
	// event never overlap within a process.
	locks sync.Map
}

func NewReconciler(repo Repository, creds CredentialStore, music MusicService) *Reconciler {
	return &Reconciler{repo: repo, creds: creds, music: music}
}

// Reconcile makes every playlist question of the event match its guests'
// selections. Per-question failures are logged and recorded in the report;
// only a failure to load the event is returned.
func (r *Reconciler) Reconcile(ctx context.Context, eventID uint) (*Report, error) {
	unlock, err := r.lockEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	ev, err := r.repo.FindEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}

	report := &Report{EventID: eventID}
	state := &run{r: r, userID: ev.UserID}
	logger := log.WithField("event_id", eventID)

	for _, q := range ev.Questions {
		if !reconciles(q.Kind) {
			continue
		}

		qr, err := state.question(ctx, ev, q)
		if errors.Is(err, ErrNoCredentials) {
			logger.Info("spotify not connected, skipping playlist sync")
			report.Skipped = true
			report.Questions = nil
			return report, nil
		}
		if err != nil {
			logger.WithError(err).WithField("question_id", q.ID).Error("playlist sync failed")
			qr.Error = err.Error()
		}
		report.Questions = append(report.Questions, qr)
	}
	return report, nil
}

func (r *Reconciler) lockEvent(ctx context.Context, eventID uint) (func(), error) {
	v, _ := r.locks.LoadOrStore(eventID, make(chan struct{}, 1))
	slot := v.(chan struct{})
	select {
	case slot <- struct{}{}:
		return func() { <-slot }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// SearchTracks searches Spotify on behalf of a guest using the event
// organizer's credentials.
func (r *Reconciler) SearchTracks(ctx context.Context, eventCode, query string) ([]spotify.Track, error) {
	ev, err := r.repo.FindEventByCode(ctx, eventCode)
	if err != nil {
		return nil, err
	}

	u := &run{r: r, userID: ev.UserID}
	if err := u.ensureToken(ctx); err != nil {
		return nil, err
	}

	var tracks []spotify.Track
	err = u.call(ctx, func(token string) error {
		var err error
		tracks, err = r.music.SearchTracks(ctx, token, query, searchLimit)
		return err
	})
	return tracks, err
}

func reconciles(kind event.QuestionKind) bool {
	switch kind {
	case event.KindPlaylist:
		return true
	case event.KindText, event.KindSingleChoice, event.KindMultiChoice, event.KindSlots:
		return false
	}
	return false
}

// run carries the organizer's token and profile across the questions of one
// reconciliation.
type run struct {
	r       *Reconciler
	userID  uint
	token   *oauth2.Token
	ownerID string
}

func (u *run) question(ctx context.Context, ev *event.Event, q event.Question) (QuestionReport, error) {
	qr := QuestionReport{QuestionID: q.ID}

	subs, err := u.r.repo.Submissions(ctx, q.ID)
	if err != nil {
		return qr, fmt.Errorf("load submissions: %w", err)
	}
	uris := DesiredURIs(subs)
	qr.Tracks = len(uris)

	playlistID := ""
	if q.SpotifyPlaylistID != nil {
		playlistID = *q.SpotifyPlaylistID
	}
	if playlistID == "" && len(uris) == 0 {
		return qr, nil
	}

	if err := u.ensureToken(ctx); err != nil {
		return qr, err
	}

	if playlistID == "" {
		created, id, err := u.linkPlaylist(ctx, ev, q)
		if err != nil {
			return qr, err
		}
		playlistID, qr.Created = id, created
	}
	qr.PlaylistID = playlistID

	return qr, u.replace(ctx, playlistID, uris)
}

// linkPlaylist finds or creates the playlist for q and links it. An earlier
// run that created a playlist but failed to link it is recognized by the
// marker in the description.
func (u *run) linkPlaylist(ctx context.Context, ev *event.Event, q event.Question) (bool, string, error) {
	if err := u.ensureProfile(ctx); err != nil {
		return false, "", err
	}

	marker := questionMarker(q.ID)
	var existing []spotify.Playlist
	err := u.call(ctx, func(token string) error {
		var err error
		existing, err = u.r.music.ListPlaylists(ctx, token)
		return err
	})
	if err != nil {
		return false, "", fmt.Errorf("list playlists: %w", err)
	}

	id := ""
	for _, p := range existing {
		if p.Owner.ID == u.ownerID && strings.Contains(p.Description, marker) {
			id = p.ID
			break
		}
	}

	created := false
	if id == "" {
		name := fmt.Sprintf("%s - %s", ev.Title, q.Label)
		description := playlistDescription + " " + marker
		var p *spotify.Playlist
		err := u.call(ctx, func(token string) error {
			var err error
			p, err = u.r.music.CreatePlaylist(ctx, token, u.ownerID, name, description, false)
			return err
		})
		if err != nil {
			return false, "", fmt.Errorf("create playlist: %w", err)
		}
		id, created = p.ID, true
	}

	linked, err := u.r.repo.LinkPlaylist(ctx, q.ID, id)
	if err != nil {
		return created, "", fmt.Errorf("link playlist: %w", err)
	}
	return created, linked, nil
}

// replace sets the playlist to exactly uris: one full replace followed by
// appends for whatever does not fit in the first request.
func (u *run) replace(ctx context.Context, playlistID string, uris []string) error {
	batches := chunk(uris, spotify.MaxTracksPerRequest)
	first := []string{}
	if len(batches) > 0 {
		first = batches[0]
	}

	err := u.call(ctx, func(token string) error {
		return u.r.music.ReplaceTracks(ctx, token, playlistID, first)
	})
	if err != nil {
		return fmt.Errorf("replace tracks: %w", err)
	}

	for i := 1; i < len(batches); i++ {
		batch := batches[i]
		err := u.call(ctx, func(token string) error {
			return u.r.music.AppendTracks(ctx, token, playlistID, batch)
		})
		if err != nil {
			return fmt.Errorf("append tracks (batch %d): %w", i, err)
		}
	}
	return nil
}

func (u *run) ensureToken(ctx context.Context) error {
	if u.token != nil {
		return nil
	}

	token, err := u.r.creds.SpotifyToken(ctx, u.userID)
	if err != nil {
		return fmt.Errorf("load spotify token: %w", err)
	}
	if token == nil || (token.AccessToken == "" && token.RefreshToken == "") {
		return ErrNoCredentials
	}
	if !token.Valid() {
		token, err = u.r.refreshToken(ctx, u.userID, token.RefreshToken)
		if err != nil {
			log.WithError(err).WithField("user_id", u.userID).Warn("spotify token refresh failed")
			return ErrNoCredentials
		}
	}
	u.token = token
	return nil
}

func (u *run) ensureProfile(ctx context.Context) error {
	if u.ownerID != "" {
		return nil
	}
	var profile *spotify.Profile
	err := u.call(ctx, func(token string) error {
		var err error
		profile, err = u.r.music.Profile(ctx, token)
		return err
	})
	if err != nil {
		return fmt.Errorf("load spotify profile: %w", err)
	}
	u.ownerID = profile.ID
	return nil
}

// call runs fn with the current access token. A 401 refreshes the token once
// and retries fn once.
func (u *run) call(ctx context.Context, fn func(token string) error) error {
	err := fn(u.token.AccessToken)
	if !errors.Is(err, spotify.ErrUnauthorized) {
		return err
	}

	token, rerr := u.r.refreshToken(ctx, u.userID, u.token.RefreshToken)
	if rerr != nil {
		return fmt.Errorf("refresh after 401: %w", rerr)
	}
	u.token = token
	return fn(token.AccessToken)
}

// refreshToken refreshes and persists an organizer's token. Concurrent runs
// for the same organizer share one refresh.
func (r *Reconciler) refreshToken(ctx context.Context, userID uint, refreshToken string) (*oauth2.Token, error) {
	if refreshToken == "" {
		return nil, errors.New("no refresh token stored")
	}

	v, err, _ := r.refresh.Do(strconv.FormatUint(uint64(userID), 10), func() (interface{}, error) {
		token, err := r.music.RefreshToken(ctx, refreshToken)
		if err != nil {
			return nil, err
		}
		if token.RefreshToken == "" {
			token.RefreshToken = refreshToken
		}
		if err := r.creds.SaveSpotifyToken(ctx, userID, token); err != nil {
			return nil, fmt.Errorf("save refreshed token: %w", err)
		}
		return token, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*oauth2.Token), nil
}

func questionMarker(questionID uint) string {
	return fmt.Sprintf("[petalboard-question:%d]", questionID)
}
