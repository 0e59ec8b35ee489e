package spotify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(Config{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		RedirectURI:  "http://localhost/callback",
		APIURL:       server.URL + "/v1",
		AccountsURL:  server.URL,
	})
}

func TestProfileAndCreatePlaylist(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/me", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer token-1", r.Header.Get("Authorization"))
		fmt.Fprint(w, `{"id":"organizer","display_name":"Org"}`)
	})
	mux.HandleFunc("/v1/users/organizer/playlists", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "Party - Songs", body["name"])
		assert.Equal(t, false, body["public"])
		w.WriteHeader(http.StatusCreated)
		fmt.Fprint(w, `{"id":"pl-1","name":"Party - Songs"}`)
	})
	client := newTestClient(t, mux)
	ctx := context.Background()

	profile, err := client.Profile(ctx, "token-1")
	require.NoError(t, err)
	assert.Equal(t, "organizer", profile.ID)

	playlist, err := client.CreatePlaylist(ctx, "token-1", profile.ID, "Party - Songs", "desc", false)
	require.NoError(t, err)
	assert.Equal(t, "pl-1", playlist.ID)
}

func TestWriteTracks(t *testing.T) {
	var calls []string
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/playlists/pl-1/tracks", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			URIs []string `json:"uris"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		calls = append(calls, fmt.Sprintf("%s:%d", r.Method, len(body.URIs)))
		fmt.Fprint(w, `{"snapshot_id":"s"}`)
	})
	client := newTestClient(t, mux)
	ctx := context.Background()

	require.NoError(t, client.ReplaceTracks(ctx, "t", "pl-1", nil))
	require.NoError(t, client.AppendTracks(ctx, "t", "pl-1", []string{"spotify:track:a"}))
	assert.Equal(t, []string{"PUT:0", "POST:1"}, calls)

	tooMany := make([]string, MaxTracksPerRequest+1)
	assert.Error(t, client.ReplaceTracks(ctx, "t", "pl-1", tooMany))
	assert.Len(t, calls, 2)
}

func TestUnauthorizedIsMatchable(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":{"status":401,"message":"The access token expired"}}`)
	}))

	_, err := client.Profile(context.Background(), "stale")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnauthorized)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "The access token expired", apiErr.Message)
}

func TestServerErrorIsNotUnauthorized(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))

	_, err := client.Profile(context.Background(), "t")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrUnauthorized)
}

func TestListPlaylistsFollowsPages(t *testing.T) {
	var server *httptest.Server
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/me/playlists", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("offset") == "" {
			fmt.Fprintf(w, `{"items":[{"id":"a"}],"next":"%s/v1/me/playlists?offset=50"}`, server.URL)
			return
		}
		fmt.Fprint(w, `{"items":[{"id":"b"}],"next":null}`)
	})
	server = httptest.NewServer(mux)
	t.Cleanup(server.Close)
	client := NewClient(Config{APIURL: server.URL + "/v1", AccountsURL: server.URL})

	playlists, err := client.ListPlaylists(context.Background(), "t")
	require.NoError(t, err)
	require.Len(t, playlists, 2)
	assert.Equal(t, "a", playlists[0].ID)
	assert.Equal(t, "b", playlists[1].ID)
}

func TestSearchTracks(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/search", r.URL.Path)
		assert.Equal(t, "track", r.URL.Query().Get("type"))
		assert.Equal(t, "20", r.URL.Query().Get("limit"))
		assert.Equal(t, "daft punk", r.URL.Query().Get("q"))
		fmt.Fprint(w, `{"tracks":{"items":[{"id":"1","name":"One More Time","uri":"spotify:track:1","artists":[{"name":"Daft Punk"}]}]}}`)
	}))

	tracks, err := client.SearchTracks(context.Background(), "t", "daft punk", 0)
	require.NoError(t, err)
	require.Len(t, tracks, 1)
	assert.Equal(t, "spotify:track:1", tracks[0].URI)
	assert.Equal(t, "Daft Punk", tracks[0].Artists[0].Name)
}

func TestRefreshToken(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/token", r.URL.Path)
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "client-id", user)
		assert.Equal(t, "client-secret", pass)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "refresh_token", r.PostForm.Get("grant_type"))
		assert.Equal(t, "rt-1", r.PostForm.Get("refresh_token"))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"access_token":"at-2","token_type":"Bearer","expires_in":3600}`)
	}))

	token, err := client.RefreshToken(context.Background(), "rt-1")
	require.NoError(t, err)
	assert.Equal(t, "at-2", token.AccessToken)
	assert.Equal(t, "rt-1", token.RefreshToken)
	assert.False(t, token.Expiry.IsZero())

	_, err = client.RefreshToken(context.Background(), "")
	assert.Error(t, err)
}

func TestAuthCodeURL(t *testing.T) {
	client := NewClient(Config{ClientID: "cid", RedirectURI: "http://localhost/cb", AccountsURL: "https://accounts.example.com"})

	raw := client.AuthCodeURL("state-1")
	parsed, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "/authorize", parsed.Path)
	q := parsed.Query()
	assert.Equal(t, "state-1", q.Get("state"))
	assert.Equal(t, "cid", q.Get("client_id"))
	assert.Equal(t, "code", q.Get("response_type"))
	assert.True(t, strings.Contains(q.Get("scope"), "playlist-modify-private"))
}
