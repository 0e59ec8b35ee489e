package spotify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

// MaxTracksPerRequest is the API's limit for one add/replace call.
const MaxTracksPerRequest = 100

// Scopes needed to create, fill and discover the organizer's playlists.
var Scopes = []string{
	"playlist-modify-public",
	"playlist-modify-private",
	"playlist-read-private",
	"playlist-read-collaborative",
}

// ErrUnauthorized matches API errors caused by an invalid or expired token.
var ErrUnauthorized = errors.New("spotify: unauthorized")

// APIError is a non-2xx answer from the Web API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("spotify: status %d", e.StatusCode)
	}
	return fmt.Sprintf("spotify: status %d: %s", e.StatusCode, e.Message)
}

func (e *APIError) Is(target error) bool {
	return target == ErrUnauthorized && e.StatusCode == http.StatusUnauthorized
}

type Config struct {
	ClientID          string
	ClientSecret      string
	RedirectURI       string
	APIURL            string
	AccountsURL       string
	Timeout           time.Duration
	RequestsPerSecond float64
}

// Client talks to the Spotify Accounts and Web APIs. Every outbound call
// passes through one shared rate limiter.
type Client struct {
	http    *http.Client
	oauth   *oauth2.Config
	apiURL  string
	limiter *rate.Limiter
}

func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	accounts := strings.TrimRight(cfg.AccountsURL, "/")

	return &Client{
		http: &http.Client{Timeout: timeout},
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURI,
			Scopes:       Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:   accounts + "/authorize",
				TokenURL:  accounts + "/api/token",
				AuthStyle: oauth2.AuthStyleInHeader,
			},
		},
		apiURL:  strings.TrimRight(cfg.APIURL, "/"),
		limiter: rate.NewLimiter(limit, 1),
	}
}

// ===========================
// 🔑 OAuth
func (c *Client) AuthCodeURL(state string) string {
	return c.oauth.AuthCodeURL(state, oauth2.SetAuthURLParam("show_dialog", "true"))
}

func (c *Client) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return c.oauth.Exchange(c.oauthContext(ctx), code)
}

// RefreshToken trades a refresh token for a new access token. The returned
// token carries the old refresh token when the server does not rotate it.
func (c *Client) RefreshToken(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	if refreshToken == "" {
		return nil, errors.New("spotify: no refresh token")
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	token, err := c.oauth.TokenSource(c.oauthContext(ctx), &oauth2.Token{RefreshToken: refreshToken}).Token()
	if err != nil {
		return nil, fmt.Errorf("spotify: refresh token: %w", err)
	}
	if token.RefreshToken == "" {
		token.RefreshToken = refreshToken
	}
	return token, nil
}

func (c *Client) oauthContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, c.http)
}

// ===========================
// 🎵 Web API
func (c *Client) Profile(ctx context.Context, token string) (*Profile, error) {
	var p Profile
	if err := c.do(ctx, http.MethodGet, "/me", token, nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) CreatePlaylist(ctx context.Context, token, ownerID, name, description string, public bool) (*Playlist, error) {
	body := map[string]interface{}{
		"name":        name,
		"description": description,
		"public":      public,
	}
	var p Playlist
	path := "/users/" + url.PathEscape(ownerID) + "/playlists"
	if err := c.do(ctx, http.MethodPost, path, token, body, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// ReplaceTracks sets the playlist to exactly uris. An empty list clears it.
func (c *Client) ReplaceTracks(ctx context.Context, token, playlistID string, uris []string) error {
	return c.writeTracks(ctx, http.MethodPut, token, playlistID, uris)
}

// AppendTracks adds uris to the end of the playlist.
func (c *Client) AppendTracks(ctx context.Context, token, playlistID string, uris []string) error {
	return c.writeTracks(ctx, http.MethodPost, token, playlistID, uris)
}

func (c *Client) writeTracks(ctx context.Context, method, token, playlistID string, uris []string) error {
	if len(uris) > MaxTracksPerRequest {
		return fmt.Errorf("spotify: %d tracks exceeds the per-request limit of %d", len(uris), MaxTracksPerRequest)
	}
	if uris == nil {
		uris = []string{}
	}
	path := "/playlists/" + url.PathEscape(playlistID) + "/tracks"
	return c.do(ctx, method, path, token, map[string]interface{}{"uris": uris}, nil)
}

// ListPlaylists returns every playlist the user owns or follows.
func (c *Client) ListPlaylists(ctx context.Context, token string) ([]Playlist, error) {
	var all []Playlist
	next := "/me/playlists?limit=50"
	for next != "" {
		var page struct {
			Items []Playlist `json:"items"`
			Next  *string    `json:"next"`
		}
		if err := c.do(ctx, http.MethodGet, next, token, nil, &page); err != nil {
			return nil, err
		}
		all = append(all, page.Items...)
		next = ""
		if page.Next != nil {
			next = *page.Next
		}
	}
	return all, nil
}

func (c *Client) SearchTracks(ctx context.Context, token, query string, limit int) ([]Track, error) {
	if limit <= 0 || limit > 50 {
		limit = 20
	}
	q := url.Values{
		"q":     {query},
		"type":  {"track"},
		"limit": {fmt.Sprint(limit)},
	}
	var out struct {
		Tracks struct {
			Items []Track `json:"items"`
		} `json:"tracks"`
	}
	if err := c.do(ctx, http.MethodGet, "/search?"+q.Encode(), token, nil, &out); err != nil {
		return nil, err
	}
	return out.Tracks.Items, nil
}

// do performs one authenticated call. pathOrURL is relative to the API base
// unless it is already absolute (pagination links).
func (c *Client) do(ctx context.Context, method, pathOrURL, token string, body, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	target := pathOrURL
	if !strings.HasPrefix(pathOrURL, "http://") && !strings.HasPrefix(pathOrURL, "https://") {
		target = c.apiURL + pathOrURL
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("spotify: encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("spotify: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("spotify: %s %s: %w", method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("spotify: decode response: %w", err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	apiErr := &APIError{StatusCode: resp.StatusCode}

	var envelope struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(raw, &envelope); err == nil && envelope.Error.Message != "" {
		apiErr.Message = envelope.Error.Message
	} else {
		apiErr.Message = strings.TrimSpace(string(raw))
	}
	return apiErr
}
