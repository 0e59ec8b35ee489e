package auth

import (
	"context"
	"errors"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/petalboard/petalboard-backend/internal/security"
	"github.com/petalboard/petalboard-backend/internal/testutil"
)

const testSecret = "test-secret"

type fakeAuthorizer struct {
	token *oauth2.Token
	err   error
	codes []string
}

func (f *fakeAuthorizer) AuthCodeURL(state string) string {
	return "https://accounts.example.com/authorize?state=" + url.QueryEscape(state)
}

func (f *fakeAuthorizer) Exchange(_ context.Context, code string) (*oauth2.Token, error) {
	f.codes = append(f.codes, code)
	return f.token, f.err
}

func newTestService(t *testing.T, authorizer SpotifyAuthorizer) (Service, Repository) {
	t.Helper()
	db := testutil.OpenDB(t, &User{})
	repo := NewRepository(db)
	verifier := security.NewVerifier(security.Params{N: 1 << 10, R: 8, P: 1, SaltLen: 16, KeyLen: 64}, "pepper")
	return NewService(repo, verifier, authorizer, nil, testSecret, time.Hour), repo
}

func TestRegisterAndLogin(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()

	user, err := svc.Register(ctx, RegisterInput{Name: "Priya", Email: " Priya@Example.com ", Password: "correct-horse"}, "")
	require.NoError(t, err)
	assert.Equal(t, "priya@example.com", user.Email)
	assert.NotContains(t, user.PasswordHash, "correct-horse")

	_, err = svc.Register(ctx, RegisterInput{Name: "Other", Email: "priya@example.com", Password: "whatever1"}, "")
	assert.ErrorIs(t, err, ErrEmailTaken)

	tokens, err := svc.Login(ctx, LoginInput{Email: "PRIYA@example.com", Password: "correct-horse"}, "")
	require.NoError(t, err)
	assert.Equal(t, user.ID, tokens.User.ID)

	userID, err := ParseAccessToken(testSecret, tokens.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, userID)

	_, err = svc.Login(ctx, LoginInput{Email: "priya@example.com", Password: "wrong-horse"}, "")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login(ctx, LoginInput{Email: "nobody@example.com", Password: "correct-horse"}, "")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestTokensArePurposeBound(t *testing.T) {
	access, _, err := GenerateAccessToken(testSecret, 7, time.Hour)
	require.NoError(t, err)
	state, err := generateState(testSecret, 7)
	require.NoError(t, err)

	_, err = ParseAccessToken(testSecret, state)
	assert.ErrorIs(t, err, ErrInvalidToken)
	_, err = parseState(testSecret, access)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = ParseAccessToken("other-secret", access)
	assert.ErrorIs(t, err, ErrInvalidToken)

	expired, _, err := signToken(testSecret, 7, purposeAccess, time.Minute, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	_, err = ParseAccessToken(testSecret, expired)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestSpotifyConnectFlow(t *testing.T) {
	expiry := time.Now().Add(time.Hour).UTC().Truncate(time.Second)
	authorizer := &fakeAuthorizer{token: &oauth2.Token{AccessToken: "at-1", RefreshToken: "rt-1", Expiry: expiry}}
	svc, repo := newTestService(t, authorizer)
	ctx := context.Background()

	user, err := svc.Register(ctx, RegisterInput{Name: "Priya", Email: "priya@example.com", Password: "correct-horse"}, "")
	require.NoError(t, err)

	authURL, err := svc.SpotifyConnectURL(ctx, user.ID)
	require.NoError(t, err)
	parsed, err := url.Parse(authURL)
	require.NoError(t, err)
	state := parsed.Query().Get("state")
	require.NotEmpty(t, state)

	_, err = svc.CompleteSpotifyConnect(ctx, "forged", "code-1", "")
	assert.ErrorIs(t, err, ErrInvalidState)

	connected, err := svc.CompleteSpotifyConnect(ctx, state, "code-1", "")
	require.NoError(t, err)
	assert.True(t, connected.SpotifyConnected())
	assert.Equal(t, []string{"code-1"}, authorizer.codes)

	token, err := repo.SpotifyToken(ctx, user.ID)
	require.NoError(t, err)
	require.NotNil(t, token)
	assert.Equal(t, "at-1", token.AccessToken)
	assert.Equal(t, "rt-1", token.RefreshToken)
	assert.True(t, expiry.Equal(token.Expiry))

	require.NoError(t, svc.DisconnectSpotify(ctx, user.ID, ""))
	token, err = repo.SpotifyToken(ctx, user.ID)
	require.NoError(t, err)
	assert.Nil(t, token)
}

func TestSpotifyConnectExchangeFailure(t *testing.T) {
	authorizer := &fakeAuthorizer{err: errors.New("bad code")}
	svc, _ := newTestService(t, authorizer)
	ctx := context.Background()

	user, err := svc.Register(ctx, RegisterInput{Name: "Priya", Email: "priya@example.com", Password: "correct-horse"}, "")
	require.NoError(t, err)
	state, err := generateState(testSecret, user.ID)
	require.NoError(t, err)

	_, err = svc.CompleteSpotifyConnect(ctx, state, "code", "")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidState)
}

func TestSpotifyDisabled(t *testing.T) {
	svc, _ := newTestService(t, nil)
	_, err := svc.SpotifyConnectURL(context.Background(), 1)
	assert.ErrorIs(t, err, ErrSpotifyDisabled)
}

func TestSaveSpotifyTokenKeepsRefreshToken(t *testing.T) {
	svc, repo := newTestService(t, nil)
	ctx := context.Background()

	user, err := svc.Register(ctx, RegisterInput{Name: "Priya", Email: "priya@example.com", Password: "correct-horse"}, "")
	require.NoError(t, err)

	require.NoError(t, repo.SaveSpotifyToken(ctx, user.ID, &oauth2.Token{AccessToken: "a1", RefreshToken: "r1"}))
	require.NoError(t, repo.SaveSpotifyToken(ctx, user.ID, &oauth2.Token{AccessToken: "a2"}))

	token, err := repo.SpotifyToken(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "a2", token.AccessToken)
	assert.Equal(t, "r1", token.RefreshToken)
	assert.True(t, token.Expiry.IsZero())

	missing, err := repo.SpotifyToken(ctx, 999)
	require.NoError(t, err)
	assert.Nil(t, missing)
}
