package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
	"gorm.io/gorm"

	"github.com/petalboard/petalboard-backend/internal/auditlog"
	"github.com/petalboard/petalboard-backend/internal/security"
)

var (
	ErrEmailTaken         = errors.New("an account with this email already exists")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrSpotifyDisabled    = errors.New("spotify integration is not configured")
	ErrInvalidState       = errors.New("spotify authorization expired, please try again")
)

// SpotifyAuthorizer runs the OAuth authorization-code flow.
type SpotifyAuthorizer interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (*oauth2.Token, error)
}

type Service interface {
	Register(ctx context.Context, in RegisterInput, ip string) (*User, error)
	Login(ctx context.Context, in LoginInput, ip string) (*TokenResponse, error)
	GetUserByID(ctx context.Context, userID uint) (*User, error)

	SpotifyConnectURL(ctx context.Context, userID uint) (string, error)
	CompleteSpotifyConnect(ctx context.Context, state, code, ip string) (*User, error)
	DisconnectSpotify(ctx context.Context, userID uint, ip string) error
}

type service struct {
	repo      Repository
	verifier  *security.Verifier
	spotify   SpotifyAuthorizer
	auditSvc  auditlog.Service
	secret    string
	accessTTL time.Duration
}

// NewService wires organizer accounts. spotify may be nil when the
// integration is not configured.
func NewService(repo Repository, verifier *security.Verifier, spotify SpotifyAuthorizer, auditSvc auditlog.Service, secret string, accessTTL time.Duration) Service {
	return &service{
		repo:      repo,
		verifier:  verifier,
		spotify:   spotify,
		auditSvc:  auditSvc,
		secret:    secret,
		accessTTL: accessTTL,
	}
}

// =============================
// Register
// =============================

func (s *service) Register(ctx context.Context, in RegisterInput, ip string) (*User, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))

	if _, err := s.repo.FindByEmail(ctx, email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	hash, err := s.verifier.Hash(in.Password)
	if err != nil {
		return nil, err
	}

	user := &User{
		Name:         strings.TrimSpace(in.Name),
		Email:        email,
		PasswordHash: hash,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.audit(ctx, &user.ID, "USER_REGISTERED", map[string]interface{}{"email": email}, ip, auditlog.StatusSuccess)
	return user, nil
}

// =============================
// Login
// =============================

func (s *service) Login(ctx context.Context, in LoginInput, ip string) (*TokenResponse, error) {
	user, err := s.repo.FindByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.audit(ctx, nil, "LOGIN_FAILED", map[string]interface{}{"email": in.Email}, ip, auditlog.StatusFailure)
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if !s.verifier.Verify(in.Password, user.PasswordHash) {
		s.audit(ctx, &user.ID, "LOGIN_FAILED", map[string]interface{}{"email": user.Email}, ip, auditlog.StatusFailure)
		return nil, ErrInvalidCredentials
	}

	token, expiresAt, err := GenerateAccessToken(s.secret, user.ID, s.accessTTL)
	if err != nil {
		return nil, err
	}

	s.audit(ctx, &user.ID, "LOGIN_SUCCESS", nil, ip, auditlog.StatusSuccess)
	return &TokenResponse{AccessToken: token, ExpiresAt: expiresAt, User: user.Response()}, nil
}

func (s *service) GetUserByID(ctx context.Context, userID uint) (*User, error) {
	return s.repo.FindByID(ctx, userID)
}

// =============================
// Spotify connection
// =============================

func (s *service) SpotifyConnectURL(ctx context.Context, userID uint) (string, error) {
	if s.spotify == nil {
		return "", ErrSpotifyDisabled
	}
	if _, err := s.repo.FindByID(ctx, userID); err != nil {
		return "", err
	}
	state, err := generateState(s.secret, userID)
	if err != nil {
		return "", err
	}
	return s.spotify.AuthCodeURL(state), nil
}

func (s *service) CompleteSpotifyConnect(ctx context.Context, state, code, ip string) (*User, error) {
	if s.spotify == nil {
		return nil, ErrSpotifyDisabled
	}
	userID, err := parseState(s.secret, state)
	if err != nil {
		return nil, ErrInvalidState
	}

	token, err := s.spotify.Exchange(ctx, code)
	if err != nil {
		s.audit(ctx, &userID, "SPOTIFY_CONNECT_FAILED", map[string]interface{}{"error": err.Error()}, ip, auditlog.StatusFailure)
		return nil, fmt.Errorf("exchange spotify code: %w", err)
	}
	if err := s.repo.SaveSpotifyToken(ctx, userID, token); err != nil {
		return nil, fmt.Errorf("save spotify token: %w", err)
	}

	s.audit(ctx, &userID, "SPOTIFY_CONNECTED", nil, ip, auditlog.StatusSuccess)
	return s.repo.FindByID(ctx, userID)
}

func (s *service) DisconnectSpotify(ctx context.Context, userID uint, ip string) error {
	if err := s.repo.ClearSpotifyToken(ctx, userID); err != nil {
		return err
	}
	s.audit(ctx, &userID, "SPOTIFY_DISCONNECTED", nil, ip, auditlog.StatusSuccess)
	return nil
}

func (s *service) audit(ctx context.Context, userID *uint, action string, details map[string]interface{}, ip, status string) {
	if s.auditSvc == nil {
		return
	}
	if err := s.auditSvc.LogAction(ctx, userID, nil, action, details, ip, status); err != nil {
		log.WithError(err).WithField("action", action).Warn("audit log write failed")
	}
}
