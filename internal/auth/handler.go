package auth

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

type Handler struct {
	service     Service
	frontendURL string
}

func NewHandler(s Service, frontendURL string) *Handler {
	return &Handler{service: s, frontendURL: frontendURL}
}

// ===============================
// Registration
// ===============================

// Register handles POST /auth/register
// @Summary Create an organizer account
// @Tags Auth
// @Accept json
// @Produce json
// @Param body body RegisterInput true "Account"
// @Success 201 {object} UserResponse
// @Failure 400 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /api/v1/auth/register [post]
func (h *Handler) Register(c *gin.Context) {
	var req RegisterInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.service.Register(c.Request.Context(), req, clientIP(c))
	if err != nil {
		if errors.Is(err, ErrEmailTaken) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		log.WithError(err).Error("register failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "registration failed"})
		return
	}

	c.JSON(http.StatusCreated, user.Response())
}

// ===============================
// Login
// ===============================

// Login handles POST /auth/login
// @Summary Log in as an organizer
// @Tags Auth
// @Accept json
// @Produce json
// @Param body body LoginInput true "Credentials"
// @Success 200 {object} TokenResponse
// @Failure 401 {object} map[string]string
// @Router /api/v1/auth/login [post]
func (h *Handler) Login(c *gin.Context) {
	var req LoginInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tokens, err := h.service.Login(c.Request.Context(), req, clientIP(c))
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}
		log.WithError(err).Error("login failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "login failed"})
		return
	}

	c.JSON(http.StatusOK, tokens)
}

// Me handles GET /auth/me
func (h *Handler) Me(c *gin.Context) {
	user, err := h.service.GetUserByID(c.Request.Context(), c.GetUint("user_id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}
	c.JSON(http.StatusOK, user.Response())
}

// ===============================
// Spotify
// ===============================

// SpotifyConnect handles GET /spotify/connect
// @Summary Start linking the organizer's Spotify account
// @Tags Spotify
// @Produce json
// @Success 200 {object} map[string]string
// @Failure 503 {object} map[string]string
// @Router /api/v1/spotify/connect [get]
func (h *Handler) SpotifyConnect(c *gin.Context) {
	authURL, err := h.service.SpotifyConnectURL(c.Request.Context(), c.GetUint("user_id"))
	if err != nil {
		if errors.Is(err, ErrSpotifyDisabled) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not start spotify authorization"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": authURL})
}

// SpotifyCallback handles GET /spotify/callback and sends the browser back
// to the dashboard with the outcome.
func (h *Handler) SpotifyCallback(c *gin.Context) {
	if reason := c.Query("error"); reason != "" {
		h.redirect(c, "error", reason)
		return
	}

	code, state := c.Query("code"), c.Query("state")
	if code == "" || state == "" {
		h.redirect(c, "error", "missing_code")
		return
	}

	if _, err := h.service.CompleteSpotifyConnect(c.Request.Context(), state, code, clientIP(c)); err != nil {
		log.WithError(err).Warn("spotify connect failed")
		if errors.Is(err, ErrInvalidState) {
			h.redirect(c, "error", "invalid_state")
			return
		}
		h.redirect(c, "error", "exchange_failed")
		return
	}
	h.redirect(c, "connected", "")
}

// SpotifyDisconnect handles DELETE /spotify
func (h *Handler) SpotifyDisconnect(c *gin.Context) {
	if err := h.service.DisconnectSpotify(c.Request.Context(), c.GetUint("user_id"), clientIP(c)); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not disconnect spotify"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Spotify disconnected"})
}

func (h *Handler) redirect(c *gin.Context, outcome, reason string) {
	q := url.Values{"spotify": {outcome}}
	if reason != "" {
		q.Set("reason", reason)
	}
	c.Redirect(http.StatusFound, h.frontendURL+"/dashboard?"+q.Encode())
}

// clientIP mirrors middleware.GetIPFromContext; middleware imports this
// package, so it cannot be called from here.
func clientIP(c *gin.Context) string {
	if ip := c.GetString("client_ip"); ip != "" {
		return ip
	}
	return c.ClientIP()
}
