package playlist

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// EventAccess authorizes userID to manage eventID.
type EventAccess func(ctx context.Context, userID, eventID uint) error

type Handler struct {
	reconciler *Reconciler
	access     EventAccess
}

func NewHandler(reconciler *Reconciler, access EventAccess) *Handler {
	return &Handler{reconciler: reconciler, access: access}
}

// Sync handles POST /events/:id/playlists/sync
// @Summary Resync an event's playlists now
// @Tags Playlist
// @Produce json
// @Param id path uint true "Event ID"
// @Success 200 {object} Report
// @Failure 403 {object} map[string]string
// @Router /api/v1/events/{id}/playlists/sync [post]
func (h *Handler) Sync(c *gin.Context) {
	eventID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid event ID"})
		return
	}
	if err := h.access(c.Request.Context(), c.GetUint("user_id"), uint(eventID)); err != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
		return
	}

	report, err := h.reconciler.Reconcile(c.Request.Context(), uint(eventID))
	if errors.Is(err, ErrEventNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Event not found"})
		return
	}
	if err != nil {
		log.WithError(err).WithField("event_id", eventID).Error("manual playlist sync failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to sync playlists"})
		return
	}
	c.JSON(http.StatusOK, report)
}

// Search handles GET /public/events/:code/spotify/search
// @Summary Search tracks for a playlist question
// @Tags Playlist
// @Produce json
// @Param code path string true "Event public code"
// @Param q query string true "Search text"
// @Success 200 {object} map[string]interface{}
// @Failure 409 {object} map[string]string
// @Router /api/v1/public/events/{code}/spotify/search [get]
func (h *Handler) Search(c *gin.Context) {
	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		c.JSON(http.StatusOK, gin.H{"tracks": []interface{}{}})
		return
	}

	tracks, err := h.reconciler.SearchTracks(c.Request.Context(), c.Param("code"), query)
	switch {
	case errors.Is(err, ErrEventNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Event not found"})
		return
	case errors.Is(err, ErrNoCredentials):
		c.JSON(http.StatusConflict, gin.H{"error": "Song search is not available for this event yet."})
		return
	case err != nil:
		log.WithError(err).Error("spotify search failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": "Song search failed. Please try again."})
		return
	}
	c.JSON(http.StatusOK, gin.H{"tracks": tracks})
}
