package event

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/petalboard/petalboard-backend/middleware"
)

type Handler struct {
	Service Service
}

func NewHandler(s Service) *Handler {
	return &Handler{Service: s}
}

// OwnerCheck adapts s for handlers in other packages that only need to know
// whether a user owns an event.
func OwnerCheck(s Service) func(ctx context.Context, userID, eventID uint) error {
	return func(ctx context.Context, userID, eventID uint) error {
		_, err := s.GetOwnedEvent(ctx, userID, eventID)
		return err
	}
}

// ===========================
// 🎯 Create Event - POST /events
// @Summary Create an event with its RSVP questions
// @Tags Events
// @Accept json
// @Produce json
// @Param body body CreateEventRequest true "Event"
// @Success 201 {object} Event
// @Failure 400 {object} map[string]string
// @Router /api/v1/events [post]
func (h *Handler) CreateEvent(c *gin.Context) {
	var req CreateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
		return
	}

	e, err := h.Service.CreateEvent(c.Request.Context(), c.GetUint("user_id"), req, middleware.GetIPFromContext(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, e)
}

// ===========================
// 📄 List Events - GET /events
// @Summary List the organizer's events
// @Tags Events
// @Produce json
// @Success 200 {array} Event
// @Router /api/v1/events [get]
func (h *Handler) ListEvents(c *gin.Context) {
	events, err := h.Service.ListEvents(c.Request.Context(), c.GetUint("user_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, events)
}

// ===========================
// 🔍 Get Event - GET /events/:id
// @Summary Get an event with all RSVPs
// @Tags Events
// @Produce json
// @Param id path uint true "Event ID"
// @Success 200 {object} OrganizerEvent
// @Failure 403 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /api/v1/events/{id} [get]
func (h *Handler) GetEvent(c *gin.Context) {
	id, ok := parseEventID(c)
	if !ok {
		return
	}

	e, err := h.Service.GetOrganizerEvent(c.Request.Context(), c.GetUint("user_id"), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, e)
}

// ===========================
// 🗑️ Delete Event - DELETE /events/:id
// @Summary Delete an event and all of its RSVPs
// @Tags Events
// @Produce json
// @Param id path uint true "Event ID"
// @Success 200 {object} map[string]string
// @Router /api/v1/events/{id} [delete]
func (h *Handler) DeleteEvent(c *gin.Context) {
	id, ok := parseEventID(c)
	if !ok {
		return
	}

	if err := h.Service.DeleteEvent(c.Request.Context(), c.GetUint("user_id"), id, middleware.GetIPFromContext(c)); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Event deleted successfully"})
}

// ===========================
// 🌐 Public Event - GET /public/events/:code
// @Summary Get an event's public RSVP page data
// @Tags Public
// @Produce json
// @Param code path string true "Event public code"
// @Success 200 {object} PublicEvent
// @Failure 404 {object} map[string]string
// @Router /api/v1/public/events/{code} [get]
func (h *Handler) GetPublicEvent(c *gin.Context) {
	e, err := h.Service.GetPublicEvent(c.Request.Context(), c.Param("code"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, e)
}

func parseEventID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid event ID"})
		return 0, false
	}
	return uint(id), true
}

func respondError(c *gin.Context, err error) {
	var ve *ValidationError
	switch {
	case errors.As(err, &ve):
		c.JSON(http.StatusBadRequest, gin.H{"error": ve.Message})
	case errors.Is(err, ErrEventNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Event not found"})
	case errors.Is(err, ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	default:
		log.WithError(err).WithField("path", c.FullPath()).Error("event request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Something went wrong. Please try again."})
	}
}
