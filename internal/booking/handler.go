package booking

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/petalboard/petalboard-backend/middleware"
)

type Handler struct {
	service Service
}

func NewHandler(s Service) *Handler {
	return &Handler{service: s}
}

// Create handles POST /public/events/:code/rsvps
// @Summary Submit an RSVP
// @Tags RSVP
// @Accept json
// @Produce json
// @Param code path string true "Event public code"
// @Param body body CreateRequest true "RSVP"
// @Success 201 {object} Result
// @Failure 400 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Failure 409 {object} map[string]interface{}
// @Router /api/v1/public/events/{code}/rsvps [post]
func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	result, err := h.service.Create(c.Request.Context(), c.Param("code"), req, middleware.GetIPFromContext(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

// Lookup handles POST /public/events/:code/rsvps/lookup
// @Summary Load an RSVP with its answers
// @Tags RSVP
// @Accept json
// @Produce json
// @Param code path string true "Event public code"
// @Param body body Credentials true "RSVP ID and PIN"
// @Success 200 {object} map[string]interface{}
// @Failure 403 {object} map[string]interface{}
// @Router /api/v1/public/events/{code}/rsvps/lookup [post]
func (h *Handler) Lookup(c *gin.Context) {
	var creds Credentials
	if err := c.ShouldBindJSON(&creds); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	rsvp, err := h.service.Lookup(c.Request.Context(), c.Param("code"), creds)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"rsvp":      rsvp,
		"responses": rsvp.ResponseMap(),
	})
}

// Update handles PUT /public/events/:code/rsvps
// @Summary Replace an RSVP's details and answers
// @Tags RSVP
// @Accept json
// @Produce json
// @Param code path string true "Event public code"
// @Param body body UpdateRequest true "Update"
// @Success 200 {object} Result
// @Failure 403 {object} map[string]interface{}
// @Failure 409 {object} map[string]interface{}
// @Router /api/v1/public/events/{code}/rsvps [put]
func (h *Handler) Update(c *gin.Context) {
	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	result, err := h.service.Update(c.Request.Context(), c.Param("code"), req, middleware.GetIPFromContext(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Cancel handles POST /public/events/:code/rsvps/cancel
// @Summary Cancel an RSVP
// @Tags RSVP
// @Accept json
// @Produce json
// @Param code path string true "Event public code"
// @Param body body Credentials true "RSVP ID and PIN"
// @Success 200 {object} Result
// @Failure 403 {object} map[string]interface{}
// @Router /api/v1/public/events/{code}/rsvps/cancel [post]
func (h *Handler) Cancel(c *gin.Context) {
	var creds Credentials
	if err := c.ShouldBindJSON(&creds); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	result, err := h.service.Cancel(c.Request.Context(), c.Param("code"), creds, middleware.GetIPFromContext(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Remove handles DELETE /events/:id/rsvps/:rsvpId
// @Summary Remove a guest's RSVP (organizer)
// @Tags RSVP
// @Produce json
// @Param id path uint true "Event ID"
// @Param rsvpId path string true "RSVP ID"
// @Success 200 {object} Result
// @Failure 404 {object} map[string]interface{}
// @Router /api/v1/events/{id}/rsvps/{rsvpId} [delete]
func (h *Handler) Remove(c *gin.Context) {
	eventID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid event ID"})
		return
	}

	result, err := h.service.Remove(c.Request.Context(), c.GetUint("user_id"), uint(eventID), c.Param("rsvpId"), middleware.GetIPFromContext(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func respondError(c *gin.Context, err error) {
	var be *Error
	if errors.As(err, &be) {
		body := gin.H{"error": be.Message, "kind": be.Kind}
		if len(be.FieldErrors) > 0 {
			body["fieldErrors"] = be.FieldErrors
		}
		if be.QuestionID != 0 {
			body["questionId"] = be.QuestionID
		}
		c.JSON(be.Status(), body)
		return
	}

	log.WithError(err).WithField("path", c.FullPath()).Error("booking request failed")
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Something went wrong. Please try again."})
}
