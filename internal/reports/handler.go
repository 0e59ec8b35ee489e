package reports

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/petalboard/petalboard-backend/internal/event"
	"github.com/petalboard/petalboard-backend/middleware"
)

type ReportHandler struct {
	service ReportService
}

func NewReportHandler(s ReportService) *ReportHandler {
	return &ReportHandler{service: s}
}

// ExportRSVPs handles GET /events/:id/rsvps/export
// @Summary Download an event's RSVPs
// @Tags Reports
// @Produce octet-stream
// @Param id path uint true "Event ID"
// @Param format query string false "excel (default), csv or pdf"
// @Success 200 {file} file
// @Failure 400 {object} map[string]string
// @Failure 403 {object} map[string]string
// @Router /api/v1/events/{id}/rsvps/export [get]
func (h *ReportHandler) ExportRSVPs(c *gin.Context) {
	eventID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid event ID"})
		return
	}

	format := strings.ToLower(c.DefaultQuery("format", FormatExcel))
	if format == "xlsx" {
		format = FormatExcel
	}
	if format != FormatExcel && format != FormatCSV && format != FormatPDF {
		c.JSON(http.StatusBadRequest, gin.H{"error": "format must be one of excel, csv, pdf"})
		return
	}

	data, fname, mime, err := h.service.ExportRSVPs(c.Request.Context(), c.GetUint("user_id"), uint(eventID), format, middleware.GetIPFromContext(c))
	switch {
	case errors.Is(err, event.ErrEventNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Event not found"})
		return
	case errors.Is(err, event.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
		return
	case err != nil:
		log.WithError(err).WithField("event_id", eventID).Error("rsvp export failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to export RSVPs"})
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", fname))
	c.Data(http.StatusOK, mime, data)
}
