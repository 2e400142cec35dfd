package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/fitcoach-api/internal/dto"
	"github.com/noah-isme/fitcoach-api/internal/middleware"
	"github.com/noah-isme/fitcoach-api/internal/models"
	"github.com/noah-isme/fitcoach-api/internal/service"
	appErrors "github.com/noah-isme/fitcoach-api/pkg/errors"
	"github.com/noah-isme/fitcoach-api/pkg/response"
)

type gymCheckIns interface {
	ValidateAndCheckInWith(ctx context.Context, memberID string, method models.CheckInMethod) models.CheckInVerdict
	History(ctx context.Context, filter models.CheckInFilter) ([]models.CheckInHistoryEntry, *models.Pagination, error)
	DailyStats(ctx context.Context, day time.Time, loc *time.Location) (int, []models.CheckInHourCount, error)
}

type checkInExporter interface {
	CheckIns(ctx context.Context, filter models.CheckInFilter, format string) (*service.ExportFile, error)
}

type feedbackReader interface {
	Latest(ctx context.Context, gymID string) (*models.FeedbackEvent, error)
	Stream(ctx context.Context, gymID string) (<-chan models.FeedbackEvent, error)
}

// CheckInHandler exposes the front-desk admission endpoints.
type CheckInHandler struct {
	forGym   func(gymID string) gymCheckIns
	exports  checkInExporter
	feedback feedbackReader
	validate *validator.Validate
}

// NewCheckInHandler constructs the handler. exports and feedback may be nil.
func NewCheckInHandler(checkIns *service.CheckInService, exports checkInExporter, feedback feedbackReader, validate *validator.Validate) *CheckInHandler {
	if validate == nil {
		validate = validator.New()
	}
	return &CheckInHandler{
		forGym:   func(gymID string) gymCheckIns { return checkIns.ForGym(gymID) },
		exports:  exports,
		feedback: feedback,
		validate: validate,
	}
}

// CheckIn godoc
// @Summary Validate a member and record a check-in
// @Description Always responds 200 with a verdict; denials carry a reason.
// @Tags CheckIns
// @Accept json
// @Produce json
// @Param gymId path string true "Gym ID"
// @Param payload body dto.CheckInRequest true "Scanned member"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /gyms/{gymId}/check-ins [post]
func (h *CheckInHandler) CheckIn(c *gin.Context) {
	var req dto.CheckInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid request body"))
		return
	}
	req.MemberID = strings.TrimSpace(req.MemberID)
	if err := h.validate.Struct(req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, err.Error()))
		return
	}
	if req.Method == "" {
		req.Method = models.CheckInMethodQRCode
	}

	verdict := h.forGym(c.Param(middleware.GymParam)).ValidateAndCheckInWith(c.Request.Context(), req.MemberID, req.Method)
	response.JSON(c, http.StatusOK, dto.CheckInResponse{CheckInVerdict: verdict, Message: verdictMessage(verdict)}, nil)
}

// List godoc
// @Summary List a gym's check-ins
// @Tags CheckIns
// @Produce json
// @Param gymId path string true "Gym ID"
// @Param memberId query string false "Member ID"
// @Param from query string false "RFC3339 lower bound"
// @Param to query string false "RFC3339 upper bound"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /gyms/{gymId}/check-ins [get]
func (h *CheckInHandler) List(c *gin.Context) {
	filter, err := parseCheckInFilter(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	entries, pagination, err := h.forGym(c.Param(middleware.GymParam)).History(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, pagination)
}

// Stats godoc
// @Summary Daily check-in totals by hour
// @Tags CheckIns
// @Produce json
// @Param gymId path string true "Gym ID"
// @Param date query string false "Date (YYYY-MM-DD, UTC). Defaults to today"
// @Success 200 {object} response.Envelope
// @Router /gyms/{gymId}/check-ins/stats [get]
func (h *CheckInHandler) Stats(c *gin.Context) {
	day := time.Now().UTC()
	if raw := strings.TrimSpace(c.Query("date")); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid date format, expected YYYY-MM-DD"))
			return
		}
		day = parsed
	}
	gymID := c.Param(middleware.GymParam)
	total, buckets, err := h.forGym(gymID).DailyStats(c.Request.Context(), day, time.UTC)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.CheckInStatsResponse{
		GymID:  gymID,
		Date:   day.Format("2006-01-02"),
		Total:  total,
		ByHour: buckets,
	}, nil)
}

// Export godoc
// @Summary Export a gym's check-ins
// @Tags CheckIns
// @Produce text/csv
// @Produce application/pdf
// @Param gymId path string true "Gym ID"
// @Param format query string false "csv or pdf" Enums(csv, pdf)
// @Success 200 {file} binary
// @Router /gyms/{gymId}/check-ins/export [get]
func (h *CheckInHandler) Export(c *gin.Context) {
	if h.exports == nil {
		response.Error(c, appErrors.ErrUnavailable)
		return
	}
	filter, err := parseCheckInFilter(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	filter.GymID = c.Param(middleware.GymParam)
	file, err := h.exports.CheckIns(c.Request.Context(), filter, c.DefaultQuery("format", service.ExportFormatCSV))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Body)
}

// LatestFeedback godoc
// @Summary Feedback event currently flashing at the desk
// @Tags CheckIns
// @Produce json
// @Param gymId path string true "Gym ID"
// @Success 200 {object} response.Envelope
// @Success 204
// @Router /gyms/{gymId}/check-ins/feedback/latest [get]
func (h *CheckInHandler) LatestFeedback(c *gin.Context) {
	if h.feedback == nil {
		c.Status(http.StatusNoContent)
		return
	}
	evt, err := h.feedback.Latest(c.Request.Context(), c.Param(middleware.GymParam))
	if err != nil {
		if errors.Is(err, appErrors.ErrCacheMiss) {
			c.Status(http.StatusNoContent)
			return
		}
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, evt, nil)
}

// StreamFeedback godoc
// @Summary Server-sent admission events for desk displays
// @Tags CheckIns
// @Produce text/event-stream
// @Param gymId path string true "Gym ID"
// @Param access_token query string false "Access token for EventSource clients"
// @Success 200
// @Router /gyms/{gymId}/check-ins/feedback/stream [get]
func (h *CheckInHandler) StreamFeedback(c *gin.Context) {
	if h.feedback == nil {
		response.Error(c, appErrors.ErrUnavailable)
		return
	}
	events, err := h.feedback.Stream(c.Request.Context(), c.Param(middleware.GymParam))
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "feedback stream unavailable"))
		return
	}
	c.Header("Cache-Control", "no-store")
	c.Header("X-Accel-Buffering", "no")
	c.Stream(func(w io.Writer) bool {
		evt, ok := <-events
		if !ok {
			return false
		}
		c.SSEvent(string(evt.Outcome), evt)
		return true
	})
}

func verdictMessage(v models.CheckInVerdict) string {
	if v.Success {
		return fmt.Sprintf("Welcome, %s!", v.MemberName)
	}
	return fmt.Sprintf("Check-in denied: %s", v.ReasonText())
}

func parseCheckInFilter(c *gin.Context) (models.CheckInFilter, error) {
	filter := models.CheckInFilter{MemberID: strings.TrimSpace(c.Query("memberId"))}
	for _, bound := range []struct {
		name string
		dst  **time.Time
	}{{"from", &filter.From}, {"to", &filter.To}} {
		raw := strings.TrimSpace(c.Query(bound.name))
		if raw == "" {
			continue
		}
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return filter, appErrors.Clone(appErrors.ErrValidation, bound.name+" must be an RFC3339 timestamp")
		}
		*bound.dst = &parsed
	}
	var err error
	if filter.Page, err = intQuery(c, "page"); err != nil {
		return filter, err
	}
	if filter.PageSize, err = intQuery(c, "page_size"); err != nil {
		return filter, err
	}
	return filter, nil
}

func intQuery(c *gin.Context, name string) (int, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, appErrors.Clone(appErrors.ErrValidation, name+" must be a non-negative integer")
	}
	return v, nil
}
