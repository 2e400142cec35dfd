package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/fitcoach-api/internal/dto"
	"github.com/noah-isme/fitcoach-api/internal/middleware"
	"github.com/noah-isme/fitcoach-api/internal/models"
	"github.com/noah-isme/fitcoach-api/internal/service"
	appErrors "github.com/noah-isme/fitcoach-api/pkg/errors"
	"github.com/noah-isme/fitcoach-api/pkg/response"
)

type engagementService interface {
	Engagement(ctx context.Context, coachUserID, clientID string, refresh bool) ([]models.ClientEngagementScore, bool, error)
	AtRisk(ctx context.Context, coachUserID string, threshold int, refresh bool) ([]models.ClientEngagementScore, bool, error)
	AtRiskThreshold() int
}

type engagementReporter interface {
	EngagementReport(ctx context.Context, coachUserID string) (*service.ExportFile, error)
}

type insightService interface {
	ClientInsight(ctx context.Context, coachUserID, clientID string) (*models.ClientInsight, error)
}

// EngagementHandler serves the coach's roster triage endpoints.
type EngagementHandler struct {
	service  engagementService
	reports  engagementReporter
	insights insightService
}

// NewEngagementHandler constructs the handler.
func NewEngagementHandler(service engagementService, reports engagementReporter, insights insightService) *EngagementHandler {
	return &EngagementHandler{service: service, reports: reports, insights: insights}
}

// Engagement godoc
// @Summary Engagement scores for the coach's active clients
// @Tags Engagement
// @Produce json
// @Param clientId query string false "Limit to one client"
// @Param refresh query bool false "Bypass the cache"
// @Success 200 {object} response.Envelope
// @Router /coaches/me/engagement [get]
func (h *EngagementHandler) Engagement(c *gin.Context) {
	claims := middleware.Claims(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	start := time.Now()
	scores, hit, err := h.service.Engagement(c.Request.Context(), claims.UserID, strings.TrimSpace(c.Query("clientId")), queryBool(c, "refresh"))
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, hit)
	response.JSON(c, http.StatusOK, summarise(claims.UserID, scores, h.service.AtRiskThreshold()), nil, middleware.MetaSince(c, start))
}

// AtRisk godoc
// @Summary Clients scoring below the threshold, lowest first
// @Tags Engagement
// @Produce json
// @Param threshold query int false "Score threshold (default 40)"
// @Param refresh query bool false "Bypass the cache"
// @Success 200 {object} response.Envelope
// @Router /coaches/me/engagement/at-risk [get]
func (h *EngagementHandler) AtRisk(c *gin.Context) {
	claims := middleware.Claims(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	threshold := h.service.AtRiskThreshold()
	if raw := strings.TrimSpace(c.Query("threshold")); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 || v > 100 {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "threshold must be between 1 and 100"))
			return
		}
		threshold = v
	}
	start := time.Now()
	scores, hit, err := h.service.AtRisk(c.Request.Context(), claims.UserID, threshold, queryBool(c, "refresh"))
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, hit)
	response.JSON(c, http.StatusOK, summarise(claims.UserID, scores, threshold), nil, middleware.MetaSince(c, start))
}

// Export godoc
// @Summary Roster engagement report
// @Tags Engagement
// @Produce application/pdf
// @Success 200 {file} binary
// @Router /coaches/me/engagement/export.pdf [get]
func (h *EngagementHandler) Export(c *gin.Context) {
	claims := middleware.Claims(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	if h.reports == nil {
		response.Error(c, appErrors.ErrUnavailable)
		return
	}
	file, err := h.reports.EngagementReport(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Body)
}

// Insight godoc
// @Summary Coaching insight for one client
// @Tags Engagement
// @Produce json
// @Param clientId path string true "Client ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /coaches/me/clients/{clientId}/insight [get]
func (h *EngagementHandler) Insight(c *gin.Context) {
	claims := middleware.Claims(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	if h.insights == nil {
		response.Error(c, appErrors.ErrUnavailable)
		return
	}
	insight, err := h.insights.ClientInsight(c.Request.Context(), claims.UserID, c.Param("clientId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, insight, nil)
}

func summarise(coachUserID string, scores []models.ClientEngagementScore, threshold int) dto.EngagementResponse {
	out := dto.EngagementResponse{CoachUserID: coachUserID, Clients: scores}
	if out.Clients == nil {
		out.Clients = []models.ClientEngagementScore{}
	}
	if len(scores) == 0 {
		return out
	}
	sum := 0
	for _, s := range scores {
		sum += s.OverallScore
		if s.OverallScore < threshold {
			out.AtRiskCount++
		}
	}
	out.AverageScore = (sum + len(scores)/2) / len(scores)
	return out
}

func queryBool(c *gin.Context, name string) bool {
	v, _ := strconv.ParseBool(strings.TrimSpace(c.Query(name)))
	return v
}
