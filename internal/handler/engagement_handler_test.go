package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/fitcoach-api/internal/middleware"
	"github.com/noah-isme/fitcoach-api/internal/models"
	"github.com/noah-isme/fitcoach-api/internal/service"
	appErrors "github.com/noah-isme/fitcoach-api/pkg/errors"
)

type fakeEngagementSrv struct {
	scores    []models.ClientEngagementScore
	hit       bool
	err       error
	coach     string
	clientID  string
	refresh   bool
	threshold int
}

func (f *fakeEngagementSrv) Engagement(_ context.Context, coachUserID, clientID string, refresh bool) ([]models.ClientEngagementScore, bool, error) {
	f.coach, f.clientID, f.refresh = coachUserID, clientID, refresh
	return f.scores, f.hit, f.err
}

func (f *fakeEngagementSrv) AtRisk(_ context.Context, coachUserID string, threshold int, refresh bool) ([]models.ClientEngagementScore, bool, error) {
	f.coach, f.threshold, f.refresh = coachUserID, threshold, refresh
	var out []models.ClientEngagementScore
	for _, s := range f.scores {
		if s.OverallScore < threshold {
			out = append(out, s)
		}
	}
	return out, f.hit, f.err
}

func (f *fakeEngagementSrv) AtRiskThreshold() int { return 40 }

type fakeReporter struct{}

func (fakeReporter) EngagementReport(context.Context, string) (*service.ExportFile, error) {
	return &service.ExportFile{Filename: "engagement.pdf", ContentType: "application/pdf", Body: []byte("%PDF-")}, nil
}

type fakeInsights struct {
	err error
}

func (f fakeInsights) ClientInsight(_ context.Context, _, clientID string) (*models.ClientInsight, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &models.ClientInsight{ClientID: clientID, Summary: "Steady.", Source: models.InsightSourceFallback}, nil
}

func engagementRouter(h *EngagementHandler, claims *models.JWTClaims) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		if claims != nil {
			c.Set(middleware.ContextUserKey, claims)
		}
		c.Next()
	})
	r.GET("/coaches/me/engagement", h.Engagement)
	r.GET("/coaches/me/engagement/at-risk", h.AtRisk)
	r.GET("/coaches/me/engagement/export.pdf", h.Export)
	r.GET("/coaches/me/clients/:clientId/insight", h.Insight)
	return r
}

func get(r http.Handler, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

var coachClaims = &models.JWTClaims{UserID: "coach-user", Role: models.RoleCoach}

func TestEngagementHandler_Roster(t *testing.T) {
	srv := &fakeEngagementSrv{hit: true, scores: []models.ClientEngagementScore{
		{ClientID: "a", OverallScore: 15}, {ClientID: "b", OverallScore: 55}, {ClientID: "c", OverallScore: 72},
	}}
	r := engagementRouter(NewEngagementHandler(srv, nil, nil), coachClaims)

	rec := get(r, "/coaches/me/engagement?clientId=b&refresh=true")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data struct {
			Clients      []models.ClientEngagementScore `json:"clients"`
			AverageScore int                            `json:"averageScore"`
			AtRiskCount  int                            `json:"atRiskCount"`
		} `json:"data"`
		Meta map[string]interface{} `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "coach-user", srv.coach)
	assert.Equal(t, "b", srv.clientID)
	assert.True(t, srv.refresh)
	assert.Len(t, body.Data.Clients, 3)
	assert.Equal(t, 47, body.Data.AverageScore)
	assert.Equal(t, 1, body.Data.AtRiskCount)
	assert.Equal(t, true, body.Meta["cache_hit"])
}

func TestEngagementHandler_EmptyRosterIsEmptyList(t *testing.T) {
	r := engagementRouter(NewEngagementHandler(&fakeEngagementSrv{}, nil, nil), coachClaims)

	rec := get(r, "/coaches/me/engagement")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"clients":[]`)
}

func TestEngagementHandler_AtRiskThreshold(t *testing.T) {
	srv := &fakeEngagementSrv{scores: []models.ClientEngagementScore{{ClientID: "a", OverallScore: 15}, {ClientID: "b", OverallScore: 55}}}
	r := engagementRouter(NewEngagementHandler(srv, nil, nil), coachClaims)

	assert.Equal(t, http.StatusOK, get(r, "/coaches/me/engagement/at-risk").Code)
	assert.Equal(t, 40, srv.threshold)

	assert.Equal(t, http.StatusOK, get(r, "/coaches/me/engagement/at-risk?threshold=60").Code)
	assert.Equal(t, 60, srv.threshold)

	assert.Equal(t, http.StatusBadRequest, get(r, "/coaches/me/engagement/at-risk?threshold=abc").Code)
	assert.Equal(t, http.StatusBadRequest, get(r, "/coaches/me/engagement/at-risk?threshold=101").Code)
}

func TestEngagementHandler_RequiresClaims(t *testing.T) {
	r := engagementRouter(NewEngagementHandler(&fakeEngagementSrv{}, fakeReporter{}, fakeInsights{}), nil)
	for _, target := range []string{"/coaches/me/engagement", "/coaches/me/engagement/at-risk", "/coaches/me/engagement/export.pdf", "/coaches/me/clients/c/insight"} {
		assert.Equal(t, http.StatusUnauthorized, get(r, target).Code, target)
	}
}

func TestEngagementHandler_ExportAndInsight(t *testing.T) {
	r := engagementRouter(NewEngagementHandler(&fakeEngagementSrv{}, fakeReporter{}, fakeInsights{}), coachClaims)

	rec := get(r, "/coaches/me/engagement/export.pdf")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))

	rec = get(r, "/coaches/me/clients/client-9/insight")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"clientId":"client-9"`)

	missing := engagementRouter(NewEngagementHandler(&fakeEngagementSrv{}, nil, fakeInsights{err: appErrors.ErrClientNotFound}), coachClaims)
	assert.Equal(t, http.StatusNotFound, get(missing, "/coaches/me/clients/x/insight").Code)
	assert.Equal(t, http.StatusServiceUnavailable, get(missing, "/coaches/me/engagement/export.pdf").Code)
}
