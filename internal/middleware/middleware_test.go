package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/fitcoach-api/internal/models"
	"github.com/noah-isme/fitcoach-api/internal/service"
	appErrors "github.com/noah-isme/fitcoach-api/pkg/errors"
)

type stubValidator struct {
	claims *models.JWTClaims
	seen   string
}

func (s *stubValidator) ValidateToken(token string) (*models.JWTClaims, error) {
	s.seen = token
	if token != "good" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token")
	}
	return s.claims, nil
}

func newRouter(handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handlers = append(handlers, func(c *gin.Context) { c.Status(http.StatusNoContent) })
	r.GET("/gyms/:gymId/check-ins", handlers...)
	r.POST("/gyms/:gymId/check-ins", handlers...)
	return r
}

func serve(r http.Handler, method, target, auth string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestJWT(t *testing.T) {
	validator := &stubValidator{claims: &models.JWTClaims{UserID: "u-1", Role: models.RoleStaff}}
	var captured *models.JWTClaims
	r := newRouter(JWT(validator), func(c *gin.Context) { captured = Claims(c) })

	assert.Equal(t, http.StatusUnauthorized, serve(r, http.MethodGet, "/gyms/g/check-ins", "").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(r, http.MethodGet, "/gyms/g/check-ins", "Token good").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(r, http.MethodGet, "/gyms/g/check-ins", "Bearer bad").Code)

	assert.Equal(t, http.StatusNoContent, serve(r, http.MethodGet, "/gyms/g/check-ins", "bearer good").Code)
	assert.Equal(t, "u-1", captured.UserID)
}

func TestJWTQueryTokenOnlyForGet(t *testing.T) {
	validator := &stubValidator{claims: &models.JWTClaims{UserID: "u-1"}}
	r := newRouter(JWT(validator))

	assert.Equal(t, http.StatusNoContent, serve(r, http.MethodGet, "/gyms/g/check-ins?access_token=good", "").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(r, http.MethodPost, "/gyms/g/check-ins?access_token=good", "").Code)
}

func withClaims(claims *models.JWTClaims) gin.HandlerFunc {
	return func(c *gin.Context) {
		if claims != nil {
			c.Set(ContextUserKey, claims)
		}
		c.Next()
	}
}

func TestRequireRoles(t *testing.T) {
	cases := []struct {
		name   string
		claims *models.JWTClaims
		want   int
	}{
		{"anonymous", nil, http.StatusUnauthorized},
		{"coach", &models.JWTClaims{Role: models.RoleCoach}, http.StatusForbidden},
		{"staff", &models.JWTClaims{Role: models.RoleStaff}, http.StatusNoContent},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := newRouter(withClaims(tc.claims), RequireRoles(models.RoleOwner, models.RoleManager, models.RoleStaff))
			assert.Equal(t, tc.want, serve(r, http.MethodGet, "/gyms/g/check-ins", "").Code)
		})
	}
}

func TestGymScope(t *testing.T) {
	r := newRouter(withClaims(&models.JWTClaims{Role: models.RoleStaff, GymID: "gym-1"}), GymScope())

	assert.Equal(t, http.StatusNoContent, serve(r, http.MethodGet, "/gyms/gym-1/check-ins", "").Code)
	rec := serve(r, http.MethodGet, "/gyms/gym-2/check-ins", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "FORBIDDEN")
}

func TestMetricsLabelsRouteTemplate(t *testing.T) {
	metrics := service.NewMetricsService()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Metrics(metrics))
	r.GET("/gyms/:gymId/check-ins", func(c *gin.Context) { c.Status(http.StatusOK) })

	serve(r, http.MethodGet, "/gyms/gym-1/check-ins", "")
	serve(r, http.MethodGet, "/nope", "")

	rec := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `path="/gyms/:gymId/check-ins"`))
	assert.True(t, strings.Contains(body, `path="unmatched"`))
	assert.False(t, strings.Contains(body, "gym-1"))
}

func TestResponseMeta(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	assert.Nil(t, ExtractMeta(c))

	SetCacheHit(c, true)
	meta := ExtractMeta(c)
	assert.Equal(t, true, meta["cache_hit"])

	meta = MetaSince(c, time.Now())
	assert.Equal(t, true, meta["cache_hit"])
	assert.Contains(t, meta, "processing_time_ms")
}
