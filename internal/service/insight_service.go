package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/fitcoach-api/internal/models"
	appErrors "github.com/noah-isme/fitcoach-api/pkg/errors"
)

// InsightRequest is what a Summarizer sees about one client.
type InsightRequest struct {
	ClientID string                       `json:"clientId"`
	Name     string                       `json:"name"`
	Score    models.ClientEngagementScore `json:"score"`
}

// Summarizer turns an engagement score into coaching advice.
type Summarizer interface {
	Summarize(ctx context.Context, req InsightRequest) (*models.ClientInsight, error)
}

type engagementReader interface {
	Engagement(ctx context.Context, coachUserID, clientID string, refresh bool) ([]models.ClientEngagementScore, bool, error)
}

// InsightService produces a client insight, falling back to rules over the breakdown when the
// summarizer is missing, slow or wrong.
type InsightService struct {
	engagement engagementReader
	summarizer Summarizer
	timeout    time.Duration
	logger     *zap.Logger
	now        func() time.Time
}

// NewInsightService constructs the service. summarizer may be nil.
func NewInsightService(engagement engagementReader, summarizer Summarizer, timeout time.Duration, logger *zap.Logger) *InsightService {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InsightService{engagement: engagement, summarizer: summarizer, timeout: timeout, logger: logger, now: time.Now}
}

// ClientInsight returns the insight for one of the coach's active clients.
func (s *InsightService) ClientInsight(ctx context.Context, coachUserID, clientID string) (*models.ClientInsight, error) {
	scores, _, err := s.engagement.Engagement(ctx, coachUserID, clientID, false)
	if err != nil {
		return nil, err
	}
	if len(scores) == 0 {
		return nil, appErrors.ErrClientNotFound
	}
	score := scores[0]

	if s.summarizer != nil {
		sctx, cancel := context.WithTimeout(ctx, s.timeout)
		insight, err := s.summarizer.Summarize(sctx, InsightRequest{ClientID: score.ClientID, Name: score.Name, Score: score})
		cancel()
		switch {
		case err != nil:
			s.logger.Warn("summarizer failed, using fallback insight", zap.String("client_id", clientID), zap.Error(err))
		case insight == nil || strings.TrimSpace(insight.Summary) == "":
			s.logger.Warn("summarizer returned empty insight, using fallback", zap.String("client_id", clientID))
		default:
			insight.ClientID = score.ClientID
			insight.Source = models.InsightSourceModel
			if insight.GeneratedAt.IsZero() {
				insight.GeneratedAt = s.now().UTC()
			}
			return insight, nil
		}
	}
	return FallbackInsight(score, s.now().UTC()), nil
}

type signalNote struct {
	name  string
	score int
	risk  string
	tip   string
}

// FallbackInsight derives a deterministic insight from the breakdown.
func FallbackInsight(score models.ClientEngagementScore, now time.Time) *models.ClientInsight {
	b := score.Breakdown
	notes := []signalNote{
		{"session attendance", b.SessionAttendance, "Missing scheduled sessions", "Confirm the session schedule still fits and follow up on missed sessions."},
		{"habit completion", b.HabitCompletion, "Falling behind on daily habits", "Reduce habit targets to one or two achievable goals this week."},
		{"message responsiveness", b.MessageResponsiveness, "Slow to reply to messages", "Send a short check-in message with a single clear question."},
		{"progress logging", b.ProgressLogging, "Not logging progress", "Ask for a progress photo or measurement before the next session."},
		{"plan adherence", b.PlanAdherence, "Not following the training plan", "Review the plan together and simplify the next week's workouts."},
	}
	sort.SliceStable(notes, func(i, j int) bool { return notes[i].score < notes[j].score })

	name := score.Name
	if name == "" {
		name = "This client"
	}
	insight := &models.ClientInsight{
		ClientID:        score.ClientID,
		Risks:           []string{},
		Recommendations: []string{},
		Source:          models.InsightSourceFallback,
		GeneratedAt:     now,
	}
	for _, note := range notes {
		if note.score >= 60 {
			break
		}
		insight.Risks = append(insight.Risks, note.risk)
		insight.Recommendations = append(insight.Recommendations, note.tip)
	}

	switch {
	case score.OverallScore < 40:
		insight.Summary = fmt.Sprintf("%s is at risk with an engagement score of %d. Weakest area: %s.", name, score.OverallScore, notes[0].name)
	case score.OverallScore < 70:
		insight.Summary = fmt.Sprintf("%s is moderately engaged (%d). Focus on %s.", name, score.OverallScore, notes[0].name)
	default:
		insight.Summary = fmt.Sprintf("%s is highly engaged (%d).", name, score.OverallScore)
	}
	switch score.Trend {
	case models.TrendDown:
		insight.Summary += fmt.Sprintf(" Engagement dropped %d points since the last review.", -score.WeekOverWeekChange)
	case models.TrendUp:
		insight.Summary += fmt.Sprintf(" Engagement rose %d points since the last review.", score.WeekOverWeekChange)
	}
	if len(insight.Recommendations) == 0 {
		insight.Recommendations = append(insight.Recommendations, "Keep the current plan and acknowledge the consistency.")
	}
	return insight
}

// HTTPSummarizer posts the request as JSON and expects a ClientInsight back.
type HTTPSummarizer struct {
	client *http.Client
	url    string
	apiKey string
}

// NewHTTPSummarizer returns nil when url is empty so callers fall back automatically.
func NewHTTPSummarizer(url, apiKey string, timeout time.Duration) *HTTPSummarizer {
	if url == "" {
		return nil
	}
	return &HTTPSummarizer{client: &http.Client{Timeout: timeout}, url: url, apiKey: apiKey}
}

// Summarize implements Summarizer.
func (h *HTTPSummarizer) Summarize(ctx context.Context, req InsightRequest) (*models.ClientInsight, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode insight request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, h.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build insight request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if h.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+h.apiKey)
	}

	resp, err := h.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("call summarizer: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("summarizer returned %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var insight models.ClientInsight
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&insight); err != nil {
		return nil, fmt.Errorf("decode summarizer response: %w", err)
	}
	return &insight, nil
}
