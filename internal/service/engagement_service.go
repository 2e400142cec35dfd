package service

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/fitcoach-api/internal/models"
	appErrors "github.com/noah-isme/fitcoach-api/pkg/errors"
)

type coachDirectory interface {
	FindByUserID(ctx context.Context, userID string) (*models.CoachProfile, error)
	ActiveClients(ctx context.Context, coachID, clientID string) ([]models.CoachClient, error)
}

type engagementStore interface {
	SessionCounts(ctx context.Context, clientID, coachID string, since time.Time) (models.SessionCounts, error)
	HabitTotals(ctx context.Context, clientID string, since time.Time) (models.HabitTotals, error)
	ThreadMessages(ctx context.Context, clientID, coachUserID string, since time.Time) ([]models.ThreadMessage, error)
	ProgressEntryCount(ctx context.Context, clientID string, since time.Time) (int, error)
	TrainingLogCount(ctx context.Context, clientID string, since time.Time) (int, error)
	PreviousOverallScore(ctx context.Context, clientID, coachID string) (*int, error)
	Upsert(ctx context.Context, record models.ClientEngagementRecord) error
}

// EngagementServiceConfig tunes the scorer.
type EngagementServiceConfig struct {
	Timeout        time.Duration
	MaxConcurrency int
	CacheTTL       time.Duration
	AtRiskScore    int
}

// EngagementService scores a coach's active roster and persists one row per client.
type EngagementService struct {
	coaches coachDirectory
	store   engagementStore
	cache   *CacheService
	metrics *MetricsService
	logger  *zap.Logger
	now     func() time.Time
	cfg     EngagementServiceConfig
}

// EngagementServiceParams groups constructor dependencies.
type EngagementServiceParams struct {
	Coaches coachDirectory
	Store   engagementStore
	Cache   *CacheService
	Metrics *MetricsService
	Logger  *zap.Logger
	Config  EngagementServiceConfig
}

// NewEngagementService constructs the scorer with defaults.
func NewEngagementService(params EngagementServiceParams) *EngagementService {
	cfg := params.Config
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = 8
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	if cfg.AtRiskScore <= 0 {
		cfg.AtRiskScore = 40
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EngagementService{
		coaches: params.Coaches,
		store:   params.Store,
		cache:   params.Cache,
		metrics: params.Metrics,
		logger:  logger,
		now:     time.Now,
		cfg:     cfg,
	}
}

// AtRiskThreshold is the default score below which a client needs attention.
func (s *EngagementService) AtRiskThreshold() int {
	return s.cfg.AtRiskScore
}

// Engagement serves cached scores when available. refresh forces a recomputation.
func (s *EngagementService) Engagement(ctx context.Context, coachUserID, clientID string, refresh bool) ([]models.ClientEngagementScore, bool, error) {
	key := CacheKey("engagement", coachUserID, clientID)
	if !refresh {
		var cached []models.ClientEngagementScore
		if s.cache.Get(ctx, key, &cached) {
			return cached, true, nil
		}
	}

	scores, err := s.ComputeEngagement(ctx, coachUserID, clientID)
	if err != nil {
		return nil, false, err
	}
	s.cache.Invalidate(ctx, CacheKey("engagement", coachUserID, "*"))
	s.cache.Set(ctx, key, scores, s.cfg.CacheTTL)
	return scores, false, nil
}

// AtRisk returns the clients scoring strictly below threshold, lowest first.
func (s *EngagementService) AtRisk(ctx context.Context, coachUserID string, threshold int, refresh bool) ([]models.ClientEngagementScore, bool, error) {
	if threshold <= 0 {
		threshold = s.cfg.AtRiskScore
	}
	scores, hit, err := s.Engagement(ctx, coachUserID, "", refresh)
	if err != nil {
		return nil, false, err
	}
	atRisk := make([]models.ClientEngagementScore, 0, len(scores))
	for _, score := range scores {
		if score.OverallScore < threshold {
			atRisk = append(atRisk, score)
		}
	}
	return atRisk, hit, nil
}

// ComputeEngagement scores the coach's active roster, or just clientID when set, and returns the
// results lowest overall score first. A coach without a profile or clients yields an empty list.
// Clients whose signals fail are logged and left out.
func (s *EngagementService) ComputeEngagement(ctx context.Context, coachUserID, clientID string) ([]models.ClientEngagementScore, error) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	coach, err := s.coaches.FindByUserID(ctx, coachUserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return []models.ClientEngagementScore{}, nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load coach profile")
	}

	clients, err := s.coaches.ActiveClients(ctx, coach.ID, clientID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load coach clients")
	}
	if len(clients) == 0 {
		return []models.ClientEngagementScore{}, nil
	}

	now := s.now().UTC()
	results := make([]*models.ClientEngagementScore, len(clients))
	var failures int32

	var g errgroup.Group
	g.SetLimit(s.cfg.MaxConcurrency)
	for i, client := range clients {
		i, client := i, client
		g.Go(func() error {
			score, err := s.scoreClient(ctx, coach, client, now)
			if err != nil {
				atomic.AddInt32(&failures, 1)
				s.logger.Warn("dropping client from engagement results",
					zap.String("coach_id", coach.ID), zap.String("client_id", client.ClientID), zap.Error(err))
				return nil
			}
			results[i] = score
			return nil
		})
	}
	_ = g.Wait()

	scores := make([]models.ClientEngagementScore, 0, len(results))
	for _, score := range results {
		if score != nil {
			scores = append(scores, *score)
		}
	}
	sort.SliceStable(scores, func(i, j int) bool {
		return scores[i].OverallScore < scores[j].OverallScore
	})

	s.metrics.ObserveEngagement(time.Since(start), int(failures))
	return scores, nil
}

func (s *EngagementService) scoreClient(ctx context.Context, coach *models.CoachProfile, client models.CoachClient, now time.Time) (*models.ClientEngagementScore, error) {
	var breakdown models.EngagementBreakdown

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		counts, err := s.store.SessionCounts(gctx, client.ClientID, coach.ID, now.Add(-SessionWindow))
		breakdown.SessionAttendance = SessionAttendanceScore(counts)
		return err
	})
	g.Go(func() error {
		totals, err := s.store.HabitTotals(gctx, client.ClientID, now.Add(-HabitWindow))
		breakdown.HabitCompletion = HabitCompletionScore(totals)
		return err
	})
	g.Go(func() error {
		messages, err := s.store.ThreadMessages(gctx, client.ClientID, coach.UserID, now.Add(-MessageWindow))
		breakdown.MessageResponsiveness = MessageResponsivenessScore(messages, client.ClientID)
		return err
	})
	g.Go(func() error {
		entries, err := s.store.ProgressEntryCount(gctx, client.ClientID, now.Add(-ProgressWindow))
		breakdown.ProgressLogging = ProgressLoggingScore(entries)
		return err
	})
	g.Go(func() error {
		logs, err := s.store.TrainingLogCount(gctx, client.ClientID, now.Add(-PlanAdherenceWindow))
		breakdown.PlanAdherence = PlanAdherenceScore(logs)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	overall := OverallScore(breakdown)
	previous, err := s.store.PreviousOverallScore(ctx, client.ClientID, coach.ID)
	if err != nil {
		return nil, err
	}
	change := 0
	if previous != nil {
		change = overall - *previous
	}

	score := &models.ClientEngagementScore{
		ClientID:           client.ClientID,
		Name:               client.Name,
		AvatarURL:          client.AvatarURL,
		OverallScore:       overall,
		Breakdown:          breakdown,
		WeekOverWeekChange: change,
		Trend:              TrendFor(change),
		LastUpdated:        now,
	}
	if err := s.store.Upsert(ctx, score.Record(coach.ID)); err != nil {
		return nil, err
	}
	return score, nil
}
