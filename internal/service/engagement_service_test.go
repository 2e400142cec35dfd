package service

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/fitcoach-api/internal/models"
)

var engagementNow = time.Date(2024, 5, 8, 12, 0, 0, 0, time.UTC)

type fakeCoachDirectory struct {
	coach      *models.CoachProfile
	clients    []models.CoachClient
	err        error
	lastFilter string
}

func (f *fakeCoachDirectory) FindByUserID(context.Context, string) (*models.CoachProfile, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.coach == nil {
		return nil, sql.ErrNoRows
	}
	return f.coach, nil
}

func (f *fakeCoachDirectory) ActiveClients(_ context.Context, _ string, clientID string) ([]models.CoachClient, error) {
	f.lastFilter = clientID
	if clientID == "" {
		return f.clients, nil
	}
	for _, c := range f.clients {
		if c.ClientID == clientID {
			return []models.CoachClient{c}, nil
		}
	}
	return nil, nil
}

type clientSignals struct {
	sessions models.SessionCounts
	habits   models.HabitTotals
	messages []models.ThreadMessage
	progress int
	training int
	err      error
	block    bool
}

type fakeEngagementStore struct {
	mu       sync.Mutex
	signals  map[string]clientSignals
	stored   map[string]models.ClientEngagementRecord
	since    map[string]time.Time
	upserted int
}

func newFakeEngagementStore(signals map[string]clientSignals) *fakeEngagementStore {
	return &fakeEngagementStore{signals: signals, stored: map[string]models.ClientEngagementRecord{}, since: map[string]time.Time{}}
}

func (f *fakeEngagementStore) track(name string, since time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.since[name] = since
}

func (f *fakeEngagementStore) SessionCounts(ctx context.Context, clientID, _ string, since time.Time) (models.SessionCounts, error) {
	f.track("sessions", since)
	s := f.signals[clientID]
	if s.block {
		<-ctx.Done()
		return models.SessionCounts{}, ctx.Err()
	}
	return s.sessions, s.err
}

func (f *fakeEngagementStore) HabitTotals(_ context.Context, clientID string, since time.Time) (models.HabitTotals, error) {
	f.track("habits", since)
	return f.signals[clientID].habits, nil
}

func (f *fakeEngagementStore) ThreadMessages(_ context.Context, clientID, _ string, since time.Time) ([]models.ThreadMessage, error) {
	f.track("messages", since)
	return f.signals[clientID].messages, nil
}

func (f *fakeEngagementStore) ProgressEntryCount(_ context.Context, clientID string, since time.Time) (int, error) {
	f.track("progress", since)
	return f.signals[clientID].progress, nil
}

func (f *fakeEngagementStore) TrainingLogCount(_ context.Context, clientID string, since time.Time) (int, error) {
	f.track("training", since)
	return f.signals[clientID].training, nil
}

func (f *fakeEngagementStore) PreviousOverallScore(_ context.Context, clientID, coachID string) (*int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	record, ok := f.stored[clientID+"/"+coachID]
	if !ok {
		return nil, nil
	}
	score := record.OverallScore
	return &score, nil
}

func (f *fakeEngagementStore) Upsert(_ context.Context, record models.ClientEngagementRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stored[record.ClientID+"/"+record.CoachID] = record
	f.upserted++
	return nil
}

func newEngagementFixture(clients []models.CoachClient, signals map[string]clientSignals) (*EngagementService, *fakeEngagementStore, *fakeCoachDirectory) {
	store := newFakeEngagementStore(signals)
	coaches := &fakeCoachDirectory{coach: &models.CoachProfile{ID: "coach-1", UserID: "coach-user"}, clients: clients}
	svc := NewEngagementService(EngagementServiceParams{Coaches: coaches, Store: store, Metrics: NewMetricsService()})
	svc.now = func() time.Time { return engagementNow }
	return svc, store, coaches
}

// sessionsOnly sets sessions and two progress entries; the other signals stay neutral.
func sessionsOnly(completed, total int) clientSignals {
	return clientSignals{sessions: models.SessionCounts{Total: total, Completed: completed}, progress: 2}
}

func TestEngagementService_SortsAscending(t *testing.T) {
	clients := []models.CoachClient{{ClientID: "a", Name: "A"}, {ClientID: "b", Name: "B"}, {ClientID: "c", Name: "C"}}
	// progress=2 → 100; habits, messages, training neutral 50.
	// overall = sa*0.25 + 12.5 + 7.5 + 20 + 7.5 = sa*0.25 + 47.5
	signals := map[string]clientSignals{
		"a": sessionsOnly(99, 100), // 24.75+47.5 = 72.25 → 72
		"b": {sessions: models.SessionCounts{Total: 10, Completed: 0}, progress: 0, habits: models.HabitTotals{Logs: 3, Completed: 0, Target: 3}, training: 0},
		"c": sessionsOnly(30, 100), // 7.5+47.5 = 55
	}
	svc, _, _ := newEngagementFixture(clients, signals)

	scores, err := svc.ComputeEngagement(context.Background(), "coach-user", "")
	require.NoError(t, err)
	require.Len(t, scores, 3)

	// b: 0 + 0 + 7.5 + 0 + 7.5 = 15
	assert.Equal(t, []int{15, 55, 72}, []int{scores[0].OverallScore, scores[1].OverallScore, scores[2].OverallScore})
	assert.Equal(t, []string{"b", "c", "a"}, []string{scores[0].ClientID, scores[1].ClientID, scores[2].ClientID})
}

func TestEngagementService_BreakdownAndWindows(t *testing.T) {
	clients := []models.CoachClient{{ClientID: "client-1", Name: "Sam"}}
	signals := map[string]clientSignals{
		"client-1": {
			sessions: models.SessionCounts{Total: 5, Completed: 4},
			habits:   models.HabitTotals{Logs: 5, Completed: 6, Target: 10},
			messages: []models.ThreadMessage{
				{SenderID: "coach-user", CreatedAt: engagementNow.Add(-48 * time.Hour)},
				{SenderID: "client-1", CreatedAt: engagementNow.Add(-43 * time.Hour)},
			},
			progress: 1,
			training: 1,
		},
	}
	svc, store, _ := newEngagementFixture(clients, signals)

	scores, err := svc.ComputeEngagement(context.Background(), "coach-user", "")
	require.NoError(t, err)
	require.Len(t, scores, 1)

	b := scores[0].Breakdown
	assert.Equal(t, models.EngagementBreakdown{SessionAttendance: 80, HabitCompletion: 60, MessageResponsiveness: 80, ProgressLogging: 50, PlanAdherence: 33}, b)
	// 20 + 15 + 12 + 10 + 4.95 = 61.95
	assert.Equal(t, 62, scores[0].OverallScore)
	assert.Equal(t, engagementNow, scores[0].LastUpdated)

	assert.Equal(t, engagementNow.Add(-30*24*time.Hour), store.since["sessions"])
	assert.Equal(t, engagementNow.Add(-7*24*time.Hour), store.since["habits"])
	assert.Equal(t, engagementNow.Add(-14*24*time.Hour), store.since["messages"])
	assert.Equal(t, engagementNow.Add(-14*24*time.Hour), store.since["progress"])
	assert.Equal(t, engagementNow.Add(-7*24*time.Hour), store.since["training"])
}

func TestEngagementService_IdempotentSecondCall(t *testing.T) {
	clients := []models.CoachClient{{ClientID: "client-1"}}
	signals := map[string]clientSignals{"client-1": sessionsOnly(3, 4)}
	svc, store, _ := newEngagementFixture(clients, signals)

	first, err := svc.ComputeEngagement(context.Background(), "coach-user", "")
	require.NoError(t, err)
	second, err := svc.ComputeEngagement(context.Background(), "coach-user", "")
	require.NoError(t, err)

	assert.Equal(t, first[0].OverallScore, second[0].OverallScore)
	assert.Equal(t, 0, first[0].WeekOverWeekChange, "no prior row")
	assert.Equal(t, 0, second[0].WeekOverWeekChange)
	assert.Equal(t, models.TrendStable, second[0].Trend)
	assert.Equal(t, 2, store.upserted)
	assert.Len(t, store.stored, 1, "one row per client and coach")
}

func TestEngagementService_TrendFromStoredScore(t *testing.T) {
	clients := []models.CoachClient{{ClientID: "client-1"}}
	svc, store, _ := newEngagementFixture(clients, map[string]clientSignals{"client-1": sessionsOnly(3, 4)})
	store.stored["client-1/coach-1"] = models.ClientEngagementRecord{ClientID: "client-1", CoachID: "coach-1", OverallScore: 60}

	scores, err := svc.ComputeEngagement(context.Background(), "coach-user", "")
	require.NoError(t, err)

	// 18.75 + 47.5 = 66.25
	assert.Equal(t, 66, scores[0].OverallScore)
	assert.Equal(t, 6, scores[0].WeekOverWeekChange)
	assert.Equal(t, models.TrendUp, scores[0].Trend)
	assert.Equal(t, 6, store.stored["client-1/coach-1"].WeekOverWeekChange)
}

func TestEngagementService_PartialFailureDropsClient(t *testing.T) {
	clients := []models.CoachClient{{ClientID: "ok"}, {ClientID: "broken"}}
	signals := map[string]clientSignals{
		"ok":     sessionsOnly(1, 1),
		"broken": {err: errors.New("sessions query failed")},
	}
	svc, store, _ := newEngagementFixture(clients, signals)

	scores, err := svc.ComputeEngagement(context.Background(), "coach-user", "")
	require.NoError(t, err)
	require.Len(t, scores, 1)
	assert.Equal(t, "ok", scores[0].ClientID)
	assert.Equal(t, 1, store.upserted)
}

func TestEngagementService_ExpiredClientIsDropped(t *testing.T) {
	clients := []models.CoachClient{{ClientID: "a"}, {ClientID: "slow"}, {ClientID: "c"}}
	signals := map[string]clientSignals{
		"a":    sessionsOnly(99, 100),
		"slow": {block: true},
		"c":    sessionsOnly(30, 100),
	}
	svc, store, _ := newEngagementFixture(clients, signals)
	svc.cfg.Timeout = 50 * time.Millisecond

	scores, err := svc.ComputeEngagement(context.Background(), "coach-user", "")
	require.NoError(t, err)

	require.Len(t, scores, 2)
	assert.Equal(t, []string{"c", "a"}, []string{scores[0].ClientID, scores[1].ClientID})
	assert.Equal(t, 2, store.upserted)
	_, stored := store.stored["slow/coach-1"]
	assert.False(t, stored)
}

func TestEngagementService_EmptyCases(t *testing.T) {
	t.Run("no coach profile", func(t *testing.T) {
		svc, _, coaches := newEngagementFixture(nil, nil)
		coaches.coach = nil
		scores, err := svc.ComputeEngagement(context.Background(), "someone", "")
		require.NoError(t, err)
		assert.Empty(t, scores)
	})

	t.Run("no clients", func(t *testing.T) {
		svc, _, _ := newEngagementFixture(nil, nil)
		scores, err := svc.ComputeEngagement(context.Background(), "coach-user", "")
		require.NoError(t, err)
		assert.NotNil(t, scores)
		assert.Empty(t, scores)
	})

	t.Run("coach lookup error", func(t *testing.T) {
		svc, _, coaches := newEngagementFixture(nil, nil)
		coaches.err = errors.New("db down")
		_, err := svc.ComputeEngagement(context.Background(), "coach-user", "")
		assert.Error(t, err)
	})
}

func TestEngagementService_SingleClientFilter(t *testing.T) {
	clients := []models.CoachClient{{ClientID: "a"}, {ClientID: "b"}}
	svc, _, coaches := newEngagementFixture(clients, map[string]clientSignals{})

	scores, err := svc.ComputeEngagement(context.Background(), "coach-user", "b")
	require.NoError(t, err)
	require.Len(t, scores, 1)
	assert.Equal(t, "b", scores[0].ClientID)
	assert.Equal(t, "b", coaches.lastFilter)
}

func TestEngagementService_CacheAndAtRisk(t *testing.T) {
	clients := []models.CoachClient{{ClientID: "low"}, {ClientID: "high"}}
	signals := map[string]clientSignals{
		"low":  {sessions: models.SessionCounts{Total: 4}, habits: models.HabitTotals{Logs: 1, Target: 5}},
		"high": sessionsOnly(4, 4),
	}
	svc, store, _ := newEngagementFixture(clients, signals)
	cacheRepo := newMemoryCacheRepo()
	svc.cache = NewCacheService(cacheRepo, nil, time.Minute, nil, true)

	scores, hit, err := svc.Engagement(context.Background(), "coach-user", "", false)
	require.NoError(t, err)
	assert.False(t, hit)
	require.Len(t, scores, 2)

	_, hit, err = svc.Engagement(context.Background(), "coach-user", "", false)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, 2, store.upserted, "cache hit skips recomputation")

	_, hit, err = svc.Engagement(context.Background(), "coach-user", "", true)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 4, store.upserted)
	assert.Contains(t, cacheRepo.deleted, "engagement:coach-user:*")

	atRisk, _, err := svc.AtRisk(context.Background(), "coach-user", 0, false)
	require.NoError(t, err)
	require.Len(t, atRisk, 1)
	assert.Equal(t, "low", atRisk[0].ClientID)
	assert.Less(t, atRisk[0].OverallScore, svc.AtRiskThreshold())
}
