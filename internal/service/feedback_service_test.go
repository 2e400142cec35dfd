package service

import (
	"context"
	"encoding/base64"
	"errors"
	"sync"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/fitcoach-api/internal/models"
	appErrors "github.com/noah-isme/fitcoach-api/pkg/errors"
)

type fakeFeedbackStore struct {
	mu         sync.Mutex
	published  []models.FeedbackEvent
	publishErr error
}

func (f *fakeFeedbackStore) Publish(_ context.Context, evt models.FeedbackEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, evt)
	return f.publishErr
}

func (f *fakeFeedbackStore) Latest(_ context.Context, gymID string) (*models.FeedbackEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.published) - 1; i >= 0; i-- {
		if f.published[i].GymID == gymID {
			evt := f.published[i]
			return &evt, nil
		}
	}
	return nil, appErrors.ErrCacheMiss
}

func (f *fakeFeedbackStore) Subscribe(context.Context, string) (*redis.PubSub, error) {
	return nil, appErrors.Clone(appErrors.ErrUnavailable, "no redis in tests")
}

func TestFeedbackService_AttachesDistinctTones(t *testing.T) {
	store := &fakeFeedbackStore{}
	svc, err := NewFeedbackService(store, nil, FeedbackServiceConfig{Enabled: true})
	require.NoError(t, err)

	svc.OnAdmit(context.Background(), models.FeedbackEvent{GymID: "gym-1", Outcome: models.FeedbackAdmitted, Flash: models.FlashGreen})
	svc.OnDeny(context.Background(), models.FeedbackEvent{GymID: "gym-1", Outcome: models.FeedbackDenied, Flash: models.FlashRed})

	require.Len(t, store.published, 2)
	admit, err := base64.StdEncoding.DecodeString(store.published[0].ToneWAV)
	require.NoError(t, err)
	deny, err := base64.StdEncoding.DecodeString(store.published[1].ToneWAV)
	require.NoError(t, err)
	assert.Equal(t, "RIFF", string(admit[:4]))
	assert.Greater(t, len(deny), len(admit))

	latest, err := svc.Latest(context.Background(), "gym-1")
	require.NoError(t, err)
	assert.Equal(t, models.FlashRed, latest.Flash)
}

func TestFeedbackService_SwallowsPublishFailure(t *testing.T) {
	store := &fakeFeedbackStore{publishErr: errors.New("redis down")}
	svc, err := NewFeedbackService(store, nil, FeedbackServiceConfig{Enabled: true})
	require.NoError(t, err)

	assert.NotPanics(t, func() {
		svc.OnDeny(context.Background(), models.FeedbackEvent{GymID: "gym-1"})
	})
	assert.Len(t, store.published, 1)
}

func TestFeedbackService_Disabled(t *testing.T) {
	store := &fakeFeedbackStore{}
	svc, err := NewFeedbackService(store, nil, FeedbackServiceConfig{})
	require.NoError(t, err)

	svc.OnAdmit(context.Background(), models.FeedbackEvent{GymID: "gym-1"})
	assert.Empty(t, store.published)

	_, err = svc.Stream(context.Background(), "gym-1")
	assert.True(t, errors.Is(err, appErrors.ErrUnavailable))
}
