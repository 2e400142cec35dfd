package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/fitcoach-api/internal/models"
	appErrors "github.com/noah-isme/fitcoach-api/pkg/errors"
)

// FeedbackChannel is the pub/sub channel kiosks of a gym subscribe to.
func FeedbackChannel(gymID string) string {
	return "checkin:feedback:" + gymID
}

func latestFeedbackKey(gymID string) string {
	return FeedbackChannel(gymID) + ":latest"
}

// FeedbackPublisher fans check-in feedback events out over Redis pub/sub and keeps the latest
// event per gym readable for as long as its flash lasts.
type FeedbackPublisher struct {
	client *redis.Client
}

// NewFeedbackPublisher constructs the publisher.
func NewFeedbackPublisher(client *redis.Client) *FeedbackPublisher {
	return &FeedbackPublisher{client: client}
}

// Publish sends evt to subscribers and stores it as the gym's latest event.
func (p *FeedbackPublisher) Publish(ctx context.Context, evt models.FeedbackEvent) error {
	if p.client == nil {
		return nil
	}
	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal feedback event: %w", err)
	}
	ttl := time.Duration(evt.FlashMillis) * time.Millisecond
	if ttl <= 0 {
		ttl = time.Second
	}

	pipe := p.client.TxPipeline()
	pipe.Publish(ctx, FeedbackChannel(evt.GymID), payload)
	pipe.Set(ctx, latestFeedbackKey(evt.GymID), payload, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("publish feedback for gym %s: %w", evt.GymID, err)
	}
	return nil
}

// Latest returns the gym's most recent event while its flash is still showing.
func (p *FeedbackPublisher) Latest(ctx context.Context, gymID string) (*models.FeedbackEvent, error) {
	if p.client == nil {
		return nil, appErrors.ErrCacheMiss
	}
	raw, err := p.client.Get(ctx, latestFeedbackKey(gymID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, appErrors.ErrCacheMiss
		}
		return nil, fmt.Errorf("read latest feedback for gym %s: %w", gymID, err)
	}
	var evt models.FeedbackEvent
	if err := json.Unmarshal(raw, &evt); err != nil {
		return nil, fmt.Errorf("decode latest feedback for gym %s: %w", gymID, err)
	}
	return &evt, nil
}

// Subscribe opens a subscription to a gym's feedback channel. Callers must Close it.
func (p *FeedbackPublisher) Subscribe(ctx context.Context, gymID string) (*redis.PubSub, error) {
	if p.client == nil {
		return nil, appErrors.Clone(appErrors.ErrUnavailable, "feedback channel unavailable")
	}
	sub := p.client.Subscribe(ctx, FeedbackChannel(gymID))
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("subscribe feedback for gym %s: %w", gymID, err)
	}
	return sub, nil
}
