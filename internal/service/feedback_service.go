package service

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/noah-isme/fitcoach-api/internal/models"
	"github.com/noah-isme/fitcoach-api/pkg/tone"
)

type feedbackStore interface {
	Publish(ctx context.Context, evt models.FeedbackEvent) error
	Latest(ctx context.Context, gymID string) (*models.FeedbackEvent, error)
	Subscribe(ctx context.Context, gymID string) (*redis.PubSub, error)
}

// FeedbackServiceConfig tunes kiosk feedback.
type FeedbackServiceConfig struct {
	Enabled        bool
	PublishTimeout time.Duration
}

// FeedbackService is the production FeedbackSink: it attaches the synthesised cue to each event
// and publishes it for the gym's kiosks.
type FeedbackService struct {
	store     feedbackStore
	logger    *zap.Logger
	cfg       FeedbackServiceConfig
	admitTone string
	denyTone  string
}

// NewFeedbackService renders both cues once and returns the sink.
func NewFeedbackService(store feedbackStore, logger *zap.Logger, cfg FeedbackServiceConfig) (*FeedbackService, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.PublishTimeout <= 0 {
		cfg.PublishTimeout = time.Second
	}
	admit, err := tone.WAV(tone.Admit)
	if err != nil {
		return nil, err
	}
	deny, err := tone.WAV(tone.Deny)
	if err != nil {
		return nil, err
	}
	return &FeedbackService{
		store:     store,
		logger:    logger,
		cfg:       cfg,
		admitTone: base64.StdEncoding.EncodeToString(admit),
		denyTone:  base64.StdEncoding.EncodeToString(deny),
	}, nil
}

// OnAdmit publishes the green flash with the high cue.
func (s *FeedbackService) OnAdmit(ctx context.Context, evt models.FeedbackEvent) {
	evt.ToneWAV = s.admitTone
	s.publish(ctx, evt)
}

// OnDeny publishes the red flash with the low cue.
func (s *FeedbackService) OnDeny(ctx context.Context, evt models.FeedbackEvent) {
	evt.ToneWAV = s.denyTone
	s.publish(ctx, evt)
}

func (s *FeedbackService) publish(ctx context.Context, evt models.FeedbackEvent) {
	if !s.cfg.Enabled || s.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, s.cfg.PublishTimeout)
	defer cancel()
	if err := s.store.Publish(ctx, evt); err != nil {
		s.logger.Warn("failed to publish check-in feedback", zap.String("gym_id", evt.GymID), zap.String("outcome", string(evt.Outcome)), zap.Error(err))
	}
}

// Latest returns the event currently flashing at the gym, or ErrCacheMiss once it has cleared.
func (s *FeedbackService) Latest(ctx context.Context, gymID string) (*models.FeedbackEvent, error) {
	return s.store.Latest(ctx, gymID)
}

// Stream delivers the gym's events until ctx is done. The returned channel is closed on exit.
func (s *FeedbackService) Stream(ctx context.Context, gymID string) (<-chan models.FeedbackEvent, error) {
	sub, err := s.store.Subscribe(ctx, gymID)
	if err != nil {
		return nil, err
	}
	out := make(chan models.FeedbackEvent)
	go func() {
		defer close(out)
		defer sub.Close()
		messages := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-messages:
				if !ok {
					return
				}
				var evt models.FeedbackEvent
				if err := json.Unmarshal([]byte(msg.Payload), &evt); err != nil {
					s.logger.Warn("dropping undecodable feedback event", zap.String("gym_id", gymID), zap.Error(err))
					continue
				}
				select {
				case out <- evt:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}
