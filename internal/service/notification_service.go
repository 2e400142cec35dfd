package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/fitcoach-api/internal/models"
	"github.com/noah-isme/fitcoach-api/pkg/jobs"
	"github.com/noah-isme/fitcoach-api/pkg/mailer"
)

const jobTypeCheckInFailed = "check_in_failed"

type staffNotificationRepository interface {
	ActiveStaff(ctx context.Context, gymID string, roles []models.UserRole) ([]models.GymStaff, error)
	CreateBatch(ctx context.Context, notifications []models.StaffNotification) error
}

// NotificationServiceConfig sizes the alert worker pool.
type NotificationServiceConfig struct {
	Workers    int
	BufferSize int
	MaxRetries int
	RetryDelay time.Duration
}

// NotificationService fans failed check-ins out to gym staff off the admission path.
type NotificationService struct {
	repo    staffNotificationRepository
	mail    mailer.Sender
	queue   *jobs.Queue
	metrics *MetricsService
	logger  *zap.Logger
	now     func() time.Time
}

// NotificationServiceParams groups constructor dependencies. Mail may be nil to disable email.
type NotificationServiceParams struct {
	Repo    staffNotificationRepository
	Mail    mailer.Sender
	Metrics *MetricsService
	Logger  *zap.Logger
	Config  NotificationServiceConfig
}

// NewNotificationService builds the service and its queue. Call Start before dispatching.
func NewNotificationService(params NotificationServiceParams) *NotificationService {
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &NotificationService{
		repo:    params.Repo,
		mail:    params.Mail,
		metrics: params.Metrics,
		logger:  logger,
		now:     time.Now,
	}
	s.queue = jobs.NewQueue("staff-alerts", s.handle, jobs.QueueConfig{
		Workers:    params.Config.Workers,
		BufferSize: params.Config.BufferSize,
		MaxRetries: params.Config.MaxRetries,
		RetryDelay: params.Config.RetryDelay,
		JobTimeout: 10 * time.Second,
		Logger:     logger,
	})
	return s
}

// Start launches the workers.
func (s *NotificationService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains the workers. Alerts still buffered are dropped.
func (s *NotificationService) Stop() {
	s.queue.Stop()
}

// DispatchCheckInFailure queues the alert and returns immediately. A full buffer is reported, not waited on.
func (s *NotificationService) DispatchCheckInFailure(_ context.Context, payload models.CheckInFailurePayload) error {
	return s.queue.TryEnqueue(jobs.Job{ID: uuid.NewString(), Type: jobTypeCheckInFailed, Payload: payload})
}

func (s *NotificationService) handle(ctx context.Context, job jobs.Job) error {
	switch job.Type {
	case jobTypeCheckInFailed:
		payload, ok := job.Payload.(models.CheckInFailurePayload)
		if !ok {
			s.logger.Error("unexpected alert payload", zap.String("job_id", job.ID), zap.Any("payload", job.Payload))
			return nil
		}
		return s.Deliver(ctx, payload)
	default:
		s.logger.Warn("unknown alert job type", zap.String("job_id", job.ID), zap.String("type", job.Type))
		return nil
	}
}

// Deliver writes one notification per active owner, manager and staff member, then emails them.
// Only the row insert is retried; email is attempted once.
func (s *NotificationService) Deliver(ctx context.Context, payload models.CheckInFailurePayload) error {
	staff, err := s.repo.ActiveStaff(ctx, payload.GymID, models.StaffAlertRoles)
	if err != nil {
		return err
	}
	if len(staff) == 0 {
		return nil
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode alert payload: %w", err)
	}
	title, message := failureCopy(payload)
	createdAt := s.now().UTC()
	notifications := make([]models.StaffNotification, 0, len(staff))
	recipients := make([]string, 0, len(staff))
	for _, member := range staff {
		notifications = append(notifications, models.StaffNotification{
			GymID:     payload.GymID,
			StaffID:   member.ID,
			Type:      models.NotificationTypeCheckInFailed,
			Title:     title,
			Message:   message,
			Data:      data,
			Urgent:    true,
			CreatedAt: createdAt,
		})
		if member.Email != "" {
			recipients = append(recipients, member.Email)
		}
	}

	err = s.repo.CreateBatch(ctx, notifications)
	s.metrics.RecordNotification("in_app", err)
	if err != nil {
		return err
	}

	s.email(ctx, payload, title, message, recipients)
	return nil
}

func (s *NotificationService) email(ctx context.Context, payload models.CheckInFailurePayload, title, message string, recipients []string) {
	if s.mail == nil || len(recipients) == 0 {
		return
	}
	var body strings.Builder
	body.WriteString("## " + title + "\n\n")
	body.WriteString(message + "\n\n")
	fmt.Fprintf(&body, "- **Member:** %s\n", payload.MemberName)
	if payload.MemberID != "" {
		fmt.Fprintf(&body, "- **Member ID:** `%s`\n", payload.MemberID)
	}
	if payload.MembershipStatus != "" {
		fmt.Fprintf(&body, "- **Membership:** %s\n", payload.MembershipStatus)
	}
	if payload.CreditsRemaining != nil {
		fmt.Fprintf(&body, "- **Credits remaining:** %d\n", *payload.CreditsRemaining)
	}

	tags := map[string]string{"type": models.NotificationTypeCheckInFailed}
	if payload.Code != "" {
		tags["code"] = payload.Code
	}
	// One message per address so staff never see each other's email.
	for _, recipient := range recipients {
		id, err := s.mail.Send(ctx, mailer.Message{
			To:       []string{recipient},
			Subject:  title + ": " + payload.MemberName,
			Markdown: body.String(),
			Tags:     tags,
		})
		s.metrics.RecordNotification("email", err)
		if err != nil {
			s.logger.Warn("failed to email check-in alert", zap.String("gym_id", payload.GymID), zap.Error(err))
			continue
		}
		s.logger.Debug("check-in alert emailed", zap.String("gym_id", payload.GymID), zap.String("message_id", id))
	}
}

func failureCopy(payload models.CheckInFailurePayload) (string, string) {
	name := payload.MemberName
	if name == "" {
		name = "Unknown"
	}
	return "Check-in failed", fmt.Sprintf("%s was denied entry: %s", name, payload.Reason)
}
