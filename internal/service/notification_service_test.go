package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/fitcoach-api/internal/models"
	"github.com/noah-isme/fitcoach-api/pkg/mailer"
)

type fakeStaffRepo struct {
	mu        sync.Mutex
	staff     []models.GymStaff
	staffErr  error
	createErr error
	roles     []models.UserRole
	batches   [][]models.StaffNotification
}

func (f *fakeStaffRepo) ActiveStaff(_ context.Context, _ string, roles []models.UserRole) ([]models.GymStaff, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.roles = roles
	return f.staff, f.staffErr
}

func (f *fakeStaffRepo) CreateBatch(_ context.Context, notifications []models.StaffNotification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	f.batches = append(f.batches, notifications)
	return nil
}

func (f *fakeStaffRepo) batchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.batches)
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []mailer.Message
	err  error
}

func (f *fakeMailer) Send(_ context.Context, msg mailer.Message) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, msg)
	return "msg-1", f.err
}

func failurePayload() models.CheckInFailurePayload {
	return models.CheckInFailurePayload{
		GymID: "gym-1", MemberID: "mem-1", MemberName: "Jane Doe",
		Reason: "Membership expired", Code: string(models.DenialExpired), MembershipStatus: "expired",
	}
}

func TestNotificationService_DeliverFansOutToStaff(t *testing.T) {
	repo := &fakeStaffRepo{staff: []models.GymStaff{
		{ID: "st-1", Role: models.RoleOwner, Email: "owner@example.com"},
		{ID: "st-2", Role: models.RoleManager},
		{ID: "st-3", Role: models.RoleStaff, Email: "desk@example.com"},
	}}
	mail := &fakeMailer{}
	svc := NewNotificationService(NotificationServiceParams{Repo: repo, Mail: mail})

	require.NoError(t, svc.Deliver(context.Background(), failurePayload()))

	assert.Equal(t, models.StaffAlertRoles, repo.roles)
	require.Len(t, repo.batches, 1)
	batch := repo.batches[0]
	require.Len(t, batch, 3)
	for _, n := range batch {
		assert.Equal(t, models.NotificationTypeCheckInFailed, n.Type)
		assert.True(t, n.Urgent)
		assert.Equal(t, "Jane Doe was denied entry: Membership expired", n.Message)
		var data models.CheckInFailurePayload
		require.NoError(t, json.Unmarshal(n.Data, &data))
		assert.Equal(t, "mem-1", data.MemberID)
		assert.Equal(t, "expired", data.MembershipStatus)
	}

	require.Len(t, mail.sent, 2)
	assert.Equal(t, []string{"owner@example.com"}, mail.sent[0].To)
	assert.Equal(t, []string{"desk@example.com"}, mail.sent[1].To)
	assert.Contains(t, mail.sent[0].Markdown, "**Member:** Jane Doe")
	assert.Equal(t, "membership_expired", mail.sent[0].Tags["code"])
}

func TestNotificationService_DeliverNoStaffIsNoop(t *testing.T) {
	repo := &fakeStaffRepo{}
	mail := &fakeMailer{}
	svc := NewNotificationService(NotificationServiceParams{Repo: repo, Mail: mail})

	require.NoError(t, svc.Deliver(context.Background(), failurePayload()))
	assert.Empty(t, repo.batches)
	assert.Empty(t, mail.sent)
}

func TestNotificationService_EmailFailureIsSwallowed(t *testing.T) {
	repo := &fakeStaffRepo{staff: []models.GymStaff{{ID: "st-1", Email: "owner@example.com"}}}
	svc := NewNotificationService(NotificationServiceParams{Repo: repo, Mail: &fakeMailer{err: errors.New("resend 500")}})

	require.NoError(t, svc.Deliver(context.Background(), failurePayload()))
	assert.Len(t, repo.batches, 1)
}

func TestNotificationService_InsertFailureIsReturnedForRetry(t *testing.T) {
	repo := &fakeStaffRepo{staff: []models.GymStaff{{ID: "st-1"}}, createErr: errors.New("db down")}
	svc := NewNotificationService(NotificationServiceParams{Repo: repo})

	assert.Error(t, svc.Deliver(context.Background(), failurePayload()))
}

func TestNotificationService_DispatchRunsThroughQueue(t *testing.T) {
	repo := &fakeStaffRepo{staff: []models.GymStaff{{ID: "st-1"}}}
	svc := NewNotificationService(NotificationServiceParams{Repo: repo, Config: NotificationServiceConfig{Workers: 1, BufferSize: 4}})

	assert.Error(t, svc.DispatchCheckInFailure(context.Background(), failurePayload()), "queue not started")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc.Start(ctx)
	defer svc.Stop()

	require.NoError(t, svc.DispatchCheckInFailure(context.Background(), failurePayload()))
	assert.Eventually(t, func() bool { return repo.batchCount() == 1 }, time.Second, 10*time.Millisecond)
}
