package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/fitcoach-api/internal/models"
	"github.com/noah-isme/fitcoach-api/internal/repository"
)

// Denial reasons shown to the front desk.
const (
	ReasonMemberNotFound = "Member not found"
	ReasonNoMembership   = "No active membership"
	ReasonExpired        = "Membership expired"
	ReasonNoCredits      = "No credits remaining"
	ReasonTimedOut       = "Check-in timed out"
)

type memberLookup interface {
	FindForCheckIn(ctx context.Context, gymID, memberID string) (*models.Member, error)
}

type checkInWriter interface {
	Admit(ctx context.Context, record *models.CheckInRecord, debit *repository.CreditDebit) error
}

// FeedbackSink receives the discrete admission event for every terminal path.
// Implementations must not block the caller for long and must swallow their own failures.
type FeedbackSink interface {
	OnAdmit(ctx context.Context, evt models.FeedbackEvent)
	OnDeny(ctx context.Context, evt models.FeedbackEvent)
}

// FailureDispatcher hands a denied check-in to the staff alert pipeline without waiting for delivery.
type FailureDispatcher interface {
	DispatchCheckInFailure(ctx context.Context, payload models.CheckInFailurePayload) error
}

// CheckInServiceConfig tunes the admission pipeline.
type CheckInServiceConfig struct {
	Timeout               time.Duration
	AtomicCreditDecrement bool
	FlashDuration         time.Duration
}

// CheckInService evaluates admissions. Use ForGym to obtain a validator bound to one gym.
type CheckInService struct {
	members  memberLookup
	checkIns checkInWriter
	history  checkInHistory
	feedback FeedbackSink
	alerts   FailureDispatcher
	metrics  *MetricsService
	logger   *zap.Logger
	now      func() time.Time
	cfg      CheckInServiceConfig
}

// CheckInServiceParams groups constructor dependencies.
type CheckInServiceParams struct {
	Members  memberLookup
	CheckIns checkInWriter
	History  checkInHistory
	Feedback FeedbackSink
	Alerts   FailureDispatcher
	Metrics  *MetricsService
	Logger   *zap.Logger
	Config   CheckInServiceConfig
}

// NewCheckInService constructs the admission service with defaults.
func NewCheckInService(params CheckInServiceParams) *CheckInService {
	cfg := params.Config
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.FlashDuration <= 0 {
		cfg.FlashDuration = time.Second
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CheckInService{
		members:  params.Members,
		checkIns: params.CheckIns,
		history:  params.History,
		feedback: params.Feedback,
		alerts:   params.Alerts,
		metrics:  params.Metrics,
		logger:   logger,
		now:      time.Now,
		cfg:      cfg,
	}
}

// ForGym returns a validator bound to gymID.
func (s *CheckInService) ForGym(gymID string) *CheckInValidator {
	return &CheckInValidator{svc: s, gymID: gymID}
}

// CheckInValidator runs the admission pipeline for a single gym.
type CheckInValidator struct {
	svc   *CheckInService
	gymID string
}

// GymID returns the gym this validator is bound to.
func (v *CheckInValidator) GymID() string {
	return v.gymID
}

// ValidateAndCheckIn admits or denies a scanned member. Denials are verdicts, never errors.
func (v *CheckInValidator) ValidateAndCheckIn(ctx context.Context, memberID string) models.CheckInVerdict {
	return v.ValidateAndCheckInWith(ctx, memberID, models.CheckInMethodQRCode)
}

// ValidateAndCheckInWith is ValidateAndCheckIn with an explicit identification method.
func (v *CheckInValidator) ValidateAndCheckInWith(ctx context.Context, memberID string, method models.CheckInMethod) models.CheckInVerdict {
	s := v.svc
	start := time.Now()
	if !method.Valid() {
		method = models.CheckInMethodQRCode
	}

	pipelineCtx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	verdict := v.evaluate(pipelineCtx, strings.TrimSpace(memberID), method)
	cancel()

	// Side effects outlive the pipeline deadline and the caller's cancellation.
	effectsCtx := context.WithoutCancel(ctx)
	v.emitFeedback(effectsCtx, verdict)
	if !verdict.Success {
		v.dispatchFailure(effectsCtx, verdict)
	}

	s.metrics.ObserveCheckIn(verdict.Success, string(verdict.Code), time.Since(start))
	s.logger.Info("check-in evaluated",
		zap.String("gym_id", v.gymID),
		zap.String("member_id", verdict.MemberID),
		zap.Bool("success", verdict.Success),
		zap.String("code", string(verdict.Code)),
		zap.Duration("duration", time.Since(start)),
	)
	return verdict
}

func (v *CheckInValidator) evaluate(ctx context.Context, memberID string, method models.CheckInMethod) models.CheckInVerdict {
	s := v.svc
	if memberID == "" {
		return deny(memberID, "Unknown", models.DenialMemberNotFound, ReasonMemberNotFound, "", nil)
	}

	member, err := s.members.FindForCheckIn(ctx, v.gymID, memberID)
	if err != nil {
		if isDeadline(ctx, err) {
			return deny(memberID, "Unknown", models.DenialTimeout, ReasonTimedOut, "", nil)
		}
		if !errors.Is(err, sql.ErrNoRows) {
			s.logger.Warn("member lookup failed, denying", zap.String("gym_id", v.gymID), zap.String("member_id", memberID), zap.Error(err))
		}
		return deny(memberID, "Unknown", models.DenialMemberNotFound, ReasonMemberNotFound, "", nil)
	}
	if member == nil {
		return deny(memberID, "Unknown", models.DenialMemberNotFound, ReasonMemberNotFound, "", nil)
	}

	name := member.DisplayName()
	if member.Status != models.MemberStatusActive {
		return deny(memberID, name, models.DenialStatusInvalid, fmt.Sprintf("Member status: %s", member.Status), string(member.Status), nil)
	}

	membership := member.ActiveMembership()
	if membership == nil {
		return deny(memberID, name, models.DenialNoMembership, ReasonNoMembership, models.VerdictStatusNoMembership, nil)
	}

	if membership.ExpiredAt(s.now()) {
		return deny(memberID, name, models.DenialExpired, ReasonExpired, models.VerdictStatusExpired, nil)
	}

	var debit *repository.CreditDebit
	if !membership.Plan.UnlimitedClasses {
		if membership.Credits() <= 0 {
			return deny(memberID, name, models.DenialNoCredits, ReasonNoCredits, models.VerdictStatusActive, intPtr(0))
		}
		// Without the conditional guard two concurrent scans at one credit can both pass the check above.
		debit = &repository.CreditDebit{MembershipID: membership.ID, Conditional: s.cfg.AtomicCreditDecrement}
	}

	record := &models.CheckInRecord{GymID: v.gymID, MemberID: member.ID, Method: method, CreatedAt: s.now().UTC()}
	if err := s.checkIns.Admit(ctx, record, debit); err != nil {
		switch {
		case errors.Is(err, repository.ErrCreditsExhausted):
			return deny(memberID, name, models.DenialNoCredits, ReasonNoCredits, models.VerdictStatusActive, intPtr(0))
		case isDeadline(ctx, err):
			return deny(memberID, name, models.DenialTimeout, ReasonTimedOut, models.VerdictStatusActive, nil)
		default:
			s.logger.Error("check-in persistence failed", zap.String("gym_id", v.gymID), zap.String("member_id", memberID), zap.Error(err))
			return deny(memberID, name, models.DenialPersistenceFailed, err.Error(), models.VerdictStatusActive, nil)
		}
	}

	return models.CheckInVerdict{
		Success:          true,
		MemberID:         member.ID,
		MemberName:       name,
		MembershipStatus: models.VerdictStatusActive,
		CreditsRemaining: intPtr(membership.Credits()),
		CheckInID:        record.ID,
	}
}

func (v *CheckInValidator) emitFeedback(ctx context.Context, verdict models.CheckInVerdict) {
	sink := v.svc.feedback
	if sink == nil {
		return
	}
	evt := models.FeedbackEvent{
		GymID:       v.gymID,
		MemberID:    verdict.MemberID,
		MemberName:  verdict.MemberName,
		FlashMillis: v.svc.cfg.FlashDuration.Milliseconds(),
		OccurredAt:  v.svc.now().UTC(),
	}
	if verdict.Success {
		evt.Outcome = models.FeedbackAdmitted
		evt.Flash = models.FlashGreen
		sink.OnAdmit(ctx, evt)
		return
	}
	evt.Outcome = models.FeedbackDenied
	evt.Flash = models.FlashRed
	evt.Reason = verdict.ReasonText()
	sink.OnDeny(ctx, evt)
}

func (v *CheckInValidator) dispatchFailure(ctx context.Context, verdict models.CheckInVerdict) {
	alerts := v.svc.alerts
	if alerts == nil {
		return
	}
	payload := models.CheckInFailurePayload{
		GymID:            v.gymID,
		MemberID:         verdict.MemberID,
		MemberName:       verdict.MemberName,
		Reason:           verdict.ReasonText(),
		Code:             string(verdict.Code),
		MembershipStatus: verdict.MembershipStatus,
		CreditsRemaining: verdict.CreditsRemaining,
	}
	if err := alerts.DispatchCheckInFailure(ctx, payload); err != nil {
		v.svc.logger.Warn("failed to dispatch check-in failure alert", zap.String("gym_id", v.gymID), zap.String("member_id", verdict.MemberID), zap.Error(err))
	}
}

func deny(memberID, name string, code models.DenialCode, reason, membershipStatus string, credits *int) models.CheckInVerdict {
	return models.CheckInVerdict{
		Success:          false,
		MemberID:         memberID,
		MemberName:       name,
		Reason:           &reason,
		Code:             code,
		MembershipStatus: membershipStatus,
		CreditsRemaining: credits,
	}
}

func isDeadline(ctx context.Context, err error) bool {
	return errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded)
}

func intPtr(v int) *int {
	return &v
}
