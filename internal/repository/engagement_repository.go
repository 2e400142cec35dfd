package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/fitcoach-api/internal/models"
)

// EngagementRepository serves the windowed signal reads and the per-(client, coach) score row.
type EngagementRepository struct {
	db *sqlx.DB
}

// NewEngagementRepository instantiates the repository.
func NewEngagementRepository(db *sqlx.DB) *EngagementRepository {
	return &EngagementRepository{db: db}
}

// SessionCounts counts sessions scheduled between coach and client since the given time.
func (r *EngagementRepository) SessionCounts(ctx context.Context, clientID, coachID string, since time.Time) (models.SessionCounts, error) {
	const query = `SELECT COUNT(*) AS total,
        COUNT(*) FILTER (WHERE status = 'completed') AS completed
        FROM training_sessions
        WHERE client_id = $1 AND coach_id = $2 AND scheduled_at >= $3`
	var counts models.SessionCounts
	if err := r.db.GetContext(ctx, &counts, query, clientID, coachID, since); err != nil {
		return models.SessionCounts{}, fmt.Errorf("session counts for %s: %w", clientID, err)
	}
	return counts, nil
}

// HabitTotals sums habit log completion against target since the given date.
func (r *EngagementRepository) HabitTotals(ctx context.Context, clientID string, since time.Time) (models.HabitTotals, error) {
	const query = `SELECT COUNT(*) AS logs,
        COALESCE(SUM(completed_count), 0) AS completed,
        COALESCE(SUM(target_count), 0) AS target
        FROM habit_logs
        WHERE client_id = $1 AND log_date >= $2`
	var totals models.HabitTotals
	if err := r.db.GetContext(ctx, &totals, query, clientID, since); err != nil {
		return models.HabitTotals{}, fmt.Errorf("habit totals for %s: %w", clientID, err)
	}
	return totals, nil
}

// ThreadMessages returns messages exchanged between coach and client since the given time, oldest first.
func (r *EngagementRepository) ThreadMessages(ctx context.Context, clientID, coachUserID string, since time.Time) ([]models.ThreadMessage, error) {
	const query = `SELECT sender_id, created_at FROM messages
        WHERE ((sender_id = $1 AND recipient_id = $2) OR (sender_id = $2 AND recipient_id = $1))
        AND created_at >= $3
        ORDER BY created_at ASC`
	var messages []models.ThreadMessage
	if err := r.db.SelectContext(ctx, &messages, query, clientID, coachUserID, since); err != nil {
		return nil, fmt.Errorf("thread messages for %s: %w", clientID, err)
	}
	return messages, nil
}

// ProgressEntryCount counts progress entries logged by the client since the given time.
func (r *EngagementRepository) ProgressEntryCount(ctx context.Context, clientID string, since time.Time) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM progress_entries WHERE client_id = $1 AND recorded_at >= $2`, clientID, since); err != nil {
		return 0, fmt.Errorf("progress entries for %s: %w", clientID, err)
	}
	return count, nil
}

// TrainingLogCount counts training-log entries since the given time.
func (r *EngagementRepository) TrainingLogCount(ctx context.Context, clientID string, since time.Time) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM training_logs WHERE client_id = $1 AND logged_at >= $2`, clientID, since); err != nil {
		return 0, fmt.Errorf("training logs for %s: %w", clientID, err)
	}
	return count, nil
}

// PreviousOverallScore returns the stored overall score for the pair, or nil when none exists.
func (r *EngagementRepository) PreviousOverallScore(ctx context.Context, clientID, coachID string) (*int, error) {
	var score int
	err := r.db.GetContext(ctx, &score, `SELECT overall_score FROM client_engagement_scores WHERE client_id = $1 AND coach_id = $2`, clientID, coachID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("previous engagement score for %s: %w", clientID, err)
	}
	return &score, nil
}

// Upsert replaces the full score row for (client_id, coach_id). Last writer wins.
func (r *EngagementRepository) Upsert(ctx context.Context, record models.ClientEngagementRecord) error {
	const query = `INSERT INTO client_engagement_scores (client_id, coach_id, overall_score,
        session_attendance_score, habit_completion_score, message_responsiveness_score,
        progress_logging_score, plan_adherence_score, week_over_week_change, updated_at)
        VALUES (:client_id, :coach_id, :overall_score, :session_attendance_score, :habit_completion_score,
        :message_responsiveness_score, :progress_logging_score, :plan_adherence_score, :week_over_week_change, :updated_at)
        ON CONFLICT (client_id, coach_id) DO UPDATE SET
        overall_score = EXCLUDED.overall_score,
        session_attendance_score = EXCLUDED.session_attendance_score,
        habit_completion_score = EXCLUDED.habit_completion_score,
        message_responsiveness_score = EXCLUDED.message_responsiveness_score,
        progress_logging_score = EXCLUDED.progress_logging_score,
        plan_adherence_score = EXCLUDED.plan_adherence_score,
        week_over_week_change = EXCLUDED.week_over_week_change,
        updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, record); err != nil {
		return fmt.Errorf("upsert engagement score for %s: %w", record.ClientID, err)
	}
	return nil
}
