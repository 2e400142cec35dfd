package models

import "time"

// EngagementTrend labels the direction of the week-over-week change.
type EngagementTrend string

const (
	TrendUp     EngagementTrend = "up"
	TrendDown   EngagementTrend = "down"
	TrendStable EngagementTrend = "stable"
)

// CoachProfile links an auth user to a coach.
type CoachProfile struct {
	ID     string `db:"id" json:"id"`
	UserID string `db:"user_id" json:"user_id"`
	Name   string `db:"display_name" json:"display_name"`
}

// CoachClient is an active coach-client relationship with the client's display fields.
type CoachClient struct {
	ClientID  string  `db:"client_id" json:"client_id"`
	CoachID   string  `db:"coach_id" json:"coach_id"`
	Name      string  `db:"full_name" json:"full_name"`
	AvatarURL *string `db:"avatar_url" json:"avatar_url,omitempty"`
}

// EngagementBreakdown holds the five sub-scores, each an integer in [0,100].
type EngagementBreakdown struct {
	SessionAttendance     int `json:"sessionAttendance"`
	HabitCompletion       int `json:"habitCompletion"`
	MessageResponsiveness int `json:"messageResponsiveness"`
	ProgressLogging       int `json:"progressLogging"`
	PlanAdherence         int `json:"planAdherence"`
}

// ClientEngagementRecord is the persisted row, unique per (client_id, coach_id).
type ClientEngagementRecord struct {
	ClientID                   string    `db:"client_id"`
	CoachID                    string    `db:"coach_id"`
	OverallScore               int       `db:"overall_score"`
	SessionAttendanceScore     int       `db:"session_attendance_score"`
	HabitCompletionScore       int       `db:"habit_completion_score"`
	MessageResponsivenessScore int       `db:"message_responsiveness_score"`
	ProgressLoggingScore       int       `db:"progress_logging_score"`
	PlanAdherenceScore         int       `db:"plan_adherence_score"`
	WeekOverWeekChange         int       `db:"week_over_week_change"`
	UpdatedAt                  time.Time `db:"updated_at"`
}

// ClientEngagementScore is the scorer's output for one client.
type ClientEngagementScore struct {
	ClientID           string              `json:"clientId"`
	Name               string              `json:"name"`
	AvatarURL          *string             `json:"avatarUrl,omitempty"`
	OverallScore       int                 `json:"overallScore"`
	Breakdown          EngagementBreakdown `json:"breakdown"`
	WeekOverWeekChange int                 `json:"weekOverWeekChange"`
	Trend              EngagementTrend     `json:"trend"`
	LastUpdated        time.Time           `json:"lastUpdated"`
}

// Record converts the score into its persisted shape.
func (s ClientEngagementScore) Record(coachID string) ClientEngagementRecord {
	return ClientEngagementRecord{
		ClientID:                   s.ClientID,
		CoachID:                    coachID,
		OverallScore:               s.OverallScore,
		SessionAttendanceScore:     s.Breakdown.SessionAttendance,
		HabitCompletionScore:       s.Breakdown.HabitCompletion,
		MessageResponsivenessScore: s.Breakdown.MessageResponsiveness,
		ProgressLoggingScore:       s.Breakdown.ProgressLogging,
		PlanAdherenceScore:         s.Breakdown.PlanAdherence,
		WeekOverWeekChange:         s.WeekOverWeekChange,
		UpdatedAt:                  s.LastUpdated,
	}
}

// SessionCounts aggregates scheduled sessions in a window.
type SessionCounts struct {
	Total     int `db:"total"`
	Completed int `db:"completed"`
}

// HabitTotals aggregates habit logs in a window.
type HabitTotals struct {
	Logs      int `db:"logs"`
	Completed int `db:"completed"`
	Target    int `db:"target"`
}

// ThreadMessage is a coach/client message reduced to what responsiveness needs.
type ThreadMessage struct {
	SenderID  string    `db:"sender_id"`
	CreatedAt time.Time `db:"created_at"`
}
