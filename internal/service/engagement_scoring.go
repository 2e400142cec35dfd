package service

import (
	"math"
	"time"

	"github.com/noah-isme/fitcoach-api/internal/models"
)

// Signal windows, looking back from the computation time.
const (
	SessionWindow        = 30 * 24 * time.Hour
	HabitWindow          = 7 * 24 * time.Hour
	MessageWindow        = 14 * 24 * time.Hour
	ProgressWindow       = 14 * 24 * time.Hour
	PlanAdherenceWindow  = 7 * 24 * time.Hour
	neutralScore         = 50
	expectedProgressLogs = 2
	expectedTrainingLogs = 3
	trendThreshold       = 5
)

// Composite weights; they sum to 1.
const (
	WeightSessionAttendance     = 0.25
	WeightHabitCompletion       = 0.25
	WeightMessageResponsiveness = 0.15
	WeightProgressLogging       = 0.20
	WeightPlanAdherence         = 0.15
)

type responseBand struct {
	below time.Duration
	score int
}

var responseBands = []responseBand{
	{2 * time.Hour, 100},
	{6 * time.Hour, 80},
	{12 * time.Hour, 60},
	{24 * time.Hour, 40},
	{48 * time.Hour, 20},
}

// SessionAttendanceScore is completed over scheduled sessions; neutral without any scheduled.
func SessionAttendanceScore(counts models.SessionCounts) int {
	if counts.Total <= 0 {
		return neutralScore
	}
	return percent(float64(counts.Completed), float64(counts.Total))
}

// HabitCompletionScore is completed over target counts; neutral without logs or targets.
func HabitCompletionScore(totals models.HabitTotals) int {
	if totals.Logs <= 0 || totals.Target <= 0 {
		return neutralScore
	}
	return percent(float64(totals.Completed), float64(totals.Target))
}

// MessageResponsivenessScore bands the client's mean reply latency. A reply is a client message
// immediately following a message from anyone else. Messages must be in chronological order.
func MessageResponsivenessScore(messages []models.ThreadMessage, clientID string) int {
	if len(messages) < 2 {
		return neutralScore
	}
	var total float64
	var replies int
	for i := 1; i < len(messages); i++ {
		prev, cur := messages[i-1], messages[i]
		if cur.SenderID != clientID || prev.SenderID == clientID {
			continue
		}
		total += cur.CreatedAt.Sub(prev.CreatedAt).Hours()
		replies++
	}
	if replies == 0 {
		return neutralScore
	}
	return ResponseTimeScore(total / float64(replies))
}

// ResponseTimeScore maps an average latency in hours onto the fixed bands.
func ResponseTimeScore(hours float64) int {
	for _, band := range responseBands {
		if hours < band.below.Hours() {
			return band.score
		}
	}
	return 10
}

// ProgressLoggingScore compares entries against two per window. No entries scores zero.
func ProgressLoggingScore(entries int) int {
	return percent(float64(entries), expectedProgressLogs)
}

// PlanAdherenceScore compares training logs against three per week; neutral without logs.
func PlanAdherenceScore(logs int) int {
	if logs <= 0 {
		return neutralScore
	}
	return percent(float64(logs), expectedTrainingLogs)
}

// OverallScore weights the already-rounded sub-scores and rounds once more.
func OverallScore(b models.EngagementBreakdown) int {
	sum := float64(b.SessionAttendance)*WeightSessionAttendance +
		float64(b.HabitCompletion)*WeightHabitCompletion +
		float64(b.MessageResponsiveness)*WeightMessageResponsiveness +
		float64(b.ProgressLogging)*WeightProgressLogging +
		float64(b.PlanAdherence)*WeightPlanAdherence
	return clampScore(int(math.Round(sum)))
}

// TrendFor labels a week-over-week change.
func TrendFor(change int) models.EngagementTrend {
	switch {
	case change > trendThreshold:
		return models.TrendUp
	case change < -trendThreshold:
		return models.TrendDown
	default:
		return models.TrendStable
	}
}

func percent(part, whole float64) int {
	if whole <= 0 {
		return 0
	}
	return clampScore(int(math.Round(math.Min(part/whole, 1) * 100)))
}

func clampScore(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
