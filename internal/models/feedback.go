package models

import "time"

// FeedbackOutcome is the discrete admission event emitted to kiosks.
type FeedbackOutcome string

const (
	FeedbackAdmitted FeedbackOutcome = "admitted"
	FeedbackDenied   FeedbackOutcome = "denied"
)

// FlashColor is the visual cue a kiosk shows for FlashMillis before clearing itself.
type FlashColor string

const (
	FlashGreen FlashColor = "green"
	FlashRed   FlashColor = "red"
)

// FeedbackEvent is published for every terminal check-in path.
type FeedbackEvent struct {
	GymID       string          `json:"gymId"`
	MemberID    string          `json:"memberId,omitempty"`
	MemberName  string          `json:"memberName"`
	Outcome     FeedbackOutcome `json:"outcome"`
	Reason      string          `json:"reason,omitempty"`
	Flash       FlashColor      `json:"flash"`
	FlashMillis int64           `json:"flashMillis"`
	ToneWAV     string          `json:"toneWav,omitempty"` // base64
	OccurredAt  time.Time       `json:"occurredAt"`
}
