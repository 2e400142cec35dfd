package models

import (
	"encoding/json"
	"time"
)

// NotificationTypeCheckInFailed tags staff alerts raised by a denied check-in.
const NotificationTypeCheckInFailed = "check_in_failed"

// GymStaff is an active staff assignment at a gym.
type GymStaff struct {
	ID     string   `db:"id" json:"id"`
	GymID  string   `db:"gym_id" json:"gym_id"`
	UserID string   `db:"user_id" json:"user_id"`
	Role   UserRole `db:"role" json:"role"`
	Email  string   `db:"email" json:"email"`
}

// StaffNotification is one alert row per staff member. Read state is owned by the staff UI.
type StaffNotification struct {
	ID        string          `db:"id" json:"id"`
	GymID     string          `db:"gym_id" json:"gym_id"`
	StaffID   string          `db:"staff_id" json:"staff_id"`
	Type      string          `db:"type" json:"type"`
	Title     string          `db:"title" json:"title"`
	Message   string          `db:"message" json:"message"`
	Data      json.RawMessage `db:"data" json:"data"`
	Urgent    bool            `db:"is_urgent" json:"is_urgent"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
}

// CheckInFailurePayload is the structured data attached to a failed check-in alert.
type CheckInFailurePayload struct {
	GymID            string `json:"gym_id"`
	MemberID         string `json:"member_id"`
	MemberName       string `json:"member_name"`
	Reason           string `json:"reason"`
	Code             string `json:"code"`
	MembershipStatus string `json:"membership_status"`
	CreditsRemaining *int   `json:"credits_remaining"`
}
