package dto

import "github.com/noah-isme/fitcoach-api/internal/models"

// CheckInRequest is the scan/lookup payload posted by the front desk.
type CheckInRequest struct {
	MemberID string               `json:"memberId" validate:"required,max=64"`
	Method   models.CheckInMethod `json:"method" validate:"omitempty,oneof=qr_code manual other"`
}

// CheckInResponse wraps the verdict with a toast message for the desk UI.
type CheckInResponse struct {
	models.CheckInVerdict
	Message string `json:"message"`
}

// CheckInStatsResponse is the daily histogram of admissions for a gym.
type CheckInStatsResponse struct {
	GymID  string                    `json:"gymId"`
	Date   string                    `json:"date"`
	Total  int                       `json:"total"`
	ByHour []models.CheckInHourCount `json:"byHour"`
}
