package dto

import "github.com/noah-isme/fitcoach-api/internal/models"

// EngagementResponse is the coach roster triage payload, lowest score first.
type EngagementResponse struct {
	CoachUserID  string                         `json:"coachUserId"`
	Clients      []models.ClientEngagementScore `json:"clients"`
	AverageScore int                            `json:"averageScore"`
	AtRiskCount  int                            `json:"atRiskCount"`
}
