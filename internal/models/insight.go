package models

import "time"

// InsightSource tells callers whether an insight came from the summariser or the fallback.
type InsightSource string

const (
	InsightSourceModel    InsightSource = "model"
	InsightSourceFallback InsightSource = "fallback"
)

// ClientInsight is the structured coaching summary for one client.
type ClientInsight struct {
	ClientID        string        `json:"clientId"`
	Summary         string        `json:"summary"`
	Risks           []string      `json:"risks"`
	Recommendations []string      `json:"recommendations"`
	Source          InsightSource `json:"source"`
	GeneratedAt     time.Time     `json:"generatedAt"`
}
