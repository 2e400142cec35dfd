package models

import "time"

// CheckInMethod records how the member was identified at the desk.
type CheckInMethod string

const (
	CheckInMethodQRCode CheckInMethod = "qr_code"
	CheckInMethodManual CheckInMethod = "manual"
	CheckInMethodOther  CheckInMethod = "other"
)

// Valid reports whether the method is one of the known values.
func (m CheckInMethod) Valid() bool {
	switch m {
	case CheckInMethodQRCode, CheckInMethodManual, CheckInMethodOther:
		return true
	}
	return false
}

// CheckInRecord is an immutable audit row created only on admission.
type CheckInRecord struct {
	ID        string        `db:"id" json:"id"`
	GymID     string        `db:"gym_id" json:"gym_id"`
	MemberID  string        `db:"member_id" json:"member_id"`
	Method    CheckInMethod `db:"method" json:"method"`
	CreatedAt time.Time     `db:"created_at" json:"created_at"`
}

// CheckInHistoryEntry joins a record with the member's name for listings and exports.
type CheckInHistoryEntry struct {
	CheckInRecord
	FirstName string `db:"first_name" json:"first_name"`
	LastName  string `db:"last_name" json:"last_name"`
}

// CheckInFilter narrows a gym's check-in history.
type CheckInFilter struct {
	GymID    string
	MemberID string
	From     *time.Time
	To       *time.Time
	Page     int
	PageSize int
}

// CheckInHourCount is one bucket of the daily stats histogram.
type CheckInHourCount struct {
	Hour  int `db:"hour" json:"hour"`
	Count int `db:"count" json:"count"`
}

// DenialCode is the machine-readable reason for a denied verdict.
type DenialCode string

const (
	DenialNone              DenialCode = ""
	DenialMemberNotFound    DenialCode = "member_not_found"
	DenialStatusInvalid     DenialCode = "status_invalid"
	DenialNoMembership      DenialCode = "no_active_membership"
	DenialExpired           DenialCode = "membership_expired"
	DenialNoCredits         DenialCode = "no_credits"
	DenialPersistenceFailed DenialCode = "persistence_failed"
	DenialTimeout           DenialCode = "timeout"
)

// Membership status labels carried by verdicts in addition to MemberStatus values.
const (
	VerdictStatusNoMembership = "no_membership"
	VerdictStatusExpired      = "expired"
	VerdictStatusActive       = "active"
)

// CheckInVerdict is the transient result of one admission evaluation. It is never persisted.
type CheckInVerdict struct {
	Success          bool       `json:"success"`
	MemberID         string     `json:"memberId,omitempty"`
	MemberName       string     `json:"memberName"`
	Reason           *string    `json:"reason,omitempty"`
	Code             DenialCode `json:"code,omitempty"`
	MembershipStatus string     `json:"membershipStatus,omitempty"`
	CreditsRemaining *int       `json:"creditsRemaining,omitempty"`
	CheckInID        string     `json:"checkInId,omitempty"`
}

// ReasonText returns the denial reason or an empty string on success.
func (v CheckInVerdict) ReasonText() string {
	if v.Reason == nil {
		return ""
	}
	return *v.Reason
}
