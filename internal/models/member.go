package models

import (
	"strings"
	"time"
)

// MemberStatus is the lifecycle status of a gym member. Members are never hard-deleted.
type MemberStatus string

const (
	MemberStatusActive    MemberStatus = "active"
	MemberStatusInactive  MemberStatus = "inactive"
	MemberStatusSuspended MemberStatus = "suspended"
	MemberStatusBanned    MemberStatus = "banned"
)

// MembershipStatus is the status of one subscription instance.
type MembershipStatus string

const (
	MembershipStatusActive    MembershipStatus = "active"
	MembershipStatusExpired   MembershipStatus = "expired"
	MembershipStatusCancelled MembershipStatus = "cancelled"
	MembershipStatusPaused    MembershipStatus = "paused"
)

// Member is a gym's customer.
type Member struct {
	ID          string       `db:"id" json:"id"`
	GymID       string       `db:"gym_id" json:"gym_id"`
	Status      MemberStatus `db:"status" json:"status"`
	FirstName   string       `db:"first_name" json:"first_name"`
	LastName    string       `db:"last_name" json:"last_name"`
	Email       string       `db:"email" json:"email"`
	Memberships []Membership `db:"-" json:"memberships"`
}

// DisplayName renders the member's name for kiosks and alerts.
func (m *Member) DisplayName() string {
	if m == nil {
		return "Unknown"
	}
	name := strings.TrimSpace(strings.TrimSpace(m.FirstName) + " " + strings.TrimSpace(m.LastName))
	if name != "" {
		return name
	}
	if m.Email != "" {
		return m.Email
	}
	return "Unknown"
}

// ActiveMembership returns the first membership with status active, in load order.
func (m *Member) ActiveMembership() *Membership {
	if m == nil {
		return nil
	}
	for i := range m.Memberships {
		if m.Memberships[i].Status == MembershipStatusActive {
			return &m.Memberships[i]
		}
	}
	return nil
}

// MembershipPlan carries the plan attributes relevant to admission.
type MembershipPlan struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	UnlimitedClasses bool   `json:"unlimited_classes"`
}

// Membership is a member's subscription. A nil EndDate never expires; CreditsRemaining is only
// meaningful when the plan is not unlimited.
type Membership struct {
	ID               string           `json:"id"`
	MemberID         string           `json:"member_id"`
	Status           MembershipStatus `json:"status"`
	EndDate          *time.Time       `json:"end_date,omitempty"`
	CreditsRemaining *int             `json:"credits_remaining,omitempty"`
	Plan             MembershipPlan   `json:"plan"`
}

// ExpiredAt reports whether the membership ended strictly before now.
func (m Membership) ExpiredAt(now time.Time) bool {
	return m.EndDate != nil && m.EndDate.Before(now)
}

// Credits returns the remaining credits, treating null as zero.
func (m Membership) Credits() int {
	if m.CreditsRemaining == nil {
		return 0
	}
	return *m.CreditsRemaining
}
