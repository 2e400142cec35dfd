package models

import (
	"github.com/golang-jwt/jwt/v5"
)

// UserRole represents the available roles for the RBAC system.
type UserRole string

const (
	RoleOwner   UserRole = "owner"
	RoleManager UserRole = "manager"
	RoleStaff   UserRole = "staff"
	RoleCoach   UserRole = "coach"
	RoleClient  UserRole = "client"
)

// StaffAlertRoles lists the gym roles that receive failed check-in alerts.
var StaffAlertRoles = []UserRole{RoleOwner, RoleManager, RoleStaff}

// JWTClaims represents the JWT payload for access tokens.
// GymID is set for gym staff and scopes check-in endpoints.
type JWTClaims struct {
	UserID   string   `json:"user_id"`
	Role     UserRole `json:"role"`
	Email    string   `json:"email"`
	FullName string   `json:"full_name"`
	GymID    string   `json:"gym_id,omitempty"`
	jwt.RegisteredClaims
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
