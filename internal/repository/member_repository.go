package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/fitcoach-api/internal/models"
)

// MemberRepository reads gym members together with their memberships.
type MemberRepository struct {
	db *sqlx.DB
}

// NewMemberRepository instantiates the repository.
func NewMemberRepository(db *sqlx.DB) *MemberRepository {
	return &MemberRepository{db: db}
}

const memberForCheckInQuery = `SELECT m.id, m.gym_id, m.status, m.first_name, m.last_name, m.email,
        ms.id AS membership_id, ms.status AS membership_status, ms.end_date, ms.credits_remaining,
        p.id AS plan_id, p.name AS plan_name, p.unlimited_classes
        FROM members m
        LEFT JOIN memberships ms ON ms.member_id = m.id
        LEFT JOIN membership_plans p ON p.id = ms.plan_id
        WHERE m.id = $1 AND m.gym_id = $2
        ORDER BY ms.created_at ASC NULLS LAST, ms.id ASC`

type memberMembershipRow struct {
	ID               string              `db:"id"`
	GymID            string              `db:"gym_id"`
	Status           models.MemberStatus `db:"status"`
	FirstName        sql.NullString      `db:"first_name"`
	LastName         sql.NullString      `db:"last_name"`
	Email            sql.NullString      `db:"email"`
	MembershipID     sql.NullString      `db:"membership_id"`
	MembershipStatus sql.NullString      `db:"membership_status"`
	EndDate          sql.NullTime        `db:"end_date"`
	CreditsRemaining sql.NullInt64       `db:"credits_remaining"`
	PlanID           sql.NullString      `db:"plan_id"`
	PlanName         sql.NullString      `db:"plan_name"`
	UnlimitedClasses sql.NullBool        `db:"unlimited_classes"`
}

// FindForCheckIn loads a member scoped to gymID with every membership and its plan in one read.
// It returns sql.ErrNoRows when the member does not exist at that gym.
func (r *MemberRepository) FindForCheckIn(ctx context.Context, gymID, memberID string) (*models.Member, error) {
	var rows []memberMembershipRow
	if err := r.db.SelectContext(ctx, &rows, memberForCheckInQuery, memberID, gymID); err != nil {
		return nil, fmt.Errorf("query member %s: %w", memberID, err)
	}
	if len(rows) == 0 {
		return nil, sql.ErrNoRows
	}

	head := rows[0]
	member := &models.Member{
		ID:        head.ID,
		GymID:     head.GymID,
		Status:    head.Status,
		FirstName: head.FirstName.String,
		LastName:  head.LastName.String,
		Email:     head.Email.String,
	}
	for _, row := range rows {
		if !row.MembershipID.Valid {
			continue
		}
		ms := models.Membership{
			ID:       row.MembershipID.String,
			MemberID: row.ID,
			Status:   models.MembershipStatus(row.MembershipStatus.String),
			Plan: models.MembershipPlan{
				ID:               row.PlanID.String,
				Name:             row.PlanName.String,
				UnlimitedClasses: row.UnlimitedClasses.Valid && row.UnlimitedClasses.Bool,
			},
		}
		if row.EndDate.Valid {
			end := row.EndDate.Time
			ms.EndDate = &end
		}
		if row.CreditsRemaining.Valid {
			credits := int(row.CreditsRemaining.Int64)
			ms.CreditsRemaining = &credits
		}
		member.Memberships = append(member.Memberships, ms)
	}
	return member, nil
}
