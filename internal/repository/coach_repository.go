package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/fitcoach-api/internal/models"
)

// CoachRepository resolves coach profiles and their active rosters.
type CoachRepository struct {
	db *sqlx.DB
}

// NewCoachRepository instantiates the repository.
func NewCoachRepository(db *sqlx.DB) *CoachRepository {
	return &CoachRepository{db: db}
}

// FindByUserID returns the coach profile for an auth user, or sql.ErrNoRows.
func (r *CoachRepository) FindByUserID(ctx context.Context, userID string) (*models.CoachProfile, error) {
	var coach models.CoachProfile
	err := r.db.GetContext(ctx, &coach, `SELECT id, user_id, display_name FROM coach_profiles WHERE user_id = $1`, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("find coach by user %s: %w", userID, err)
	}
	return &coach, nil
}

// ActiveClients lists the coach's active clients; a non-empty clientID restricts to that client.
func (r *CoachRepository) ActiveClients(ctx context.Context, coachID, clientID string) ([]models.CoachClient, error) {
	query := `SELECT cc.client_id, cc.coach_id, COALESCE(p.full_name, '') AS full_name, p.avatar_url
        FROM coach_clients cc
        LEFT JOIN profiles p ON p.id = cc.client_id
        WHERE cc.coach_id = $1 AND cc.status = 'active'`
	args := []interface{}{coachID}
	if clientID != "" {
		args = append(args, clientID)
		query += " AND cc.client_id = $2"
	}
	query += " ORDER BY cc.client_id"

	var clients []models.CoachClient
	if err := r.db.SelectContext(ctx, &clients, query, args...); err != nil {
		return nil, fmt.Errorf("list active clients for coach %s: %w", coachID, err)
	}
	return clients, nil
}
