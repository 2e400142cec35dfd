package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/fitcoach-api/internal/models"
)

// NotificationRepository reads gym staff rosters and writes staff notifications.
type NotificationRepository struct {
	db *sqlx.DB
}

// NewNotificationRepository instantiates the repository.
func NewNotificationRepository(db *sqlx.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// ActiveStaff lists active staff of a gym holding one of roles.
func (r *NotificationRepository) ActiveStaff(ctx context.Context, gymID string, roles []models.UserRole) ([]models.GymStaff, error) {
	names := make([]string, len(roles))
	for i, role := range roles {
		names[i] = string(role)
	}
	const query = `SELECT s.id, s.gym_id, s.user_id, s.role, COALESCE(u.email, '') AS email
        FROM gym_staff s LEFT JOIN users u ON u.id = s.user_id
        WHERE s.gym_id = $1 AND s.is_active = TRUE AND s.role = ANY($2)
        ORDER BY s.id`
	var staff []models.GymStaff
	if err := r.db.SelectContext(ctx, &staff, query, gymID, pq.Array(names)); err != nil {
		return nil, fmt.Errorf("list active staff for gym %s: %w", gymID, err)
	}
	return staff, nil
}

type notificationRow struct {
	ID        string    `db:"id"`
	GymID     string    `db:"gym_id"`
	StaffID   string    `db:"staff_id"`
	Type      string    `db:"type"`
	Title     string    `db:"title"`
	Message   string    `db:"message"`
	Data      string    `db:"data"`
	Urgent    bool      `db:"is_urgent"`
	CreatedAt time.Time `db:"created_at"`
}

// CreateBatch inserts all notifications in a single statement.
func (r *NotificationRepository) CreateBatch(ctx context.Context, notifications []models.StaffNotification) error {
	if len(notifications) == 0 {
		return nil
	}
	rows := make([]notificationRow, len(notifications))
	for i := range notifications {
		n := &notifications[i]
		if n.ID == "" {
			n.ID = uuid.NewString()
		}
		if n.CreatedAt.IsZero() {
			n.CreatedAt = time.Now().UTC()
		}
		data := string(n.Data)
		if data == "" {
			data = "{}"
		}
		rows[i] = notificationRow{
			ID: n.ID, GymID: n.GymID, StaffID: n.StaffID, Type: n.Type,
			Title: n.Title, Message: n.Message, Data: data, Urgent: n.Urgent, CreatedAt: n.CreatedAt,
		}
	}
	const query = `INSERT INTO staff_notifications (id, gym_id, staff_id, type, title, message, data, is_urgent, created_at)
        VALUES (:id, :gym_id, :staff_id, :type, :title, :message, CAST(:data AS JSONB), :is_urgent, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, rows); err != nil {
		return fmt.Errorf("insert staff notifications: %w", err)
	}
	return nil
}
