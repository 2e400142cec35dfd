package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/fitcoach-api/internal/models"
)

// ErrCreditsExhausted is returned by Admit when a conditional debit finds no credit left.
var ErrCreditsExhausted = errors.New("membership has no credits left")

// CreditDebit describes the credit consumed by an admission.
// Conditional guards the decrement with credits_remaining > 0 on the membership row.
type CreditDebit struct {
	MembershipID string
	Conditional  bool
}

// CheckInRepository persists check-in records and serves history queries.
type CheckInRepository struct {
	db *sqlx.DB
}

// NewCheckInRepository instantiates the repository.
func NewCheckInRepository(db *sqlx.DB) *CheckInRepository {
	return &CheckInRepository{db: db}
}

// Admit inserts the check-in record and, when debit is set, consumes one credit in the same transaction.
func (r *CheckInRepository) Admit(ctx context.Context, record *models.CheckInRecord, debit *CreditDebit) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin check-in: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO check_ins (id, gym_id, member_id, method, created_at) VALUES ($1, $2, $3, $4, $5)`,
		record.ID, record.GymID, record.MemberID, record.Method, record.CreatedAt,
	); err != nil {
		return fmt.Errorf("insert check-in: %w", err)
	}

	if debit != nil {
		query := `UPDATE memberships SET credits_remaining = COALESCE(credits_remaining, 0) - 1, updated_at = $2 WHERE id = $1`
		if debit.Conditional {
			query = `UPDATE memberships SET credits_remaining = credits_remaining - 1, updated_at = $2 WHERE id = $1 AND credits_remaining > 0`
		}
		res, err := tx.ExecContext(ctx, query, debit.MembershipID, record.CreatedAt)
		if err != nil {
			return fmt.Errorf("debit membership credit: %w", err)
		}
		if debit.Conditional {
			affected, err := res.RowsAffected()
			if err != nil {
				return fmt.Errorf("debit membership credit: %w", err)
			}
			if affected == 0 {
				return ErrCreditsExhausted
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit check-in: %w", err)
	}
	committed = true
	return nil
}

// List returns a page of a gym's check-ins, newest first, plus the total count.
func (r *CheckInRepository) List(ctx context.Context, filter models.CheckInFilter) ([]models.CheckInHistoryEntry, int, error) {
	var where strings.Builder
	where.WriteString(" FROM check_ins c JOIN members m ON m.id = c.member_id WHERE c.gym_id = $1")
	args := []interface{}{filter.GymID}
	if filter.MemberID != "" {
		args = append(args, filter.MemberID)
		where.WriteString(fmt.Sprintf(" AND c.member_id = $%d", len(args)))
	}
	if filter.From != nil {
		args = append(args, *filter.From)
		where.WriteString(fmt.Sprintf(" AND c.created_at >= $%d", len(args)))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		where.WriteString(fmt.Sprintf(" AND c.created_at < $%d", len(args)))
	}

	page, size := normalisePage(filter.Page, filter.PageSize)
	query := "SELECT c.id, c.gym_id, c.member_id, c.method, c.created_at, m.first_name, m.last_name" +
		where.String() +
		fmt.Sprintf(" ORDER BY c.created_at DESC LIMIT %d OFFSET %d", size, (page-1)*size)

	var entries []models.CheckInHistoryEntry
	if err := r.db.SelectContext(ctx, &entries, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list check-ins: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*)"+where.String(), args...); err != nil {
		return nil, 0, fmt.Errorf("count check-ins: %w", err)
	}
	return entries, total, nil
}

// HourlyCounts buckets a gym's check-ins in [from, to) by hour of day in the IANA zone tz.
func (r *CheckInRepository) HourlyCounts(ctx context.Context, gymID string, from, to time.Time, tz string) ([]models.CheckInHourCount, error) {
	if tz == "" {
		tz = "UTC"
	}
	const query = `SELECT EXTRACT(HOUR FROM created_at AT TIME ZONE $4)::INT AS hour, COUNT(*) AS count
        FROM check_ins WHERE gym_id = $1 AND created_at >= $2 AND created_at < $3
        GROUP BY 1 ORDER BY 1`
	var buckets []models.CheckInHourCount
	if err := r.db.SelectContext(ctx, &buckets, query, gymID, from, to, tz); err != nil {
		return nil, fmt.Errorf("hourly check-in counts: %w", err)
	}
	return buckets, nil
}

// MaxPageSize bounds a single history page.
const MaxPageSize = 500

func normalisePage(page, size int) (int, int) {
	if page <= 0 {
		page = 1
	}
	if size <= 0 {
		size = 20
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}
	return page, size
}
