package service

import (
	"context"
	"time"

	"github.com/noah-isme/fitcoach-api/internal/models"
	"github.com/noah-isme/fitcoach-api/internal/repository"
	appErrors "github.com/noah-isme/fitcoach-api/pkg/errors"
)

type checkInHistory interface {
	List(ctx context.Context, filter models.CheckInFilter) ([]models.CheckInHistoryEntry, int, error)
	HourlyCounts(ctx context.Context, gymID string, from, to time.Time, tz string) ([]models.CheckInHourCount, error)
}

// History lists the bound gym's check-ins, newest first.
func (v *CheckInValidator) History(ctx context.Context, filter models.CheckInFilter) ([]models.CheckInHistoryEntry, *models.Pagination, error) {
	s := v.svc
	if s.history == nil {
		return nil, nil, appErrors.Clone(appErrors.ErrUnavailable, "check-in history unavailable")
	}
	filter.GymID = v.gymID
	if filter.From != nil && filter.To != nil && !filter.From.Before(*filter.To) {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "from must be before to")
	}
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}
	if filter.PageSize > repository.MaxPageSize {
		filter.PageSize = repository.MaxPageSize
	}
	entries, total, err := s.history.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list check-ins")
	}
	if entries == nil {
		entries = []models.CheckInHistoryEntry{}
	}
	return entries, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

// DailyStats buckets the bound gym's admissions on day by hour, in loc.
func (v *CheckInValidator) DailyStats(ctx context.Context, day time.Time, loc *time.Location) (int, []models.CheckInHourCount, error) {
	s := v.svc
	if s.history == nil {
		return 0, nil, appErrors.Clone(appErrors.ErrUnavailable, "check-in history unavailable")
	}
	if loc == nil {
		loc = time.UTC
	}
	day = day.In(loc)
	from := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, loc)
	buckets, err := s.history.HourlyCounts(ctx, v.gymID, from, from.AddDate(0, 0, 1), loc.String())
	if err != nil {
		return 0, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load check-in stats")
	}
	total := 0
	for _, b := range buckets {
		total += b.Count
	}
	if buckets == nil {
		buckets = []models.CheckInHourCount{}
	}
	return total, buckets, nil
}
