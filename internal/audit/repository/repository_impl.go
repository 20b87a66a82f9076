package repository

import (
	"context"

	"github.com/smallbiznis/tally/internal/audit/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, entry *domain.AuditLog) error {
	return db.WithContext(ctx).Create(entry).Error
}

// List returns up to Limit+1 rows, newest first, so the caller can tell
// whether another page exists.
func (r *repo) List(ctx context.Context, db *gorm.DB, f domain.ListFilter) ([]domain.AuditLog, error) {
	q := db.WithContext(ctx).Where("org_id = ?", f.OrgID)

	for column, value := range map[string]string{
		"action":      f.Action,
		"target_type": f.TargetType,
		"target_id":   f.TargetID,
		"actor_type":  f.ActorType,
	} {
		if value != "" {
			q = q.Where(column+" = ?", value)
		}
	}
	if f.StartAt != nil {
		q = q.Where("created_at >= ?", f.StartAt.UTC())
	}
	if f.EndAt != nil {
		q = q.Where("created_at <= ?", f.EndAt.UTC())
	}
	if f.After != nil {
		at := f.After.CreatedAt.UTC()
		q = q.Where("created_at < ? OR (created_at = ? AND id < ?)", at, at, f.After.ID)
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit + 1)
	}

	var rows []domain.AuditLog
	if err := q.Order("created_at DESC").Order("id DESC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
