package claimsync

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func (s *Syncer) findJob(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Job, error) {
	var job Job
	err := db.WithContext(ctx).Where("id = ?", id).First(&job).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &job, nil
}

// fetchDue returns pending jobs untouched since before cutoff, oldest first.
// On postgres the rows are claimed with SKIP LOCKED so replicas never share work.
func (s *Syncer) fetchDue(ctx context.Context, tx *gorm.DB, cutoff time.Time, limit int) ([]Job, error) {
	stmt := tx.WithContext(ctx).
		Where("status = ? AND updated_at <= ?", StatusPending, cutoff).
		Order("id asc").
		Limit(limit)
	if tx.Dialector.Name() == "postgres" {
		stmt = stmt.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"})
	}

	jobs := make([]Job, 0)
	if err := stmt.Find(&jobs).Error; err != nil {
		return nil, err
	}
	return jobs, nil
}

func (s *Syncer) supersede(ctx context.Context, tx *gorm.DB, userID snowflake.ID, now time.Time) error {
	return tx.WithContext(ctx).Model(&Job{}).
		Where("user_id = ? AND status = ?", userID, StatusPending).
		Updates(map[string]any{"status": StatusSuperseded, "updated_at": now}).Error
}

func (s *Syncer) markApplied(ctx context.Context, id snowflake.ID, now time.Time) error {
	return s.db.WithContext(ctx).Model(&Job{}).
		Where("id = ? AND status = ?", id, StatusPending).
		Updates(map[string]any{
			"status":     StatusApplied,
			"applied_at": now,
			"updated_at": now,
		}).Error
}

// recordFailure bumps the attempt counter and reports whether the job is
// now terminally failed.
func (s *Syncer) recordFailure(ctx context.Context, job *Job, cause error, now time.Time) (bool, error) {
	attempts := job.Attempts + 1
	status := StatusPending
	if attempts >= s.cfg.MaxAttempts {
		status = StatusFailed
	}
	msg := cause.Error()
	if len(msg) > 512 {
		msg = msg[:512]
	}

	err := s.db.WithContext(ctx).Model(&Job{}).
		Where("id = ? AND status = ?", job.ID, StatusPending).
		Updates(map[string]any{
			"status":     status,
			"attempts":   attempts,
			"last_error": msg,
			"updated_at": now,
		}).Error
	return status == StatusFailed, err
}
