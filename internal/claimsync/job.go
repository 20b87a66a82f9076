package claimsync

import (
	"time"

	"github.com/bwmarrin/snowflake"
	authdomain "github.com/smallbiznis/tally/internal/auth/domain"
	"gorm.io/datatypes"
)

type Status string

const (
	StatusPending    Status = "PENDING"
	StatusApplied    Status = "APPLIED"
	StatusFailed     Status = "FAILED"
	StatusSuperseded Status = "SUPERSEDED"
)

// Job is an outbox row carrying session claims that must reach the identity
// provider after the business transaction that produced them commits.
type Job struct {
	ID        snowflake.ID                        `gorm:"primaryKey" json:"id"`
	UserID    snowflake.ID                        `gorm:"not null;index" json:"userId"`
	Claims    datatypes.JSONType[authdomain.Claims] `gorm:"not null" json:"claims"`
	Status    Status                              `gorm:"type:varchar(16);not null;index" json:"status"`
	Attempts  int                                 `gorm:"not null;default:0" json:"attempts"`
	LastError *string                             `json:"lastError,omitempty"`
	CreatedAt time.Time                           `gorm:"not null" json:"createdAt"`
	UpdatedAt time.Time                           `gorm:"not null" json:"updatedAt"`
	AppliedAt *time.Time                          `json:"appliedAt,omitempty"`
}

func (Job) TableName() string { return "claim_sync_jobs" }
