// Package domain contains core types for the identity service.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type AccountType string

const (
	AccountTypePersonal     AccountType = "PERSONAL"
	AccountTypeOrganization AccountType = "ORGANIZATION"
)

type Role string

const (
	RoleAdmin  Role = "ADMIN"
	RoleMember Role = "MEMBER"
)

// Claims is the session metadata attached to a user. Business code only
// changes it through Provider.UpdateClaims.
type Claims struct {
	Role                Role         `json:"role,omitempty"`
	AccountType         AccountType  `json:"accountType,omitempty"`
	OrganizationID      snowflake.ID `json:"organizationId,omitempty"`
	PersonalAccountID   snowflake.ID `json:"personalAccountId,omitempty"`
	IsSuperAdmin        bool         `json:"isSuperAdmin"`
	OnboardingCompleted bool         `json:"onboardingCompleted"`
}

// Caller is the authenticated identity of the current request.
type Caller struct {
	ID       snowflake.ID `json:"id"`
	FullName string       `json:"fullName"`
	Email    string       `json:"email"`
	Claims   Claims       `json:"claims"`
}

func (c *Caller) IsPersonal() bool {
	return c != nil && c.Claims.AccountType == AccountTypePersonal
}

// User is the persisted identity record.
type User struct {
	ID           snowflake.ID               `gorm:"primaryKey"`
	FullName     string                     `gorm:"column:full_name;type:text;not null"`
	Email        string                     `gorm:"column:email;type:text;not null;uniqueIndex"`
	PasswordHash *string                    `gorm:"column:password_hash;type:text"`
	AccountType  *AccountType               `gorm:"column:account_type;type:text"`
	IsOnboarded  bool                       `gorm:"column:is_onboarded;not null;default:false"`
	Claims       datatypes.JSONType[Claims] `gorm:"column:claims"`
	CreatedAt    time.Time                  `gorm:"not null"`
	UpdatedAt    time.Time                  `gorm:"not null"`
}

func (User) TableName() string { return "users" }

func (u *User) Caller() *Caller {
	return &Caller{
		ID:       u.ID,
		FullName: u.FullName,
		Email:    u.Email,
		Claims:   u.Claims.Data(),
	}
}
