package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AuthUser is the gateway's credential record. Portal code never reads it
// directly; it is reached through gateway.Auth only.
type AuthUser struct {
	ID               string     `gorm:"type:uuid;primaryKey" json:"id"`
	Email            string     `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash     string     `gorm:"not null" json:"-"`
	EmailConfirmedAt *time.Time `json:"email_confirmed_at,omitempty"`
	Metadata         JSONB      `gorm:"type:jsonb" json:"user_metadata"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

func (AuthUser) TableName() string { return "auth_users" }

func (u *AuthUser) BeforeCreate(*gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

type AuthSession struct {
	JTI              string     `gorm:"primaryKey;size:64" json:"jti"`
	UserID           string     `gorm:"type:uuid;index;not null" json:"user_id"`
	RefreshToken     string     `gorm:"uniqueIndex;size:64;not null" json:"-"`
	ExpiresAt        time.Time  `gorm:"not null" json:"expires_at"`
	RefreshExpiresAt time.Time  `gorm:"not null" json:"refresh_expires_at"`
	RevokedAt        *time.Time `json:"revoked_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}

func (AuthSession) TableName() string { return "auth_sessions" }

// AuthToken is a one-time code mailed to a user: email confirmation or
// password recovery.
type AuthToken struct {
	Code      string     `gorm:"primaryKey;size:64" json:"-"`
	UserID    string     `gorm:"type:uuid;index;not null" json:"user_id"`
	Kind      string     `gorm:"not null" json:"kind"`
	ExpiresAt time.Time  `gorm:"not null" json:"expires_at"`
	UsedAt    *time.Time `json:"used_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

func (AuthToken) TableName() string { return "auth_tokens" }

const (
	TokenSignup   = "signup"
	TokenRecovery = "recovery"
)

func Auth() []any {
	return []any{&AuthUser{}, &AuthSession{}, &AuthToken{}}
}
