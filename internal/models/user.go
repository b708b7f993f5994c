package models

import (
	"time"

	"github.com/google/uuid"
)

// User is a registered account. Accounts are never updated or deleted.
type User struct {
	ID           uuid.UUID `json:"id" db:"id"`
	Username     string    `json:"username" db:"username"`
	PasswordHash string    `json:"-" db:"password_hash"` // Never expose
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// UserContext is the authenticated identity attached to a request. A nil
// *UserContext means the caller is a guest.
type UserContext struct {
	UserID   uuid.UUID `json:"id"`
	Username string    `json:"username"`
}

// Context returns the request identity for the user.
func (u *User) Context() *UserContext {
	return &UserContext{
		UserID:   u.ID,
		Username: u.Username,
	}
}

// AuditLog represents an audit log entry
type AuditLog struct {
	ID           uuid.UUID  `json:"id" db:"id"`
	UserID       *uuid.UUID `json:"user_id" db:"user_id"`
	Action       string     `json:"action" db:"action"`
	ResourceType string     `json:"resource_type" db:"resource_type"`
	IPAddress    string     `json:"ip_address" db:"ip_address"`
	UserAgent    string     `json:"user_agent" db:"user_agent"`
	Metadata     JSONB      `json:"metadata" db:"metadata"`
	Status       string     `json:"status" db:"status"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
}
