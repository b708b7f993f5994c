package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/cozil/cozil-backend/internal/models"
)

var (
	// ErrNotFound is returned when a lookup matches no row.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when a unique constraint rejects an insert.
	ErrDuplicate = errors.New("record already exists")
)

// UserRepository defines credential storage operations
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
}

// ConversationRepository defines conversation record storage operations.
// Records are append-only.
type ConversationRepository interface {
	Create(ctx context.Context, conversation *models.Conversation) error
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Conversation, error)
}

// AuditRepository defines audit log persistence
type AuditRepository interface {
	Log(ctx context.Context, entry *models.AuditLog) error
	GetByUserID(ctx context.Context, userID uuid.UUID, limit int) ([]*models.AuditLog, error)
}
