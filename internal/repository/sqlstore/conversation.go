package sqlstore

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/cozil/cozil-backend/internal/models"
	"github.com/cozil/cozil-backend/internal/repository"
)

// ConversationRepository stores one row per chat exchange.
type ConversationRepository struct {
	db *sqlx.DB
}

// NewConversationRepository creates a new conversation repository
func NewConversationRepository(db *sqlx.DB) repository.ConversationRepository {
	return &ConversationRepository{db: db}
}

// Create inserts a new record. ID and timestamps are filled in when unset.
func (r *ConversationRepository) Create(ctx context.Context, c *models.Conversation) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = models.Now()
	}
	if c.UpdatedAt.IsZero() {
		c.UpdatedAt = c.CreatedAt
	}

	query := r.db.Rebind(`
		INSERT INTO conversations (id, user_id, title, turns, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`)

	_, err := r.db.ExecContext(ctx, query,
		c.ID, c.UserID, c.Title, c.Turns, c.CreatedAt, c.UpdatedAt,
	)
	return translate(err)
}

// ListByUser returns all records of a user, newest first.
func (r *ConversationRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Conversation, error) {
	conversations := []*models.Conversation{}
	query := r.db.Rebind(`
		SELECT id, user_id, title, turns, created_at, updated_at
		FROM conversations
		WHERE user_id = ?
		ORDER BY created_at DESC`)

	if err := r.db.SelectContext(ctx, &conversations, query, userID); err != nil {
		return nil, translate(err)
	}
	return conversations, nil
}
