package sqlstore

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/cozil/cozil-backend/internal/models"
	"github.com/cozil/cozil-backend/internal/repository"
)

// AuditLogRepository handles audit log data access
type AuditLogRepository struct {
	db *sqlx.DB
}

// NewAuditLogRepository creates a new audit log repository
func NewAuditLogRepository(db *sqlx.DB) repository.AuditRepository {
	return &AuditLogRepository{db: db}
}

// Log creates a new audit log entry
func (r *AuditLogRepository) Log(ctx context.Context, entry *models.AuditLog) error {
	query := r.db.Rebind(`
		INSERT INTO audit_logs (
			id, user_id, action, resource_type, ip_address,
			user_agent, metadata, status, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)

	_, err := r.db.ExecContext(ctx, query,
		entry.ID, entry.UserID, entry.Action, entry.ResourceType, entry.IPAddress,
		entry.UserAgent, entry.Metadata, entry.Status, entry.CreatedAt,
	)
	return translate(err)
}

// GetByUserID lists audit logs for a specific user
func (r *AuditLogRepository) GetByUserID(ctx context.Context, userID uuid.UUID, limit int) ([]*models.AuditLog, error) {
	entries := []*models.AuditLog{}
	query := r.db.Rebind(`
		SELECT id, user_id, action, resource_type, ip_address,
			user_agent, metadata, status, created_at
		FROM audit_logs
		WHERE user_id = ?
		ORDER BY created_at DESC
		LIMIT ?`)

	if err := r.db.SelectContext(ctx, &entries, query, userID, limit); err != nil {
		return nil, translate(err)
	}
	return entries, nil
}
