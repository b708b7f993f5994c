package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/cozil/cozil-backend/internal/models"
	"github.com/cozil/cozil-backend/internal/repository"
)

// EventType represents the type of audit event
type EventType string

const (
	EventLogin       EventType = "user.login"
	EventLogout      EventType = "user.logout"
	EventSignup      EventType = "user.signup"
	EventChatMessage EventType = "chat.message"
)

// Event represents an audit event
type Event struct {
	ID        uuid.UUID              `json:"id"`
	EventType EventType              `json:"event_type"`
	UserID    *uuid.UUID             `json:"user_id,omitempty"`
	IPAddress string                 `json:"ip_address,omitempty"`
	UserAgent string                 `json:"user_agent,omitempty"`
	Resource  string                 `json:"resource,omitempty"`
	Result    string                 `json:"result,omitempty"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
}

// Service implements the audit logger. Audit writes never fail the caller:
// errors are logged and returned for callers that care.
type Service struct {
	repo   repository.AuditRepository
	logger *logrus.Logger
}

// NewService creates a new audit service
func NewService(repo repository.AuditRepository, logger *logrus.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger,
	}
}

// Log records an audit event
func (s *Service) Log(ctx context.Context, event *Event) error {
	entry := &models.AuditLog{
		ID:           event.ID,
		UserID:       event.UserID,
		Action:       string(event.EventType),
		ResourceType: event.Resource,
		IPAddress:    event.IPAddress,
		UserAgent:    event.UserAgent,
		Metadata:     models.JSONB(event.Metadata),
		Status:       event.Result,
		CreatedAt:    event.CreatedAt,
	}

	if err := s.repo.Log(ctx, entry); err != nil {
		s.logger.WithError(err).WithField("event", event.EventType).Warn("Failed to write audit log")
		return err
	}
	return nil
}

// GetUserEvents retrieves audit events for a specific user
func (s *Service) GetUserEvents(ctx context.Context, userID uuid.UUID, limit int) ([]*Event, error) {
	logs, err := s.repo.GetByUserID(ctx, userID, limit)
	if err != nil {
		return nil, err
	}

	events := make([]*Event, len(logs))
	for i, log := range logs {
		events[i] = &Event{
			ID:        log.ID,
			EventType: EventType(log.Action),
			UserID:    log.UserID,
			IPAddress: log.IPAddress,
			UserAgent: log.UserAgent,
			Resource:  log.ResourceType,
			Result:    log.Status,
			Metadata:  map[string]interface{}(log.Metadata),
			CreatedAt: log.CreatedAt,
		}
	}

	return events, nil
}

// NewEvent creates an event stamped with a fresh ID and the current time
func NewEvent(eventType EventType, userID *uuid.UUID, ipAddress, userAgent string) *Event {
	return &Event{
		ID:        uuid.New(),
		EventType: eventType,
		UserID:    userID,
		IPAddress: ipAddress,
		UserAgent: userAgent,
		CreatedAt: models.Now(),
		Metadata:  make(map[string]interface{}),
	}
}
