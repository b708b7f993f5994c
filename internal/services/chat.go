package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/cozil/cozil-backend/internal/audit"
	"github.com/cozil/cozil-backend/internal/extractor"
	"github.com/cozil/cozil-backend/internal/llm"
	"github.com/cozil/cozil-backend/internal/models"
	"github.com/cozil/cozil-backend/internal/repository"
)

const (
	// PlaceholderPrompt is sent when the user supplied no message text.
	PlaceholderPrompt = "Please analyze this report."

	reportContentPrefix = "\n\nHere is the content of the attached medical report:\n"
)

// ModelGateway sends a multimodal message on top of replayed history
type ModelGateway interface {
	Send(ctx context.Context, history []llm.Content, parts []llm.Part) (string, error)
}

// DocumentExtractor reads a staged upload and removes it
type DocumentExtractor interface {
	Extract(ctx context.Context, path, mimeType string) (extractor.Result, error)
}

// Upload is a file staged on disk for the duration of one request
type Upload struct {
	Path     string
	Filename string
	MIMEType string
}

// ChatRequest is one inbound chat call. User is nil for guests.
type ChatRequest struct {
	Message   string
	History   string
	Upload    *Upload
	User      *models.UserContext
	IPAddress string
	UserAgent string
}

// ChatResponse carries the generated answer
type ChatResponse struct {
	Response string `json:"response"`
	// RecordID is set when the exchange was stored.
	RecordID *uuid.UUID `json:"-"`
}

// ChatService assembles prompts from messages and reports, calls the model and
// records exchanges for signed-in users.
type ChatService struct {
	gateway       ModelGateway
	extractor     DocumentExtractor
	conversations repository.ConversationRepository
	audit         *audit.Service
	logger        *logrus.Logger
}

// NewChatService creates a new chat service. auditService may be nil.
func NewChatService(gateway ModelGateway, ex DocumentExtractor, conversations repository.ConversationRepository, auditService *audit.Service, logger *logrus.Logger) *ChatService {
	return &ChatService{
		gateway:       gateway,
		extractor:     ex,
		conversations: conversations,
		audit:         auditService,
		logger:        logger,
	}
}

// Chat handles one request end to end. Returned errors wrap
// extractor.ErrExtraction, llm.ErrRateLimited or llm.ErrProvider. Failing to
// store the exchange is never an error.
func (s *ChatService) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	prompt := req.Message
	if prompt == "" {
		prompt = PlaceholderPrompt
	}

	var parts []llm.Part
	if req.Upload != nil {
		content, err := s.extractor.Extract(ctx, req.Upload.Path, req.Upload.MIMEType)
		if err != nil {
			s.logger.WithError(err).WithField("filename", req.Upload.Filename).Error("Failed to read uploaded report")
			return nil, err
		}
		if content.HasText {
			prompt += reportContentPrefix + content.Text
		}
		if content.Attachment != nil {
			parts = append(parts, llm.InlinePart(content.Attachment.MIMEType, content.Attachment.Data))
		}
	}
	parts = append(parts, llm.TextPart(prompt))

	history := s.parseHistory(req.History)

	reply, err := s.gateway.Send(ctx, history, parts)
	if err != nil {
		s.logger.WithError(err).WithField("history_turns", len(history)).Error("Model call failed")
		return nil, err
	}

	resp := &ChatResponse{Response: reply}
	if req.User != nil {
		resp.RecordID = s.recordExchange(ctx, req, prompt, reply)
	}
	return resp, nil
}

// History lists the user's stored exchanges, newest first
func (s *ChatService) History(ctx context.Context, user *models.UserContext) ([]*models.Conversation, error) {
	records, err := s.conversations.ListByUser(ctx, user.UserID)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	return records, nil
}

// parseHistory decodes the client-supplied turns. Malformed input is treated
// as no history.
func (s *ChatService) parseHistory(raw string) []llm.Content {
	if raw == "" {
		return nil
	}
	var history []llm.Content
	if err := json.Unmarshal([]byte(raw), &history); err != nil {
		s.logger.WithError(err).Warn("Ignoring malformed chat history")
		return nil
	}
	return history
}

// recordExchange stores the user/model pair as a new record. Errors are
// logged and swallowed.
func (s *ChatService) recordExchange(ctx context.Context, req ChatRequest, prompt, reply string) *uuid.UUID {
	record := models.NewExchange(req.User.UserID, req.Message, prompt, reply, models.Now())
	if err := s.conversations.Create(ctx, record); err != nil {
		s.logger.WithError(err).WithField("user_id", req.User.UserID).Error("Failed to save conversation")
		return nil
	}

	if s.audit != nil {
		userID := req.User.UserID
		event := audit.NewEvent(audit.EventChatMessage, &userID, req.IPAddress, req.UserAgent)
		event.Resource = "conversation"
		event.Result = "success"
		event.Metadata["conversation_id"] = record.ID.String()
		event.Metadata["has_attachment"] = req.Upload != nil
		_ = s.audit.Log(ctx, event)
	}

	return &record.ID
}
