package handlers

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/cozil/cozil-backend/internal/api/middleware"
	"github.com/cozil/cozil-backend/internal/llm"
	"github.com/cozil/cozil-backend/internal/services"
)

// Messages shown to the user when a chat request fails.
const (
	MessageUsageLimit = "Usage limit exceeded for this model. Please try again later."
	MessageChatFailed = "Sorry, I encountered an error processing your request."
	MessageTooLarge   = "Your message or report is too large."
)

const maxStagingAttempts = 100

var errStagingExhausted = errors.New("no free staging file name")

// ChatResponse is the success body of a chat call
type ChatResponse struct {
	Success  bool   `json:"success"`
	Response string `json:"response"`
}

// ErrorResponse is the flat failure body used by every endpoint
type ErrorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// ChatHandler serves the report chat endpoints
type ChatHandler struct {
	chat      *services.ChatService
	uploadDir string
	maxBytes  int64
	logger    *logrus.Logger
	now       func() time.Time
}

// NewChatHandler creates a new chat handler. maxBytes bounds a single
// websocket frame; the HTTP body limit is enforced by the app config.
func NewChatHandler(chat *services.ChatService, uploadDir string, maxBytes int64, logger *logrus.Logger) *ChatHandler {
	return &ChatHandler{
		chat:      chat,
		uploadDir: uploadDir,
		maxBytes:  maxBytes,
		logger:    logger,
		now:       time.Now,
	}
}

// Chat handles POST /api/chat
func (h *ChatHandler) Chat(c *fiber.Ctx) error {
	req := services.ChatRequest{
		Message:   c.FormValue("message"),
		History:   c.FormValue("history"),
		User:      middleware.CurrentUser(c),
		IPAddress: c.IP(),
		UserAgent: c.Get(fiber.HeaderUserAgent),
	}

	if file, err := c.FormFile("report"); err == nil {
		upload, err := h.stage(file)
		if err != nil {
			h.logger.WithError(err).WithField("filename", file.Filename).Error("Failed to stage upload")
			return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Message: MessageChatFailed})
		}
		req.Upload = upload
	}

	resp, err := h.chat.Chat(c.UserContext(), req)
	if err != nil {
		status, message := chatFailure(err)
		return c.Status(status).JSON(ErrorResponse{Message: message})
	}

	return c.JSON(ChatResponse{Success: true, Response: resp.Response})
}

// stage saves the upload in the upload directory.
func (h *ChatHandler) stage(file *multipart.FileHeader) (*services.Upload, error) {
	src, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer src.Close()

	path, err := h.writeStaged(file.Filename, src)
	if err != nil {
		return nil, err
	}
	return &services.Upload{
		Path:     path,
		Filename: file.Filename,
		MIMEType: file.Header.Get(fiber.HeaderContentType),
	}, nil
}

// writeStaged copies r into a new staging file and returns its path. A
// partially written file is removed.
func (h *ChatHandler) writeStaged(filename string, r io.Reader) (string, error) {
	f, err := h.createStaged(filename)
	if err != nil {
		return "", err
	}
	path := f.Name()

	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		_ = os.Remove(path)
		return "", err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return "", err
	}
	return path, nil
}

// createStaged creates <unix millis>-<filename> in the upload directory. The
// file is opened exclusively; on a clash the timestamp moves on by a
// millisecond so concurrent uploads never share a path.
func (h *ChatHandler) createStaged(filename string) (*os.File, error) {
	if err := os.MkdirAll(h.uploadDir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}

	base := filepath.Base(filename)
	millis := h.now().UnixMilli()
	for i := int64(0); i < maxStagingAttempts; i++ {
		path := filepath.Join(h.uploadDir, fmt.Sprintf("%d-%s", millis+i, base))
		f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
		if err == nil {
			return f, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return nil, err
		}
	}
	return nil, errStagingExhausted
}

// chatFailure maps a chat error to the status and message returned to the client.
func chatFailure(err error) (int, string) {
	if errors.Is(err, llm.ErrRateLimited) {
		return fiber.StatusTooManyRequests, MessageUsageLimit
	}
	return fiber.StatusInternalServerError, MessageChatFailed
}
