package handlers

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/cozil/cozil-backend/internal/api/middleware"
	"github.com/cozil/cozil-backend/internal/models"
	"github.com/cozil/cozil-backend/internal/services"
)

// Locals copied from the upgrade request for use on the socket
const (
	LocalIP        = "ip"
	LocalUserAgent = "user_agent"
)

// drainTimeout bounds how long the rest of an oversized frame is discarded.
const drainTimeout = 10 * time.Second

var (
	errFrameTooLarge = errors.New("chat frame exceeds size limit")
	errBadFrame      = errors.New("malformed chat frame")
)

// SocketRequest is one chat frame sent over the websocket
type SocketRequest struct {
	Message string        `json:"message"`
	History string        `json:"history"`
	Report  *SocketReport `json:"report,omitempty"`
}

// SocketReport is an attached file, base64 encoded
type SocketReport struct {
	Filename string `json:"filename"`
	MIMEType string `json:"mimeType"`
	Data     string `json:"data"`
}

// SocketResponse mirrors the HTTP bodies and adds the equivalent status code
type SocketResponse struct {
	Success  bool   `json:"success"`
	Response string `json:"response,omitempty"`
	Message  string `json:"message,omitempty"`
	Status   int    `json:"status"`
}

// StreamChat handles GET /ws/chat. Each frame runs one chat call. A frame
// over the upload limit gets a failure reply and the socket is closed.
func (h *ChatHandler) StreamChat(c *websocket.Conn) {
	defer c.Close()

	user, _ := c.Locals(middleware.UserContextKey).(*models.UserContext)
	ip, _ := c.Locals(LocalIP).(string)
	userAgent, _ := c.Locals(LocalUserAgent).(string)

	for {
		frame, err := h.readFrame(c)
		switch {
		case errors.Is(err, errFrameTooLarge):
			h.logger.WithField("limit", h.maxBytes).Warn("Rejected oversized chat frame")
			_ = c.WriteJSON(SocketResponse{Message: MessageTooLarge, Status: fiber.StatusRequestEntityTooLarge})
			_ = c.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseMessageTooBig, ""), time.Now().Add(time.Second))
			return
		case errors.Is(err, errBadFrame):
			if err := c.WriteJSON(SocketResponse{Message: "Invalid request", Status: fiber.StatusBadRequest}); err != nil {
				return
			}
			continue
		case err != nil:
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.WithError(err).Debug("Chat socket closed")
			}
			return
		}

		req := services.ChatRequest{
			Message:   frame.Message,
			History:   frame.History,
			User:      user,
			IPAddress: ip,
			UserAgent: userAgent,
		}
		if err := c.WriteJSON(h.handleFrame(context.Background(), req, frame.Report)); err != nil {
			return
		}
	}
}

// readFrame reads one message, holding at most maxBytes of it in memory.
func (h *ChatHandler) readFrame(c *websocket.Conn) (SocketRequest, error) {
	var frame SocketRequest
	_, msg, err := c.NextReader()
	if err != nil {
		return frame, err
	}

	r := msg
	if h.maxBytes > 0 {
		r = io.LimitReader(msg, h.maxBytes+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return frame, err
	}

	if h.maxBytes > 0 && int64(len(data)) > h.maxBytes {
		// Discard the rest so the reply is not lost to a reset connection.
		_ = c.SetReadDeadline(time.Now().Add(drainTimeout))
		_, _ = io.Copy(io.Discard, msg)
		return frame, errFrameTooLarge
	}

	if err := json.Unmarshal(data, &frame); err != nil {
		return frame, fmt.Errorf("%w: %w", errBadFrame, err)
	}
	return frame, nil
}

func (h *ChatHandler) handleFrame(ctx context.Context, req services.ChatRequest, report *SocketReport) SocketResponse {
	if report != nil {
		upload, err := h.stageEncoded(report)
		if err != nil {
			h.logger.WithError(err).WithField("filename", report.Filename).Warn("Rejected socket upload")
			return SocketResponse{Message: MessageChatFailed, Status: fiber.StatusInternalServerError}
		}
		req.Upload = upload
	}

	resp, err := h.chat.Chat(ctx, req)
	if err != nil {
		status, message := chatFailure(err)
		return SocketResponse{Message: message, Status: status}
	}
	return SocketResponse{Success: true, Response: resp.Response, Status: fiber.StatusOK}
}

// stageEncoded decodes a base64 report straight into a staging file.
func (h *ChatHandler) stageEncoded(report *SocketReport) (*services.Upload, error) {
	decoder := base64.NewDecoder(base64.StdEncoding, strings.NewReader(report.Data))
	path, err := h.writeStaged(report.Filename, decoder)
	if err != nil {
		return nil, fmt.Errorf("stage report: %w", err)
	}
	return &services.Upload{Path: path, Filename: report.Filename, MIMEType: report.MIMEType}, nil
}
