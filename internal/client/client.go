// Package client talks to a running Cozil server.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// APIError is a failure reported by the server
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.Status, e.Message)
}

// Client is a cookie-aware HTTP client for the chat API
type Client struct {
	baseURL string
	http    *http.Client
}

// New creates a client for the server at baseURL
func New(baseURL string) (*Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Jar: jar, Timeout: 5 * time.Minute},
	}, nil
}

// Login starts a session; later calls are stored in the user's history.
func (c *Client) Login(ctx context.Context, username, password string) error {
	body, err := json.Marshal(map[string]string{"username": username, "password": password})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/login", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	var out struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}
	return c.do(req, &out)
}

// Turn is one prior message replayed as context
type Turn struct {
	Role string `json:"role"`
	Text string `json:"-"`
}

// MarshalJSON encodes the turn in the {role, parts:[{text}]} shape.
func (t Turn) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Role  string              `json:"role"`
		Parts []map[string]string `json:"parts"`
	}{t.Role, []map[string]string{{"text": t.Text}}})
}

// Chat sends a question with an optional report file and returns the answer.
func (c *Client) Chat(ctx context.Context, message, reportPath string, history []Turn) (string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	if message != "" {
		if err := w.WriteField("message", message); err != nil {
			return "", err
		}
	}
	if len(history) > 0 {
		encoded, err := json.Marshal(history)
		if err != nil {
			return "", err
		}
		if err := w.WriteField("history", string(encoded)); err != nil {
			return "", err
		}
	}
	if reportPath != "" {
		if err := attach(w, reportPath); err != nil {
			return "", err
		}
	}
	if err := w.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat", &buf)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	var out struct {
		Success  bool   `json:"success"`
		Response string `json:"response"`
		Message  string `json:"message"`
	}
	if err := c.do(req, &out); err != nil {
		return "", err
	}
	return out.Response, nil
}

func attach(w *multipart.Writer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	contentType := mime.TypeByExtension(filepath.Ext(path))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="report"; filename=%q`, filepath.Base(path)))
	header.Set("Content-Type", contentType)
	part, err := w.CreatePart(header)
	if err != nil {
		return err
	}
	_, err = io.Copy(part, f)
	return err
}

func (c *Client) do(req *http.Request, out interface{}) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode >= 400 {
		var failure struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(raw, &failure) != nil || failure.Message == "" {
			failure.Message = http.StatusText(resp.StatusCode)
		}
		return &APIError{Status: resp.StatusCode, Message: failure.Message}
	}
	return json.Unmarshal(raw, out)
}
