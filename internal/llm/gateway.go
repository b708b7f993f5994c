package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/sashabaranov/go-openai"
	"github.com/sirupsen/logrus"
)

const (
	// DefaultBaseURL is Gemini's OpenAI-compatible endpoint.
	DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta/openai"
	DefaultModel   = "gemini-flash-latest"
)

var (
	// ErrRateLimited is returned when the provider rejects the call because a
	// usage quota or rate limit was hit.
	ErrRateLimited = errors.New("model usage limit exceeded")
	// ErrProvider covers every other provider failure.
	ErrProvider = errors.New("model provider error")
)

// Config is the immutable provider configuration.
type Config struct {
	BaseURL      string
	APIKey       string
	Model        string
	SystemPrompt string
}

// Gateway sends prompts to the generative model. It is safe for concurrent use.
type Gateway struct {
	client *openai.Client
	config Config
	logger *logrus.Logger
}

// NewGateway creates a gateway for the given config.
func NewGateway(cfg Config, logger *logrus.Logger) *Gateway {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	clientConfig.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	return &Gateway{
		client: openai.NewClientWithConfig(clientConfig),
		config: cfg,
		logger: logger,
	}
}

// Model returns the configured model name.
func (g *Gateway) Model() string {
	return g.config.Model
}

// Send replays history as the session context, then sends parts as the new
// user message and returns the generated text.
func (g *Gateway) Send(ctx context.Context, history []Content, parts []Part) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:    g.config.Model,
		Messages: g.buildMessages(history, parts),
	}

	resp, err := g.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", classify(err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: empty choice list", ErrProvider)
	}

	g.logger.WithFields(logrus.Fields{
		"model":             g.config.Model,
		"history_turns":     len(history),
		"prompt_tokens":     resp.Usage.PromptTokens,
		"completion_tokens": resp.Usage.CompletionTokens,
	}).Debug("Model call completed")

	return resp.Choices[0].Message.Content, nil
}

func (g *Gateway) buildMessages(history []Content, parts []Part) []openai.ChatCompletionMessage {
	messages := make([]openai.ChatCompletionMessage, 0, len(history)+2)
	if g.config.SystemPrompt != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: g.config.SystemPrompt,
		})
	}

	for _, turn := range history {
		messages = append(messages, convertTurn(turn))
	}

	// The new message is always multi-part so attachments and text travel together.
	messages = append(messages, openai.ChatCompletionMessage{
		Role:         openai.ChatMessageRoleUser,
		MultiContent: convertParts(parts),
	})
	return messages
}

func convertTurn(turn Content) openai.ChatCompletionMessage {
	role := openai.ChatMessageRoleUser
	if turn.Role == RoleModel || turn.Role == openai.ChatMessageRoleAssistant {
		role = openai.ChatMessageRoleAssistant
	}

	hasInline := false
	texts := make([]string, 0, len(turn.Parts))
	for _, p := range turn.Parts {
		if p.IsInline() {
			hasInline = true
			continue
		}
		texts = append(texts, p.Text)
	}

	// go-openai rejects messages that set both Content and MultiContent.
	if hasInline {
		return openai.ChatCompletionMessage{Role: role, MultiContent: convertParts(turn.Parts)}
	}
	return openai.ChatCompletionMessage{Role: role, Content: strings.Join(texts, "\n")}
}

func convertParts(parts []Part) []openai.ChatMessagePart {
	out := make([]openai.ChatMessagePart, 0, len(parts))
	for _, p := range parts {
		if p.IsInline() {
			out = append(out, openai.ChatMessagePart{
				Type: openai.ChatMessagePartTypeImageURL,
				ImageURL: &openai.ChatMessageImageURL{
					URL: fmt.Sprintf("data:%s;base64,%s", p.InlineData.MIMEType, p.InlineData.Data),
				},
			})
			continue
		}
		out = append(out, openai.ChatMessagePart{
			Type: openai.ChatMessagePartTypeText,
			Text: p.Text,
		})
	}
	return out
}

// classify maps a client error onto ErrRateLimited or ErrProvider, keeping the
// original error in the chain.
func classify(err error) error {
	if isRateLimit(err) {
		return fmt.Errorf("%w: %w", ErrRateLimited, err)
	}
	return fmt.Errorf("%w: %w", ErrProvider, err)
}

func isRateLimit(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode == http.StatusTooManyRequests {
		return true
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode == http.StatusTooManyRequests {
		return true
	}
	return strings.Contains(err.Error(), "429")
}
