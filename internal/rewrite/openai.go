package rewrite

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
)

const systemPrompt = `You are UnAI, an expert writing editor that removes AI-generated writing clichés.

RULES:
- Preserve ALL factual content
- Remove Chinese AI patterns: "不是...而是...", "值得注意的是", "让我们深入探讨", "总而言之", "简单来说", "兜住/接住", "不仅...而且..."
- Remove English AI patterns: "It's worth noting", "Let's delve into", "Furthermore/Moreover", "In conclusion", "Not X but Y", "Great question!", sycophancy
- Keep same language as input
- Make text flow naturally like a human wrote it
- Return ONLY the rewritten text, nothing else`

// OpenAIConfig configures the chat completions client
type OpenAIConfig struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}

// OpenAIClient rewrites text through the OpenAI chat completions API
type OpenAIClient struct {
	config     OpenAIConfig
	httpClient *http.Client
	logger     *zap.Logger
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// NewOpenAIClient creates a client. A missing API key is reported at call time.
func NewOpenAIClient(config OpenAIConfig, logger *zap.Logger) *OpenAIClient {
	if config.BaseURL == "" {
		config.BaseURL = "https://api.openai.com"
	}
	if config.Model == "" {
		config.Model = "gpt-4o-mini"
	}
	if config.MaxTokens <= 0 {
		config.MaxTokens = 4096
	}
	if config.Timeout <= 0 {
		config.Timeout = 45 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &OpenAIClient{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
		logger:     logger,
	}
}

// Configured reports whether an API key is set
func (c *OpenAIClient) Configured() bool {
	return c.config.APIKey != ""
}

// Model returns the model name sent upstream
func (c *OpenAIClient) Model() string {
	return c.config.Model
}

// Rewrite sends text to the model and returns its reply. An empty reply
// yields the original text.
func (c *OpenAIClient) Rewrite(ctx context.Context, text string, mode Mode) (string, error) {
	if !c.Configured() {
		return "", ErrNotConfigured
	}

	body, err := json.Marshal(chatRequest{
		Model: c.config.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt + "\nIntensity: " + mode.Instruction()},
			{Role: "user", Content: text},
		},
		Temperature: c.config.Temperature,
		MaxTokens:   c.maxTokens(text),
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode request: %w", err)
	}

	endpoint := strings.TrimSuffix(c.config.BaseURL, "/") + "/v1/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrRewriteFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.config.APIKey)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrRewriteFailed, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", fmt.Errorf("%w: failed to read response: %v", ErrRewriteFailed, err)
	}

	var parsed chatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("%w: status %d: invalid response body", ErrRewriteFailed, resp.StatusCode)
	}

	if resp.StatusCode != http.StatusOK {
		msg := http.StatusText(resp.StatusCode)
		if parsed.Error != nil && parsed.Error.Message != "" {
			msg = parsed.Error.Message
		}
		return "", fmt.Errorf("%w: status %d: %s", ErrRewriteFailed, resp.StatusCode, msg)
	}

	c.logger.Debug("Rewrite completed upstream",
		zap.String("model", c.config.Model),
		zap.String("mode", mode.String()),
		zap.Duration("duration", time.Since(start)))

	if len(parsed.Choices) == 0 || parsed.Choices[0].Message.Content == "" {
		return text, nil
	}
	return parsed.Choices[0].Message.Content, nil
}

// maxTokens is twice the input length, capped by the configured maximum
func (c *OpenAIClient) maxTokens(text string) int {
	return min(utf8.RuneCountInString(text)*2, c.config.MaxTokens)
}
