// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package judge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pdiddy/curation-engine/internal/httputil"
	"github.com/pdiddy/curation-engine/pkg/types"
)

// defaultOpenAIEndpoint is used when no endpoint is configured. Package-level
// var for test substitution.
var defaultOpenAIEndpoint = "https://api.openai.com/v1"

const (
	defaultMaxTokens      = 1024
	defaultRequestTimeout = 120 * time.Second
)

// OpenAIBackend calls a chat completions endpoint.
type OpenAIBackend struct {
	endpoint  string
	model     string
	apiKey    string
	userAgent string
	maxTokens int
	client    *http.Client
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// NewOpenAI builds an OpenAIBackend from cfg.
func NewOpenAI(cfg types.JudgeConfig) *OpenAIBackend {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	return NewOpenAIWithClient(cfg, &http.Client{Timeout: timeout})
}

// NewOpenAIWithClient builds an OpenAIBackend that sends requests through hc.
func NewOpenAIWithClient(cfg types.JudgeConfig, hc *http.Client) *OpenAIBackend {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = defaultOpenAIEndpoint
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	return &OpenAIBackend{
		endpoint:  completionsURL(endpoint),
		model:     cfg.Model,
		apiKey:    cfg.APIKey,
		userAgent: cfg.UserAgent,
		maxTokens: maxTokens,
		client:    hc,
	}
}

// completionsURL accepts a service root, a /v1 root, or a full completions URL.
func completionsURL(raw string) string {
	u := strings.TrimRight(strings.TrimSpace(raw), "/")
	switch {
	case strings.HasSuffix(u, "/chat/completions"):
		return u
	case strings.HasSuffix(u, "/v1"):
		return u + "/chat/completions"
	default:
		return u + "/v1/chat/completions"
	}
}

// Judge sends one system+user exchange and returns the reply text.
func (b *OpenAIBackend) Judge(ctx context.Context, userPrompt, systemPrompt string) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model: b.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		MaxTokens: b.maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if b.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+b.apiKey)
	}
	if b.userAgent != "" {
		req.Header.Set("User-Agent", b.userAgent)
	}

	resp, err := httputil.DoWithRetry(ctx, b.client, req, 0)
	if err != nil {
		return "", fmt.Errorf("calling judge: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("judge returned %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decoding judge response: %w", err)
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("judge error: %s", parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 || strings.TrimSpace(parsed.Choices[0].Message.Content) == "" {
		return "", fmt.Errorf("judge returned no content")
	}
	return parsed.Choices[0].Message.Content, nil
}
