// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package judge

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/pdiddy/curation-engine/pkg/types"
)

const defaultClaudeModel = "claude-sonnet-4-5"

// ClaudeBackend calls the Claude Messages API through the Anthropic SDK.
type ClaudeBackend struct {
	client    anthropic.Client
	model     string
	maxTokens int
}

// NewClaude builds a ClaudeBackend from cfg. Extra options are applied after
// the ones derived from cfg.
func NewClaude(cfg types.JudgeConfig, opts ...option.RequestOption) *ClaudeBackend {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	base := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithHTTPClient(&http.Client{Timeout: timeout}),
	}
	if cfg.Endpoint != "" {
		base = append(base, option.WithBaseURL(cfg.Endpoint))
	}
	if cfg.UserAgent != "" {
		base = append(base, option.WithHeader("User-Agent", cfg.UserAgent))
	}

	model := cfg.Model
	if model == "" || !strings.HasPrefix(model, "claude") {
		model = defaultClaudeModel
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	return &ClaudeBackend{
		client:    anthropic.NewClient(append(base, opts...)...),
		model:     model,
		maxTokens: maxTokens,
	}
}

// Judge sends one message and returns the concatenated text blocks of the reply.
func (b *ClaudeBackend) Judge(ctx context.Context, userPrompt, systemPrompt string) (string, error) {
	msg, err := b.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(b.model),
		MaxTokens: int64(b.maxTokens),
		System:    []anthropic.TextBlockParam{{Text: systemPrompt}},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("calling Claude API: %w", err)
	}

	var sb strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if strings.TrimSpace(sb.String()) == "" {
		return "", fmt.Errorf("no text content in Claude response")
	}
	return sb.String(), nil
}
