// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package judge provides the LLM backends the guardrail scorer asks for
// verdicts: any OpenAI-compatible chat completions endpoint, or Claude.
package judge

import (
	"context"
	"fmt"

	"github.com/pdiddy/curation-engine/pkg/types"
)

// Backend answers a user prompt under a system prompt with free text.
type Backend interface {
	Judge(ctx context.Context, userPrompt, systemPrompt string) (string, error)
}

// New returns the backend selected by cfg.Backend.
func New(cfg types.JudgeConfig) (Backend, error) {
	switch cfg.Backend {
	case types.JudgeOpenAI, "":
		return NewOpenAI(cfg), nil
	case types.JudgeClaude:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("claude judge requires an API key (set judge.api_key or .secrets/anthropic-api-key)")
		}
		return NewClaude(cfg), nil
	default:
		return nil, fmt.Errorf("unsupported judge backend %q", cfg.Backend)
	}
}
