// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package embed is a client for OpenAI-compatible text embedding services.
package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/pdiddy/curation-engine/internal/httputil"
	"github.com/pdiddy/curation-engine/pkg/types"
)

const defaultRequestTimeout = 60 * time.Second

// Client requests embeddings for batches of text.
type Client struct {
	endpoint   string
	model      string
	apiKey     string
	userAgent  string
	dimensions int
	maxRetries int
	http       *http.Client
}

type embedRequest struct {
	Model          string   `json:"model"`
	Input          []string `json:"input"`
	Dimensions     int      `json:"dimensions,omitempty"`
	EncodingFormat string   `json:"encoding_format"`
}

type embedResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float64 `json:"embedding"`
	} `json:"data"`
	// Embeddings is returned by self-hosted servers that skip the data envelope.
	Embeddings [][]float64 `json:"embeddings"`
}

// New builds a Client from the embedding settings.
func New(cfg types.EmbeddingConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	return NewWithClient(cfg, &http.Client{Timeout: timeout})
}

// NewWithClient builds a Client that sends requests through hc.
func NewWithClient(cfg types.EmbeddingConfig, hc *http.Client) *Client {
	return &Client{
		endpoint:   endpointURL(cfg.Endpoint),
		model:      cfg.Model,
		apiKey:     cfg.APIKey,
		userAgent:  cfg.UserAgent,
		dimensions: cfg.Dimensions,
		maxRetries: cfg.MaxRetries,
		http:       hc,
	}
}

// endpointURL accepts a service root, a /v1 root, or a full embeddings URL.
func endpointURL(raw string) string {
	u := strings.TrimRight(strings.TrimSpace(raw), "/")
	switch {
	case strings.HasSuffix(u, "/embeddings"):
		return u
	case strings.HasSuffix(u, "/v1"):
		return u + "/embeddings"
	default:
		return u + "/v1/embeddings"
	}
}

// Embed returns one vector per text, in input order.
func (c *Client) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	body, err := json.Marshal(embedRequest{
		Model:          c.model,
		Input:          texts,
		Dimensions:     c.dimensions,
		EncodingFormat: "float",
	})
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := httputil.DoWithRetry(ctx, c.http, req, c.maxRetries)
	if err != nil {
		return nil, fmt.Errorf("calling embedding service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("embedding service returned %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var parsed embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decoding embedding response: %w", err)
	}

	vectors := parsed.Embeddings
	if len(parsed.Data) > 0 {
		sort.Slice(parsed.Data, func(i, j int) bool { return parsed.Data[i].Index < parsed.Data[j].Index })
		vectors = make([][]float64, len(parsed.Data))
		for i, item := range parsed.Data {
			if item.Index != i {
				return nil, fmt.Errorf("embedding response has index %d at position %d", item.Index, i)
			}
			vectors[i] = item.Embedding
		}
	}

	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("embedding response count mismatch: requested=%d returned=%d", len(texts), len(vectors))
	}
	return vectors, nil
}
