// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets loads API keys from a directory of plain-text files. Each
// file holds one secret: the filename is the key name and the trimmed
// contents are the value.
package secrets

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog"
)

// Key files the CLI looks for.
const (
	JudgeAPIKey     = "judge-api-key"
	EmbeddingAPIKey = "embedding-api-key"
	AnthropicAPIKey = "anthropic-api-key"
)

// Set maps key names to values.
type Set map[string]string

// Load reads all files in dir. A missing directory is not an error and
// yields an empty Set. Unreadable files are logged and skipped.
func Load(dir string, log zerolog.Logger) (Set, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return Set{}, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	secrets := make(Set)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			log.Warn().Err(err).Str("secret", name).Msg("could not read secret")
			continue
		}

		if value := strings.TrimSpace(string(data)); value != "" {
			secrets[name] = value
		}
	}
	return secrets, nil
}

// Get returns explicit when it is set, otherwise the first of keys present
// in s.
func (s Set) Get(explicit string, keys ...string) string {
	if explicit != "" {
		return explicit
	}
	for _, k := range keys {
		if v, ok := s[k]; ok {
			return v
		}
	}
	return ""
}

// Keys returns the loaded key names, sorted.
func (s Set) Keys() []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
