// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package guardrail

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/curation-engine/pkg/types"
)

func TestDefaultAnchors(t *testing.T) {
	a := DefaultAnchors()
	assert.Len(t, a.Irrelevant, 11)
	for _, d := range types.AllDomains {
		assert.NotEmpty(t, a.Pool([]types.Domain{d}), "domain %s has no anchors", d)
	}
	for _, doc := range a.Irrelevant {
		assert.NotEmpty(t, doc.URL)
		assert.NotEmpty(t, doc.Title)
	}
}

func TestPool(t *testing.T) {
	a := DefaultAnchors()

	t.Run("no domains", func(t *testing.T) {
		assert.Empty(t, a.Pool(nil))
	})

	t.Run("unknown domain", func(t *testing.T) {
		assert.Empty(t, a.Pool([]types.Domain{"astrology"}))
	})

	t.Run("shared list pooled once", func(t *testing.T) {
		ai := a.Pool([]types.Domain{types.DomainCoreAI})
		both := a.Pool([]types.Domain{types.DomainCoreAI, types.DomainGenerativeLLM})
		assert.Equal(t, ai, both)
		assert.Len(t, ai, 10)
	})

	t.Run("repeated url dropped", func(t *testing.T) {
		pool := a.Pool([]types.Domain{types.DomainCloud, types.DomainCoreAI})
		assert.Len(t, pool, 13)
		seen := map[string]bool{}
		for _, doc := range pool {
			assert.False(t, seen[doc.URL], "duplicate %s", doc.URL)
			seen[doc.URL] = true
		}
	})

	t.Run("canonical order regardless of input order", func(t *testing.T) {
		forward := a.Pool([]types.Domain{types.DomainCloud, types.DomainCybersecurity})
		reverse := a.Pool([]types.Domain{types.DomainCybersecurity, types.DomainCloud})
		assert.Equal(t, forward, reverse)
		assert.Equal(t, a.Lists["cloud"][0].URL, forward[0].URL)
	})
}

func writeAnchors(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "anchors.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadAnchors(t *testing.T) {
	path := writeAnchors(t, `
irrelevant:
  - url: https://example.com/noise
    title: Noise
    content_type: article
lists:
  infra:
    - url: https://example.com/k8s
      title: Kubernetes scheduling
      content_type: paper
domains:
  cloud: [infra]
  systems: [infra]
`)
	a, err := LoadAnchors(path)
	require.NoError(t, err)
	assert.Len(t, a.Irrelevant, 1)
	pool := a.Pool([]types.Domain{types.DomainSystems, types.DomainCloud})
	require.Len(t, pool, 1)
	assert.Equal(t, "Kubernetes scheduling", pool[0].Title)
	assert.Equal(t, types.ContentPaper, pool[0].ContentType)
}

func TestLoadAnchorsErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"no irrelevant", "lists: {}\n"},
		{"unknown domain", `
irrelevant: [{url: "https://a", title: A}]
lists: {x: []}
domains: {astrology: [x]}
`},
		{"missing list", `
irrelevant: [{url: "https://a", title: A}]
domains: {cloud: [nope]}
`},
		{"bad yaml", "irrelevant: [\n"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := LoadAnchors(writeAnchors(t, tc.content))
			assert.Error(t, err)
		})
	}

	_, err := LoadAnchors(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
