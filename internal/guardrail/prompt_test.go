// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package guardrail

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/curation-engine/pkg/types"
)

func TestParseVerdicts(t *testing.T) {
	tests := []struct {
		name     string
		response string
		n        int
		want     int
	}{
		{"framed", "<start>\n1|1|better\n2|0|worse\n3|1|better\n<end>", 3, 2},
		{"table rows", "| 1 | 1 | yes |\n| 2 | 1 | yes |", 2, 2},
		{"bare pairs", "1|0\n2|1", 2, 1},
		{"index out of range ignored", "1|1|a\n7|1|b", 2, 1},
		{"repeated index counts once", "1|1|a\n1|1|again\n2|0|b", 2, 1},
		{"non binary verdict ignored", "1|2|maybe\n2|1|yes", 2, 1},
		{"prose around lines", "Here you go:\n1|1|on topic\nthanks", 1, 1},
		{"all losses", "1|0|x\n2|0|y", 2, 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseVerdicts(tc.response, tc.n)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestParseVerdictsMalformed(t *testing.T) {
	for _, response := range []string{"", "I cannot compare these.", "9|1|x", "a|1|x"} {
		_, err := ParseVerdicts(response, 3)
		assert.ErrorIs(t, err, ErrMalformedResponse, "response %q", response)
	}
}

func TestParsePointwiseScore(t *testing.T) {
	got, err := ParsePointwiseScore("Score: 7")
	require.NoError(t, err)
	assert.Equal(t, 7, got)

	got, err = ParsePointwiseScore("10")
	require.NoError(t, err)
	assert.Equal(t, 10, got)

	_, err = ParsePointwiseScore("11")
	assert.ErrorIs(t, err, ErrMalformedResponse)

	_, err = ParsePointwiseScore("no idea")
	assert.ErrorIs(t, err, ErrMalformedResponse)
}

func TestRenderPairwisePrompt(t *testing.T) {
	candidate := types.Document{Title: "Sharded  caches", Summary: "line one\nline two"}
	anchors := []types.Document{
		{Title: "Anchor A", Summary: "uses | pipes"},
		{Title: "Anchor B", Summary: "plain"},
	}
	prompt, err := renderPairwisePrompt(candidate, anchors)
	require.NoError(t, err)

	assert.Contains(t, prompt, "Title: Sharded caches")
	assert.Contains(t, prompt, "Summary: line one line two")
	assert.Contains(t, prompt, `| 1 | Anchor A | uses \| pipes |`)
	assert.Contains(t, prompt, "| 2 | Anchor B | plain |")
	assert.NotContains(t, prompt, "| 3 |")
	assert.True(t, strings.Index(prompt, "Discovered source") < strings.Index(prompt, "Anchored sources"))
}

func TestRenderPointwisePrompt(t *testing.T) {
	prompt, err := renderPointwisePrompt(types.Document{Title: "T", Summary: "S"})
	require.NoError(t, err)
	assert.Contains(t, prompt, "Title: T")
	assert.Contains(t, prompt, "Summary: S")
}

func TestSystemPromptsEmbedded(t *testing.T) {
	assert.NotEmpty(t, pairwiseSystemPrompt)
	assert.NotEmpty(t, pointwiseSystemPrompt)
}
