// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package guardrail

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"text/template"

	"github.com/pdiddy/curation-engine/pkg/types"
)

// ErrMalformedResponse is returned when a judge response has no usable verdict.
var ErrMalformedResponse = errors.New("malformed judge response")

//go:embed pairwise_system.md
var pairwiseSystemPrompt string

//go:embed pointwise_system.md
var pointwiseSystemPrompt string

// pairwisePromptTmpl renders the candidate and one batch of anchors as a
// markdown table. Anchor IDs start at 1.
var pairwisePromptTmpl = template.Must(template.New("pairwise").Funcs(template.FuncMap{
	"id":   func(i int) int { return i + 1 },
	"cell": tableCell,
}).Parse(`**Discovered source**:
  - Title: {{cell .Candidate.Title}}
  - Summary: {{cell .Candidate.Summary}}

**Anchored sources**:
| ID | Title | Summary |
|----|-------|---------|
{{range $i, $a := .Anchors}}| {{id $i}} | {{cell $a.Title}} | {{cell $a.Summary}} |
{{end}}`))

var pointwisePromptTmpl = template.Must(template.New("pointwise").Parse(`Read the following document excerpt:

Title: {{.Title}}
Summary: {{.Summary}}

Assign an integer score from 0 to 10 for this document.
`))

// tableCell flattens s so it fits in one markdown table cell.
func tableCell(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	return strings.ReplaceAll(s, "|", `\|`)
}

func renderPairwisePrompt(candidate types.Document, anchors []types.Document) (string, error) {
	var buf bytes.Buffer
	err := pairwisePromptTmpl.Execute(&buf, struct {
		Candidate types.Document
		Anchors   []types.Document
	}{candidate, anchors})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}

func renderPointwisePrompt(doc types.Document) (string, error) {
	var buf bytes.Buffer
	if err := pointwisePromptTmpl.Execute(&buf, doc); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// verdictLine matches "index|bit|explanation", optionally framed as a
// markdown table row.
var verdictLine = regexp.MustCompile(`^\s*\|?\s*(\d+)\s*\|\s*([01])\s*(?:\||$)`)

// ParseVerdicts counts the anchors the candidate beat in a pairwise
// response for a batch of n anchors. Lines that do not match, or whose index
// is outside 1..n, are ignored; an index seen twice counts once. A response
// with no usable line is ErrMalformedResponse.
func ParseVerdicts(response string, n int) (int, error) {
	seen := make(map[int]bool, n)
	wins := 0
	for _, line := range strings.Split(response, "\n") {
		m := verdictLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		idx, err := strconv.Atoi(m[1])
		if err != nil || idx < 1 || idx > n || seen[idx] {
			continue
		}
		seen[idx] = true
		if m[2] == "1" {
			wins++
		}
	}
	if len(seen) == 0 {
		return 0, fmt.Errorf("%w: no verdict lines for %d anchors", ErrMalformedResponse, n)
	}
	return wins, nil
}

var firstInteger = regexp.MustCompile(`\d+`)

// ParsePointwiseScore extracts the 0-10 score from a pointwise response.
func ParsePointwiseScore(response string) (int, error) {
	m := firstInteger.FindString(response)
	if m == "" {
		return 0, fmt.Errorf("%w: no score found", ErrMalformedResponse)
	}
	score, err := strconv.Atoi(m)
	if err != nil || score > 10 {
		return 0, fmt.Errorf("%w: score %q out of range", ErrMalformedResponse, m)
	}
	return score, nil
}
