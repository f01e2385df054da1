// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package docfile reads candidate documents from YAML or JSON files and
// writes ranked documents back out.
package docfile

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/curation-engine/pkg/types"
)

// Format is an on-disk encoding.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// dateLayouts are the published_date forms accepted on input.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// FormatFromPath picks a format from the file extension. Anything that is
// not .json is YAML.
func FormatFromPath(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return FormatJSON
	}
	return FormatYAML
}

// record is the input form of a candidate. Dates are kept as text so the
// looser layouts scrapers emit can be parsed.
type record struct {
	URL           string   `json:"url" yaml:"url"`
	Title         string   `json:"title" yaml:"title"`
	Summary       string   `json:"summary" yaml:"summary"`
	Source        string   `json:"source" yaml:"source"`
	Authors       []string `json:"authors" yaml:"authors"`
	PublishedDate string   `json:"published_date" yaml:"published_date"`
	ContentType   string   `json:"content_type" yaml:"content_type"`
	Domains       []string `json:"domains" yaml:"domains"`
}

// envelope is the object form of an input file.
type envelope struct {
	Documents []record `json:"documents" yaml:"documents"`
}

// ReadFile loads candidates from path.
func ReadFile(path string) ([]types.Candidate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	candidates, err := Decode(data, FormatFromPath(path))
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return candidates, nil
}

// Read loads candidates from r.
func Read(r io.Reader, format Format) ([]types.Candidate, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading input: %w", err)
	}
	return Decode(data, format)
}

// Decode parses candidates from data. The top level is either a list of
// documents or an object with a "documents" list.
func Decode(data []byte, format Format) ([]types.Candidate, error) {
	var records []record
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, nil
	}

	switch format {
	case FormatJSON:
		if trimmed[0] == '[' {
			if err := json.Unmarshal(trimmed, &records); err != nil {
				return nil, err
			}
		} else {
			var env envelope
			if err := json.Unmarshal(trimmed, &env); err != nil {
				return nil, err
			}
			records = env.Documents
		}
	default:
		var node yaml.Node
		if err := yaml.Unmarshal(trimmed, &node); err != nil {
			return nil, err
		}
		if len(node.Content) > 0 && node.Content[0].Kind == yaml.SequenceNode {
			if err := node.Decode(&records); err != nil {
				return nil, err
			}
		} else {
			var env envelope
			if err := node.Decode(&env); err != nil {
				return nil, err
			}
			records = env.Documents
		}
	}

	candidates := make([]types.Candidate, 0, len(records))
	for i, rec := range records {
		c, err := rec.candidate()
		if err != nil {
			return nil, fmt.Errorf("document %d: %w", i+1, err)
		}
		candidates = append(candidates, c)
	}
	return candidates, nil
}

func (r record) candidate() (types.Candidate, error) {
	url := strings.TrimSpace(r.URL)
	if url == "" {
		return types.Candidate{}, fmt.Errorf("missing url")
	}

	ct := types.ContentType(strings.ToLower(strings.TrimSpace(r.ContentType)))
	switch ct {
	case types.ContentPaper, types.ContentTweet, types.ContentArticle:
	default:
		return types.Candidate{}, fmt.Errorf("%s: unknown content_type %q", url, r.ContentType)
	}

	published, err := parseDate(r.PublishedDate)
	if err != nil {
		return types.Candidate{}, fmt.Errorf("%s: %w", url, err)
	}

	c := types.Candidate{
		Document: types.Document{
			URL:           url,
			Title:         strings.TrimSpace(r.Title),
			Summary:       strings.TrimSpace(r.Summary),
			Source:        r.Source,
			Authors:       r.Authors,
			PublishedDate: published,
			ContentType:   ct,
		},
	}
	for _, d := range r.Domains {
		domain := types.Domain(strings.ToLower(strings.TrimSpace(d)))
		if !domain.Valid() {
			return types.Candidate{}, fmt.Errorf("%s: unknown domain %q", url, d)
		}
		c.Domains = append(c.Domains, domain)
	}
	return c, nil
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid published_date %q", s)
}

// WriteFile saves docs to path, creating its directory. The format follows
// the extension.
func WriteFile(path string, docs []types.Document) error {
	if docs == nil {
		docs = []types.Document{}
	}
	return writeFile(path, docs)
}

// WriteCandidatesFile saves candidates, domains included, to path so a later
// stage can read them back.
func WriteCandidatesFile(path string, candidates []types.Candidate) error {
	if candidates == nil {
		candidates = []types.Candidate{}
	}
	return writeFile(path, candidates)
}

// Write encodes docs as a list in the given format.
func Write(w io.Writer, docs []types.Document, format Format) error {
	if docs == nil {
		docs = []types.Document{}
	}
	return encode(w, docs, format)
}

// WriteCandidates encodes candidates as a list in the given format.
func WriteCandidates(w io.Writer, candidates []types.Candidate, format Format) error {
	if candidates == nil {
		candidates = []types.Candidate{}
	}
	return encode(w, candidates, format)
}

func writeFile(path string, v any) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating output directory: %w", err)
		}
	}
	var buf bytes.Buffer
	if err := encode(&buf, v, FormatFromPath(path)); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}

func encode(w io.Writer, v any, format Format) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("encoding json: %w", err)
		}
	default:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("encoding yaml: %w", err)
		}
		if err := enc.Close(); err != nil {
			return fmt.Errorf("encoding yaml: %w", err)
		}
	}
	return nil
}

// FormatTable writes ranked documents as a human-readable table to w.
func FormatTable(docs []types.Document, w io.Writer) {
	if len(docs) == 0 {
		fmt.Fprintln(w, "No documents selected.")
		return
	}

	fmt.Fprintf(w, "%-4s  %-7s  %-6s  %-60s  %s\n", "Rank", "Type", "Score", "Title", "Source")
	fmt.Fprintln(w, strings.Repeat("-", 100))

	for i, d := range docs {
		score := "-"
		if d.Score != nil {
			score = fmt.Sprintf("%.3f", *d.Score)
		}
		fmt.Fprintf(w, "%-4d  %-7s  %-6s  %-60s  %s\n",
			i+1, d.ContentType, score, truncate(d.Title, 60), d.Source)
	}
	fmt.Fprintf(w, "\n%d documents\n", len(docs))
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
