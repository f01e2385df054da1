// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// ContentType tags what kind of item a Document is.
type ContentType string

const (
	ContentPaper   ContentType = "paper"
	ContentTweet   ContentType = "tweet"
	ContentArticle ContentType = "article"
)

// Domain identifies a topic area used to pick priority anchors.
type Domain string

const (
	DomainCloud           Domain = "cloud"
	DomainSystems         Domain = "systems"
	DomainCoreAI          Domain = "core-ai"
	DomainGenerativeLLM   Domain = "generative-llm"
	DomainDataEngineering Domain = "data-engineering"
	DomainCybersecurity   Domain = "cybersecurity"
	DomainAISafety        Domain = "ai-safety-governance"
)

// AllDomains lists every Domain in canonical order. Anchor pools are built
// in this order regardless of how a candidate lists its domains.
var AllDomains = []Domain{
	DomainCloud,
	DomainSystems,
	DomainCoreAI,
	DomainGenerativeLLM,
	DomainDataEngineering,
	DomainCybersecurity,
	DomainAISafety,
}

// Valid reports whether d is one of the known domains.
func (d Domain) Valid() bool {
	for _, known := range AllDomains {
		if d == known {
			return true
		}
	}
	return false
}

// Document is a candidate item collected by an upstream scraper. Its
// identity is the URL: two Documents with the same URL are the same item.
// A Document is a value; stages that score it return a new copy.
type Document struct {
	// URL identifies the document. After deduplication it is the
	// canonical form.
	URL string `json:"url" yaml:"url"`

	// Title is the headline or paper title.
	Title string `json:"title" yaml:"title"`

	// Summary is the abstract or a body excerpt.
	Summary string `json:"summary,omitempty" yaml:"summary,omitempty"`

	// Source names the feed the document came from (e.g. "arxiv").
	Source string `json:"source,omitempty" yaml:"source,omitempty"`

	// Authors lists the authors in source order.
	Authors []string `json:"authors,omitempty" yaml:"authors,omitempty"`

	// PublishedDate is the publication timestamp reported by the source.
	PublishedDate time.Time `json:"published_date,omitzero" yaml:"published_date,omitempty"`

	// ContentType is paper, tweet, or article.
	ContentType ContentType `json:"content_type" yaml:"content_type"`

	// Score is set on documents returned by selection.
	Score *float64 `json:"score,omitempty" yaml:"score,omitempty"`
}

// Key returns the identity of the document.
func (d Document) Key() string {
	return d.URL
}

// Equal reports whether d and other identify the same document.
func (d Document) Equal(other Document) bool {
	return d.URL == other.URL
}

// WithScore returns a copy of d carrying score.
func (d Document) WithScore(score float64) Document {
	d.Score = &score
	if d.Authors != nil {
		d.Authors = append([]string(nil), d.Authors...)
	}
	return d
}

// WithURL returns a copy of d with its URL replaced.
func (d Document) WithURL(url string) Document {
	d.URL = url
	return d
}

// Candidate pairs a Document with the topic domains an upstream classifier
// assigned to it. It is the record read from input files.
type Candidate struct {
	Document `yaml:",inline"`

	// Domains are the matched topic domains used for priority scoring.
	Domains []Domain `json:"domains,omitempty" yaml:"domains,omitempty"`
}

// ScoredDocument is a document with its guardrail scores.
type ScoredDocument struct {
	Document  Document `json:"document" yaml:"document"`
	Relevance float64  `json:"relevance" yaml:"relevance"`
	Priority  float64  `json:"priority" yaml:"priority"`
	Combined  float64  `json:"combined" yaml:"combined"`
}
