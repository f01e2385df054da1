// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package canonical maps raw document URLs to a stable canonical form by
// following redirects, honoring <link rel="canonical">, and stripping
// tracking noise.
package canonical

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"

	"github.com/pdiddy/curation-engine/internal/httputil"
	"github.com/pdiddy/curation-engine/internal/retry"
	"github.com/pdiddy/curation-engine/pkg/types"
)

// maxPageBytes bounds how much of an HTML page is read looking for the
// canonical link.
const maxPageBytes = 1 << 20

// retryDelay is the base backoff between fetch attempts. Tests override it.
var retryDelay = 500 * time.Millisecond

var trackingQueryKeys = map[string]struct{}{
	"fbclid":  {},
	"gclid":   {},
	"dclid":   {},
	"msclkid": {},
	"mc_cid":  {},
	"mc_eid":  {},
	"ref":     {},
	"ref_src": {},
	"igshid":  {},
}

// Canonicalizer resolves URLs over HTTP.
type Canonicalizer struct {
	client     *http.Client
	userAgent  string
	maxRetries int
	log        zerolog.Logger
}

// New builds a Canonicalizer from the dedup stage settings.
func New(cfg types.DedupConfig, log zerolog.Logger) *Canonicalizer {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Canonicalizer{
		client:     &http.Client{Timeout: timeout},
		userAgent:  cfg.UserAgent,
		maxRetries: cfg.MaxRetries,
		log:        log,
	}
}

// NewWithClient builds a Canonicalizer around an existing HTTP client.
func NewWithClient(client *http.Client, userAgent string, maxRetries int, log zerolog.Logger) *Canonicalizer {
	return &Canonicalizer{client: client, userAgent: userAgent, maxRetries: maxRetries, log: log}
}

// Canonicalize returns the canonical form of raw. It never fails: when the
// page cannot be fetched the cleaned raw URL is returned.
func (c *Canonicalizer) Canonicalize(ctx context.Context, raw string) string {
	cleaned := Clean(raw)
	if !isHTTP(cleaned) {
		return cleaned
	}

	resolved, err := retry.Do(ctx, c.maxRetries, retryDelay,
		func(err error, attempt int) {
			c.log.Debug().Err(err).Str("url", raw).Int("attempt", attempt).Msg("canonical fetch failed")
		},
		func(ctx context.Context) (string, error) {
			return c.resolve(ctx, cleaned)
		})
	if err != nil {
		c.log.Warn().Err(err).Str("url", raw).Msg("canonicalization fell back to cleaned url")
		return cleaned
	}
	return Clean(resolved)
}

// resolve fetches target, following redirects, and returns the page's
// canonical link if it declares one, otherwise the final URL.
func (c *Canonicalizer) resolve(ctx context.Context, target string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetching %s: %w", target, err)
	}
	defer resp.Body.Close()

	if httputil.Retryable(resp.StatusCode) {
		return "", fmt.Errorf("fetching %s: status %d", target, resp.StatusCode)
	}

	final := resp.Request.URL
	if resp.StatusCode >= 400 || !isHTML(resp.Header.Get("Content-Type")) {
		return final.String(), nil
	}

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return final.String(), nil
	}
	if link := canonicalLink(doc, final); link != "" {
		return link, nil
	}
	return final.String(), nil
}

// canonicalLink returns the absolute href of the first
// <link rel="canonical"> in doc, resolved against base.
func canonicalLink(doc *goquery.Document, base *url.URL) string {
	var found string
	doc.Find("link[rel]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		rel, _ := s.Attr("rel")
		if !hasToken(rel, "canonical") {
			return true
		}
		href, ok := s.Attr("href")
		href = strings.TrimSpace(href)
		if !ok || href == "" {
			return true
		}
		ref, err := base.Parse(href)
		if err != nil || (ref.Scheme != "http" && ref.Scheme != "https") {
			return true
		}
		found = ref.String()
		return false
	})
	return found
}

// Clean normalizes a URL without network access: lower-cased scheme and
// host, default ports and fragments dropped, duplicate and trailing slashes
// removed, tracking parameters stripped, and query keys sorted. Input that
// does not parse as an absolute URL is returned trimmed.
func Clean(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}

	parsed, err := url.Parse(trimmed)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return trimmed
	}

	parsed.Scheme = strings.ToLower(parsed.Scheme)
	host := strings.ToLower(parsed.Hostname())
	if strings.Contains(host, ":") {
		host = "[" + host + "]"
	}
	if port := parsed.Port(); port != "" {
		defaultPort := (parsed.Scheme == "http" && port == "80") || (parsed.Scheme == "https" && port == "443")
		if !defaultPort {
			host = host + ":" + port
		}
	}
	parsed.Host = host
	parsed.User = nil
	parsed.Fragment = ""
	parsed.RawFragment = ""

	path := parsed.EscapedPath()
	for strings.Contains(path, "//") {
		path = strings.ReplaceAll(path, "//", "/")
	}
	if path == "" {
		path = "/"
	}
	if path != "/" {
		path = strings.TrimSuffix(path, "/")
	}
	if unescaped, err := url.PathUnescape(path); err == nil {
		parsed.Path = unescaped
		parsed.RawPath = path
	}

	parsed.RawQuery = cleanRawQuery(parsed.RawQuery)
	parsed.ForceQuery = false

	return parsed.String()
}

// cleanRawQuery strips tracking parameters and sorts the query. A query
// that url.ParseQuery rejects (semicolon separators, bad escapes) is cleaned
// segment by segment with unparsable segments kept verbatim, so distinct
// queries never collapse into one.
func cleanRawQuery(raw string) string {
	if q, err := url.ParseQuery(raw); err == nil {
		return cleanQuery(q)
	}

	var kept []string
	for _, segment := range strings.Split(raw, "&") {
		if segment == "" {
			continue
		}
		if !strings.Contains(segment, ";") && isTrackingKey(segmentKey(segment)) {
			continue
		}
		kept = append(kept, segment)
	}
	sort.Strings(kept)
	return strings.Join(kept, "&")
}

func segmentKey(segment string) string {
	key, _, _ := strings.Cut(segment, "=")
	if unescaped, err := url.QueryUnescape(key); err == nil {
		return unescaped
	}
	return key
}

func isTrackingKey(key string) bool {
	lower := strings.ToLower(key)
	if strings.HasPrefix(lower, "utm_") {
		return true
	}
	_, ok := trackingQueryKeys[lower]
	return ok
}

func cleanQuery(q url.Values) string {
	for key := range q {
		if isTrackingKey(key) {
			q.Del(key)
		}
	}
	if len(q) == 0 {
		return ""
	}
	for _, values := range q {
		sort.Strings(values)
	}
	// Encode sorts by key.
	return q.Encode()
}

func isHTTP(u string) bool {
	return strings.HasPrefix(u, "http://") || strings.HasPrefix(u, "https://")
}

func isHTML(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == "text/html" || mediaType == "application/xhtml+xml"
}

func hasToken(list, token string) bool {
	for _, f := range strings.Fields(list) {
		if strings.EqualFold(f, token) {
			return true
		}
	}
	return false
}
