// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package guardrail

import (
	_ "embed"
	"fmt"
	"os"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/curation-engine/pkg/types"
)

//go:embed anchors.yaml
var defaultAnchorsYAML []byte

// AnchorSet holds the reference documents candidates are judged against.
// Irrelevant is the universal negative control. Lists are named groups of
// priority anchors and Domains maps each topic domain to the lists it pools.
type AnchorSet struct {
	Irrelevant []types.Document            `yaml:"irrelevant"`
	Lists      map[string][]types.Document `yaml:"lists"`
	Domains    map[types.Domain][]string   `yaml:"domains"`
}

// DefaultAnchors returns the built-in anchor set.
func DefaultAnchors() *AnchorSet {
	a, err := parseAnchors(defaultAnchorsYAML)
	if err != nil {
		panic(fmt.Sprintf("built-in anchors: %v", err))
	}
	return a
}

// LoadAnchors reads an anchor set from a YAML file.
func LoadAnchors(path string) (*AnchorSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading anchors %s: %w", path, err)
	}
	a, err := parseAnchors(data)
	if err != nil {
		return nil, fmt.Errorf("parsing anchors %s: %w", path, err)
	}
	return a, nil
}

func parseAnchors(data []byte) (*AnchorSet, error) {
	var a AnchorSet
	if err := yaml.Unmarshal(data, &a); err != nil {
		return nil, err
	}
	if len(a.Irrelevant) == 0 {
		return nil, fmt.Errorf("anchor set has no irrelevant documents")
	}
	for domain, lists := range a.Domains {
		if !domain.Valid() {
			return nil, fmt.Errorf("unknown domain %q", domain)
		}
		for _, name := range lists {
			if _, ok := a.Lists[name]; !ok {
				return nil, fmt.Errorf("domain %q refers to missing list %q", domain, name)
			}
		}
	}
	return &a, nil
}

// Pool returns the priority anchors for domains: the lists of every matched
// domain, taken in canonical domain order, with repeated URLs dropped. An
// empty result means no domain matched.
func (a *AnchorSet) Pool(domains []types.Domain) []types.Document {
	matched := make(map[types.Domain]bool, len(domains))
	for _, d := range domains {
		matched[d] = true
	}

	seenList := make(map[string]bool)
	seenURL := make(map[string]bool)
	var pool []types.Document
	for _, domain := range types.AllDomains {
		if !matched[domain] {
			continue
		}
		for _, name := range a.Domains[domain] {
			if seenList[name] {
				continue
			}
			seenList[name] = true
			for _, doc := range a.Lists[name] {
				if seenURL[doc.Key()] {
					continue
				}
				seenURL[doc.Key()] = true
				pool = append(pool, doc)
			}
		}
	}
	return pool
}
