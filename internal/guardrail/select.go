// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package guardrail

import (
	"container/heap"

	"github.com/pdiddy/curation-engine/pkg/types"
)

// Unbounded disables a selection cap.
const Unbounded = -1

type rankedItem struct {
	doc      types.ScoredDocument
	sequence int
}

// rankedHeap is a max-heap on combined score. Equal scores pop in
// insertion order.
type rankedHeap []rankedItem

func (h rankedHeap) Len() int { return len(h) }

func (h rankedHeap) Less(i, j int) bool {
	if h[i].doc.Combined != h[j].doc.Combined {
		return h[i].doc.Combined > h[j].doc.Combined
	}
	return h[i].sequence < h[j].sequence
}

func (h rankedHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *rankedHeap) Push(x any) { *h = append(*h, x.(rankedItem)) }

func (h *rankedHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// Select drains scored highest first into papers and articles, each capped
// by cfg (Unbounded for no cap), and returns papers followed by articles.
// Documents of other content types are not selected. Each returned document
// carries its combined score.
func Select(scored []types.ScoredDocument, cfg types.SelectionConfig) []types.Document {
	h := make(rankedHeap, 0, len(scored))
	for i, s := range scored {
		h = append(h, rankedItem{doc: s, sequence: i})
	}
	heap.Init(&h)

	var papers, articles []types.Document
	for h.Len() > 0 {
		item := heap.Pop(&h).(rankedItem)
		doc := item.doc.Document.WithScore(item.doc.Combined)

		switch doc.ContentType {
		case types.ContentPaper:
			if underCap(len(papers), cfg.MaxPapers) {
				papers = append(papers, doc)
			}
		case types.ContentArticle:
			if underCap(len(articles), cfg.MaxArticles) {
				articles = append(articles, doc)
			}
		}
	}

	return append(papers, articles...)
}

func underCap(n, limit int) bool {
	return limit < 0 || n < limit
}
