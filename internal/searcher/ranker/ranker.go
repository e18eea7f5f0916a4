// Package ranker orders postings for a single-term query. Raw term frequency
// is the only signal.
package ranker

import (
	"sort"

	"github.com/Adithya-Monish-Kumar-K/termsearch/internal/indexer/index"
)

// Rank sorts postings by frequency, highest first, in place and returns them
// truncated to limit (0 keeps everything). Equal frequencies keep their
// incoming order.
func Rank(postings index.PostingList, limit int) index.PostingList {
	sort.SliceStable(postings, func(i, j int) bool {
		return postings[i].Frequency > postings[j].Frequency
	})
	if limit > 0 && len(postings) > limit {
		postings = postings[:limit]
	}
	return postings
}
