package ranker

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/termsearch/internal/indexer/index"
)

func TestRankDescending(t *testing.T) {
	got := Rank(index.PostingList{
		{DocID: 2, Frequency: 1},
		{DocID: 1, Frequency: 3},
		{DocID: 5, Frequency: 2},
	}, 0)
	require.Equal(t, index.PostingList{
		{DocID: 1, Frequency: 3},
		{DocID: 5, Frequency: 2},
		{DocID: 2, Frequency: 1},
	}, got)
}

func TestRankTiesKeepInsertionOrder(t *testing.T) {
	got := Rank(index.PostingList{
		{DocID: 9, Frequency: 2},
		{DocID: 3, Frequency: 4},
		{DocID: 1, Frequency: 2},
		{DocID: 7, Frequency: 2},
	}, 0)
	require.Equal(t, index.PostingList{
		{DocID: 3, Frequency: 4},
		{DocID: 9, Frequency: 2},
		{DocID: 1, Frequency: 2},
		{DocID: 7, Frequency: 2},
	}, got)
}

func TestRankLimit(t *testing.T) {
	got := Rank(index.PostingList{
		{DocID: 1, Frequency: 1},
		{DocID: 2, Frequency: 5},
		{DocID: 3, Frequency: 3},
	}, 2)
	require.Equal(t, index.PostingList{
		{DocID: 2, Frequency: 5},
		{DocID: 3, Frequency: 3},
	}, got)
}

func TestRankEmpty(t *testing.T) {
	require.Empty(t, Rank(nil, 0))
}
