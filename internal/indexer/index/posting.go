package index

// Posting records how often a term occurs in one document. Frequency is
// always positive.
type Posting struct {
	DocID     uint32 `json:"doc_id"`
	Frequency int    `json:"frequency"`
}

type PostingList []Posting

// TermEntry is one term with its postings, as returned by Snapshot.
type TermEntry struct {
	Term     string
	Postings PostingList
}
