package index

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"sort"

	"github.com/Adithya-Monish-Kumar-K/termsearch/internal/indexer/tokenizer"
	apperrors "github.com/Adithya-Monish-Kumar-K/termsearch/pkg/errors"
)

// Index is a read-only inverted index. It is produced by Builder.Build and
// never changes afterwards, so any number of goroutines may read it.
type Index struct {
	terms       map[string]PostingList
	docCount    int
	fingerprint string
}

// Lookup returns a copy of the postings for term in insertion order.
func (x *Index) Lookup(term string) (PostingList, bool) {
	postings, ok := x.terms[term]
	if !ok {
		return nil, false
	}
	out := make(PostingList, len(postings))
	copy(out, postings)
	return out, true
}

// Terms returns every indexed term in lexical order.
func (x *Index) Terms() []string {
	terms := make([]string, 0, len(x.terms))
	for term := range x.terms {
		terms = append(terms, term)
	}
	sort.Strings(terms)
	return terms
}

func (x *Index) TermCount() int {
	return len(x.terms)
}

func (x *Index) DocCount() int {
	return x.docCount
}

// Snapshot returns the full index content sorted by term, with each term's
// postings sorted by document id. Two indexes built from the same documents
// have equal snapshots regardless of ingestion order.
func (x *Index) Snapshot() []TermEntry {
	entries := make([]TermEntry, 0, len(x.terms))
	for term, postings := range x.terms {
		sorted := make(PostingList, len(postings))
		copy(sorted, postings)
		sort.Slice(sorted, func(i, j int) bool {
			return sorted[i].DocID < sorted[j].DocID
		})
		entries = append(entries, TermEntry{
			Term:     term,
			Postings: sorted,
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Term < entries[j].Term
	})
	return entries
}

// Fingerprint is a hex SHA-256 digest of Snapshot.
func (x *Index) Fingerprint() string {
	return x.fingerprint
}

func fingerprint(entries []TermEntry) string {
	h := sha256.New()
	var buf [8]byte
	for _, entry := range entries {
		binary.LittleEndian.PutUint32(buf[:4], uint32(len(entry.Term)))
		h.Write(buf[:4])
		h.Write([]byte(entry.Term))
		binary.LittleEndian.PutUint32(buf[:4], uint32(len(entry.Postings)))
		h.Write(buf[:4])
		for _, p := range entry.Postings {
			binary.LittleEndian.PutUint32(buf[:4], p.DocID)
			binary.LittleEndian.PutUint32(buf[4:], uint32(p.Frequency))
			h.Write(buf[:])
		}
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Builder accumulates documents into an Index. It is not safe for concurrent
// use and must not be used after Build.
type Builder struct {
	terms map[string]PostingList
	docs  map[uint32]struct{}
	built bool
}

func NewBuilder() *Builder {
	return &Builder{
		terms: make(map[string]PostingList),
		docs:  make(map[uint32]struct{}),
	}
}

// Add tokenizes text and appends one posting per distinct term. It returns the
// number of tokens in the document. Adding a document id twice fails with
// ErrMalformedDocument and leaves the builder unchanged.
func (b *Builder) Add(docID uint32, text string) (int, error) {
	if b.built {
		panic("index: Add called after Build")
	}
	if _, dup := b.docs[docID]; dup {
		return 0, apperrors.Newf(apperrors.ErrMalformedDocument, "duplicate document id %d", docID)
	}
	b.docs[docID] = struct{}{}

	terms := tokenizer.Normalize(text)
	termFreq := make(map[string]int)
	for _, term := range terms {
		termFreq[term]++
	}
	for term, freq := range termFreq {
		b.terms[term] = append(b.terms[term], Posting{
			DocID:     docID,
			Frequency: freq,
		})
	}
	return len(terms), nil
}

func (b *Builder) DocCount() int {
	return len(b.docs)
}

// Build freezes the accumulated postings into an Index.
func (b *Builder) Build() *Index {
	b.built = true
	x := &Index{
		terms:    b.terms,
		docCount: len(b.docs),
	}
	b.terms = nil
	x.fingerprint = fingerprint(x.Snapshot())
	return x
}
