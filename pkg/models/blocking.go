package models

// CandidatePair is an unordered pair of record identifiers, canonicalized so
// the lexicographically smaller identifier is first. The canonical form is
// the dedup key when pairs are accumulated across blocks and strategies.
type CandidatePair struct {
	A string `json:"a"`
	B string `json:"b"`
}

// NewCandidatePair canonicalizes the pair.
func NewCandidatePair(a, b string) CandidatePair {
	if b < a {
		a, b = b, a
	}
	return CandidatePair{A: a, B: b}
}

// BlockingMetrics summarizes one indexing pass. ReductionRatio is the
// fraction of brute-force comparisons avoided; it must approach 1 as the
// population grows for blocking to be worth anything.
type BlockingMetrics struct {
	RecordCount      int     `json:"record_count"`
	BlockCount       int     `json:"block_count"`
	PairCount        int     `json:"pair_count"`
	AverageBlockSize float64 `json:"average_block_size"`
	ReductionRatio   float64 `json:"reduction_ratio"`
	Overflowed       int     `json:"overflowed"`
	ElapsedMs        int64   `json:"elapsed_ms"`
}
