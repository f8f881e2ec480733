package models

// SimilarityVector holds per-field similarity scores in [0,1] for a record
// pair, plus a composite score. A field absent from Fields means the field
// was missing on one or both records and contributed no evidence.
type SimilarityVector struct {
	Fields  map[string]float64 `json:"fields"`
	Overall float64            `json:"overall"`
}

// Has reports whether the vector carries a score for the field.
func (v SimilarityVector) Has(field string) bool {
	_, ok := v.Fields[field]
	return ok
}

// FieldProbability is a Fellegi-Sunter (m, u) pair for one field: M is the
// probability the field agrees given a true match, U given a non-match.
// Both must be strictly positive so the log-ratio is defined.
type FieldProbability struct {
	M float64 `json:"m"`
	U float64 `json:"u"`
}

// LinkageResult is the scored outcome for one candidate.
type LinkageResult struct {
	Candidate          *Record                     `json:"candidate"`
	Vector             SimilarityVector            `json:"vector"`
	FieldProbabilities map[string]FieldProbability `json:"field_probabilities,omitempty"`
	LogLikelihoodRatio float64                     `json:"log_likelihood_ratio"`
	MatchProbability   float64                     `json:"match_probability"`
}
