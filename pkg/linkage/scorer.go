// Package linkage implements Fellegi-Sunter probabilistic record linkage:
// per-field agreement probabilities combine additively in log-odds space,
// then a logistic transform yields a calibrated match probability.
package linkage

import (
	"math"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/fern/pkg/models"
)

// Scorer converts similarity vectors into match probabilities using a
// ProbabilityTable of per-field (m, u) estimates.
type Scorer struct {
	logger ectologger.Logger
	table  *ProbabilityTable
}

// NewScorer creates a new linkage scorer
func NewScorer(logger ectologger.Logger, table *ProbabilityTable) *Scorer {
	if table == nil {
		table = DefaultProbabilityTable()
	}
	return &Scorer{
		logger: logger,
		table:  table,
	}
}

// FieldProbabilities selects an (m, u) pair for every scored field in the
// vector based on its similarity band.
func (s *Scorer) FieldProbabilities(vector models.SimilarityVector) map[string]models.FieldProbability {
	probs := make(map[string]models.FieldProbability, len(vector.Fields))
	for field, similarity := range vector.Fields {
		probs[field] = s.table.Lookup(field, similarity)
	}
	return probs
}

// LogLikelihoodRatio sums ln(m/u) over all fields. Degenerate probabilities
// are skipped rather than dividing by zero; the table validation makes them
// unreachable for tables built through NewProbabilityTable.
func (s *Scorer) LogLikelihoodRatio(probs map[string]models.FieldProbability) float64 {
	ratio := 0.0
	for _, prob := range probs {
		if prob.M <= 0 || prob.U <= 0 {
			continue
		}
		ratio += math.Log(prob.M / prob.U)
	}
	return ratio
}

// MatchProbability applies the logistic transform to a log-likelihood ratio.
// The result is always strictly inside (0, 1).
func (s *Scorer) MatchProbability(logRatio float64) float64 {
	p := 1.0 / (1.0 + math.Exp(-logRatio))
	if p <= 0 {
		return 1e-12
	}
	if p >= 1 {
		return 1 - 1e-12
	}
	return p
}

// Score runs the full pipeline for one candidate and returns the assembled
// LinkageResult. Each field's marginal contribution stays inspectable through
// FieldProbabilities on the result.
func (s *Scorer) Score(candidate *models.Record, vector models.SimilarityVector) models.LinkageResult {
	probs := s.FieldProbabilities(vector)
	logRatio := s.LogLikelihoodRatio(probs)

	return models.LinkageResult{
		Candidate:          candidate,
		Vector:             vector,
		FieldProbabilities: probs,
		LogLikelihoodRatio: logRatio,
		MatchProbability:   s.MatchProbability(logRatio),
	}
}
