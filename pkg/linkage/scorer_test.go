package linkage

import (
	"math"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/Gobusters/ectologger/zapadapter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Ramsey-B/fern/pkg/models"
)

func testLogger() ectologger.Logger {
	zapLogger, _ := zap.NewDevelopment()
	return zapadapter.NewZapEctoLogger(zapLogger, nil)
}

func TestNewProbabilityTable(t *testing.T) {
	t.Run("valid table", func(t *testing.T) {
		table, err := NewProbabilityTable(map[string][]Band{
			"email": {{MinSimilarity: 0.9, M: 0.95, U: 0.01}},
		}, defaultBands())
		require.NoError(t, err)
		assert.NotNil(t, table)
	})

	t.Run("zero m rejected", func(t *testing.T) {
		_, err := NewProbabilityTable(map[string][]Band{
			"email": {{MinSimilarity: 0.9, M: 0, U: 0.01}},
		}, defaultBands())
		assert.Error(t, err)
	})

	t.Run("u above one rejected", func(t *testing.T) {
		_, err := NewProbabilityTable(map[string][]Band{
			"email": {{MinSimilarity: 0.9, M: 0.9, U: 1.5}},
		}, defaultBands())
		assert.Error(t, err)
	})

	t.Run("empty default bands rejected", func(t *testing.T) {
		_, err := NewProbabilityTable(nil, nil)
		assert.Error(t, err)
	})
}

func TestProbabilityTableLookup(t *testing.T) {
	table := DefaultProbabilityTable()

	t.Run("high similarity selects high m low u", func(t *testing.T) {
		prob := table.Lookup("email", 0.99)
		assert.Greater(t, prob.M, 0.9)
		assert.Less(t, prob.U, 0.01)
	})

	t.Run("low similarity selects disagreement band", func(t *testing.T) {
		prob := table.Lookup("email", 0.1)
		assert.Less(t, prob.M, prob.U)
	})

	t.Run("unknown field falls back to default bands", func(t *testing.T) {
		prob := table.Lookup("shoe_size", 0.99)
		assert.Equal(t, models.FieldProbability{M: 0.90, U: 0.05}, prob)
	})
}

func TestParseTable(t *testing.T) {
	t.Run("empty document yields defaults", func(t *testing.T) {
		table, err := ParseTable(nil)
		require.NoError(t, err)
		assert.Equal(t, DefaultProbabilityTable().Lookup("email", 0.99), table.Lookup("email", 0.99))
	})

	t.Run("overrides a field", func(t *testing.T) {
		doc := []byte(`{"fields": {"email": [{"min_similarity": 0.5, "m": 0.5, "u": 0.25}]}}`)
		table, err := ParseTable(doc)
		require.NoError(t, err)
		assert.Equal(t, models.FieldProbability{M: 0.5, U: 0.25}, table.Lookup("email", 0.9))
	})

	t.Run("invalid probabilities fail", func(t *testing.T) {
		doc := []byte(`{"fields": {"email": [{"min_similarity": 0.5, "m": -1, "u": 0.25}]}}`)
		_, err := ParseTable(doc)
		assert.Error(t, err)
	})

	t.Run("malformed json fails", func(t *testing.T) {
		_, err := ParseTable([]byte(`{`))
		assert.Error(t, err)
	})
}

func TestLogLikelihoodRatio(t *testing.T) {
	scorer := NewScorer(testLogger(), nil)

	t.Run("agreement on strong fields is positive evidence", func(t *testing.T) {
		ratio := scorer.LogLikelihoodRatio(map[string]models.FieldProbability{
			"email": {M: 0.97, U: 0.001},
		})
		assert.InDelta(t, math.Log(0.97/0.001), ratio, 0.0001)
		assert.Greater(t, ratio, 0.0)
	})

	t.Run("fields sum additively", func(t *testing.T) {
		probs := map[string]models.FieldProbability{
			"email": {M: 0.97, U: 0.001},
			"name":  {M: 0.90, U: 0.02},
		}
		expected := math.Log(0.97/0.001) + math.Log(0.90/0.02)
		assert.InDelta(t, expected, scorer.LogLikelihoodRatio(probs), 0.0001)
	})

	t.Run("degenerate probabilities are skipped", func(t *testing.T) {
		probs := map[string]models.FieldProbability{
			"email": {M: 0.97, U: 0.001},
			"bad":   {M: 0, U: 0},
		}
		assert.InDelta(t, math.Log(0.97/0.001), scorer.LogLikelihoodRatio(probs), 0.0001)
	})

	t.Run("empty vector is neutral", func(t *testing.T) {
		assert.Equal(t, 0.0, scorer.LogLikelihoodRatio(nil))
	})
}

func TestMatchProbability(t *testing.T) {
	scorer := NewScorer(testLogger(), nil)

	t.Run("bounds are exclusive", func(t *testing.T) {
		for _, ratio := range []float64{-1000, -10, 0, 10, 1000} {
			p := scorer.MatchProbability(ratio)
			assert.Greater(t, p, 0.0)
			assert.Less(t, p, 1.0)
		}
	})

	t.Run("monotonically increasing in log ratio", func(t *testing.T) {
		previous := 0.0
		for ratio := -20.0; ratio <= 20.0; ratio += 0.5 {
			p := scorer.MatchProbability(ratio)
			assert.Greater(t, p, previous)
			previous = p
		}
	})

	t.Run("zero ratio is even odds", func(t *testing.T) {
		assert.InDelta(t, 0.5, scorer.MatchProbability(0), 0.0001)
	})
}

func TestScore(t *testing.T) {
	scorer := NewScorer(testLogger(), nil)

	t.Run("near-exact agreement scores high", func(t *testing.T) {
		candidate := &models.Record{ID: "ent-1"}
		vector := models.SimilarityVector{
			Fields: map[string]float64{
				"name":    0.98,
				"email":   1.0,
				"card_id": 1.0,
			},
			Overall: 0.99,
		}

		result := scorer.Score(candidate, vector)
		assert.Same(t, candidate, result.Candidate)
		assert.Len(t, result.FieldProbabilities, 3)
		assert.Greater(t, result.MatchProbability, 0.9)
	})

	t.Run("disagreement everywhere scores low", func(t *testing.T) {
		vector := models.SimilarityVector{
			Fields: map[string]float64{
				"name":  0.2,
				"email": 0.1,
				"phone": 0.3,
			},
			Overall: 0.2,
		}

		result := scorer.Score(&models.Record{ID: "ent-2"}, vector)
		assert.Less(t, result.MatchProbability, 0.3)
	})
}
