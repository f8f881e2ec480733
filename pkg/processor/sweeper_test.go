package processor

import (
	"context"
	"sort"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/Gobusters/ectologger/zapadapter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Ramsey-B/fern/pkg/blocking"
	"github.com/Ramsey-B/fern/pkg/models"
)

func testLogger() ectologger.Logger {
	zapLogger, _ := zap.NewDevelopment()
	return zapadapter.NewZapEctoLogger(zapLogger, nil)
}

func strPtr(s string) *string {
	return &s
}

func TestSweep(t *testing.T) {
	logger := testLogger()
	blocker := blocking.NewEngine(logger, blocking.EngineConfig{MaxBlockSize: 100})
	sweeper := NewSweeper(logger, blocker)

	records := []*models.Record{
		{ID: "rec-1", Name: strPtr("Jane Doe"), Department: strPtr("Computer Science")},
		{ID: "rec-2", Name: strPtr("Jane Doe"), Department: strPtr("Computer Science")},
		{ID: "rec-3", Name: strPtr("Bob Quartz"), Department: strPtr("Physics")},
	}

	t.Run("finds pairs that share blocks", func(t *testing.T) {
		result, err := sweeper.Sweep(context.Background(), records, nil)
		require.NoError(t, err)

		assert.Contains(t, result.Pairs, models.CandidatePair{A: "rec-1", B: "rec-2"})
		assert.NotContains(t, result.Pairs, models.CandidatePair{A: "rec-1", B: "rec-3"})
		assert.NotContains(t, result.Pairs, models.CandidatePair{A: "rec-2", B: "rec-3"})
	})

	t.Run("pairs are sorted", func(t *testing.T) {
		result, err := sweeper.Sweep(context.Background(), records, nil)
		require.NoError(t, err)

		sorted := sort.SliceIsSorted(result.Pairs, func(i, j int) bool {
			if result.Pairs[i].A != result.Pairs[j].A {
				return result.Pairs[i].A < result.Pairs[j].A
			}
			return result.Pairs[i].B < result.Pairs[j].B
		})
		assert.True(t, sorted)
	})

	t.Run("metrics describe the sweep", func(t *testing.T) {
		result, err := sweeper.Sweep(context.Background(), records, nil)
		require.NoError(t, err)

		assert.Equal(t, 3, result.Metrics.RecordCount)
		assert.Equal(t, len(result.Pairs), result.Metrics.PairCount)
		assert.Greater(t, result.Metrics.ReductionRatio, 0.0)
	})

	t.Run("unknown strategy names are skipped", func(t *testing.T) {
		result, err := sweeper.Sweep(context.Background(), records, []string{"department", "zip_code"})
		require.NoError(t, err)

		assert.Equal(t, []models.CandidatePair{{A: "rec-1", B: "rec-2"}}, result.Pairs)
	})

	t.Run("empty population yields no pairs", func(t *testing.T) {
		result, err := sweeper.Sweep(context.Background(), nil, nil)
		require.NoError(t, err)

		assert.Empty(t, result.Pairs)
		assert.Equal(t, 0, result.Metrics.RecordCount)
	})
}
