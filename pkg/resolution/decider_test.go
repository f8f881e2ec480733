package resolution

import (
	"context"
	"fmt"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/Gobusters/ectologger/zapadapter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Ramsey-B/fern/pkg/blocking"
	"github.com/Ramsey-B/fern/pkg/linkage"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/similarity"
)

func testLogger() ectologger.Logger {
	zapLogger, _ := zap.NewDevelopment()
	return zapadapter.NewZapEctoLogger(zapLogger, nil)
}

func strPtr(s string) *string {
	return &s
}

// failingEvaluator wraps the default evaluator and fails for chosen records.
type failingEvaluator struct {
	inner   similarity.Evaluator
	failFor map[string]bool
}

func (e *failingEvaluator) Compare(a, b *models.Record) (models.SimilarityVector, error) {
	if e.failFor[a.ID] || e.failFor[b.ID] {
		return models.SimilarityVector{}, fmt.Errorf("evaluator unavailable")
	}
	return e.inner.Compare(a, b)
}

func newTestDecider(t *testing.T, evaluator similarity.Evaluator, config DeciderConfig) *Decider {
	t.Helper()

	logger := testLogger()
	if evaluator == nil {
		var err error
		evaluator, err = similarity.NewFieldEvaluator(nil)
		require.NoError(t, err)
	}

	decider, err := NewDecider(
		logger,
		blocking.NewEngine(logger, blocking.DefaultConfig()),
		evaluator,
		linkage.NewScorer(logger, nil),
		config,
	)
	require.NoError(t, err)
	return decider
}

func TestNewDecider(t *testing.T) {
	t.Run("inverted thresholds rejected", func(t *testing.T) {
		logger := testLogger()
		config := DefaultConfig()
		config.HighThreshold = 0.2
		config.LowThreshold = 0.8

		_, err := NewDecider(logger, blocking.NewEngine(logger, blocking.DefaultConfig()), nil, linkage.NewScorer(logger, nil), config)
		assert.Error(t, err)
	})

	t.Run("defaults fill in zero values", func(t *testing.T) {
		config := DefaultConfig()
		config.BatchSize = 0
		config.MaxConcurrency = 0
		config.Strategies = nil

		decider := newTestDecider(t, nil, config)
		assert.Equal(t, 100, decider.config.BatchSize)
		assert.Equal(t, 8, decider.config.MaxConcurrency)
		assert.NotEmpty(t, decider.config.Strategies)
	})
}

func TestResolveExactDuplicate(t *testing.T) {
	decider := newTestDecider(t, nil, DefaultConfig())

	candidate := &models.Record{
		ID:     "ent-1",
		Name:   strPtr("Jane Doe"),
		Email:  strPtr("jane.doe@example.edu"),
		CardID: strPtr("CARD-998877"),
	}
	record := &models.Record{
		ID:     "obs-1",
		Name:   strPtr("Jane Doe"),
		Email:  strPtr("jane.doe@example.edu"),
		CardID: strPtr("CARD-998877"),
	}

	decision, err := decider.Resolve(context.Background(), record, []*models.Record{candidate})
	require.NoError(t, err)

	assert.Equal(t, models.DecisionMatch, decision.Type)
	assert.Same(t, candidate, decision.Entity)
	assert.GreaterOrEqual(t, decision.Confidence, 0.9)
	require.NotNil(t, decision.Best)
	assert.GreaterOrEqual(t, decision.Best.MatchProbability, 0.9)
}

func TestResolveNoCandidates(t *testing.T) {
	decider := newTestDecider(t, nil, DefaultConfig())

	record := &models.Record{ID: "obs-1", Name: strPtr("Jane Doe")}

	t.Run("explicit empty list", func(t *testing.T) {
		decision, err := decider.Resolve(context.Background(), record, []*models.Record{})
		require.NoError(t, err)
		assert.Equal(t, models.DecisionCreateNew, decision.Type)
		assert.Equal(t, 1.0, decision.Confidence)
		assert.Nil(t, decision.Entity)
	})

	t.Run("no index installed", func(t *testing.T) {
		decision, err := decider.Resolve(context.Background(), record, nil)
		require.NoError(t, err)
		assert.Equal(t, models.DecisionCreateNew, decision.Type)
		assert.Equal(t, 1.0, decision.Confidence)
	})
}

func TestResolveDisjointIdentities(t *testing.T) {
	decider := newTestDecider(t, nil, DefaultConfig())

	// populate the index with records sharing nothing with the probe
	logger := testLogger()
	engine := blocking.NewEngine(logger, blocking.DefaultConfig())
	population := []*models.Record{
		{ID: "ent-1", Name: strPtr("Robert Roe"), Email: strPtr("robert.roe@example.edu")},
		{ID: "ent-2", Name: strPtr("Alice Alva"), Email: strPtr("alice.alva@example.edu")},
	}
	decider.UseIndex(engine.Index(context.Background(), population, blocking.AllStrategies))

	record := &models.Record{ID: "obs-1", Name: strPtr("Xerxes Quill"), Email: strPtr("xquill@example.edu")}
	decision, err := decider.Resolve(context.Background(), record, nil)
	require.NoError(t, err)

	assert.Equal(t, models.DecisionCreateNew, decision.Type)
	assert.Equal(t, 1.0, decision.Confidence)
}

func TestResolvePartialOverlap(t *testing.T) {
	decider := newTestDecider(t, nil, DefaultConfig())

	// same name, unrelated identifiers
	candidate := &models.Record{
		ID:    "ent-1",
		Name:  strPtr("Jane Doe"),
		Email: strPtr("zw9@campus.org"),
		Phone: strPtr("777-888-9999"),
	}
	record := &models.Record{
		ID:    "obs-1",
		Name:  strPtr("Jane Doe"),
		Email: strPtr("jane.doe@example.edu"),
		Phone: strPtr("555-000-1111"),
	}

	decision, err := decider.Resolve(context.Background(), record, []*models.Record{candidate})
	require.NoError(t, err)

	assert.Equal(t, models.DecisionManualReview, decision.Type)
	assert.Greater(t, decision.Confidence, 0.3)
	assert.Less(t, decision.Confidence, 0.9)
	assert.LessOrEqual(t, len(decision.Alternatives), 2)
}

func TestResolveThreeWayCoverage(t *testing.T) {
	decider := newTestDecider(t, nil, DefaultConfig())

	record := &models.Record{
		ID:     "obs-1",
		Name:   strPtr("Jane Doe"),
		Email:  strPtr("jane.doe@example.edu"),
		CardID: strPtr("CARD-998877"),
	}
	candidates := []*models.Record{
		{ID: "ent-strong", Name: strPtr("Jane Doe"), Email: strPtr("jane.doe@example.edu"), CardID: strPtr("CARD-998877")},
		{ID: "ent-weak", Name: strPtr("Quentin Xu"), Email: strPtr("qxu@example.edu"), CardID: strPtr("CARD-111111")},
	}

	decision, err := decider.Resolve(context.Background(), record, candidates)
	require.NoError(t, err)

	// exactly one variant, consistent with thresholds
	assert.Equal(t, models.DecisionMatch, decision.Type)
	assert.Equal(t, "ent-strong", decision.Entity.ID)
}

func TestResolveEvaluatorFailure(t *testing.T) {
	t.Run("failed pair is excluded, others continue", func(t *testing.T) {
		evaluator := &failingEvaluator{
			inner:   mustFieldEvaluator(t),
			failFor: map[string]bool{"ent-bad": true},
		}
		decider := newTestDecider(t, evaluator, DefaultConfig())

		record := &models.Record{ID: "obs-1", Name: strPtr("Jane Doe"), Email: strPtr("jane.doe@example.edu"), CardID: strPtr("CARD-998877")}
		candidates := []*models.Record{
			{ID: "ent-bad", Name: strPtr("Jane Doe")},
			{ID: "ent-good", Name: strPtr("Jane Doe"), Email: strPtr("jane.doe@example.edu"), CardID: strPtr("CARD-998877")},
		}

		decision, err := decider.Resolve(context.Background(), record, candidates)
		require.NoError(t, err)
		assert.Equal(t, models.DecisionMatch, decision.Type)
		assert.Equal(t, "ent-good", decision.Entity.ID)
	})

	t.Run("all pairs failing falls through to create new", func(t *testing.T) {
		evaluator := &failingEvaluator{
			inner:   mustFieldEvaluator(t),
			failFor: map[string]bool{"obs-1": true},
		}
		decider := newTestDecider(t, evaluator, DefaultConfig())

		record := &models.Record{ID: "obs-1", Name: strPtr("Jane Doe")}
		candidates := []*models.Record{{ID: "ent-1", Name: strPtr("Jane Doe")}}

		decision, err := decider.Resolve(context.Background(), record, candidates)
		require.NoError(t, err)
		assert.Equal(t, models.DecisionCreateNew, decision.Type)
		assert.Equal(t, 1.0, decision.Confidence)
	})
}

func TestResolveDeterminism(t *testing.T) {
	decider := newTestDecider(t, nil, DefaultConfig())

	record := &models.Record{ID: "obs-1", Name: strPtr("Jane Doe"), Department: strPtr("Physics")}
	candidates := []*models.Record{
		{ID: "ent-1", Name: strPtr("Jane Doe"), Department: strPtr("Physics")},
		{ID: "ent-2", Name: strPtr("Jane Doe"), Department: strPtr("Physics")},
		{ID: "ent-3", Name: strPtr("Jayne Doe"), Department: strPtr("Physics")},
	}

	first, err := decider.Resolve(context.Background(), record, candidates)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		decision, err := decider.Resolve(context.Background(), record, candidates)
		require.NoError(t, err)
		assert.Equal(t, first.Type, decision.Type)
		assert.Equal(t, first.Confidence, decision.Confidence)
		if first.Entity != nil {
			assert.Equal(t, first.Entity.ID, decision.Entity.ID)
		}
	}
}

func TestResolveBatch(t *testing.T) {
	t.Run("one bad record yields one error entry", func(t *testing.T) {
		decider := newTestDecider(t, nil, DefaultConfig())

		records := make([]*models.Record, 100)
		for i := range records {
			records[i] = &models.Record{
				ID:   fmt.Sprintf("obs-%d", i),
				Name: strPtr(fmt.Sprintf("Person %d", i)),
			}
		}
		// a record without an identifier cannot be resolved
		records[42] = &models.Record{Name: strPtr("Anonymous")}

		items := decider.ResolveBatch(context.Background(), records)
		require.Len(t, items, 100)

		errors := 0
		for i, item := range items {
			if item.Error != "" {
				errors++
				assert.Equal(t, 42, i)
				assert.Nil(t, item.Decision)
			} else {
				require.NotNil(t, item.Decision, "item %d", i)
			}
		}
		assert.Equal(t, 1, errors)
		assert.Equal(t, int64(1), decider.Metrics().Snapshot().Failures)
	})

	t.Run("results preserve input order", func(t *testing.T) {
		decider := newTestDecider(t, nil, DefaultConfig())

		records := make([]*models.Record, 10)
		for i := range records {
			records[i] = &models.Record{ID: fmt.Sprintf("obs-%d", i)}
		}

		items := decider.ResolveBatch(context.Background(), records)
		require.Len(t, items, 10)
		for i, item := range items {
			assert.Equal(t, fmt.Sprintf("obs-%d", i), item.RecordID)
		}
	})

	t.Run("chunking covers every record", func(t *testing.T) {
		config := DefaultConfig()
		config.BatchSize = 7
		config.MaxConcurrency = 3
		decider := newTestDecider(t, nil, config)

		records := make([]*models.Record, 23)
		for i := range records {
			records[i] = &models.Record{ID: fmt.Sprintf("obs-%d", i)}
		}

		items := decider.ResolveBatch(context.Background(), records)
		require.Len(t, items, 23)
		for _, item := range items {
			assert.Empty(t, item.Error)
			assert.NotNil(t, item.Decision)
		}
	})
}

func mustFieldEvaluator(t *testing.T) similarity.Evaluator {
	t.Helper()
	evaluator, err := similarity.NewFieldEvaluator(nil)
	require.NoError(t, err)
	return evaluator
}
