package similarity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/fern/pkg/models"
)

func strPtr(s string) *string {
	return &s
}

func TestNewFieldEvaluator(t *testing.T) {
	t.Run("nil weights use defaults", func(t *testing.T) {
		evaluator, err := NewFieldEvaluator(nil)
		require.NoError(t, err)
		assert.Equal(t, DefaultWeights, evaluator.weights)
	})

	t.Run("non-positive weight rejected", func(t *testing.T) {
		_, err := NewFieldEvaluator(map[string]float64{FieldName: 0})
		assert.Error(t, err)
	})
}

func TestFieldEvaluatorCompare(t *testing.T) {
	evaluator, err := NewFieldEvaluator(nil)
	require.NoError(t, err)

	t.Run("identical records score one", func(t *testing.T) {
		a := &models.Record{
			ID:        "obs-1",
			Name:      strPtr("Jane Doe"),
			Email:     strPtr("jane.doe@example.edu"),
			Phone:     strPtr("+1 (555) 123-4567"),
			StudentID: strPtr("S12345"),
		}
		b := &models.Record{
			ID:        "obs-2",
			Name:      strPtr("jane doe"),
			Email:     strPtr("JANE.DOE@example.edu"),
			Phone:     strPtr("15551234567"),
			StudentID: strPtr("s12345"),
		}

		vector, err := evaluator.Compare(a, b)
		require.NoError(t, err)
		assert.InDelta(t, 1.0, vector.Fields[FieldName], 0.0001)
		assert.InDelta(t, 1.0, vector.Fields[FieldEmail], 0.0001)
		assert.InDelta(t, 1.0, vector.Fields[FieldPhone], 0.0001)
		assert.Equal(t, 1.0, vector.Fields[FieldStudentID])
		assert.InDelta(t, 1.0, vector.Overall, 0.0001)
	})

	t.Run("missing fields are omitted", func(t *testing.T) {
		a := &models.Record{ID: "obs-1", Name: strPtr("Jane Doe")}
		b := &models.Record{ID: "obs-2", Email: strPtr("jane@example.edu")}

		vector, err := evaluator.Compare(a, b)
		require.NoError(t, err)
		assert.Empty(t, vector.Fields)
		assert.Equal(t, 0.0, vector.Overall)
	})

	t.Run("composite is weighted over present fields", func(t *testing.T) {
		a := &models.Record{
			ID:    "obs-1",
			Name:  strPtr("Jane Doe"),
			Email: strPtr("jane@example.edu"),
		}
		b := &models.Record{
			ID:    "obs-2",
			Name:  strPtr("Jane Doe"),
			Email: strPtr("john@example.edu"),
		}

		vector, err := evaluator.Compare(a, b)
		require.NoError(t, err)
		require.True(t, vector.Has(FieldName))
		require.True(t, vector.Has(FieldEmail))

		expected := (vector.Fields[FieldName]*DefaultWeights[FieldName] +
			vector.Fields[FieldEmail]*DefaultWeights[FieldEmail]) /
			(DefaultWeights[FieldName] + DefaultWeights[FieldEmail])
		assert.InDelta(t, expected, vector.Overall, 0.0001)
	})

	t.Run("face embedding dimension mismatch omits field", func(t *testing.T) {
		a := &models.Record{ID: "obs-1", FaceEmbedding: []float64{0.1, 0.2, 0.3}}
		b := &models.Record{ID: "obs-2", FaceEmbedding: []float64{0.1, 0.2}}

		vector, err := evaluator.Compare(a, b)
		require.NoError(t, err)
		assert.False(t, vector.Has(FieldFaceEmbedding))
	})

	t.Run("matching face embeddings score", func(t *testing.T) {
		a := &models.Record{ID: "obs-1", FaceEmbedding: []float64{0.1, 0.2, 0.3}}
		b := &models.Record{ID: "obs-2", FaceEmbedding: []float64{0.1, 0.2, 0.3}}

		vector, err := evaluator.Compare(a, b)
		require.NoError(t, err)
		assert.InDelta(t, 1.0, vector.Fields[FieldFaceEmbedding], 0.0001)
	})

	t.Run("nil record is an error", func(t *testing.T) {
		_, err := evaluator.Compare(nil, &models.Record{ID: "obs-2"})
		assert.Error(t, err)
	})
}
