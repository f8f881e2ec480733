// Package similarity compares two observation records field by field and
// produces a similarity vector with a weighted composite score.
package similarity

import (
	"fmt"

	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/normalizers"
)

// Evaluator compares two records and returns per-field similarity scores in
// [0, 1] plus a composite. Implementations only score fields present on both
// records; a field absent from either side is omitted from the vector.
type Evaluator interface {
	Compare(a, b *models.Record) (models.SimilarityVector, error)
}

// Field names emitted by the default evaluator.
const (
	FieldName          = "name"
	FieldEmail         = "email"
	FieldPhone         = "phone"
	FieldStudentID     = "student_id"
	FieldCardID        = "card_id"
	FieldDeviceHash    = "device_hash"
	FieldDepartment    = "department"
	FieldFaceEmbedding = "face_embedding"
)

// DefaultWeights are the relative field weights used for the composite score.
var DefaultWeights = map[string]float64{
	FieldName:          0.3,
	FieldEmail:         0.25,
	FieldPhone:         0.2,
	FieldStudentID:     0.1,
	FieldCardID:        0.1,
	FieldDeviceHash:    0.05,
	FieldDepartment:    0.05,
	FieldFaceEmbedding: 0.3,
}

// FieldEvaluator is the default Evaluator. Name and email use Jaro-Winkler,
// phone uses edit distance over digits, identifier fields use exact match,
// and face embeddings use cosine similarity.
type FieldEvaluator struct {
	scorer  *Scorer
	weights map[string]float64
}

// NewFieldEvaluator creates a FieldEvaluator. Passing nil weights uses
// DefaultWeights.
func NewFieldEvaluator(weights map[string]float64) (*FieldEvaluator, error) {
	if weights == nil {
		weights = DefaultWeights
	}
	for field, weight := range weights {
		if weight <= 0 {
			return nil, fmt.Errorf("weight for field %q must be positive, got %f", field, weight)
		}
	}

	return &FieldEvaluator{
		scorer:  NewScorer(),
		weights: weights,
	}, nil
}

// Compare scores every field present on both records and returns the vector
// with a weighted composite. Records with no fields in common produce an
// empty vector with Overall 0.
func (e *FieldEvaluator) Compare(a, b *models.Record) (models.SimilarityVector, error) {
	vector := models.SimilarityVector{Fields: map[string]float64{}}
	if a == nil || b == nil {
		return vector, fmt.Errorf("cannot compare nil records")
	}

	if a.Name != nil && b.Name != nil {
		vector.Fields[FieldName] = e.scorer.JaroWinkler(
			normalizers.NormalizeName(*a.Name), normalizers.NormalizeName(*b.Name))
	}
	if a.Email != nil && b.Email != nil {
		vector.Fields[FieldEmail] = e.scorer.JaroWinkler(
			normalizers.NormalizeEmail(*a.Email), normalizers.NormalizeEmail(*b.Email))
	}
	if a.Phone != nil && b.Phone != nil {
		vector.Fields[FieldPhone] = e.scorer.Levenshtein(
			normalizers.DigitsOnly(*a.Phone), normalizers.DigitsOnly(*b.Phone))
	}
	if a.StudentID != nil && b.StudentID != nil {
		vector.Fields[FieldStudentID] = e.scorer.ExactMatch(*a.StudentID, *b.StudentID, false)
	}
	if a.CardID != nil && b.CardID != nil {
		vector.Fields[FieldCardID] = e.scorer.ExactMatch(*a.CardID, *b.CardID, false)
	}
	if a.DeviceHash != nil && b.DeviceHash != nil {
		vector.Fields[FieldDeviceHash] = e.scorer.ExactMatch(*a.DeviceHash, *b.DeviceHash, true)
	}
	if a.Department != nil && b.Department != nil {
		vector.Fields[FieldDepartment] = e.scorer.ExactMatch(
			normalizers.NormalizeDepartment(*a.Department), normalizers.NormalizeDepartment(*b.Department), false)
	}
	if len(a.FaceEmbedding) > 0 && len(b.FaceEmbedding) > 0 {
		// A dimension mismatch means different embedding models; treat the
		// field as absent rather than scoring it zero.
		if len(a.FaceEmbedding) == len(b.FaceEmbedding) {
			vector.Fields[FieldFaceEmbedding] = e.scorer.Cosine(a.FaceEmbedding, b.FaceEmbedding)
		}
	}

	vector.Overall = e.composite(vector.Fields)
	return vector, nil
}

func (e *FieldEvaluator) composite(fields map[string]float64) float64 {
	weightedScore := 0.0
	totalWeight := 0.0
	for field, score := range fields {
		weight, ok := e.weights[field]
		if !ok {
			continue
		}
		weightedScore += score * weight
		totalWeight += weight
	}
	if totalWeight == 0 {
		return 0.0
	}
	return weightedScore / totalWeight
}
