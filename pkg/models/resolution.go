package models

// DecisionType is the three-way outcome of resolving a record.
type DecisionType string

const (
	DecisionMatch        DecisionType = "match"
	DecisionCreateNew    DecisionType = "create_new"
	DecisionManualReview DecisionType = "manual_review"
)

// ResolutionDecision is produced once per input record per resolution call.
// Entity is set for match and manual-review decisions; Alternatives carries
// the next-best candidates attached to a manual review.
type ResolutionDecision struct {
	RecordID     string          `json:"record_id"`
	Type         DecisionType    `json:"type"`
	Entity       *Record         `json:"entity,omitempty"`
	Confidence   float64         `json:"confidence"`
	Best         *LinkageResult  `json:"best,omitempty"`
	Alternatives []LinkageResult `json:"alternatives,omitempty"`
}

// BatchItem is one entry of a batch resolution result. Exactly one of
// Decision and Error is set; a failed record never aborts the batch.
type BatchItem struct {
	RecordID string              `json:"record_id"`
	Decision *ResolutionDecision `json:"decision,omitempty"`
	Error    string              `json:"error,omitempty"`
}

// MetricsSnapshot is a read-only view of the resolution metrics accumulator.
type MetricsSnapshot struct {
	Comparisons             int64   `json:"comparisons"`
	Matches                 int64   `json:"matches"`
	Creates                 int64   `json:"creates"`
	Reviews                 int64   `json:"reviews"`
	Failures                int64   `json:"failures"`
	AverageProcessingTimeMs float64 `json:"average_processing_time_ms"`
	BlockingEfficiency      float64 `json:"blocking_efficiency"`
}
