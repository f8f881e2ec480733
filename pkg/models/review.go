package models

import (
	"encoding/json"
	"time"
)

// ReviewItem is a manual-review decision queued for human adjudication.
type ReviewItem struct {
	ID               string          `json:"id" db:"id"`
	RecordID         string          `json:"record_id" db:"record_id"`
	CandidateID      string          `json:"candidate_id" db:"candidate_id"`
	MatchProbability float64         `json:"match_probability" db:"match_probability"`
	Details          json.RawMessage `json:"details,omitempty" db:"details"`
	Status           string          `json:"status" db:"status"`
	CreatedAt        time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at" db:"updated_at"`
	ResolvedAt       *time.Time      `json:"resolved_at,omitempty" db:"resolved_at"`
	ResolvedBy       *string         `json:"resolved_by,omitempty" db:"resolved_by"`
}

// ReviewItem status constants
const (
	ReviewStatusPending  = "pending"
	ReviewStatusApproved = "approved"
	ReviewStatusRejected = "rejected"
	ReviewStatusDeferred = "deferred"
)
