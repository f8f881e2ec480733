package models

import "time"

// ResolvedEntity is the persisted identity profile a record can resolve to.
type ResolvedEntity struct {
	ID               string     `json:"id" db:"id"`
	Name             *string    `json:"name,omitempty" db:"name"`
	Email            *string    `json:"email,omitempty" db:"email"`
	Phone            *string    `json:"phone,omitempty" db:"phone"`
	StudentID        *string    `json:"student_id,omitempty" db:"student_id"`
	CardID           *string    `json:"card_id,omitempty" db:"card_id"`
	DeviceHash       *string    `json:"device_hash,omitempty" db:"device_hash"`
	Department       *string    `json:"department,omitempty" db:"department"`
	ObservationCount int        `json:"observation_count" db:"observation_count"`
	FirstSeenAt      time.Time  `json:"first_seen_at" db:"first_seen_at"`
	LastSeenAt       time.Time  `json:"last_seen_at" db:"last_seen_at"`
	CreatedAt        time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at" db:"updated_at"`
	DeletedAt        *time.Time `json:"deleted_at,omitempty" db:"deleted_at"`
}

// Record converts the persisted profile into an engine input record.
func (e *ResolvedEntity) Record() *Record {
	return &Record{
		ID:         e.ID,
		Name:       e.Name,
		Email:      e.Email,
		Phone:      e.Phone,
		StudentID:  e.StudentID,
		CardID:     e.CardID,
		DeviceHash: e.DeviceHash,
		Department: e.Department,
	}
}
