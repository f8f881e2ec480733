package models

import "time"

// Record is an observation or a previously resolved identity profile as seen
// by the resolution engine. Records are immutable inputs; the engine only
// classifies them.
type Record struct {
	ID            string    `json:"id" db:"id"`
	Name          *string   `json:"name,omitempty" db:"name"`
	Email         *string   `json:"email,omitempty" db:"email"`
	Phone         *string   `json:"phone,omitempty" db:"phone"`
	StudentID     *string   `json:"student_id,omitempty" db:"student_id"`
	CardID        *string   `json:"card_id,omitempty" db:"card_id"`
	DeviceHash    *string   `json:"device_hash,omitempty" db:"device_hash"`
	Department    *string   `json:"department,omitempty" db:"department"`
	FaceEmbedding []float64 `json:"face_embedding,omitempty" db:"-"`
	Source        string    `json:"source,omitempty" db:"source"`
	ObservedAt    time.Time `json:"observed_at,omitempty" db:"observed_at"`
}

// StringField returns the value of a named string field, or nil when the
// record doesn't carry it. Field names follow the wire names above.
func (r *Record) StringField(field string) *string {
	switch field {
	case "name":
		return r.Name
	case "email":
		return r.Email
	case "phone":
		return r.Phone
	case "student_id":
		return r.StudentID
	case "card_id":
		return r.CardID
	case "device_hash":
		return r.DeviceHash
	case "department":
		return r.Department
	default:
		return nil
	}
}
