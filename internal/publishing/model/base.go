package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DateLayout is the wire format for calendar dates (target print date, deadlines).
const DateLayout = "2006-01-02"

// BaseModel carries the identity and audit timestamps shared by every persisted entity.
type BaseModel struct {
	ID        uuid.UUID `gorm:"type:char(36);column:id;not null;primaryKey" json:"id"`
	CreatedAt time.Time `gorm:"column:created_at;not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;not null" json:"updated_at"`
}

// BeforeCreate is a GORM hook that is triggered before a new record is created.
func (base *BaseModel) BeforeCreate(tx *gorm.DB) (err error) {
	if base.ID == uuid.Nil {
		base.ID, err = uuid.NewRandom()
		if err != nil {
			return
		}
	}
	now := time.Now().UTC()
	if base.CreatedAt.IsZero() {
		base.CreatedAt = now
	}
	base.UpdatedAt = now
	return
}

// BeforeUpdate is a GORM hook that is triggered before a record is updated.
func (base *BaseModel) BeforeUpdate(tx *gorm.DB) (err error) {
	base.UpdatedAt = time.Now().UTC()
	return
}

// ParseDate parses a YYYY-MM-DD calendar date into midnight UTC.
func ParseDate(field, value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, NewValidationError(field, "is required")
	}
	t, err := time.Parse(DateLayout, value)
	if err != nil {
		return time.Time{}, NewValidationError(field, "must be a date in YYYY-MM-DD format")
	}
	return t, nil
}

// CivilDate truncates a stored calendar date to midnight UTC of the same year, month and day.
func CivilDate(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// CivilDateIn returns the calendar date of instant t as observed in loc, as midnight UTC.
func CivilDateIn(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
