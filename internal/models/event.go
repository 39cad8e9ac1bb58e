package models

import (
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/vikasavnish/heirloom/internal/dates"
)

// Event is a dated life event of a person.
type Event struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	PersonID    uint      `gorm:"not null;index:idx_events_person_type" json:"personId"`
	Type        EventType `gorm:"column:event_type;size:20;not null;index:idx_events_person_type" json:"type"`
	Date        string    `gorm:"size:100" json:"date"`
	Year        *int      `json:"year,omitempty"`
	Place       string    `gorm:"size:200" json:"place"`
	Description string    `gorm:"type:text" json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// TableName specifies the table name for Event model
func (Event) TableName() string {
	return "events"
}

// BeforeSave keeps Year in step with Date and enforces one birth and one
// death per person.
func (e *Event) BeforeSave(tx *gorm.DB) error {
	if !e.Type.Valid() {
		return ErrInvalidEventType.Detail("%q", e.Type)
	}
	e.Date = strings.TrimSpace(e.Date)
	e.Year = dates.YearPtr(e.Date)

	if !e.Type.OneTime() {
		return nil
	}
	var existing int64
	err := tx.Session(&gorm.Session{NewDB: true}).
		Model(&Event{}).
		Where("person_id = ? AND event_type = ? AND id <> ?", e.PersonID, e.Type, e.ID).
		Count(&existing).Error
	if err != nil {
		return err
	}
	if existing > 0 {
		if e.Type == EventBirth {
			return ErrDuplicateBirth
		}
		return ErrDuplicateDeath
	}
	return nil
}

// FamilyEvent is a dated event of a family such as a marriage.
type FamilyEvent struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	FamilyID    uint            `gorm:"not null;uniqueIndex:idx_family_events_family_type" json:"familyId"`
	Type        FamilyEventType `gorm:"column:event_type;size:20;not null;uniqueIndex:idx_family_events_family_type" json:"type"`
	Date        string          `gorm:"size:100" json:"date"`
	Year        *int            `json:"year,omitempty"`
	Place       string          `gorm:"size:200" json:"place"`
	Description string          `gorm:"type:text" json:"description"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// TableName specifies the table name for FamilyEvent model
func (FamilyEvent) TableName() string {
	return "family_events"
}

func (e *FamilyEvent) BeforeSave(tx *gorm.DB) error {
	if !e.Type.Valid() {
		return ErrInvalidEventType.Detail("%q", e.Type)
	}
	e.Date = strings.TrimSpace(e.Date)
	e.Year = dates.YearPtr(e.Date)

	var existing int64
	err := tx.Session(&gorm.Session{NewDB: true}).
		Model(&FamilyEvent{}).
		Where("family_id = ? AND event_type = ? AND id <> ?", e.FamilyID, e.Type, e.ID).
		Count(&existing).Error
	if err != nil {
		return err
	}
	if existing > 0 {
		return ErrDuplicateFamilyEvent.Detail("%s", e.Type)
	}
	return nil
}

// All lists every model managed by the schema migration, parents first.
func All() []any {
	return []any{&Tree{}, &Person{}, &Family{}, &Child{}, &Event{}, &FamilyEvent{}}
}
