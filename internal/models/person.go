package models

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

// Sex of a person as recorded in GEDCOM.
type Sex string

const (
	SexMale    Sex = "M"
	SexFemale  Sex = "F"
	SexUnknown Sex = "U"
)

// ParseSex maps anything other than M or F to SexUnknown.
func ParseSex(s string) Sex {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "M":
		return SexMale
	case "F":
		return SexFemale
	default:
		return SexUnknown
	}
}

// Person is one individual in a tree.
type Person struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	TreeID         uint      `gorm:"not null;index:idx_people_tree_external" json:"treeId"`
	ExternalID     string    `gorm:"column:external_id;size:20;index:idx_people_tree_external" json:"externalId,omitempty"`
	FirstName      string    `gorm:"size:100" json:"firstName"`
	LastName       string    `gorm:"size:100" json:"lastName"`
	Sex            Sex       `gorm:"size:1;not null" json:"sex"`
	DeathCause     string    `gorm:"size:100" json:"deathCause,omitempty"`
	ProfileImageID *uint     `json:"profileImageId,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// TableName specifies the table name for Person model
func (Person) TableName() string {
	return "people"
}

// Name returns "First Last" with missing parts left out.
func (p *Person) Name() string {
	return strings.TrimSpace(strings.TrimSpace(p.FirstName) + " " + strings.TrimSpace(p.LastName))
}

func (p *Person) BeforeSave(tx *gorm.DB) error {
	p.FirstName = strings.TrimSpace(p.FirstName)
	p.LastName = strings.TrimSpace(p.LastName)
	if p.FirstName == "" && p.LastName == "" {
		return ErrInvalidPerson.Detail("a first name or last name is required")
	}
	if p.Sex == "" {
		p.Sex = SexUnknown
	}
	return nil
}
