package models

import (
	"time"

	"gorm.io/gorm"
)

// Family is a parental unit. Either parent slot may be empty; a family with
// one slot filled is a single-parent stub waiting for the other parent.
type Family struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	TreeID     uint      `gorm:"not null;index" json:"treeId"`
	ExternalID string    `gorm:"column:external_id;size:20" json:"externalId,omitempty"`
	HusbandID  *uint     `gorm:"index" json:"husbandId,omitempty"`
	WifeID     *uint     `gorm:"index" json:"wifeId,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// TableName specifies the table name for Family model
func (Family) TableName() string {
	return "families"
}

// HasParent reports whether personID fills either parent slot.
func (f *Family) HasParent(personID uint) bool {
	return sameID(f.HusbandID, personID) || sameID(f.WifeID, personID)
}

// OtherParent returns the parent that is not personID, or nil.
func (f *Family) OtherParent(personID uint) *uint {
	switch {
	case sameID(f.HusbandID, personID):
		return f.WifeID
	case sameID(f.WifeID, personID):
		return f.HusbandID
	default:
		return nil
	}
}

// SingleParent reports whether exactly one parent slot is filled.
func (f *Family) SingleParent() bool {
	return (f.HusbandID == nil) != (f.WifeID == nil)
}

// Parentless reports whether neither parent slot is filled.
func (f *Family) Parentless() bool {
	return f.HusbandID == nil && f.WifeID == nil
}

// BeforeSave rejects spouses that live in another tree.
func (f *Family) BeforeSave(tx *gorm.DB) error {
	ids := make([]uint, 0, 2)
	for _, id := range []*uint{f.HusbandID, f.WifeID} {
		if id != nil {
			ids = append(ids, *id)
		}
	}
	if len(ids) == 0 {
		return nil
	}

	var foreign int64
	err := tx.Session(&gorm.Session{NewDB: true}).
		Model(&Person{}).
		Where("id IN ? AND tree_id <> ?", ids, f.TreeID).
		Count(&foreign).Error
	if err != nil {
		return err
	}
	if foreign > 0 {
		return ErrCrossTreeFamily
	}
	return nil
}

func sameID(slot *uint, id uint) bool {
	return slot != nil && *slot == id
}

// ChildRelation describes how a child belongs to its family.
type ChildRelation string

const (
	RelationBiological ChildRelation = "B"
	RelationAdopted    ChildRelation = "A"
	RelationFoster     ChildRelation = "F"
	RelationUnknown    ChildRelation = "U"
)

func (r ChildRelation) Valid() bool {
	switch r {
	case RelationBiological, RelationAdopted, RelationFoster, RelationUnknown:
		return true
	}
	return false
}

// Child links a person to the family they are a child of.
type Child struct {
	ID       uint          `gorm:"primaryKey" json:"id"`
	FamilyID uint          `gorm:"not null;uniqueIndex:idx_child_family_person" json:"familyId"`
	PersonID uint          `gorm:"not null;uniqueIndex:idx_child_family_person;uniqueIndex:idx_child_person" json:"personId"`
	Relation ChildRelation `gorm:"size:1;not null" json:"relation"`
}

// TableName specifies the table name for Child model
func (Child) TableName() string {
	return "children"
}

func (c *Child) BeforeSave(tx *gorm.DB) error {
	if c.Relation == "" {
		c.Relation = RelationBiological
	}
	if !c.Relation.Valid() {
		return ErrInvalidPerson.Detail("invalid child relation %q", c.Relation)
	}
	return nil
}
