package models

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

// Tree is one independently owned family tree.
type Tree struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	UserID         uint      `gorm:"not null;uniqueIndex:idx_tree_owner_name" json:"userId"`
	Name           string    `gorm:"size:100;not null;uniqueIndex:idx_tree_owner_name" json:"name"`
	SourceDocument string    `gorm:"size:255" json:"sourceDocument,omitempty"`
	UploadDate     time.Time `json:"uploadDate"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// TableName specifies the table name for Tree model
func (Tree) TableName() string {
	return "trees"
}

func (t *Tree) BeforeSave(tx *gorm.DB) error {
	t.Name = strings.TrimSpace(t.Name)
	if t.Name == "" {
		return ErrInvalidTree.Detail("name is required")
	}
	if t.UploadDate.IsZero() {
		t.UploadDate = time.Now()
	}
	return nil
}
