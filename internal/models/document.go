package models

import (
	"time"
)

// Document is the relational row backing a single JSON document when the
// daemon runs on the SQLite store.
type Document struct {
	Collection string    `gorm:"primaryKey;size:64" json:"collection"`
	Key        string    `gorm:"primaryKey;column:doc_key;size:255" json:"key"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`

	// Data is the JSON encoded document body.
	Data string `gorm:"type:text;not null" json:"data"`

	// Version is bumped on every write and used for compare-and-swap.
	Version int64 `gorm:"not null;default:1" json:"version"`
}

// TableName specifies the table name for GORM
func (Document) TableName() string {
	return "documents"
}
