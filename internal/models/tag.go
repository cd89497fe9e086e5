package models

import "gorm.io/gorm"

// TagMaxLength is the longest tag name accepted.
const TagMaxLength = 20

// Tag is a short label attached to questions (e.g., "go", "postgres").
type Tag struct {
	gorm.Model
	Name string `gorm:"size:20;unique;not null"`
}
