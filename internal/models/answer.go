package models

import "gorm.io/gorm"

// Answer belongs to one question. At most one answer per question is accepted.
type Answer struct {
	gorm.Model
	QuestionID uint   `gorm:"not null;index"`
	AuthorID   uint   `gorm:"not null;index"`
	Body       string `gorm:"size:1000;not null"`
	Rating     int    `gorm:"not null;default:0"`
	IsAccepted bool   `gorm:"not null;default:false"`

	Question Question `gorm:"foreignKey:QuestionID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	Author   User     `gorm:"foreignKey:AuthorID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
}
