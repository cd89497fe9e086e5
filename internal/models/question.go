package models

import "gorm.io/gorm"

// Field limits shared by forms, API input and the schema.
const (
	TitleMaxLength = 100
	BodyMaxLength  = 1000
)

// Question is a post asked by a user. Rating is the sum of its votes.
type Question struct {
	gorm.Model
	AuthorID uint   `gorm:"not null;index"`
	Title    string `gorm:"size:100;not null"`
	Body     string `gorm:"size:1000;not null"`
	Rating   int    `gorm:"not null;default:0;index"`

	Author  User     `gorm:"foreignKey:AuthorID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	Tags    []*Tag   `gorm:"many2many:question_tags;"`
	Answers []Answer `gorm:"foreignKey:QuestionID"`
}
