package models

import "time"

// VoteTarget names the kind of object a vote is cast on.
type VoteTarget string

const (
	TargetQuestion VoteTarget = "question"
	TargetAnswer   VoteTarget = "answer"
)

// Vote directions.
const (
	VoteUp   = 1
	VoteDown = -1
)

// Vote is one user's vote on a question or an answer.
// The primary key is a composite of (UserID, TargetType, TargetID) so a user
// holds at most one vote per target.
type Vote struct {
	UserID     uint       `gorm:"primaryKey"`
	TargetType VoteTarget `gorm:"primaryKey;type:varchar(16)"`
	TargetID   uint       `gorm:"primaryKey;index"`
	Value      int        `gorm:"not null"`
	CreatedAt  time.Time
	UpdatedAt  time.Time

	User User `gorm:"foreignKey:UserID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
}

// All lists every model, in dependency order, for AutoMigrate.
func All() []any {
	return []any{&User{}, &Tag{}, &Question{}, &Answer{}, &Vote{}}
}
