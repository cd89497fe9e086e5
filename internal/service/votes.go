package service

import (
	"errors"
	"fmt"

	"hasker/backend/internal/hub"
	"hasker/backend/internal/metrics"
	"hasker/backend/internal/models"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// VoteResult is the state of a target after a vote.
type VoteResult struct {
	Rating int `json:"rating"`
	// Vote is the caller's current vote: -1, 0 or 1.
	Vote int `json:"vote"`
}

// Vote casts, flips or retracts the user's vote on a question or answer.
// Voting the same way twice retracts the vote. The target's rating is then
// recomputed from all its votes.
func (s *QuestionService) Vote(target models.VoteTarget, targetID, userID uint, value int) (*VoteResult, error) {
	if value != models.VoteUp && value != models.VoteDown {
		return nil, invalid("value", "vote must be 1 or -1")
	}

	var model any
	switch target {
	case models.TargetQuestion:
		model = &models.Question{}
	case models.TargetAnswer:
		model = &models.Answer{}
	default:
		return nil, invalid("target", "unknown vote target %q", target)
	}

	result := &VoteResult{}
	var action string
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(model, targetID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return fmt.Errorf("lock %s: %w", target, err)
		}

		mine := tx.Model(&models.Vote{}).Where(
			"user_id = ? AND target_type = ? AND target_id = ?", userID, string(target), targetID,
		)

		var existing models.Vote
		err := tx.Where("user_id = ? AND target_type = ? AND target_id = ?", userID, string(target), targetID).
			Take(&existing).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			vote := &models.Vote{UserID: userID, TargetType: target, TargetID: targetID, Value: value}
			if err := tx.Omit("User").Create(vote).Error; err != nil {
				return fmt.Errorf("store vote: %w", err)
			}
			action, result.Vote = "cast", value
		case err != nil:
			return fmt.Errorf("get vote: %w", err)
		case existing.Value == value:
			if err := mine.Delete(&models.Vote{}).Error; err != nil {
				return fmt.Errorf("retract vote: %w", err)
			}
			action, result.Vote = "retract", 0
		default:
			if err := mine.Update("value", value).Error; err != nil {
				return fmt.Errorf("flip vote: %w", err)
			}
			action, result.Vote = "flip", value
		}

		var rating int64
		if err := tx.Model(&models.Vote{}).
			Where("target_type = ? AND target_id = ?", string(target), targetID).
			Select("COALESCE(SUM(value), 0)").
			Scan(&rating).Error; err != nil {
			return fmt.Errorf("sum votes: %w", err)
		}
		result.Rating = int(rating)
		return tx.Model(model).UpdateColumn("rating", rating).Error
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordVote(string(target), action)
	questionID := targetID
	if a, ok := model.(*models.Answer); ok {
		questionID = a.QuestionID
	}
	s.publish(questionID, hub.EventVote, map[string]any{
		"target": target, "target_id": targetID, "rating": result.Rating,
	})
	s.log.WithFields(logrus.Fields{
		"target": target, "target_id": targetID, "user_id": userID, "action": action, "rating": result.Rating,
	}).Debug("Vote recorded")
	return result, nil
}

// CurrentVotes returns the user's votes on the given targets keyed by id.
func (s *QuestionService) CurrentVotes(userID uint, target models.VoteTarget, ids []uint) (map[uint]int, error) {
	out := make(map[uint]int, len(ids))
	if userID == 0 || len(ids) == 0 {
		return out, nil
	}
	var votes []models.Vote
	if err := s.db.Where("user_id = ? AND target_type = ? AND target_id IN ?", userID, string(target), ids).
		Find(&votes).Error; err != nil {
		return nil, fmt.Errorf("current votes: %w", err)
	}
	for _, v := range votes {
		out[v.TargetID] = v.Value
	}
	return out, nil
}
