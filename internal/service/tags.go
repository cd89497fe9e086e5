package service

import (
	"errors"
	"fmt"
	"strings"

	"hasker/backend/internal/models"

	"gorm.io/gorm"
)

// MaxTagsPerQuestion is the number of tags a question may carry.
const MaxTagsPerQuestion = 3

// ParseTags splits a comma-separated tag field into trimmed names.
// Duplicates collapse and empty input gives no tags.
func ParseTags(raw string) ([]string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}

	var names []string
	seen := make(map[string]bool)
	for _, part := range strings.Split(raw, ",") {
		name := strings.TrimSpace(part)
		if name == "" {
			return nil, invalid("tags", "tag names must not be empty")
		}
		if len([]rune(name)) > models.TagMaxLength {
			return nil, invalid("tags", "tag %q is longer than %d characters", name, models.TagMaxLength)
		}
		if seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}

	if len(names) > MaxTagsPerQuestion {
		return nil, invalid("tags", "at most %d tags are allowed", MaxTagsPerQuestion)
	}
	return names, nil
}

// TagCount is a tag with the number of questions carrying it.
type TagCount struct {
	ID        uint   `json:"id"`
	Name      string `json:"name"`
	Questions int64  `json:"questions"`
}

// TagService maintains the tag vocabulary.
type TagService struct {
	db *gorm.DB
}

func NewTagService(db *gorm.DB) *TagService {
	return &TagService{db: db}
}

// List returns every tag with its question count, by name.
func (s *TagService) List() ([]TagCount, error) {
	var out []TagCount
	err := s.db.Model(&models.Tag{}).
		Select("tags.id, tags.name, COUNT(question_tags.question_id) AS questions").
		Joins("LEFT JOIN question_tags ON question_tags.tag_id = tags.id").
		Group("tags.id, tags.name").
		Order("tags.name").
		Scan(&out).Error
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	return out, nil
}

// Create adds a tag; the name must be unused.
func (s *TagService) Create(name string) (*models.Tag, error) {
	name, err := checkTagName(name)
	if err != nil {
		return nil, err
	}
	if err := s.checkFree(name, 0); err != nil {
		return nil, err
	}
	tag := &models.Tag{Name: name}
	if err := s.db.Create(tag).Error; err != nil {
		return nil, fmt.Errorf("create tag: %w", err)
	}
	return tag, nil
}

// Rename changes a tag's name.
func (s *TagService) Rename(id uint, name string) (*models.Tag, error) {
	name, err := checkTagName(name)
	if err != nil {
		return nil, err
	}
	var tag models.Tag
	if err := s.db.First(&tag, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get tag %d: %w", id, err)
	}
	if err := s.checkFree(name, id); err != nil {
		return nil, err
	}
	if err := s.db.Model(&tag).Update("name", name).Error; err != nil {
		return nil, fmt.Errorf("rename tag: %w", err)
	}
	tag.Name = name
	return &tag, nil
}

// Delete removes a tag and detaches it from its questions.
func (s *TagService) Delete(id uint) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM question_tags WHERE tag_id = ?", id).Error; err != nil {
			return fmt.Errorf("detach tag: %w", err)
		}
		res := tx.Unscoped().Delete(&models.Tag{}, id)
		if res.Error != nil {
			return fmt.Errorf("delete tag: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

func (s *TagService) checkFree(name string, self uint) error {
	var count int64
	if err := s.db.Model(&models.Tag{}).Where("name = ? AND id <> ?", name, self).Count(&count).Error; err != nil {
		return fmt.Errorf("check tag: %w", err)
	}
	if count > 0 {
		return ErrConflict
	}
	return nil
}

func checkTagName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || strings.Contains(name, ",") {
		return "", invalid("name", "tag name must be non-empty and contain no commas")
	}
	if len([]rune(name)) > models.TagMaxLength {
		return "", invalid("name", "tag name must be at most %d characters", models.TagMaxLength)
	}
	return name, nil
}
